package engine

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sanonone/travelsdb/pkg/core/types"
)

// ResolveNow reads the reference timestamp from the first line of path.
// Any failure is logged and the current wall-clock time is returned instead.
func ResolveNow(path string, logger *slog.Logger) types.Timestamp {
	if logger == nil {
		logger = slog.Default()
	}
	now, err := readTimestamp(path)
	if err != nil {
		logger.Warn("Unable to read reference time, using wall clock", "path", path, "error", err)
		return time.Now().Unix()
	}
	return now
}

func readTimestamp(path string) (types.Timestamp, error) {
	if path == "" {
		return 0, fmt.Errorf("no options file configured")
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return 0, fmt.Errorf("empty options file: %w", err)
	}
	return strconv.ParseInt(strings.TrimSpace(line), 10, 64)
}
