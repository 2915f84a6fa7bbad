package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/klauspost/compress/zip"

	"github.com/sanonone/travelsdb/pkg/core"
	"github.com/sanonone/travelsdb/pkg/core/types"
	"github.com/sanonone/travelsdb/pkg/metrics"
)

// LoadSummary reports what LoadArchive inserted.
type LoadSummary struct {
	Files     int
	Users     core.LoadResult
	Locations core.LoadResult
	Visits    core.LoadResult
}

func (s LoadSummary) record() {
	for entity, r := range map[types.Entity]core.LoadResult{
		types.EntityUser:     s.Users,
		types.EntityLocation: s.Locations,
		types.EntityVisit:    s.Visits,
	} {
		metrics.LoadedRecordsTotal.WithLabelValues(entity.String(), "loaded").Add(float64(r.Loaded))
		metrics.LoadedRecordsTotal.WithLabelValues(entity.String(), "skipped").Add(float64(r.Skipped))
	}
}

// LoadArchive fills db from a zip archive or a directory of JSON files.
//
// Files are matched by name prefix ("users", "locations", "visits") and each
// holds one object with a single array under the same key, e.g.
// {"users":[...]}. Other files are ignored. Files may come in any order:
// visits are indexed without checking that their user and location exist.
// Records whose id is already taken are skipped and counted.
func LoadArchive(db *core.DB, path string) (LoadSummary, error) {
	info, err := os.Stat(path)
	if err != nil {
		return LoadSummary{}, err
	}
	if info.IsDir() {
		return loadDir(db, path)
	}
	return loadZip(db, path)
}

func loadZip(db *core.DB, path string) (LoadSummary, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return LoadSummary{}, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var summary LoadSummary
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entity, ok := entityForFile(f.Name)
		if !ok {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return summary, fmt.Errorf("open %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return summary, fmt.Errorf("read %s: %w", f.Name, err)
		}
		if err := summary.loadFile(db, entity, data); err != nil {
			return summary, fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	return summary, nil
}

func loadDir(db *core.DB, dir string) (LoadSummary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return LoadSummary{}, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var summary LoadSummary
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		entity, ok := entityForFile(de.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, de.Name()))
		if err != nil {
			return summary, err
		}
		if err := summary.loadFile(db, entity, data); err != nil {
			return summary, fmt.Errorf("%s: %w", de.Name(), err)
		}
	}
	return summary, nil
}

// entityForFile classifies an archive member by the prefix of its base name.
func entityForFile(name string) (types.Entity, bool) {
	base := filepath.Base(name)
	for _, e := range []types.Entity{types.EntityUser, types.EntityLocation, types.EntityVisit} {
		if strings.HasPrefix(base, e.String()) {
			return e, true
		}
	}
	return 0, false
}

func (s *LoadSummary) loadFile(db *core.DB, entity types.Entity, data []byte) error {
	switch entity {
	case types.EntityUser:
		users, err := decodeArray(data, entity.String(), types.DecodeUser)
		if err != nil {
			return err
		}
		s.Users.Merge(db.LoadUsers(users))
	case types.EntityLocation:
		locations, err := decodeArray(data, entity.String(), types.DecodeLocation)
		if err != nil {
			return err
		}
		s.Locations.Merge(db.LoadLocations(locations))
	case types.EntityVisit:
		visits, err := decodeArray(data, entity.String(), types.DecodeVisit)
		if err != nil {
			return err
		}
		s.Visits.Merge(db.LoadVisits(visits))
	}
	s.Files++
	return nil
}

// decodeArray decodes every element of the array stored under key.
// Decoding happens before the store lock is taken.
func decodeArray[T any](data []byte, key string, decode func([]byte) (T, error)) ([]T, error) {
	var (
		out      []T
		firstErr error
	)
	_, err := jsonparser.ArrayEach(data, func(value []byte, typ jsonparser.ValueType, _ int, _ error) {
		if firstErr != nil {
			return
		}
		if typ != jsonparser.Object {
			firstErr = fmt.Errorf("%s[%d] is not an object: %w", key, len(out), types.ErrMalformed)
			return
		}
		rec, err := decode(value)
		if err != nil {
			firstErr = fmt.Errorf("%s[%d]: %w", key, len(out), err)
			return
		}
		out = append(out, rec)
	}, key)
	if err != nil {
		if errors.Is(err, jsonparser.KeyPathNotFoundError) {
			return nil, fmt.Errorf("missing %q array: %w", key, types.ErrMalformed)
		}
		return nil, fmt.Errorf("%w: %v", types.ErrMalformed, err)
	}
	return out, firstErr
}
