package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/sanonone/travelsdb/internal/server"
	"github.com/sanonone/travelsdb/pkg/engine"
)

const defaultConfigPath = "config.yml"

func main() {
	root := &cli.Command{
		Name:  "travelsdb",
		Usage: "In-memory travels database with an HTTP API",
		Flags: configFlags(),
		Commands: []*cli.Command{
			serveCommand(),
			inspectCommand(),
		},
		Action: serve,
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// configFlags are defined on the root command and inherited by subcommands.
func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Value: defaultConfigPath, Usage: "YAML configuration file", Sources: cli.EnvVars("TRAVELS_CONFIG")},
		&cli.StringFlag{Name: "bind", Usage: "API listen address", Sources: cli.EnvVars("TRAVELS_BIND")},
		&cli.StringFlag{Name: "admin-bind", Usage: "health, metrics and pprof listen address", Sources: cli.EnvVars("TRAVELS_ADMIN_BIND")},
		&cli.StringFlag{Name: "data-file", Usage: "zip archive or directory with the initial records", Sources: cli.EnvVars("TRAVELS_DATA_FILE")},
		&cli.StringFlag{Name: "options-file", Usage: "file whose first line is the reference timestamp", Sources: cli.EnvVars("TRAVELS_OPTIONS_FILE")},
		&cli.IntFlag{Name: "workers", Usage: "number of listeners, 0 for one per logical core", Sources: cli.EnvVars("TRAVELS_WORKERS")},
		&cli.BoolFlag{Name: "pin-cpus", Usage: "pin each worker to a CPU", Sources: cli.EnvVars("TRAVELS_PIN_CPUS")},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error", Sources: cli.EnvVars("TRAVELS_LOG_LEVEL")},
		&cli.StringFlag{Name: "log-format", Usage: "text or json", Sources: cli.EnvVars("TRAVELS_LOG_FORMAT")},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Load the archive and serve the HTTP API",
		Action: serve,
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Load the archive, verify the indices and print store statistics",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := cfg.NewLogger(os.Stderr)
			if err != nil {
				return err
			}

			eng, err := engine.Open(engine.Options{DataFile: cfg.DataFile, OptionsFile: cfg.OptionsFile, Logger: logger})
			if err != nil {
				return err
			}
			defer eng.Close()

			collisions, checkErr := eng.DB.CheckIndexes()
			out := struct {
				Now        int64  `json:"now"`
				Stats      any    `json:"stats"`
				Collisions int    `json:"collisions"`
				IndexError string `json:"index_error,omitempty"`
			}{
				Now:        eng.DB.Now(),
				Stats:      eng.Stats(),
				Collisions: collisions,
			}
			if checkErr != nil {
				out.IndexError = checkErr.Error()
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return err
			}
			if checkErr != nil {
				return fmt.Errorf("index check failed: %w", checkErr)
			}
			return nil
		},
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := engine.Open(engine.Options{DataFile: cfg.DataFile, OptionsFile: cfg.OptionsFile, Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer eng.Close()

	srv, err := server.NewServer(eng, cfg, logger)
	if err != nil {
		return err
	}
	if err := srv.Run(ctx); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

// loadConfig reads the YAML file and applies the flags that were set.
// A missing default config.yml is not an error.
func loadConfig(cmd *cli.Command) (server.Config, error) {
	path := cmd.String("config")
	cfg, err := server.LoadConfig(path)
	if err != nil {
		if !(errors.Is(err, fs.ErrNotExist) && !cmd.IsSet("config")) {
			return cfg, err
		}
		cfg = server.DefaultConfig()
	}

	if cmd.IsSet("bind") {
		cfg.Bind = cmd.String("bind")
	}
	if cmd.IsSet("admin-bind") {
		cfg.AdminBind = cmd.String("admin-bind")
	}
	if cmd.IsSet("data-file") {
		cfg.DataFile = cmd.String("data-file")
	}
	if cmd.IsSet("options-file") {
		cfg.OptionsFile = cmd.String("options-file")
	}
	if cmd.IsSet("workers") {
		cfg.Workers = cmd.Int("workers")
	}
	if cmd.IsSet("pin-cpus") {
		cfg.PinCPUs = cmd.Bool("pin-cpus")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		cfg.LogFormat = cmd.String("log-format")
	}
	return cfg, cfg.Validate()
}
