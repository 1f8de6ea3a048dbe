package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/dayone-export/internal"
	pkgconfig "github.com/starford/dayone-export/pkg/config"
)

const defaultConfigFile = "config/config.yaml"

func run(ctx context.Context, cmd *cli.Command) error {
	cfg := internal.NewDefaultConfig()

	configPath := cmd.String("config")
	if cmd.IsSet("config") {
		if err := pkgconfig.Decode(configPath, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	} else if _, err := pkgconfig.DecodeIfExists(configPath, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

// applyFlags overrides file values with flags and environment variables
// that were explicitly set.
func applyFlags(cmd *cli.Command, cfg *internal.Config) error {
	if cmd.IsSet("log-level") {
		if err := cfg.App.LogLevel.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
	}
	if cmd.IsSet("log-format") {
		cfg.App.LogFormat = cmd.String("log-format")
	}
	if cmd.IsSet("database") {
		cfg.Source.Database = cmd.String("database")
	}
	if cmd.IsSet("journal") {
		cfg.Source.Journals = cmd.StringSlice("journal")
	}
	if cmd.IsSet("after") {
		cfg.Source.After = cmd.String("after")
	}
	if cmd.IsSet("before") {
		cfg.Source.Before = cmd.String("before")
	}
	if cmd.IsSet("vault") {
		cfg.Vault.Path = cmd.String("vault")
	}
	if cmd.IsSet("output") {
		cfg.Vault.Output = cmd.String("output")
	}
	if cmd.IsSet("group-by-journal") {
		cfg.Export.GroupByJournal = cmd.Bool("group-by-journal")
	}
	if cmd.IsSet("overwrite") {
		cfg.Export.UpdateContent = cmd.Bool("overwrite")
	}
	if cmd.IsSet("dry-run") {
		cfg.Export.DryRun = cmd.Bool("dry-run")
	}
	if cmd.IsSet("list-existing") {
		cfg.Export.ListExisting = cmd.Bool("list-existing")
	}
	if cmd.IsSet("list-stats") {
		cfg.Export.ListStats = cmd.Bool("list-stats")
	}
	if cmd.IsSet("watch") {
		cfg.Export.Watch = cmd.Bool("watch")
	}
	if cmd.IsSet("debounce") {
		cfg.Export.Debounce = cmd.Duration("debounce")
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "dayone-export",
		Usage:  "Export Day One journal entries into a Markdown vault, keeping local edits",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (optional)",
				DefaultText: defaultConfigFile,
				Value:       defaultConfigFile,
				Sources:     cli.EnvVars("DAYONE_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Usage:   "Path to the Day One SQLite database",
				Sources: cli.EnvVars("DAYONE_DATABASE"),
			},
			&cli.StringFlag{
				Name:    "vault",
				Aliases: []string{"v"},
				Usage:   "Vault root searched for existing entries",
				Sources: cli.EnvVars("DAYONE_VAULT"),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory inside the vault for new entries (default: vault root)",
				Sources: cli.EnvVars("DAYONE_OUTPUT"),
			},
			&cli.StringSliceFlag{
				Name:    "journal",
				Aliases: []string{"j"},
				Usage:   "Only export these journals (repeatable)",
				Sources: cli.EnvVars("DAYONE_JOURNALS"),
			},
			&cli.StringFlag{
				Name:    "after",
				Usage:   "Only export entries created after this date (YYYY-MM-DD or RFC 3339)",
				Sources: cli.EnvVars("DAYONE_AFTER"),
			},
			&cli.StringFlag{
				Name:    "before",
				Usage:   "Only export entries created on or before this date (YYYY-MM-DD or RFC 3339)",
				Sources: cli.EnvVars("DAYONE_BEFORE"),
			},
			&cli.BoolFlag{
				Name:    "group-by-journal",
				Aliases: []string{"g"},
				Usage:   "Put new entries in one sub-directory per journal",
				Sources: cli.EnvVars("DAYONE_GROUP_BY_JOURNAL"),
			},
			&cli.BoolFlag{
				Name:    "overwrite",
				Aliases: []string{"w"},
				Usage:   "Replace local content when the Day One entry is newer",
				Sources: cli.EnvVars("DAYONE_OVERWRITE"),
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Usage:   "Log planned changes without writing",
				Sources: cli.EnvVars("DAYONE_DRY_RUN"),
			},
			&cli.BoolFlag{
				Name:  "list-existing",
				Usage: "Print the exported entries found in the vault and exit",
			},
			&cli.BoolFlag{
				Name:  "list-stats",
				Usage: "Print per-journal counts before exporting",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Usage:   "Keep running and export again when the database changes",
				Sources: cli.EnvVars("DAYONE_WATCH"),
			},
			&cli.DurationFlag{
				Name:    "debounce",
				Usage:   "Quiet period before a watch-triggered export",
				Sources: cli.EnvVars("DAYONE_DEBOUNCE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("DAYONE_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (json, text)",
				Sources: cli.EnvVars("DAYONE_LOG_FORMAT"),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
