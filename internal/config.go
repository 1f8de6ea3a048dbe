package internal

import (
	"errors"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/dayone-export/internal/source"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Source SourceConfig      `yaml:"source"`
	Vault  VaultConfig       `yaml:"vault"`
	Export ExportConfig      `yaml:"export"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	return c.Export.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatJSON
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	)
}

// SourceConfig selects the Day One database and the entries to export.
type SourceConfig struct {
	Database string   `yaml:"database"`
	Journals []string `yaml:"journals"`
	After    string   `yaml:"after"`
	Before   string   `yaml:"before"`
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Database, validation.Required),
		validation.Field(&c.Journals, validation.Each(validation.Required)),
		validation.Field(&c.After, validation.By(validBound)),
		validation.Field(&c.Before, validation.By(validBound)),
	)
}

// Filter converts the journal and date settings into a source.Filter.
func (c *SourceConfig) Filter() (source.Filter, error) {
	after, err := source.ParseBound(c.After)
	if err != nil {
		return source.Filter{}, err
	}
	before, err := source.ParseBound(c.Before)
	if err != nil {
		return source.Filter{}, err
	}
	return source.Filter{Journals: c.Journals, After: after, Before: before}, nil
}

func validBound(value any) error {
	s, _ := value.(string)
	if _, err := source.ParseBound(s); err != nil {
		return errors.New("must be YYYY-MM-DD or an RFC 3339 timestamp")
	}
	return nil
}

// VaultConfig holds the vault root and the directory new entries go to.
// Output is relative to the working directory and must lie inside Path;
// empty means the vault root.
type VaultConfig struct {
	Path   string `yaml:"path"`
	Output string `yaml:"output"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ExportConfig holds the reconciliation policy and run modes.
type ExportConfig struct {
	GroupByJournal bool          `yaml:"group_by_journal"`
	UpdateContent  bool          `yaml:"update_content"`
	DryRun         bool          `yaml:"dry_run"`
	ListExisting   bool          `yaml:"list_existing"`
	ListStats      bool          `yaml:"list_stats"`
	Watch          bool          `yaml:"watch"`
	Debounce       time.Duration `yaml:"debounce"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
		},
		Vault: VaultConfig{
			Path: ".",
		},
		Export: ExportConfig{
			Debounce: source.DefaultDebounce,
		},
	}
}
