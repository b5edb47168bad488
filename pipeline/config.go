// CLAUDE:SUMMARY Pipeline configuration: yaml-backed limits, chunking options, worker pool size.
package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/mailsift/chunk"
	"github.com/hazyhaar/mailsift/idgen"
	"github.com/hazyhaar/mailsift/partshield"
)

// Config is the full processing configuration. It is immutable once a
// Pipeline is built from it; invalid combinations are rejected up front,
// never at first use.
type Config struct {
	Limits     partshield.Limits `yaml:"limits"`
	PreferHTML bool              `yaml:"prefer_html"`
	// Chunking applies to body text and converted attachment text.
	// Chunk false skips segmentation entirely.
	Chunk    bool          `yaml:"chunk"`
	Chunking chunk.Options `yaml:"chunking"`
	// ConvertAttachments runs eligible attachments (pdf, docx) through
	// the converter registry and chunks the resulting text.
	ConvertAttachments bool `yaml:"convert_attachments"`
	// Workers bounds batch concurrency.
	Workers int `yaml:"workers"`

	// Injectable for deterministic reprocessing; nil takes the defaults.
	NewDocID       idgen.Generator  `yaml:"-"`
	NewComponentID idgen.Generator  `yaml:"-"`
	Now            func() time.Time `yaml:"-"`
	Logger         *slog.Logger     `yaml:"-"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		Limits: partshield.DefaultLimits(),
		Chunk:  true,
		Chunking: chunk.Options{
			Strategy:     chunk.StrategySemantic,
			Units:        chunk.UnitChars,
			MaxUnits:     chunk.DefaultMaxUnits,
			OverlapUnits: chunk.DefaultOverlapUnits,
		},
		Workers: 4,
	}
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration before any processing starts.
func (c *Config) Validate() error {
	if err := c.Chunking.Validate(); err != nil {
		return err
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be > 0")
	}
	if c.Limits.MaxPartBytes < 0 || c.Limits.MaxMessageBytes < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	return nil
}
