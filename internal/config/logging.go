package config

import "lexgate/internal/logging"

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level" env:"LEXGATE_LOG_LEVEL"` // debug, info, warn, error
	Format     string          `yaml:"format"`                        // json, console
	Categories map[string]bool `yaml:"categories"`                    // Per-category toggles
}

// Options converts the config into logging.Options.
func (c *LoggingConfig) Options() logging.Options {
	return logging.Options{
		Level:      c.Level,
		Format:     c.Format,
		Categories: c.Categories,
	}
}
