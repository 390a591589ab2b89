package config

import "time"

// BrowserConfig configures the shared headless Chrome process.
type BrowserConfig struct {
	Bin       string   `yaml:"bin" env:"LEXGATE_BROWSER_BIN"` // empty = rod's managed download/lookup
	Headless  bool     `yaml:"headless"`
	NoSandbox bool     `yaml:"no_sandbox" env:"LEXGATE_BROWSER_NO_SANDBOX"`
	Flags     []string `yaml:"flags"` // extra launch flags, "--name=value" or "--name"
	UserAgent string   `yaml:"user_agent"`

	MaxPages int `yaml:"max_pages"`

	NavigationTimeout string `yaml:"navigation_timeout"`
	OperationTimeout  string `yaml:"operation_timeout"`

	BlockImages bool `yaml:"block_images"`
	BlockFonts  bool `yaml:"block_fonts"`
	BlockMedia  bool `yaml:"block_media"`
}

// DefaultUserAgent is a current desktop Chrome identity string.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// DefaultBrowserConfig returns sensible defaults.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:          true,
		UserAgent:         DefaultUserAgent,
		MaxPages:          8,
		NavigationTimeout: "30s",
		OperationTimeout:  "15s",
		BlockImages:       true,
		BlockFonts:        true,
		BlockMedia:        true,
	}
}

// GetNavigationTimeout returns the per-navigation timeout.
func (b BrowserConfig) GetNavigationTimeout() time.Duration {
	return parseDuration(b.NavigationTimeout, 30*time.Second)
}

// GetOperationTimeout returns the per-operation (click, input, query) timeout.
func (b BrowserConfig) GetOperationTimeout() time.Duration {
	return parseDuration(b.OperationTimeout, 15*time.Second)
}
