package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for engine settings
const (
	DefaultWindowWidth                       = 1280
	DefaultWindowHeight                      = 720
	DefaultOperationTimeout                  = 5 * time.Second
	DefaultStepTimeout                       = 5 * time.Second
	DefaultNavigationTimeout                 = 10 * time.Second
	DefaultReadinessTimeout                  = 3 * time.Second
	DefaultRunTimeout                        = 5 * time.Minute
	DefaultMaxConsecutiveInteractionFailures = 3
)

// Environment variables that override file and default values.
const (
	EnvHeadless = "PROBE_HEADLESS"
	EnvLogLevel = "PROBE_LOG_LEVEL"
)

// Config holds the settings for a single test run. It is passed by value into
// the session manager and the engine and is never mutated after Validate.
type Config struct {
	// Browser window
	WindowWidth  int  `yaml:"window_width" json:"window_width"`
	WindowHeight int  `yaml:"window_height" json:"window_height"`
	Headless     bool `yaml:"headless" json:"headless"`
	HasTouch     bool `yaml:"has_touch" json:"has_touch"`

	// Process isolation flags passed to the browser at launch
	BrowserArgs []string `yaml:"browser_args" json:"browser_args"`

	// DefaultTimeout is the context-wide default for Playwright operations
	DefaultTimeout time.Duration `yaml:"default_timeout" json:"default_timeout"`

	// Step and navigation deadlines
	DefaultStepTimeout time.Duration `yaml:"default_step_timeout" json:"default_step_timeout"`
	NavigationTimeout  time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
	ReadinessTimeout   time.Duration `yaml:"readiness_timeout" json:"readiness_timeout"`

	// RunTimeout bounds the whole run. Zero disables the run deadline.
	RunTimeout time.Duration `yaml:"run_timeout" json:"run_timeout"`

	MaxConsecutiveInteractionFailures int `yaml:"max_consecutive_interaction_failures" json:"max_consecutive_interaction_failures"`

	// SkipFramePatterns are glob patterns of frame URLs that are never waited on
	SkipFramePatterns []string `yaml:"skip_frame_patterns" json:"skip_frame_patterns"`

	// LogLevel controls logging verbosity: quiet, normal, verbose, debug
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns a configuration matching the defaults used by the
// generated test plans: 1280x720 headless chromium with container-friendly flags.
func DefaultConfig() Config {
	return Config{
		WindowWidth:  DefaultWindowWidth,
		WindowHeight: DefaultWindowHeight,
		Headless:     true,
		BrowserArgs: []string{
			"--disable-dev-shm-usage",
			"--ipc=host",
			"--single-process",
		},
		DefaultTimeout:                    DefaultOperationTimeout,
		DefaultStepTimeout:                DefaultStepTimeout,
		NavigationTimeout:                 DefaultNavigationTimeout,
		ReadinessTimeout:                  DefaultReadinessTimeout,
		RunTimeout:                        DefaultRunTimeout,
		MaxConsecutiveInteractionFailures: DefaultMaxConsecutiveInteractionFailures,
		LogLevel:                          "normal",
	}
}

// Validate validates the configuration
func (c Config) Validate() error {
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.WindowWidth, c.WindowHeight)
	}

	if c.DefaultTimeout < 0 {
		return fmt.Errorf("default_timeout cannot be negative")
	}

	if c.DefaultStepTimeout <= 0 {
		return fmt.Errorf("default_step_timeout must be positive")
	}

	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation_timeout must be positive")
	}

	if c.ReadinessTimeout <= 0 {
		return fmt.Errorf("readiness_timeout must be positive")
	}

	// The readiness milestone is the inner, shorter deadline
	if c.ReadinessTimeout > c.NavigationTimeout {
		return fmt.Errorf("readiness_timeout (%s) cannot exceed navigation_timeout (%s)", c.ReadinessTimeout, c.NavigationTimeout)
	}

	if c.RunTimeout < 0 {
		return fmt.Errorf("run_timeout cannot be negative")
	}

	if c.MaxConsecutiveInteractionFailures < 1 {
		return fmt.Errorf("max_consecutive_interaction_failures must be at least 1, got %d", c.MaxConsecutiveInteractionFailures)
	}

	validLevels := map[string]bool{
		"":        true,
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.LogLevel)
	}

	return nil
}

// WindowSizeArg returns the --window-size launch flag for the configured window.
func (c Config) WindowSizeArg() string {
	return fmt.Sprintf("--window-size=%d,%d", c.WindowWidth, c.WindowHeight)
}

// LaunchArgs returns the full browser argument list. The returned slice is a
// fresh copy, so callers may append to it freely.
func (c Config) LaunchArgs() []string {
	args := make([]string, 0, len(c.BrowserArgs)+1)
	args = append(args, c.WindowSizeArg())
	args = append(args, c.BrowserArgs...)
	return args
}

// Load reads a YAML configuration file on top of DefaultConfig, applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration data on top of DefaultConfig.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	cfg, err := ApplyEnv(cfg)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ApplyEnv returns a copy of cfg with environment overrides applied.
// Precedence: environment > config file > defaults.
func ApplyEnv(cfg Config) (Config, error) {
	if v := os.Getenv(EnvHeadless); v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s value %q: %w", EnvHeadless, v, err)
		}
		cfg.Headless = headless
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}
