package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// FileName is the optional config file looked up in the working directory
const FileName = "flowdash.toml"

// Config holds all configuration for the application
type Config struct {
	WebMode     bool            `koanf:"web"`
	Port        int             `koanf:"port" validate:"min=1,max=65535"`
	OpenBrowser bool            `koanf:"open"`
	Watch       bool            `koanf:"watch"`
	DataDir     string          `koanf:"data" validate:"required"`
	Results     string          `koanf:"results"`
	Components  string          `koanf:"components"`
	Verbosity   string          `koanf:"verbosity" validate:"omitempty,oneof=trace debug info warn warning error"`
	VerboseCnt  int             `koanf:"verbose" validate:"min=0"`
	LogJSON     bool            `koanf:"logjson"`
	Generator   GeneratorConfig `koanf:"generator"`
}

// GeneratorConfig configures the text-generation service used for report insights
type GeneratorConfig struct {
	APIKey      string        `koanf:"apikey"`
	BaseURL     string        `koanf:"baseurl" validate:"required,url"`
	Model       string        `koanf:"model" validate:"required"`
	MaxTokens   int           `koanf:"maxtokens" validate:"min=1"`
	Temperature float64       `koanf:"temperature" validate:"min=0,max=5"`
	Timeout     time.Duration `koanf:"timeout" validate:"min=0"`
}

// Enabled reports whether insights can be requested at all
func (g GeneratorConfig) Enabled() bool {
	return g.APIKey != ""
}

// ResultsPath resolves the analytics results file
func (c *Config) ResultsPath() string {
	return resolve(c.DataDir, c.Results)
}

// ComponentsPath resolves the chemical component CSV. Empty means the
// built-in catalog.
func (c *Config) ComponentsPath() string {
	if c.Components == "" {
		return ""
	}
	return resolve(c.DataDir, c.Components)
}

func resolve(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// Validate checks value ranges that koanf cannot express
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Defaults returns the built-in configuration values
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"web":                   true,
		"port":                  8050,
		"open":                  true,
		"watch":                 true,
		"data":                  ".",
		"results":               "mock_results.json",
		"components":            "",
		"verbosity":             "",
		"verbose":               0,
		"logjson":               false,
		"generator.apikey":      "",
		"generator.baseurl":     "https://api.cohere.ai",
		"generator.model":       "command",
		"generator.maxtokens":   800,
		"generator.temperature": 0.7,
		"generator.timeout":     30 * time.Second,
	}
}

// RegisterFlags adds the command-line flags understood by Load
func RegisterFlags(f *pflag.FlagSet) {
	f.Bool("web", true, "Serve the dashboard instead of printing a console summary")
	f.Int("port", 8050, "Port for the web server")
	f.Bool("open", true, "Open the dashboard in a browser")
	f.Bool("watch", true, "Reload data files when they change")
	f.String("data", ".", "Directory holding the results file and component catalog")
	f.String("results", "mock_results.json", "Analytics results file, relative to --data")
	f.String("components", "", "Chemical component CSV, relative to --data (default: built-in)")
	f.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	f.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	f.Bool("logjson", false, "Log in JSON instead of the compact console format")
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return LoadFile(f, FileName)
}

// LoadFile is Load with an explicit config file path
func LoadFile(f *pflag.FlagSet, path string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional, but must parse when present)
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	// 3. Environment Variables
	// The generator key is also accepted under its conventional name
	if err := k.Load(env.Provider("COHERE_", ".", func(s string) string {
		if s == "COHERE_API_KEY" {
			return "generator.apikey"
		}
		return ""
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// Prefix: FLOWDASH_ (e.g., FLOWDASH_PORT=9090, FLOWDASH_GENERATOR_MODEL=command-light)
	if err := k.Load(env.Provider("FLOWDASH_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, "FLOWDASH_")), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

// Read unflattens the dotted default keys so they merge with nested sources
func (p *mapProvider) Read() (map[string]interface{}, error) {
	out := make(map[string]interface{})
	for key, v := range p.m {
		parts := strings.Split(key, ".")
		cur := out
		for _, part := range parts[:len(parts)-1] {
			next, ok := cur[part].(map[string]interface{})
			if !ok {
				next = make(map[string]interface{})
				cur[part] = next
			}
			cur = next
		}
		cur[parts[len(parts)-1]] = v
	}
	return out, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
