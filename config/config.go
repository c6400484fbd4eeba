package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	LogLevel     string  `toml:"log_level" binding:"oneof=debug info warn error"`
	LogFile      string  `toml:"log_file"`
	StateFile    string  `toml:"state_file"`
	MaxRefreshHz int     `toml:"max_refresh_hz" binding:"min=1,max=100"` // cap on rows written per second
	Modules      Modules `toml:"modules"`
	moduleOrder  []string // order of module tables as they appeared in TOML
	path         string
}

type Modules struct {
	Date AxisModule `toml:"date"`
	Time AxisModule `toml:"time"`
}

// AxisModule configures one clock block. Active lists token kinds in
// display order; "|" stands for a delimiter slot.
type AxisModule struct {
	Enabled         bool     `toml:"enabled"`
	Convention      string   `toml:"convention" binding:"oneof=12h 24h"`
	Delimiter       string   `toml:"delimiter" binding:"oneof=comma colon slash space dash dot"`
	Active          []string `toml:"active" binding:"dive,required"`
	SpareDelimiters int      `toml:"spare_delimiters" binding:"min=0,max=3"`
	Prefix          string   `toml:"prefix"` // text/icon before the clock text
}

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	return v
}()

func Defaults() *Config {
	return &Config{
		LogLevel:     "info",
		MaxRefreshHz: 10,
		Modules: Modules{
			Date: AxisModule{
				Enabled:         true,
				Convention:      "24h",
				Delimiter:       "dash",
				Active:          []string{"YYYY", "|", "MM", "|", "DD"},
				SpareDelimiters: 1,
			},
			Time: AxisModule{
				Enabled:         true,
				Convention:      "24h",
				Delimiter:       "colon",
				Active:          []string{"HOUR_PADDED", "|", "mm", "|", "ss"},
				SpareDelimiters: 1,
			},
		},
	}
}

// ErrNoConfig is returned with the defaults when no config file exists.
var ErrNoConfig = errors.New("no config file found; using defaults")

// Load loads configuration from explicit path or discovered search path.
// Precedence: provided path else first existing search path else defaults.
// Missing, unparsable or invalid files yield defaults and an error.
func Load(path string) (*Config, error) {
	chosen := Locate(path)
	if chosen == "" {
		return Defaults(), ErrNoConfig
	}
	data, err := os.ReadFile(chosen)
	if err != nil {
		return Defaults(), fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return Defaults(), fmt.Errorf("%s: %w", chosen, err)
	}
	cfg.path = chosen
	return cfg, nil
}

// Parse decodes a TOML document over the defaults, then normalizes and
// validates the result.
func Parse(doc string) (*Config, error) {
	cfg := Defaults()
	md, err := toml.Decode(doc, cfg) // decode overlays onto defaults
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse config: unknown key %q", undecoded[0].String())
	}
	// Capture module order from metadata keys: modules.<name>
	seen := map[string]struct{}{}
	for _, k := range md.Keys() {
		if len(k) == 2 && k[0] == "modules" {
			name := k[1]
			if _, ok := seen[name]; !ok {
				cfg.moduleOrder = append(cfg.moduleOrder, name)
				seen[name] = struct{}{}
			}
		}
	}
	cfg.normalize()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Locate returns path when set, else the first existing search path, else "".
func Locate(path string) string {
	if path != "" {
		return path
	}
	for _, p := range searchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func searchPaths() []string {
	var out []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		out = append(out, filepath.Join(xdg, "tokenclock", "config.toml"))
	}
	if home, _ := os.UserHomeDir(); home != "" {
		out = append(out, filepath.Join(home, ".config", "tokenclock", "config.toml"))
	}
	return out
}

// Path is the file the config was loaded from; empty for defaults.
func (c *Config) Path() string { return c.path }

// ModuleOrder returns a copy of the module order slice (may be empty).
func (c *Config) ModuleOrder() []string {
	if len(c.moduleOrder) == 0 {
		return nil
	}
	out := make([]string, len(c.moduleOrder))
	copy(out, c.moduleOrder)
	return out
}

// Module returns the axis module by table name.
func (c *Config) Module(name string) (AxisModule, bool) {
	switch name {
	case "date":
		return c.Modules.Date, true
	case "time":
		return c.Modules.Time, true
	}
	return AxisModule{}, false
}

// normalize clamps and cleans config values after decoding.
func (c *Config) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.MaxRefreshHz = clampInt(c.MaxRefreshHz, 1, 100, 10)
	c.Modules.Date.normalize("dash")
	c.Modules.Time.normalize("colon")
}

func (m *AxisModule) normalize(delimiter string) {
	m.Convention = strings.ToLower(strings.TrimSpace(m.Convention))
	if m.Convention == "" {
		m.Convention = "24h"
	}
	m.Delimiter = strings.ToLower(strings.TrimSpace(m.Delimiter))
	if m.Delimiter == "" {
		m.Delimiter = delimiter
	}
	m.SpareDelimiters = clampInt(m.SpareDelimiters, 0, 3, 0)
}

func clampInt(val, min, max, fallback int) int {
	if val == 0 && fallback != 0 { // allow zero to trigger fallback when min>0
		val = fallback
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
