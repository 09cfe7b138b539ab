package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTickHz     = 30
	DefaultSaveDB     = "data/saves.sqlite"
	DefaultJournalDir = "data/journal"
)

// Config is the client's on-disk configuration.
type Config struct {
	URL           string `yaml:"url"`
	Slot          string `yaml:"slot"`
	Password      string `yaml:"password,omitempty"`
	Seed          string `yaml:"seed,omitempty"`
	ClientVersion string `yaml:"client_version,omitempty"`
	Game          string `yaml:"game"`
	Debug         bool   `yaml:"debug,omitempty"`
	SaveDB        string `yaml:"save_db,omitempty"`
	JournalDir    string `yaml:"journal_dir,omitempty"`
	TickHz        int    `yaml:"tick_hz,omitempty"`

	path string
	// file holds the document as read from path, before defaults and
	// environment overrides. SetURL writes it back instead of the live values.
	file *Config
}

type envOverrides struct {
	URL      *string `env:"SOULSLINK_URL"`
	Slot     *string `env:"SOULSLINK_SLOT"`
	Password *string `env:"SOULSLINK_PASSWORD"`
	Debug    *bool   `env:"SOULSLINK_DEBUG"`
}

// Load reads path, applies defaults and then environment overrides.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	c.path = path
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse decodes a config document and applies defaults. It does not consult
// the environment.
func Parse(raw []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	file := c
	c.file = &file
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.TickHz <= 0 {
		c.TickHz = DefaultTickHz
	}
	if c.SaveDB == "" {
		c.SaveDB = DefaultSaveDB
	}
	if c.JournalDir == "" {
		c.JournalDir = DefaultJournalDir
	}
	if c.Game == "" {
		c.Game = "ds3"
	}
	c.Game = strings.ToLower(strings.TrimSpace(c.Game))
}

func (c *Config) applyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.URL != nil {
		c.URL = *o.URL
	}
	if o.Slot != nil {
		c.Slot = *o.Slot
	}
	if o.Password != nil {
		c.Password = *o.Password
	}
	if o.Debug != nil {
		c.Debug = *o.Debug
	}
	return nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("config: url is required")
	}
	if strings.TrimSpace(c.Slot) == "" {
		return fmt.Errorf("config: slot is required")
	}
	switch c.Game {
	case "ds3", "sekiro":
	default:
		return fmt.Errorf("config: unknown game %q", c.Game)
	}
	return nil
}

// Path is the file the config was loaded from, if any.
func (c *Config) Path() string { return c.path }

// SetURL writes a new server URL to the config file and, once that
// succeeds, switches to it. Only the file's own values are written back;
// defaults and environment overrides stay in memory.
func (c *Config) SetURL(url string) error {
	if c.path != "" && c.file != nil {
		next := *c.file
		next.URL = url
		if err := writeYAML(c.path, &next); err != nil {
			return err
		}
		c.file = &next
	}
	c.URL = url
	return nil
}

func writeYAML(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, b)
}

func writeFileAtomic(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
