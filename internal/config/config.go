package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read from the working directory when
// WEBCONSOLE_CONFIG is not set. A missing file is not an error.
const DefaultConfigFile = "webconsole.yaml"

type Config struct {
	Server     Server     `yaml:"server"`
	Supervisor Supervisor `yaml:"supervisor"`
	Browser    Browser    `yaml:"browser"`
	Logging    Logging    `yaml:"logging"`
	Transcript Transcript `yaml:"transcript"`
	Cache      Cache      `yaml:"cache"`
	Input      Input      `yaml:"input"`

	ConfigPath string `yaml:"-"`
}

type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Supervisor holds the drain policy applied after the program returns.
type Supervisor struct {
	PollInterval      time.Duration `yaml:"poll_interval"`
	NoActivityTimeout time.Duration `yaml:"no_activity_timeout"`
	GracePeriod       time.Duration `yaml:"grace_period"`
	MinDrain          time.Duration `yaml:"min_drain"`
	MaxDrain          time.Duration `yaml:"max_drain"`
}

type Browser struct {
	Open bool `yaml:"open"`
}

type Logging struct {
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Service string `yaml:"service"`
}

// Transcript enables the sqlite session log when Path is set.
type Transcript struct {
	Path string `yaml:"path"`
}

type Cache struct {
	RenderMaxCost int64 `yaml:"render_max_cost"`
}

// Input.MaxAttempts bounds typed re-prompting; zero keeps it unbounded.
type Input struct {
	MaxAttempts int `yaml:"max_attempts"`
}

func Defaults() Config {
	return Config{
		Server: Server{Host: "127.0.0.1", Port: 8080},
		Supervisor: Supervisor{
			PollInterval:      500 * time.Millisecond,
			NoActivityTimeout: 10 * time.Second,
			GracePeriod:       5 * time.Second,
			MinDrain:          3 * time.Second,
			MaxDrain:          30 * time.Second,
		},
		Browser: Browser{Open: true},
		Logging: Logging{Level: "info", Service: "webconsole"},
		Cache:   Cache{RenderMaxCost: 4 << 20},
	}
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// URL is what the browser is pointed at.
func (c *Config) URL() string {
	return "http://" + c.Addr()
}

// Load builds a Config from defaults < YAML < env < flags.
func Load(args []string) (*Config, error) {
	cfg := Defaults()
	cfg.ConfigPath = DefaultConfigFile
	if p := os.Getenv("WEBCONSOLE_CONFIG"); p != "" {
		cfg.ConfigPath = p
	}

	if err := cfg.loadFromFile(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.parseFlags(args); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) loadFromFile() error {
	data, err := os.ReadFile(c.ConfigPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	path := c.ConfigPath
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	c.ConfigPath = path
	return nil
}

func (c *Config) loadEnv() error {
	setters := []func() error{
		func() error { return setString(&c.Server.Host, "WEBCONSOLE_HOST") },
		func() error { return setInt(&c.Server.Port, "WEBCONSOLE_PORT") },
		func() error { return setBool(&c.Browser.Open, "WEBCONSOLE_OPEN_BROWSER") },
		func() error { return setString(&c.Logging.Level, "WEBCONSOLE_LOG_LEVEL") },
		func() error { return setString(&c.Logging.File, "WEBCONSOLE_LOG_FILE") },
		func() error { return setString(&c.Transcript.Path, "WEBCONSOLE_TRANSCRIPT") },
		func() error { return setInt(&c.Input.MaxAttempts, "WEBCONSOLE_MAX_ATTEMPTS") },
		func() error { return setDuration(&c.Supervisor.PollInterval, "WEBCONSOLE_POLL_INTERVAL") },
		func() error { return setDuration(&c.Supervisor.NoActivityTimeout, "WEBCONSOLE_NO_ACTIVITY_TIMEOUT") },
		func() error { return setDuration(&c.Supervisor.GracePeriod, "WEBCONSOLE_GRACE_PERIOD") },
		func() error { return setDuration(&c.Supervisor.MinDrain, "WEBCONSOLE_MIN_DRAIN") },
		func() error { return setDuration(&c.Supervisor.MaxDrain, "WEBCONSOLE_MAX_DRAIN") },
	}
	for _, set := range setters {
		if err := set(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) parseFlags(args []string) error {
	fs := flag.NewFlagSet("webconsole", flag.ContinueOnError)
	fs.StringVar(&c.Server.Host, "host", c.Server.Host, "listen host")
	fs.IntVar(&c.Server.Port, "port", c.Server.Port, "server port (1-65535)")
	fs.BoolVar(&c.Browser.Open, "open", c.Browser.Open, "open the default browser on start")
	fs.StringVar(&c.Logging.Level, "log-level", c.Logging.Level, "log level (debug, info, warn, error)")
	fs.StringVar(&c.Logging.File, "log-file", c.Logging.File, "also write JSON logs to this file")
	fs.StringVar(&c.Transcript.Path, "transcript", c.Transcript.Path, "record the session into this sqlite file")
	fs.IntVar(&c.Input.MaxAttempts, "max-attempts", c.Input.MaxAttempts, "bound typed input retries (0 = unbounded)")
	fs.DurationVar(&c.Supervisor.MaxDrain, "max-drain", c.Supervisor.MaxDrain, "longest wait for the browser after the program ends")
	return fs.Parse(args)
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Server.Port)
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host is required")
	}
	durations := map[string]time.Duration{
		"poll_interval":       c.Supervisor.PollInterval,
		"no_activity_timeout": c.Supervisor.NoActivityTimeout,
		"grace_period":        c.Supervisor.GracePeriod,
		"min_drain":           c.Supervisor.MinDrain,
		"max_drain":           c.Supervisor.MaxDrain,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("invalid supervisor.%s %s: must be positive", name, d)
		}
	}
	if c.Input.MaxAttempts < 0 {
		return fmt.Errorf("invalid input.max_attempts %d: must not be negative", c.Input.MaxAttempts)
	}
	if c.Cache.RenderMaxCost < 0 {
		return fmt.Errorf("invalid cache.render_max_cost %d: must not be negative", c.Cache.RenderMaxCost)
	}
	return nil
}

func setString(dst *string, key string) error {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
	return nil
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	*dst = d
	return nil
}
