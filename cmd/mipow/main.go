package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Heckie75/mipow-bulbs/internal/alias"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

type Config struct {
	Timeout   string `yaml:"timeout"`
	AliasFile string `yaml:"alias_file"`
	Scan      struct {
		Duration string `yaml:"duration"`
	} `yaml:"scan"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	MQTT struct {
		Broker       string `yaml:"broker"`
		Username     string `yaml:"username"`
		Password     string `yaml:"password"`
		TopicPrefix  string `yaml:"topic_prefix"`
		PollInterval string `yaml:"poll_interval"`
	} `yaml:"mqtt"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func (c *Config) validate() error {
	for _, d := range []struct{ name, value string }{
		{"timeout", c.Timeout},
		{"scan.duration", c.Scan.Duration},
		{"mqtt.poll_interval", c.MQTT.PollInterval},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	return nil
}

func (c *Config) connectTimeout() time.Duration {
	if d, err := time.ParseDuration(c.Timeout); err == nil && d > 0 {
		return d
	}
	return 10 * time.Second
}

func (c *Config) scanDuration() time.Duration {
	if d, err := time.ParseDuration(c.Scan.Duration); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

func main() {
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	p, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := loadConfig(configPath())
	if err != nil {
		bootLogger.Error("load config", "err", err)
		os.Exit(1)
	}
	if err := cfg.validate(); err != nil {
		bootLogger.Error("invalid config", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg, p)
	slog.SetDefault(logger)
	logger.Debug("mipow starting", "version", version)

	var aliases *alias.Alias
	if cfg.AliasFile != "" {
		aliases = alias.LoadFile(cfg.AliasFile)
	} else {
		aliases = alias.Load()
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		aliases: aliases,
		out:     os.Stdout,
		errOut:  os.Stderr,
	}
	if err := a.run(p); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

// configPath returns the config file location: $MIPOW_CONFIG when set,
// otherwise ~/.mipow.yaml.
func configPath() string {
	if path := os.Getenv("MIPOW_CONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mipow.yaml"
	}
	return filepath.Join(home, ".mipow.yaml")
}

// loadConfig reads the optional YAML config. A missing file yields the
// defaults; a malformed one is an error.
func loadConfig(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if cfg.Store.Path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Store.Path = filepath.Join(home, ".mipow.db")
		} else {
			cfg.Store.Path = ".mipow.db"
		}
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "mipow"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	return &cfg, nil
}

// newLogger builds the process logger. --log and --verbose on the command
// line override the configured level; reports go to stdout, so the logger
// always writes to stderr.
func newLogger(cfg *Config, p *parsed) *slog.Logger {
	levelName := cfg.Log.Level
	if p.LogLevel != "" {
		levelName = p.LogLevel
	}
	if p.Verbose {
		levelName = "debug"
	}

	var level slog.Level
	switch strings.ToLower(levelName) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
