package tuplestore

import (
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jobala/tuplestore/index"
)

const DefaultRoot = "DB_STORAGE"

func DefaultConfig() Config {
	return Config{
		Root:           DefaultRoot,
		BucketCapacity: index.DefaultCapacity,
		DiskWorkers:    4,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// LoadConfig reads a yaml config file. Fields missing from the file keep their
// default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.WithStack(err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "error parsing config %s", path)
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Root == "" {
		return errors.New("config: root must not be empty")
	}
	if c.BucketCapacity < 1 {
		return errors.Errorf("config: bucket_capacity must be at least 1, got %d", c.BucketCapacity)
	}
	if c.DiskWorkers < 1 {
		return errors.Errorf("config: disk_workers must be at least 1, got %d", c.DiskWorkers)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return errors.Errorf("config: unknown log_format %q", c.LogFormat)
	}
	return nil
}

// logger returns the injected logger or builds one from the level and format.
func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, errors.Errorf("config: unknown log_level %q", s)
}

type Config struct {
	Root           string `yaml:"root"`
	BucketCapacity int    `yaml:"bucket_capacity"`
	DiskWorkers    int    `yaml:"disk_workers"`
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`

	Logger *slog.Logger `yaml:"-"`
}
