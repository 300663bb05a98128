package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is resolved from built-in defaults, then an optional TOML file named
// by FEED_CONFIG, then FEED_* environment variables (including a local .env).
type Config struct {
	HTTPAddr string `toml:"http_addr"`
	DataDir  string `toml:"data_dir"`
	DBPath   string `toml:"db_path"`
	WebDir   string `toml:"web_dir"`

	QueueCapacity int           `toml:"queue_capacity"`
	ReplayMax     int           `toml:"replay_max"`
	ReplayDelay   time.Duration `toml:"replay_delay"`

	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`
}

func Default() Config {
	return Config{
		HTTPAddr:      ":8080",
		DataDir:       "data",
		WebDir:        "frontend/build",
		QueueCapacity: 100,
		ReplayMax:     100,
		ReplayDelay:   100 * time.Millisecond,
		LogLevel:      "info",
	}
}

func Load() (Config, error) {
	// A missing .env is fine; existing environment variables win.
	_ = godotenv.Load()
	cfg := Default()

	if path := os.Getenv("FEED_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.HTTPAddr = getEnv("FEED_HTTP_ADDR", cfg.HTTPAddr)
	cfg.DataDir = getEnv("FEED_DATA_DIR", cfg.DataDir)
	cfg.DBPath = getEnv("FEED_DB_PATH", cfg.DBPath)
	cfg.WebDir = getEnv("FEED_WEB_DIR", cfg.WebDir)
	cfg.LogLevel = getEnv("FEED_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnv("FEED_LOG_FILE", cfg.LogFile)

	var err error
	if cfg.QueueCapacity, err = getEnvInt("FEED_QUEUE_CAPACITY", cfg.QueueCapacity); err != nil {
		return Config{}, err
	}
	if cfg.ReplayMax, err = getEnvInt("FEED_REPLAY_MAX", cfg.ReplayMax); err != nil {
		return Config{}, err
	}
	if cfg.ReplayDelay, err = getEnvDuration("FEED_REPLAY_DELAY", cfg.ReplayDelay); err != nil {
		return Config{}, err
	}

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "history.db")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
