package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// StaticDir is the absolute path to the directory served at /static/.
	// Set via STATIC_DIR (relative paths are resolved against the process working directory at startup).
	StaticDir string

	// DataSource selects where the dashboard reads observations from: csv or sqlite.
	DataSource     string
	DataPath       string
	DataWatch      bool
	ReloadInterval time.Duration

	DBDriver          string
	DBDSN             string
	SQLitePath        string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBLogSQL          bool

	// MQTTBroker is empty when ingestion is disabled.
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string
}

// MQTTEnabled reports whether a broker is configured.
func (c Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

// NeedsDB reports whether the process must open the SQLite store.
func (c Config) NeedsDB() bool {
	return c.DataSource == SourceSQLite || c.MQTTEnabled()
}

// LoadDotEnv reads ENV_FILE (default .env) into the environment. Variables
// already set win, and a missing file is not an error.
func LoadDotEnv() error {
	path := env("ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func LoadFromEnv() (Config, error) {
	appEnv := env("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(env("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	staticDir := env("STATIC_DIR", "static")
	staticDir, err = filepath.Abs(staticDir)
	if err != nil {
		return Config{}, fmt.Errorf("STATIC_DIR %q: %w", staticDir, err)
	}

	dataSource := strings.ToLower(env("DATA_SOURCE", SourceCSV))
	switch dataSource {
	case SourceCSV, SourceSQLite:
	default:
		return Config{}, fmt.Errorf("invalid DATA_SOURCE %q (allowed: csv, sqlite)", dataSource)
	}

	cfg := Config{
		AppEnv:       appEnv,
		LogLevel:     level,
		HTTPAddr:     env("HTTP_ADDR", ":8080"),
		StaticDir:    staticDir,
		DataSource:   dataSource,
		DataPath:     env("DATA_PATH", "data/combined_data.csv"),
		DBDriver:     env("DB_DRIVER", "sqlite3"),
		DBDSN:        env("DB_DSN", ""),
		SQLitePath:   env("SQLITE_PATH", "data/airquality.db"),
		MQTTBroker:   env("MQTT_BROKER", ""),
		MQTTClientID: env("MQTT_CLIENT_ID", "airquality-dashboard"),
		MQTTTopic:    env("MQTT_TOPIC", "airquality/observations"),
	}

	if cfg.DataWatch, err = envBool("DATA_WATCH", true); err != nil {
		return Config{}, err
	}
	if cfg.ReloadInterval, err = envDuration("RELOAD_INTERVAL", "1m"); err != nil {
		return Config{}, err
	}
	if cfg.ReloadInterval <= 0 {
		return Config{}, fmt.Errorf("invalid RELOAD_INTERVAL %q: must be positive", os.Getenv("RELOAD_INTERVAL"))
	}
	if cfg.DBMaxOpenConns, err = envInt("DB_MAX_OPEN_CONNS", 1); err != nil {
		return Config{}, err
	}
	if cfg.DBMaxIdleConns, err = envInt("DB_MAX_IDLE_CONNS", 1); err != nil {
		return Config{}, err
	}
	if cfg.DBConnMaxLifetime, err = envDuration("DB_CONN_MAX_LIFETIME", "0s"); err != nil {
		return Config{}, err
	}
	if cfg.DBLogSQL, err = envBool("DB_LOG_SQL", false); err != nil {
		return Config{}, err
	}
	if cfg.MQTTPort, err = envInt("MQTT_PORT", 1883); err != nil {
		return Config{}, err
	}
	if cfg.MQTTPort <= 0 || cfg.MQTTPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d (allowed: 1-65535)", cfg.MQTTPort)
	}

	return cfg, nil
}

// env returns the trimmed value of key, or def when it is unset or blank.
func env(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) (int, error) {
	s := env(key, strconv.Itoa(def))
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	s := env(key, strconv.FormatBool(def))
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func envDuration(key, def string) (time.Duration, error) {
	s := env(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
