package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every variable LoadFromEnv reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "LOG_LEVEL", "HTTP_ADDR", "STATIC_DIR",
		"DATA_SOURCE", "DATA_PATH", "DATA_WATCH", "RELOAD_INTERVAL",
		"DB_DRIVER", "DB_DSN", "SQLITE_PATH", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS",
		"DB_CONN_MAX_LIFETIME", "DB_LOG_SQL",
		"MQTT_BROKER", "MQTT_PORT", "MQTT_CLIENT_ID", "MQTT_TOPIC",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	if got.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", got.HTTPAddr, ":8080")
	}
	if !filepath.IsAbs(got.StaticDir) || filepath.Base(got.StaticDir) != "static" {
		t.Errorf("StaticDir = %q, want absolute .../static", got.StaticDir)
	}
	if got.DataSource != SourceCSV || got.DataPath != "data/combined_data.csv" || !got.DataWatch {
		t.Errorf("data defaults = %q %q %v", got.DataSource, got.DataPath, got.DataWatch)
	}
	if got.ReloadInterval != time.Minute {
		t.Errorf("ReloadInterval = %v, want 1m", got.ReloadInterval)
	}
	if got.DBDriver != "sqlite3" || got.SQLitePath != "data/airquality.db" || got.DBMaxOpenConns != 1 {
		t.Errorf("db defaults = %q %q %d", got.DBDriver, got.SQLitePath, got.DBMaxOpenConns)
	}
	if got.MQTTEnabled() || got.MQTTPort != 1883 || got.MQTTTopic != "airquality/observations" {
		t.Errorf("mqtt defaults = %q %d %q", got.MQTTBroker, got.MQTTPort, got.MQTTTopic)
	}
	if got.NeedsDB() {
		t.Error("NeedsDB() = true for csv source without mqtt")
	}
}

func TestLoadFromEnv_AppEnv_Valid(t *testing.T) {
	tests := []struct {
		name   string
		appEnv string
		want   string
	}{
		{name: "dev", appEnv: "dev", want: "dev"},
		{name: "prod", appEnv: "prod", want: "prod"},
		{name: "dev with whitespace", appEnv: "  dev  ", want: "dev"},
		{name: "prod with whitespace", appEnv: "\nprod\t", want: "prod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("APP_ENV", tt.appEnv)

			got, err := LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v, want nil", err)
			}
			if got.AppEnv != tt.want {
				t.Errorf("AppEnv = %q, want %q", got.AppEnv, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "app env", key: "APP_ENV", value: "staging"},
		{name: "app env is case sensitive", key: "APP_ENV", value: "DEV"},
		{name: "log level", key: "LOG_LEVEL", value: "loud"},
		{name: "data source", key: "DATA_SOURCE", value: "postgres"},
		{name: "data watch", key: "DATA_WATCH", value: "sometimes"},
		{name: "reload interval", key: "RELOAD_INTERVAL", value: "soon"},
		{name: "zero reload interval", key: "RELOAD_INTERVAL", value: "0s"},
		{name: "max open conns", key: "DB_MAX_OPEN_CONNS", value: "many"},
		{name: "conn lifetime", key: "DB_CONN_MAX_LIFETIME", value: "forever"},
		{name: "log sql", key: "DB_LOG_SQL", value: "yes please"},
		{name: "mqtt port", key: "MQTT_PORT", value: "70000"},
		{name: "mqtt port not a number", key: "MQTT_PORT", value: "tcp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := LoadFromEnv(); err == nil {
				t.Fatalf("LoadFromEnv() with %s=%q error = nil, want non-nil", tt.key, tt.value)
			}
		})
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", "  :9090  ")
	t.Setenv("DATA_SOURCE", "SQLite")
	t.Setenv("DATA_WATCH", "false")
	t.Setenv("RELOAD_INTERVAL", "30s")
	t.Setenv("DB_LOG_SQL", "1")
	t.Setenv("MQTT_BROKER", "broker.local")
	t.Setenv("MQTT_PORT", "8883")

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}
	if got.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", got.HTTPAddr, ":9090")
	}
	if got.DataSource != SourceSQLite || got.DataWatch {
		t.Errorf("DataSource = %q DataWatch = %v", got.DataSource, got.DataWatch)
	}
	if got.ReloadInterval != 30*time.Second || !got.DBLogSQL {
		t.Errorf("ReloadInterval = %v DBLogSQL = %v", got.ReloadInterval, got.DBLogSQL)
	}
	if !got.MQTTEnabled() || got.MQTTPort != 8883 || !got.NeedsDB() {
		t.Errorf("mqtt = %q:%d NeedsDB = %v", got.MQTTBroker, got.MQTTPort, got.NeedsDB())
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("AQ_TEST_FROM_FILE=file\nAQ_TEST_PRESET=file\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ENV_FILE", path)
	t.Setenv("AQ_TEST_PRESET", "process")
	// godotenv sets variables directly; make sure the test cleans up
	t.Setenv("AQ_TEST_FROM_FILE", "")
	os.Unsetenv("AQ_TEST_FROM_FILE")

	if err := LoadDotEnv(); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("AQ_TEST_FROM_FILE"); got != "file" {
		t.Errorf("AQ_TEST_FROM_FILE = %q, want %q", got, "file")
	}
	if got := os.Getenv("AQ_TEST_PRESET"); got != "process" {
		t.Errorf("AQ_TEST_PRESET = %q, want existing value to win", got)
	}

	t.Run("missing file is ignored", func(t *testing.T) {
		t.Setenv("ENV_FILE", filepath.Join(dir, "absent.env"))
		if err := LoadDotEnv(); err != nil {
			t.Errorf("LoadDotEnv() error = %v, want nil", err)
		}
	})
}

func TestParseLogLevel_Valid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want slog.Level
	}{
		{name: "debug", in: "debug", want: slog.LevelDebug},
		{name: "info", in: "info", want: slog.LevelInfo},
		{name: "warn", in: "warn", want: slog.LevelWarn},
		{name: "warning", in: "warning", want: slog.LevelWarn},
		{name: "error", in: "error", want: slog.LevelError},
		{name: "case insensitive", in: "DeBuG", want: slog.LevelDebug},
		{name: "trims whitespace", in: "  warn \n", want: slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLogLevel(tt.in)
			if err != nil {
				t.Fatalf("parseLogLevel(%q) error = %v, want nil", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLogLevel_Invalid(t *testing.T) {
	for _, in := range []string{"", "nope", "warns", "1"} {
		got, err := parseLogLevel(in)
		if err == nil {
			t.Fatalf("parseLogLevel(%q) error = nil, want non-nil", in)
		}
		// invalid input falls back to info
		if got != slog.LevelInfo {
			t.Errorf("parseLogLevel(%q) = %v, want %v on error", in, got, slog.LevelInfo)
		}
	}
}
