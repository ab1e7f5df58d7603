// Package config загружает конфигурацию сервиса поиска постов.
package config

import (
	"fmt"
	"log/slog"
	"time"
)

// Драйверы хранилища модели чтения.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Форматы логов.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Значения по умолчанию.
const (
	DefaultFile            = "postquery.yaml"
	DefaultAddr            = ":8080"
	DefaultRequestTimeout  = 5 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultDriver          = DriverMemory
	DefaultLogLevel        = "info"
	DefaultLogFormat       = FormatJSON
	DefaultTelemetryPeriod = time.Minute
)

// Config - полная конфигурация процесса.
type Config struct {
	HTTP      HTTPConfig      `koanf:"http"`
	Store     StoreConfig     `koanf:"store"`
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`

	// File - путь к прочитанному файлу конфигурации, пусто если файла не было.
	File string `koanf:"-"`
}

// HTTPConfig - параметры HTTP-сервера.
type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StoreConfig - параметры хранилища модели чтения.
type StoreConfig struct {
	Driver   string `koanf:"driver"`
	DSN      string `koanf:"dsn"`
	Fixtures string `koanf:"fixtures"`
	Migrate  bool   `koanf:"migrate"`
}

// LogConfig - параметры логирования.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig включает метрики и трассировку шины запросов.
type TelemetryConfig struct {
	Enabled bool `koanf:"enabled"`
	// Interval - период выгрузки метрик.
	Interval time.Duration `koanf:"interval"`
	// Output - файл для выгрузки, пусто означает stderr.
	Output string `koanf:"output"`
}

// Validate проверяет согласованность конфигурации.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr не может быть пустым")
	}
	if c.HTTP.RequestTimeout <= 0 {
		return fmt.Errorf("http.request_timeout должен быть положительным: %s", c.HTTP.RequestTimeout)
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return fmt.Errorf("http.shutdown_timeout должен быть положительным: %s", c.HTTP.ShutdownTimeout)
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn обязателен для драйвера %s", c.Store.Driver)
		}
	default:
		return fmt.Errorf("неизвестный драйвер хранилища: %q", c.Store.Driver)
	}

	if c.Telemetry.Enabled && c.Telemetry.Interval <= 0 {
		return fmt.Errorf("telemetry.interval должен быть положительным: %s", c.Telemetry.Interval)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != FormatJSON && c.Log.Format != FormatText {
		return fmt.Errorf("неизвестный формат логов: %q", c.Log.Format)
	}
	return nil
}
