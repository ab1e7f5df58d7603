package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix - префикс переменных окружения: POSTQUERY_HTTP_REQUEST_TIMEOUT -> http.request_timeout.
const EnvPrefix = "POSTQUERY_"

// RegisterFlags добавляет флаги конфигурации. Имена флагов повторяют ключи:
// --http-request-timeout -> http.request_timeout.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("http-addr", DefaultAddr, "адрес HTTP-сервера")
	flags.Duration("http-request-timeout", DefaultRequestTimeout, "таймаут обработки одного запроса")
	flags.Duration("http-shutdown-timeout", DefaultShutdownTimeout, "таймаут корректной остановки")
	flags.String("store-driver", DefaultDriver, "хранилище модели чтения: memory, postgres, sqlite")
	flags.String("store-dsn", "", "строка подключения или путь к файлу базы")
	flags.String("store-fixtures", "", "YAML-файл с постами для начальной загрузки")
	flags.Bool("store-migrate", false, "создать схему хранилища при старте")
	flags.String("log-level", DefaultLogLevel, "уровень логов: debug, info, warn, error")
	flags.String("log-format", DefaultLogFormat, "формат логов: json, text")
	flags.Bool("telemetry-enabled", false, "включить метрики и трассировку")
	flags.Duration("telemetry-interval", DefaultTelemetryPeriod, "период выгрузки метрик")
	flags.String("telemetry-output", "", "файл для выгрузки телеметрии, по умолчанию stderr")
}

// Load загружает конфигурацию.
// Приоритет (от высшего к низшему): флаги > переменные окружения > файл > значения по умолчанию.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Значения по умолчанию
	if err := k.Load(confmap.Provider(map[string]any{
		"http.addr":             DefaultAddr,
		"http.request_timeout":  DefaultRequestTimeout,
		"http.shutdown_timeout": DefaultShutdownTimeout,
		"store.driver":          DefaultDriver,
		"store.migrate":         false,
		"log.level":             DefaultLogLevel,
		"log.format":            DefaultLogFormat,
		"telemetry.enabled":     false,
		"telemetry.interval":    DefaultTelemetryPeriod,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("не удалось загрузить значения по умолчанию: %w", err)
	}

	// 2. Файл конфигурации
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", used, err)
		}
	}

	// 3. Переменные окружения
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("не удалось загрузить переменные окружения: %w", err)
	}

	// 4. Флаги, только явно заданные
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("не удалось загрузить флаги: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось разобрать конфигурацию: %w", err)
	}
	cfg.File = used

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("некорректная конфигурация: %w", err)
	}
	return &cfg, nil
}

// findConfigFile возвращает явно заданный файл или postquery.yaml из текущего каталога.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return DefaultFile
	}
	return ""
}

// envKey: HTTP_REQUEST_TIMEOUT -> http.request_timeout.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

// flagKey: http-request-timeout -> http.request_timeout.
func flagKey(name string) string {
	key := strings.Replace(name, "-", ".", 1)
	return strings.ReplaceAll(key, "-", "_")
}
