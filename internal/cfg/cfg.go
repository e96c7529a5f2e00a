// Package cfg loads server configuration from a YAML file or from
// environment variables, with env values taking precedence. A .env file
// in the working directory is honored when present.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Port         int
	ModelsDir    string
	DataPath     string
	DatasetCSV   string
	StaticDir    string
	TemplatesDir string
	LogLevel     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type ConfigFile struct {
	Server struct {
		Port         int    `yaml:"port"`
		StaticDir    string `yaml:"staticDir"`
		TemplatesDir string `yaml:"templatesDir"`
		ReadTimeout  string `yaml:"readTimeout"`
		WriteTimeout string `yaml:"writeTimeout"`
	} `yaml:"server"`

	Models struct {
		Dir string `yaml:"dir"`
	} `yaml:"models"`

	Dataset struct {
		CSV      string `yaml:"csv"`
		DataPath string `yaml:"dataPath"`
	} `yaml:"dataset"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

func Load() (Settings, error) {
	// Best-effort: a missing .env is the normal case.
	_ = godotenv.Load()

	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	settings := Settings{
		Port:         getIntFromEnvOrConfig("PORT", config.Server.Port, 8000),
		ModelsDir:    getEnvOrDefault("MODELS_DIR", orDefault(config.Models.Dir, "models")),
		DataPath:     getEnvOrDefault("DATA_PATH", config.Dataset.DataPath),
		DatasetCSV:   getEnvOrDefault("DATASET_CSV", config.Dataset.CSV),
		StaticDir:    getEnvOrDefault("STATIC_DIR", orDefault(config.Server.StaticDir, "static")),
		TemplatesDir: getEnvOrDefault("TEMPLATES_DIR", orDefault(config.Server.TemplatesDir, "templates")),
		LogLevel:     getEnvOrDefault("LOG_LEVEL", orDefault(config.Logging.Level, "info")),
		ReadTimeout:  getDurationFromEnvOrConfig("READ_TIMEOUT", config.Server.ReadTimeout, 10*time.Second),
		WriteTimeout: getDurationFromEnvOrConfig("WRITE_TIMEOUT", config.Server.WriteTimeout, 30*time.Second),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		Port:         getIntOrDefault("PORT", 8000),
		ModelsDir:    getEnvOrDefault("MODELS_DIR", "models"),
		DataPath:     os.Getenv("DATA_PATH"), // optional
		DatasetCSV:   os.Getenv("DATASET_CSV"),
		StaticDir:    getEnvOrDefault("STATIC_DIR", "static"),
		TemplatesDir: getEnvOrDefault("TEMPLATES_DIR", "templates"),
		LogLevel:     getEnvOrDefault("LOG_LEVEL", "info"),
		ReadTimeout:  getDurationOrDefault("READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getDurationOrDefault("WRITE_TIMEOUT", 30*time.Second),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationFromEnvOrConfig(key, configValue string, defaultValue time.Duration) time.Duration {
	if env := os.Getenv(key); env != "" {
		if d, err := time.ParseDuration(env); err == nil {
			return d
		}
	}
	if d, err := time.ParseDuration(configValue); err == nil {
		return d
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func validateSettings(settings *Settings) error {
	if settings.Port < 1 || settings.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", settings.Port)
	}
	if settings.ModelsDir == "" {
		return fmt.Errorf("models directory cannot be empty")
	}
	if settings.ReadTimeout < time.Second || settings.ReadTimeout > time.Minute {
		return fmt.Errorf("read timeout must be between 1s and 1m, got %v", settings.ReadTimeout)
	}
	if settings.WriteTimeout < time.Second || settings.WriteTimeout > 5*time.Minute {
		return fmt.Errorf("write timeout must be between 1s and 5m, got %v", settings.WriteTimeout)
	}
	switch settings.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", settings.LogLevel)
	}
	return nil
}
