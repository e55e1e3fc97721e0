package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultGlamourStyle = "dark"
	DefaultModel        = "gemini-1.5-flash"
	DefaultBaseURL      = "https://generativelanguage.googleapis.com/v1beta/openai/"

	appName = "gemini-chat"
)

type AppConfig struct {
	LLM      LLMConfig     `mapstructure:"llm"`
	Storage  StorageConfig `mapstructure:"storage"`
	Export   ExportConfig  `mapstructure:"export"`
	UI       UIConfig      `mapstructure:"ui"`
	LogLevel string        `mapstructure:"log_level"`
	LogFile  string        `mapstructure:"log_file"`
}

type LLMConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type ExportConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"`
}

type UIConfig struct {
	Style string `mapstructure:"style"`
}

var flagKeys = map[string]string{
	"api-key":       "llm.api_key",
	"model":         "llm.model",
	"base-url":      "llm.base_url",
	"db-path":       "storage.db_path",
	"export-dir":    "export.dir",
	"export-format": "export.format",
	"style":         "ui.style",
	"log-level":     "log_level",
	"log-file":      "log_file",
}

// Parse resolves configuration from flags, environment, config.yaml and
// defaults, in that order of precedence.
func Parse(args []string) (AppConfig, error) {
	var cfg AppConfig

	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to config.yaml")
	fs.String("api-key", "", "Gemini API key")
	fs.String("model", "", "model name")
	fs.String("base-url", "", "OpenAI-compatible endpoint")
	fs.String("db-path", "", "path to SQLite store")
	fs.String("export-dir", "", "directory for exported conversations")
	fs.String("export-format", "", "export format: text or html")
	fs.String("style", "", "glamour style: dark or light")
	fs.String("log-level", "", "debug, info, warn or error")
	fs.String("log-file", "", "log file path")
	if err := fs.Parse(args); err != nil {
		return cfg, fmt.Errorf("parse flags: %w", err)
	}

	v := viper.New()
	v.SetDefault("llm.base_url", DefaultBaseURL)
	v.SetDefault("llm.api_key", "")
	// Empty so a model saved from an earlier run can apply; DefaultModel is
	// the last fallback once saved settings are merged.
	v.SetDefault("llm.model", "")
	v.SetDefault("storage.db_path", "")
	v.SetDefault("export.dir", "")
	v.SetDefault("export.format", "text")
	v.SetDefault("ui.style", DefaultGlamourStyle)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")

	v.SetEnvPrefix("GEMINI_CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("llm.api_key", "GEMINI_CHAT_LLM_API_KEY", "GEMINI_API_KEY"); err != nil {
		return cfg, fmt.Errorf("bind api key env: %w", err)
	}

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return cfg, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	if err := readConfigFile(v, *configPath); err != nil {
		return cfg, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	cfg.Export.Format = strings.ToLower(strings.TrimSpace(cfg.Export.Format))
	if cfg.Export.Format != "text" && cfg.Export.Format != "html" {
		return cfg, fmt.Errorf("unsupported export format %q", cfg.Export.Format)
	}

	if cfg.Storage.DBPath == "" || cfg.LogFile == "" {
		dataDir, err := DataDir()
		if err != nil {
			return cfg, err
		}
		if cfg.Storage.DBPath == "" {
			cfg.Storage.DBPath = filepath.Join(dataDir, "history.sqlite")
		}
		if cfg.LogFile == "" {
			cfg.LogFile = filepath.Join(dataDir, appName+".log")
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
		return cfg, fmt.Errorf("create db dir: %w", err)
	}

	return cfg, nil
}

func readConfigFile(v *viper.Viper, explicit string) error {
	if explicit == "" {
		explicit = os.Getenv("CONFIG_PATH")
	}
	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", explicit, err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, appName))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func DataDir() (string, error) {
	if fromEnv := os.Getenv("GEMINI_CHAT_HOME"); fromEnv != "" {
		return filepath.Clean(fromEnv), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", appName), nil
}
