package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// TelegramConfig stores Telegram specific configurations.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
}

// GeminiConfig stores Gemini specific configurations.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	// FlashModel handles latency-sensitive work: triage, edit parsing,
	// activity analysis. ProModel handles the deep vault scan.
	FlashModel string `yaml:"flash_model"`
	ProModel   string `yaml:"pro_model"`
}

// DatabaseConfig stores the local database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ObsidianConfig stores the optional vault integration settings.
type ObsidianConfig struct {
	VaultPath string `yaml:"vault_path"`
}

// CheckInConfig tunes the hourly check-in system.
type CheckInConfig struct {
	// StaleAfter is how long a sent check-in waits for a reply before the
	// cleanup sweep marks it as missed.
	StaleAfter time.Duration `yaml:"stale_after"`
	// RetryDelays are applied in order when the user is mid-conversation at
	// the top of the hour.
	RetryDelays []time.Duration `yaml:"retry_delays"`
	// DefaultWakeTime (HH:MM) bounds retroactive sleep backfill on wake.
	DefaultWakeTime string `yaml:"default_wake_time"`
}

// Config stores the application configuration.
type Config struct {
	Telegram    TelegramConfig `yaml:"telegram"`
	Gemini      GeminiConfig   `yaml:"gemini"`
	Database    DatabaseConfig `yaml:"database"`
	Obsidian    ObsidianConfig `yaml:"obsidian"`
	CheckIn     CheckInConfig  `yaml:"check_in"`
	DataDir     string         `yaml:"data_dir"`
	SessionSize int            `yaml:"session_size"`
	LogLevel    string         `yaml:"log_level"`
}

// LoadConfig loads the configuration from the given file path. The file is
// optional; environment variables (TELEGRAM_BOT_TOKEN, GEMINI_API_KEY,
// OBSIDIAN_VAULT_PATH, DB_PATH) always win over file values. A .env file in
// the working directory is honored when present.
func LoadConfig(filePath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	data, err := os.ReadFile(filePath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", filePath, err)
		}
	case os.IsNotExist(err):
		// Environment-only setup is fine.
	default:
		return nil, err
	}

	applyEnv(cfg)
	fillDefaults(cfg)

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Gemini: GeminiConfig{
			FlashModel: "gemini-3-flash-preview",
			ProModel:   "gemini-3-pro-preview",
		},
		Database: DatabaseConfig{Path: "kairos.db"},
		CheckIn: CheckInConfig{
			StaleAfter:      90 * time.Minute,
			RetryDelays:     []time.Duration{5 * time.Minute, 10 * time.Minute, 10 * time.Minute},
			DefaultWakeTime: "08:00",
		},
		DataDir:     "data",
		SessionSize: 64,
		LogLevel:    "info",
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("OBSIDIAN_VAULT_PATH"); v != "" {
		cfg.Obsidian.VaultPath = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
}

// fillDefaults repairs zero values a partial YAML file may have left behind.
func fillDefaults(cfg *Config) {
	def := defaults()
	if cfg.Gemini.FlashModel == "" {
		cfg.Gemini.FlashModel = def.Gemini.FlashModel
	}
	if cfg.Gemini.ProModel == "" {
		cfg.Gemini.ProModel = def.Gemini.ProModel
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = def.Database.Path
	}
	if cfg.CheckIn.StaleAfter <= 0 {
		cfg.CheckIn.StaleAfter = def.CheckIn.StaleAfter
	}
	if len(cfg.CheckIn.RetryDelays) == 0 {
		cfg.CheckIn.RetryDelays = def.CheckIn.RetryDelays
	}
	if cfg.CheckIn.DefaultWakeTime == "" {
		cfg.CheckIn.DefaultWakeTime = def.CheckIn.DefaultWakeTime
	}
	if cfg.DataDir == "" {
		cfg.DataDir = def.DataDir
	}
	if cfg.SessionSize <= 0 {
		cfg.SessionSize = def.SessionSize
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
}
