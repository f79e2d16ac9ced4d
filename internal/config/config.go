package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every environment variable name.
const Prefix = "BEAR_KITCHEN"

// Config holds the configuration for the application. It is loaded once at
// startup and passed to every component that needs it.
type Config struct {
	// Storage
	DatabasePath string `envconfig:"DATABASE_PATH" default:"data/bear_kitchen.db"`
	BackupDir    string `envconfig:"BACKUP_DIR" default:"data/backups"`
	BackupKeep   int    `envconfig:"BACKUP_KEEP" default:"10"`
	DropDir      string `envconfig:"DROP_DIR"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`
	LogFile   string `envconfig:"LOG_FILE"`

	// AI collaborators
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`
	TextAIURL    string `envconfig:"TEXT_AI_URL" default:"https://text.pollinations.ai/openai"`
	TextAIKey    string `envconfig:"TEXT_AI_KEY"`
	TextAIModel  string `envconfig:"TEXT_AI_MODEL" default:"openai"`

	// OCR
	TesseractPath string `envconfig:"TESSERACT_PATH" default:"tesseract"`
	OCRLanguage   string `envconfig:"OCR_LANGUAGE" default:"eng"`

	// Google Drive
	DriveAccessToken     string `envconfig:"DRIVE_ACCESS_TOKEN"`
	DriveCredentialsFile string `envconfig:"DRIVE_CREDENTIALS_FILE"`
	DriveFolder          string `envconfig:"DRIVE_FOLDER" default:"BearKitchenData"`
	DriveFileName        string `envconfig:"DRIVE_FILE_NAME" default:"bear_kitchen_recipes.json"`

	// Sync and collaborator timeouts. A zero SyncInterval disables polling.
	SyncInterval   time.Duration `envconfig:"SYNC_INTERVAL" default:"5m"`
	NetworkTimeout time.Duration `envconfig:"NETWORK_TIMEOUT" default:"60s"`

	// Ghost
	GhostURL        string `envconfig:"GHOST_API_URL"`
	GhostContentKey string `envconfig:"GHOST_CONTENT_API_KEY"`
	GhostAdminKey   string `envconfig:"GHOST_ADMIN_API_KEY"`

	// Telegram Config
	TelegramBotToken       string  `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramWebhookURL     string  `envconfig:"TELEGRAM_WEBHOOK_URL"`
	TelegramAllowedUserIDs []int64 `envconfig:"TELEGRAM_ALLOWED_USER_IDS"`
	AdminTelegramID        int64   `envconfig:"ADMIN_TELEGRAM_ID"`

	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.GhostAdminKey == "" {
		// Fallback to content key if only one is provided
		cfg.GhostAdminKey = cfg.GhostContentKey
	}
	if cfg.NetworkTimeout < 0 {
		return nil, fmt.Errorf("%s_NETWORK_TIMEOUT must not be negative", Prefix)
	}
	return &cfg, nil
}

// DriveEnabled reports whether cloud sync has credentials.
func (c *Config) DriveEnabled() bool {
	return c.DriveAccessToken != "" || c.DriveCredentialsFile != ""
}

// GhostEnabled reports whether a Ghost blog is configured.
func (c *Config) GhostEnabled() bool {
	return c.GhostURL != "" && c.GhostContentKey != ""
}

// ValidateBot checks the settings the Telegram bot cannot run without.
func (c *Config) ValidateBot() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("%s_TELEGRAM_BOT_TOKEN environment variable not set", Prefix)
	}
	if c.TelegramWebhookURL == "" {
		return fmt.Errorf("%s_TELEGRAM_WEBHOOK_URL environment variable not set", Prefix)
	}
	if len(c.TelegramAllowedUserIDs) == 0 {
		return fmt.Errorf("%s_TELEGRAM_ALLOWED_USER_IDS environment variable not set", Prefix)
	}
	return nil
}
