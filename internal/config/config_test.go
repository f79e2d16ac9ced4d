package config

import (
	"testing"
	"time"
)

func TestNewFromEnv(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.DatabasePath != "data/bear_kitchen.db" {
			t.Errorf("Expected default DatabasePath, got '%s'", cfg.DatabasePath)
		}
		if cfg.SyncInterval != 5*time.Minute {
			t.Errorf("Expected SyncInterval 5m, got %s", cfg.SyncInterval)
		}
		if cfg.NetworkTimeout != 60*time.Second {
			t.Errorf("Expected NetworkTimeout 60s, got %s", cfg.NetworkTimeout)
		}
		if cfg.DriveFolder != "BearKitchenData" {
			t.Errorf("Expected DriveFolder 'BearKitchenData', got '%s'", cfg.DriveFolder)
		}
		if cfg.DriveEnabled() {
			t.Error("Expected Drive to be disabled without credentials")
		}
	})

	t.Run("Overrides", func(t *testing.T) {
		t.Setenv("BEAR_KITCHEN_DATABASE_PATH", "/tmp/kitchen.db")
		t.Setenv("BEAR_KITCHEN_GEMINI_API_KEY", "gemini_key")
		t.Setenv("BEAR_KITCHEN_SYNC_INTERVAL", "30s")
		t.Setenv("BEAR_KITCHEN_DRIVE_ACCESS_TOKEN", "token")
		t.Setenv("BEAR_KITCHEN_TELEGRAM_ALLOWED_USER_IDS", "11,22")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.DatabasePath != "/tmp/kitchen.db" {
			t.Errorf("Expected DatabasePath '/tmp/kitchen.db', got '%s'", cfg.DatabasePath)
		}
		if cfg.GeminiAPIKey != "gemini_key" {
			t.Errorf("Expected GeminiAPIKey 'gemini_key', got '%s'", cfg.GeminiAPIKey)
		}
		if cfg.SyncInterval != 30*time.Second {
			t.Errorf("Expected SyncInterval 30s, got %s", cfg.SyncInterval)
		}
		if !cfg.DriveEnabled() {
			t.Error("Expected Drive to be enabled")
		}
		if len(cfg.TelegramAllowedUserIDs) != 2 || cfg.TelegramAllowedUserIDs[1] != 22 {
			t.Errorf("Expected allowed users [11 22], got %v", cfg.TelegramAllowedUserIDs)
		}
	})

	t.Run("GhostAdminKeyFallsBackToContentKey", func(t *testing.T) {
		t.Setenv("BEAR_KITCHEN_GHOST_API_URL", "http://ghost.test")
		t.Setenv("BEAR_KITCHEN_GHOST_CONTENT_API_KEY", "content_key")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.GhostAdminKey != "content_key" {
			t.Errorf("Expected GhostAdminKey 'content_key', got '%s'", cfg.GhostAdminKey)
		}
		if !cfg.GhostEnabled() {
			t.Error("Expected Ghost to be enabled")
		}
	})

	t.Run("InvalidDuration", func(t *testing.T) {
		t.Setenv("BEAR_KITCHEN_NETWORK_TIMEOUT", "soon")

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for an invalid duration, got nil")
		}
	})
}

func TestValidateBot(t *testing.T) {
	cfg := &Config{}
	err := cfg.ValidateBot()
	if err == nil {
		t.Fatal("Expected an error for missing bot token, got nil")
	}
	expectedError := "BEAR_KITCHEN_TELEGRAM_BOT_TOKEN environment variable not set"
	if err.Error() != expectedError {
		t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
	}

	cfg.TelegramBotToken = "token"
	cfg.TelegramWebhookURL = "https://bot.test/webhook"
	cfg.TelegramAllowedUserIDs = []int64{1}
	if err := cfg.ValidateBot(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}
