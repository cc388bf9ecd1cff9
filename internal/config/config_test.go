package config

import (
	"strings"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := parse()
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("Port = %q, want 3000", cfg.Port)
	}
	if cfg.IMAPHost != "imap.gmail.com" || cfg.IMAPPort != 993 {
		t.Errorf("IMAP defaults = %s:%d", cfg.IMAPHost, cfg.IMAPPort)
	}
	if cfg.IMAPIdleTimeout != 25*time.Minute {
		t.Errorf("IMAPIdleTimeout = %v", cfg.IMAPIdleTimeout)
	}
	if cfg.StoreBackend != "memory" {
		t.Errorf("StoreBackend = %q", cfg.StoreBackend)
	}
	if cfg.MasterAccountSet() || cfg.TelegramEnabled() {
		t.Error("optional integrations should be disabled by default")
	}
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("IMAP_USER", "relay@gmail.com")
	t.Setenv("IMAP_PASSWORD", "app-password")
	t.Setenv("IMAP_PORT", "143")
	t.Setenv("APP_MODE", "mailgun")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100200300")

	cfg, err := parse()
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	if !cfg.MasterAccountSet() {
		t.Error("MasterAccountSet() = false")
	}
	if cfg.IMAPPort != 143 {
		t.Errorf("IMAPPort = %d, want 143", cfg.IMAPPort)
	}
	if cfg.AppMode != "mailgun" {
		t.Errorf("AppMode = %q", cfg.AppMode)
	}
	if !cfg.TelegramEnabled() {
		t.Error("TelegramEnabled() = false")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"short encryption key", "ENCRYPTION_KEY", "too-short", "ENCRYPTION_KEY"},
		{"unknown mode", "APP_MODE", "pop3", "APP_MODE"},
		{"unknown store", "STORE_BACKEND", "memcached", "STORE_BACKEND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := parse()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("parse() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
