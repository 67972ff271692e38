package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "trackbot.sqlite3" {
		t.Errorf("unexpected default db path: %q", cfg.DBPath)
	}
	if cfg.StorehouseID != 1 {
		t.Errorf("unexpected default storehouse id: %d", cfg.StorehouseID)
	}
	if cfg.Messenger.Burst < 1 {
		t.Errorf("default burst must be usable, got %d", cfg.Messenger.Burst)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
db_path: /var/lib/trackbot/db.sqlite3
addr: ":9090"
storehouse_id: 7
messenger:
  send_url: http://bridge:8081/send
  rate_per_second: 10
  burst: 3
decoder:
  url: http://decoder:8082/decode
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/var/lib/trackbot/db.sqlite3" {
		t.Errorf("db_path not applied: %q", cfg.DBPath)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("addr not applied: %q", cfg.Addr)
	}
	if cfg.StorehouseID != 7 {
		t.Errorf("storehouse_id not applied: %d", cfg.StorehouseID)
	}
	if cfg.Messenger.SendURL != "http://bridge:8081/send" {
		t.Errorf("messenger.send_url not applied: %q", cfg.Messenger.SendURL)
	}
	if cfg.Decoder.URL != "http://decoder:8082/decode" {
		t.Errorf("decoder.url not applied: %q", cfg.Decoder.URL)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `addr: ":3000"`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":3000" {
		t.Errorf("addr not applied: %q", cfg.Addr)
	}
	if cfg.DBPath != "trackbot.sqlite3" {
		t.Errorf("default db path lost: %q", cfg.DBPath)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero storehouse", "storehouse_id: 0"},
		{"empty addr", `addr: ""`},
		{"zero rate", "messenger:\n  rate_per_second: 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
