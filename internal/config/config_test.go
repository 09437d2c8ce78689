package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Dropi.OrdersPageSize != 100 || cfg.Dropi.WalletPageSize != 500 {
		t.Errorf("page sizes = %d/%d, want 100/500", cfg.Dropi.OrdersPageSize, cfg.Dropi.WalletPageSize)
	}
	if cfg.Sync.FullOrdersMax != 10000 || cfg.Sync.IncrementalMax != 500 {
		t.Errorf("order caps = %d/%d, want 10000/500", cfg.Sync.FullOrdersMax, cfg.Sync.IncrementalMax)
	}
	if cfg.Sync.FullWindowDays != 730 || cfg.Sync.IncrementalDays != 60 {
		t.Errorf("windows = %d/%d days, want 730/60", cfg.Sync.FullWindowDays, cfg.Sync.IncrementalDays)
	}
	if _, ok := cfg.Dropi.BaseURLs["co"]; !ok {
		t.Error("default base urls must include co")
	}
	if cfg.Lucidbot.AdFieldID == "" {
		t.Error("ad field id default missing")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("LUCID_SERVER_PORT", "9999")
	t.Setenv("LUCID_SYNC_INTERVAL_MINUTES", "30")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9999" {
		t.Errorf("port = %q, want env override 9999", cfg.Server.Port)
	}
	if cfg.Sync.IntervalMinutes != 30 {
		t.Errorf("interval = %d, want 30", cfg.Sync.IntervalMinutes)
	}
}

func TestLoad_MissingFileFails(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected an error for a missing config file")
	}
}
