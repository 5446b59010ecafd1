package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SO_CACHE_TTL_SEC", "")
	t.Setenv("LLM_MAX_RETRIES", "")
	t.Setenv("ADDRESS_WINDOW_LINES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SOCacheTTL != 600*time.Second {
		t.Fatalf("ttl=%s", cfg.SOCacheTTL)
	}
	if cfg.LLMMaxRetries != 2 {
		t.Fatalf("retries=%d", cfg.LLMMaxRetries)
	}
	if cfg.AddressWindowLines != 20 {
		t.Fatalf("window=%d", cfg.AddressWindowLines)
	}
}

func TestLoadOverrides(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
		check func(Config) bool
	}{
		{"ttl zero disables", "SO_CACHE_TTL_SEC", "0", func(c Config) bool { return c.SOCacheTTL == 0 }},
		{"bad int falls back", "ADDRESS_WINDOW_LINES", "many", func(c Config) bool { return c.AddressWindowLines == 20 }},
		{"negative window falls back", "ADDRESS_WINDOW_LINES", "-3", func(c Config) bool { return c.AddressWindowLines == 20 }},
		{"bool off", "LLM_ENABLED", "off", func(c Config) bool { return !c.LLMEnabled }},
		{"bad bool falls back", "IMAP_SECURE", "maybe", func(c Config) bool { return c.IMAPSecure }},
		{"shipper", "SHIPPER_NAME", "Acme Oils", func(c Config) bool { return c.ShipperName == "Acme Oils" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			cfg, err := Load()
			if err != nil {
				t.Fatal(err)
			}
			if !tc.check(cfg) {
				t.Fatalf("%s=%q not applied: %+v", tc.key, tc.value, cfg)
			}
		})
	}
}

func TestLLMActive(t *testing.T) {
	cfg := Config{LLMEnabled: true}
	if cfg.LLMActive() {
		t.Fatal("no key should mean inactive")
	}
	cfg.LLMAPIKey = "k"
	if !cfg.LLMActive() {
		t.Fatal("expected active")
	}
	cfg.LLMEnabled = false
	if cfg.LLMActive() {
		t.Fatal("disabled should be inactive")
	}
}
