package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_URL_ANON_KEY", "anon")
	t.Setenv("MONGODB_URI", "mongodb+srv://user:<password>@cluster")
	t.Setenv("MONGODB_PASSWORD", "secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "8080" || cfg.StoreBackend != BackendMongo || cfg.MongoDBDatabase != "campusplay" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.StoreTimeout != 10*time.Second {
		t.Errorf("StoreTimeout = %v, want 10s", cfg.StoreTimeout)
	}
	if cfg.ChatRatePerMinute != 30 {
		t.Errorf("ChatRatePerMinute = %d, want 30", cfg.ChatRatePerMinute)
	}
	if cfg.RedisEnabled() || cfg.CloudinaryEnabled() {
		t.Error("optional backends should be off by default")
	}
}

func TestLoadConfigRequiresSupabase(t *testing.T) {
	setRequired(t)
	t.Setenv("SUPABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error without SUPABASE_URL")
	}
}

func TestLoadConfigMemoryBackendSkipsMongo(t *testing.T) {
	setRequired(t)
	t.Setenv("MONGODB_URI", "")
	t.Setenv("MONGODB_PASSWORD", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("mongo backend should require MONGODB_URI")
	}

	t.Setenv("STORE_BACKEND", BackendMemory)
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.UseMemoryStore() {
		t.Error("expected memory store")
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"STORE_TIMEOUT":        "soon",
		"CHAT_RATE_PER_MINUTE": "0",
		"REDIS_DB":             "one",
		"STORE_BACKEND":        "sqlite",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, value)
			if _, err := LoadConfig(); err == nil {
				t.Errorf("expected error for %s=%q", key, value)
			}
		})
	}
}
