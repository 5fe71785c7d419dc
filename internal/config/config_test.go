package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_Drivers(t *testing.T) {
	tests := []struct {
		name    string
		db      DatabaseConfig
		wantErr bool
	}{
		{"redis with addrs", DatabaseConfig{Driver: DriverRedis, Addrs: []string{"r:6379"}}, false},
		{"redis without addrs", DatabaseConfig{Driver: DriverRedis}, true},
		{"badger with path", DatabaseConfig{Driver: DriverBadger, Badger: BadgerConfig{Path: "/tmp/x"}}, false},
		{"badger in memory", DatabaseConfig{Driver: DriverBadger, Badger: BadgerConfig{InMemory: true}}, false},
		{"badger without path", DatabaseConfig{Driver: DriverBadger}, true},
		{"unknown driver", DatabaseConfig{Driver: "valkey", Addrs: []string{"v:6379"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database = tt.db
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Weights(t *testing.T) {
	cfg := validConfig()
	cfg.Search.Weights = map[string]WeightsConfig{"hybrid": {Keyword: 0.7, Semantic: 0.3}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Search.Weights = map[string]WeightsConfig{"fuzzy": {Keyword: 1}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown mode")
	}

	cfg.Search.Weights = map[string]WeightsConfig{"keyword": {Keyword: 1.5}}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for weight out of range")
	}
	if !strings.Contains(err.Error(), "search.weights.keyword") {
		t.Errorf("unexpected error message: %q", err.Error())
	}
}

func TestValidate_AccessStore(t *testing.T) {
	cfg := validConfig()
	cfg.Access.Store = "disk"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown access store")
	}

	expected := `access.store must be "memory" or "database", got "disk"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_EmbeddingModelRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.APIKey = "sk-test"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing model")
	}
	cfg.Embedding.Model = "text-embedding-3-small"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.Driver != DriverRedis {
		t.Errorf("expected Driver=redis, got %q", cfg.Database.Driver)
	}
	if cfg.Auth.UserHeader != "" {
		t.Errorf("expected no trusted user header by default, got %q", cfg.Auth.UserHeader)
	}
	if cfg.Access.Quota != 3 || cfg.Access.WindowHours != 24 || cfg.Access.AnonymousLimit != 5 {
		t.Errorf("unexpected access defaults: %+v", cfg.Access)
	}
	if cfg.Access.Store != AccessStoreMemory {
		t.Errorf("expected Store=memory, got %q", cfg.Access.Store)
	}
	if cfg.Search.MaxExpansionTerms != 5 {
		t.Errorf("expected MaxExpansionTerms=5, got %d", cfg.Search.MaxExpansionTerms)
	}
	if cfg.Embedding.Timeout().Milliseconds() != 800 {
		t.Errorf("expected embedding timeout 800ms, got %v", cfg.Embedding.Timeout())
	}
	if cfg.Usage.Workers != 4 || cfg.Usage.GraceMs != 2000 {
		t.Errorf("unexpected usage defaults: %+v", cfg.Usage)
	}
	if cfg.Tracing.SampleRatio != 1 || cfg.Tracing.ServiceName != "scaledex" {
		t.Errorf("unexpected tracing defaults: %+v", cfg.Tracing)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:   HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Access: AccessConfig{Quota: 10, Store: AccessStoreDatabase},
		Search: SearchConfig{MaxExpansionTerms: 2},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Access.Quota != 10 || cfg.Access.Store != AccessStoreDatabase {
		t.Errorf("access overridden: %+v", cfg.Access)
	}
	if cfg.Search.MaxExpansionTerms != 2 {
		t.Errorf("expected MaxExpansionTerms=2, got %d", cfg.Search.MaxExpansionTerms)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("SCALEDEX_TEST_PORT", "9090")
	data := []byte(`
http:
  port: ${SCALEDEX_TEST_PORT}
database:
  driver: badger
  badger:
    in_memory: true
embedding:
  model: ${SCALEDEX_TEST_MODEL:-text-embedding-3-small}
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.HTTP.Port)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("Model = %q", cfg.Embedding.Model)
	}
	if cfg.Embedding.Enabled() {
		t.Error("embedding must be disabled without api key")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(path, []byte("http:\n  port: 0\ndatabase:\n  addrs: [\"r:6379\"]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected read error")
	}
}

func TestLoad_RepoConfigs(t *testing.T) {
	t.Setenv("REDIS_ADDR", "localhost:6379")
	for _, env := range []string{"local", "prod"} {
		if _, err := Load(env); err != nil {
			t.Errorf("Load(%q): %v", env, err)
		}
	}
}
