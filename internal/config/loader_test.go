package config

import (
	"os"
	"testing"
)

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("TEST_VAR", "hello")
	defer os.Unsetenv("TEST_VAR")

	tests := []struct {
		input    string
		expected string
	}{
		{"${TEST_VAR}", "hello"},
		{"${TEST_VAR:default}", "hello"},
		{"${UNSET_VAR:fallback}", "fallback"},
		{"${UNSET_VAR}", ""},
		{"no vars here", "no vars here"},
		{"prefix-${TEST_VAR}-suffix", "prefix-hello-suffix"},
	}

	for _, tt := range tests {
		got := expandEnvVars(tt.input)
		if got != tt.expected {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestLoadFile(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "test-config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpFile.Name())

	content := `
engine:
  enable_cache: false
  cache_ttl: 30m
chat:
  max_turns: 5
`
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatal(err)
	}
	tmpFile.Close()

	cfg := DefaultConfig()
	if err := LoadFile(tmpFile.Name(), cfg); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Engine.EnableCache {
		t.Error("expected enable_cache=false")
	}
	if cfg.Engine.CacheTTL.Minutes() != 30 {
		t.Errorf("expected cache_ttl=30m, got %v", cfg.Engine.CacheTTL)
	}
	if cfg.Chat.MaxTurns != 5 {
		t.Errorf("expected max_turns=5, got %d", cfg.Chat.MaxTurns)
	}
	// Untouched fields keep their defaults
	if !cfg.Engine.AutoRoute {
		t.Error("expected auto_route default true")
	}
}

func TestLoadFile_WithEnvVars(t *testing.T) {
	os.Setenv("TEST_API_KEY", "sk-test-123")
	defer os.Unsetenv("TEST_API_KEY")

	tmpFile, err := os.CreateTemp("", "test-config-env-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpFile.Name())

	content := `
upstream:
  base_url: "${TEST_BASE_URL:https://api.mistral.ai}"
  api_key: "${TEST_API_KEY}"
`
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatal(err)
	}
	tmpFile.Close()

	cfg := DefaultConfig()
	if err := LoadFile(tmpFile.Name(), cfg); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Upstream.APIKey != "sk-test-123" {
		t.Errorf("expected api_key from env, got %q", cfg.Upstream.APIKey)
	}
	if cfg.Upstream.BaseURL != "https://api.mistral.ai" {
		t.Errorf("expected default base_url, got %q", cfg.Upstream.BaseURL)
	}
}

func TestDefaultModels(t *testing.T) {
	m := DefaultModels()

	if m.Small.Name != "mistral-small-latest" {
		t.Errorf("unexpected small tier model: %s", m.Small.Name)
	}
	if m.Large.Name != "mistral-large-latest" {
		t.Errorf("unexpected large tier model: %s", m.Large.Name)
	}
	if m.Small.InputCostPerK >= m.Large.InputCostPerK {
		t.Error("small tier should be cheaper than large tier")
	}

	if got := m.Profile(TierLarge); got.Name != m.Large.Name {
		t.Errorf("Profile(large) = %s", got.Name)
	}
	if got := m.Profile(TierSmall); got.Name != m.Small.Name {
		t.Errorf("Profile(small) = %s", got.Name)
	}
	if got := m.ByName("mistral-small-latest"); got.Name != m.Small.Name {
		t.Errorf("ByName(small) = %s", got.Name)
	}
	// Unknown models are priced at the large tier
	if got := m.ByName("mystery-model"); got.Name != m.Large.Name {
		t.Errorf("ByName(unknown) = %s", got.Name)
	}
}
