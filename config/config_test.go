package config_test

import (
	"testing"

	"github.com/mnemosyneos/mnemo/config"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"MNEMO_DATA_DIR", "MNEMO_PROVIDER", "MNEMO_MODEL",
		"MNEMO_EMBEDDER", "MNEMO_EMBED_CACHE",
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY",
	} {
		t.Setenv(key, "")
	}

	cfg := config.Load()
	if cfg.Provider != "" {
		t.Errorf("no keys should mean no provider, got %q", cfg.Provider)
	}
	if cfg.Embedder != "mock" {
		t.Errorf("embedder should default to mock, got %q", cfg.Embedder)
	}
	if cfg.EmbedCache {
		t.Error("embed cache should default off")
	}
}

func TestLoadProviderFollowsKeys(t *testing.T) {
	t.Setenv("MNEMO_PROVIDER", "")
	t.Setenv("MNEMO_EMBEDDER", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := config.Load()
	if cfg.Provider != "anthropic" {
		t.Errorf("anthropic key should win, got %q", cfg.Provider)
	}
	if cfg.Embedder != "openai" {
		t.Errorf("openai key should select the openai embedder, got %q", cfg.Embedder)
	}

	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg = config.Load()
	if cfg.Provider != "openai" {
		t.Errorf("openai key alone should select openai, got %q", cfg.Provider)
	}
}

func TestLoadExplicitOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("MNEMO_PROVIDER", "openai")
	t.Setenv("MNEMO_EMBEDDER", "mock")
	t.Setenv("MNEMO_EMBED_CACHE", "true")
	t.Setenv("MNEMO_DATA_DIR", "/tmp/mnemo-test")

	cfg := config.Load()
	if cfg.Provider != "openai" {
		t.Errorf("explicit provider should win over key defaults, got %q", cfg.Provider)
	}
	if cfg.Embedder != "mock" {
		t.Errorf("explicit embedder should win, got %q", cfg.Embedder)
	}
	if !cfg.EmbedCache || cfg.DataDir != "/tmp/mnemo-test" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}
