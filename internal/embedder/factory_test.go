package embedder

import (
	"strings"
	"testing"
)

// clearEnv blanks every variable the factory reads so tests are hermetic
// regardless of the invoking shell.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"EMBEDDING_PROVIDER", "MODEL_PROVIDER",
		"EMBEDDING_MODEL", "EMBEDDING_API_KEY", "EMBEDDING_ENDPOINT",
		"EMBEDDING_DIMENSIONS", "EMBEDDING_TIMEOUT",
		"OLLAMA_HOST", "OPENAI_API_KEY",
		"AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_API_VERSION",
	} {
		t.Setenv(key, "")
	}
}

func TestResolveBackend(t *testing.T) {
	clearEnv(t)

	if got := ResolveBackend(); got != "ollama" {
		t.Errorf("default backend: expected ollama, got %q", got)
	}

	t.Setenv("MODEL_PROVIDER", "openai")
	if got := ResolveBackend(); got != "openai" {
		t.Errorf("expected to inherit MODEL_PROVIDER, got %q", got)
	}

	t.Setenv("EMBEDDING_PROVIDER", "azure")
	if got := ResolveBackend(); got != "azure" {
		t.Errorf("EMBEDDING_PROVIDER must win over MODEL_PROVIDER, got %q", got)
	}
}

func TestDefaultDimensions(t *testing.T) {
	clearEnv(t)

	if got := DefaultDimensions("ollama"); got != defaultOllamaDimensions {
		t.Errorf("ollama: expected %d, got %d", defaultOllamaDimensions, got)
	}
	if got := DefaultDimensions("openai"); got != defaultOpenAIDimensions {
		t.Errorf("openai: expected %d, got %d", defaultOpenAIDimensions, got)
	}
	if got := DefaultDimensions("azure"); got != defaultOpenAIDimensions {
		t.Errorf("azure: expected %d, got %d", defaultOpenAIDimensions, got)
	}

	t.Setenv("EMBEDDING_DIMENSIONS", "512")
	if got := DefaultDimensions("ollama"); got != 512 {
		t.Errorf("EMBEDDING_DIMENSIONS override: expected 512, got %d", got)
	}
}

func TestNewFromEnv_OllamaDefaults(t *testing.T) {
	clearEnv(t)

	emb, err := NewFromEnv()
	if err != nil {
		t.Fatalf("new from env: %v", err)
	}
	if emb.Dimension() != defaultOllamaDimensions {
		t.Errorf("expected dimension %d, got %d", defaultOllamaDimensions, emb.Dimension())
	}
}

func TestNewFromEnv_DimensionOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("EMBEDDING_DIMENSIONS", "384")

	emb, err := NewFromEnv()
	if err != nil {
		t.Fatalf("new from env: %v", err)
	}
	if emb.Dimension() != 384 {
		t.Errorf("expected dimension 384, got %d", emb.Dimension())
	}
}

func TestNewFromEnv_OpenAIRequiresKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("EMBEDDING_PROVIDER", "openai")

	if _, err := NewFromEnv(); err == nil {
		t.Fatal("expected an error without an API key")
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	emb, err := NewFromEnv()
	if err != nil {
		t.Fatalf("new from env with key: %v", err)
	}
	if emb.Dimension() != defaultOpenAIDimensions {
		t.Errorf("expected dimension %d, got %d", defaultOpenAIDimensions, emb.Dimension())
	}
}

func TestNewFromEnv_AzureRequiresEndpoint(t *testing.T) {
	clearEnv(t)
	t.Setenv("EMBEDDING_PROVIDER", "azure")
	t.Setenv("AZURE_OPENAI_API_KEY", "azure-test")

	_, err := NewFromEnv()
	if err == nil || !strings.Contains(err.Error(), "ENDPOINT") {
		t.Fatalf("expected a missing-endpoint error, got %v", err)
	}

	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com")
	if _, err := NewFromEnv(); err != nil {
		t.Fatalf("new from env with endpoint: %v", err)
	}
}

func TestNewFromEnv_UnknownBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("EMBEDDING_PROVIDER", "anthropic")

	_, err := NewFromEnv()
	if err == nil || !strings.Contains(err.Error(), "unknown backend") {
		t.Fatalf("expected unknown-backend error, got %v", err)
	}
}
