package ailink

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/asklens/asklens/internal/ailink/prompt"
)

func testConfig() Config {
	return Config{
		DefaultProvider: "asklens-groq",
		Providers: map[string]ProviderInstanceConfig{
			"asklens-groq": {
				Enabled:    true,
				AIProvider: "groq",
				Roles:      []string{"answer"},
				Models:     map[string]string{"default": "llama-3.3-70b-versatile"},
				Credentials: []CredentialConfig{
					{Enabled: true, Label: "primary", APIKey: "test-key", Priority: 10},
				},
			},
		},
	}
}

func TestResolveDefaultProvider(t *testing.T) {
	reg := NewRegistry(testConfig())

	resolved, err := reg.Resolve("answer", nil, "")
	require.NoError(t, err)
	require.Equal(t, "asklens-groq", resolved.ProviderID)
	require.Equal(t, "groq", resolved.Driver.Name())
	require.Equal(t, "llama-3.3-70b-versatile", resolved.Model)
	require.Equal(t, "primary", resolved.Credential.Label)
}

func TestResolveRoutingOverridesRole(t *testing.T) {
	cfg := testConfig()
	cfg.Providers["backup-groq"] = ProviderInstanceConfig{
		Enabled:    true,
		AIProvider: "groq",
		Models:     map[string]string{"default": "llama-3.3-70b-versatile"},
		Credentials: []CredentialConfig{
			{Enabled: true, Label: "backup", APIKey: "backup-key", Priority: 1},
		},
	}
	cfg.Routing = map[string]string{"answer": "backup-groq"}

	reg := NewRegistry(cfg)
	resolved, err := reg.Resolve("answer", nil, "")
	require.NoError(t, err)
	require.Equal(t, "backup-groq", resolved.ProviderID)
}

func TestResolveModelFromPromptHints(t *testing.T) {
	cfg := testConfig()
	provider := cfg.Providers["asklens-groq"]
	provider.Models = nil
	cfg.Providers["asklens-groq"] = provider

	def := &prompt.Prompt{Config: prompt.Config{
		Slug: "web-answer",
		ProviderHints: map[string]any{
			"preferred_models": []any{"llama-3.3-70b-versatile"},
		},
	}}

	reg := NewRegistry(cfg)
	resolved, err := reg.Resolve("answer", def, "")
	require.NoError(t, err)
	require.Equal(t, "llama-3.3-70b-versatile", resolved.Model)
}

func TestResolveModelOverrideWins(t *testing.T) {
	reg := NewRegistry(testConfig())

	resolved, err := reg.Resolve("answer", nil, "custom-model")
	require.NoError(t, err)
	require.Equal(t, "custom-model", resolved.Model)
}

func TestResolveRejectsUnknownProviderType(t *testing.T) {
	cfg := testConfig()
	provider := cfg.Providers["asklens-groq"]
	provider.AIProvider = "unknown"
	cfg.Providers["asklens-groq"] = provider

	reg := NewRegistry(cfg)
	_, err := reg.Resolve("answer", nil, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported ai_provider")
}

func TestResolveErrorsWithoutProviders(t *testing.T) {
	reg := NewRegistry(Config{})
	_, err := reg.Resolve("answer", nil, "")
	require.Error(t, err)
}

func TestSelectCredentialRoundRobin(t *testing.T) {
	cfg := testConfig()
	provider := cfg.Providers["asklens-groq"]
	provider.SelectionPolicy = "round_robin"
	provider.Credentials = []CredentialConfig{
		{Enabled: true, Label: "a", APIKey: "key-a", Priority: 10},
		{Enabled: true, Label: "b", APIKey: "key-b", Priority: 10},
	}
	cfg.Providers["asklens-groq"] = provider

	reg := NewRegistry(cfg)

	first, err := reg.Resolve("answer", nil, "")
	require.NoError(t, err)
	second, err := reg.Resolve("answer", nil, "")
	require.NoError(t, err)
	require.NotEqual(t, first.Credential.Label, second.Credential.Label)
}
