package prompt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	prompts, err := LoadDefaults()
	require.NoError(t, err)
	require.NotEmpty(t, prompts)

	reg, err := NewRegistry(prompts)
	require.NoError(t, err)

	def, err := reg.Get("web-answer")
	require.NoError(t, err)
	require.NotEmpty(t, def.Config.UserTemplate)
}

func TestLoadRejectsMissingSlug(t *testing.T) {
	_, err := Load("test.md", []byte("---\nname: no slug\n---\nbody"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "slug")
}

func TestLoadBodyBecomesUserTemplate(t *testing.T) {
	def, err := Load("test.md", []byte("---\nslug: sample\n---\nHello {{name}}"))
	require.NoError(t, err)
	require.Equal(t, "Hello {{name}}", def.Config.UserTemplate)
}

func TestLoadRejectsUnreferencedRequiredVariable(t *testing.T) {
	data := []byte("---\nslug: sample\ninput:\n  required_variables:\n    - missing\n---\nHello")
	_, err := Load("test.md", data)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing")
}

func TestRenderSubstitutesVariables(t *testing.T) {
	def, err := Load("test.md", []byte("---\nslug: sample\ninput:\n  required_variables:\n    - query\n---\nContext: {{context}}\n\nUser Query: {{query}}"))
	require.NoError(t, err)

	system, user, err := Render(def, map[string]string{"query": "capital of France", "context": "[]"})
	require.NoError(t, err)
	require.Empty(t, system)
	require.Equal(t, "Context: []\n\nUser Query: capital of France", user)
}

func TestRenderRequiresVariables(t *testing.T) {
	def, err := Load("test.md", []byte("---\nslug: sample\ninput:\n  required_variables:\n    - query\n---\nQ: {{query}}"))
	require.NoError(t, err)

	_, _, err = Render(def, map[string]string{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "query")
}
