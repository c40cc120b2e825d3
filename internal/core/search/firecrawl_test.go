package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/asklens/asklens/internal/ailink/driver"
)

func TestSearchSendsQueryAndLimit(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": [{"url": "https://a"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "fc-key")
	results, err := client.Search(context.Background(), "capital of France", "")
	require.NoError(t, err)
	require.Len(t, results, 1)

	require.Equal(t, "/search", gotPath)
	require.Equal(t, "Bearer fc-key", gotAuth)
	require.Equal(t, "capital of France", gotBody["query"])
	require.EqualValues(t, 3, gotBody["limit"])
}

func TestSearchKeyOverrideWins(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "fc-key")
	_, err := client.Search(context.Background(), "q", "per-request-key")
	require.NoError(t, err)
	require.Equal(t, "Bearer per-request-key", gotAuth)
}

func TestSearchErrorsOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "invalid api key"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad-key")
	_, err := client.Search(context.Background(), "q", "")
	require.Error(t, err)

	var perr *driver.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "firecrawl", perr.Provider)
	require.Equal(t, http.StatusUnauthorized, perr.StatusCode)
}

func TestSearchEmptyEnvelopeYieldsNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "fc-key")
	results, err := client.Search(context.Background(), "q", "")
	require.NoError(t, err)
	require.NotNil(t, results)
	require.Empty(t, results)
}
