package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, APIKey: "secret", Timeout: 2 * time.Second})
}

func TestContextSearch(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/context", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hours", body["query"])
		assert.Equal(t, "bot-1", body["tenant_id"])

		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{"content": "open 9 to 5", "score": 0.92}},
		})
	})

	results, err := NewContextSearch(client).Search(context.Background(), "hours", "bot-1", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "open 9 to 5", results[0].Content)
	assert.Equal(t, 0.92, results[0].Score)
}

func TestPaymentsCreateLink(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/links", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"url": "https://pay.example/abc"})
	})

	url, err := NewPayments(client).CreateLink(context.Background(), 15000, "2 tacos", "mxn")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/abc", url)
}

func TestPaymentsCreateLinkEmptyURL(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	})

	_, err := NewPayments(client).CreateLink(context.Background(), 15000, "2 tacos", "mxn")
	assert.Error(t, err)
}

func TestUpstreamErrorStatus(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := NewWebSearch(client).Search(context.Background(), "weather", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestParserParse(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/documents/parse", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"text": "page one text"})
	})

	text, err := NewParser(client).Parse(context.Background(), "doc-1", "basic")
	require.NoError(t, err)
	assert.Equal(t, "page one text", string(text))
}

func TestEmailSend(t *testing.T) {
	var got map[string]any
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/email/send", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})

	err := NewEmail(client).Send(context.Background(), "ana@example.com", "reminder", "<p>hi</p>")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got["to"])
}
