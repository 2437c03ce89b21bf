package mattermost

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadsaubani/go-sos-lib/alerts"
)

func TestSendPostsMarkdown(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	ch := New(&Config{Enabled: true, WebhookURL: srv.URL, Channel: "town-square", Username: "sos-bot"})
	require.NoError(t, ch.Send(context.Background(), alerts.Alert{UserName: "Jane", Location: "1,2"}))

	assert.Equal(t, "town-square", got["channel"])
	assert.Equal(t, "sos-bot", got["username"])
	assert.Contains(t, got["text"], "**name**: Jane")
	assert.Contains(t, got["text"], "**location**: 1,2")
	assert.NotContains(t, got["text"], "**phone**")
	_, hasIcon := got["icon_url"]
	assert.False(t, hasIcon)
}

func TestSendFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	ch := New(&Config{Enabled: true, WebhookURL: srv.URL})
	assert.EqualError(t, ch.Send(context.Background(), alerts.Alert{}), "mattermost webhook returned status 403")
}

func TestDisabledWithoutWebhook(t *testing.T) {
	ch := New(&Config{Enabled: true})
	assert.False(t, ch.Enabled())
	assert.ErrorIs(t, ch.Send(context.Background(), alerts.Alert{}), alerts.ErrNotConfigured)
}
