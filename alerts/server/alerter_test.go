package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadsaubani/go-sos-lib/alerts"
)

func sampleAlert() alerts.Alert {
	return alerts.Alert{
		ID:        "alert-1",
		UserName:  "Jane",
		UserPhone: "+15550001111",
		Location:  "52.1,4.3",
		Network:   "Wi-Fi",
		Trigger:   "button",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestSendJSONWithBearer(t *testing.T) {
	var got map[string]string
	var auth, ctype string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		ctype = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := New(&Config{Enabled: true, URL: srv.URL, AuthToken: "secret"})
	require.NoError(t, ch.Send(context.Background(), sampleAlert()))

	assert.Equal(t, "Bearer secret", auth)
	assert.Contains(t, ctype, "application/json")
	assert.Equal(t, "alert-1", got["alert_id"])
	assert.Equal(t, "Jane", got["name"])
	assert.Equal(t, "2026-01-02T03:04:05Z", got["timestamp"])
}

func TestSendWithoutTokenOmitsHeader(t *testing.T) {
	var hasAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasAuth = r.Header["Authorization"]
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ch := New(&Config{Enabled: true, URL: srv.URL})
	require.NoError(t, ch.Send(context.Background(), sampleAlert()))
	assert.False(t, hasAuth)
}

func TestSendMultipartWithAudio(t *testing.T) {
	audio := filepath.Join(t.TempDir(), "emergency_20260102_030405.aac")
	require.NoError(t, os.WriteFile(audio, []byte("fake-aac"), 0644))

	var filename, content, name string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		name = r.FormValue("name")
		f, hdr, err := r.FormFile("audio")
		require.NoError(t, err)
		defer f.Close()
		filename = hdr.Filename
		b, _ := io.ReadAll(f)
		content = string(b)
	}))
	defer srv.Close()

	alert := sampleAlert()
	alert.AudioPath = audio
	alert.RecordedFor = 30 * time.Second

	ch := New(&Config{Enabled: true, URL: srv.URL, AttachAudio: true})
	require.NoError(t, ch.Send(context.Background(), alert))

	assert.Equal(t, "Jane", name)
	assert.Equal(t, "emergency_20260102_030405.aac", filename)
	assert.Equal(t, "fake-aac", content)
}

func TestSendMissingAudioFails(t *testing.T) {
	ch := New(&Config{Enabled: true, URL: "http://127.0.0.1:1", AttachAudio: true})
	alert := sampleAlert()
	alert.AudioPath = filepath.Join(t.TempDir(), "missing.aac")
	assert.ErrorContains(t, ch.Send(context.Background(), alert), "failed to open recording")
}

func TestSendNon2xxIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	ch := New(&Config{Enabled: true, URL: srv.URL})
	assert.EqualError(t, ch.Send(context.Background(), sampleAlert()), "server returned status 401")
}

func TestEnabledAndNotConfigured(t *testing.T) {
	ch := New(&Config{Enabled: true, URL: ""})
	assert.False(t, ch.Enabled())
	assert.ErrorIs(t, ch.Send(context.Background(), sampleAlert()), alerts.ErrNotConfigured)
}

func TestAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
	}))
	defer srv.Close()

	assert.True(t, New(&Config{Enabled: true, URL: srv.URL}).Available(context.Background()))
	assert.False(t, New(&Config{Enabled: true}).Available(context.Background()))
}
