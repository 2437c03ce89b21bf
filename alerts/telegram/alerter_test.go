package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadsaubani/go-sos-lib/alerts"
)

type botAPI struct {
	mu      sync.Mutex
	paths   []string
	text    string
	caption string
	file    string
	status  map[string]int
}

func (b *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paths = append(b.paths, r.URL.Path)

	switch filepath.Base(r.URL.Path) {
	case "sendMessage":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.text = body["text"]
	case "sendAudio":
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			b.caption = r.FormValue("caption")
			if _, hdr, err := r.FormFile("audio"); err == nil {
				b.file = hdr.Filename
			}
		}
	}
	if code, ok := b.status[filepath.Base(r.URL.Path)]; ok {
		w.WriteHeader(code)
	}
}

func TestSendTextOnly(t *testing.T) {
	api := &botAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	ch := New(&Config{Enabled: true, BotToken: "T0K", ChatID: "42", APIURL: srv.URL})
	require.NoError(t, ch.Send(context.Background(), alerts.Alert{UserName: "Jane <admin>", Location: "1,2"}))

	assert.Equal(t, []string{"/botT0K/sendMessage"}, api.paths)
	assert.Contains(t, api.text, "Jane &lt;admin&gt;")
	assert.Contains(t, api.text, "<b>Location:</b> 1,2")
}

func TestSendUploadsAudio(t *testing.T) {
	api := &botAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	audio := filepath.Join(t.TempDir(), "emergency_1.aac")
	require.NoError(t, os.WriteFile(audio, []byte("aac"), 0644))

	ch := New(&Config{Enabled: true, BotToken: "T0K", ChatID: "42", APIURL: srv.URL})
	require.NoError(t, ch.Send(context.Background(), alerts.Alert{UserName: "Jane", AudioPath: audio}))

	assert.Equal(t, []string{"/botT0K/sendMessage", "/botT0K/sendAudio"}, api.paths)
	assert.Equal(t, "emergency_1.aac", api.file)
	assert.Equal(t, "Emergency recording from Jane", api.caption)
}

func TestSendAudioFailure(t *testing.T) {
	api := &botAPI{status: map[string]int{"sendAudio": http.StatusRequestEntityTooLarge}}
	srv := httptest.NewServer(api)
	defer srv.Close()

	audio := filepath.Join(t.TempDir(), "emergency_1.aac")
	require.NoError(t, os.WriteFile(audio, []byte("aac"), 0644))

	ch := New(&Config{Enabled: true, BotToken: "T0K", ChatID: "42", APIURL: srv.URL})
	err := ch.Send(context.Background(), alerts.Alert{AudioPath: audio})
	assert.EqualError(t, err, "telegram sendAudio returned status 413")
}

func TestMissingCredentials(t *testing.T) {
	ch := New(&Config{Enabled: true})
	assert.False(t, ch.Enabled())
	assert.Error(t, ch.Send(context.Background(), alerts.Alert{}))
}
