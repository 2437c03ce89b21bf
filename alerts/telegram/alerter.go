package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ahmadsaubani/go-sos-lib/alerts"
)

const defaultAPIURL = "https://api.telegram.org"

type Config struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	BotToken string `yaml:"bot_token" mapstructure:"bot_token"`
	ChatID   string `yaml:"chat_id" mapstructure:"chat_id"`
	APIURL   string `yaml:"api_url" mapstructure:"api_url"`
}

type Channel struct {
	config *Config
	client *http.Client
}

/**
 * New creates a new Telegram channel.
 * Uses the Telegram Bot API to send an HTML-formatted message to a chat and,
 * when the alert carries a recording, uploads it with sendAudio.
 *
 * @param config Telegram bot configuration including token and chat ID
 * @return *Channel Ready-to-use Telegram channel
 */
func New(config *Config) *Channel {
	return &Channel{
		config: config,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Channel) Name() string {
	return "Telegram"
}

func (c *Channel) Kind() alerts.Kind {
	return alerts.KindHTTP
}

func (c *Channel) AttachesAudio() bool {
	return true
}

func (c *Channel) Enabled() bool {
	return c.config.Enabled && c.config.BotToken != "" && c.config.ChatID != ""
}

/**
 * Send dispatches an alert to Telegram via Bot API.
 * The text message goes first; a failed audio upload still fails the send.
 *
 * @param ctx Bounds both API calls
 * @param alert Alert data
 * @return error Returns nil on success, or error if an API call fails
 */
func (c *Channel) Send(ctx context.Context, alert alerts.Alert) error {
	if c.config.BotToken == "" || c.config.ChatID == "" {
		return fmt.Errorf("telegram bot token or chat ID is empty")
	}

	body := map[string]interface{}{
		"chat_id":    c.config.ChatID,
		"text":       buildMessage(alert),
		"parse_mode": "HTML",
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram message: %w", err)
	}

	if err := c.post(ctx, "sendMessage", "application/json", bytes.NewReader(jsonData)); err != nil {
		return err
	}

	if alert.HasAudio() {
		return c.sendAudio(ctx, alert)
	}
	return nil
}

func (c *Channel) sendAudio(ctx context.Context, alert alerts.Alert) error {
	f, err := os.Open(alert.AudioPath)
	if err != nil {
		return fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("chat_id", c.config.ChatID)
	_ = w.WriteField("caption", fmt.Sprintf("Emergency recording from %s", defaultIfEmpty(alert.UserName, "unknown user")))

	part, err := w.CreateFormFile("audio", filepath.Base(alert.AudioPath))
	if err != nil {
		return fmt.Errorf("failed to create audio part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to copy recording: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish form: %w", err)
	}

	return c.post(ctx, "sendAudio", w.FormDataContentType(), &buf)
}

func (c *Channel) post(ctx context.Context, method, contentType string, body io.Reader) error {
	base := c.config.APIURL
	if base == "" {
		base = defaultAPIURL
	}
	url := fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(base, "/"), c.config.BotToken, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("telegram %s returned status %d", method, resp.StatusCode)
	}

	return nil
}

func buildMessage(alert alerts.Alert) string {
	var sb strings.Builder

	sb.WriteString("🔴 <b>Emergency Alert</b>\n\n")
	sb.WriteString(fmt.Sprintf("<b>Name:</b> %s\n", escapeHTML(defaultIfEmpty(alert.UserName, "N/A"))))
	sb.WriteString(fmt.Sprintf("<b>Phone:</b> %s\n", escapeHTML(defaultIfEmpty(alert.UserPhone, "N/A"))))
	if alert.MapsURL != "" {
		sb.WriteString(fmt.Sprintf("<b>Location:</b> <a href=\"%s\">%s</a>\n", escapeHTML(alert.MapsURL), escapeHTML(alert.Location)))
	} else {
		sb.WriteString(fmt.Sprintf("<b>Location:</b> %s\n", escapeHTML(defaultIfEmpty(alert.Location, "unavailable"))))
	}
	sb.WriteString(fmt.Sprintf("<b>Network:</b> %s\n", escapeHTML(defaultIfEmpty(alert.Network, "N/A"))))
	if alert.RecordedFor > 0 {
		sb.WriteString(fmt.Sprintf("<b>Audio:</b> %ds\n", int(alert.RecordedFor/time.Second)))
	}
	sb.WriteString(fmt.Sprintf("<b>Alert ID:</b>\n<code>%s</code>\n\n", escapeHTML(defaultIfEmpty(alert.ID, "N/A"))))
	sb.WriteString(fmt.Sprintf("<b>Time:</b> %s\n", alert.Timestamp.Format("02 Jan 2006 15:04:05")))

	return sb.String()
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}

func defaultIfEmpty(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
