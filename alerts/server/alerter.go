package server

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

const DefaultTimeout = 15 * time.Second

type Config struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	URL         string        `yaml:"url" mapstructure:"url"`
	AuthToken   string        `yaml:"auth_token" mapstructure:"auth_token"`
	AttachAudio bool          `yaml:"attach_audio" mapstructure:"attach_audio"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

type Channel struct {
	config *Config
	client *http.Client
}

/**
 * New creates the alert server channel.
 * Posts the alert as JSON, or as multipart form data carrying the audio
 * recording when one is available and attachment is enabled.
 *
 * @param config Server URL, optional bearer token and attachment settings
 * @return *Channel Ready-to-use server channel
 */
func New(config *Config) *Channel {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Channel{
		config: config,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *Channel) Name() string {
	return "Server"
}

func (c *Channel) Kind() alerts.Kind {
	return alerts.KindHTTP
}

func (c *Channel) AttachesAudio() bool {
	return c.config.AttachAudio
}

func (c *Channel) Enabled() bool {
	return c.config.Enabled && strings.TrimSpace(c.config.URL) != ""
}

/**
 * Send posts the alert to the configured server.
 *
 * @param ctx Bounds the request
 * @param alert Alert data
 * @return error Returns nil on a 2xx response
 */
func (c *Channel) Send(ctx context.Context, alert alerts.Alert) error {
	if strings.TrimSpace(c.config.URL) == "" {
		return alerts.ErrNotConfigured
	}

	var (
		body        io.Reader
		contentType string
		err         error
	)
	if c.config.AttachAudio && alert.HasAudio() {
		body, contentType, err = multipartBody(alert)
	} else {
		body, contentType, err = jsonBody(alert)
	}
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, body)
	if err != nil {
		return fmt.Errorf("failed to build server request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	return nil
}

// Available sends a HEAD request to the server URL.
func (c *Channel) Available(ctx context.Context) bool {
	if strings.TrimSpace(c.config.URL) == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.config.URL, nil)
	if err != nil {
		return false
	}
	c.authorize(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

func (c *Channel) authorize(req *http.Request) {
	if token := strings.TrimSpace(c.config.AuthToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func jsonBody(alert alerts.Alert) (io.Reader, string, error) {
	data, err := json.Marshal(alert.FieldMap())
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal alert: %w", err)
	}
	return bytes.NewReader(data), "application/json; charset=utf-8", nil
}

func multipartBody(alert alerts.Alert) (io.Reader, string, error) {
	f, err := os.Open(alert.AudioPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, field := range alert.Fields() {
		if err := w.WriteField(field.Key, field.Value); err != nil {
			return nil, "", fmt.Errorf("failed to write form field: %w", err)
		}
	}

	part, err := w.CreateFormFile("audio", filepath.Base(alert.AudioPath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create audio part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("failed to copy recording: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish form: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}
