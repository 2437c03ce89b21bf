package mattermost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ahmadsaubani/go-sos-lib/alerts"
)

type Config struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
	Channel    string `yaml:"channel" mapstructure:"channel"`
	Username   string `yaml:"username" mapstructure:"username"`
	IconURL    string `yaml:"icon_url" mapstructure:"icon_url"`
}

type Channel struct {
	config *Config
	client *http.Client
}

/**
 * New creates a Mattermost channel.
 * Uses Mattermost incoming webhooks to post the alert as a markdown message.
 *
 * @param config Webhook URL and display settings
 * @return *Channel Ready-to-use Mattermost channel
 */
func New(config *Config) *Channel {
	return &Channel{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Channel) Name() string {
	return "Mattermost"
}

func (c *Channel) Kind() alerts.Kind {
	return alerts.KindHTTP
}

func (c *Channel) Enabled() bool {
	return c.config.Enabled && c.config.WebhookURL != ""
}

/**
 * Send posts the alert to the webhook.
 *
 * @param ctx Bounds the request
 * @param alert Alert data
 * @return error Returns nil on success, or error if the webhook fails
 */
func (c *Channel) Send(ctx context.Context, alert alerts.Alert) error {
	if c.config.WebhookURL == "" {
		return alerts.ErrNotConfigured
	}

	jsonData, err := json.Marshal(c.buildMessage(alert))
	if err != nil {
		return fmt.Errorf("failed to marshal mattermost message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to build mattermost request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send mattermost webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("mattermost webhook returned status %d", resp.StatusCode)
	}

	return nil
}

func (c *Channel) buildMessage(alert alerts.Alert) map[string]interface{} {
	var sb strings.Builder
	sb.WriteString("#### :rotating_light: Emergency alert\n")
	for _, f := range alert.Fields() {
		if f.Value == "" || f.Key == "message" {
			continue
		}
		sb.WriteString(fmt.Sprintf("**%s**: %s\n", f.Key, f.Value))
	}

	message := map[string]interface{}{
		"text": strings.TrimRight(sb.String(), "\n"),
	}

	if c.config.Channel != "" {
		message["channel"] = c.config.Channel
	}
	if c.config.Username != "" {
		message["username"] = c.config.Username
	}
	if c.config.IconURL != "" {
		message["icon_url"] = c.config.IconURL
	}

	return message
}
