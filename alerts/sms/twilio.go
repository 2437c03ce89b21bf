package sms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTwilioBaseURL = "https://api.twilio.com"

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid" mapstructure:"account_sid"`
	AuthToken  string `yaml:"auth_token" mapstructure:"auth_token"`
	From       string `yaml:"from" mapstructure:"from"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
}

// TwilioSender sends texts through the Twilio Messages API.
type TwilioSender struct {
	config *TwilioConfig
	client *http.Client
}

func NewTwilioSender(config *TwilioConfig) *TwilioSender {
	return &TwilioSender{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *TwilioSender) SendText(ctx context.Context, to, text string) error {
	if s.config.AccountSID == "" || s.config.AuthToken == "" || s.config.From == "" {
		return fmt.Errorf("twilio account SID, auth token or sender number is empty")
	}

	base := s.config.BaseURL
	if base == "" {
		base = defaultTwilioBaseURL
	}
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", strings.TrimRight(base, "/"), url.PathEscape(s.config.AccountSID))

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.config.From)
	form.Set("Body", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build twilio request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.config.AccountSID, s.config.AuthToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("twilio API returned status %d", resp.StatusCode)
	}

	return nil
}
