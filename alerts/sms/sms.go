package sms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ahmadsaubani/go-sos-lib/alerts"
)

const (
	// SinglePartLimit is the longest text sent as one message.
	SinglePartLimit = 160
	// MultipartSegment is the length of each part once a text is split.
	MultipartSegment = 153
)

// ErrInvalidNumber is returned for destinations not in +<digits> form.
var ErrInvalidNumber = errors.New("invalid phone number")

// Sender is the telephony service that actually transmits a text.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
}

type Config struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Number  string `yaml:"number" mapstructure:"number"`
}

type Channel struct {
	config *Config
	sender Sender
}

/**
 * New creates an SMS channel.
 * The destination number is validated before anything is handed to the
 * sender; long texts are split into parts and sent in order.
 *
 * @param config Destination number and enabled flag
 * @param sender Telephony backend
 * @return *Channel Ready-to-use SMS channel
 */
func New(config *Config, sender Sender) *Channel {
	return &Channel{config: config, sender: sender}
}

func (c *Channel) Name() string {
	return "SMS"
}

func (c *Channel) Kind() alerts.Kind {
	return alerts.KindSMS
}

// Enabled is false when switched off or when no number is configured.
func (c *Channel) Enabled() bool {
	return c.config.Enabled && strings.TrimSpace(c.config.Number) != ""
}

/**
 * Send validates the number and transmits the alert text.
 *
 * @param ctx Bounds the telephony calls
 * @param alert Alert to render
 * @return error ErrInvalidNumber, ErrNotConfigured or the sender's error
 */
func (c *Channel) Send(ctx context.Context, alert alerts.Alert) error {
	number := strings.TrimSpace(c.config.Number)
	if number == "" {
		return alerts.ErrNotConfigured
	}
	if err := ValidateNumber(number); err != nil {
		return err
	}
	if c.sender == nil {
		return fmt.Errorf("no SMS sender available")
	}

	parts := Split(alert.Text())
	for i, part := range parts {
		if err := c.sender.SendText(ctx, number, part); err != nil {
			if len(parts) > 1 {
				return fmt.Errorf("part %d/%d: %w", i+1, len(parts), err)
			}
			return err
		}
	}
	return nil
}

// ValidateNumber accepts "+" followed by 7 to 15 digits. Spaces, dashes and
// parentheses are ignored.
func ValidateNumber(number string) error {
	if !strings.HasPrefix(number, "+") {
		return fmt.Errorf("%w: %q must start with '+'", ErrInvalidNumber, number)
	}

	digits := 0
	for _, r := range number[1:] {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return fmt.Errorf("%w: unexpected character %q", ErrInvalidNumber, r)
		}
	}

	if digits < 7 || digits > 15 {
		return fmt.Errorf("%w: %q has %d digits", ErrInvalidNumber, number, digits)
	}
	return nil
}

// Split returns the text unchanged when it fits in one message, otherwise
// consecutive parts of MultipartSegment characters.
func Split(text string) []string {
	if utf8.RuneCountInString(text) <= SinglePartLimit {
		return []string{text}
	}

	runes := []rune(text)
	parts := make([]string, 0, len(runes)/MultipartSegment+1)
	for start := 0; start < len(runes); start += MultipartSegment {
		end := start + MultipartSegment
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}
