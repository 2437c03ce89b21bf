package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind tells the dispatcher whether a channel needs a data network.
type Kind int

const (
	KindHTTP Kind = iota
	KindSMS
)

func (k Kind) String() string {
	if k == KindSMS {
		return "sms"
	}
	return "http"
}

// ErrNotConfigured is returned by channels missing their destination.
var ErrNotConfigured = errors.New("channel not configured")

/**
 * Channel defines the interface that all delivery mechanisms implement.
 *
 * Implementations:
 *   - sms.Channel: text message through a telephony Sender
 *   - server.Channel: JSON or multipart POST to the configured server
 *   - mattermost.Channel: incoming webhook message
 *   - telegram.Channel: Bot API message with optional audio upload
 *   - email.Channel: SMTP email with the recording attached
 */
type Channel interface {
	Name() string
	Kind() Kind
	Send(ctx context.Context, alert Alert) error
}

// Toggle is implemented by channels that can be switched off or that lack a
// destination. Disabled channels are skipped, not counted as attempts.
type Toggle interface {
	Enabled() bool
}

// Attacher is implemented by channels able to carry the recording itself.
type Attacher interface {
	AttachesAudio() bool
}

// Field is one labelled line of alert content.
type Field struct {
	Key   string
	Value string
}

// Alert is the emergency payload handed to every channel. RecordedFor is the
// requested length while AudioPath is empty, and the captured length once a
// finished file is attached.
type Alert struct {
	ID          string
	UserName    string
	UserPhone   string
	Location    string
	MapsURL     string
	Network     string
	AudioPath   string
	RecordedFor time.Duration
	Trigger     string
	Timestamp   time.Time
}

// HasAudio reports whether a finished recording accompanies the alert.
func (a Alert) HasAudio() bool {
	return a.AudioPath != ""
}

// Text renders the alert as a single message body.
func (a Alert) Text() string {
	var sb strings.Builder

	sb.WriteString("ALERT: ")
	sb.WriteString(defaultIfEmpty(a.UserName, "unknown user"))
	if a.UserPhone != "" {
		sb.WriteString(", tel:")
		sb.WriteString(a.UserPhone)
	}
	sb.WriteString(". Loc: ")
	if a.MapsURL != "" {
		sb.WriteString(a.MapsURL)
	} else {
		sb.WriteString(defaultIfEmpty(a.Location, "unavailable"))
	}
	if a.Network != "" {
		sb.WriteString(". Net: ")
		sb.WriteString(a.Network)
	}
	sb.WriteString(".")
	switch {
	case a.HasAudio():
		sb.WriteString(fmt.Sprintf(" Audio: %ds recorded.", int(a.RecordedFor/time.Second)))
	case a.RecordedFor > 0:
		sb.WriteString(fmt.Sprintf(" Audio: recording %ds.", int(a.RecordedFor/time.Second)))
	}

	return sb.String()
}

// Fields returns the alert as ordered key/value pairs for structured bodies.
func (a Alert) Fields() []Field {
	fields := []Field{
		{"alert_id", a.ID},
		{"name", a.UserName},
		{"phone", a.UserPhone},
		{"location", a.Location},
		{"maps_url", a.MapsURL},
		{"network", a.Network},
		{"trigger", a.Trigger},
		{"timestamp", a.Timestamp.UTC().Format(time.RFC3339)},
		{"message", a.Text()},
	}
	if a.RecordedFor > 0 {
		fields = append(fields, Field{"audio_seconds", fmt.Sprintf("%d", int(a.RecordedFor/time.Second))})
	}
	return fields
}

// FieldMap is Fields as a map, for JSON encoding.
func (a Alert) FieldMap() map[string]string {
	m := make(map[string]string)
	for _, f := range a.Fields() {
		m[f.Key] = f.Value
	}
	return m
}

func defaultIfEmpty(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
