package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/ahmadsaubani/go-sos-lib/alerts"
)

type Config struct {
	Enabled    bool     `yaml:"enabled" mapstructure:"enabled"`
	SMTPHost   string   `yaml:"smtp_host" mapstructure:"smtp_host"`
	SMTPPort   int      `yaml:"smtp_port" mapstructure:"smtp_port"`
	Username   string   `yaml:"username" mapstructure:"username"`
	Password   string   `yaml:"password" mapstructure:"password"`
	From       string   `yaml:"from" mapstructure:"from"`
	To         []string `yaml:"to" mapstructure:"to"`
	UseTLS     bool     `yaml:"use_tls" mapstructure:"use_tls"`
	SkipVerify bool     `yaml:"skip_verify" mapstructure:"skip_verify"`
}

// dialer is the part of *gomail.Dialer the channel uses.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type Channel struct {
	config   *Config
	template *template.Template
	dialer   dialer
}

/**
 * New creates a new Email channel.
 * Sends an HTML email to every recipient and attaches the audio recording
 * when the alert carries one.
 *
 * @param config SMTP configuration including host, credentials, and recipients
 * @return *Channel Ready-to-use Email channel
 */
func New(config *Config) *Channel {
	port := config.SMTPPort
	if port == 0 {
		port = 587
	}
	d := gomail.NewDialer(config.SMTPHost, port, config.Username, config.Password)
	d.SSL = config.UseTLS
	d.TLSConfig = &tls.Config{
		InsecureSkipVerify: config.SkipVerify,
		ServerName:         config.SMTPHost,
	}

	return &Channel{
		config:   config,
		template: template.Must(template.New("email").Parse(htmlTemplate)),
		dialer:   d,
	}
}

func (c *Channel) Name() string {
	return "Email"
}

func (c *Channel) Kind() alerts.Kind {
	return alerts.KindHTTP
}

func (c *Channel) AttachesAudio() bool {
	return true
}

func (c *Channel) Enabled() bool {
	return c.config.Enabled && c.config.SMTPHost != "" && len(c.config.To) > 0
}

/**
 * Send delivers the alert by SMTP.
 * SMTP dialing does not observe ctx; the dispatcher's timeout bounds it.
 *
 * @param ctx Unused beyond an early cancellation check
 * @param alert Alert data
 * @return error Returns nil on success, or error if SMTP fails
 */
func (c *Channel) Send(ctx context.Context, alert alerts.Alert) error {
	if c.config.SMTPHost == "" || len(c.config.To) == 0 {
		return fmt.Errorf("email SMTP host or recipients is empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := c.buildMessage(alert)
	if err != nil {
		return err
	}

	if err := c.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (c *Channel) buildMessage(alert alerts.Alert) (*gomail.Message, error) {
	body, err := c.renderTemplate(alert)
	if err != nil {
		return nil, fmt.Errorf("failed to render email template: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", c.config.From)
	m.SetHeader("To", c.config.To...)
	m.SetHeader("Subject", fmt.Sprintf("Emergency Alert - %s", defaultIfEmpty(alert.UserName, "unknown user")))
	m.SetBody("text/plain", alert.Text())
	m.AddAlternative("text/html", body)

	if alert.HasAudio() {
		m.Attach(alert.AudioPath)
	}

	return m, nil
}

func (c *Channel) renderTemplate(alert alerts.Alert) (string, error) {
	data := templateData{
		Name:      defaultIfEmpty(alert.UserName, "N/A"),
		Phone:     defaultIfEmpty(alert.UserPhone, "N/A"),
		Location:  defaultIfEmpty(alert.Location, "unavailable"),
		MapsURL:   alert.MapsURL,
		Network:   defaultIfEmpty(alert.Network, "N/A"),
		Trigger:   defaultIfEmpty(alert.Trigger, "N/A"),
		AlertID:   defaultIfEmpty(alert.ID, "N/A"),
		Timestamp: alert.Timestamp.Format("02 Jan 2006, 15:04:05"),
		HasAudio:  alert.HasAudio(),
		AudioSecs: int(alert.RecordedFor / time.Second),
	}

	var buf bytes.Buffer
	if err := c.template.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func defaultIfEmpty(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
