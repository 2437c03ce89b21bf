package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	sos "github.com/ahmadsaubani/go-sos-lib"
	"github.com/ahmadsaubani/go-sos-lib/alerts"
	"github.com/ahmadsaubani/go-sos-lib/alerts/sms"
	"github.com/ahmadsaubani/go-sos-lib/location"
	"github.com/ahmadsaubani/go-sos-lib/logging"
	"github.com/ahmadsaubani/go-sos-lib/network"
	"github.com/ahmadsaubani/go-sos-lib/recorder"
	"github.com/ahmadsaubani/go-sos-lib/trigger"
)

// EnvPrefix prefixes environment overrides, e.g. SOS_LISTEN or
// SOS_ALERTS_TELEGRAM_BOT_TOKEN.
const EnvPrefix = "SOS"

// Network modes.
const (
	ModeAuto    = "auto"
	ModeOnline  = "online"
	ModeOffline = "offline"
)

// Config is the daemon configuration file.
type Config struct {
	Listen       string `yaml:"listen" mapstructure:"listen"`
	SettingsPath string `yaml:"settings_path" mapstructure:"settings_path"`

	Logging  logging.Config       `yaml:"logging" mapstructure:"logging"`
	Alerts   sos.Config           `yaml:"alerts" mapstructure:"alerts"`
	Twilio   sms.TwilioConfig     `yaml:"twilio" mapstructure:"twilio"`
	Network  NetworkConfig        `yaml:"network" mapstructure:"network"`
	Location LocationConfig       `yaml:"location" mapstructure:"location"`
	Recorder RecorderConfig       `yaml:"recorder" mapstructure:"recorder"`
	Volume   trigger.VolumeConfig `yaml:"volume" mapstructure:"volume"`
}

type NetworkConfig struct {
	// Mode forces the connectivity answer; auto probes.
	Mode  string              `yaml:"mode" mapstructure:"mode"`
	Probe network.ProbeConfig `yaml:"probe" mapstructure:"probe"`
}

type LocationConfig struct {
	IPEnabled bool              `yaml:"ip_enabled" mapstructure:"ip_enabled"`
	IP        location.IPConfig `yaml:"ip" mapstructure:"ip"`
	// Fixed is a "lat,lon" pair reported when set, for stationary installs.
	Fixed string `yaml:"fixed" mapstructure:"fixed"`
}

type RecorderConfig struct {
	Enabled bool                   `yaml:"enabled" mapstructure:"enabled"`
	Dir     string                 `yaml:"dir" mapstructure:"dir"`
	Capture recorder.CommandConfig `yaml:"capture" mapstructure:"capture"`
}

// Default returns the configuration used for keys the file leaves out.
func Default() *Config {
	return &Config{
		Listen:       ":8080",
		SettingsPath: "./data/settings.db",
		Logging:      *logging.DefaultConfig(),
		Alerts: sos.Config{
			Dispatch:        alerts.Config{Policy: alerts.PolicyParallel, ChannelTimeout: alerts.DefaultChannelTimeout},
			LocationTimeout: location.DefaultTimeout,
		},
		Network: NetworkConfig{
			Mode:  ModeAuto,
			Probe: network.ProbeConfig{URL: network.DefaultProbeURL, Timeout: 3 * time.Second},
		},
		Location: LocationConfig{
			IPEnabled: true,
			IP:        location.IPConfig{URL: location.DefaultIPURL, Timeout: 5 * time.Second},
		},
		Recorder: RecorderConfig{
			Enabled: true,
			Dir:     "./recordings",
			Capture: recorder.CommandConfig{Program: "ffmpeg", StopTimeout: 5 * time.Second},
		},
		Volume: trigger.VolumeConfig{Presses: trigger.DefaultPresses, Window: trigger.DefaultWindow},
	}
}

/**
 * Load reads the configuration file, if any, and applies SOS_* environment
 * overrides on top of the defaults.
 *
 * @param path YAML file path; empty means defaults and environment only
 * @return *Config Parsed configuration
 * @return error Read, decode or validation failure
 */
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment variables can override
// keys the file does not mention.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("listen", d.Listen)
	v.SetDefault("settings_path", d.SettingsPath)

	v.SetDefault("logging.service_name", d.Logging.ServiceName)
	v.SetDefault("logging.log_path", d.Logging.LogPath)
	v.SetDefault("logging.file_prefix", d.Logging.FilePrefix)
	v.SetDefault("logging.enable_stdout", d.Logging.EnableStdout)
	v.SetDefault("logging.enable_file", d.Logging.EnableFile)
	v.SetDefault("logging.enable_loki", d.Logging.EnableLoki)
	v.SetDefault("logging.enable_rotation", d.Logging.EnableRotation)
	v.SetDefault("logging.retention_days", d.Logging.RetentionDays)

	v.SetDefault("alerts.dispatch.policy", string(d.Alerts.Dispatch.Policy))
	v.SetDefault("alerts.dispatch.channel_timeout", d.Alerts.Dispatch.ChannelTimeout)
	v.SetDefault("alerts.location_timeout", d.Alerts.LocationTimeout)
	v.SetDefault("alerts.audio_follow_up", false)
	v.SetDefault("alerts.server.attach_audio", false)
	v.SetDefault("alerts.server.timeout", 15*time.Second)
	for _, key := range []string{
		"alerts.mattermost.webhook_url", "alerts.mattermost.channel", "alerts.mattermost.username", "alerts.mattermost.icon_url",
		"alerts.telegram.bot_token", "alerts.telegram.chat_id", "alerts.telegram.api_url",
		"alerts.email.smtp_host", "alerts.email.username", "alerts.email.password", "alerts.email.from",
		"twilio.account_sid", "twilio.auth_token", "twilio.from", "twilio.base_url",
	} {
		v.SetDefault(key, "")
	}
	for _, key := range []string{"alerts.mattermost.enabled", "alerts.telegram.enabled", "alerts.email.enabled", "alerts.email.use_tls", "alerts.email.skip_verify"} {
		v.SetDefault(key, false)
	}
	v.SetDefault("alerts.email.smtp_port", 587)
	v.SetDefault("alerts.email.to", []string{})

	v.SetDefault("network.mode", d.Network.Mode)
	v.SetDefault("network.probe.url", d.Network.Probe.URL)
	v.SetDefault("network.probe.timeout", d.Network.Probe.Timeout)

	v.SetDefault("location.ip_enabled", d.Location.IPEnabled)
	v.SetDefault("location.ip.url", d.Location.IP.URL)
	v.SetDefault("location.ip.timeout", d.Location.IP.Timeout)
	v.SetDefault("location.fixed", "")

	v.SetDefault("recorder.enabled", d.Recorder.Enabled)
	v.SetDefault("recorder.dir", d.Recorder.Dir)
	v.SetDefault("recorder.capture.program", d.Recorder.Capture.Program)
	v.SetDefault("recorder.capture.stop_timeout", d.Recorder.Capture.StopTimeout)

	v.SetDefault("volume.presses", d.Volume.Presses)
	v.SetDefault("volume.window", d.Volume.Window)
}

// Validate rejects values the daemon cannot run with.
func (c *Config) Validate() error {
	switch c.Network.Mode {
	case ModeAuto, ModeOnline, ModeOffline:
	default:
		return fmt.Errorf("network.mode must be auto, online or offline, got %q", c.Network.Mode)
	}
	switch c.Alerts.Dispatch.Policy {
	case alerts.PolicyParallel, alerts.PolicyFallback:
	default:
		return fmt.Errorf("alerts.dispatch.policy must be parallel or fallback, got %q", c.Alerts.Dispatch.Policy)
	}
	if c.Location.Fixed != "" {
		if _, err := c.Location.FixedFix(); err != nil {
			return err
		}
	}
	if c.Alerts.Email.Enabled && len(c.Alerts.Email.To) == 0 {
		return errors.New("alerts.email.to needs at least one recipient")
	}
	return nil
}

// FixedFix parses Location.Fixed.
func (l LocationConfig) FixedFix() (location.Fix, error) {
	lat, lon, ok := strings.Cut(l.Fixed, ",")
	if !ok {
		return location.Fix{}, fmt.Errorf("location.fixed must be \"lat,lon\", got %q", l.Fixed)
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil || la < -90 || la > 90 {
		return location.Fix{}, fmt.Errorf("location.fixed: invalid latitude %q", lat)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil || lo < -180 || lo > 180 {
		return location.Fix{}, fmt.Errorf("location.fixed: invalid longitude %q", lon)
	}
	return location.Fix{Lat: la, Lon: lo, Provider: "fixed"}, nil
}

// Checker builds the connectivity checker for the configured mode.
func (c *Config) Checker() network.Checker {
	switch c.Network.Mode {
	case ModeOnline:
		return network.StaticChecker{Online: true}
	case ModeOffline:
		return network.StaticChecker{Online: false}
	}
	return network.NewProbeChecker(&c.Network.Probe)
}

// Locators builds the location providers, fixed position first.
func (c *Config) Locators() []location.Provider {
	var out []location.Provider
	if fix, err := c.Location.FixedFix(); err == nil {
		out = append(out, location.StaticProvider{Fix: fix})
	}
	if c.Location.IPEnabled {
		out = append(out, location.NewIPProvider(&c.Location.IP))
	}
	return out
}

// SMSSender returns the Twilio backend, or nil when it is not configured.
func (c *Config) SMSSender() sms.Sender {
	if c.Twilio.AccountSID == "" || c.Twilio.AuthToken == "" || c.Twilio.From == "" {
		return nil
	}
	return sms.NewTwilioSender(&c.Twilio)
}
