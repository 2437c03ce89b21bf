package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	KeySMSNumber        = "sms_number"
	KeyUserName         = "user_name"
	KeyUserPhone        = "user_phone"
	KeyServerURL        = "server_url"
	KeyServerAuthToken  = "server_auth_token"
	KeyRecordingTime    = "recording_time"
	KeySelectedLanguage = "selected_language"

	// legacyLanguageKey is the name older builds stored the language under.
	legacyLanguageKey = "app_language"
)

// Keys lists every known setting in display order.
var Keys = []string{
	KeySMSNumber,
	KeyUserName,
	KeyUserPhone,
	KeyServerURL,
	KeyServerAuthToken,
	KeyRecordingTime,
	KeySelectedLanguage,
}

var defaults = map[string]string{
	KeyRecordingTime:    "30000",
	KeySelectedLanguage: "en",
}

// Languages maps the supported language codes to display names.
var Languages = map[string]string{
	"en": "English",
	"ru": "Russian",
	"es": "Spanish",
	"fr": "French",
}

var (
	ErrNotFound      = errors.New("setting not found")
	ErrUnknownKey    = errors.New("unknown setting")
	ErrInvalidValue  = errors.New("invalid setting value")
	ErrNoAlertMethod = errors.New("set at least one alert method: SMS number or server URL")
)

// Store is flat string key-value persistence.
type Store interface {
	// Get returns ErrNotFound for keys never saved.
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	// All returns every stored pair.
	All() (map[string]string, error)
	Clear() error
}

// Default returns the documented default for key; "" when there is none.
func Default(key string) string {
	return defaults[key]
}

// Known reports whether key is one of Keys.
func Known(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Load returns the stored value for key or its default. The language falls
// back to the legacy key before the default.
func Load(s Store, key string) (string, error) {
	v, err := s.Get(key)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("failed to load %s: %w", key, err)
	}

	if key == KeySelectedLanguage {
		if legacy, lerr := s.Get(legacyLanguageKey); lerr == nil {
			return legacy, nil
		}
	}
	return Default(key), nil
}

// Save stores value under key unchanged.
func Save(s Store, key, value string) error {
	if err := s.Set(key, value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// Settings is a snapshot of every user setting.
type Settings struct {
	SMSNumber       string `json:"sms_number"`
	UserName        string `json:"user_name"`
	UserPhone       string `json:"user_phone"`
	ServerURL       string `json:"server_url"`
	ServerAuthToken string `json:"server_auth_token"`
	RecordingTime   string `json:"recording_time"`
	Language        string `json:"selected_language"`
}

// RecordingDuration parses recording_time; zero disables recording.
func (s Settings) RecordingDuration() time.Duration {
	ms, err := strconv.ParseInt(strings.TrimSpace(s.RecordingTime), 10, 64)
	if err != nil || ms < 0 {
		ms, _ = strconv.ParseInt(defaults[KeyRecordingTime], 10, 64)
	}
	return time.Duration(ms) * time.Millisecond
}

// Values returns the settings keyed like the store.
func (s Settings) Values() map[string]string {
	return map[string]string{
		KeySMSNumber:        s.SMSNumber,
		KeyUserName:         s.UserName,
		KeyUserPhone:        s.UserPhone,
		KeyServerURL:        s.ServerURL,
		KeyServerAuthToken:  s.ServerAuthToken,
		KeyRecordingTime:    s.RecordingTime,
		KeySelectedLanguage: s.Language,
	}
}

func (s *Settings) set(key, value string) {
	switch key {
	case KeySMSNumber:
		s.SMSNumber = value
	case KeyUserName:
		s.UserName = value
	case KeyUserPhone:
		s.UserPhone = value
	case KeyServerURL:
		s.ServerURL = value
	case KeyServerAuthToken:
		s.ServerAuthToken = value
	case KeyRecordingTime:
		s.RecordingTime = value
	case KeySelectedLanguage:
		s.Language = value
	}
}

// Read loads every setting once.
func Read(s Store) (Settings, error) {
	var out Settings
	for _, key := range Keys {
		v, err := Load(s, key)
		if err != nil {
			return Settings{}, err
		}
		out.set(key, v)
	}
	return out, nil
}

// Validate applies the rules of the settings screen. Values are trimmed
// first.
func (s Settings) Validate() error {
	sms := strings.TrimSpace(s.SMSNumber)
	if sms != "" && !strings.HasPrefix(sms, "+") {
		return fmt.Errorf("%w: phone number must start with '+' (format: +79123456789)", ErrInvalidValue)
	}
	if sms == "" && strings.TrimSpace(s.ServerURL) == "" {
		return ErrNoAlertMethod
	}
	if rt := strings.TrimSpace(s.RecordingTime); rt != "" {
		ms, err := strconv.ParseInt(rt, 10, 64)
		if err != nil || ms < 0 {
			return fmt.Errorf("%w: recording_time must be a non-negative number of milliseconds", ErrInvalidValue)
		}
	}
	if lang := strings.TrimSpace(s.Language); lang != "" {
		if _, ok := Languages[lang]; !ok {
			return fmt.Errorf("%w: unsupported language %q", ErrInvalidValue, lang)
		}
	}
	return nil
}

// Normalize trims every field and fills empty recording time and language
// with their defaults.
func (s Settings) Normalize() Settings {
	out := Settings{
		SMSNumber:       strings.TrimSpace(s.SMSNumber),
		UserName:        strings.TrimSpace(s.UserName),
		UserPhone:       strings.TrimSpace(s.UserPhone),
		ServerURL:       strings.TrimSpace(s.ServerURL),
		ServerAuthToken: strings.TrimSpace(s.ServerAuthToken),
		RecordingTime:   strings.TrimSpace(s.RecordingTime),
		Language:        strings.TrimSpace(s.Language),
	}
	if out.RecordingTime == "" {
		out.RecordingTime = defaults[KeyRecordingTime]
	}
	if out.Language == "" {
		out.Language = defaults[KeySelectedLanguage]
	}
	return out
}

// Write validates the snapshot and saves every key. Nothing is saved when
// validation fails.
func Write(s Store, in Settings) error {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return err
	}
	for key, value := range in.Values() {
		if err := Save(s, key, value); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every stored setting.
func Clear(s Store) error {
	if err := s.Clear(); err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}
	return nil
}
