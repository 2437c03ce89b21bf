package settings

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	bs, err := OpenBolt(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { bs.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"bolt":   bs,
	}
}

func TestSaveThenLoad(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range Keys {
				value := "value-for-" + key
				require.NoError(t, Save(s, key, value))
				got, err := Load(s, key)
				require.NoError(t, err)
				assert.Equal(t, value, got)
			}

			require.NoError(t, Save(s, KeyUserName, ""))
			got, err := Load(s, KeyUserName)
			require.NoError(t, err)
			assert.Equal(t, "", got, "an explicitly saved empty value is returned as-is")
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range Keys {
				got, err := Load(s, key)
				require.NoError(t, err)
				assert.Equal(t, Default(key), got, key)
			}
			rt, _ := Load(s, KeyRecordingTime)
			assert.Equal(t, "30000", rt)
			lang, _ := Load(s, KeySelectedLanguage)
			assert.Equal(t, "en", lang)
		})
	}
}

func TestLegacyLanguageKey(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Set("app_language", "ru"))

	lang, err := Load(s, KeySelectedLanguage)
	require.NoError(t, err)
	assert.Equal(t, "ru", lang)

	require.NoError(t, Save(s, KeySelectedLanguage, "fr"))
	lang, _ = Load(s, KeySelectedLanguage)
	assert.Equal(t, "fr", lang)
}

func TestClear(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, Save(s, KeySMSNumber, "+15551234567"))
			require.NoError(t, Clear(s))

			all, err := s.All()
			require.NoError(t, err)
			assert.Empty(t, all)

			_, err = s.Get(KeySMSNumber)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestWriteValidates(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   Settings
		err  error
	}{
		{"number without plus", Settings{SMSNumber: "79123456789"}, ErrInvalidValue},
		{"no alert method", Settings{UserName: "Jane"}, ErrNoAlertMethod},
		{"negative recording", Settings{ServerURL: "https://x", RecordingTime: "-5"}, ErrInvalidValue},
		{"garbage recording", Settings{ServerURL: "https://x", RecordingTime: "soon"}, ErrInvalidValue},
		{"unknown language", Settings{ServerURL: "https://x", Language: "de"}, ErrInvalidValue},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := NewMemoryStore()
			assert.ErrorIs(t, Write(s, tc.in), tc.err)
			all, _ := s.All()
			assert.Empty(t, all, "nothing is saved when validation fails")
		})
	}
}

func TestWriteAndRead(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			in := Settings{
				SMSNumber: " +15551234567 ",
				UserName:  "Jane",
				UserPhone: "+15550001111",
				ServerURL: "",
				Language:  "es",
			}
			require.NoError(t, Write(s, in))

			got, err := Read(s)
			require.NoError(t, err)
			assert.Equal(t, "+15551234567", got.SMSNumber)
			assert.Equal(t, "Jane", got.UserName)
			assert.Equal(t, "30000", got.RecordingTime)
			assert.Equal(t, "es", got.Language)
			assert.Equal(t, 30*time.Second, got.RecordingDuration())
		})
	}
}

func TestRecordingDuration(t *testing.T) {
	assert.Equal(t, time.Duration(0), Settings{RecordingTime: "0"}.RecordingDuration())
	assert.Equal(t, 60*time.Second, Settings{RecordingTime: "60000"}.RecordingDuration())
	assert.Equal(t, 30*time.Second, Settings{RecordingTime: "bogus"}.RecordingDuration())
}

func TestKnown(t *testing.T) {
	assert.True(t, Known(KeyServerURL))
	assert.False(t, Known("app_language"))
}
