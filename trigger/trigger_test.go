package trigger

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVolumeSequence(t *testing.T) {
	mock := clock.NewMock()
	fired := 0
	v := NewVolumeSequence(nil, mock, func() { fired++ })

	assert.False(t, v.Press())
	mock.Add(400 * time.Millisecond)
	assert.False(t, v.Press())
	mock.Add(400 * time.Millisecond)
	assert.True(t, v.Press())
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, v.Count())
}

func TestVolumeSequenceGapResets(t *testing.T) {
	mock := clock.NewMock()
	fired := 0
	v := NewVolumeSequence(nil, mock, func() { fired++ })

	v.Press()
	mock.Add(500 * time.Millisecond)
	v.Press()
	mock.Add(1500 * time.Millisecond)
	assert.False(t, v.Press(), "the long gap starts a new sequence")
	assert.Equal(t, 1, v.Count())

	mock.Add(time.Second)
	v.Press()
	mock.Add(time.Second)
	assert.True(t, v.Press(), "a gap equal to the window still counts")
	assert.Equal(t, 1, fired)
}

func TestVolumeSequenceSixPressesFireTwice(t *testing.T) {
	mock := clock.NewMock()
	fired := 0
	v := NewVolumeSequence(&VolumeConfig{Presses: 3, Window: time.Second}, mock, func() { fired++ })
	for i := 0; i < 6; i++ {
		v.Press()
		mock.Add(100 * time.Millisecond)
	}
	assert.Equal(t, 2, fired)
}

func TestParseSource(t *testing.T) {
	s, err := ParseSource("")
	require.NoError(t, err)
	assert.Equal(t, Button, s)

	s, err = ParseSource("widget")
	require.NoError(t, err)
	assert.Equal(t, Widget, s)

	_, err = ParseSource("shake")
	assert.Error(t, err)
}
