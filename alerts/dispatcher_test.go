package alerts

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	name     string
	kind     Kind
	err      error
	disabled bool
	delay    time.Duration
	panics   bool
	calls    int32
}

func (f *fakeChannel) Name() string  { return f.name }
func (f *fakeChannel) Kind() Kind    { return f.kind }
func (f *fakeChannel) Enabled() bool { return !f.disabled }

func (f *fakeChannel) Send(ctx context.Context, alert Alert) error {
	atomic.AddInt32(&f.calls, 1)
	if f.panics {
		panic("telephony service crashed")
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.err
}

func (f *fakeChannel) called() bool { return atomic.LoadInt32(&f.calls) > 0 }

func sms(err error) *fakeChannel    { return &fakeChannel{name: "SMS", kind: KindSMS, err: err} }
func server(err error) *fakeChannel { return &fakeChannel{name: "Server", kind: KindHTTP, err: err} }

func testAlert() Alert {
	return Alert{ID: "a1", UserName: "Jane", UserPhone: "+15550001111", Location: "1.0,2.0", Timestamp: time.Now()}
}

func TestOfflineUsesSMSOnly(t *testing.T) {
	d := NewDispatcher(nil, nil)

	for _, tc := range []struct {
		name   string
		smsErr error
		want   bool
	}{
		{"sms succeeds", nil, true},
		{"sms fails", errors.New("permission denied"), false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, h := sms(tc.smsErr), server(nil)
			res := d.Dispatch(context.Background(), testAlert(), false, []Channel{h, s})

			assert.Equal(t, tc.want, res.Success)
			assert.True(t, s.called())
			assert.False(t, h.called(), "HTTP must not be attempted offline")
			assert.Contains(t, res.Details, "SMS")
			assert.NotContains(t, res.Details, "Server")
			require.Len(t, res.Messages, 1)
		})
	}
}

func TestOfflineWithoutSMS(t *testing.T) {
	d := NewDispatcher(nil, nil)
	res := d.Dispatch(context.Background(), testAlert(), false, []Channel{server(nil)})

	assert.False(t, res.Success)
	assert.Equal(t, []string{"No network connection and no SMS number configured"}, res.Messages)
}

func TestOnlineSuccessIsAnyChannel(t *testing.T) {
	fail := errors.New("boom")
	d := NewDispatcher(nil, nil)

	for _, tc := range []struct {
		name      string
		httpErr   error
		smsErr    error
		want      bool
		wantInfix string
	}{
		{"both succeed", nil, nil, true, "Sent via Server, SMS"},
		{"http only", nil, fail, true, "Sent via Server"},
		{"sms only", fail, nil, true, "Sent via SMS"},
		{"none", fail, fail, false, "Delivery failed via Server, SMS"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, h := sms(tc.smsErr), server(tc.httpErr)
			res := d.Dispatch(context.Background(), testAlert(), true, []Channel{h, s})

			assert.Equal(t, tc.want, res.Success)
			assert.True(t, s.called())
			assert.True(t, h.called())
			assert.Equal(t, tc.wantInfix, res.Details)
			require.Len(t, res.Messages, 2)
		})
	}
}

func TestMessagesFollowChannelOrder(t *testing.T) {
	d := NewDispatcher(nil, nil)
	slow := &fakeChannel{name: "Server", kind: KindHTTP, delay: 30 * time.Millisecond}
	s := sms(errors.New("invalid number"))

	res := d.Dispatch(context.Background(), testAlert(), true, []Channel{slow, s})
	assert.Equal(t, []string{"Server: sent", "SMS: failed: invalid number"}, res.Messages)
}

func TestDisabledChannelsAreSkipped(t *testing.T) {
	d := NewDispatcher(nil, nil)
	h := server(nil)
	h.disabled = true
	s := sms(nil)

	res := d.Dispatch(context.Background(), testAlert(), true, []Channel{h, s, nil})
	assert.True(t, res.Success)
	assert.False(t, h.called())
	assert.Equal(t, "Sent via SMS", res.Details)
	assert.Equal(t, []string{"SMS: sent"}, res.Messages)
}

func TestNoChannelsOnline(t *testing.T) {
	d := NewDispatcher(nil, nil)
	res := d.Dispatch(context.Background(), testAlert(), true, nil)
	assert.False(t, res.Success)
	assert.Equal(t, "No channel available", res.Details)
}

func TestFallbackPolicy(t *testing.T) {
	d := NewDispatcher(&Config{Policy: PolicyFallback}, nil)

	t.Run("http succeeds, sms skipped", func(t *testing.T) {
		s, h := sms(nil), server(nil)
		res := d.Dispatch(context.Background(), testAlert(), true, []Channel{h, s})
		assert.True(t, res.Success)
		assert.False(t, s.called())
		assert.Equal(t, []string{"Server: sent"}, res.Messages)
	})

	t.Run("http fails, sms attempted", func(t *testing.T) {
		s, h := sms(nil), server(errors.New("status 500"))
		res := d.Dispatch(context.Background(), testAlert(), true, []Channel{h, s})
		assert.True(t, res.Success)
		assert.True(t, s.called())
		assert.Equal(t, "Sent via SMS", res.Details)
		assert.Len(t, res.Messages, 2)
	})
}

func TestChannelTimeoutAndPanic(t *testing.T) {
	d := NewDispatcher(&Config{ChannelTimeout: 20 * time.Millisecond}, nil)
	hung := &fakeChannel{name: "Server", kind: KindHTTP, delay: 500 * time.Millisecond}
	crashing := &fakeChannel{name: "SMS", kind: KindSMS, panics: true}

	start := time.Now()
	res := d.Dispatch(context.Background(), testAlert(), true, []Channel{hung, crashing})

	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.False(t, res.Success)
	require.Len(t, res.Messages, 2)
	assert.Contains(t, res.Messages[0], "Server: failed: timed out")
	assert.Contains(t, res.Messages[1], "SMS: failed: panic: telephony service crashed")
}

func TestAlertText(t *testing.T) {
	a := Alert{
		UserName:    "Jane Doe",
		UserPhone:   "+15550001111",
		MapsURL:     "https://maps.google.com/?q=1.5,2.5",
		Network:     "Wi-Fi",
		RecordedFor: 30 * time.Second,
	}
	assert.Equal(t, "ALERT: Jane Doe, tel:+15550001111. Loc: https://maps.google.com/?q=1.5,2.5. Net: Wi-Fi. Audio: recording 30s.", a.Text())

	done := a
	done.AudioPath = "/tmp/emergency_20260314_150926.aac"
	done.RecordedFor = 12 * time.Second
	assert.Equal(t, "ALERT: Jane Doe, tel:+15550001111. Loc: https://maps.google.com/?q=1.5,2.5. Net: Wi-Fi. Audio: 12s recorded.", done.Text())

	bare := Alert{}
	assert.Equal(t, "ALERT: unknown user. Loc: unavailable.", bare.Text())

	m := a.FieldMap()
	assert.Equal(t, "30", m["audio_seconds"])
	assert.Equal(t, a.Text(), m["message"])
}

func TestResultLinesIsACopy(t *testing.T) {
	r := Result{Success: true, Messages: []string{"SMS: sent"}, Details: "Sent via SMS"}
	lines := r.Lines()
	lines[0] = "changed"
	assert.Equal(t, "SMS: sent", r.Messages[0])
	assert.Equal(t, "Alert sent. Sent via SMS", r.Summary())
}
