package sos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ahmadsaubani/go-sos-lib/alerts"
	"github.com/ahmadsaubani/go-sos-lib/alerts/email"
	"github.com/ahmadsaubani/go-sos-lib/alerts/mattermost"
	"github.com/ahmadsaubani/go-sos-lib/alerts/server"
	"github.com/ahmadsaubani/go-sos-lib/alerts/sms"
	"github.com/ahmadsaubani/go-sos-lib/alerts/telegram"
	"github.com/ahmadsaubani/go-sos-lib/location"
	"github.com/ahmadsaubani/go-sos-lib/logging"
	"github.com/ahmadsaubani/go-sos-lib/network"
	"github.com/ahmadsaubani/go-sos-lib/recorder"
	"github.com/ahmadsaubani/go-sos-lib/settings"
	"github.com/ahmadsaubani/go-sos-lib/trigger"
)

// ErrAlertInFlight is returned when a trigger arrives while an alert is
// still being dispatched.
var ErrAlertInFlight = errors.New("an alert is already being sent")

// ErrNoGateway is the SMS failure reported when no telephony backend is set.
var ErrNoGateway = errors.New("no SMS gateway configured")

// Config holds the static channel configuration. Destinations the user edits
// (SMS number, server URL and token) come from settings on every alert.
type Config struct {
	Dispatch        alerts.Config     `yaml:"dispatch" mapstructure:"dispatch"`
	LocationTimeout time.Duration     `yaml:"location_timeout" mapstructure:"location_timeout"`
	Server          server.Config     `yaml:"server" mapstructure:"server"`
	Mattermost      mattermost.Config `yaml:"mattermost" mapstructure:"mattermost"`
	Telegram        telegram.Config   `yaml:"telegram" mapstructure:"telegram"`
	Email           email.Config      `yaml:"email" mapstructure:"email"`

	// AudioFollowUp sends the finished recording through channels able to
	// carry it once recording stops.
	AudioFollowUp bool `yaml:"audio_follow_up" mapstructure:"audio_follow_up"`
}

// Deps are the collaborators a Service drives.
type Deps struct {
	Store    settings.Store
	Network  network.Checker
	Locators []location.Provider
	// Recorder may be nil, which disables capture.
	Recorder *recorder.Recorder
	// SMS is the telephony backend; nil makes every SMS attempt fail.
	SMS    sms.Sender
	Logger *logging.Logger
	Clock  clock.Clock
}

// Service runs the alert flow: settings, network, location, recording,
// channel selection and dispatch.
type Service struct {
	config     *Config
	deps       Deps
	dispatcher *alerts.Dispatcher
	logger     *logging.Logger
	clock      clock.Clock
	busy       atomic.Bool
	wg         sync.WaitGroup

	// channels overrides per-alert channel construction.
	channels func(settings.Settings) []alerts.Channel
}

/**
 * New creates the alert service.
 *
 * @param config Static channel configuration; nil uses the defaults
 * @param deps Settings store, network checker, locators, recorder and SMS backend
 * @return *Service
 */
func New(config *Config, deps Deps) *Service {
	if config == nil {
		config = &Config{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Store == nil {
		deps.Store = settings.NewMemoryStore()
	}
	if deps.Network == nil {
		deps.Network = network.NewProbeChecker(nil)
	}

	s := &Service{
		config:     config,
		deps:       deps,
		dispatcher: alerts.NewDispatcher(&config.Dispatch, deps.Logger),
		logger:     deps.Logger,
		clock:      deps.Clock,
	}
	s.channels = s.buildChannels
	return s
}

// Store returns the settings store the service reads.
func (s *Service) Store() settings.Store {
	return s.deps.Store
}

// Recorder returns the recorder, or nil when capture is disabled.
func (s *Service) Recorder() *recorder.Recorder {
	return s.deps.Recorder
}

// Network returns the connectivity checker.
func (s *Service) Network() network.Checker {
	return s.deps.Network
}

// Busy reports whether an alert is being dispatched.
func (s *Service) Busy() bool {
	return s.busy.Load()
}

/**
 * Trigger raises one alert and waits for its dispatch to finish.
 * Only one alert runs at a time; a trigger arriving meanwhile is rejected
 * with ErrAlertInFlight rather than queued.
 *
 * @param ctx Request context; alert metadata is added to it
 * @param source Surface the alert came from
 * @return alerts.Result Per-channel outcome
 * @return error ErrAlertInFlight or a settings read failure
 */
func (s *Service) Trigger(ctx context.Context, source trigger.Source) (alerts.Result, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return alerts.Result{}, ErrAlertInFlight
	}
	defer s.busy.Store(false)
	return s.run(ctx, source)
}

// TriggerAsync runs Trigger on a new goroutine and hands the outcome to done.
// It returns false, without calling done, when an alert is already running.
func (s *Service) TriggerAsync(source trigger.Source, done func(alerts.Result, error)) bool {
	if !s.busy.CompareAndSwap(false, true) {
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)
		res, err := s.run(context.Background(), source)
		if done != nil {
			done(res, err)
		}
	}()
	return true
}

// Wait blocks until asynchronous alerts and audio follow-ups have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) run(ctx context.Context, source trigger.Source) (alerts.Result, error) {
	ctx, alertID := logging.WithAlert(ctx, source.String())
	start := s.clock.Now()

	st, err := settings.Read(s.deps.Store)
	if err != nil {
		err = fmt.Errorf("failed to read settings: %w", err)
		s.logger.Error(ctx, err)
		s.logger.ErrorLoki(ctx, logging.LevelCritical, err)
		return alerts.Result{}, err
	}

	net := s.deps.Network.Check(ctx)

	fix, lerr := location.Locate(ctx, s.config.LocationTimeout, s.deps.Locators...)
	if lerr != nil {
		s.logger.Warn(fmt.Sprintf("[ALERT:%s] %v", alertID, lerr))
	}
	loc, mapsURL := location.Describe(fix, lerr)

	audioPath, recorded := s.startRecording(ctx, st.RecordingDuration())

	alert := alerts.Alert{
		ID:          alertID,
		UserName:    st.UserName,
		UserPhone:   st.UserPhone,
		Location:    loc,
		MapsURL:     mapsURL,
		Network:     net.Type,
		RecordedFor: recorded,
		Trigger:     source.String(),
		Timestamp:   start,
	}

	channels := s.channels(st)
	res := s.dispatcher.Dispatch(ctx, alert, net.Online, channels)
	s.logger.Infof("[ALERT:%s] %s (%s, online=%t) %s", alertID, source, net.Type, net.Online, res.Summary())

	if recorded > 0 && s.config.AudioFollowUp {
		s.followUp(ctx, alert, audioPath, channels)
	}
	return res, nil
}

func (s *Service) startRecording(ctx context.Context, d time.Duration) (string, time.Duration) {
	if d <= 0 || s.deps.Recorder == nil {
		return "", 0
	}
	path, err := s.deps.Recorder.StartFor(d)
	if err != nil {
		s.logger.Error(ctx, err)
		s.logger.ErrorLoki(ctx, logging.LevelError, err)
		return "", 0
	}
	return path, d
}

// followUp waits for the recording and sends it through the channels that can
// carry audio, provided the network is up by then.
func (s *Service) followUp(ctx context.Context, alert alerts.Alert, audioPath string, channels []alerts.Channel) {
	var carriers []alerts.Channel
	for _, ch := range channels {
		if a, ok := ch.(alerts.Attacher); ok && a.AttachesAudio() && ch.Kind() == alerts.KindHTTP {
			carriers = append(carriers, ch)
		}
	}
	if len(carriers) == 0 {
		return
	}

	meta, _ := logging.FromContext(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := logging.WithMeta(context.Background(), meta)

		rec := s.deps.Recorder
		path, err := rec.Wait(ctx)
		if errors.Is(err, recorder.ErrNotRecording) && rec.LastPath() == audioPath {
			path, err = audioPath, nil
		}
		if err != nil || path != audioPath {
			s.logger.Warn(fmt.Sprintf("[ALERT:%s] recording %s was superseded", alert.ID, audioPath))
			return
		}
		net := s.deps.Network.Check(ctx)
		if !net.Online {
			s.logger.Warn(fmt.Sprintf("[ALERT:%s] recording %s kept locally, no network", alert.ID, path))
			return
		}

		alert.AudioPath = path
		if d := rec.LastDuration().Round(time.Second); d > 0 && rec.LastPath() == path {
			alert.RecordedFor = d
		}
		res := s.dispatcher.Dispatch(ctx, alert, true, carriers)
		s.logger.Infof("[ALERT:%s] audio follow-up: %s", alert.ID, strings.Join(res.Lines(), "; "))
	}()
}

// buildChannels assembles the channel list for one alert in reporting order.
func (s *Service) buildChannels(st settings.Settings) []alerts.Channel {
	srv := s.config.Server
	srv.Enabled = strings.TrimSpace(st.ServerURL) != ""
	srv.URL = st.ServerURL
	srv.AuthToken = st.ServerAuthToken

	sender := s.deps.SMS
	if sender == nil {
		sender = noGateway{}
	}

	return []alerts.Channel{
		server.New(&srv),
		mattermost.New(&s.config.Mattermost),
		telegram.New(&s.config.Telegram),
		email.New(&s.config.Email),
		sms.New(&sms.Config{Enabled: true, Number: st.SMSNumber}, sender),
	}
}

type noGateway struct{}

func (noGateway) SendText(context.Context, string, string) error {
	return ErrNoGateway
}
