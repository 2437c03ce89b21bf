package alerts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ahmadsaubani/go-sos-lib/logging"
)

// Policy selects how SMS relates to the HTTP channels when online.
type Policy string

const (
	// PolicyParallel attempts SMS alongside every HTTP channel.
	PolicyParallel Policy = "parallel"
	// PolicyFallback attempts SMS only when no HTTP channel succeeded.
	PolicyFallback Policy = "fallback"
)

const DefaultChannelTimeout = 15 * time.Second

type Config struct {
	Policy         Policy        `yaml:"policy" mapstructure:"policy"`
	ChannelTimeout time.Duration `yaml:"channel_timeout" mapstructure:"channel_timeout"`
}

type Dispatcher struct {
	config *Config
	logger *logging.Logger
}

/**
 * NewDispatcher creates the alert dispatcher.
 * The dispatcher decides which channels to attempt for the current network
 * state, runs each attempt once under a fixed timeout and folds the outcomes
 * into a Result.
 *
 * @param config Policy and per-channel timeout; nil selects the defaults
 * @param logger Destination for per-channel delivery events; nil discards
 * @return *Dispatcher A dispatcher ready for use
 */
func NewDispatcher(config *Config, logger *logging.Logger) *Dispatcher {
	if config == nil {
		config = &Config{}
	}
	if config.Policy == "" {
		config.Policy = PolicyParallel
	}
	if config.ChannelTimeout <= 0 {
		config.ChannelTimeout = DefaultChannelTimeout
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Dispatcher{config: config, logger: logger}
}

// Policy returns the configured policy.
func (d *Dispatcher) Policy() Policy {
	return d.config.Policy
}

type outcome struct {
	channel   Channel
	attempted bool
	err       error
}

/**
 * Dispatch sends the alert through the given channels and reports what
 * happened. It never returns an error: every channel failure becomes a line
 * in Result.Messages.
 *
 * Offline only SMS channels are attempted. Online every HTTP channel is
 * attempted and SMS is attempted according to the policy. Success is true
 * when at least one attempted channel delivered the alert.
 *
 * @param ctx Parent context; cancelling it aborts pending attempts
 * @param alert The alert payload
 * @param online Whether a validated data network is available
 * @param channels Candidate channels in reporting order
 * @return Result Aggregated outcome
 */
func (d *Dispatcher) Dispatch(ctx context.Context, alert Alert, online bool, channels []Channel) Result {
	outcomes := make([]outcome, 0, len(channels))
	for _, ch := range channels {
		if ch == nil {
			continue
		}
		if t, ok := ch.(Toggle); ok && !t.Enabled() {
			continue
		}
		outcomes = append(outcomes, outcome{channel: ch})
	}

	if !online {
		return d.dispatchOffline(ctx, alert, outcomes)
	}

	if len(outcomes) == 0 {
		return Result{
			Success:  false,
			Messages: []string{"No alert channel configured"},
			Details:  "No channel available",
		}
	}

	switch d.config.Policy {
	case PolicyFallback:
		d.attempt(ctx, alert, outcomes, func(c Channel) bool { return c.Kind() == KindHTTP })
		if !anySucceeded(outcomes) {
			d.attempt(ctx, alert, outcomes, func(c Channel) bool { return c.Kind() == KindSMS })
		}
	default:
		d.attempt(ctx, alert, outcomes, func(Channel) bool { return true })
	}

	return summarize(outcomes, "")
}

func (d *Dispatcher) dispatchOffline(ctx context.Context, alert Alert, outcomes []outcome) Result {
	var smsOnly []outcome
	for _, o := range outcomes {
		if o.channel.Kind() == KindSMS {
			smsOnly = append(smsOnly, o)
		}
	}

	if len(smsOnly) == 0 {
		return Result{
			Success:  false,
			Messages: []string{"No network connection and no SMS number configured"},
			Details:  "No channel available",
		}
	}

	d.attempt(ctx, alert, smsOnly, func(Channel) bool { return true })
	return summarize(smsOnly, " (no network)")
}

// attempt runs the selected channels concurrently. Each channel gets one try.
func (d *Dispatcher) attempt(ctx context.Context, alert Alert, outcomes []outcome, selected func(Channel) bool) {
	var wg sync.WaitGroup

	for i := range outcomes {
		if outcomes[i].attempted || !selected(outcomes[i].channel) {
			continue
		}
		outcomes[i].attempted = true

		wg.Add(1)
		go func(o *outcome) {
			defer wg.Done()
			start := time.Now()
			o.err = d.send(ctx, o.channel, alert)
			d.logger.Delivery(ctx, o.channel.Name(), time.Since(start), o.err)
		}(&outcomes[i])
	}

	wg.Wait()
}

// send bounds a single attempt by the channel timeout, even when the channel
// does not watch its context, and turns a panic into an error.
func (d *Dispatcher) send(ctx context.Context, ch Channel, alert Alert) error {
	ctx, cancel := context.WithTimeout(ctx, d.config.ChannelTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		done <- ch.Send(ctx, alert)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("timed out: %w", ctx.Err())
	}
}

func anySucceeded(outcomes []outcome) bool {
	for _, o := range outcomes {
		if o.attempted && o.err == nil {
			return true
		}
	}
	return false
}

func summarize(outcomes []outcome, suffix string) Result {
	var messages, delivered []string

	for _, o := range outcomes {
		if !o.attempted {
			continue
		}
		if o.err != nil {
			messages = append(messages, fmt.Sprintf("%s: failed: %v", o.channel.Name(), o.err))
			continue
		}
		messages = append(messages, o.channel.Name()+": sent")
		delivered = append(delivered, o.channel.Name())
	}

	if len(delivered) == 0 {
		names := make([]string, 0, len(outcomes))
		for _, o := range outcomes {
			if o.attempted {
				names = append(names, o.channel.Name())
			}
		}
		return Result{
			Success:  false,
			Messages: messages,
			Details:  "Delivery failed via " + strings.Join(names, ", ") + suffix,
		}
	}

	return Result{
		Success:  true,
		Messages: messages,
		Details:  "Sent via " + strings.Join(delivered, ", ") + suffix,
	}
}
