package location

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultTimeout is how long Locate waits for the first fix.
const DefaultTimeout = 10 * time.Second

// Unavailable is the text alerts carry when no fix was obtained.
const Unavailable = "Location unavailable"

var (
	ErrUnavailable      = errors.New("location unavailable")
	ErrPermissionDenied = errors.New("location permission denied")
)

// Fix is a single position report.
type Fix struct {
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"lon"`
	Accuracy float64   `json:"accuracy,omitempty"`
	Provider string    `json:"provider,omitempty"`
	Time     time.Time `json:"time"`
}

func (f Fix) String() string {
	return fmt.Sprintf("%.6f,%.6f", f.Lat, f.Lon)
}

// MapsURL links the fix on Google Maps.
func (f Fix) MapsURL() string {
	return "https://maps.google.com/?q=" + f.String()
}

// Provider produces one fix per call.
type Provider interface {
	Name() string
	Locate(ctx context.Context) (Fix, error)
}

type result struct {
	fix Fix
	err error
}

/**
 * Locate asks every provider at once and returns the first fix reported.
 * It waits at most timeout. When no provider succeeds in time, when all of
 * them fail, or when permission is denied, the returned error wraps
 * ErrUnavailable.
 *
 * @param ctx Parent context
 * @param timeout Upper bound on the wait; zero selects DefaultTimeout
 * @param providers Providers to query concurrently
 * @return Fix The first fix
 * @return error nil or an error wrapping ErrUnavailable
 */
func Locate(ctx context.Context, timeout time.Duration, providers ...Provider) (Fix, error) {
	if len(providers) == 0 {
		return Fix{}, fmt.Errorf("%w: no provider", ErrUnavailable)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make(chan result, len(providers))
	for _, p := range providers {
		go func(p Provider) {
			fix, err := p.Locate(ctx)
			if err == nil && fix.Provider == "" {
				fix.Provider = p.Name()
			}
			if err != nil {
				err = fmt.Errorf("%s: %w", p.Name(), err)
			}
			results <- result{fix: fix, err: err}
		}(p)
	}

	var errs []string
	for range providers {
		select {
		case r := <-results:
			if r.err == nil {
				return r.fix, nil
			}
			if errors.Is(r.err, ErrPermissionDenied) {
				return Fix{}, fmt.Errorf("%w: %v", ErrUnavailable, r.err)
			}
			errs = append(errs, r.err.Error())
		case <-ctx.Done():
			return Fix{}, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		}
	}
	return Fix{}, fmt.Errorf("%w: %s", ErrUnavailable, strings.Join(errs, "; "))
}

// Describe renders a Locate outcome as alert text and link.
func Describe(fix Fix, err error) (text, mapsURL string) {
	if err != nil {
		return Unavailable, ""
	}
	return fix.String(), fix.MapsURL()
}

// StaticProvider always reports the same outcome.
type StaticProvider struct {
	Fix Fix
	Err error
	// Delay postpones the answer, honoring ctx.
	Delay time.Duration
}

func (s StaticProvider) Name() string {
	return "static"
}

func (s StaticProvider) Locate(ctx context.Context) (Fix, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return Fix{}, ctx.Err()
		}
	}
	if s.Err != nil {
		return Fix{}, s.Err
	}
	fix := s.Fix
	if fix.Time.IsZero() {
		fix.Time = time.Now()
	}
	return fix, nil
}
