package retry

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/distbuilder/internal/config"
)

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	Mode    config.RetryBackoffMode // fixed|linear|exponential
	Initial time.Duration           // base delay
	Max     time.Duration           // cap for growth
}

// DefaultPolicy returns a sensible default policy (fixed, 5s initial, 30s cap).
// Fixed matches the flat multi-second sleep the freezer retry historically used.
func DefaultPolicy() Policy {
	return Policy{Mode: config.RetryBackoffFixed, Initial: 5 * time.Second, Max: 30 * time.Second}
}

// NewPolicy builds a policy from raw config fields; zero/invalid values fall back to defaults.
func NewPolicy(mode config.RetryBackoffMode, initial, maxDuration time.Duration) Policy {
	p := DefaultPolicy()
	if initial > 0 {
		p.Initial = initial
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	switch mode {
	case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
		p.Mode = mode
	default:
		// unknown -> keep default
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the backoff delay for the given retry attempt number (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case config.RetryBackoffLinear:
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	case config.RetryBackoffExponential:
		d := p.Initial * (1 << (retryCount - 1))
		if d > p.Max {
			return p.Max
		}
		return d
	default: // fixed
		return p.Initial
	}
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max must be >0")
	}
	return nil
}

// Sleeper abstracts the inter-attempt pause so tests can skip real delays.
// Sleep returns early when ctx is cancelled; callers check ctx.Err after.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// DefaultSleeper is the production sleeper.
var DefaultSleeper Sleeper = realSleeper{}
