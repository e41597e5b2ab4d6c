// Package backoff implements the bounded exponential backoff shared by every
// poller in the service: the delay doubles per consecutive failure up to a cap,
// and a run of failures pauses the poller for a fixed window before it starts
// over from the base delay.
package backoff

import (
	"time"
)

const (
	DefaultBase        = 15 * time.Second
	DefaultMax         = 60 * time.Second
	DefaultMaxFailures = 6
	DefaultPause       = 5 * time.Minute
)

type Policy struct {
	Base        time.Duration `mapstructure:"poll_interval"`
	Max         time.Duration `mapstructure:"max_backoff"`
	MaxFailures int           `mapstructure:"max_failures"` // 0 never pauses
	Pause       time.Duration `mapstructure:"pause"`
}

// DefaultPolicy polls every 15s, backs off to 60s and pauses for 5 minutes
// after 6 consecutive failures.
func DefaultPolicy() Policy {
	return Policy{
		Base:        DefaultBase,
		Max:         DefaultMax,
		MaxFailures: DefaultMaxFailures,
		Pause:       DefaultPause,
	}
}

// Delay returns min(Base * 2^(attempts-1), Max). Zero attempts yields Base.
func (p Policy) Delay(attempts int) time.Duration {
	if attempts <= 1 {
		return p.Base
	}
	d := p.Base
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= p.Max || d <= 0 {
			return p.Max
		}
	}
	return d
}

// NewState returns a fresh poll state for the policy.
func (p Policy) NewState() *State {
	return &State{policy: p, CurrentBackoff: p.Base}
}

// State is the transient poll state of one poller. It is not safe for
// concurrent use; the owner serialises access.
type State struct {
	Attempts       int
	PausedUntil    time.Time
	LastSuccessAt  time.Time
	CurrentBackoff time.Duration

	policy Policy
}

// Policy returns the policy the state was created with.
func (s *State) Policy() Policy {
	return s.policy
}

// IsPaused reports whether the poller is inside a pause window at now.
func (s *State) IsPaused(now time.Time) bool {
	return !s.PausedUntil.IsZero() && now.Before(s.PausedUntil)
}

// Success resets the state to the base delay.
func (s *State) Success(now time.Time) time.Duration {
	s.Attempts = 0
	s.PausedUntil = time.Time{}
	s.LastSuccessAt = now
	s.CurrentBackoff = s.policy.Base
	return s.CurrentBackoff
}

// Failure records a failed attempt and returns the delay before the next one.
// The failure that reaches MaxFailures opens a pause window; the first failure
// after the window starts counting from one again.
func (s *State) Failure(now time.Time) time.Duration {
	if !s.PausedUntil.IsZero() && !now.Before(s.PausedUntil) {
		s.Reset()
	}
	s.Attempts++
	if s.policy.MaxFailures > 0 && s.Attempts >= s.policy.MaxFailures {
		s.PausedUntil = now.Add(s.policy.Pause)
		s.CurrentBackoff = s.policy.Pause
		return s.CurrentBackoff
	}
	s.CurrentBackoff = s.policy.Delay(s.Attempts)
	return s.CurrentBackoff
}

// Reset clears the attempt counter and any pause, keeping LastSuccessAt.
func (s *State) Reset() {
	s.Attempts = 0
	s.PausedUntil = time.Time{}
	s.CurrentBackoff = s.policy.Base
}

// NextDelay is the delay chosen by the last Success, Failure or Reset.
func (s *State) NextDelay() time.Duration {
	if s.CurrentBackoff <= 0 {
		return s.policy.Base
	}
	return s.CurrentBackoff
}
