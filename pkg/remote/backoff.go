package remote

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Backoff defines the retry delay policy for remote plugin calls. The
// zero value is not usable; start from DefaultBackoff. A Backoff carries
// no mutable state and one value can drive any number of concurrent
// sequences.
type Backoff struct {
	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration

	// MaxInterval caps a single delay, before jitter.
	MaxInterval time.Duration

	// MaxElapsed is the total time budget; once exceeded the sequence
	// stops regardless of remaining attempts.
	MaxElapsed time.Duration

	// Multiplier grows the delay between attempts. Must be >= 1.
	Multiplier float64

	// RandomizationFactor jitters each delay by ±factor.
	RandomizationFactor float64

	// MaxAttempts caps the number of call attempts.
	MaxAttempts int
}

// DefaultBackoff returns the backend retry policy: 200ms initial delay
// growing 5x per attempt, ±10% jitter, 30s cap on both single delays and
// total elapsed time, at most 5 attempts.
func DefaultBackoff() Backoff {
	return Backoff{
		InitialInterval:     200 * time.Millisecond,
		MaxInterval:         30 * time.Second,
		MaxElapsed:          30 * time.Second,
		Multiplier:          5,
		RandomizationFactor: 0.1,
		MaxAttempts:         5,
	}
}

// Validate checks the policy parameters.
func (b Backoff) Validate() error {
	if b.InitialInterval <= 0 {
		return fmt.Errorf("InitialInterval must be > 0, got %v", b.InitialInterval)
	}
	if b.MaxInterval < b.InitialInterval {
		return fmt.Errorf("MaxInterval %v below InitialInterval %v", b.MaxInterval, b.InitialInterval)
	}
	if b.Multiplier < 1 {
		return fmt.Errorf("Multiplier must be >= 1, got %v", b.Multiplier)
	}
	if b.RandomizationFactor < 0 || b.RandomizationFactor > 1 {
		return fmt.Errorf("RandomizationFactor must be in [0,1], got %v", b.RandomizationFactor)
	}
	if b.MaxAttempts < 1 {
		return fmt.Errorf("MaxAttempts must be >= 1, got %v", b.MaxAttempts)
	}
	return nil
}

// Sequence tracks the attempt count and elapsed time of one retry
// sequence. Each invocation gets its own Sequence; sequences never share
// state.
type Sequence struct {
	policy  Backoff
	attempt int
	started time.Time
	now     func() time.Time
}

// NewSequence starts a retry sequence under this policy. The clock starts
// at the first call attempt.
func (b Backoff) NewSequence() *Sequence {
	return &Sequence{policy: b, started: time.Now(), now: time.Now}
}

// Next returns the delay to wait before the next attempt, or false when
// the sequence is exhausted: either the attempt cap is reached or the
// elapsed time budget is spent. The first call accounts for attempt one
// already having happened.
func (s *Sequence) Next() (time.Duration, bool) {
	s.attempt++
	if s.attempt >= s.policy.MaxAttempts {
		return 0, false
	}
	if s.policy.MaxElapsed > 0 && s.now().Sub(s.started) > s.policy.MaxElapsed {
		return 0, false
	}

	interval := float64(s.policy.InitialInterval) * math.Pow(s.policy.Multiplier, float64(s.attempt-1))
	if interval > float64(s.policy.MaxInterval) {
		interval = float64(s.policy.MaxInterval)
	}
	if f := s.policy.RandomizationFactor; f > 0 {
		delta := f * interval
		interval = interval - delta + rand.Float64()*2*delta
	}
	return time.Duration(interval), true
}

// Attempts returns how many call attempts the sequence has accounted for.
func (s *Sequence) Attempts() int {
	return s.attempt
}
