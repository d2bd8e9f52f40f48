package inference

import (
	"context"
	"time"
)

// StubFactory builds IdentitySessions, used by --test-only self-checks
// and by tests that need a deterministic, latency-injectable model.
type StubFactory struct {
	// Delay, if set, is invoked per-call to compute an artificial
	// processing delay (e.g. to simulate heterogeneous worker speed).
	Delay func(callIndex int) time.Duration
}

// New implements Factory.
func (f *StubFactory) New(threads int) (Session, error) {
	return &IdentitySession{delay: f.Delay}, nil
}

// IdentitySession returns its input unchanged (after an optional
// artificial delay), modeling a pass-through model for testing the
// pipeline's plumbing independent of a real neural network.
type IdentitySession struct {
	delay func(callIndex int) time.Duration
	calls int
}

// Run implements Session.
func (s *IdentitySession) Run(ctx context.Context, input []int16) ([]int16, error) {
	if s.delay != nil {
		d := s.delay(s.calls)
		s.calls++
		if d > 0 {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	out := make([]int16, len(input))
	copy(out, input)
	return out, nil
}

// Close implements Session.
func (s *IdentitySession) Close() error { return nil }
