// Package inference defines the opaque neural-session contract the
// worker pool drives, plus a go-tflite-backed implementation and an
// in-process stub used by tests and --test-only self-checks.
package inference

import "context"

// Session is the opaque callable the worker pool drives: one tensor of
// shape [1, 1, segmentSize] 16-bit signed integers in, one tensor of the
// same shape out. A Session is single-threaded per call; a worker calls
// Run at most once at a time on its own Session.
//
// ctx carries an informational deadline derived from the configured
// inference timeout. Implementations are not required to honor it — per
// this pipeline's design, timeout enforcement is a soft hint, not a hard
// watchdog; the retry loop in internal/worker is the only strictly
// enforced bound.
type Session interface {
	// Run performs one forward pass, returning raw 16-bit signed samples
	// of length segmentSize.
	Run(ctx context.Context, input []int16) ([]int16, error)
	// Close releases the session's resources. Safe to call once per
	// Session at worker shutdown.
	Close() error
}

// Factory builds one Session per worker, each with its own intra-op
// thread budget so independent workers never contend on the same
// interpreter.
type Factory interface {
	New(threads int) (Session, error)
}
