// Package worker implements the static round-robin inference worker
// pool: W long-lived workers, each owning one neural session and a
// dedicated task/result channel pair, dispatched to by
// segment_index mod W and drained in the same round-robin order so
// reassembly only needs a final sort by index.
package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tphakala/denoise-pipeline/internal/inference"
	"github.com/tphakala/denoise-pipeline/internal/tensor"

	pipeerrors "github.com/tphakala/denoise-pipeline/internal/errors"
)

// Item is one unit of dispatched work: an encoded tensor tagged with the
// segment it came from.
type Item struct {
	SegmentIndex int
	Tensor       tensor.Encoded
}

// Result is the reply to one Item: the decoded float32 payload (or an
// error if every retry was exhausted), tagged with the originating
// segment index and the observed inference latency.
type Result struct {
	SegmentIndex    int
	Payload         []float32
	InferenceTimeMS float64
	Err             error
}

// Config configures pool construction.
type Config struct {
	NumWorkers            int
	TotalInferenceThreads int
	MaxRetries            int
	RetryDelay            time.Duration
	InferenceTimeout      time.Duration // 0 disables the per-call deadline
	WarmUp                bool
	SegmentSize           int
}

// task carries a work item to a worker. Shutdown is the idiomatic Go
// translation of the Option<WorkItem>/None sentinel: the channel is
// simply closed instead of sending an explicit sentinel value, and
// workers range over it until it drains.
type task struct {
	item Item
}

type workerHandle struct {
	tasks   chan task
	results chan Result
	sent    int
}

// Pool drives W independent inference sessions. The driver is the sole
// writer to each worker's task channel and the sole reader of its
// result channel; workers never talk to each other.
type Pool struct {
	cfg      Config
	workers  []*workerHandle
	sessions []inference.Session
	wg       sync.WaitGroup
}

// New constructs a Pool, spawning cfg.NumWorkers long-lived goroutines
// each backed by a Session built from factory with
// threads_per_worker = max(1, total_inference_threads / num_workers).
func New(cfg Config, factory inference.Factory) (*Pool, error) {
	if cfg.NumWorkers < 1 {
		return nil, pipeerrors.ConfigurationError("worker count must be at least 1")
	}

	threadsPerWorker := cfg.TotalInferenceThreads / cfg.NumWorkers
	if threadsPerWorker < 1 {
		threadsPerWorker = 1
	}

	p := &Pool{cfg: cfg}

	for i := 0; i < cfg.NumWorkers; i++ {
		sess, err := factory.New(threadsPerWorker)
		if err != nil {
			p.shutdownPartial()
			return nil, pipeerrors.New(err).
				Category(pipeerrors.CategoryInference).
				Component("worker").
				Context("worker_index", i).
				Build()
		}

		h := &workerHandle{
			tasks:   make(chan task, 2),
			results: make(chan Result, 2),
		}
		p.sessions = append(p.sessions, sess)
		p.workers = append(p.workers, h)

		p.wg.Add(1)
		go p.runWorker(i, sess, h)
	}

	if cfg.WarmUp {
		p.warmUp()
	}

	return p, nil
}

func (p *Pool) shutdownPartial() {
	for _, s := range p.sessions {
		_ = s.Close()
	}
}

// warmUp hands each worker a single zero-valued tensor so first-file
// latency is not paid on the first real segment.
func (p *Pool) warmUp() {
	zero := tensor.Encode(nil, p.cfg.SegmentSize)
	for _, h := range p.workers {
		h.tasks <- task{item: Item{SegmentIndex: -1, Tensor: zero}}
		h.sent++
		<-h.results
	}
}

func (p *Pool) runWorker(id int, sess inference.Session, h *workerHandle) {
	defer p.wg.Done()
	defer func() {
		if err := sess.Close(); err != nil {
			// Session close failures are not fatal to the pipeline; the
			// file has already been fully processed by the time Close runs.
			_ = err
		}
	}()

	for t := range h.tasks {
		h.results <- p.runOne(id, sess, t.item)
	}
}

// runOne runs one inference call with the configured retry policy.
// Retries only happen on runtime errors from the session, never on
// validation errors (there are none at this boundary: the tensor is
// always well-formed by construction).
func (p *Pool) runOne(workerID int, sess inference.Session, item Item) Result {
	maxAttempts := p.cfg.MaxRetries + 1
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		start := time.Now()

		ctx := context.Background()
		var cancel context.CancelFunc
		if p.cfg.InferenceTimeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, p.cfg.InferenceTimeout)
		}
		out, err := sess.Run(ctx, item.Tensor.Data)
		if cancel != nil {
			cancel()
		}
		elapsed := time.Since(start)

		if err == nil {
			return Result{
				SegmentIndex:    item.SegmentIndex,
				Payload:         tensor.Decode(out),
				InferenceTimeMS: float64(elapsed.Microseconds()) / 1000.0,
			}
		}

		lastErr = err
		if attempt < maxAttempts-1 && p.cfg.RetryDelay > 0 {
			time.Sleep(p.cfg.RetryDelay)
		}
	}

	return Result{
		SegmentIndex: item.SegmentIndex,
		Err: pipeerrors.New(lastErr).
			Category(pipeerrors.CategoryInference).
			Component("worker").
			Context("worker_index", workerID).
			Context("segment_index", item.SegmentIndex).
			Context("max_retries", p.cfg.MaxRetries).
			Build(),
	}
}

// ProcessAll dispatches every item by segment_index mod W, then drains
// each worker exactly as many results as it was sent — the static
// assignment with ordered drain described by the design — before
// sorting the combined results back into segment_index order.
//
// Each send runs in its own goroutine so that a full task channel never
// blocks the drain; the order in which one worker receives its items is
// therefore not fixed, and the final sort restores segment order.
//
// ProcessAll drains every result and then returns an error instead of
// results if any result carries a non-nil Err, matching the
// no-partial-output propagation policy: the pipeline cannot proceed to
// AGC/reconstruction with a missing segment.
func (p *Pool) ProcessAll(items []Item) ([]Result, error) {
	numWorkers := len(p.workers)
	for _, h := range p.workers {
		h.sent = 0
	}

	for _, item := range items {
		w := item.SegmentIndex % numWorkers
		h := p.workers[w]
		go func() { h.tasks <- task{item: item} }()
		h.sent++
	}

	results := make([]Result, 0, len(items))
	var firstErr error
	for _, h := range p.workers {
		for i := 0; i < h.sent; i++ {
			r := <-h.results
			if r.Err != nil && firstErr == nil {
				firstErr = r.Err
			}
			results = append(results, r)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].SegmentIndex < results[j].SegmentIndex
	})

	if firstErr != nil {
		return nil, fmt.Errorf("inference failed for one or more segments: %w", firstErr)
	}

	return results, nil
}

// Close posts shutdown to every worker's task channel by closing it,
// then joins all worker goroutines. Safe to call once.
func (p *Pool) Close() {
	for _, h := range p.workers {
		close(h.tasks)
	}
	p.wg.Wait()
}
