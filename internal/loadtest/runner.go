package loadtest

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

// RequestFunc issues one protocol request/response cycle and reports
// success. Virtual users call it in a loop; a timeout or a rejected
// response counts as a failure, success as the expected acknowledgement
// received with no timeout.
type RequestFunc func(ctx context.Context) error

// Runner drives a pool of virtual users through a Plan timeline,
// submitting each virtual user's loop onto an ants goroutine pool so the
// process never spawns unbounded goroutines even at MaxUsers concurrency.
//
// Scaling a running test down (the spike schedule's "halve users" step)
// drains the excess virtual users gracefully: each stopped VU finishes
// its in-flight request and exits on its own next loop check (or at once,
// if it is waiting out its think time), rather than being canceled
// mid-request. Scaling up spawns new
// VUs starting a fresh cycle.
type Runner struct {
	pool      *ants.Pool
	thinkTime time.Duration

	mu      sync.Mutex
	samples []Sample
	active  []chan struct{} // one stop channel per live virtual user
}

// NewRunner builds a Runner whose pool is capped at maxUsers concurrent
// virtual users.
func NewRunner(maxUsers int, thinkTime time.Duration) (*Runner, error) {
	if maxUsers <= 0 {
		maxUsers = 1
	}
	pool, err := ants.NewPool(maxUsers, ants.WithNonblocking(false))
	if err != nil {
		return nil, err
	}
	return &Runner{pool: pool, thinkTime: thinkTime}, nil
}

// Run executes the given schedule against req, publishing samples via the
// internal collector, and returns the overall Statistics once every plan
// step has held its duration or ctx is canceled.
func (r *Runner) Run(ctx context.Context, plan []Plan, protocol string, req RequestFunc) Statistics {
	start := time.Now()

	for _, step := range plan {
		r.scaleTo(ctx, step.TargetUsers, protocol, req, start)

		select {
		case <-ctx.Done():
			r.stopAll()
			return Summarize(r.Packets(), time.Since(start))
		case <-time.After(step.Hold):
		}
	}

	r.stopAll()
	return Summarize(r.Packets(), time.Since(start))
}

// Packets returns a snapshot of collected samples (named for symmetry
// with the rest of the codebase's Packets() snapshot accessors).
func (r *Runner) Packets() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

func (r *Runner) record(s Sample) {
	r.mu.Lock()
	r.samples = append(r.samples, s)
	r.mu.Unlock()
}

// scaleTo adjusts the number of live virtual users to target, spawning
// new ones or gracefully draining excess ones.
func (r *Runner) scaleTo(ctx context.Context, target int, protocol string, req RequestFunc, start time.Time) {
	r.mu.Lock()
	current := len(r.active)
	r.mu.Unlock()

	if target > current {
		for i := current; i < target; i++ {
			stop := make(chan struct{})
			r.mu.Lock()
			r.active = append(r.active, stop)
			r.mu.Unlock()

			_ = r.pool.Submit(func() {
				r.runVirtualUser(ctx, stop, protocol, req, start)
			})
		}
	} else if target < current {
		r.mu.Lock()
		toDrain := r.active[target:]
		r.active = r.active[:target]
		r.mu.Unlock()
		for _, stop := range toDrain {
			close(stop)
		}
	}
}

func (r *Runner) stopAll() {
	r.mu.Lock()
	stops := r.active
	r.active = nil
	r.mu.Unlock()
	for _, stop := range stops {
		close(stop)
	}
}

func (r *Runner) runVirtualUser(ctx context.Context, stop chan struct{}, protocol string, req RequestFunc, start time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		default:
		}

		reqStart := time.Now()
		err := req(ctx)
		latency := time.Since(reqStart)

		sample := Sample{
			Timestamp: reqStart.Sub(start),
			Latency:   latency,
			Success:   err == nil,
			Protocol:  protocol,
		}
		if err != nil {
			sample.Error = err.Error()
		}
		r.record(sample)

		if r.thinkTime > 0 {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-time.After(r.thinkTime):
			}
		}
	}
}

// Release returns the runner's goroutine pool resources.
func (r *Runner) Release() {
	r.pool.Release()
}
