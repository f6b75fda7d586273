package dialer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is one request to dial the next lead for a user.
type Job struct {
	UserID     string
	EnqueuedAt time.Time
}

// Options tune the queue. Zero values fall back to defaults.
type Options struct {
	Workers  int
	Capacity int
	// Attempts is the total tries per job, including the first.
	Attempts int
	Backoff  time.Duration
	// Timeout bounds each trigger attempt.
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Capacity <= 0 {
		o.Capacity = 256
	}
	if o.Attempts <= 0 {
		o.Attempts = 2
	}
	if o.Backoff < 0 {
		o.Backoff = 0
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	return o
}

// Queue is a bounded channel of next-call jobs drained by a fixed worker pool.
// Retries live here and nowhere else.
type Queue struct {
	trigger Trigger
	opts    Options
	log     *slog.Logger

	jobs chan Job
	wg   sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	onDone  func(Job, TriggerResult, error)
	started bool
}

func NewQueue(trigger Trigger, opts Options, log *slog.Logger) *Queue {
	if log == nil {
		log = slog.Default()
	}
	opts = opts.withDefaults()
	return &Queue{
		trigger: trigger,
		opts:    opts,
		log:     log,
		jobs:    make(chan Job, opts.Capacity),
	}
}

// OnDone registers a hook called after each job finishes. Must be set before Start.
func (q *Queue) OnDone(fn func(Job, TriggerResult, error)) { q.onDone = fn }

// Start launches the workers. They exit when ctx is done or Close drains the queue.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true
	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Dispatch enqueues without blocking and reports whether the job was accepted.
func (q *Queue) Dispatch(userID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || userID == "" {
		return false
	}
	select {
	case q.jobs <- Job{UserID: userID, EnqueuedAt: time.Now().UTC()}:
		return true
	default:
		q.log.Warn("next-call queue full", "user_id", userID, "capacity", q.opts.Capacity)
		return false
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			res, err := q.run(ctx, job)
			if q.onDone != nil {
				q.onDone(job, res, err)
			}
		}
	}
}

func (q *Queue) run(ctx context.Context, job Job) (TriggerResult, error) {
	log := q.log.With("user_id", job.UserID)

	var lastErr error
	for attempt := 1; attempt <= q.opts.Attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, q.opts.Timeout)
		res, err := q.trigger.NextCall(attemptCtx, job.UserID)
		cancel()
		if err == nil {
			if res.Done {
				log.Info("campaign selector has nothing to dial", "reason", res.Reason)
			} else {
				log.Debug("next call triggered", "attempt", attempt, "call_id", res.CallID)
			}
			return res, nil
		}

		lastErr = err
		log.Warn("next-call trigger failed", "attempt", attempt, "err", err)
		if attempt == q.opts.Attempts {
			break
		}
		t := time.NewTimer(q.opts.Backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return TriggerResult{}, ctx.Err()
		case <-t.C:
		}
	}

	log.Error("next-call trigger exhausted; campaign stalls until the next sweep",
		"attempts", q.opts.Attempts, "err", lastErr)
	return TriggerResult{}, lastErr
}
