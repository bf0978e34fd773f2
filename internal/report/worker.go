package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"labstock/internal/blob"
	"labstock/internal/core"
)

// Status describes the lifecycle stage of a report job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

var (
	// ErrQueueFull is returned when the worker cannot accept more jobs.
	ErrQueueFull = errors.New("report queue full")
	// ErrUnknownFormat is returned for a format with no registered generator.
	ErrUnknownFormat = errors.New("unknown report format")
	// ErrJobNotFound is returned for an unknown job id.
	ErrJobNotFound = errors.New("report job not found")
	// ErrNotReady is returned when a job has no artifact yet.
	ErrNotReady = errors.New("report not ready")
	// ErrStopped is returned by Enqueue once Stop has been called.
	ErrStopped = errors.New("report worker stopped")
)

const defaultQueueSize = 32

// Job tracks a report request and its stored artifact.
type Job struct {
	ID          string     `json:"id"`
	Format      Format     `json:"format"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	RequestedBy string     `json:"requested_by,omitempty"`
	OrgName     string     `json:"org_name,omitempty"`
	ItemCount   int        `json:"item_count"`
	Artifact    *blob.Info `json:"artifact,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (j *Job) copy() Job {
	out := *j
	if j.Artifact != nil {
		a := *j.Artifact
		out.Artifact = &a
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// Input is an enqueue request.
type Input struct {
	Plan        core.ReorderPlan
	Format      Format
	RequestedBy string
}

type task struct {
	id  string
	req Request
}

// Worker generates reports asynchronously and stores them in the blob store.
type Worker struct {
	generators map[Format]Generator
	store      blob.Store
	logger     core.Logger
	now        func() time.Time

	queue chan task
	mu    sync.RWMutex
	jobs  map[string]*Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithWorkerLogger sets the logger for job failures.
func WithWorkerLogger(l core.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithWorkerClock overrides the clock used for job timestamps.
func WithWorkerClock(now func() time.Time) WorkerOption {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

// WithQueueSize sets the job buffer size.
func WithQueueSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.queue = make(chan task, n)
		}
	}
}

// NewWorker constructs a report worker. generators is keyed by format.
func NewWorker(store blob.Store, generators map[Format]Generator, opts ...WorkerOption) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		generators: generators,
		store:      store,
		logger:     core.NewZapLogger(nil),
		now:        func() time.Time { return time.Now().UTC() },
		queue:      make(chan task, defaultQueueSize),
		jobs:       make(map[string]*Job),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins processing queued jobs.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for the loop to exit. Jobs still
// queued are marked failed.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	w.cancel()
	w.mu.Unlock()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		w.drain()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case t := <-w.queue:
			w.process(t)
		}
	}
}

// drain fails every job left in the queue. It runs after the loop exits, and
// Enqueue refuses work once the context is cancelled.
func (w *Worker) drain() {
	for {
		select {
		case t := <-w.queue:
			w.fail(t.id, ErrStopped.Error())
		default:
			return
		}
	}
}

// Enqueue schedules a report for plan and returns the queued job.
func (w *Worker) Enqueue(_ context.Context, input Input) (Job, error) {
	format := input.Format
	if format == "" {
		format = FormatMarkdown
	}
	if _, ok := w.generators[format]; !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	now := w.now()
	job := &Job{
		ID:          uuid.Must(uuid.NewV4()).String(),
		Format:      format,
		Status:      StatusQueued,
		RequestedBy: input.RequestedBy,
		OrgName:     input.Plan.OrgName,
		ItemCount:   len(input.Plan.Items),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	req := NewRequest(input.Plan, now)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx.Err() != nil {
		return Job{}, ErrStopped
	}
	select {
	case w.queue <- task{id: job.ID, req: req}:
	default:
		return Job{}, ErrQueueFull
	}
	w.jobs[job.ID] = job
	return job.copy(), nil
}

// Get returns a snapshot of the job.
func (w *Worker) Get(id string) (Job, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	job, ok := w.jobs[id]
	if !ok {
		return Job{}, false
	}
	return job.copy(), true
}

// Open returns the stored artifact of a succeeded job.
func (w *Worker) Open(ctx context.Context, id string) (Job, io.ReadCloser, error) {
	job, ok := w.Get(id)
	if !ok {
		return Job{}, nil, ErrJobNotFound
	}
	if job.Status != StatusSucceeded || job.Artifact == nil {
		return job, nil, fmt.Errorf("%w: job %s is %s", ErrNotReady, id, job.Status)
	}
	_, rc, err := w.store.Get(ctx, job.Artifact.Key)
	if err != nil {
		return job, nil, err
	}
	return job, rc, nil
}

func (w *Worker) process(t task) {
	job, ok := w.Get(t.id)
	if !ok {
		return
	}
	w.update(t.id, func(j *Job) { j.Status = StatusRunning })

	doc, err := w.generators[job.Format].Generate(w.ctx, t.req)
	if err != nil {
		w.fail(t.id, fmt.Sprintf("generate: %v", err))
		return
	}
	key := fmt.Sprintf("reorder/%s/%s%s", job.CreatedAt.Format("2006-01-02"), job.ID, doc.Extension())
	info, err := w.store.Put(w.ctx, key, bytes.NewReader(doc.Body), blob.PutOptions{
		ContentType: doc.ContentType,
		Metadata: map[string]string{
			"job_id": job.ID,
			"format": string(doc.Format),
		},
	})
	if err != nil {
		w.fail(t.id, fmt.Sprintf("store artifact: %v", err))
		return
	}
	if info.ContentType == "" {
		info.ContentType = doc.ContentType
	}
	w.update(t.id, func(j *Job) {
		completed := w.now()
		j.Status = StatusSucceeded
		j.Artifact = &info
		j.CompletedAt = &completed
	})
}

func (w *Worker) fail(id, msg string) {
	w.logger.Error("report job failed", "job_id", id, "error", msg)
	w.update(id, func(j *Job) {
		completed := w.now()
		j.Status = StatusFailed
		j.Error = msg
		j.CompletedAt = &completed
	})
}

func (w *Worker) update(id string, fn func(*Job)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if job, ok := w.jobs[id]; ok {
		fn(job)
		job.UpdatedAt = w.now()
	}
}
