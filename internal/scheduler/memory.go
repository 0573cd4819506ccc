package scheduler

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/goliatone/go-contractor/pkg/interfaces"
	"github.com/google/uuid"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = time.Minute
)

// ErrRunAtRequired is returned when a job is enqueued without a run time.
var ErrRunAtRequired = errors.New("scheduler: run_at is required")

// Option configures the in-memory scheduler.
type Option func(*memoryScheduler)

func WithClock(clock func() time.Time) Option {
	return func(s *memoryScheduler) {
		if clock != nil {
			s.now = clock
		}
	}
}

func WithIDGenerator(generator func() string) Option {
	return func(s *memoryScheduler) {
		if generator != nil {
			s.newID = generator
		}
	}
}

// WithRetryDelay sets the base backoff after a failed attempt. Attempt n is
// retried n*delay after the failure.
func WithRetryDelay(delay time.Duration) Option {
	return func(s *memoryScheduler) {
		if delay >= 0 {
			s.retryDelay = delay
		}
	}
}

// WithDefaultMaxAttempts applies to specs that leave MaxAttempts at zero.
func WithDefaultMaxAttempts(limit int) Option {
	return func(s *memoryScheduler) {
		if limit > 0 {
			s.maxAttempts = limit
		}
	}
}

// NewInMemory returns a process-local scheduler. Pending work does not
// survive a restart.
func NewInMemory(opts ...Option) interfaces.Scheduler {
	s := &memoryScheduler{
		now:         time.Now,
		newID:       uuid.NewString,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
		jobs:        map[string]*interfaces.Job{},
		byKey:       map[string]string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type memoryScheduler struct {
	mu          sync.Mutex
	now         func() time.Time
	newID       func() string
	maxAttempts int
	retryDelay  time.Duration
	jobs        map[string]*interfaces.Job
	// byKey indexes live (pending) jobs by their idempotency key.
	byKey       map[string]string
}

func (s *memoryScheduler) Enqueue(_ context.Context, spec interfaces.JobSpec) (*interfaces.Job, error) {
	if spec.RunAt.IsZero() {
		return nil, ErrRunAtRequired
	}
	spec.Payload = maps.Clone(spec.Payload)
	if spec.MaxAttempts == 0 {
		spec.MaxAttempts = s.maxAttempts
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if previous, ok := s.byKey[spec.Key]; ok && spec.Key != "" {
		delete(s.jobs, previous)
	}
	now := s.now()
	job := &interfaces.Job{
		JobSpec:   spec,
		ID:        s.newID(),
		Status:    interfaces.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[job.ID] = job
	if spec.Key != "" {
		s.byKey[spec.Key] = job.ID
	}
	return snapshot(job), nil
}

func (s *memoryScheduler) Cancel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settle(id, interfaces.JobStatusCanceled)
}

func (s *memoryScheduler) CancelByKey(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byKey[key]
	if !ok {
		return interfaces.ErrJobNotFound
	}
	return s.settle(id, interfaces.JobStatusCanceled)
}

func (s *memoryScheduler) MarkDone(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settle(id, interfaces.JobStatusCompleted)
}

func (s *memoryScheduler) Get(_ context.Context, id string) (*interfaces.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, err := s.find(id)
	if err != nil {
		return nil, err
	}
	return snapshot(job), nil
}

func (s *memoryScheduler) GetByKey(_ context.Context, key string) (*interfaces.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byKey[key]
	if !ok || key == "" {
		return nil, interfaces.ErrJobNotFound
	}
	job, err := s.find(id)
	if err != nil {
		return nil, err
	}
	return snapshot(job), nil
}

// ListDue returns pending jobs with RunAt <= until, earliest first. Ties go
// to the job enqueued first.
func (s *memoryScheduler) ListDue(_ context.Context, until time.Time, limit int) ([]*interfaces.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := []*interfaces.Job{}
	for _, job := range s.jobs {
		if job.Status == interfaces.JobStatusPending && !job.RunAt.After(until) {
			due = append(due, snapshot(job))
		}
	}
	slices.SortStableFunc(due, func(a, b *interfaces.Job) int {
		if c := a.RunAt.Compare(b.RunAt); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// MarkFailed records the failure and either reschedules the job with linear
// backoff or, once MaxAttempts is reached, parks it as failed.
func (s *memoryScheduler) MarkFailed(_ context.Context, id string, failure error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.find(id)
	if err != nil {
		return err
	}
	job.Attempt++
	job.LastError = ""
	if failure != nil {
		job.LastError = failure.Error()
	}
	if job.MaxAttempts > 0 && job.Attempt >= job.MaxAttempts {
		return s.settle(id, interfaces.JobStatusFailed)
	}
	job.UpdatedAt = s.now()
	job.Status = interfaces.JobStatusPending
	job.RunAt = job.UpdatedAt.Add(s.retryDelay * time.Duration(job.Attempt))
	return nil
}

func (s *memoryScheduler) find(id string) (*interfaces.Job, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, interfaces.ErrJobNotFound
	}
	return job, nil
}

// settle moves a job into a final status and frees its key. Callers hold mu.
func (s *memoryScheduler) settle(id string, status interfaces.JobStatus) error {
	job, err := s.find(id)
	if err != nil {
		return err
	}
	job.Status = status
	job.UpdatedAt = s.now()
	if job.Key != "" && s.byKey[job.Key] == job.ID {
		delete(s.byKey, job.Key)
	}
	return nil
}

func snapshot(job *interfaces.Job) *interfaces.Job {
	out := *job
	out.Payload = maps.Clone(job.Payload)
	return &out
}
