package videojob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studio/internal/apierr"
	"studio/internal/gateway"
	"studio/internal/infra"
	"studio/internal/metrics"
	"studio/internal/storage"
)

const (
	DefaultPollInterval = 10 * time.Second
	DefaultMaxPolls     = 90
	DefaultTimeout      = 20 * time.Minute

	stalledMessage = "Video generation timed out."
	mediaDir       = "videos"
)

var (
	ErrNotFound      = errors.New("videojob: job not found")
	ErrNotFinished   = errors.New("videojob: job not finished")
	ErrNotExtendable = errors.New("videojob: job has no finished video to extend")
)

// Gateway is the part of the generation gateway the manager drives.
type Gateway interface {
	SubmitVideo(ctx context.Context, req gateway.VideoRequest) (*gateway.VideoOperation, error)
	SubmitExtension(ctx context.Context, req gateway.ExtendRequest) (*gateway.VideoOperation, error)
	PollVideo(ctx context.Context, op *gateway.VideoOperation) (*gateway.VideoOperation, error)
	FetchVideo(ctx context.Context, op *gateway.VideoOperation) (*gateway.VideoResult, error)
}

// Store receives finished videos.
type Store interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Path(key string) (string, error)
	Remove(key string) error
}

type Options struct {
	Gateway      Gateway
	Store        Store
	PollInterval time.Duration
	MaxPolls     int
	Timeout      time.Duration
	Metrics      *metrics.Collector
	Logger       *infra.Logger
}

// Manager runs video jobs and keeps the session's asynchronous jobs until
// they are consumed.
type Manager struct {
	gw       Gateway
	store    Store
	interval time.Duration
	maxPolls int
	timeout  time.Duration
	metrics  *metrics.Collector
	log      *infra.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewManager(opts Options) (*Manager, error) {
	if opts.Gateway == nil {
		return nil, errors.New("videojob: gateway is required")
	}
	if opts.Store == nil {
		return nil, errors.New("videojob: store is required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxPolls <= 0 {
		opts.MaxPolls = DefaultMaxPolls
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		gw:       opts.Gateway,
		store:    opts.Store,
		interval: opts.PollInterval,
		maxPolls: opts.MaxPolls,
		timeout:  opts.Timeout,
		metrics:  opts.Metrics,
		log:      logger,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		jobs:     make(map[string]*Job),
	}, nil
}

// Generate runs a fresh synthesis to completion.
func (m *Manager) Generate(ctx context.Context, req gateway.VideoRequest) (*Job, error) {
	job := m.newJob(gateway.VideoKindGenerate, req.Prompt, req.AspectRatio, "")
	op, err := m.gw.SubmitVideo(ctx, req)
	if err != nil {
		return m.fail(job, err)
	}
	m.processing(job, op)
	return m.finish(ctx, job, op)
}

// Extend continues a finished video to completion.
func (m *Manager) Extend(ctx context.Context, req gateway.ExtendRequest) (*Job, error) {
	job := m.newJob(gateway.VideoKindExtend, req.Prompt, req.AspectRatio, "")
	op, err := m.gw.SubmitExtension(ctx, req)
	if err != nil {
		return m.fail(job, err)
	}
	m.processing(job, op)
	return m.finish(ctx, job, op)
}

// Run is Generate for a job the session keeps: it is registered as soon as
// it is submitted, so it can be listed, extended and consumed afterwards.
func (m *Manager) Run(ctx context.Context, req gateway.VideoRequest) (*Job, error) {
	job := m.newJob(gateway.VideoKindGenerate, req.Prompt, req.AspectRatio, "")
	op, err := m.gw.SubmitVideo(ctx, req)
	if err != nil {
		return m.fail(job, err)
	}
	m.processing(job, op)
	m.register(job)
	return m.finish(ctx, job, op)
}

// Start submits a synthesis and polls it in the background. Submission
// errors are returned directly and nothing is registered.
func (m *Manager) Start(ctx context.Context, req gateway.VideoRequest) (*Job, error) {
	job := m.newJob(gateway.VideoKindGenerate, req.Prompt, req.AspectRatio, "")
	op, err := m.gw.SubmitVideo(ctx, req)
	if err != nil {
		return m.fail(job, err)
	}
	return m.background(job, op), nil
}

// StartExtension extends the finished job fromID in the background.
func (m *Manager) StartExtension(ctx context.Context, fromID, prompt, aspect string) (*Job, error) {
	from, err := m.Get(fromID)
	if err != nil {
		return nil, err
	}
	if !from.Extendable() {
		return nil, ErrNotExtendable
	}
	job := m.newJob(gateway.VideoKindExtend, prompt, aspect, fromID)
	op, err := m.gw.SubmitExtension(ctx, gateway.ExtendRequest{
		From:        from.Result.Continuation,
		Prompt:      prompt,
		AspectRatio: aspect,
	})
	if err != nil {
		return m.fail(job, err)
	}
	return m.background(job, op), nil
}

func (m *Manager) background(job *Job, op *gateway.VideoOperation) *Job {
	m.processing(job, op)
	snapshot := m.register(job)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		_, _ = m.finish(m.ctx, job, op)
	}()
	return snapshot
}

func (m *Manager) register(job *Job) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	snapshot := *job
	return &snapshot
}

// Get returns a snapshot of a registered job.
func (m *Manager) Get(id string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

// Consume hands over a terminal job and forgets it.
func (m *Manager) Consume(id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !job.Status.Terminal() {
		return nil, ErrNotFinished
	}
	delete(m.jobs, id)
	snapshot := *job
	return &snapshot, nil
}

// Discard consumes a terminal job and deletes its stored video.
func (m *Manager) Discard(id string) (*Job, error) {
	job, err := m.Consume(id)
	if err != nil {
		return nil, err
	}
	if job.Result != nil {
		if err := m.store.Remove(job.Result.Key); err != nil {
			return job, fmt.Errorf("videojob: discard video: %w", err)
		}
		m.log.Info().Str("job_id", job.ID).Str("key", job.Result.Key).Msg("videojob: discarded")
	}
	return job, nil
}

// List returns every registered job, oldest first.
func (m *Manager) List() []*Job {
	m.mu.RLock()
	out := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		snapshot := *job
		out = append(out, &snapshot)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Close stops background polling and waits for it to wind down.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) newJob(kind, prompt, aspect, parent string) *Job {
	now := m.now()
	return &Job{
		ID:          uuid.NewString(),
		Kind:        kind,
		Parent:      parent,
		Prompt:      prompt,
		AspectRatio: aspect,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (m *Manager) update(job *Job, fn func(*Job)) {
	m.mu.Lock()
	fn(job)
	job.UpdatedAt = m.now()
	m.mu.Unlock()
}

func (m *Manager) processing(job *Job, op *gateway.VideoOperation) {
	m.update(job, func(j *Job) {
		j.Status = StatusProcessing
		j.OperationName = op.Name()
		j.AspectRatio = op.AspectRatio
	})
	m.log.Info().
		Str("job_id", job.ID).
		Str("kind", job.Kind).
		Str("operation", op.Name()).
		Msg("videojob: submitted")
}

// finish polls op until done, fetches the video and stores it.
func (m *Manager) finish(ctx context.Context, job *Job, op *gateway.VideoOperation) (*Job, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	done, err := m.await(ctx, job, op)
	if err != nil {
		return m.fail(job, err)
	}
	video, err := m.gw.FetchVideo(ctx, done)
	if err != nil {
		return m.fail(job, err)
	}
	key, err := m.store.Write(ctx, storage.NewKey(mediaDir, video.MIMEType), video.Data)
	if err != nil {
		return m.fail(job, fmt.Errorf("videojob: store video: %w", err))
	}
	path, err := m.store.Path(key)
	if err != nil {
		return m.fail(job, fmt.Errorf("videojob: store video: %w", err))
	}

	result := &Result{
		Key:          key,
		Path:         path,
		URL:          storage.URL(key),
		MIMEType:     video.MIMEType,
		Size:         int64(len(video.Data)),
		Continuation: video.Continuation,
	}
	var snapshot Job
	m.update(job, func(j *Job) {
		j.Status = StatusCompleted
		j.Result = result
		snapshot = *j
	})
	m.metrics.ObserveVideoJob(job.Kind, string(StatusCompleted), snapshot.UpdatedAt.Sub(snapshot.CreatedAt))
	m.log.Info().
		Str("job_id", job.ID).
		Int("polls", snapshot.Polls).
		Str("key", key).
		Msg("videojob: completed")
	return &snapshot, nil
}

// await sleeps and re-polls until the operation is done, giving up after
// maxPolls ticks or when ctx ends.
func (m *Manager) await(ctx context.Context, job *Job, op *gateway.VideoOperation) (*gateway.VideoOperation, error) {
	polls := 0
	for !op.Done() {
		if polls >= m.maxPolls {
			return nil, apierr.New(http.StatusGatewayTimeout, stalledMessage)
		}
		if err := m.sleep(ctx); err != nil {
			return nil, err
		}
		next, err := m.gw.PollVideo(ctx, op)
		polls++
		m.metrics.ObserveVideoPoll(job.Kind)
		m.update(job, func(j *Job) { j.Polls = polls })
		if err != nil {
			if ctx.Err() != nil {
				return nil, stallError(ctx.Err())
			}
			return nil, err
		}
		op = next
	}
	return op, nil
}

func (m *Manager) sleep(ctx context.Context) error {
	timer := time.NewTimer(m.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return stallError(ctx.Err())
	case <-timer.C:
		return nil
	}
}

func stallError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apierr.New(http.StatusGatewayTimeout, stalledMessage)
	}
	return apierr.Normalize(err)
}

func (m *Manager) fail(job *Job, err error) (*Job, error) {
	normalized := apierr.Normalize(err)
	var snapshot Job
	m.update(job, func(j *Job) {
		j.Status = StatusFailed
		j.Err = normalized
		snapshot = *j
	})
	m.metrics.ObserveVideoJob(job.Kind, string(StatusFailed), snapshot.UpdatedAt.Sub(snapshot.CreatedAt))
	m.log.Warn().
		Str("job_id", job.ID).
		Str("kind", job.Kind).
		Int("status", normalized.StatusCode).
		Str("error_kind", string(normalized.Kind)).
		Msg("videojob: failed")
	return &snapshot, normalized
}
