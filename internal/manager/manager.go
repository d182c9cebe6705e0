// Package manager is the front door of the indexing layer: it keeps the
// registry of managed indexes, hands out reader and searcher leases, and
// runs the per-index job queues that serialize all mutations.
package manager

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Aman-CERP/indexhub/internal/errors"
	"github.com/Aman-CERP/indexhub/internal/indexio"
	"github.com/Aman-CERP/indexhub/internal/metrics"
	"github.com/Aman-CERP/indexhub/internal/store"
)

// Listener receives job lifecycle notifications. Callbacks run on the index
// worker goroutine and should return quickly.
type Listener interface {
	// OnJobCommitted fires once per job whose mutation became durable.
	OnJobCommitted(index, jobID string)
	// OnJobFailed fires once per job that exhausted its retry budget.
	OnJobFailed(index, jobID string, err error)
}

// Options configures a Manager. Zero values fall back to defaults.
type Options struct {
	// Retry bounds the attempts each job gets before it is failed.
	Retry errors.RetryConfig
	// Logger receives structured lifecycle events.
	Logger *slog.Logger
	// Metrics receives job and queue instrumentation. Optional.
	Metrics *metrics.Metrics
	// Listener receives job completion callbacks. Optional.
	Listener Listener
}

// Manager owns every registered index: its IO controller and its job queue.
// All reads go through leases, all writes through Submit.
type Manager struct {
	store    store.Store
	retry    errors.RetryConfig
	log      *slog.Logger
	metrics  *metrics.Metrics
	listener Listener

	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu      sync.Mutex
	indexes map[string]*managed
	closed  bool

	wg     sync.WaitGroup
	jobSeq atomic.Uint64
}

// managed pairs one index's resource controller with its FIFO queue.
type managed struct {
	io    *indexio.IO
	queue *jobQueue
}

// New creates a manager over the given store.
func New(s store.Store, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Retry.MaxRetries == 0 && opts.Retry.InitialDelay == 0 {
		opts.Retry = errors.DefaultRetryConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:      s,
		retry:      opts.Retry,
		log:        opts.Logger,
		metrics:    opts.Metrics,
		listener:   opts.Listener,
		baseCtx:    ctx,
		cancelBase: cancel,
		indexes:    make(map[string]*managed),
	}
}

// Register adds an index to the registry and starts its worker. Registering
// an already-known index is a logged no-op, so callers can register eagerly.
func (m *Manager) Register(id string) error {
	if id == "" {
		return errors.InvalidArgument("index id must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New(errors.ErrCodeClosed, "manager is closed", nil)
	}
	if _, ok := m.indexes[id]; ok {
		m.log.Warn("index already registered", slog.String("index", id))
		return nil
	}

	mi := &managed{
		io:    indexio.New(id, m.store, m.log),
		queue: newJobQueue(),
	}
	m.indexes[id] = mi

	m.wg.Add(1)
	go m.worker(mi)

	m.log.Info("index registered", slog.String("index", id))
	return nil
}

// Registered returns the ids of all managed indexes.
func (m *Manager) Registered() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.indexes))
	for id := range m.indexes {
		ids = append(ids, id)
	}
	return ids
}

// IndexStats is a point-in-time view of one managed index.
type IndexStats struct {
	// Index is the index id.
	Index string
	// QueueDepth is the number of jobs waiting for the worker.
	QueueDepth int
	// LastCommit is the time of the most recent committed mutation, zero
	// when nothing has committed since startup.
	LastCommit time.Time
}

// Stats reports the queue depth and last commit time of every registered
// index, sorted by id.
func (m *Manager) Stats() []IndexStats {
	m.mu.Lock()
	snapshot := make(map[string]*managed, len(m.indexes))
	for id, mi := range m.indexes {
		snapshot[id] = mi
	}
	m.mu.Unlock()

	stats := make([]IndexStats, 0, len(snapshot))
	for id, mi := range snapshot {
		stats = append(stats, IndexStats{
			Index:      id,
			QueueDepth: mi.queue.depth(),
			LastCommit: mi.io.LastCommit(),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Index < stats[j].Index })
	return stats
}

func (m *Manager) lookup(id string) (*managed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.New(errors.ErrCodeClosed, "manager is closed", nil)
	}
	mi, ok := m.indexes[id]
	if !ok {
		return nil, errors.UnknownIndex(id)
	}
	return mi, nil
}

// GrabReader leases a reader on the most recent committed generation of the
// given index.
func (m *Manager) GrabReader(ctx context.Context, id string) (*indexio.Lease, error) {
	mi, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return mi.io.GrabReader(ctx)
}

// GrabSearcher leases a searcher view over the same reader GrabReader would
// return.
func (m *Manager) GrabSearcher(ctx context.Context, id string) (*indexio.Lease, error) {
	mi, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return mi.io.GrabSearcher(ctx)
}

// Release returns a lease obtained from GrabReader or GrabSearcher.
func (m *Manager) Release(id string, l *indexio.Lease) error {
	mi, err := m.lookup(id)
	if err != nil {
		return err
	}
	return mi.io.Release(l)
}

// Submit enqueues a mutation for the given index and returns its job handle.
// The queue is FIFO per index; Submit never blocks on the worker.
func (m *Manager) Submit(id string, payload *store.Job) (*Job, error) {
	if payload == nil {
		return nil, errors.InvalidArgument("job payload must not be nil")
	}
	mi, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	job := newJob(fmt.Sprintf("%s-%d", id, m.jobSeq.Add(1)), id, payload)
	if !mi.queue.push(job) {
		return nil, errors.New(errors.ErrCodeClosed, fmt.Sprintf("queue for index %q is closed", id), nil)
	}

	if m.metrics != nil {
		m.metrics.JobsSubmitted.WithLabelValues(id).Inc()
		m.metrics.QueueDepth.WithLabelValues(id).Set(float64(mi.queue.depth()))
	}
	m.log.Debug("job submitted",
		slog.String("index", id),
		slog.String("job", job.ID),
		slog.String("kind", payload.Kind.String()))
	return job, nil
}

// worker drains one index's queue in submission order, one job at a time.
func (m *Manager) worker(mi *managed) {
	defer m.wg.Done()
	for {
		job, ok := mi.queue.pop()
		if !ok {
			return
		}
		if m.metrics != nil {
			m.metrics.QueueDepth.WithLabelValues(mi.io.ID()).Set(float64(mi.queue.depth()))
		}
		m.run(mi, job)
	}
}

// run executes one job under the retry budget and settles its state.
func (m *Manager) run(mi *managed, job *Job) {
	if !job.begin() {
		// Cancelled while queued.
		if m.metrics != nil {
			m.metrics.JobsCancelled.WithLabelValues(job.Index).Inc()
		}
		m.log.Info("job cancelled",
			slog.String("index", job.Index),
			slog.String("job", job.ID))
		return
	}

	start := time.Now()
	attempts := 0
	err := errors.Retry(m.baseCtx, m.retry, func() error {
		attempts++
		return m.applyAndCommit(mi, job)
	})

	if m.metrics != nil && attempts > 1 {
		m.metrics.JobRetries.WithLabelValues(job.Index).Add(float64(attempts - 1))
	}

	if err != nil {
		if m.baseCtx.Err() != nil {
			job.finish(JobCancelled, errors.Cancelled(job.ID))
			if m.metrics != nil {
				m.metrics.JobsCancelled.WithLabelValues(job.Index).Inc()
			}
			m.log.Info("job abandoned at shutdown",
				slog.String("index", job.Index),
				slog.String("job", job.ID))
			return
		}
		failure := errors.JobFailed(
			fmt.Sprintf("job %s failed after %d attempts", job.ID, attempts), err)
		job.finish(JobFailed, failure)
		if m.metrics != nil {
			m.metrics.JobsFailed.WithLabelValues(job.Index).Inc()
		}
		m.log.Error("job failed",
			slog.String("index", job.Index),
			slog.String("job", job.ID),
			slog.Int("attempts", attempts),
			slog.String("error", err.Error()))
		if m.listener != nil {
			m.listener.OnJobFailed(job.Index, job.ID, failure)
		}
		return
	}

	job.finish(JobCommitted, nil)
	if m.metrics != nil {
		m.metrics.JobsCommitted.WithLabelValues(job.Index).Inc()
		m.metrics.CommitLatency.WithLabelValues(job.Index).Observe(time.Since(start).Seconds())
	}
	m.log.Debug("job committed",
		slog.String("index", job.Index),
		slog.String("job", job.ID),
		slog.Int("attempts", attempts))
	if m.listener != nil {
		m.listener.OnJobCommitted(job.Index, job.ID)
	}
}

// applyAndCommit is one attempt: grab the writer, apply, commit, release.
func (m *Manager) applyAndCommit(mi *managed, job *Job) error {
	wl, err := mi.io.GrabWriterWait(m.baseCtx)
	if err != nil {
		return err
	}
	defer wl.Release()

	if err := wl.Apply(m.baseCtx, job.Payload); err != nil {
		return err
	}
	_, err = wl.Commit(m.baseCtx)
	return err
}

// Close stops intake and drains every queue. When ctx ends before the drain
// completes, remaining queued jobs are cancelled and in-flight work is
// interrupted. IO controllers are closed last; the store stays with its
// owner.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	indexes := make([]*managed, 0, len(m.indexes))
	for _, mi := range m.indexes {
		indexes = append(indexes, mi)
	}
	m.mu.Unlock()

	for _, mi := range indexes {
		mi.queue.close()
	}

	drained := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		for _, mi := range indexes {
			for _, job := range mi.queue.drain() {
				job.Cancel()
				if m.metrics != nil {
					m.metrics.JobsCancelled.WithLabelValues(job.Index).Inc()
				}
			}
		}
		m.cancelBase()
		<-drained
	}
	m.cancelBase()

	var errs []error
	for _, mi := range indexes {
		if err := mi.io.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("closing manager: %w", stderrors.Join(errs...))
	}
	m.log.Info("manager closed", slog.Int("indexes", len(indexes)))
	return nil
}
