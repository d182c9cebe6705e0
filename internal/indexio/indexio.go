// Package indexio controls the engine resources of one index: the exclusive
// writer, the current reader generation, and reference-counted leases on
// open readers.
package indexio

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Aman-CERP/indexhub/internal/errors"
	"github.com/Aman-CERP/indexhub/internal/store"
)

// IO multiplexes one exclusive writer and many concurrent readers over a
// single index. Readers are tracked per generation: release only closes the
// underlying resource when its lease count reaches zero and a newer
// generation has superseded it.
type IO struct {
	id    string
	store store.Store
	log   *slog.Logger

	// writerSem serializes writer ownership; it does not care about
	// fairness, only exclusivity.
	writerSem chan struct{}

	mu          sync.Mutex
	writer      store.Writer // kept warm between jobs, nil until first grab
	current     *entry
	stale       map[uint64]*entry
	needsReopen bool
	lastCommit  time.Time
	closed      bool
}

// entry is one open reader generation and its outstanding lease count.
type entry struct {
	gen    uint64
	reader store.Reader
	refs   int
}

// New creates the resource controller for one index.
func New(id string, s store.Store, log *slog.Logger) *IO {
	if log == nil {
		log = slog.Default()
	}
	return &IO{
		id:        id,
		store:     s,
		log:       log,
		writerSem: make(chan struct{}, 1),
		stale:     make(map[uint64]*entry),
	}
}

// ID returns the index identifier this controller serves.
func (io *IO) ID() string {
	return io.id
}

// Lease is a reference-counted borrow of a reader at a fixed generation.
type Lease struct {
	io       *IO
	e        *entry
	released atomic.Bool
}

// Generation returns the committed generation the lease is pinned to.
func (l *Lease) Generation() uint64 {
	return l.e.gen
}

// Reader returns the leased read view.
func (l *Lease) Reader() store.Reader {
	return l.e.reader
}

// Searcher returns a searcher over the leased read view.
func (l *Lease) Searcher() store.Searcher {
	return store.NewSearcher(l.e.reader)
}

// GrabReader leases the most recent committed generation's reader, opening
// one lazily when none is open yet or a commit has marked the current one
// for reopen. A failed open leaves existing leases untouched.
func (io *IO) GrabReader(ctx context.Context) (*Lease, error) {
	io.mu.Lock()
	defer io.mu.Unlock()

	if io.closed {
		return nil, errors.New(errors.ErrCodeClosed, fmt.Sprintf("index %q is closed", io.id), nil)
	}

	if io.current == nil || io.needsReopen {
		reader, err := io.store.OpenReader(ctx, io.id)
		if err != nil {
			return nil, err
		}
		io.retireCurrentLocked()
		io.current = &entry{gen: reader.Generation(), reader: reader}
		io.needsReopen = false
		io.log.Debug("reader opened",
			slog.String("index", io.id),
			slog.Uint64("generation", io.current.gen))
	}

	io.current.refs++
	return &Lease{io: io, e: io.current}, nil
}

// GrabSearcher is GrabReader with a searcher view over the same lease.
func (io *IO) GrabSearcher(ctx context.Context) (*Lease, error) {
	return io.GrabReader(ctx)
}

// Release returns a lease. The underlying reader is closed only when this
// was the last lease on a generation a later commit has superseded.
func (io *IO) Release(l *Lease) error {
	if l == nil {
		return nil
	}
	if !l.released.CompareAndSwap(false, true) {
		return errors.New(errors.ErrCodeStaleLease,
			fmt.Sprintf("lease on index %q generation %d released twice", io.id, l.e.gen), nil)
	}

	io.mu.Lock()
	defer io.mu.Unlock()

	l.e.refs--
	if l.e.refs == 0 && l.e != io.current {
		delete(io.stale, l.e.gen)
		if err := l.e.reader.Close(); err != nil {
			io.log.Warn("closing stale reader failed",
				slog.String("index", io.id),
				slog.Uint64("generation", l.e.gen),
				slog.String("error", err.Error()))
			return err
		}
		io.log.Debug("stale reader closed",
			slog.String("index", io.id),
			slog.Uint64("generation", l.e.gen))
	}
	return nil
}

// retireCurrentLocked moves the current entry out of the way of a reopen:
// closed immediately when unreferenced, parked as stale otherwise.
func (io *IO) retireCurrentLocked() {
	if io.current == nil {
		return
	}
	if io.current.refs == 0 {
		if err := io.current.reader.Close(); err != nil {
			io.log.Warn("closing superseded reader failed",
				slog.String("index", io.id),
				slog.String("error", err.Error()))
		}
	} else {
		io.stale[io.current.gen] = io.current
	}
	io.current = nil
}

// WriterLease is the exclusive borrow of the index writer.
type WriterLease struct {
	io       *IO
	w        store.Writer
	released atomic.Bool
}

// Apply buffers a mutation on the writer.
func (l *WriterLease) Apply(ctx context.Context, job *store.Job) error {
	return l.w.Apply(ctx, job)
}

// Commit flushes buffered mutations, advances the generation, and marks the
// deferred reopen. Readers are not reopened here: the next GrabReader after
// commit pays the open cost once, however many commits came before it.
func (l *WriterLease) Commit(ctx context.Context) (uint64, error) {
	gen, err := l.w.Commit(ctx)
	if err != nil {
		return 0, err
	}
	l.io.mu.Lock()
	l.io.needsReopen = true
	l.io.lastCommit = time.Now()
	l.io.mu.Unlock()
	return gen, nil
}

// Release hands the writer back. The underlying store writer stays warm for
// the next grab.
func (l *WriterLease) Release() {
	if !l.released.CompareAndSwap(false, true) {
		return
	}
	<-l.io.writerSem
}

// GrabWriter acquires the exclusive writer without blocking, failing with
// Busy when another mutation is in progress.
func (io *IO) GrabWriter(ctx context.Context) (*WriterLease, error) {
	select {
	case io.writerSem <- struct{}{}:
	default:
		return nil, errors.Busy(io.id)
	}
	return io.writerLease(ctx)
}

// GrabWriterWait acquires the exclusive writer, queueing until it is
// available or the context ends.
func (io *IO) GrabWriterWait(ctx context.Context) (*WriterLease, error) {
	select {
	case io.writerSem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return io.writerLease(ctx)
}

// writerLease opens the store writer lazily; called with the semaphore held.
func (io *IO) writerLease(ctx context.Context) (*WriterLease, error) {
	io.mu.Lock()
	defer io.mu.Unlock()

	if io.closed {
		<-io.writerSem
		return nil, errors.New(errors.ErrCodeClosed, fmt.Sprintf("index %q is closed", io.id), nil)
	}

	if io.writer == nil {
		w, err := io.store.OpenWriter(ctx, io.id)
		if err != nil {
			<-io.writerSem
			return nil, err
		}
		io.writer = w
	}
	return &WriterLease{io: io, w: io.writer}, nil
}

// NeedsReopen reports whether a commit has superseded the current reader.
func (io *IO) NeedsReopen() bool {
	io.mu.Lock()
	defer io.mu.Unlock()
	return io.needsReopen
}

// LastCommit returns the time of the most recent commit, zero if none.
func (io *IO) LastCommit() time.Time {
	io.mu.Lock()
	defer io.mu.Unlock()
	return io.lastCommit
}

// Close releases the writer and all readers. Outstanding leases become
// invalid; Close is expected only at shutdown, after workers have drained.
func (io *IO) Close() error {
	io.mu.Lock()
	defer io.mu.Unlock()

	if io.closed {
		return nil
	}
	io.closed = true

	var errs []error
	if io.writer != nil {
		if err := io.writer.Close(); err != nil {
			errs = append(errs, err)
		}
		io.writer = nil
	}
	if io.current != nil {
		if err := io.current.reader.Close(); err != nil {
			errs = append(errs, err)
		}
		io.current = nil
	}
	for gen, e := range io.stale {
		if err := e.reader.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(io.stale, gen)
	}
	if len(errs) > 0 {
		return fmt.Errorf("closing index %q: %w", io.id, stderrors.Join(errs...))
	}
	return nil
}
