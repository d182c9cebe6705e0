package manager

import (
	"context"
	"sync"

	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/indexhub/internal/errors"
	"github.com/Aman-CERP/indexhub/internal/store"
)

// fakeStore is a multi-index in-memory Store double with injectable commit
// failures, reader close failures, and a commit gate for holding a worker
// mid-job.
type fakeStore struct {
	mu sync.Mutex

	indexes     map[string]*fakeIndex
	failCommits map[string]int   // per index, remaining Commit calls to fail
	closeErrs   map[string]error // per index, error returned by reader Close
	commitGate  chan struct{}    // when set, Commit blocks until it closes
}

type fakeIndex struct {
	gen     uint64
	docs    map[string]*store.Document
	readers []*fakeMgrReader
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		indexes:     make(map[string]*fakeIndex),
		failCommits: make(map[string]int),
		closeErrs:   make(map[string]error),
	}
}

func (s *fakeStore) index(id string) *fakeIndex {
	fi, ok := s.indexes[id]
	if !ok {
		fi = &fakeIndex{docs: make(map[string]*store.Document)}
		s.indexes[id] = fi
	}
	return fi
}

func (s *fakeStore) OpenReader(ctx context.Context, index string) (store.Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fi := s.index(index)
	r := &fakeMgrReader{
		store:    s,
		index:    index,
		gen:      fi.gen,
		docCount: uint64(len(fi.docs)),
	}
	fi.readers = append(fi.readers, r)
	return r, nil
}

func (s *fakeStore) OpenWriter(ctx context.Context, index string) (store.Writer, error) {
	return &fakeMgrWriter{store: s, index: index}, nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) docCount(index string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index(index).docs)
}

func (s *fakeStore) liveReaders(index string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.index(index).readers {
		if !r.closed {
			n++
		}
	}
	return n
}

type fakeMgrReader struct {
	store    *fakeStore
	index    string
	gen      uint64
	docCount uint64
	closed   bool
}

func (r *fakeMgrReader) Generation() uint64 { return r.gen }

func (r *fakeMgrReader) Count(ctx context.Context, q query.Query) (int, error) {
	return int(r.docCount), nil
}

func (r *fakeMgrReader) TermsOf(field string, max int) ([]string, error) { return nil, nil }

func (r *fakeMgrReader) Fields() ([]string, error) { return nil, nil }

func (r *fakeMgrReader) DocCount() (uint64, error) { return r.docCount, nil }

func (r *fakeMgrReader) Close() error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.closed = true
	return r.store.closeErrs[r.index]
}

type fakeMgrWriter struct {
	store   *fakeStore
	index   string
	pending []*store.Job
}

func (w *fakeMgrWriter) Apply(ctx context.Context, job *store.Job) error {
	switch job.Kind {
	case store.AddDocument, store.UpdateDocument:
		if job.Doc == nil || job.Doc.ID == "" {
			return errors.InvalidArgument("document with an id is required")
		}
	case store.DeleteDocument:
		if job.DocID == "" {
			return errors.InvalidArgument("document id is required")
		}
	}
	w.pending = append(w.pending, job)
	return nil
}

func (w *fakeMgrWriter) Commit(ctx context.Context) (uint64, error) {
	w.store.mu.Lock()
	gate := w.store.commitGate
	w.store.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	if w.store.failCommits[w.index] > 0 {
		w.store.failCommits[w.index]--
		w.pending = nil
		return 0, errors.StoreError("injected commit failure", nil)
	}
	fi := w.store.index(w.index)
	for _, job := range w.pending {
		switch job.Kind {
		case store.AddDocument, store.UpdateDocument:
			fi.docs[job.Doc.ID] = job.Doc
		case store.DeleteDocument:
			delete(fi.docs, job.DocID)
		}
	}
	w.pending = nil
	fi.gen++
	return fi.gen, nil
}

func (w *fakeMgrWriter) Close() error { return nil }

// recordingListener captures job callbacks in arrival order.
type recordingListener struct {
	mu        sync.Mutex
	committed []string
	failed    []string
	failErrs  []error
}

func (l *recordingListener) OnJobCommitted(index, jobID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.committed = append(l.committed, jobID)
}

func (l *recordingListener) OnJobFailed(index, jobID string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failed = append(l.failed, jobID)
	l.failErrs = append(l.failErrs, err)
}

func (l *recordingListener) committedIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.committed...)
}

func (l *recordingListener) failedIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.failed...)
}
