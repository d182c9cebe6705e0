package indexio

import (
	"context"
	"sync"

	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/indexhub/internal/errors"
	"github.com/Aman-CERP/indexhub/internal/store"
)

// fakeStore is an in-memory Store double with controllable failures,
// used to exercise generation and lease bookkeeping without an engine.
type fakeStore struct {
	mu sync.Mutex

	gen          uint64
	docs         map[string]*store.Document
	openReaders  []*fakeReader
	failOpens    int // remaining OpenReader calls to fail
	failCommits  int // remaining Commit calls to fail
	readersTotal int
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string]*store.Document)}
}

func (s *fakeStore) OpenReader(ctx context.Context, index string) (store.Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOpens > 0 {
		s.failOpens--
		return nil, errors.StoreError("injected open failure", nil)
	}
	r := &fakeReader{store: s, gen: s.gen, docCount: uint64(len(s.docs))}
	s.openReaders = append(s.openReaders, r)
	s.readersTotal++
	return r, nil
}

func (s *fakeStore) OpenWriter(ctx context.Context, index string) (store.Writer, error) {
	return &fakeWriter{store: s}, nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) liveReaders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.openReaders {
		if !r.closed {
			n++
		}
	}
	return n
}

type fakeReader struct {
	store    *fakeStore
	gen      uint64
	docCount uint64
	closed   bool
}

func (r *fakeReader) Generation() uint64 { return r.gen }

func (r *fakeReader) Count(ctx context.Context, q query.Query) (int, error) {
	return int(r.docCount), nil
}

func (r *fakeReader) TermsOf(field string, max int) ([]string, error) {
	return nil, nil
}

func (r *fakeReader) Fields() ([]string, error) { return nil, nil }

func (r *fakeReader) DocCount() (uint64, error) { return r.docCount, nil }

func (r *fakeReader) Close() error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.closed = true
	return nil
}

type fakeWriter struct {
	store   *fakeStore
	pending []*store.Job
}

func (w *fakeWriter) Apply(ctx context.Context, job *store.Job) error {
	w.pending = append(w.pending, job)
	return nil
}

func (w *fakeWriter) Commit(ctx context.Context) (uint64, error) {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	if w.store.failCommits > 0 {
		w.store.failCommits--
		return 0, errors.StoreError("injected commit failure", nil)
	}
	for _, job := range w.pending {
		switch job.Kind {
		case store.AddDocument, store.UpdateDocument:
			w.store.docs[job.Doc.ID] = job.Doc
		case store.DeleteDocument:
			delete(w.store.docs, job.DocID)
		}
	}
	w.pending = nil
	w.store.gen++
	return w.store.gen, nil
}

func (w *fakeWriter) Close() error { return nil }
