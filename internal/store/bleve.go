package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
	index "github.com/blevesearch/bleve_index_api"
	"github.com/gofrs/flock"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/indexhub/internal/errors"
)

const defaultTermCacheSize = 256

// Options configures the bleve-backed store.
type Options struct {
	// RootDir is the directory holding one bleve index per index id.
	// Empty means in-memory indexes (used by tests).
	RootDir string

	// AnalyzedFields are indexed with the standard full-text analyzer.
	// Every other field is indexed verbatim with the keyword analyzer, so
	// its values stay single terms in the dictionary — which is what term
	// enumeration and facet classification require.
	AnalyzedFields []string

	// TermCacheSize bounds the LRU cache of term-dictionary enumerations.
	TermCacheSize int

	Logger *slog.Logger
}

// BleveStore implements Store over bleve v2 indexes.
type BleveStore struct {
	opts Options
	log  *slog.Logger

	mu      sync.Mutex
	indexes map[string]*bleveIndex

	termCache *lru.Cache[termCacheKey, []string]
}

type termCacheKey struct {
	index string
	gen   uint64
	field string
	max   int
}

// bleveIndex is the per-index engine state.
type bleveIndex struct {
	id  string
	idx bleve.Index

	// gen is the committed generation counter for this process.
	gen atomic.Uint64

	// writerBusy enforces the at-most-one-open-writer store guarantee.
	writerBusy atomic.Bool

	// lock guards the index directory against writers in other processes.
	lock *flock.Flock
}

// NewBleveStore creates a store rooted at opts.RootDir.
func NewBleveStore(opts Options) (*BleveStore, error) {
	if opts.TermCacheSize <= 0 {
		opts.TermCacheSize = defaultTermCacheSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	cache, err := lru.New[termCacheKey, []string](opts.TermCacheSize)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidArgument, err)
	}
	return &BleveStore{
		opts:      opts,
		log:       opts.Logger,
		indexes:   make(map[string]*bleveIndex),
		termCache: cache,
	}, nil
}

// buildMapping creates the index mapping: keyword analysis by default so
// field values remain single dictionary terms, full-text analysis only for
// the configured fields.
func (s *BleveStore) buildMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = keyword.Name
	for _, f := range s.opts.AnalyzedFields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = standard.Name
		im.DefaultMapping.AddFieldMappingsAt(f, fm)
	}
	return im
}

// ensure opens or creates the bleve index for the given id.
func (s *BleveStore) ensure(id string) (*bleveIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bi, ok := s.indexes[id]; ok {
		return bi, nil
	}

	bi := &bleveIndex{id: id}
	if s.opts.RootDir == "" {
		idx, err := bleve.NewMemOnly(s.buildMapping())
		if err != nil {
			return nil, errors.StoreError(fmt.Sprintf("creating in-memory index %q", id), err)
		}
		bi.idx = idx
	} else {
		path := filepath.Join(s.opts.RootDir, id)
		if err := os.MkdirAll(s.opts.RootDir, 0o755); err != nil {
			return nil, errors.StoreError(fmt.Sprintf("creating store root for %q", id), err)
		}
		idx, err := bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, s.buildMapping())
			if err != nil {
				return nil, errors.StoreError(fmt.Sprintf("creating index %q", id), err)
			}
		} else if err != nil {
			// An existing path that does not open as an index is corruption,
			// not a transient store failure: no retry can recover it.
			return nil, errors.New(errors.ErrCodeCorruptIndex,
				fmt.Sprintf("opening index %q", id), err)
		}
		bi.idx = idx
		bi.lock = flock.New(path + ".lock")
	}

	s.indexes[id] = bi
	s.log.Debug("index opened", slog.String("index", id))
	return bi, nil
}

// OpenReader opens a read view of the index's current committed generation.
func (s *BleveStore) OpenReader(ctx context.Context, id string) (Reader, error) {
	bi, err := s.ensure(id)
	if err != nil {
		return nil, err
	}

	adv, err := bi.idx.Advanced()
	if err != nil {
		return nil, errors.StoreError(fmt.Sprintf("accessing index %q internals", id), err)
	}
	ir, err := adv.Reader()
	if err != nil {
		return nil, errors.StoreError(fmt.Sprintf("opening reader for %q", id), err)
	}

	return &bleveReader{
		store: s,
		bi:    bi,
		gen:   bi.gen.Load(),
		ir:    ir,
	}, nil
}

// OpenWriter opens the exclusive writer for the index. The store refuses a
// second concurrently open writer for the same index.
func (s *BleveStore) OpenWriter(ctx context.Context, id string) (Writer, error) {
	bi, err := s.ensure(id)
	if err != nil {
		return nil, err
	}

	if !bi.writerBusy.CompareAndSwap(false, true) {
		return nil, errors.Busy(id)
	}

	if bi.lock != nil {
		locked, err := bi.lock.TryLock()
		if err != nil || !locked {
			bi.writerBusy.Store(false)
			if err == nil {
				err = fmt.Errorf("index directory locked by another process")
			}
			return nil, errors.StoreError(fmt.Sprintf("locking index %q", id), err)
		}
	}

	return &bleveWriter{
		store: s,
		bi:    bi,
		batch: bi.idx.NewBatch(),
	}, nil
}

// Close closes every open index.
func (s *BleveStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for id, bi := range s.indexes {
		if bi.lock != nil {
			_ = bi.lock.Unlock()
		}
		if err := bi.idx.Close(); err != nil {
			errs = append(errs, errors.StoreError(fmt.Sprintf("closing index %q", id), err))
		}
	}
	s.indexes = make(map[string]*bleveIndex)
	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

// bleveReader pins every read to the snapshot taken at open: the term
// dictionary, the document count, and counting queries all observe the
// leased generation, never commits that landed after it.
type bleveReader struct {
	store *BleveStore
	bi    *bleveIndex
	gen   uint64
	ir    index.IndexReader

	closed atomic.Bool
}

func (r *bleveReader) Generation() uint64 {
	return r.gen
}

// checkCancelEvery bounds how many matches a counting loop tallies between
// context checks.
const checkCancelEvery = 1024

// Count executes q as a counting query over the pinned snapshot: the query's
// searcher runs against the reader taken at open, so counts stay on the
// leased generation even while later commits land. Matches are tallied,
// never materialized.
func (r *bleveReader) Count(ctx context.Context, q query.Query) (int, error) {
	if r.closed.Load() {
		return 0, errors.StoreError("reader is closed", nil)
	}
	searcher, err := q.Searcher(ctx, r.ir, r.bi.idx.Mapping(), search.SearcherOptions{Score: "none"})
	if err != nil {
		return 0, errors.StoreError(fmt.Sprintf("building counting searcher on %q", r.bi.id), err)
	}
	defer func() { _ = searcher.Close() }()

	sc := &search.SearchContext{
		DocumentMatchPool: search.NewDocumentMatchPool(searcher.DocumentMatchPoolSize()+1, 0),
		IndexReader:       r.ir,
	}
	count := 0
	for {
		if count%checkCancelEvery == 0 && ctx.Err() != nil {
			return 0, errors.Wrap(errors.ErrCodeCancelled, ctx.Err())
		}
		dm, err := searcher.Next(sc)
		if err != nil {
			return 0, errors.StoreError(fmt.Sprintf("counting query on %q", r.bi.id), err)
		}
		if dm == nil {
			break
		}
		count++
		sc.DocumentMatchPool.Put(dm)
	}
	return count, nil
}

// TermsOf enumerates up to max distinct terms of the field from the pinned
// snapshot's dictionary, truncating deterministically at max. Results are
// cached per (index, generation, field, max).
func (r *bleveReader) TermsOf(field string, max int) ([]string, error) {
	if r.closed.Load() {
		return nil, errors.StoreError("reader is closed", nil)
	}
	key := termCacheKey{index: r.bi.id, gen: r.gen, field: field, max: max}
	if terms, ok := r.store.termCache.Get(key); ok {
		return terms, nil
	}

	fd, err := r.ir.FieldDict(field)
	if err != nil {
		return nil, errors.StoreError(fmt.Sprintf("enumerating terms of %q.%s", r.bi.id, field), err)
	}
	defer func() { _ = fd.Close() }()

	var terms []string
	for {
		if max > 0 && len(terms) >= max {
			break
		}
		entry, err := fd.Next()
		if err != nil {
			return nil, errors.StoreError(fmt.Sprintf("enumerating terms of %q.%s", r.bi.id, field), err)
		}
		if entry == nil {
			break
		}
		terms = append(terms, entry.Term)
	}

	r.store.termCache.Add(key, terms)
	return terms, nil
}

func (r *bleveReader) Fields() ([]string, error) {
	if r.closed.Load() {
		return nil, errors.StoreError("reader is closed", nil)
	}
	fields, err := r.bi.idx.Fields()
	if err != nil {
		return nil, errors.StoreError(fmt.Sprintf("listing fields of %q", r.bi.id), err)
	}
	return fields, nil
}

func (r *bleveReader) DocCount() (uint64, error) {
	if r.closed.Load() {
		return 0, errors.StoreError("reader is closed", nil)
	}
	n, err := r.ir.DocCount()
	if err != nil {
		return 0, errors.StoreError(fmt.Sprintf("counting documents of %q", r.bi.id), err)
	}
	return n, nil
}

func (r *bleveReader) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := r.ir.Close(); err != nil {
		return errors.StoreError(fmt.Sprintf("closing reader of %q", r.bi.id), err)
	}
	return nil
}

// bleveWriter buffers mutations in a batch until Commit.
type bleveWriter struct {
	store *BleveStore
	bi    *bleveIndex
	batch *bleve.Batch

	closed atomic.Bool
}

func (w *bleveWriter) Apply(ctx context.Context, job *Job) error {
	if w.closed.Load() {
		return errors.StoreError("writer is closed", nil)
	}
	switch job.Kind {
	case AddDocument, UpdateDocument:
		if job.Doc == nil || job.Doc.ID == "" {
			return errors.InvalidArgument("add/update job requires a document with an ID")
		}
		// Indexing under an existing ID replaces the previous document, so
		// add and update share one path.
		if err := w.batch.Index(job.Doc.ID, toBleveDoc(job.Doc)); err != nil {
			return errors.StoreError(fmt.Sprintf("buffering %s of %q", job.Kind, job.Doc.ID), err)
		}
	case DeleteDocument:
		if job.DocID == "" {
			return errors.InvalidArgument("delete job requires a document ID")
		}
		w.batch.Delete(job.DocID)
	default:
		return errors.InvalidArgument(fmt.Sprintf("unknown job kind %d", job.Kind))
	}
	return nil
}

func (w *bleveWriter) Commit(ctx context.Context) (uint64, error) {
	if w.closed.Load() {
		return 0, errors.StoreError("writer is closed", nil)
	}
	if w.batch.Size() > 0 {
		if err := w.bi.idx.Batch(w.batch); err != nil {
			return 0, errors.StoreError(fmt.Sprintf("committing batch to %q", w.bi.id), err)
		}
		w.batch = w.bi.idx.NewBatch()
	}
	return w.bi.gen.Add(1), nil
}

func (w *bleveWriter) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	if w.bi.lock != nil {
		_ = w.bi.lock.Unlock()
	}
	w.bi.writerBusy.Store(false)
	return nil
}

// toBleveDoc flattens the indexed fields of a document for the engine.
// Multiple values for the same field name collect into a slice.
func toBleveDoc(doc *Document) map[string]any {
	out := make(map[string]any, len(doc.Fields))
	for _, f := range doc.Fields {
		if !f.Indexed {
			continue
		}
		if existing, ok := out[f.Name]; ok {
			switch v := existing.(type) {
			case []any:
				out[f.Name] = append(v, f.Value)
			default:
				out[f.Name] = []any{v, f.Value}
			}
			continue
		}
		out[f.Name] = f.Value
	}
	return out
}

var _ Store = (*BleveStore)(nil)
var _ Reader = (*bleveReader)(nil)
var _ Writer = (*bleveWriter)(nil)
