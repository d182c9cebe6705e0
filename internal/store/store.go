// Package store defines the narrow contract the middleware consumes from the
// underlying inverted-index engine, and provides the bleve-backed
// implementation of it.
package store

import (
	"context"

	"github.com/blevesearch/bleve/v2/search/query"
)

// Field is one named value of a document, with its indexing flags.
type Field struct {
	// Name is the field name.
	Name string
	// Value is the field value: a string, or a float64 for numeric fields.
	Value any
	// Stored marks the field for retrieval with the document.
	Stored bool
	// Indexed marks the field as searchable.
	Indexed bool
	// Tokenized marks the field for full-text analysis. Untokenized fields
	// are indexed as single terms, which is what facet fields want.
	Tokenized bool
}

// Document is a finite ordered sequence of fields, keyed by a unique ID.
type Document struct {
	ID     string
	Fields []Field
}

// JobKind discriminates the mutation carried by a Job.
type JobKind int

const (
	// AddDocument indexes a new document.
	AddDocument JobKind = iota
	// UpdateDocument replaces the document with the same ID (delete-then-add).
	UpdateDocument
	// DeleteDocument removes the document with the given ID.
	DeleteDocument
)

// String returns the job kind name.
func (k JobKind) String() string {
	switch k {
	case AddDocument:
		return "add"
	case UpdateDocument:
		return "update"
	case DeleteDocument:
		return "delete"
	default:
		return "unknown"
	}
}

// Job is one unit of mutation addressed to an index.
type Job struct {
	// Kind is the mutation type.
	Kind JobKind
	// Doc is the document payload for add/update jobs.
	Doc *Document
	// DocID is the target document for delete jobs.
	DocID string
}

// Store opens readers and writers for named indexes.
//
// The store guarantees at most one writer per index is ever concurrently
// open; callers still serialize mutation through their own worker as
// defense in depth.
type Store interface {
	// OpenReader opens a read view of the index's current committed state.
	OpenReader(ctx context.Context, index string) (Reader, error)
	// OpenWriter opens the exclusive writer for the index.
	OpenWriter(ctx context.Context, index string) (Writer, error)
	// Close releases all engine resources.
	Close() error
}

// Reader is a read view of one committed generation of an index.
type Reader interface {
	// Generation returns the committed generation this reader was opened at.
	Generation() uint64
	// Count executes the query and returns the number of matching documents
	// without materializing them.
	Count(ctx context.Context, q query.Query) (int, error)
	// TermsOf enumerates up to max distinct terms of the field, in the
	// engine's dictionary order.
	TermsOf(field string, max int) ([]string, error)
	// Fields lists the indexed field names.
	Fields() ([]string, error)
	// DocCount returns the number of documents visible to this reader.
	DocCount() (uint64, error)
	// Close releases the read view.
	Close() error
}

// Searcher executes counting queries over a reader.
type Searcher interface {
	// Count executes the query and returns the number of matching documents.
	Count(ctx context.Context, q query.Query) (int, error)
	// Reader returns the underlying read view.
	Reader() Reader
}

// Writer applies mutations and commits them as a new generation.
type Writer interface {
	// Apply buffers the job's mutation.
	Apply(ctx context.Context, job *Job) error
	// Commit flushes buffered mutations and returns the new generation.
	Commit(ctx context.Context) (uint64, error)
	// Close releases the writer without committing buffered mutations.
	Close() error
}

// searcher is the trivial Searcher over a single Reader.
type searcher struct {
	r Reader
}

// NewSearcher wraps a reader as a searcher.
func NewSearcher(r Reader) Searcher {
	return &searcher{r: r}
}

func (s *searcher) Count(ctx context.Context, q query.Query) (int, error) {
	return s.r.Count(ctx, q)
}

func (s *searcher) Reader() Reader {
	return s.r
}
