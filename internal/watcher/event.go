// Package watcher feeds content-directory changes into the indexing
// pipeline: raw filesystem events are coalesced, changed document files are
// parsed, and the resulting mutations submitted as jobs.
package watcher

import "time"

// Operation is the kind of filesystem change observed on a document file.
type Operation int

const (
	// OpCreate indicates a new document file appeared.
	OpCreate Operation = iota
	// OpModify indicates an existing document file changed.
	OpModify
	// OpDelete indicates a document file was removed.
	OpDelete
)

// String returns the operation name.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// FileEvent is one observed change to a document file.
type FileEvent struct {
	// Path is the absolute path of the file.
	Path string
	// Operation is the change kind.
	Operation Operation
	// Timestamp is when the change was observed.
	Timestamp time.Time
}
