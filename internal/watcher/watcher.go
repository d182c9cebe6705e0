package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Aman-CERP/indexhub/internal/errors"
	"github.com/Aman-CERP/indexhub/internal/ingest"
	"github.com/Aman-CERP/indexhub/internal/store"
)

// ContentWatcher watches one content directory and turns document file
// changes into indexing jobs for its index.
type ContentWatcher struct {
	index    string
	dir      string
	submit   func(index string, payload *store.Job) error
	parser   *ingest.Parser
	debounce time.Duration
	log      *slog.Logger

	fw   *fsnotify.Watcher
	deb  *Debouncer
	wg   sync.WaitGroup
	stop sync.Once

	// fileDocs remembers the document IDs last parsed from each file, so
	// deleting a file can delete its documents from the index.
	mu       sync.Mutex
	fileDocs map[string][]string
}

// Options configures a content watcher.
type Options struct {
	// Debounce is the coalescing window for file event bursts.
	Debounce time.Duration
	Logger   *slog.Logger
}

// New creates a watcher for one index's content directory. submit is called
// once per derived job; it is the manager's Submit with the job handle
// dropped.
func New(index, dir string, submit func(index string, payload *store.Job) error, parser *ingest.Parser, opts Options) *ContentWatcher {
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if parser == nil {
		parser = ingest.NewParser(opts.Logger)
	}
	return &ContentWatcher{
		index:    index,
		dir:      dir,
		submit:   submit,
		parser:   parser,
		debounce: opts.Debounce,
		log:      opts.Logger,
		fileDocs: make(map[string][]string),
	}
}

// Start begins watching. The watcher runs until Stop or context end.
func (w *ContentWatcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.StoreError("creating filesystem watcher", err)
	}
	if err := fw.Add(w.dir); err != nil {
		_ = fw.Close()
		return errors.StoreError(fmt.Sprintf("watching %q", w.dir), err)
	}
	w.fw = fw
	w.deb = NewDebouncer(w.debounce, w.log)

	w.wg.Add(2)
	go w.collect(ctx)
	go w.dispatch(ctx)

	w.log.Info("watching content directory",
		slog.String("index", w.index),
		slog.String("dir", w.dir))
	return nil
}

// Stop stops watching and waits for in-flight dispatch to finish.
func (w *ContentWatcher) Stop() {
	w.stop.Do(func() {
		if w.fw != nil {
			_ = w.fw.Close()
		}
	})
	w.wg.Wait()
}

// collect translates raw fsnotify events into debounced file events.
func (w *ContentWatcher) collect(ctx context.Context) {
	defer w.wg.Done()
	defer w.deb.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !isDocumentFile(ev.Name) {
				continue
			}
			op, ok := translate(ev.Op)
			if !ok {
				continue
			}
			w.deb.Add(FileEvent{Path: ev.Name, Operation: op, Timestamp: time.Now()})
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("filesystem watcher error",
				slog.String("index", w.index),
				slog.String("error", err.Error()))
		}
	}
}

// dispatch drains debounced batches into indexing jobs.
func (w *ContentWatcher) dispatch(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-w.deb.Output():
			if !ok {
				return
			}
			w.Dispatch(batch)
		}
	}
}

// Dispatch submits the jobs derived from one batch of coalesced events.
func (w *ContentWatcher) Dispatch(batch []FileEvent) {
	for _, ev := range batch {
		switch ev.Operation {
		case OpCreate, OpModify:
			w.reindexFile(ev.Path)
		case OpDelete:
			w.deleteFile(ev.Path)
		}
	}
}

// reindexFile parses a document file and submits one update per document.
// Documents that disappeared from the file since its last parse are deleted.
func (w *ContentWatcher) reindexFile(path string) {
	docs, err := w.parser.ParseFile(path)
	if err != nil {
		w.log.Warn("skipping unparseable document file",
			slog.String("index", w.index),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}

	current := make(map[string]struct{}, len(docs))
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		current[doc.ID] = struct{}{}
		ids = append(ids, doc.ID)
		if err := w.submit(w.index, &store.Job{Kind: store.UpdateDocument, Doc: doc}); err != nil {
			w.log.Warn("submitting update job failed",
				slog.String("index", w.index),
				slog.String("doc", doc.ID),
				slog.String("error", err.Error()))
		}
	}

	w.mu.Lock()
	previous := w.fileDocs[path]
	w.fileDocs[path] = ids
	w.mu.Unlock()

	for _, id := range previous {
		if _, still := current[id]; still {
			continue
		}
		if err := w.submit(w.index, &store.Job{Kind: store.DeleteDocument, DocID: id}); err != nil {
			w.log.Warn("submitting delete job failed",
				slog.String("index", w.index),
				slog.String("doc", id),
				slog.String("error", err.Error()))
		}
	}
}

// deleteFile submits deletes for every document last parsed from the file.
func (w *ContentWatcher) deleteFile(path string) {
	w.mu.Lock()
	ids := w.fileDocs[path]
	delete(w.fileDocs, path)
	w.mu.Unlock()

	for _, id := range ids {
		if err := w.submit(w.index, &store.Job{Kind: store.DeleteDocument, DocID: id}); err != nil {
			w.log.Warn("submitting delete job failed",
				slog.String("index", w.index),
				slog.String("doc", id),
				slog.String("error", err.Error()))
		}
	}
}

func isDocumentFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xml")
}

func translate(op fsnotify.Op) (Operation, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate, true
	case op.Has(fsnotify.Write):
		return OpModify, true
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return OpDelete, true
	default:
		return 0, false
	}
}
