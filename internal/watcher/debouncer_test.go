package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(path string, op Operation) FileEvent {
	return FileEvent{Path: path, Operation: op, Timestamp: time.Now()}
}

func receiveBatch(t *testing.T, d *Debouncer) []FileEvent {
	t.Helper()
	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(2 * time.Second):
		t.Fatal("no batch emitted")
		return nil
	}
}

func TestDebouncer_CoalescesBurstPerPath(t *testing.T) {
	// Given: a rapid burst of modifies to one file
	d := NewDebouncer(20*time.Millisecond, nil)
	defer d.Stop()

	for range 5 {
		d.Add(event("/docs/a.xml", OpModify))
	}

	// Then: one event comes out
	batch := receiveBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpModify, batch[0].Operation)
}

func TestDebouncer_CreateThenModifyStaysCreate(t *testing.T) {
	d := NewDebouncer(20*time.Millisecond, nil)
	defer d.Stop()

	d.Add(event("/docs/a.xml", OpCreate))
	d.Add(event("/docs/a.xml", OpModify))

	batch := receiveBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpCreate, batch[0].Operation)
}

func TestDebouncer_CreateThenDeleteCancels(t *testing.T) {
	d := NewDebouncer(20*time.Millisecond, nil)
	defer d.Stop()

	d.Add(event("/docs/a.xml", OpCreate))
	d.Add(event("/docs/a.xml", OpDelete))
	d.Add(event("/docs/b.xml", OpModify))

	// Only the surviving path is emitted.
	batch := receiveBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, "/docs/b.xml", batch[0].Path)
}

func TestDebouncer_ModifyThenDeleteBecomesDelete(t *testing.T) {
	d := NewDebouncer(20*time.Millisecond, nil)
	defer d.Stop()

	d.Add(event("/docs/a.xml", OpModify))
	d.Add(event("/docs/a.xml", OpDelete))

	batch := receiveBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpDelete, batch[0].Operation)
}

func TestDebouncer_DeleteThenCreateBecomesModify(t *testing.T) {
	d := NewDebouncer(20*time.Millisecond, nil)
	defer d.Stop()

	d.Add(event("/docs/a.xml", OpDelete))
	d.Add(event("/docs/a.xml", OpCreate))

	batch := receiveBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpModify, batch[0].Operation)
}

func TestDebouncer_SeparatePathsSurviveTogether(t *testing.T) {
	d := NewDebouncer(20*time.Millisecond, nil)
	defer d.Stop()

	d.Add(event("/docs/a.xml", OpCreate))
	d.Add(event("/docs/b.xml", OpDelete))

	batch := receiveBatch(t, d)
	assert.Len(t, batch, 2)
}

func TestDebouncer_StopIsIdempotent(t *testing.T) {
	d := NewDebouncer(20*time.Millisecond, nil)
	d.Stop()
	d.Stop()

	// Adds after stop are ignored, the output channel is closed.
	d.Add(event("/docs/a.xml", OpCreate))
	_, open := <-d.Output()
	assert.False(t, open)
}
