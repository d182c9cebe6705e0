package manager

import (
	"sync"

	"github.com/Aman-CERP/indexhub/internal/store"
)

// JobState is the lifecycle state of an indexing job.
type JobState int32

const (
	// JobQueued means the job is waiting in its index's FIFO queue.
	JobQueued JobState = iota
	// JobRunning means the index worker is applying the job.
	JobRunning
	// JobCommitted means the job's mutation is durable. Terminal.
	JobCommitted
	// JobFailed means the retry budget is exhausted. Terminal.
	JobFailed
	// JobCancelled means the job was abandoned before it ran. Terminal.
	JobCancelled
)

// String returns the state name.
func (s JobState) String() string {
	switch s {
	case JobQueued:
		return "queued"
	case JobRunning:
		return "running"
	case JobCommitted:
		return "committed"
	case JobFailed:
		return "failed"
	case JobCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final.
func (s JobState) Terminal() bool {
	return s == JobCommitted || s == JobFailed || s == JobCancelled
}

// Job is one queued unit of mutation. It is owned by the queue from Submit
// until it reaches a terminal state.
type Job struct {
	// ID uniquely identifies the job within the manager.
	ID string
	// Index is the target index.
	Index string
	// Payload is the mutation handed to the store writer.
	Payload *store.Job

	mu    sync.Mutex
	state JobState
	err   error
	done  chan struct{}
}

func newJob(id, index string, payload *store.Job) *Job {
	return &Job{
		ID:      id,
		Index:   index,
		Payload: payload,
		state:   JobQueued,
		done:    make(chan struct{}),
	}
}

// State returns the job's current state.
func (j *Job) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Err returns the terminal error for a failed job, nil otherwise.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Done is closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Cancel marks a still-queued job as cancelled and reports whether it took
// effect. A running job is not interruptible: cancelling it is a no-op.
func (j *Job) Cancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != JobQueued {
		return false
	}
	j.state = JobCancelled
	close(j.done)
	return true
}

// begin moves a queued job to running. Returns false when the job was
// cancelled while queued.
func (j *Job) begin() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != JobQueued {
		return false
	}
	j.state = JobRunning
	return true
}

// finish records the terminal state reached by the worker.
func (j *Job) finish(state JobState, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return
	}
	j.state = state
	j.err = err
	close(j.done)
}
