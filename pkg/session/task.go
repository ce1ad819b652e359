package session

import (
	"context"
	"sync"
)

// ProgressFunc receives progress milestones (0-100) with a short status
// message. It is called from the task's goroutine.
type ProgressFunc func(pct int, msg string)

// Progress milestones reported by an analysis task
const (
	ProgressDecoding     = 5
	ProgressLoading      = 25
	ProgressTranscribing = 55
	ProgressTweaking     = 75
	ProgressComplete     = 100
)

// Task is a handle to a background analysis
type Task struct {
	done   chan struct{}
	cancel context.CancelFunc

	mu       sync.Mutex
	pct      int
	msg      string
	analysis *Analysis
	err      error
}

func newTask(cancel context.CancelFunc) *Task {
	return &Task{done: make(chan struct{}), cancel: cancel}
}

// Done is closed once the task has finished, successfully or not
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes and returns its outcome
func (t *Task) Wait() (*Analysis, error) {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.analysis, t.err
}

// Progress returns the last milestone reported
func (t *Task) Progress() (int, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pct, t.msg
}

// Cancel asks the task to stop. Only decoding and transcription observe it.
func (t *Task) Cancel() {
	t.cancel()
}

func (t *Task) report(pct int, msg string) {
	t.mu.Lock()
	t.pct, t.msg = pct, msg
	t.mu.Unlock()
}

func (t *Task) finish(a *Analysis, err error) {
	t.mu.Lock()
	t.analysis, t.err = a, err
	t.mu.Unlock()
	t.cancel()
	close(t.done)
}

func (t *Task) running() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}
