package api

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/james-see/wavenotes/pkg/notes"
	"github.com/james-see/wavenotes/pkg/session"
)

// JobStatus is the lifecycle state of a job
type JobStatus string

const (
	StatusProcessing JobStatus = "processing"
	StatusComplete   JobStatus = "complete"
	StatusFailed     JobStatus = "failed"
)

// Job is one uploaded recording analysed in its own session
type Job struct {
	ID        string
	Filename  string
	CreatedAt time.Time

	session *session.Session
	task    *session.Task

	mu     sync.Mutex
	status JobStatus
	err    string
}

// JobView is the JSON status of a job
type JobView struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	Stage     string    `json:"stage"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// View returns a snapshot of the job's status
func (j *Job) View() JobView {
	pct, stage := j.task.Progress()
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobView{
		ID:        j.ID,
		Filename:  j.Filename,
		Status:    j.status,
		Progress:  pct,
		Stage:     stage,
		Error:     j.err,
		CreatedAt: j.CreatedAt,
	}
}

// Status returns the job's lifecycle state
func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// JobManager manages analysis jobs
type JobManager struct {
	jobs  map[string]*Job
	mu    sync.RWMutex
	opts  session.Options
	tempo float64
}

// NewJobManager creates a new job manager
func NewJobManager(opts session.Options, tempo float64) *JobManager {
	return &JobManager{
		jobs:  make(map[string]*Job),
		opts:  opts,
		tempo: tempo,
	}
}

// Create stores the upload in a new session and starts analysing it
func (m *JobManager) Create(filename string, r io.Reader, settings notes.Settings) (*Job, error) {
	sess, err := session.New(m.opts)
	if err != nil {
		return nil, err
	}

	input := filepath.Join(sess.Dir(), "input", filepath.Base(filename))
	if err := saveUpload(input, r); err != nil {
		sess.Close()
		return nil, err
	}

	task, err := sess.Start(context.Background(), input, settings, nil)
	if err != nil {
		sess.Close()
		return nil, err
	}

	job := &Job{
		ID:        uuid.NewString(),
		Filename:  filepath.Base(filename),
		CreatedAt: time.Now(),
		session:   sess,
		task:      task,
		status:    StatusProcessing,
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	go m.watch(job)
	return job, nil
}

func (m *JobManager) watch(job *Job) {
	_, err := job.task.Wait()

	job.mu.Lock()
	defer job.mu.Unlock()
	if err != nil {
		job.status = StatusFailed
		job.err = err.Error()
		log.WithFields(log.Fields{"job": job.ID, "file": job.Filename}).WithError(err).Warn("analysis failed")
		return
	}
	job.status = StatusComplete
	log.WithFields(log.Fields{"job": job.ID, "file": job.Filename}).Info("analysis complete")
}

func saveUpload(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}
	return nil
}

// Get retrieves a job by ID
func (m *JobManager) Get(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// Delete stops a job and removes its working directory
func (m *JobManager) Delete(id string) bool {
	m.mu.Lock()
	job, ok := m.jobs[id]
	delete(m.jobs, id)
	m.mu.Unlock()

	if !ok {
		return false
	}
	if err := job.session.Close(); err != nil {
		log.WithField("job", id).WithError(err).Warn("failed to clean up job")
	}
	return true
}

// Close deletes every job
func (m *JobManager) Close() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.jobs))
	for id := range m.jobs {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.Delete(id)
	}
}
