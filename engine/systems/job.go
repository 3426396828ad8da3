package systems

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/spaghettifunk/instanced/engine/core"
	"github.com/spaghettifunk/instanced/engine/renderer/metadata"
)

type JobSystem struct {
	workers int
	queue   chan metadata.JobTask
	wg      sync.WaitGroup
	logger  core.Logger

	mu     sync.RWMutex
	closed bool
}

var (
	ErrNoWorkers           = errors.New("job system needs at least one worker")
	ErrNegativeChannelSize = errors.New("job queue size must not be negative")
	ErrJobSystemClosed     = errors.New("job system is shut down")
	ErrJobNoEntryPoint     = errors.New("job has no entry point")
)

func NewJobSystem(workers int, queueSize int, logger core.Logger) (*JobSystem, error) {
	if workers <= 0 {
		return nil, ErrNoWorkers
	}
	if queueSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		workers: workers,
		queue:   make(chan metadata.JobTask, queueSize),
		logger:  core.OrNop(logger),
	}

	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	js.wg.Add(js.workers)
	for range js.workers {
		go js.work()
	}
}

func (js *JobSystem) work() {
	defer js.wg.Done()
	for job := range js.queue {
		result, err := job.OnStart()
		switch {
		case err != nil:
			js.logger.Debugf("job %s failed: %s", job.ID, err)
			if job.OnFailure != nil {
				job.OnFailure(job.ID, err)
			}
		case job.OnComplete != nil:
			job.OnComplete(job.ID, result)
		}
	}
}

// Shutdown stops accepting jobs, drains the queue and waits for the workers.
func (js *JobSystem) Shutdown() error {
	js.mu.Lock()
	if js.closed {
		js.mu.Unlock()
		return nil
	}
	js.closed = true
	close(js.queue)
	js.mu.Unlock()

	js.wg.Wait()
	return nil
}

// Submit queues the job and returns its id. It blocks while the queue is full.
func (js *JobSystem) Submit(jt metadata.JobTask) (string, error) {
	if jt.OnStart == nil {
		return "", ErrJobNoEntryPoint
	}
	if jt.ID == "" {
		jt.ID = uuid.NewString()
	}

	js.mu.RLock()
	defer js.mu.RUnlock()
	if js.closed {
		return "", ErrJobSystemClosed
	}
	js.queue <- jt
	return jt.ID, nil
}
