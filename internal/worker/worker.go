package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"docchat/internal/models"
)

type JobType int

const (
	Ingest JobType = iota
	Stop
)

func (t JobType) String() string {
	switch t {
	case Ingest:
		return "ingest"
	case Stop:
		return "stop"
	default:
		return fmt.Sprintf("job(%d)", int(t))
	}
}

// Job is one unit of work handed to a worker. Key groups jobs for fair
// dispatching: jobs sharing a key run in submission order.
type Job struct {
	Type JobType
	Key  string
	Task *ingestTask
}

const (
	taskQueued int32 = iota
	taskStarted
	taskCancelled
)

type ingestTask struct {
	ctx    context.Context
	doc    *models.Document
	result chan ingestResult
	state  atomic.Int32
}

// start claims the task for a worker; false once the submitter gave up on it.
func (t *ingestTask) start() bool {
	return t.state.CompareAndSwap(taskQueued, taskStarted)
}

// cancel withdraws a task no worker has started yet.
func (t *ingestTask) cancel() bool {
	return t.state.CompareAndSwap(taskQueued, taskCancelled)
}

type ingestResult struct {
	chunks int
	err    error
}

type Worker struct {
	id         int
	pool       *jobChannelPool
	manager    *Manager
	jobChannel chan Job
}

func NewWorker(id int, pool *jobChannelPool, manager *Manager) *Worker {
	return &Worker{
		id:         id,
		pool:       pool,
		manager:    manager,
		jobChannel: make(chan Job),
	}
}

func (w *Worker) Start() {
	go func() {
		for job := range w.jobChannel {
			switch job.Type {
			case Stop:
				debugLog("[worker-%d] stop", w.id)
				w.pool.retire(w.jobChannel)
				return
			case Ingest:
				w.manager.handleIngest(job.Task)
			}
			w.pool.Release(w.jobChannel)
		}
	}()
}
