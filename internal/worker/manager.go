// Package worker runs document ingestion on a bounded, elastic pool of workers.
package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"docchat/internal/models"
	"docchat/internal/redis"
)

// Indexer turns a stored document into searchable chunks.
type Indexer interface {
	Ingest(ctx context.Context, doc *models.Document) (int, error)
}

type DispatcherConfig struct {
	MinWorkers        int
	MaxWorkers        int
	QueueSize         int
	WorkerIdleTimeout time.Duration
}

type Manager struct {
	indexer    Indexer
	dispatcher *Dispatcher
	states     *jobStates
	cache      *stateRedis
}

// NewManager starts the dispatcher. cacheClient may be nil when redis is not configured.
func NewManager(indexer Indexer, cfg DispatcherConfig, cacheClient *redis.Client) *Manager {
	m := &Manager{
		indexer: indexer,
		states:  newJobStates(),
	}
	if cacheClient != nil {
		m.cache = newStateCache(cacheClient, uuid.NewString())
	}
	m.dispatcher = NewDispatcher(cfg.MinWorkers, cfg.MaxWorkers, cfg.QueueSize, m, cfg.WorkerIdleTimeout)
	return m
}

// Ingest queues doc under key and waits for it to be indexed.
// ErrDispatcherBusy is returned at once when the queue is full. When ctx ends
// first, a job no worker has started is withdrawn; a started one is waited for.
func (m *Manager) Ingest(ctx context.Context, key string, doc *models.Document) (int, error) {
	if doc == nil || doc.ID <= 0 {
		return 0, errors.New("document id required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	task := &ingestTask{ctx: ctx, doc: doc, result: make(chan ingestResult, 1)}
	m.setState(JobState{DocumentID: doc.ID, Status: StatusQueued})
	if err := m.dispatcher.Submit(Job{Type: Ingest, Key: key, Task: task}); err != nil {
		m.states.forget(doc.ID)
		m.cache.invalidateState(doc.ID)
		return 0, err
	}

	select {
	case res := <-task.result:
		return res.chunks, res.err
	case <-ctx.Done():
	}
	if task.cancel() {
		m.dispatcher.CancelJob(key, task)
		m.setState(JobState{DocumentID: doc.ID, Status: StatusFailed, Error: ctx.Err().Error()})
		return 0, ctx.Err()
	}
	// a worker already started it; wait so the caller never cleans up a
	// document that is still being indexed
	res := <-task.result
	return res.chunks, res.err
}

// Status reports the last known ingestion state of a document, local or from redis.
func (m *Manager) Status(docID int64) (JobState, bool) {
	if st, ok := m.states.get(docID); ok {
		return st, true
	}
	return m.cache.loadState(docID)
}

// Pending counts documents waiting for or undergoing ingestion.
func (m *Manager) Pending() int {
	return m.states.count(StatusQueued) + m.states.count(StatusRunning)
}

// Listen calls onRemote for documents indexed by other instances.
func (m *Manager) Listen(ctx context.Context, onRemote func(ctx context.Context, docID int64) error) error {
	return m.cache.startListener(ctx, func(ev indexEvent) {
		if err := onRemote(ctx, ev.DocumentID); err != nil {
			log.Printf("index remote document %d failed: %v", ev.DocumentID, err)
		}
	})
}

func (m *Manager) Close() {
	m.dispatcher.Close()
}

func (m *Manager) handleIngest(task *ingestTask) {
	if task == nil {
		return
	}
	ctx := task.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	doc := task.doc
	if !task.start() {
		debugLog("[manager] skip withdrawn job for document %d", doc.ID)
		return
	}
	if err := ctx.Err(); err != nil {
		// the uploader gave up while the job was queued
		m.setState(JobState{DocumentID: doc.ID, Status: StatusFailed, Error: err.Error()})
		task.result <- ingestResult{err: err}
		return
	}

	m.setState(JobState{DocumentID: doc.ID, Status: StatusRunning})
	start := time.Now()
	chunks, err := m.indexer.Ingest(ctx, doc)
	if err != nil {
		log.Printf("ingest %s (%d) failed: %v", doc.FileName, doc.ID, err)
		m.setState(JobState{DocumentID: doc.ID, Status: StatusFailed, Error: err.Error()})
		task.result <- ingestResult{err: err}
		return
	}
	debugLog("[manager] indexed %s into %d chunks in %s", doc.FileName, chunks, time.Since(start))
	m.setState(JobState{DocumentID: doc.ID, Status: StatusIndexed, Chunks: chunks})
	m.cache.publishIndexed(doc.ID)
	task.result <- ingestResult{chunks: chunks}
}

func (m *Manager) setState(st JobState) {
	st.UpdatedAt = time.Now()
	m.states.set(st)
	m.cache.cacheState(st)
}
