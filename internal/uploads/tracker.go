// Package uploads tracks document ingestion attempts, one entry per selected file.
package uploads

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"docchat/internal/models"
)

// Ingestor is the document ingestion backend.
type Ingestor interface {
	Ingest(ctx context.Context, fileName string, content io.Reader) error
}

// File is a selected document.
type File struct {
	Name string
	Data []byte
}

// Outcome is the settlement of one upload.
type Outcome struct {
	ID     string
	Status models.UploadStatus
	Err    error
}

// TransitionFunc observes every status change applied to an entry.
type TransitionFunc func(id string, status models.UploadStatus)

// Tracker owns the upload entries. Uploads run concurrently; each settlement
// touches only the entry it created, addressed by the ID captured at creation.
type Tracker struct {
	ingestor Ingestor
	timeout  time.Duration

	mu       sync.RWMutex
	order    []string
	entries  map[string]*models.UploadEntry
	observer TransitionFunc

	changes chan struct{}
	wg      sync.WaitGroup
}

func NewTracker(ingestor Ingestor, timeout time.Duration) *Tracker {
	return &Tracker{
		ingestor: ingestor,
		timeout:  timeout,
		entries:  make(map[string]*models.UploadEntry),
		changes:  make(chan struct{}, 1),
	}
}

// OnTransition registers fn to be called after each status change.
func (t *Tracker) OnTransition(fn TransitionFunc) {
	t.mu.Lock()
	t.observer = fn
	t.mu.Unlock()
}

// BeginUpload records a new entry in the uploading state and sends the file
// to the ingestion backend in the background. The returned channel yields
// the terminal outcome after the entry has been updated.
func (t *Tracker) BeginUpload(ctx context.Context, file File) (string, <-chan Outcome) {
	now := time.Now()
	entry := &models.UploadEntry{
		ID:        uuid.NewString(),
		FileName:  file.Name,
		Status:    models.UploadUploading,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.mu.Lock()
	t.entries[entry.ID] = entry
	t.order = append(t.order, entry.ID)
	observer := t.observer
	t.mu.Unlock()
	if observer != nil {
		observer(entry.ID, entry.Status)
	}
	t.notify()

	id := entry.ID
	done := make(chan Outcome, 1)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		err := t.ingest(ctx, file)
		status := models.UploadSucceeded
		reason := ""
		if err != nil {
			status = models.UploadFailed
			reason = failureReason(err)
			log.Printf("upload %s (%s) failed: %v", file.Name, id, err)
		}
		t.advance(id, status, reason)
		done <- Outcome{ID: id, Status: status, Err: err}
	}()
	return id, done
}

// ListEntries returns the entries in insertion order.
func (t *Tracker) ListEntries() []models.UploadEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.UploadEntry, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.entries[id])
	}
	return out
}

// Entry returns a copy of the entry with the given id.
func (t *Tracker) Entry(id string) (models.UploadEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[id]
	if !ok {
		return models.UploadEntry{}, false
	}
	return *e, true
}

// Active counts entries still waiting on the backend.
func (t *Tracker) Active() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, e := range t.entries {
		if !e.Status.Terminal() {
			n++
		}
	}
	return n
}

// Changes signals after entries are added or updated; signals coalesce.
func (t *Tracker) Changes() <-chan struct{} {
	return t.changes
}

// Wait blocks until every started upload has settled.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

func (t *Tracker) ingest(ctx context.Context, file File) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return t.ingestor.Ingest(ctx, file.Name, bytes.NewReader(file.Data))
}

func (t *Tracker) advance(id string, status models.UploadStatus, reason string) bool {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok || !e.Status.CanAdvance(status) {
		t.mu.Unlock()
		debugLog("[uploads] ignore %s transition to %s", id, status)
		return false
	}
	e.Status = status
	e.Reason = reason
	e.UpdatedAt = time.Now()
	observer := t.observer
	t.mu.Unlock()
	if observer != nil {
		observer(id, status)
	}
	t.notify()
	return true
}

func (t *Tracker) notify() {
	select {
	case t.changes <- struct{}{}:
	default:
	}
}

func failureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return err.Error()
}
