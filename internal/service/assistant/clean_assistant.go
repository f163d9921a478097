package assistant

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"docchat/internal/models"
)

const (
	DefaultOrphanTTL             = 24 * time.Hour
	DefaultOrphanCleanupInterval = time.Hour
)

type DocumentLister interface {
	List(ctx context.Context) ([]models.Document, error)
}

// UploadCleaner removes files in the upload directory that no document
// record points at, left behind when the server stopped mid-upload.
type UploadCleaner struct {
	docs DocumentLister
	dir  string
	ttl  time.Duration
}

func NewUploadCleaner(docs DocumentLister, dir string, ttl time.Duration) *UploadCleaner {
	if ttl <= 0 {
		ttl = DefaultOrphanTTL
	}
	return &UploadCleaner{docs: docs, dir: dir, ttl: ttl}
}

func (c *UploadCleaner) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultOrphanCleanupInterval
	}
	go c.cleanupLoop(ctx, interval)
}

func (c *UploadCleaner) cleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.cleanupOrphans(ctx); err != nil {
				log.Printf("cleanup uploads error: %v", err)
			}
		}
	}
}

// cleanupOrphans returns how many files were removed.
func (c *UploadCleaner) cleanupOrphans(ctx context.Context) (int, error) {
	docs, err := c.docs.List(ctx)
	if err != nil {
		return 0, err
	}
	known := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		known[filepath.Clean(d.StoredPath)] = struct{}{}
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	cutoff := time.Now().Add(-c.ttl)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Clean(filepath.Join(c.dir, e.Name()))
		if _, ok := known[path]; ok {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			// too young: may still be between write and record
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("remove orphan upload %s failed: %v", path, err)
			continue
		}
		removed++
	}
	return removed, nil
}
