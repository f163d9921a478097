package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"docchat/internal/redis"
)

const (
	redisIndexChannel = "docchat:index"
	redisStateTTL     = 30 * time.Minute
)

// indexEvent announces a document indexed by one instance to the others.
type indexEvent struct {
	Instance   string `json:"instance"`
	DocumentID int64  `json:"document_id"`
}

type stateRedis struct {
	client   *redis.Client
	instance string
}

func newStateCache(client *redis.Client, instance string) *stateRedis {
	return &stateRedis{client: client, instance: instance}
}

// startListener delivers index events published by other instances until ctx is done.
func (r *stateRedis) startListener(ctx context.Context, handler func(indexEvent)) error {
	if r == nil || r.client == nil || handler == nil {
		return nil
	}
	return r.client.Subscribe(ctx, redisIndexChannel, func(payload string) {
		var ev indexEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			log.Printf("index event decode failed: %v", err)
			return
		}
		if ev.Instance == r.instance {
			return
		}
		handler(ev)
	})
}

// publishIndexed broadcasts that docID is now searchable here.
func (r *stateRedis) publishIndexed(docID int64) {
	if r == nil || r.client == nil {
		return
	}
	payload, err := json.Marshal(indexEvent{Instance: r.instance, DocumentID: docID})
	if err != nil {
		log.Printf("index event marshal failed: %v", err)
		return
	}
	if err := r.client.Publish(context.Background(), redisIndexChannel, payload); err != nil {
		log.Printf("index event publish failed: %v", err)
	}
}

func stateKey(docID int64) string {
	return fmt.Sprintf("docchat:ingest:%d", docID)
}

func (r *stateRedis) cacheState(state JobState) {
	if r == nil || r.client == nil || state.DocumentID <= 0 {
		return
	}
	data, err := json.Marshal(state)
	if err != nil {
		log.Printf("ingest state marshal failed: %v", err)
		return
	}
	if err := r.client.Set(context.Background(), stateKey(state.DocumentID), data, redisStateTTL); err != nil {
		log.Printf("ingest state cache failed: %v", err)
	}
}

func (r *stateRedis) loadState(docID int64) (JobState, bool) {
	if r == nil || r.client == nil || docID <= 0 {
		return JobState{}, false
	}
	raw, err := r.client.Get(context.Background(), stateKey(docID))
	if err != nil {
		if err != redis.ErrCacheMiss {
			log.Printf("ingest state load failed: %v", err)
		}
		return JobState{}, false
	}
	var st JobState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		log.Printf("ingest state decode failed: %v", err)
		return JobState{}, false
	}
	return st, true
}

func (r *stateRedis) invalidateState(docID int64) {
	if r == nil || r.client == nil || docID <= 0 {
		return
	}
	if err := r.client.Del(context.Background(), stateKey(docID)); err != nil && err != redis.ErrCacheMiss {
		log.Printf("ingest state invalidate failed: %v", err)
	}
}
