package documents

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"docchat/internal/models"
	"docchat/internal/redis"
)

const retrievalTTL = 30 * time.Minute

// RetrievalCache memoizes search results in redis. Keys embed the index
// version, so any ingestion makes earlier entries unreachable.
// A nil client turns every call into a miss.
type RetrievalCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRetrievalCache(client *redis.Client) *RetrievalCache {
	return &RetrievalCache{client: client, ttl: retrievalTTL}
}

func retrievalKey(version int64, k int, question string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(question))))
	return fmt.Sprintf("docchat:retrieval:%d:%d:%s", version, k, hex.EncodeToString(sum[:12]))
}

func (c *RetrievalCache) Get(ctx context.Context, version int64, k int, question string) ([]models.Chunk, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, retrievalKey(version, k, question))
	if err != nil {
		if err != redis.ErrCacheMiss {
			log.Printf("retrieval cache get failed: %v", err)
		}
		return nil, false
	}
	var chunks []models.Chunk
	if err := json.Unmarshal([]byte(raw), &chunks); err != nil {
		log.Printf("retrieval cache decode failed: %v", err)
		return nil, false
	}
	return chunks, true
}

func (c *RetrievalCache) Put(ctx context.Context, version int64, k int, question string, chunks []models.Chunk) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(chunks)
	if err != nil {
		log.Printf("retrieval cache marshal failed: %v", err)
		return
	}
	if err := c.client.Set(ctx, retrievalKey(version, k, question), data, c.ttl); err != nil {
		log.Printf("retrieval cache set failed: %v", err)
	}
}
