package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"docchat/internal/api"
	"docchat/internal/config"
	"docchat/internal/redis"
	"docchat/internal/service/ai"
	"docchat/internal/service/assistant"
	"docchat/internal/service/documents"
	"docchat/internal/service/memory"
	"docchat/internal/storage"
	"docchat/internal/worker"
)

func main() {
	cfg, err := config.Load(os.Getenv("DOCCHAT_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := cfg.BasicConfig.Database
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Printf("dbType: %s", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	// documents, exchanges
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = redis.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("create redis client: %v", err)
		}
		defer rdb.Close()
	} else {
		log.Printf("redis not configured, retrieval cache and index events disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	index, err := documents.NewIndex(ctx)
	if err != nil {
		log.Fatalf("init index: %v", err)
	}
	uploadDir := cfg.BasicConfig.UploadDir
	if uploadDir == "" {
		uploadDir = "./data"
	}
	docs := documents.NewService(documents.NewStore(db), index, documents.NewRetrievalCache(rdb), uploadDir)
	if n, err := docs.Reindex(ctx); err != nil {
		log.Printf("reindex documents: %v", err)
	} else if n > 0 {
		log.Printf("reindexed %d documents (%d chunks)", n, index.Len())
	}

	aiService, err := ai.NewService(ctx, cfg, index)
	if err != nil {
		log.Fatalf("init ai service: %v", err)
	}
	assistantService := assistant.NewService(docs, memory.NewStore(db), aiService, cfg.BasicConfig.TopK, cfg.BasicConfig.HistoryWindow)

	cleaner := assistant.NewUploadCleaner(docs, uploadDir, time.Duration(cfg.BasicConfig.OrphanTTL)*time.Minute)
	cleaner.Start(ctx, time.Duration(cfg.BasicConfig.OrphanCleanPeriod)*time.Minute)

	workers := worker.NewManager(docs, worker.DispatcherConfig{
		MinWorkers:        cfg.BasicConfig.MinWorkers,
		MaxWorkers:        cfg.BasicConfig.MaxWorkers,
		QueueSize:         cfg.BasicConfig.QueueSize,
		WorkerIdleTimeout: time.Duration(cfg.BasicConfig.WorkerIdleTimeout) * time.Minute,
	}, rdb)
	defer workers.Close()
	if err := workers.Listen(ctx, docs.IngestByID); err != nil {
		log.Printf("subscribe to index events: %v", err)
	}

	handlers := api.NewHandler(assistantService, docs, workers)
	router := gin.Default()
	handlers.RegisterRoutes(router, cfg.BasicConfig.AllowedOrigins)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8000"
	}
	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
