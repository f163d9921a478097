package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"docchat/internal/models"
	"docchat/internal/service/assistant"
	"docchat/internal/service/documents"
	"docchat/internal/worker"
)

const (
	maxUploadBytes = 10 << 20
	// multipart framing on top of the file itself
	maxUploadOverhead = 1 << 20
)

type Assistant interface {
	Ask(ctx context.Context, question string) (string, error)
	Reset(ctx context.Context) error
}

type DocumentService interface {
	Save(ctx context.Context, fileName string, content io.Reader) (*models.Document, error)
	Discard(ctx context.Context, doc *models.Document)
	List(ctx context.Context) ([]models.Document, error)
}

type WorkerManager interface {
	Ingest(ctx context.Context, key string, doc *models.Document) (int, error)
	Status(docID int64) (worker.JobState, bool)
	Pending() int
}

// Handler wires HTTP routes to the assistant and the document pipeline.
type Handler struct {
	assistant Assistant
	docs      DocumentService
	workers   WorkerManager
}

func NewHandler(asst Assistant, docs DocumentService, workers WorkerManager) *Handler {
	return &Handler{assistant: asst, docs: docs, workers: workers}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine, allowedOrigins []string) {
	router.Use(cors.New(corsConfig(allowedOrigins)))
	router.GET("/health", h.health)
	router.POST("/query", h.query)
	router.POST("/upload", h.upload)
	router.GET("/documents", h.listDocuments)
	router.DELETE("/history", h.resetHistory)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "pending_ingestions": h.workers.Pending()})
}

func (h *Handler) resetHistory(c *gin.Context) {
	if err := h.assistant.Reset(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type queryRequest struct {
	Question string `json:"question"`
}

func (h *Handler) query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}
	answer, err := h.assistant.Ask(c.Request.Context(), req.Question)
	if err != nil {
		if errors.Is(err, assistant.ErrEmptyQuestion) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

func (h *Handler) upload(c *gin.Context) {
	if c.Request.ContentLength > maxUploadBytes+maxUploadOverhead {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes+maxUploadOverhead)
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	if !documents.Supported(file.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .pdf, .txt and .md files are supported"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open file failed"})
		return
	}
	ctx := c.Request.Context()
	doc, err := h.docs.Save(ctx, file.Filename, f)
	f.Close()
	if err != nil {
		if errors.Is(err, documents.ErrUnsupportedType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save file failed"})
		return
	}

	chunks, err := h.workers.Ingest(ctx, c.ClientIP(), doc)
	if err != nil {
		// a document that cannot be searched is not kept
		h.docs.Discard(context.Background(), doc)
		switch {
		case errors.Is(err, worker.ErrDispatcherBusy):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "server is busy, please retry"})
		case errors.Is(err, documents.ErrEmptyDocument):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "index document failed: " + err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"filename": doc.FileName,
		"status":   "uploaded and indexed",
		"id":       doc.ID,
		"chunks":   chunks,
	})
}

type documentView struct {
	models.Document
	Status string `json:"status"`
}

func (h *Handler) listDocuments(c *gin.Context) {
	docs, err := h.docs.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]documentView, 0, len(docs))
	for _, d := range docs {
		status := string(worker.StatusQueued)
		if d.Chunks > 0 {
			status = string(worker.StatusIndexed)
		}
		if st, ok := h.workers.Status(d.ID); ok {
			status = string(st.Status)
		}
		out = append(out, documentView{Document: d, Status: status})
	}
	c.JSON(http.StatusOK, gin.H{"documents": out})
}
