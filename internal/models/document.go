package models

import (
	"fmt"
	"time"
)

// Document is an ingested file recorded by the backend.
type Document struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"file_name"`
	StoredPath string    `json:"stored_path"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	Chunks     int       `json:"chunks"`
	CreatedAt  time.Time `json:"created_at"`
}

// Exchange is one question/answer pair kept in the backend conversation memory.
type Exchange struct {
	ID        int64     `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// Chunk is an indexed slice of a document's text.
type Chunk struct {
	DocumentID int64  `json:"document_id"`
	FileName   string `json:"file_name"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
}

// Source is the citation label used in answers, e.g. "report.pdf#2".
func (c Chunk) Source() string {
	return fmt.Sprintf("%s#%d", c.FileName, c.Index)
}
