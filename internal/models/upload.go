package models

import "time"

type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadUploading UploadStatus = "uploading"
	UploadSucceeded UploadStatus = "succeeded"
	UploadFailed    UploadStatus = "failed"
)

func (s UploadStatus) rank() int {
	switch s {
	case UploadPending:
		return 0
	case UploadUploading:
		return 1
	case UploadSucceeded, UploadFailed:
		return 2
	default:
		return -1
	}
}

// Terminal reports whether no further transition is possible.
func (s UploadStatus) Terminal() bool {
	return s == UploadSucceeded || s == UploadFailed
}

// CanAdvance reports whether an entry in status s may move to next.
// Transitions only go forward: pending -> uploading -> succeeded|failed.
func (s UploadStatus) CanAdvance(next UploadStatus) bool {
	if s.Terminal() {
		return false
	}
	from, to := s.rank(), next.rank()
	return from >= 0 && to > from
}

// UploadEntry tracks one file's ingestion attempt.
type UploadEntry struct {
	ID       string       `json:"id"`
	FileName string       `json:"file_name"`
	Status   UploadStatus `json:"status"`
	// Reason keeps the failure cause for diagnostics; it is not part of the observable status.
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
