package models

import "time"

// ResolutionRecord is one entry of the resolution history.
type ResolutionRecord struct {
	ID          string    `json:"id"`
	VideoURL    string    `json:"videoUrl"`
	Outcome     string    `json:"outcome"`
	ErrorKind   string    `json:"errorKind,omitempty"`
	Status      int       `json:"status,omitempty"`
	Strategy    string    `json:"strategy,omitempty"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
	DurationMS  int64     `json:"durationMs"`
	CreatedAt   time.Time `json:"createdAt"`
}

const (
	OutcomeResolved = "resolved"
	OutcomeFailed   = "failed"
)
