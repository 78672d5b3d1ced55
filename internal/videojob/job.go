// Package videojob drives long-running video syntheses from submission to a
// locally playable file.
package videojob

import (
	"time"

	"studio/internal/apierr"
	"studio/internal/gateway"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Result is a finished video stored for the session.
type Result struct {
	Key      string `json:"key"`
	Path     string `json:"-"`
	URL      string `json:"url"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`

	// Continuation resumes from the end of this video in a later extension.
	Continuation *gateway.Continuation `json:"-"`
}

// Job is a snapshot of one video synthesis.
type Job struct {
	ID            string        `json:"id"`
	Kind          string        `json:"kind"`
	Parent        string        `json:"parent,omitempty"`
	Prompt        string        `json:"prompt"`
	AspectRatio   string        `json:"aspect_ratio"`
	Status        Status        `json:"status"`
	OperationName string        `json:"operation_name,omitempty"`
	Polls         int           `json:"polls"`
	Result        *Result       `json:"result,omitempty"`
	Err           *apierr.Error `json:"error,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Extendable reports whether the job can seed an extension.
func (j *Job) Extendable() bool {
	return j != nil && j.Status == StatusCompleted && j.Result != nil && j.Result.Continuation != nil
}
