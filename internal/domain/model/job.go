// Package model defines the core data types used throughout the openvid generation service.
package model

import (
	"errors"
	"strings"
	"time"
)

// ErrEmptyPrompt is returned when a submission carries no prompt text.
var ErrEmptyPrompt = errors.New("prompt is required")

// JobStatus represents the lifecycle state of a generation job.
type JobStatus string

const (
	// JobStatusQueued indicates a job has been accepted by the runner and is waiting for a worker.
	JobStatusQueued JobStatus = "queued"
	// JobStatusProcessing indicates the runner is actively generating output for the job.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates generation finished and a result URL is available.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates generation failed; ErrorMessage carries the runner's error.
	JobStatusFailed JobStatus = "failed"
)

// Valid returns true if the JobStatus is one of the known lifecycle states.
func (s JobStatus) Valid() bool {
	return s == JobStatusQueued || s == JobStatusProcessing || s == JobStatusCompleted ||
		s == JobStatusFailed
}

// Terminal returns true for states that normally end a job's lifecycle.
// A failed job may still re-enter queued via the retry policy.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// StatusFromRunner maps the runner's status vocabulary onto internal statuses.
// Matching is case-insensitive. The second return is false for any string
// outside the runner's documented vocabulary.
func StatusFromRunner(raw string) (JobStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "IN_QUEUE", "QUEUED":
		return JobStatusQueued, true
	case "IN_PROGRESS", "PROCESSING":
		return JobStatusProcessing, true
	case "COMPLETED", "DONE":
		return JobStatusCompleted, true
	case "FAILED", "CANCELLED", "TIMED_OUT":
		return JobStatusFailed, true
	default:
		return "", false
	}
}

// outputFPS is the frame rate of the runner's generated videos. Usage-seconds
// accounting derives a job's duration from its frame count at this rate.
const outputFPS = 16

// Job represents one text-to-video generation request, tracked end-to-end by
// the runner-assigned JobID. The prompt and generation parameters are an
// immutable snapshot of the original request; only Status, ResultURL,
// ErrorMessage, RetryCount and UpdatedAt change after creation.
type Job struct {
	ID             string    `json:"id"                     db:"id"`
	JobID          string    `json:"jobId"                  db:"job_id"`
	UserID         string    `json:"userId"                 db:"user_id"`
	Prompt         string    `json:"prompt"                 db:"prompt"`
	NegativePrompt string    `json:"negativePrompt"         db:"negative_prompt"`
	ModelName      string    `json:"modelName"              db:"model_name"`
	Width          int       `json:"width"                  db:"width"`
	Height         int       `json:"height"                 db:"height"`
	Steps          int       `json:"steps"                  db:"steps"`
	Cfg            float64   `json:"cfg"                    db:"cfg"`
	NumFrames      int       `json:"numFrames"              db:"num_frames"`
	Seed           int64     `json:"seed"                   db:"seed"`
	Status         JobStatus `json:"status"                 db:"status"`
	ResultURL      string    `json:"resultUrl,omitempty"    db:"result_url"`
	ErrorMessage   string    `json:"errorMessage,omitempty" db:"error_message"`
	RetryCount     int       `json:"retryCount"             db:"retry_count"`
	CreatedAt      time.Time `json:"createdAt"              db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt"              db:"updated_at"`
}

// DurationSeconds returns the length of the generated video in whole seconds,
// rounded up. Used for quota accounting.
func (j *Job) DurationSeconds() int {
	return DurationSecondsForFrames(j.NumFrames)
}

// DurationSecondsForFrames converts a frame count to whole output seconds,
// rounded up, with a floor of one second.
func DurationSecondsForFrames(frames int) int {
	if frames <= 0 {
		return 1
	}
	return (frames + outputFPS - 1) / outputFPS
}

// GenerationInput carries the generation parameters forwarded verbatim to the runner.
type GenerationInput struct {
	PositivePrompt string  `json:"positive_prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Seed           int64   `json:"seed"`
	Steps          int     `json:"steps"`
	Cfg            float64 `json:"cfg"`
	NumFrames      int     `json:"num_frames"`
}

// SubmitRequest is the body of a submission call.
type SubmitRequest struct {
	Prompt    string          `json:"prompt"`
	ModelName string          `json:"modelName"`
	Frames    int             `json:"frames,omitempty"`
	Input     GenerationInput `json:"input"`
}

// Validate checks the request for required fields.
func (r *SubmitRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// NumFrames resolves the requested frame count, preferring the explicit input
// value over the top-level convenience field.
func (r *SubmitRequest) NumFrames() int {
	if r.Input.NumFrames > 0 {
		return r.Input.NumFrames
	}
	return r.Frames
}

// JobStatusUpdate is a partial update applied to a job by the webhook
// reconciler. Nil pointer fields are left unchanged in the stored row.
type JobStatusUpdate struct {
	Status       JobStatus
	ResultURL    *string
	ErrorMessage *string
}
