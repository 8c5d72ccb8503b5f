// Package worker runs HTTP-triggered discovery scans off a task queue.
package worker

import (
	"context"
	"time"
)

// ScanStatus represents the lifecycle state of a scan job.
type ScanStatus string

// Scan job states recorded in the job store.
const (
	ScanStatusQueued    ScanStatus = "queued"
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusFound     ScanStatus = "found"
	ScanStatusNoneFound ScanStatus = "none_found"
	ScanStatusFailed    ScanStatus = "failed"
)

// ScanRequest is the message handed to the worker for one discovery run.
type ScanRequest struct {
	JobID     string
	Submitted time.Time
}

// ScanJob records the outcome of a triggered scan.
type ScanJob struct {
	ID        string     `json:"id"`
	Status    ScanStatus `json:"status"`
	Submitted time.Time  `json:"submitted_at"`
	Started   *time.Time `json:"started_at,omitempty"`
	Finished  *time.Time `json:"finished_at,omitempty"`
	VideoID   int64      `json:"video_id,omitempty"`
	ErrorText string     `json:"error_text,omitempty"`
}

// Queue provides enqueue/dequeue semantics for scan requests.
type Queue interface {
	Enqueue(ctx context.Context, req ScanRequest) error
	Dequeue(ctx context.Context) (ScanRequest, error)
}

// Discoverer runs one discovery pass.
type Discoverer interface {
	DiscoverNext(ctx context.Context) (int64, error)
}
