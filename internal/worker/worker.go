package worker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/civicwire/videoscan/internal/scanner"
)

// Config controls Worker behavior.
type Config struct {
	Topic string
}

// Worker consumes scan requests and runs the discovery orchestrator. Each
// request is one complete discovery pass with its outcome recorded in the
// job store, never a detached fire-and-forget process.
type Worker struct {
	queue      Queue
	jobs       *JobStore
	discoverer Discoverer
	publisher  scanner.Publisher
	clock      scanner.Clock
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Worker.
func New(
	queue Queue,
	jobs *JobStore,
	discoverer Discoverer,
	publisher scanner.Publisher,
	clock scanner.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:      queue,
		jobs:       jobs,
		discoverer: discoverer,
		publisher:  publisher,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run blocks, consuming scan requests until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		req, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.processScan(ctx, req)
	}
}

func (w *Worker) processScan(ctx context.Context, req ScanRequest) {
	now := w.clock.Now()
	job := ScanJob{
		ID:        req.JobID,
		Status:    ScanStatusRunning,
		Submitted: req.Submitted,
		Started:   &now,
	}
	w.jobs.Update(job)

	id, err := w.discoverer.DiscoverNext(ctx)
	finished := w.clock.Now()
	job.Finished = &finished

	switch {
	case errors.Is(err, scanner.ErrNoneFound):
		job.Status = ScanStatusNoneFound
		w.logger.Info("scan finished, nothing new", zap.String("job_id", req.JobID))
	case err != nil:
		job.Status = ScanStatusFailed
		job.ErrorText = err.Error()
		w.logger.Error("scan failed", zap.String("job_id", req.JobID), zap.Error(err))
	default:
		job.Status = ScanStatusFound
		job.VideoID = id
		w.logger.Info("scan found video",
			zap.String("job_id", req.JobID),
			zap.Int64("video_id", id),
		)
		w.publishDiscovery(ctx, id)
	}
	w.jobs.Update(job)
}

func (w *Worker) publishDiscovery(ctx context.Context, id int64) {
	if w.publisher == nil || w.cfg.Topic == "" {
		return
	}
	event := scanner.DiscoveryEvent{
		VideoID:      id,
		DiscoveredAt: w.clock.Now(),
	}
	if _, err := w.publisher.Publish(ctx, w.cfg.Topic, event); err != nil {
		w.logger.Error("publish discovery event failed",
			zap.Int64("video_id", id),
			zap.Error(err),
		)
	}
}
