package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	publishermemory "github.com/civicwire/videoscan/internal/publisher/memory"
	"github.com/civicwire/videoscan/internal/scanner"
)

type stubDiscoverer struct {
	id  int64
	err error
}

func (d *stubDiscoverer) DiscoverNext(context.Context) (int64, error) {
	return d.id, d.err
}

// sliceQueue serves its requests in order, then cancels the worker so Run
// returns once the backlog is drained.
type sliceQueue struct {
	requests []ScanRequest
	drained  context.CancelFunc
}

func (q *sliceQueue) Enqueue(_ context.Context, req ScanRequest) error {
	q.requests = append(q.requests, req)
	return nil
}

func (q *sliceQueue) Dequeue(ctx context.Context) (ScanRequest, error) {
	if len(q.requests) == 0 {
		q.drained()
		return ScanRequest{}, ctx.Err()
	}
	req := q.requests[0]
	q.requests = q.requests[1:]
	return req, nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func runOneScan(t *testing.T, disc Discoverer, pub scanner.Publisher, topic string) (*JobStore, ScanJob) {
	t.Helper()

	jobs := NewJobStore()
	jobs.Create(ScanJob{ID: "job-1", Status: ScanStatusQueued})
	clock := fixedClock{now: time.Unix(1700000100, 0).UTC()}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	queue := &sliceQueue{
		requests: []ScanRequest{{JobID: "job-1", Submitted: time.Unix(1700000000, 0)}},
		drained:  cancel,
	}

	w := New(queue, jobs, disc, pub, clock, Config{Topic: topic}, zap.NewNop())
	w.Run(ctx)

	job, err := jobs.Get("job-1")
	require.NoError(t, err)
	return jobs, job
}

func TestWorkerRecordsFoundVideo(t *testing.T) {
	t.Parallel()

	pub := publishermemory.New()
	_, job := runOneScan(t, &stubDiscoverer{id: 1050}, pub, "discoveries")

	require.Equal(t, ScanStatusFound, job.Status)
	require.Equal(t, int64(1050), job.VideoID)
	require.NotNil(t, job.Started)
	require.NotNil(t, job.Finished)

	messages := pub.Messages()
	require.Len(t, messages, 1)
	event, ok := messages[0].Payload.(scanner.DiscoveryEvent)
	require.True(t, ok)
	require.Equal(t, int64(1050), event.VideoID)
}

func TestWorkerRecordsNoneFound(t *testing.T) {
	t.Parallel()

	pub := publishermemory.New()
	_, job := runOneScan(t, &stubDiscoverer{err: scanner.ErrNoneFound}, pub, "discoveries")

	require.Equal(t, ScanStatusNoneFound, job.Status)
	require.Empty(t, job.ErrorText, "nothing new is not a failure")
	require.Empty(t, pub.Messages())
}

func TestWorkerRecordsFailure(t *testing.T) {
	t.Parallel()

	pub := publishermemory.New()
	_, job := runOneScan(t, &stubDiscoverer{err: errors.New("upstream gone")}, pub, "discoveries")

	require.Equal(t, ScanStatusFailed, job.Status)
	require.Equal(t, "upstream gone", job.ErrorText)
	require.Empty(t, pub.Messages())
}

func TestWorkerSkipsPublishWithoutTopic(t *testing.T) {
	t.Parallel()

	pub := publishermemory.New()
	_, job := runOneScan(t, &stubDiscoverer{id: 7}, pub, "")

	require.Equal(t, ScanStatusFound, job.Status)
	require.Empty(t, pub.Messages())
}

func TestJobStoreGetUnknown(t *testing.T) {
	t.Parallel()

	_, err := NewJobStore().Get("missing")
	require.Error(t, err)
}
