package scanner

import (
	"context"
	"time"
)

// Prober determines whether a candidate ID exists upstream and whether it
// belongs to the configured tenant. Probe never returns an error: transport
// failures that survive the retry budget are reported as TimedOut.
type Prober interface {
	Probe(ctx context.Context, id int64) ProbeResult
}

// Lister extracts candidate video IDs from the upstream listing page,
// deduplicated and in page order. An unavailable or empty listing is not an
// error; it yields an empty slice and the caller falls through to scanning.
type Lister interface {
	ListCandidates(ctx context.Context) ([]int64, error)
}

// StateStore persists the scan checkpoint across process restarts.
// Load reports found=false when no checkpoint exists; an error means the
// store could not answer at all, which is a different condition.
type StateStore interface {
	Load(ctx context.Context) (ScanState, bool, error)
	Save(ctx context.Context, state ScanState) error
}

// ProcessedRegistry is the downstream pipeline's record of fully processed
// videos. Read-only here; it is only used to filter candidates.
type ProcessedRegistry interface {
	Contains(ctx context.Context, id int64) (bool, error)
	HighestOwned(ctx context.Context) (int64, error)
}

// Publisher pushes discovery events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// SleepFunc pauses between retries and batches. Implementations must respect
// context cancellation so tests can run without real timers.
type SleepFunc func(ctx context.Context, d time.Duration)

// Sleep is the production SleepFunc.
func Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
