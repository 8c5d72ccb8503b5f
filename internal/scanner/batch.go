package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/civicwire/videoscan/internal/metrics"
)

// BatchConfig controls batch sizing, pacing, and early termination.
type BatchConfig struct {
	// BatchSize is the number of concurrent probes per batch.
	BatchSize int
	// BatchDelay is the pause between batches.
	BatchDelay time.Duration
	// TimeoutRunSoft stops the scan once a candidate has been found and this
	// many consecutive probes have timed out (rule A).
	TimeoutRunSoft int
	// TimeoutRunHard stops the scan unconditionally after this many
	// consecutive timeouts (rule B).
	TimeoutRunHard int
}

func (c *BatchConfig) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.BatchDelay <= 0 {
		c.BatchDelay = 10 * time.Millisecond
	}
	if c.TimeoutRunSoft <= 0 {
		c.TimeoutRunSoft = 200
	}
	if c.TimeoutRunHard <= 0 {
		c.TimeoutRunHard = 2 * c.TimeoutRunSoft
	}
}

// BatchScanner walks a numeric ID range in fixed-size concurrent batches.
// Batches are strictly sequential; all shared counters are touched only by
// the control loop after a batch has fully resolved.
type BatchScanner struct {
	prober   Prober
	registry ProcessedRegistry
	states   StateStore
	clock    Clock
	sleep    SleepFunc
	cfg      BatchConfig
	logger   *zap.Logger
}

// NewBatchScanner constructs a BatchScanner.
func NewBatchScanner(
	prober Prober,
	registry ProcessedRegistry,
	states StateStore,
	clock Clock,
	sleep SleepFunc,
	cfg BatchConfig,
	logger *zap.Logger,
) *BatchScanner {
	cfg.applyDefaults()
	if sleep == nil {
		sleep = Sleep
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchScanner{
		prober:   prober,
		registry: registry,
		states:   states,
		clock:    clock,
		sleep:    sleep,
		cfg:      cfg,
		logger:   logger,
	}
}

type scanCounters struct {
	highestValidID      int64
	highestScannedID    int64
	consecutiveTimeouts int
}

// Scan probes [startID, startID+maxRange], collecting owned IDs that the
// downstream pipeline has not processed yet. alreadyOwned seeds the
// candidate set so rule A applies to hits found before the scan started.
// The final checkpoint is persisted exactly once, on every exit path.
func (s *BatchScanner) Scan(
	ctx context.Context,
	startID, maxRange int64,
	alreadyOwned []int64,
) ([]int64, ScanState, error) {
	if startID < 1 {
		startID = 1
	}
	if maxRange < 0 {
		maxRange = 0
	}

	candidates := append([]int64(nil), alreadyOwned...)
	counters := scanCounters{}
	end := startID + maxRange
	scanErr := error(nil)

	for next := startID; next <= end; {
		if err := ctx.Err(); err != nil {
			scanErr = fmt.Errorf("scan interrupted: %w", err)
			break
		}

		batchEnd := next + int64(s.cfg.BatchSize) - 1
		if batchEnd > end {
			batchEnd = end
		}
		results := s.probeBatch(ctx, next, batchEnd)
		metrics.IncBatch()

		hits := s.aggregate(ctx, results, &counters, &candidates)
		if hits > 0 {
			s.logger.Info("batch yielded candidates",
				zap.Int64("batch_start", next),
				zap.Int64("batch_end", batchEnd),
				zap.Int("hits", hits),
			)
		}

		if s.shouldTerminate(len(candidates), counters.consecutiveTimeouts) {
			s.logger.Info("early termination",
				zap.Int("consecutive_timeouts", counters.consecutiveTimeouts),
				zap.Int("candidates", len(candidates)),
				zap.Int64("highest_scanned", counters.highestScannedID),
			)
			break
		}

		next = batchEnd + 1
		if next <= end {
			s.sleep(ctx, s.cfg.BatchDelay)
		}
	}

	state := ScanState{
		HighestValidID:   counters.highestValidID,
		HighestScannedID: counters.highestScannedID,
		ScannedAt:        s.clock.Now(),
	}
	if err := s.states.Save(ctx, state); err != nil {
		// Best-effort durability: the next successful scan checkpoints again.
		s.logger.Warn("checkpoint save failed", zap.Error(err))
	}
	return candidates, state, scanErr
}

// probeBatch fans out one batch and blocks until every probe resolves.
func (s *BatchScanner) probeBatch(ctx context.Context, first, last int64) []ProbeResult {
	n := int(last - first + 1)
	results := make([]ProbeResult, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(slot int, id int64) {
			defer wg.Done()
			results[slot] = s.prober.Probe(ctx, id)
		}(i, first+int64(i))
	}
	wg.Wait()
	return results
}

// aggregate folds one batch of results into the running counters and the
// candidate list, returning the number of new candidates.
func (s *BatchScanner) aggregate(
	ctx context.Context,
	results []ProbeResult,
	counters *scanCounters,
	candidates *[]int64,
) int {
	batchTimeouts := 0
	batchSawValid := false
	hits := 0

	for _, r := range results {
		if r.ID > counters.highestScannedID {
			counters.highestScannedID = r.ID
		}
		if r.TimedOut {
			batchTimeouts++
			continue
		}
		if r.Exists {
			batchSawValid = true
			if r.ID > counters.highestValidID {
				counters.highestValidID = r.ID
			}
		}
		if r.Owned && !s.isProcessed(ctx, r.ID) {
			*candidates = append(*candidates, r.ID)
			hits++
		}
	}

	if batchSawValid {
		counters.consecutiveTimeouts = 0
	} else {
		counters.consecutiveTimeouts += batchTimeouts
	}
	return hits
}

func (s *BatchScanner) isProcessed(ctx context.Context, id int64) bool {
	if s.registry == nil {
		return false
	}
	processed, err := s.registry.Contains(ctx, id)
	if err != nil {
		// Keep the candidate; the caller dedupes against the registry again.
		s.logger.Warn("registry lookup failed", zap.Int64("id", id), zap.Error(err))
		return false
	}
	return processed
}

func (s *BatchScanner) shouldTerminate(candidateCount, consecutiveTimeouts int) bool {
	if candidateCount > 0 && consecutiveTimeouts >= s.cfg.TimeoutRunSoft {
		return true
	}
	return consecutiveTimeouts >= s.cfg.TimeoutRunHard
}
