package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/civicwire/videoscan/internal/metrics"
)

// ErrNoneFound signals that no unprocessed owned video exists right now.
// It is an expected outcome, distinct from every failure path.
var ErrNoneFound = errors.New("no unprocessed videos found")

// OrchestratorConfig bounds the fast path and the fallback scan.
type OrchestratorConfig struct {
	// AbsoluteFloor is the lowest ID ever worth probing.
	AbsoluteFloor int64
	// MonthIDBuffer is how far below the highest processed ID the fast path
	// will still consider listing candidates (roughly a month of namespace
	// growth).
	MonthIDBuffer int64
	// OverlapMargin is rescanned below a fresh checkpoint to cover runs
	// killed between probing and checkpointing.
	OverlapMargin int64
	// FastPathProbeCap limits how many listing candidates are probed.
	FastPathProbeCap int
	// StateFreshness is the maximum checkpoint age to resume from.
	StateFreshness time.Duration
	// MaxScanRange caps the fallback scan's ID range.
	MaxScanRange int64
}

func (c *OrchestratorConfig) applyDefaults() {
	if c.AbsoluteFloor <= 0 {
		c.AbsoluteFloor = 1
	}
	if c.MonthIDBuffer <= 0 {
		c.MonthIDBuffer = 2000
	}
	if c.OverlapMargin <= 0 {
		c.OverlapMargin = 100
	}
	if c.FastPathProbeCap <= 0 {
		c.FastPathProbeCap = 30
	}
	if c.StateFreshness <= 0 {
		c.StateFreshness = 7 * 24 * time.Hour
	}
	if c.MaxScanRange <= 0 {
		c.MaxScanRange = 5000
	}
}

// Orchestrator combines the listing fast path with the batch-scan fallback
// and returns the oldest unprocessed owned video.
type Orchestrator struct {
	prober   Prober
	lister   Lister
	scanner  *BatchScanner
	states   StateStore
	registry ProcessedRegistry
	clock    Clock
	cfg      OrchestratorConfig
	logger   *zap.Logger
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(
	prober Prober,
	lister Lister,
	batch *BatchScanner,
	states StateStore,
	registry ProcessedRegistry,
	clock Clock,
	cfg OrchestratorConfig,
	logger *zap.Logger,
) *Orchestrator {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		prober:   prober,
		lister:   lister,
		scanner:  batch,
		states:   states,
		registry: registry,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// DiscoverNext returns the smallest unprocessed owned ID, or ErrNoneFound.
// Downstream ingestion assumes strict chronological order, so among multiple
// hits the numerically smallest always wins.
func (o *Orchestrator) DiscoverNext(ctx context.Context) (int64, error) {
	highestOwned, err := o.registry.HighestOwned(ctx)
	if err != nil {
		metrics.IncScan("error")
		return 0, fmt.Errorf("read processed registry: %w", err)
	}

	floor := highestOwned - o.cfg.MonthIDBuffer
	if floor < o.cfg.AbsoluteFloor {
		floor = o.cfg.AbsoluteFloor
	}

	hits := o.fastPath(ctx, floor)
	if len(hits) == 0 {
		scanHits, err := o.fallbackScan(ctx, highestOwned, hits)
		if err != nil {
			metrics.IncScan("error")
			return 0, err
		}
		hits = scanHits
	}

	hits = dedupeSorted(hits)
	if len(hits) == 0 {
		metrics.IncScan("none_found")
		return 0, ErrNoneFound
	}
	metrics.IncScan("found")
	o.logger.Info("discovery complete",
		zap.Int64("video_id", hits[0]),
		zap.Int("candidates", len(hits)),
	)
	return hits[0], nil
}

// fastPath probes recent listing candidates. The listing reflects only
// recent activity, so candidates below the floor are ignored.
func (o *Orchestrator) fastPath(ctx context.Context, floor int64) []int64 {
	candidates, err := o.lister.ListCandidates(ctx)
	if err != nil {
		// Non-fatal: fall through to the batch scan.
		o.logger.Warn("listing unavailable", zap.Error(err))
		return nil
	}
	metrics.AddListingCandidates(len(candidates))

	var hits []int64
	probed := 0
	for _, id := range candidates {
		if probed >= o.cfg.FastPathProbeCap {
			break
		}
		if id < floor {
			continue
		}
		processed, err := o.registry.Contains(ctx, id)
		if err != nil {
			o.logger.Warn("registry lookup failed", zap.Int64("id", id), zap.Error(err))
			continue
		}
		if processed {
			continue
		}
		probed++
		if result := o.prober.Probe(ctx, id); result.Owned {
			hits = append(hits, id)
		}
	}
	if len(hits) > 0 {
		o.logger.Info("fast path hit", zap.Int64s("ids", hits))
	}
	return hits
}

func (o *Orchestrator) fallbackScan(
	ctx context.Context,
	highestOwned int64,
	alreadyOwned []int64,
) ([]int64, error) {
	start := highestOwned + 1
	state, found, err := o.states.Load(ctx)
	if err != nil {
		o.logger.Warn("scan state unavailable, using registry resume point", zap.Error(err))
	} else if found && o.clock.Now().Sub(state.ScannedAt) <= o.cfg.StateFreshness {
		resume := state.HighestScannedID - o.cfg.OverlapMargin
		if resume > start {
			start = resume
		}
	}
	if start < o.cfg.AbsoluteFloor {
		start = o.cfg.AbsoluteFloor
	}

	o.logger.Info("fallback scan", zap.Int64("start", start), zap.Int64("range", o.cfg.MaxScanRange))
	hits, _, err := o.scanner.Scan(ctx, start, o.cfg.MaxScanRange, alreadyOwned)
	if err != nil {
		return nil, fmt.Errorf("batch scan from %d: %w", start, err)
	}
	return hits, nil
}

func dedupeSorted(ids []int64) []int64 {
	if len(ids) == 0 {
		return ids
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}
