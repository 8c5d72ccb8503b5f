package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestBatchScanner(
	prober Prober,
	registry ProcessedRegistry,
	states StateStore,
	clock Clock,
	cfg BatchConfig,
) *BatchScanner {
	return NewBatchScanner(prober, registry, states, clock, noSleep, cfg, zap.NewNop())
}

func TestBatchScannerCollectsOwnedUnprocessed(t *testing.T) {
	t.Parallel()

	prober := newFakeProber([]int64{105, 110, 150}, []int64{101, 102, 120}, 0)
	registry := newFakeRegistry(110)
	states := &fakeStateStore{}
	clock := &fakeClock{now: time.Unix(1700000000, 0).UTC()}

	s := newTestBatchScanner(prober, registry, states, clock, BatchConfig{BatchSize: 25})
	candidates, state, err := s.Scan(context.Background(), 100, 99, nil)
	require.NoError(t, err)

	require.Equal(t, []int64{105, 150}, sortedCopy(candidates),
		"owned IDs minus already-processed ones")
	require.Equal(t, int64(150), state.HighestValidID)
	require.Equal(t, int64(199), state.HighestScannedID)
	require.Equal(t, clock.now, state.ScannedAt)
	require.LessOrEqual(t, state.HighestValidID, state.HighestScannedID)
	require.Equal(t, 1, states.saveCount(), "checkpoint persisted exactly once")
}

func TestBatchScannerEarlyTerminationRuleA(t *testing.T) {
	t.Parallel()

	// One owned video at 1005, then nothing but timeouts: the scan must stop
	// within the soft run plus one batch of extra probes past 1005.
	const (
		batchSize = 10
		softRun   = 200
	)
	prober := newFakeProber([]int64{1005}, nil, 1006)
	states := &fakeStateStore{}

	s := newTestBatchScanner(prober, newFakeRegistry(), states, &fakeClock{now: time.Now()},
		BatchConfig{BatchSize: batchSize, TimeoutRunSoft: softRun, TimeoutRunHard: 2 * softRun})

	candidates, state, err := s.Scan(context.Background(), 1000, 100000, nil)
	require.NoError(t, err)

	require.Equal(t, []int64{1005}, candidates)
	probesPast := prober.probes.Load() - 6 // IDs 1000..1005 precede the frontier
	require.LessOrEqual(t, probesPast, int64(softRun+batchSize))
	require.Equal(t, int64(1005), state.HighestValidID)
	require.Equal(t, 1, states.saveCount())
}

func TestBatchScannerEarlyTerminationRuleB(t *testing.T) {
	t.Parallel()

	// No candidates at all: the hard timeout run still stops the scan.
	const (
		batchSize = 10
		hardRun   = 40
	)
	prober := newFakeProber(nil, nil, 1)
	states := &fakeStateStore{}

	s := newTestBatchScanner(prober, newFakeRegistry(), states, &fakeClock{now: time.Now()},
		BatchConfig{BatchSize: batchSize, TimeoutRunSoft: hardRun / 2, TimeoutRunHard: hardRun})

	candidates, state, err := s.Scan(context.Background(), 1, 100000, nil)
	require.NoError(t, err)

	require.Empty(t, candidates)
	require.LessOrEqual(t, prober.probes.Load(), int64(hardRun+batchSize))
	require.Zero(t, state.HighestValidID)
	require.Equal(t, 1, states.saveCount())
}

func TestBatchScannerTimeoutRunResetsOnValidResult(t *testing.T) {
	t.Parallel()

	// Timeouts in 20..39, then a valid ID at 45: the run counter resets and
	// the scan covers the whole range.
	prober := &windowTimeoutProber{timeoutLow: 20, timeoutHigh: 39, exists: map[int64]bool{45: true}}
	states := &fakeStateStore{}

	s := newTestBatchScanner(prober, newFakeRegistry(), states, &fakeClock{now: time.Now()},
		BatchConfig{BatchSize: 10, TimeoutRunSoft: 15, TimeoutRunHard: 30})

	_, state, err := s.Scan(context.Background(), 1, 59, nil)
	require.NoError(t, err)
	require.Equal(t, int64(60), state.HighestScannedID, "scan ran to the end of the range")
	require.Equal(t, int64(45), state.HighestValidID)
}

func TestBatchScannerSeedsCandidatesForRuleA(t *testing.T) {
	t.Parallel()

	// A fast-path hit passed in as alreadyOwned arms rule A even though the
	// scan itself finds nothing.
	prober := newFakeProber(nil, nil, 1)
	states := &fakeStateStore{}

	const softRun = 20
	s := newTestBatchScanner(prober, newFakeRegistry(), states, &fakeClock{now: time.Now()},
		BatchConfig{BatchSize: 10, TimeoutRunSoft: softRun, TimeoutRunHard: 100 * softRun})

	candidates, _, err := s.Scan(context.Background(), 1, 100000, []int64{999})
	require.NoError(t, err)
	require.Equal(t, []int64{999}, candidates)
	require.LessOrEqual(t, prober.probes.Load(), int64(softRun+10))
}

func TestBatchScannerTimeoutsAreNotAbsence(t *testing.T) {
	t.Parallel()

	// Everything in 50..69 times out; those IDs must appear in neither the
	// candidate list nor the valid-ID high-water mark.
	prober := &windowTimeoutProber{timeoutLow: 50, timeoutHigh: 69, exists: map[int64]bool{40: true}}
	states := &fakeStateStore{}

	s := newTestBatchScanner(prober, newFakeRegistry(), states, &fakeClock{now: time.Now()},
		BatchConfig{BatchSize: 10})

	candidates, state, err := s.Scan(context.Background(), 30, 49, nil)
	require.NoError(t, err)
	require.Empty(t, candidates)
	require.Equal(t, int64(40), state.HighestValidID,
		"timed-out IDs never count as confirmed present or absent")
}

func TestBatchScannerMonotonicHighestScanned(t *testing.T) {
	t.Parallel()

	prober := newFakeProber([]int64{10}, nil, 0)
	states := &fakeStateStore{}
	clock := &fakeClock{now: time.Now()}
	s := newTestBatchScanner(prober, newFakeRegistry(), states, clock, BatchConfig{BatchSize: 10})

	_, first, err := s.Scan(context.Background(), 1, 49, nil)
	require.NoError(t, err)
	_, second, err := s.Scan(context.Background(), first.HighestScannedID+1, 49, nil)
	require.NoError(t, err)

	require.Greater(t, second.HighestScannedID, first.HighestScannedID)
	require.Equal(t, 2, states.saveCount())
	require.Equal(t, second, states.saved())
}

func TestBatchScannerSavesEvenWhenInterrupted(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prober := newFakeProber(nil, nil, 0)
	states := &fakeStateStore{}
	s := newTestBatchScanner(prober, newFakeRegistry(), states, &fakeClock{now: time.Now()},
		BatchConfig{BatchSize: 10})

	_, _, err := s.Scan(ctx, 1, 100, nil)
	require.Error(t, err)
	require.Equal(t, 1, states.saveCount(), "checkpoint still persisted once")
}

// windowTimeoutProber times out inside [timeoutLow, timeoutHigh] and reports
// IDs in exists as present.
type windowTimeoutProber struct {
	timeoutLow  int64
	timeoutHigh int64
	exists      map[int64]bool
}

func (p *windowTimeoutProber) Probe(_ context.Context, id int64) ProbeResult {
	if id >= p.timeoutLow && id <= p.timeoutHigh {
		return ProbeResult{ID: id, TimedOut: true}
	}
	if p.exists[id] {
		return ProbeResult{ID: id, Exists: true}
	}
	return ProbeResult{ID: id}
}

func sortedCopy(ids []int64) []int64 {
	return dedupeSorted(append([]int64(nil), ids...))
}
