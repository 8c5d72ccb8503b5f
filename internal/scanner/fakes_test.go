package scanner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// fakeProber answers probes from a fixed world: owned and foreign IDs exist,
// everything at or above timeoutFrom times out, the rest is 404.
type fakeProber struct {
	owned       map[int64]bool
	foreign     map[int64]bool
	timeoutFrom int64

	probes   atomic.Int64
	mu       sync.Mutex
	probedID []int64
}

func newFakeProber(owned, foreign []int64, timeoutFrom int64) *fakeProber {
	p := &fakeProber{
		owned:       make(map[int64]bool),
		foreign:     make(map[int64]bool),
		timeoutFrom: timeoutFrom,
	}
	for _, id := range owned {
		p.owned[id] = true
	}
	for _, id := range foreign {
		p.foreign[id] = true
	}
	return p
}

func (p *fakeProber) Probe(_ context.Context, id int64) ProbeResult {
	p.probes.Add(1)
	p.mu.Lock()
	p.probedID = append(p.probedID, id)
	p.mu.Unlock()

	switch {
	case p.timeoutFrom > 0 && id >= p.timeoutFrom:
		return ProbeResult{ID: id, TimedOut: true}
	case p.owned[id]:
		return ProbeResult{ID: id, Exists: true, Owned: true}
	case p.foreign[id]:
		return ProbeResult{ID: id, Exists: true}
	default:
		return ProbeResult{ID: id}
	}
}

func (p *fakeProber) lowestProbed() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.probedID) == 0 {
		return 0
	}
	lowest := p.probedID[0]
	for _, id := range p.probedID[1:] {
		if id < lowest {
			lowest = id
		}
	}
	return lowest
}

type fakeRegistry struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

func newFakeRegistry(ids ...int64) *fakeRegistry {
	r := &fakeRegistry{ids: make(map[int64]struct{})}
	for _, id := range ids {
		r.ids[id] = struct{}{}
	}
	return r
}

func (r *fakeRegistry) Contains(_ context.Context, id int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ids[id]
	return ok, nil
}

func (r *fakeRegistry) HighestOwned(context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var highest int64
	for id := range r.ids {
		if id > highest {
			highest = id
		}
	}
	return highest, nil
}

type fakeStateStore struct {
	mu    sync.Mutex
	state ScanState
	found bool
	saves int

	loadErr error
	saveErr error
}

func (s *fakeStateStore) Load(context.Context) (ScanState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return ScanState{}, false, s.loadErr
	}
	return s.state, s.found, nil
}

func (s *fakeStateStore) Save(_ context.Context, state ScanState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.state = state
	s.found = true
	return nil
}

func (s *fakeStateStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *fakeStateStore) saved() ScanState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

type fakeLister struct {
	ids []int64
	err error
}

func (l *fakeLister) ListCandidates(context.Context) ([]int64, error) {
	return l.ids, l.err
}

func noSleep(context.Context, time.Duration) {}
