package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/civicwire/videoscan/internal/scanner"
)

type stubPrimary struct {
	state   scanner.ScanState
	found   bool
	loadErr error
	saveErr error
	saves   int
}

func (s *stubPrimary) Load(context.Context) (scanner.ScanState, bool, error) {
	if s.loadErr != nil {
		return scanner.ScanState{}, false, s.loadErr
	}
	return s.state, s.found, nil
}

func (s *stubPrimary) Save(_ context.Context, state scanner.ScanState) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.state = state
	s.found = true
	return nil
}

func newChainFixture(t *testing.T, primary *stubPrimary) (*Chain, *FileStore) {
	t.Helper()
	file, err := NewFileStore(filepath.Join(t.TempDir(), "scan-state.json"))
	require.NoError(t, err)
	return NewChain(primary, file, zap.NewNop()), file
}

func testState() scanner.ScanState {
	return scanner.ScanState{
		HighestValidID:   1500,
		HighestScannedID: 1700,
		ScannedAt:        time.Unix(1700000000, 0).UTC(),
	}
}

func TestChainRemoteAbsentDoesNotReadLocal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// A stale local file exists, but the remote answered "no state": the
	// remote is authoritative and the local file must be ignored.
	primary := &stubPrimary{}
	chain, file := newChainFixture(t, primary)
	require.NoError(t, file.Save(ctx, testState()))

	_, found, err := chain.Load(ctx)
	require.NoError(t, err)
	require.False(t, found)
}

func TestChainRemoteUnreachableReadsLocal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	primary := &stubPrimary{loadErr: ErrUnreachable}
	chain, file := newChainFixture(t, primary)
	require.NoError(t, file.Save(ctx, testState()))

	got, found, err := chain.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, testState(), got)
}

func TestChainSaveWritesRemoteAndCleansLocal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	primary := &stubPrimary{}
	chain, file := newChainFixture(t, primary)

	require.NoError(t, chain.Save(ctx, testState()))
	require.Equal(t, 1, primary.saves)
	require.Equal(t, testState(), primary.state)

	_, found, err := file.Load(ctx)
	require.NoError(t, err)
	require.False(t, found, "local copy removed after a successful remote write")
}

func TestChainSaveKeepsLocalWhenRemoteFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	primary := &stubPrimary{saveErr: errors.New("remote down")}
	chain, file := newChainFixture(t, primary)

	require.NoError(t, chain.Save(ctx, testState()), "remote failure is best-effort, not fatal")

	got, found, err := file.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, testState(), got)
}

func TestChainRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	primary := &stubPrimary{}
	chain, _ := newChainFixture(t, primary)

	require.NoError(t, chain.Save(ctx, testState()))
	got, found, err := chain.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, testState(), got)
}
