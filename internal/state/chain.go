package state

import (
	"context"

	"go.uber.org/zap"

	"github.com/civicwire/videoscan/internal/scanner"
)

// Chain composes a remote primary with a local-file fallback.
//
// The chain is deliberately asymmetric. The remote store is authoritative
// even when it says "no state": falling back to the local file on every
// remote miss would let a fresh deployment's stale file shadow the truth and
// rescan from the wrong point. The file is consulted only when the remote
// failed to respond at all.
type Chain struct {
	primary  scanner.StateStore
	fallback *FileStore
	logger   *zap.Logger
}

// NewChain builds the persistence chain.
func NewChain(primary scanner.StateStore, fallback *FileStore, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Load prefers the remote answer, absent or not; the file is read only when
// the remote is unreachable.
func (c *Chain) Load(ctx context.Context) (scanner.ScanState, bool, error) {
	state, found, err := c.primary.Load(ctx)
	if err == nil {
		return state, found, nil
	}
	c.logger.Warn("primary state store unreachable, reading local fallback", zap.Error(err))

	state, found, fbErr := c.fallback.Load(ctx)
	if fbErr != nil {
		c.logger.Warn("local fallback unreadable", zap.Error(fbErr))
		return scanner.ScanState{}, false, nil
	}
	return state, found, nil
}

// Save writes the file first as a fast durable-ish cache, then the remote.
// A successful remote write deletes the file so future loads cannot prefer
// outdated local state. Both writes are best-effort: the scan itself already
// succeeded and the next run checkpoints again.
func (c *Chain) Save(ctx context.Context, state scanner.ScanState) error {
	if err := c.fallback.Save(ctx, state); err != nil {
		c.logger.Warn("local state write failed", zap.Error(err))
	}

	if err := c.primary.Save(ctx, state); err != nil {
		c.logger.Warn("remote state write failed, state not durable across redeploys",
			zap.Error(err))
		return nil
	}

	if err := c.fallback.Delete(); err != nil {
		c.logger.Warn("stale local state cleanup failed", zap.Error(err))
	}
	return nil
}
