package listing

import (
	"context"

	"go.uber.org/zap"
)

// Fetcher fetches the listing page and returns the video IDs found on it.
type Fetcher interface {
	FetchIDs(ctx context.Context, listingURL string) ([]int64, error)
}

// Reader is the page-listing fast path. It tries the static fetch first and
// promotes to a headless render when no links were found, mirroring how the
// platform only populates the list via client-side script.
type Reader struct {
	listingURL string
	static     Fetcher
	headless   Fetcher
	logger     *zap.Logger
}

// NewReader builds a Reader. headless may be nil when disabled.
func NewReader(listingURL string, static, headless Fetcher, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		listingURL: listingURL,
		static:     static,
		headless:   headless,
		logger:     logger,
	}
}

// ListCandidates returns the listing's video IDs in page order. Total
// failure is non-fatal and yields an empty slice: the caller falls through
// to the batch scanner.
func (r *Reader) ListCandidates(ctx context.Context) ([]int64, error) {
	ids, err := r.static.FetchIDs(ctx, r.listingURL)
	if err != nil {
		r.logger.Warn("static listing fetch failed", zap.Error(err))
	} else if len(ids) > 0 {
		return ids, nil
	}

	if r.headless == nil {
		return nil, nil
	}
	ids, err = r.headless.FetchIDs(ctx, r.listingURL)
	if err != nil {
		r.logger.Warn("headless listing fetch failed", zap.Error(err))
		return nil, nil
	}
	return ids, nil
}
