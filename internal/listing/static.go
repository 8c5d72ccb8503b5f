package listing

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
)

// StaticConfig controls the plain-HTTP listing fetch.
type StaticConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// StaticFetcher pulls the listing page without JavaScript execution. Fast,
// but the upstream platform populates video links client-side, so an empty
// result here is expected and triggers headless promotion.
type StaticFetcher struct {
	cfg           StaticConfig
	baseCollector *colly.Collector
}

// NewStaticFetcher builds a StaticFetcher.
func NewStaticFetcher(cfg StaticConfig) *StaticFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	return &StaticFetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// FetchIDs fetches the listing URL and extracts video IDs from its anchors.
func (f *StaticFetcher) FetchIDs(ctx context.Context, listingURL string) ([]int64, error) {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.Context = ctx

	var (
		ids      []int64
		seen     = make(map[int64]struct{})
		fetchErr error
	)
	collector.OnHTML(`a[href*="/videos/"]`, func(e *colly.HTMLElement) {
		for _, id := range ExtractIDs(e.Attr("href")) {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := collector.Visit(listingURL); err != nil {
		return nil, fmt.Errorf("visit listing: %w", err)
	}
	collector.Wait()
	if fetchErr != nil {
		return nil, fmt.Errorf("fetch listing: %w", fetchErr)
	}
	return ids, nil
}
