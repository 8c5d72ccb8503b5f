package listing

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// HeadlessConfig controls the chromedp render.
type HeadlessConfig struct {
	UserAgent         string
	NavigationTimeout time.Duration
	// SettleDelay gives client-side scripts time to populate the link list
	// after the document is ready.
	SettleDelay time.Duration
}

// HeadlessFetcher renders the listing page in headless Chrome so that
// script-populated video links become visible.
type HeadlessFetcher struct {
	cfg         HeadlessConfig
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewHeadlessFetcher creates the fetcher and its browser allocator.
func NewHeadlessFetcher(cfg HeadlessConfig) *HeadlessFetcher {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 500 * time.Millisecond
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &HeadlessFetcher{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}
}

// Close cancels the allocator context.
func (f *HeadlessFetcher) Close() {
	f.allocCancel()
}

// FetchIDs navigates to the listing URL, waits for the page to settle, and
// extracts video IDs from the rendered DOM.
func (f *HeadlessFetcher) FetchIDs(ctx context.Context, listingURL string) ([]int64, error) {
	taskCtx, taskCancel := chromedp.NewContext(f.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, f.cfg.NavigationTimeout)
	defer cancel()

	go func() {
		select {
		case <-ctx.Done():
			taskCancel()
		case <-taskCtx.Done():
		}
	}()

	var html string
	actions := []chromedp.Action{
		f.userAgentAction(),
		chromedp.Navigate(listingURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.cfg.SettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return nil, fmt.Errorf("render listing: %w", err)
	}
	return ExtractIDs(html), nil
}

func (f *HeadlessFetcher) userAgentAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if f.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}
