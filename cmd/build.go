package cmd

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/civicwire/videoscan/internal/clock/system"
	"github.com/civicwire/videoscan/internal/config"
	"github.com/civicwire/videoscan/internal/listing"
	pubsubpublisher "github.com/civicwire/videoscan/internal/publisher/pubsub"
	"github.com/civicwire/videoscan/internal/registry"
	"github.com/civicwire/videoscan/internal/scanner"
	"github.com/civicwire/videoscan/internal/state"
)

// components holds everything a command needs to run discovery.
type components struct {
	orchestrator *scanner.Orchestrator
	states       scanner.StateStore
	fileStore    *state.FileStore
	publisher    scanner.Publisher
	topic        string
	clock        scanner.Clock
	closers      []func()
}

func (c *components) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// buildComponents wires the discovery stack from configuration.
func buildComponents(ctx context.Context, cfg config.Config, logger *zap.Logger) (*components, error) {
	comp := &components{clock: system.New()}

	fileStore, err := state.NewFileStore(cfg.State.FilePath)
	if err != nil {
		return nil, err
	}
	comp.fileStore = fileStore

	primary, err := buildPrimaryStateStore(ctx, cfg, logger, comp)
	if err != nil {
		return nil, err
	}
	comp.states = state.NewChain(primary, fileStore, logger)

	reg, err := buildRegistry(ctx, cfg, comp)
	if err != nil {
		return nil, err
	}

	prober, err := scanner.NewHTTPProber(scanner.ProberConfig{
		BaseURL:       cfg.Upstream.BaseURL,
		TenantSegment: cfg.Upstream.TenantSegment,
		UserAgent:     cfg.Upstream.UserAgent,
		Timeout:       cfg.ProbeTimeout(),
		Retries:       cfg.Probe.Retries,
		RetryBackoff:  time.Duration(cfg.Probe.BackoffMs) * time.Millisecond,
	}, nil, logger)
	if err != nil {
		return nil, err
	}

	lister := buildLister(cfg, logger, comp)

	batch := scanner.NewBatchScanner(prober, reg, comp.states, comp.clock, nil,
		scanner.BatchConfig{
			BatchSize:      cfg.Scan.BatchSize,
			BatchDelay:     time.Duration(cfg.Scan.BatchDelayMs) * time.Millisecond,
			TimeoutRunSoft: cfg.Scan.TimeoutRunSoft,
			TimeoutRunHard: cfg.Scan.TimeoutRunHard,
		}, logger)

	comp.orchestrator = scanner.NewOrchestrator(prober, lister, batch, comp.states, reg,
		comp.clock, scanner.OrchestratorConfig{
			AbsoluteFloor:    cfg.Scan.AbsoluteFloor,
			MonthIDBuffer:    cfg.Scan.MonthIDBuffer,
			OverlapMargin:    cfg.Scan.OverlapMargin,
			FastPathProbeCap: cfg.Scan.FastPathProbeCap,
			StateFreshness:   cfg.StateFreshness(),
			MaxScanRange:     cfg.Scan.MaxRange,
		}, logger)

	if err := buildPublisher(ctx, cfg, comp); err != nil {
		return nil, err
	}
	return comp, nil
}

func buildPrimaryStateStore(
	ctx context.Context,
	cfg config.Config,
	logger *zap.Logger,
	comp *components,
) (scanner.StateStore, error) {
	switch cfg.State.Backend {
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		comp.closers = append(comp.closers, func() { _ = client.Close() })
		return state.NewGCSStore(client, state.GCSStoreConfig{
			Bucket: cfg.State.GCSBucket,
			Object: cfg.State.GCSObject,
		})
	default:
		return state.NewHTTPStore(state.HTTPStoreConfig{
			BaseURL: cfg.State.RemoteURL,
			Timeout: time.Duration(cfg.State.TimeoutSeconds) * time.Second,
		}, logger)
	}
}

func buildRegistry(
	ctx context.Context,
	cfg config.Config,
	comp *components,
) (scanner.ProcessedRegistry, error) {
	if cfg.Registry.Backend == "memory" {
		return registry.NewMemory(), nil
	}
	reg, err := registry.NewPostgres(ctx, registry.PostgresConfig{
		DSN:      cfg.Registry.DSN,
		Table:    cfg.Registry.Table,
		MaxConns: cfg.Registry.MaxConns,
	})
	if err != nil {
		return nil, err
	}
	comp.closers = append(comp.closers, reg.Close)
	return reg, nil
}

func buildLister(cfg config.Config, logger *zap.Logger, comp *components) scanner.Lister {
	static := listing.NewStaticFetcher(listing.StaticConfig{
		UserAgent: cfg.Upstream.UserAgent,
	})
	var headless listing.Fetcher
	if cfg.Headless.Enabled {
		h := listing.NewHeadlessFetcher(listing.HeadlessConfig{
			UserAgent:         cfg.Upstream.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
			SettleDelay:       time.Duration(cfg.Headless.SettleDelayMs) * time.Millisecond,
		})
		comp.closers = append(comp.closers, h.Close)
		headless = h
	}
	return listing.NewReader(cfg.Upstream.ListingURL, static, headless, logger)
}

func buildPublisher(ctx context.Context, cfg config.Config, comp *components) error {
	if cfg.PubSub.ProjectID == "" || cfg.PubSub.TopicName == "" {
		return nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(cfg.PubSub.TopicName)
	comp.closers = append(comp.closers, func() {
		topic.Stop()
		_ = client.Close()
	})
	comp.publisher = pubsubpublisher.New(topic)
	comp.topic = cfg.PubSub.TopicName
	return nil
}
