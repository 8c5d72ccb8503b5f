package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicwire/videoscan/internal/scanner"
)

func newDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Find the oldest unprocessed meeting video",
		Long: `Runs one discovery pass: the listing fast path first, then an
incremental batch scan resuming from the persisted checkpoint. On success the
discovered video ID is the only thing written to stdout; all diagnostics go
to stderr. Exits 0 when a video was found, 2 when there is nothing new, and
1 on failure.`,
		RunE: runDiscover,
	}
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	comp, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build discovery stack: %w", err)
	}
	defer comp.close()

	id, err := comp.orchestrator.DiscoverNext(ctx)
	if err != nil {
		// ErrNoneFound flows through to Execute, which maps it to exit 2.
		return err
	}

	if comp.publisher != nil {
		event := scanner.DiscoveryEvent{VideoID: id, DiscoveredAt: comp.clock.Now()}
		if _, err := comp.publisher.Publish(ctx, comp.topic, event); err != nil {
			logger.Warn("publish discovery event failed", zap.Error(err))
		}
	}

	// The single line of stdout the caller consumes.
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}
