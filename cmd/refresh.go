package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vicrego/vicrego/internal/logging"
	"github.com/vicrego/vicrego/internal/scrape"
	"github.com/vicrego/vicrego/internal/snapshot"
)

func newRefreshCmd() *cobra.Command {
	var (
		logLevel     string
		snapshotPath string
		snapshotKey  string
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the latest VIC fee schedule and persist a snapshot",
		Long: `Scrape the VicRoads, TAC and SRO fee schedule pages, build a fee
snapshot and persist it to the LevelDB store. Intended to run from
cron so the serve command picks up current fees.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.Setup(logging.Options{Level: logLevel})

			store, err := snapshot.OpenLevelDBStore(snapshotPath, snapshotKey)
			if err != nil {
				return fmt.Errorf("failed to open snapshot store: %w", err)
			}
			defer func() { _ = store.Close() }()

			importer := scrape.NewImporter(nil, logger)
			service := snapshot.NewService(store, importer, logger)

			snap, err := service.Refresh(cmd.Context())
			if err != nil {
				return fmt.Errorf("snapshot refresh failed: %w", err)
			}

			logger.Info("fee snapshot refreshed",
				logging.Operation("snapshot_refresh"),
				"refreshed_at", snap.RefreshedAt,
				"sources", len(snap.Sources),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	cmd.Flags().StringVar(&snapshotPath, "snapshot-path", "", "Directory for the LevelDB fee snapshot store (required)")
	cmd.Flags().StringVar(&snapshotKey, "snapshot-key", snapshot.DefaultKey, "Store key holding the latest snapshot")
	_ = cmd.MarkFlagRequired("snapshot-path")

	return cmd
}
