package main

import (
	"fmt"

	"github.com/prohmpiriya/wedding-venue-booking/internal/bootstrap"
	"github.com/prohmpiriya/wedding-venue-booking/internal/gateway"
	"github.com/prohmpiriya/wedding-venue-booking/internal/repository"
	"github.com/prohmpiriya/wedding-venue-booking/internal/worker"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/config"
	"github.com/spf13/cobra"
)

func refundsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refunds",
		Short: "Refund processing commands",
	}
	cmd.AddCommand(refundsProcessCmd())
	return cmd
}

func refundsProcessCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run a single refund batch and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := bootstrap.Logger(cfg, "weddingctl"); err != nil {
				return err
			}

			db, err := bootstrap.Postgres(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("database connection failed: %w", err)
			}
			defer db.Close()

			gateways := []gateway.PaymentGateway{gateway.NewTestGateway(cfg.Payment.PublishableKey)}
			if cfg.Payment.LiveMode() {
				live, _, err := bootstrap.Gateways(cfg)
				if err != nil {
					return err
				}
				gateways = append(gateways, live)
			}

			workerCfg := worker.DefaultRefundWorkerConfig()
			workerCfg.BatchSize = batchSize

			w := worker.NewRefundWorker(repository.NewPostgresUnitOfWork(db), workerCfg, gateways...)
			settled := w.ProcessBatch(cmd.Context())
			stats := w.Stats()

			fmt.Fprintf(cmd.OutOrStdout(), "settled=%d processed=%d failed=%d\n", settled, stats.Processed, stats.Failed)
			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 50, "maximum refunds to settle")
	return cmd
}
