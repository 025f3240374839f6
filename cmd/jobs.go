package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stagedoor-labs/kiosk-payments/app/service"
	"github.com/stagedoor-labs/kiosk-payments/config"
)

var (
	workerMode bool
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Dispatch side effects for completed payments that were never processed",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"dispatch",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.DispatchInterval },
			func(ctx context.Context, s *service.PaymentService, cfg *config.Config) error {
				return s.RunDispatchBatch(ctx, cfg.Jobs.BatchSize)
			},
		)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <transaction-id>",
	Short: "Check one payment against the store and dispatch side effects if due",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		_, services, cleanup := mustCreateServices()
		defer cleanup()

		result, dispatched, err := services.payments.CheckStatus(context.Background(), args[0])
		if err != nil {
			logrus.WithError(err).WithField("transaction_id", args[0]).Fatal("Status check failed")
		}
		logrus.WithFields(logrus.Fields{
			"transaction_id": args[0],
			"outcome":        result.Outcome,
			"dispatched":     dispatched,
		}).Info("Status check completed")
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all payments, bookings and events",
	Run: func(_ *cobra.Command, _ []string) {
		_, services, cleanup := mustCreateServices()
		defer cleanup()

		if err := services.payments.ResetAll(context.Background()); err != nil {
			logrus.WithError(err).Fatal("Reset failed")
		}
		logrus.Info("All records deleted")
	},
}

func init() {
	rootCmd.AddCommand(dispatchCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(resetCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(ctx context.Context, s *service.PaymentService, cfg *config.Config) error,
) {
	cfg, services, cleanup := mustCreateServices()
	defer cleanup()

	if workerMode {
		runWorker(name, intervalResolver(cfg), func(ctx context.Context) error {
			return fn(ctx, services.payments, cfg)
		})
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(ctx, services.payments, cfg) })
}

func runWorker(name string, interval time.Duration, fn func(ctx context.Context) error) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
