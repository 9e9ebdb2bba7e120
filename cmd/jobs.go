package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/collably/ms-go-orders/app/service"
	"github.com/collably/ms-go-orders/config"
)

var (
	workerMode bool
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Run the payment reconciliation sweep",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"recover_payments",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.RecoverInterval },
			func(s *service.OrderService, ctx context.Context) error {
				_, err := s.RecoverPayments(ctx)
				return err
			},
		)
	},
}

var revenuesCmd = &cobra.Command{
	Use:   "revenues",
	Short: "Run influencer revenue related commands",
}

var revenuesGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Backfill missing influencer revenue rows for completed orders",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"generate_missing_revenues",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.RevenueInterval },
			func(s *service.OrderService, ctx context.Context) error {
				_, err := s.GenerateMissingRevenues(ctx)
				return err
			},
		)
	},
}

var withdrawalsCmd = &cobra.Command{
	Use:   "withdrawals",
	Short: "Run withdrawal related commands",
}

var withdrawalsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Poll the provider for processing withdrawals",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"check_withdrawals",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.WithdrawalCheckInterval },
			func(s *service.OrderService, ctx context.Context) error {
				return s.CheckWithdrawals(ctx)
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(revenuesCmd)
	rootCmd.AddCommand(withdrawalsCmd)
	revenuesCmd.AddCommand(revenuesGenerateCmd)
	withdrawalsCmd.AddCommand(withdrawalsCheckCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(s *service.OrderService, ctx context.Context) error,
) {
	cfg, orderService, cleanup := mustCreateOrderService()
	defer cleanup()

	if workerMode {
		runWorker(name, intervalResolver(cfg), orderService, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(orderService, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	orderService *service.OrderService,
	fn func(s *service.OrderService, ctx context.Context) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(orderService, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(orderService, ctx) })
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
