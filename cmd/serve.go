package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/collably/ms-go-orders/app/auth"
	"github.com/collably/ms-go-orders/app/controller"
	"github.com/collably/ms-go-orders/app/provider"
	"github.com/collably/ms-go-orders/app/repository"
	"github.com/collably/ms-go-orders/app/service"
	"github.com/collably/ms-go-orders/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server for the orders service.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, orderService, cleanup := mustCreateOrderService()
	defer cleanup()

	orderController := controller.NewOrderController(orderService)

	authClient := auth.NewClient(cfg.Auth.IntrospectionURL, cfg.Auth.HTTPTimeout)
	authMiddleware := auth.NewEchoAuthMiddleware(authClient)

	e := setupHTTPServer(orderController, authMiddleware)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	orderController *controller.OrderController,
	authMiddleware *auth.EchoAuthMiddleware,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", orderController.Health)

	orders := e.Group("/orders")
	orders.POST("", orderController.CreateOrder)
	orders.POST("/sessions", orderController.CreateCheckoutSession)
	orders.POST("/:id/capture", orderController.CapturePayment, authMiddleware.RequireUser())
	orders.POST("/:id/cancel", orderController.CancelPayment)
	orders.POST("/:id/complete", orderController.CompleteOrder, authMiddleware.RequireUser())
	orders.POST("/:id/complete-payment", orderController.CompleteOrderPayment)

	jobs := e.Group("/jobs")
	jobs.POST("/generate-missing-revenues", orderController.GenerateMissingRevenues)
	jobs.POST("/recover-payments", orderController.RecoverPayments)

	e.POST("/webhooks/stripe/payouts", orderController.HandleStripeWebhook)

	e.POST("/withdrawals", orderController.CreateWithdrawal, authMiddleware.RequireUser())

	bankAccounts := e.Group("/influencers/bank-accounts", authMiddleware.RequireUser())
	bankAccounts.GET("", orderController.ListBankAccounts)
	bankAccounts.POST("", orderController.CreateBankAccount)
	bankAccounts.DELETE("/:accountId", orderController.DeleteBankAccount)

	return e
}

func mustCreateOrderService() (*config.Config, *service.OrderService, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	orderRepo := repository.NewOrderRepository(db)
	revenueRepo := repository.NewRevenueRepository(db)
	withdrawalRepo := repository.NewWithdrawalRepository(db)
	logRepo := repository.NewPaymentLogRepository(db)
	eventRepo := repository.NewOrderEventRepository(db)

	stripeGateway := provider.NewStripeGateway(provider.StripeConfig{
		SecretKey:                 cfg.Stripe.SecretKey,
		WebhookSecret:             cfg.Stripe.WebhookSecret,
		SignatureToleranceSeconds: cfg.Stripe.SignatureToleranceSeconds,
		HTTPTimeout:               cfg.Stripe.HTTPTimeout,
	})

	orderService := service.NewOrderService(
		orderRepo,
		revenueRepo,
		withdrawalRepo,
		logRepo,
		eventRepo,
		stripeGateway,
		cfg.Orders,
	)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, orderService, cleanup
}

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	return nil
}
