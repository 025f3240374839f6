package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stagedoor-labs/kiosk-payments/app/controller"
	"github.com/stagedoor-labs/kiosk-payments/app/notify"
	"github.com/stagedoor-labs/kiosk-payments/app/provider"
	"github.com/stagedoor-labs/kiosk-payments/app/repository"
	"github.com/stagedoor-labs/kiosk-payments/app/service"
	"github.com/stagedoor-labs/kiosk-payments/config"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the Echo HTTP server for payments, bookings, the props catalog and the gateway feedback endpoint.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, services, cleanup := mustCreateServices()
	defer cleanup()

	e := setupHTTPServer(cfg, services)

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

type appServices struct {
	payments *service.PaymentService
	bookings *service.BookingService
	catalog  *service.CatalogService
	broker   *notify.Broker
}

func setupHTTPServer(cfg *config.Config, services *appServices) *echo.Echo {
	paymentController := controller.NewPaymentController(services.payments, cfg.Payments)
	bookingController := controller.NewBookingController(services.bookings)
	catalogController := controller.NewCatalogController(services.catalog)
	eventsController := controller.NewEventsController(services.broker)
	adminController := controller.NewAdminController(services.payments)

	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestID())
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
				"request_id": v.RequestID,
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

	e.GET("/health", paymentController.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	payments := e.Group("/payments")
	payments.POST("", paymentController.CreatePayment)
	payments.GET("", paymentController.ListPayments)
	payments.GET("/unprocessed", paymentController.ListUnprocessedCompleted)
	payments.POST("/callback", paymentController.HandleGatewayCallback)
	payments.GET("/:transaction_id", paymentController.GetPayment)
	payments.POST("/:transaction_id/cancel", paymentController.CancelPayment)
	payments.POST("/:transaction_id/wait", paymentController.WaitForResult)
	payments.POST("/:transaction_id/check", paymentController.CheckStatus)

	bookings := e.Group("/bookings")
	bookings.POST("", bookingController.CreateBooking)
	bookings.GET("", bookingController.FindBookings)

	e.GET("/props", catalogController.ListProps)
	e.GET("/props/:id", catalogController.GetProp)

	e.GET("/events/next", eventsController.NextNotice)

	e.POST("/admin/reset", adminController.Reset)

	return e
}

func mustCreateServices() (*config.Config, *appServices, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on",
		cfg.SQLite.Path, cfg.SQLite.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open database")
	}
	db.SetMaxOpenConns(cfg.SQLite.MaxOpenConns)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}
	if err := repository.RunMigrations(db); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	paymentRepo := repository.NewPaymentRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	eventRepo := repository.NewPaymentEventRepository(db)

	gateway := provider.NewPayAppClient(provider.PayAppConfig{
		APIURL:      cfg.PayApp.APIURL,
		UserID:      cfg.PayApp.UserID,
		LinkKey:     cfg.PayApp.LinkKey,
		LinkValue:   cfg.PayApp.LinkValue,
		HTTPTimeout: cfg.PayApp.HTTPTimeout,
	})

	broker := notify.NewBroker()
	emailSender := notify.NewEmailSender(notify.EmailConfig{
		SMTPHost: cfg.Email.SMTPHost,
		SMTPPort: cfg.Email.SMTPPort,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
		To:       cfg.Email.To,
	})

	catalogService, err := service.NewCatalogService(cfg.Payments.CatalogPath)
	if err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to load props catalog")
	}

	paymentService := service.NewPaymentService(
		paymentRepo,
		bookingRepo,
		eventRepo,
		gateway,
		broker,
		emailSender,
		cfg.App,
	)
	bookingService := service.NewBookingService(bookingRepo)

	services := &appServices{
		payments: paymentService,
		bookings: bookingService,
		catalog:  catalogService,
		broker:   broker,
	}

	cleanup := func() {
		broker.Close()
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, services, cleanup
}
