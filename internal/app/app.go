package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"docually-mailer/internal/config"
	"docually-mailer/internal/database"
	"docually-mailer/internal/delivery"
	"docually-mailer/internal/handler"
	"docually-mailer/internal/mailer"
	"docually-mailer/internal/metrics"
	"docually-mailer/internal/repository"
	"docually-mailer/internal/scheduler"
	"docually-mailer/internal/server"
	"docually-mailer/internal/template"
	"docually-mailer/internal/tracking"
)

// Run initializes and starts the application
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting Docually Mailer Service")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	m := metrics.NewMetrics()
	repo := repository.New(db)

	renderer, err := template.NewRenderer(cfg.Tracking.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize template renderer: %w", err)
	}

	outbound, err := mailer.NewFromConfig(&cfg.Mail)
	if err != nil {
		return fmt.Errorf("failed to create mailer: %w", err)
	}
	logrus.Infof("Using %s for outbound mail", cfg.Mail.Provider)

	deliverySvc := delivery.NewService(repo, renderer, outbound, m)
	trackingSvc := tracking.NewService(repo, m)
	sched := scheduler.NewScheduler(&cfg.Scheduler, deliverySvc)

	h := handler.NewHandlers(db, repo, deliverySvc, trackingSvc, sched, m, cfg.Tracking.HomeURL)
	router := server.SetupRouter(h)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	sched.Wait()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	if err := outbound.Close(); err != nil {
		logrus.Errorf("Failed to close mailer: %v", err)
	}

	logrus.Info("Server stopped gracefully")
	return nil
}
