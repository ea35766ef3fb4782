package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bloomdesk/internal/attachments"
	"bloomdesk/internal/config"
	"bloomdesk/internal/constants"
	"bloomdesk/internal/database"
	"bloomdesk/internal/retry"
	"bloomdesk/internal/service"
	"bloomdesk/internal/tracing"
	"bloomdesk/pkg/adminapi"
	"bloomdesk/pkg/notify"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes sensitive information)")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("Bloomdesk %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	// Local overrides for development; absence is fine.
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting bloomdesk")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - sensitive information will be logged")
	} else if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
			logger.SetLevel(logrus.InfoLevel)
		} else {
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	// Initialize OpenTelemetry tracing
	tracingManager := tracing.NewManager(cfg.Tracing, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Initialize the local store with exponential backoff retry
	var db *database.Database
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  constants.DefaultDatabaseRetryAttempts,
		Jitter:       true,
	})

	err = backoff.Retry(ctx, func() error {
		var initErr error
		db, initErr = database.New(cfg.Database.Path)
		if initErr != nil {
			logger.Warnf("Failed to initialize database: %v", initErr)
		}
		return initErr
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database after retries: %w", err)
	}
	defer db.Close()

	// Remote moderation backend is optional; without it every operation is
	// served locally.
	var remote service.RemoteAPI
	if cfg.Remote.APIBaseURL != "" {
		httpClient := &http.Client{
			Timeout: time.Duration(cfg.Remote.TimeoutSec) * time.Second,
		}
		remote = adminapi.NewClientWithLogger(cfg.Remote.APIBaseURL, cfg.Remote.AuthToken, httpClient, logger)
		logger.WithField("remote", cfg.Remote.APIBaseURL).Info("Remote moderation backend configured")
	} else {
		logger.Info("No remote moderation backend configured, running local-only")
	}

	var notifier service.Notifier
	if cfg.Notify.WebhookURL != "" && cfg.Notify.OperatorAddress != "" {
		notifyClient := notify.NewClientWithLogger(cfg.Notify.WebhookURL, &http.Client{
			Timeout: time.Duration(cfg.Notify.TimeoutSec) * time.Second,
		}, logger)
		notifier = service.NewOperatorNotifier(notifyClient, cfg.Notify.OperatorAddress, logger)
	} else {
		logger.Info("Operator notifications disabled")
	}

	var uploader photoUploader
	if cfg.Attachments.Bucket != "" {
		storage, err := attachments.New(cfg.Attachments)
		if err != nil {
			return fmt.Errorf("failed to initialize attachment storage: %w", err)
		}
		if err := storage.EnsureBucket(ctx); err != nil {
			logger.Warnf("Failed to verify attachment bucket: %v. Photo uploads may fail.", err)
		}
		uploader = storage
		logger.WithField("bucket", cfg.Attachments.Bucket).Info("Attachment storage configured")
	} else {
		logger.Info("Attachment storage disabled")
	}

	moderation := service.NewModerationService(remote, db, logger)
	submissions := service.NewSubmissionService(remote, db, notifier, logger)

	server := NewServer(cfg, moderation, submissions, uploader, db, logger)
	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}
