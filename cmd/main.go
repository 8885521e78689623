package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chatline/auth"
	"chatline/internal"
	"chatline/media"
	"chatline/observability"
	"chatline/projection"
	"chatline/repositories"
	"chatline/runtime"
	"chatline/runtime/workers"
	"chatline/services"
	"chatline/sink"
	"chatline/web"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for HTTP and background workers.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	auth.SetSigningKey(config.JWTSecret)

	ctx := context.Background()

	// 2. Storage (BadgerDB documents + Bluge search index)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are flushed before the function returns.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	// 3. Moderation automaton
	// Compiled once before the server accepts traffic, the Aho-Corasick build is CPU heavy.
	moderator, err := runtime.BuildModerator(logger, charReplacement)
	if err != nil {
		return exitRuntime, fmt.Errorf("moderation init failed: %w", err)
	}

	// 4. Supervision & Orchestration
	monitor := observability.NewMonitor(logger)
	sup := workers.NewSupervisor(logger)
	registry := runtime.NewRegistry()

	orchestrator := runtime.NewOrchestrator(
		logger, sup, registry, monitor,
		config.BufferSize, config.SinkTimeout, config.MetricInterval,
		config.LatencyThreshold, config.LowCapacityThreshold,
	)

	messageRepository := repositories.NewMessageRepository(db, logger, config.LimitMessages)
	userRepository := repositories.NewUserRepository(db)
	messageIndex := repositories.NewMessageIndex(blugeWriter, logger, config.IndexBatchSize)

	indexSink := sink.NewIndexSink(messageIndex, logger, config.IndexFlushInterval)
	conversations := projection.NewConversations()
	orchestrator.RegisterSinks(indexSink, conversations)

	if logger.Enabled(ctx, slog.LevelDebug) {
		endpoint := "/inspect"
		logger.Info("Debug store inspector available",
			"url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		internal.StartDebugServer(db, config.DebugPort, endpoint, internal.DefaultMapper, func() map[string]any {
			s := monitor.Snapshot()
			return map[string]any{
				"Ingested":  s.MessagesIngested,
				"Delivered": s.MessagesDelivered,
				"Dropped":   s.DeliveryDropped,
				"Online":    s.ConnectedUsers,
				"Uptime":    fmt.Sprintf("%ds", s.UptimeSeconds),
			}
		})
	}

	// 5. Media intake (content volume)
	intake, err := media.NewIntake(logger, config.UploadsDir, "/uploads", config.MaxUploadBytes, media.DefaultAllowList())
	if err != nil {
		return exitRuntime, fmt.Errorf("media intake init failed: %w", err)
	}

	// 6. Services & HTTP surface
	authService := services.NewAuthService(userRepository, config.AuthTokenDuration)
	messageService := services.NewMessageService(
		logger, messageRepository, messageIndex, intake,
		moderator, orchestrator, monitor, config.IngestionTimeout,
	)
	userService := services.NewUserService(userRepository)

	router := web.NewRouter(logger,
		web.NewAuthHandler(logger, authService, config.AuthTokenDuration, config.SecureCookie),
		web.NewMessageHandler(logger, messageService, conversations, config.MaxUploadBytes),
		web.NewUserHandler(logger, userService),
		web.NewSystemHandler(logger, monitor),
		web.NewWSHandler(logger, orchestrator, config.Origins()),
		web.RouterConfig{
			AllowedOrigins:    config.Origins(),
			AuthRatePerMinute: config.AuthRatePerMinute,
			APIRatePerMinute:  config.APIRatePerMinute,
			UploadsDir:        config.UploadsDir,
		})

	// 7. Context & Signals
	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Error (HTTP & Orchestrator)
	errChan := make(chan error, 2)

	// 8. Start the Engine (Workers and Fanout)
	go func() {
		logger.Info("Starting orchestrator...")
		if err := orchestrator.Start(ctx); err != nil {
			errChan <- fmt.Errorf("orchestrator error: %w", err)
		}
	}()

	// 9. HTTP Server Setup
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 10. Wait for Stop or Error
	// The execution blocks here until either a signal is received or the server crashes.
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 11. Final Cleanup (Graceful Shutdown)
	// We stop accepting requests first, then drain the pipeline so in-flight
	// messages still reach the index before the writers close.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown incomplete", "error", err)
	}
	orchestrator.Stop()
	indexSink.Close()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}
