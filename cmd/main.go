package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/pquerna/otp"

	"mealtrack/internal/api"
	"mealtrack/internal/auth"
	"mealtrack/internal/config"
	"mealtrack/internal/database"
	"mealtrack/internal/mail"
	"mealtrack/internal/meals"
	"mealtrack/internal/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := newLogger(cfg)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
	log.Info("server exiting gracefully")
}

// run wires the server and blocks until it is interrupted or fails. Deferred
// cleanup, including the MongoDB disconnect, runs before it returns.
func run(cfg config.Config, log *slog.Logger) error {
	// Create a context for initialization.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := database.ConnectMongoDB(ctx, cfg.MongoURI)
	if err != nil {
		return fmt.Errorf("connecting to MongoDB: %w", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error("disconnecting from MongoDB", "error", err)
		}
	}()

	db := client.Database(cfg.MongoDB)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	sender, err := mail.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("configuring mail delivery: %w", err)
	}

	users := database.NewUserRepository(db)
	sessions := database.NewSessionRepository(db)
	swipes := database.NewMealRepository(db, cfg.MealCollection)

	tokens := auth.NewTokenCodec(cfg.JWTSecret)
	authService := auth.NewService(users, sessions, sender,
		auth.NewOTPIssuer(otp.Digits(cfg.OTPDigits), cfg.OTPTTL), tokens,
		auth.Options{
			DefaultClientID:   cfg.DefaultClientID,
			DefaultRoleID:     cfg.DefaultRoleID,
			MaxFailedAttempts: cfg.MaxFailedAttempts,
			LockDuration:      cfg.LockDuration,
			Logger:            log.With("component", "auth"),
		})
	authenticator := auth.NewAuthenticator(users, sessions, tokens, cfg.SessionIdleTimeout, log.With("component", "session"))

	server := api.NewServer(authService, authenticator,
		meals.NewAggregator(swipes, swipes),
		report.NewExporter(swipes),
		api.Options{
			OTPInResponse:  cfg.OTPInResponse,
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
			Logger:         log.With("component", "http"),
		})
	defer server.Close()

	// Access log outermost so recovered panics are logged as 500s.
	handler := handlers.LoggingHandler(os.Stdout,
		handlers.RecoveryHandler(
			handlers.RecoveryLogger(slog.NewLogLogger(log.Handler(), slog.LevelError)),
			handlers.PrintRecoveryStack(cfg.Env != "production"),
		)(server.Routes()))

	srv := &http.Server{
		Handler:      handler,
		Addr:         ":" + cfg.Port,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "mail", cfg.MailProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signals for graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}
	log.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
