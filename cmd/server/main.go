package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-hub/auth"
	"chat-hub/domain"
	"chat-hub/infrastructure/storage"
	"chat-hub/internal"
	"chat-hub/moderation"
	"chat-hub/runtime"
	"chat-hub/runtime/workers"
	"chat-hub/services"
	transporthttp "chat-hub/transport/http"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer executes before the
// process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.GetLoggerFromString(config.LogLevel)

	replacement, err := config.CharacterRune()
	if err != nil {
		return err
	}

	// 2. Seed fixture
	seed, err := internal.LoadSeed(config.SeedFilepath)
	if err != nil {
		return err
	}

	// 3. Account directory (BadgerDB, in-memory: nothing survives a
	// restart on purpose)
	db, err := badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	accounts := storage.NewAccountRepository(db, log)
	for _, acct := range seed.Accounts {
		hash, err := auth.HashPassword(acct.Password)
		if err != nil {
			return fmt.Errorf("hash password for %q: %w", acct.Username, err)
		}
		if err := accounts.Put(domain.Account{Username: acct.Username, PasswordHash: hash}); err != nil {
			return fmt.Errorf("seed account %q: %w", acct.Username, err)
		}
	}
	count, err := accounts.Count()
	if err != nil {
		return fmt.Errorf("count accounts: %w", err)
	}
	log.Info("account directory seeded", "accounts", count)

	// 4. Channel directory & moderation
	channels := make([]*domain.Channel, 0, len(seed.Channels))
	for _, sc := range seed.Channels {
		ch := domain.NewChannel(sc.Name, sc.Password, sc.Topic)
		for _, admin := range sc.Admins {
			ch.SetAdmin(admin, true)
		}
		for _, banned := range sc.Banned {
			ch.SetBanned(banned, true)
		}
		channels = append(channels, ch)
	}

	moderator, err := moderation.NewModerator(seed.CensoredWords, replacement)
	if err != nil {
		return fmt.Errorf("build moderator: %w", err)
	}

	// 5. Engine & service surface
	engine := runtime.NewEngine(log, runtime.NewRegistry(), accounts, channels, moderator)
	chatService := services.NewChatService(engine)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7. Background workers under supervision
	sup := workers.NewSupervisor(log)
	sup.Add(
		workers.NewSweeperWorker(log, engine, config.SweepInterval, config.IdleThreshold),
		workers.NewTelemetryWorker(log, engine, config.MetricInterval),
	)
	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 8. HTTP server
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:    address,
		Handler: transporthttp.NewRouter(log, chatService),
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 9. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 10. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}
