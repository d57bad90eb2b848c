package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"github.com/murat48/zktexasholdem-sub001/auth"
	"github.com/murat48/zktexasholdem-sub001/httpapi"
	"github.com/murat48/zktexasholdem-sub001/moderation"
	"github.com/murat48/zktexasholdem-sub001/observability"
	"github.com/murat48/zktexasholdem-sub001/runtime"
	"github.com/murat48/zktexasholdem-sub001/runtime/workers"
	"github.com/murat48/zktexasholdem-sub001/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so deferred cleanup always executes before
// the process exits.
func run() error {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Core components
	monitor := observability.NewMonitor()
	registry := runtime.NewRegistry(log, config.RoomTTL)

	replacement, err := characterRune(config.CharReplacement)
	if err != nil {
		return err
	}
	moderator, err := moderation.NewModerator(censoredWords(config.CensoredWords), replacement, log)
	if err != nil {
		return fmt.Errorf("moderator init failed: %w", err)
	}

	tokens := auth.NewAuthenticator(config.AuthSecret, config.AuthTokenDuration)
	if tokens.Enabled() {
		log.Info("In-relay role binding enabled")
	} else {
		log.Warn("Role binding disabled, trusting claimed sender roles")
	}

	relay := services.NewRelayService(log, registry, moderator, tokens, monitor, config.ConnectionBufferSize)

	// 3. Context & signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Optional periodic eviction sweep
	sup := workers.NewSupervisor(log, config.RestartInterval)
	if config.SweepInterval > 0 {
		sup.Add(workers.NewSweeper(log, registry, monitor, config.SweepInterval))
		go sup.Run(ctx)
	}

	// 5. HTTP server
	address := net.JoinHostPort(config.Host, fmt.Sprintf("%d", config.Port))
	api := httpapi.NewServer(log, relay, tokens, monitor, config.KeepaliveInterval)
	server := &http.Server{
		Addr:    address,
		Handler: api.Routes(),
		// No WriteTimeout: event streams stay open indefinitely.
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting relay server", "address", address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 6. Wait for stop or error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 7. Final cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}

func censoredWords(raw string) []string {
	if raw == "" {
		return nil
	}
	words := strings.Split(raw, ",")
	out := words[:0]
	for _, w := range words {
		if trimmed := strings.TrimSpace(w); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func characterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf("CHARACTER_REPLACEMENT must be a single character, got %q", str)
	}
	return r[0], nil
}
