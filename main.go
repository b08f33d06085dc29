package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lavjo97/eolia-voice-relay/config"
	"github.com/lavjo97/eolia-voice-relay/logging"
	"github.com/lavjo97/eolia-voice-relay/server"
	"github.com/lavjo97/eolia-voice-relay/session"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(cfg.LogLevel)

	if !cfg.OpenAIConfigured() {
		log.Warn().Msg("OPENAI_API_KEY not set, voice sessions will be refused")
	}

	sessionManager, err := session.NewManager(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create session manager")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go sessionManager.StartCleanupRoutine(ctx)

	srv := server.New(cfg, sessionManager)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
		log.Fatal().Err(err).Msg("server error")
	}

	log.Info().Msg("server stopped")
}
