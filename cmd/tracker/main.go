package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pooltrack/pooltrack/internal/auth"
	"github.com/pooltrack/pooltrack/internal/config"
	"github.com/pooltrack/pooltrack/internal/insight"
	"github.com/pooltrack/pooltrack/internal/logger"
	"github.com/pooltrack/pooltrack/internal/pricing"
	"github.com/pooltrack/pooltrack/internal/state"
	"github.com/pooltrack/pooltrack/internal/web"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// main is the entry point for the tracker API server.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Pool tracker starting...")

	dbCfg, err := config.LoadDBConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load database configuration")
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- 2. Wiring Phase ---
	feed := state.NewFeed()
	go func() {
		if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Change feed stopped")
		}
	}()

	server := web.NewServer(web.Config{
		Port:        config.WebPort,
		Repo:        state.NewPostgres(state.DB),
		Prices:      pricing.NewClient(config.CoinGeckoBaseURL, config.CoinGeckoAPIKey),
		Analyzer:    insight.NewAnalyzer(insight.NewOpenAIGenerator(config.TextGenBaseURL, config.TextGenAPIKey, config.TextGenModel)),
		Sessions:    auth.NewSessions(config.JWTSecret),
		Feed:        feed,
		HealthCheck: state.TestDBConnection,
	})

	// --- 3. Serve until interrupted ---
	log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting tracker API")
	if err := server.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Web server failed")
	}

	log.Info().Msg("Pool tracker stopped.")
}
