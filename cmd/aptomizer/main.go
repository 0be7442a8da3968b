package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/aptomizer/core/internal/agent"
	"github.com/aptomizer/core/internal/config"
	"github.com/aptomizer/core/internal/datafetcher"
	"github.com/aptomizer/core/internal/logger"
	"github.com/aptomizer/core/internal/portfolio"
	"github.com/aptomizer/core/internal/state"
	"github.com/aptomizer/core/internal/types"
	"github.com/aptomizer/core/internal/wallet"
	"github.com/aptomizer/core/internal/web"
)

// main is the entry point of the AptoMizer backend.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logOpts := logger.Options{Level: config.LogLevel, Format: config.LogFormat}
	if config.LogFile != "" {
		file, err := logger.FileWriter(config.LogFile)
		if err != nil {
			log.Fatal().Err(err).Str("path", config.LogFile).Msg("Failed to open log file")
		}
		logOpts.File = file
	}
	logger.Initialize(logOpts)
	log.Info().Str("network", config.Network).Msg("AptoMizer backend starting...")

	dbCfg := state.DBConfig{
		Host: config.DBHost, Port: config.DBPort,
		User: config.DBUser, Password: config.DBPassword,
		DBName: config.DBName, SSLMode: config.DBSSLMode,
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	protocols, err := loadProtocols()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load protocol table")
	}

	// --- 2. Data sources ---
	httpClient := datafetcher.NewHTTPClient(config.HTTPClientTimeout)
	aptos := datafetcher.NewAptosClient(httpClient, config.AptosNodeURL)

	tokens, err := datafetcher.NewTokenResolver(httpClient, config.TokenListURL, config.TokenListTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create token resolver")
	}
	defer tokens.Close()

	prices := datafetcher.NewHermesClient(httpClient, config.PriceAPIURL)
	markets := datafetcher.NewJouleMarketClient(httpClient, config.JouleMarketAPI)
	positions := datafetcher.NewJoulePositionsClient(aptos, config.JoulePositionsViewFunction)
	swaps := datafetcher.NewPanoraClient(httpClient, config.PanoraAPIURL, config.PanoraAPIKey)

	// --- 3. Services with dependency injection ---
	portfolioService, err := portfolio.NewService(portfolio.Config{
		Tokens:             tokens,
		Accounts:           aptos,
		Markets:            markets,
		Positions:          positions,
		Prices:             prices,
		PriceConcurrency:   config.PriceFetchConcurrency,
		PriceTimeout:       config.PriceFetchTimeout,
		Protocols:          protocols,
		OptimizationParams: config.DefaultOptimizationParameters,
		YieldParams:        config.DefaultYieldParameters,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create portfolio service")
	}

	secrets, err := wallet.NewAESCBCStore(config.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create secret store")
	}
	keystore := wallet.NewKeystore(secrets)
	store := state.Store{}

	var chat web.ChatEngine
	if config.AnthropicAPIKey != "" {
		engine, err := newChatEngine(agent.ToolsetConfig{
			Portfolio:    portfolioService,
			Chain:        aptos,
			Prices:       prices,
			Positions:    positions,
			Swaps:        swaps,
			Keys:         keystore,
			Transactions: store,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create chat engine")
		}
		chat = engine
	} else {
		log.Warn().Msg("ANTHROPIC_API_KEY is not set, /api/chat is disabled")
	}

	webServer, err := web.NewWebServer(web.Config{
		Port:      config.WebPort,
		Users:     store,
		Portfolio: portfolioService,
		Wallets:   keystore,
		Chat:      chat,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create web server")
	}

	// --- 4. Serve until interrupted ---
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Int("port", config.WebPort).Msg("Serving API")
	if err := webServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Web server stopped with error")
		return
	}
	log.Info().Msg("AptoMizer backend stopped")
}

// loadProtocols reads PROTOCOLS_FILE when set, otherwise the embedded table.
func loadProtocols() (types.ProtocolTable, error) {
	if config.ProtocolsFile == "" {
		return config.MustDefaultProtocolTable(), nil
	}
	return config.LoadProtocolTable(config.ProtocolsFile)
}

func newChatEngine(toolsCfg agent.ToolsetConfig) (*agent.Engine, error) {
	toolset, err := agent.NewToolset(toolsCfg)
	if err != nil {
		return nil, err
	}
	client := anthropic.NewClient(option.WithAPIKey(config.AnthropicAPIKey))
	return agent.NewEngine(agent.EngineConfig{
		Client:    &client.Messages,
		Tools:     toolset.Registry(),
		Model:     config.ChatModel,
		MaxTokens: config.ChatMaxTokens,
		MaxTurns:  config.ChatMaxTurns,
	})
}
