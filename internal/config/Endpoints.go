package config

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Default endpoints for Aptos mainnet.
const (
	DefaultAptosNodeURL           = "https://fullnode.mainnet.aptoslabs.com"
	DefaultTokenListURL           = "https://raw.githubusercontent.com/PanoraExchange/Aptos-Tokens/refs/heads/main/token-list.json"
	DefaultJouleMarketAPI         = "https://price-api.joule.finance/api/market"
	DefaultJoulePositionsViewFunc = "0x2fe576faa841347a9b1b32c869685deb75a15e3f62dfe37cbd6d52cc403a16f2::pool::user_positions_map"
	DefaultPriceAPIURL            = "https://hermes.pyth.network"
	DefaultPanoraAPIURL           = "https://api.panora.exchange/swap"
	DefaultTokenListTTL           = 10 * time.Minute
	DefaultPriceFetchConcurrency  = 4
	DefaultPriceFetchTimeout      = 8 * time.Second
	DefaultHTTPClientTimeout      = 10 * time.Second
	DefaultNetwork                = "mainnet"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// Network is the Aptos network name, used in log lines and explorer links.
	Network string
	// AptosNodeURL is the REST endpoint of an Aptos fullnode.
	AptosNodeURL string
	// TokenListURL is the Panora token list.
	TokenListURL string
	// TokenListTTL is how long a fetched token list stays cached.
	TokenListTTL time.Duration
	// JouleMarketAPI lists the Joule lending markets.
	JouleMarketAPI string
	// JoulePositionsViewFunction is the Move view function returning a user's Joule positions.
	JoulePositionsViewFunction string
	// PriceAPIURL is the base URL of the Pyth Hermes price service.
	PriceAPIURL string
	// PriceFetchConcurrency bounds in-flight price requests per snapshot.
	PriceFetchConcurrency int
	// PriceFetchTimeout is the single deadline for all price requests of a snapshot.
	PriceFetchTimeout time.Duration
	// HTTPClientTimeout is the per request timeout of outbound HTTP calls.
	HTTPClientTimeout time.Duration
	// PanoraAPIURL is the swap quote endpoint used by the panoraSwap tool.
	PanoraAPIURL string
	// PanoraAPIKey is sent as x-api-key to Panora.
	PanoraAPIKey string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	Network = getEnvOrDefault("NETWORK", DefaultNetwork)
	AptosNodeURL = getEnvOrDefault("APTOS_NODE_URL", DefaultAptosNodeURL)
	TokenListURL = getEnvOrDefault("TOKEN_LIST_URL", DefaultTokenListURL)
	JouleMarketAPI = getEnvOrDefault("JOULE_MARKET_API", DefaultJouleMarketAPI)
	JoulePositionsViewFunction = getEnvOrDefault("JOULE_POSITIONS_VIEW_FUNCTION", DefaultJoulePositionsViewFunc)
	PriceAPIURL = getEnvOrDefault("PRICE_API_URL", DefaultPriceAPIURL)
	PanoraAPIURL = getEnvOrDefault("PANORA_API_URL", DefaultPanoraAPIURL)
	PanoraAPIKey = getEnvOrDefault("PANORA_API_KEY", "")

	TokenListTTL, err = getEnvAsDuration("TOKEN_LIST_TTL", DefaultTokenListTTL)
	if err != nil {
		return err
	}

	PriceFetchConcurrency, err = getEnvAsInt("PRICE_FETCH_CONCURRENCY", DefaultPriceFetchConcurrency)
	if err != nil {
		return err
	}
	if PriceFetchConcurrency < 1 {
		PriceFetchConcurrency = 1
	}

	PriceFetchTimeout, err = getEnvAsDuration("PRICE_FETCH_TIMEOUT", DefaultPriceFetchTimeout)
	if err != nil {
		return err
	}

	HTTPClientTimeout, err = getEnvAsDuration("HTTP_CLIENT_TIMEOUT", DefaultHTTPClientTimeout)
	if err != nil {
		return err
	}

	log.Debug().
		Str("Network", Network).
		Str("AptosNodeURL", AptosNodeURL).
		Str("JouleMarketAPI", JouleMarketAPI).
		Str("PriceAPIURL", PriceAPIURL).
		Int("PriceFetchConcurrency", PriceFetchConcurrency).
		Dur("PriceFetchTimeout", PriceFetchTimeout).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}
