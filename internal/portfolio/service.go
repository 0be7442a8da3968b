package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aptomizer/core/internal/analyzer"
	"github.com/aptomizer/core/internal/datafetcher"
	"github.com/aptomizer/core/internal/logger"
	"github.com/aptomizer/core/internal/types"

	"github.com/rs/zerolog"
)

var ErrInvalidConfig = errors.New("invalid portfolio service configuration")

// TokenIndexer provides the token metadata of one request.
type TokenIndexer interface {
	Index(ctx context.Context, warnings *datafetcher.Warnings) *datafetcher.TokenIndex
}

// AccountReader reads raw balances of an Aptos account.
type AccountReader interface {
	NativeBalance(ctx context.Context, address string) datafetcher.Result[string]
	CoinBalances(ctx context.Context, address string) datafetcher.Result[[]datafetcher.RawCoinBalance]
}

// MarketReader lists lending markets.
type MarketReader interface {
	Markets(ctx context.Context) datafetcher.Result[[]types.PoolMarket]
}

// PositionReader reads lending positions of an account.
type PositionReader interface {
	Positions(ctx context.Context, address string) datafetcher.Result[[]types.RawLendingLeg]
}

// Service builds portfolio snapshots and ranks opportunities. It holds no
// per-user state and is safe for concurrent use.
type Service struct {
	logger zerolog.Logger

	tokens    TokenIndexer
	accounts  AccountReader
	markets   MarketReader
	positions PositionReader
	prices    datafetcher.PriceSource

	priceConcurrency int
	priceTimeout     time.Duration

	protocols    types.ProtocolTable
	optimization types.OptimizationParameters
	yield        types.YieldParameters
}

// Config holds the dependencies of a Service.
type Config struct {
	Tokens    TokenIndexer
	Accounts  AccountReader
	Markets   MarketReader
	Positions PositionReader
	Prices    datafetcher.PriceSource

	PriceConcurrency int
	PriceTimeout     time.Duration

	Protocols          types.ProtocolTable
	OptimizationParams types.OptimizationParameters
	YieldParams        types.YieldParameters
}

// NewService creates a Service with dependency injection.
func NewService(cfg Config) (*Service, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	s := &Service{
		logger:           logger.GetForComponent("portfolio"),
		tokens:           cfg.Tokens,
		accounts:         cfg.Accounts,
		markets:          cfg.Markets,
		positions:        cfg.Positions,
		prices:           cfg.Prices,
		priceConcurrency: cfg.PriceConcurrency,
		priceTimeout:     cfg.PriceTimeout,
		protocols:        cfg.Protocols,
		optimization:     cfg.OptimizationParams,
		yield:            cfg.YieldParams,
	}

	s.logger.Info().
		Int("priceConcurrency", s.priceConcurrency).
		Dur("priceTimeout", s.priceTimeout).
		Msg("Portfolio service created")

	return s, nil
}

func validateConfig(cfg Config) error {
	if cfg.Tokens == nil {
		return fmt.Errorf("token indexer cannot be nil")
	}
	if cfg.Accounts == nil {
		return fmt.Errorf("account reader cannot be nil")
	}
	if cfg.Markets == nil {
		return fmt.Errorf("market reader cannot be nil")
	}
	if cfg.Positions == nil {
		return fmt.Errorf("position reader cannot be nil")
	}
	if cfg.Prices == nil {
		return fmt.Errorf("price source cannot be nil")
	}
	if cfg.PriceConcurrency <= 0 {
		return fmt.Errorf("price concurrency must be positive")
	}
	if cfg.PriceTimeout <= 0 {
		return fmt.Errorf("price timeout must be positive")
	}
	if cfg.OptimizationParams.MaxResults <= 0 || cfg.YieldParams.MaxResults <= 0 {
		return fmt.Errorf("ranker result limits must be positive")
	}
	return nil
}

// Optimize builds the snapshot of aiWalletAddress and ranks optimization opportunities against it.
func (s *Service) Optimize(ctx context.Context, aiWalletAddress string, profile *types.RiskProfile) ([]types.OptimizationOpportunity, error) {
	snapshot, err := s.BuildSnapshot(ctx, aiWalletAddress, profile)
	if err != nil {
		return nil, err
	}
	return s.OptimizeSnapshot(snapshot, profile), nil
}

// OptimizeSnapshot ranks optimization opportunities for an existing snapshot.
func (s *Service) OptimizeSnapshot(snapshot types.PortfolioSnapshot, profile *types.RiskProfile) []types.OptimizationOpportunity {
	input := analyzer.OptimizationInput{
		Assets:        snapshot.Assets,
		Strategies:    snapshot.Strategies,
		RiskTolerance: analyzer.EffectiveRiskTolerance(profile, s.optimization.DefaultRiskTolerance),
	}
	return analyzer.RankOptimizationOpportunities(input, s.protocols, s.optimization)
}

// YieldOpportunities ranks live lending markets. Unlike snapshots, a ranking
// without market data is meaningless, so a failed market fetch is an error.
func (s *Service) YieldOpportunities(ctx context.Context, query types.YieldQuery) (types.YieldResult, error) {
	markets := s.markets.Markets(ctx)
	if !markets.OK() {
		return types.YieldResult{Status: analyzer.StatusError}, fmt.Errorf("failed to fetch pools: %w", markets.Err)
	}
	return analyzer.RankYieldOpportunities(markets.Value, query, s.yield), nil
}

// Markets returns the live lending markets.
func (s *Service) Markets(ctx context.Context) datafetcher.Result[[]types.PoolMarket] {
	return s.markets.Markets(ctx)
}

// TokenIndex returns the token metadata of one request.
func (s *Service) TokenIndex(ctx context.Context) *datafetcher.TokenIndex {
	return s.tokens.Index(ctx, nil)
}

// Prices returns the USD price of each symbol, 0 for symbols whose lookup failed.
func (s *Service) Prices(ctx context.Context, symbols []string, warnings *datafetcher.Warnings) map[string]float64 {
	results := datafetcher.FetchPrices(ctx, s.prices, symbols, s.priceConcurrency, s.priceTimeout)
	prices := make(map[string]float64, len(results))
	for symbol, result := range results {
		prices[symbol] = datafetcher.Fold(result, 0, warnings)
	}
	return prices
}
