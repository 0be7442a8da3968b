/*

This file builds portfolio snapshots.

Every external read is folded into an explicit default: a missing token list
falls back to coin type heuristics, a missing price is 0, and missing balances,
markets or positions are empty. Each degraded read adds a warning to the snapshot.

*/

package portfolio

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aptomizer/core/internal/analyzer"
	"github.com/aptomizer/core/internal/datafetcher"
	"github.com/aptomizer/core/internal/types"
	"github.com/aptomizer/core/internal/utils"
)

// JouleProtocolName is reported on every Joule strategy and position.
const JouleProtocolName = "Joule Finance"

// Fallback APYs used when the market API has no rate for a token.
const (
	FallbackLendAPY   = 0.5
	FallbackBorrowAPY = 1.5
)

type heldCoin struct {
	token   types.TokenInfo
	balance float64
}

// BuildSnapshot aggregates the balances and lending positions of aiWalletAddress.
//
// TotalValue counts idle assets only, PositionsValue is lent minus borrowed value,
// and NetWorth is their sum.
func (s *Service) BuildSnapshot(ctx context.Context, aiWalletAddress string, profile *types.RiskProfile) (types.PortfolioSnapshot, error) {
	if err := datafetcher.ValidateAddress(aiWalletAddress); err != nil {
		return types.PortfolioSnapshot{}, err
	}

	log := s.logger.With().Str("aiWallet", aiWalletAddress).Logger()
	var warnings datafetcher.Warnings

	index := s.tokens.Index(ctx, &warnings)

	nativeRaw := datafetcher.Fold(s.accounts.NativeBalance(ctx, aiWalletAddress), "0", &warnings)
	coins := datafetcher.Fold(s.accounts.CoinBalances(ctx, aiWalletAddress), nil, &warnings)
	markets := datafetcher.Fold(s.markets.Markets(ctx), nil, &warnings)
	legs := datafetcher.Fold(s.positions.Positions(ctx, aiWalletAddress), nil, &warnings)

	// Convert raw amounts with the resolved decimals, skipping empty balances.
	var held []heldCoin
	native := index.NativeToken()
	if balance := s.toUnits(nativeRaw, native, &warnings); balance > 0 {
		held = append(held, heldCoin{token: native, balance: balance})
	}
	for _, coin := range coins {
		token := index.Resolve(coin.CoinType)
		if balance := s.toUnits(coin.RawAmount, token, &warnings); balance > 0 {
			held = append(held, heldCoin{token: token, balance: balance})
		}
	}

	var priced []analyzer.PricedLeg
	for _, leg := range legs {
		token := index.Resolve(leg.TokenAddress)
		amount := s.toUnits(leg.RawAmount, token, &warnings)
		if amount <= 0 {
			continue
		}
		priced = append(priced, analyzer.PricedLeg{RawLendingLeg: leg, Symbol: token.Symbol, Amount: amount})
	}

	// One price per distinct symbol, fetched together.
	symbols := make([]string, 0, len(held)+len(priced))
	for _, h := range held {
		symbols = append(symbols, h.token.Symbol)
	}
	for _, leg := range priced {
		symbols = append(symbols, leg.Symbol)
	}
	prices := s.Prices(ctx, symbols, &warnings)
	priceOf := func(symbol string) float64 {
		return prices[strings.ToUpper(symbol)]
	}

	assets := make([]types.Asset, 0, len(held))
	totalValue := 0.0
	for _, h := range held {
		asset := types.NewAsset(h.token, h.balance, priceOf(h.token.Symbol), h.token.LogoURL)
		totalValue += asset.Value
		assets = append(assets, asset)
	}
	sort.SliceStable(assets, func(i, j int) bool {
		return assets[i].Value > assets[j].Value
	})

	strategies := make([]types.Strategy, 0, len(priced))
	positionsValue := 0.0
	for i := range priced {
		priced[i].ValueUSD = priced[i].Amount * priceOf(priced[i].Symbol)
		strategy := NewStrategy(priced[i], markets)
		if strategy.Side == types.SideBorrow {
			positionsValue -= strategy.Value
		} else {
			positionsValue += strategy.Value
		}
		strategies = append(strategies, strategy)
	}

	snapshot := types.PortfolioSnapshot{
		AIWalletAddress: aiWalletAddress,
		TotalValue:      totalValue,
		PositionsValue:  positionsValue,
		NetWorth:        totalValue + positionsValue,
		RiskScore:       analyzer.SnapshotRiskScore(profile),
		Assets:          assets,
		Strategies:      strategies,
		Positions:       analyzer.ReconcileLegs(JouleProtocolName, priced),
		Warnings:        warnings.List(),
	}

	log.Info().
		Int("assets", len(snapshot.Assets)).
		Int("strategies", len(snapshot.Strategies)).
		Float64("totalValue", snapshot.TotalValue).
		Float64("netWorth", snapshot.NetWorth).
		Int("warnings", len(snapshot.Warnings)).
		Msg("Portfolio snapshot built")

	return snapshot, nil
}

func (s *Service) toUnits(raw string, token types.TokenInfo, warnings *datafetcher.Warnings) float64 {
	amount, err := utils.RawToFloat64(raw, token.Decimals)
	if err != nil {
		s.logger.Warn().Err(err).Str("token", token.TokenAddress).Str("raw", raw).Msg("Skipping unconvertible amount")
		warnings.Add(fmt.Sprintf("amount of %s unreadable: %v", token.Symbol, err))
		return 0
	}
	return amount
}

// NewStrategy turns a priced lending leg into a strategy entry. Lend legs earn
// deposit plus incentive APY, borrow legs cost the borrow APY.
func NewStrategy(leg analyzer.PricedLeg, markets []types.PoolMarket) types.Strategy {
	market, found := datafetcher.FindMarket(markets, leg.TokenAddress)

	strategy := types.Strategy{
		Protocol:     JouleProtocolName,
		PositionID:   leg.PositionID,
		TokenAddress: leg.TokenAddress,
		Side:         leg.Side,
		Balance:      leg.Amount,
		Value:        leg.ValueUSD,
	}

	if leg.Side == types.SideBorrow {
		borrowAPY := 0.0
		if found {
			borrowAPY = market.BorrowAPY.Or(0)
		}
		strategy.Name = fmt.Sprintf("%s (Borrow)", leg.PositionName)
		strategy.APY = -FallbackBorrowAPY
		if borrowAPY > 0 {
			strategy.APY = -borrowAPY
		}
		strategy.Health = types.HealthWarning
		return strategy
	}

	totalAPY := 0.0
	if found {
		totalAPY = market.DepositAPY.Or(0) + market.ExtraDepositAPY()
	}
	strategy.Name = fmt.Sprintf("%s (Lend)", leg.PositionName)
	strategy.APY = FallbackLendAPY
	strategy.Health = types.HealthNeutral
	if totalAPY > 0 {
		strategy.APY = totalAPY
		strategy.Health = types.HealthHealthy
	}
	return strategy
}
