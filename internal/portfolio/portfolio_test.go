package portfolio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aptomizer/core/internal/config"
	"github.com/aptomizer/core/internal/datafetcher"
	"github.com/aptomizer/core/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWallet   = "0x00000000000000000000000000000000000000000000000000000000000000b2"
	usdcCoinType = "0xf22bede237a07e121b56d91a491eb7bcdfd1f5907926a9e58338f964a01b17fa::asset::USDC"
	memeCoinType = "0xabc::meme::MEME"
)

type fakeIndexer struct{ list []types.TokenInfo }

func (f fakeIndexer) Index(context.Context, *datafetcher.Warnings) *datafetcher.TokenIndex {
	return datafetcher.NewTokenIndex(f.list)
}

type fakeAccounts struct {
	native datafetcher.Result[string]
	coins  datafetcher.Result[[]datafetcher.RawCoinBalance]
}

func (f fakeAccounts) NativeBalance(context.Context, string) datafetcher.Result[string] {
	return f.native
}

func (f fakeAccounts) CoinBalances(context.Context, string) datafetcher.Result[[]datafetcher.RawCoinBalance] {
	return f.coins
}

type fakeMarkets struct {
	result datafetcher.Result[[]types.PoolMarket]
}

func (f fakeMarkets) Markets(context.Context) datafetcher.Result[[]types.PoolMarket] {
	return f.result
}

type fakePositions struct {
	result datafetcher.Result[[]types.RawLendingLeg]
}

func (f fakePositions) Positions(context.Context, string) datafetcher.Result[[]types.RawLendingLeg] {
	return f.result
}

type fakePrices map[string]float64

func (f fakePrices) TokenPrice(_ context.Context, symbol string) (types.TokenPrice, error) {
	price, ok := f[symbol]
	if !ok {
		return types.TokenPrice{}, datafetcher.ErrPriceFeedNotFound
	}
	return types.TokenPrice{Symbol: symbol, Price: price}, nil
}

func testMarkets() []types.PoolMarket {
	return []types.PoolMarket{
		{
			Asset:         &types.PoolAsset{Type: usdcCoinType, AssetName: "USDC"},
			LTV:           types.NewFlexFloat(8000),
			MarketSize:    types.NewFlexFloat(1_000_000),
			TotalBorrowed: types.NewFlexFloat(500_000),
			DepositAPY:    types.NewFlexFloat(4),
			BorrowAPY:     types.NewFlexFloat(6),
			ExtraAPY:      &types.ExtraAPY{DepositAPY: types.NewFlexFloat(1)},
			PriceInfo:     &types.PriceInfo{TokenAddress: usdcCoinType},
		},
		{
			Asset:         &types.PoolAsset{Type: config.AptosCoinType, AssetName: "APT"},
			LTV:           types.NewFlexFloat(7000),
			MarketSize:    types.NewFlexFloat(2_000_000),
			TotalBorrowed: types.NewFlexFloat(200_000),
			DepositAPY:    types.NewFlexFloat(3),
		},
	}
}

type serviceFixture struct {
	accounts  fakeAccounts
	markets   fakeMarkets
	positions fakePositions
	prices    fakePrices
}

func defaultFixture() serviceFixture {
	return serviceFixture{
		accounts: fakeAccounts{
			native: datafetcher.Ok(datafetcher.SourceNativeBalance, "1000000000"),
			coins: datafetcher.Ok(datafetcher.SourceResources, []datafetcher.RawCoinBalance{
				{CoinType: usdcCoinType, RawAmount: "250000000"},
				{CoinType: memeCoinType, RawAmount: "100000000"},
			}),
		},
		markets: fakeMarkets{result: datafetcher.Ok(datafetcher.SourceJouleMarkets, testMarkets())},
		positions: fakePositions{result: datafetcher.Ok(datafetcher.SourceJoulePositions, []types.RawLendingLeg{
			{PositionID: "1", PositionName: "Main", TokenAddress: usdcCoinType, Side: types.SideLend, RawAmount: "100000000"},
			{PositionID: "1", PositionName: "Main", TokenAddress: config.AptosCoinType, Side: types.SideBorrow, RawAmount: "200000000"},
			{PositionID: "1", PositionName: "Main", TokenAddress: usdcCoinType, Side: types.SideBorrow, RawAmount: "0"},
		})},
		prices: fakePrices{"APT": 8, "USDC": 1},
	}
}

func newTestService(t *testing.T, f serviceFixture) *Service {
	t.Helper()
	svc, err := NewService(Config{
		Tokens: fakeIndexer{list: []types.TokenInfo{
			{TokenAddress: usdcCoinType, Symbol: "USDC", Name: "USD Coin", Decimals: 6, LogoURL: "https://example.com/usdc.png"},
		}},
		Accounts:           f.accounts,
		Markets:            f.markets,
		Positions:          f.positions,
		Prices:             f.prices,
		PriceConcurrency:   2,
		PriceTimeout:       time.Second,
		Protocols:          config.MustDefaultProtocolTable(),
		OptimizationParams: config.DefaultOptimizationParameters,
		YieldParams:        config.DefaultYieldParameters,
	})
	require.NoError(t, err)
	return svc
}

func TestNewServiceValidatesConfig(t *testing.T) {
	_, err := NewService(Config{})
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "token indexer cannot be nil")
}

func TestBuildSnapshot(t *testing.T) {
	svc := newTestService(t, defaultFixture())

	snapshot, err := svc.BuildSnapshot(context.Background(), testWallet, &types.RiskProfile{RiskTolerance: 7})
	require.NoError(t, err)

	require.Len(t, snapshot.Assets, 3)
	assert.Equal(t, "USDC", snapshot.Assets[0].Symbol)
	assert.InDelta(t, 250, snapshot.Assets[0].Value, 1e-9)
	assert.Equal(t, "APT", snapshot.Assets[1].Symbol)
	assert.Equal(t, "Aptos Coin", snapshot.Assets[1].Name)
	assert.InDelta(t, 80, snapshot.Assets[1].Value, 1e-9)
	assert.Equal(t, "MEME", snapshot.Assets[2].Symbol)
	assert.Zero(t, snapshot.Assets[2].Value)

	assert.Equal(t, 70, snapshot.RiskScore)
	assert.Contains(t, snapshot.Warnings[0], "price:MEME unavailable")

	require.Len(t, snapshot.Strategies, 2)
	lend := snapshot.Strategies[0]
	assert.Equal(t, "Main (Lend)", lend.Name)
	assert.Equal(t, JouleProtocolName, lend.Protocol)
	assert.InDelta(t, 5, lend.APY, 1e-9)
	assert.Equal(t, types.HealthHealthy, lend.Health)
	assert.InDelta(t, 100, lend.Value, 1e-9)

	borrow := snapshot.Strategies[1]
	assert.Equal(t, "Main (Borrow)", borrow.Name)
	assert.InDelta(t, -FallbackBorrowAPY, borrow.APY, 1e-9)
	assert.Equal(t, types.HealthWarning, borrow.Health)
	assert.InDelta(t, 16, borrow.Value, 1e-9)

	require.Len(t, snapshot.Positions, 2)
	assert.Equal(t, "USDC", snapshot.Positions[0].TokenSymbol)
	assert.Equal(t, types.HealthHealthy, snapshot.Positions[0].HealthStatus)
	assert.Equal(t, types.HealthDanger, snapshot.Positions[1].HealthStatus)
}

func TestTotalValueExcludesPositions(t *testing.T) {
	svc := newTestService(t, defaultFixture())

	snapshot, err := svc.BuildSnapshot(context.Background(), testWallet, nil)
	require.NoError(t, err)

	sum := 0.0
	for _, asset := range snapshot.Assets {
		sum += asset.Value
	}
	assert.InDelta(t, sum, snapshot.TotalValue, 1e-9)
	assert.InDelta(t, 330, snapshot.TotalValue, 1e-9)
	assert.InDelta(t, 84, snapshot.PositionsValue, 1e-9)
	assert.InDelta(t, snapshot.TotalValue+snapshot.PositionsValue, snapshot.NetWorth, 1e-9)
	assert.Equal(t, 50, snapshot.RiskScore)
}

func TestBuildSnapshotDegradesOnFetchFailures(t *testing.T) {
	f := defaultFixture()
	f.accounts.coins = datafetcher.Fail[[]datafetcher.RawCoinBalance](datafetcher.SourceResources, errors.New("node down"))
	f.markets.result = datafetcher.Fail[[]types.PoolMarket](datafetcher.SourceJouleMarkets, errors.New("api down"))
	f.positions.result = datafetcher.Fail[[]types.RawLendingLeg](datafetcher.SourceJoulePositions, errors.New("view failed"))
	svc := newTestService(t, f)

	snapshot, err := svc.BuildSnapshot(context.Background(), testWallet, nil)
	require.NoError(t, err)

	require.Len(t, snapshot.Assets, 1)
	assert.Equal(t, "APT", snapshot.Assets[0].Symbol)
	assert.Empty(t, snapshot.Strategies)
	assert.Empty(t, snapshot.Positions)
	assert.Equal(t, []string{
		"account_resources unavailable: node down",
		"joule_markets unavailable: api down",
		"joule_positions unavailable: view failed",
	}, snapshot.Warnings)
}

func TestBuildSnapshotLendFallbackAPY(t *testing.T) {
	f := defaultFixture()
	f.markets.result = datafetcher.Ok(datafetcher.SourceJouleMarkets, []types.PoolMarket(nil))
	svc := newTestService(t, f)

	snapshot, err := svc.BuildSnapshot(context.Background(), testWallet, nil)
	require.NoError(t, err)

	require.NotEmpty(t, snapshot.Strategies)
	assert.InDelta(t, FallbackLendAPY, snapshot.Strategies[0].APY, 1e-9)
	assert.Equal(t, types.HealthNeutral, snapshot.Strategies[0].Health)
}

func TestBuildSnapshotSkipsZeroNativeBalance(t *testing.T) {
	f := defaultFixture()
	f.accounts.native = datafetcher.Ok(datafetcher.SourceNativeBalance, "0")
	svc := newTestService(t, f)

	snapshot, err := svc.BuildSnapshot(context.Background(), testWallet, nil)
	require.NoError(t, err)

	for _, asset := range snapshot.Assets {
		assert.NotEqual(t, "APT", asset.Symbol)
	}
}

func TestBuildSnapshotRejectsInvalidAddress(t *testing.T) {
	svc := newTestService(t, defaultFixture())

	_, err := svc.BuildSnapshot(context.Background(), "not-an-address", nil)
	assert.ErrorIs(t, err, datafetcher.ErrInvalidAddress)
}

func TestOptimizeUsesSnapshot(t *testing.T) {
	f := defaultFixture()
	f.accounts.native = datafetcher.Ok(datafetcher.SourceNativeBalance, "10000000000") // 100 APT = $800
	svc := newTestService(t, f)

	opportunities, err := svc.Optimize(context.Background(), testWallet, &types.RiskProfile{RiskTolerance: 5})
	require.NoError(t, err)
	require.NotEmpty(t, opportunities)
	assert.LessOrEqual(t, len(opportunities), config.DefaultOptimizationParameters.MaxResults)
	for i := 1; i < len(opportunities); i++ {
		assert.GreaterOrEqual(t, opportunities[i-1].YearlyGain, opportunities[i].YearlyGain)
	}
}

func TestYieldOpportunities(t *testing.T) {
	svc := newTestService(t, defaultFixture())

	result, err := svc.YieldOpportunities(context.Background(), types.YieldQuery{RiskTolerance: 5, TimeHorizon: types.HorizonMedium})
	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.NotEmpty(t, result.Opportunities)

	f := defaultFixture()
	f.markets.result = datafetcher.Fail[[]types.PoolMarket](datafetcher.SourceJouleMarkets, errors.New("api down"))
	svc = newTestService(t, f)

	result, err = svc.YieldOpportunities(context.Background(), types.YieldQuery{})
	assert.Error(t, err)
	assert.Equal(t, "error", result.Status)
}
