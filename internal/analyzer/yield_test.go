package analyzer

import (
	"encoding/json"
	"testing"

	"github.com/aptomizer/core/internal/config"
	"github.com/aptomizer/core/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func market(typ, name string, size, borrowed, depositAPY, extraAPY float64, ltvBps float64) types.PoolMarket {
	m := types.PoolMarket{
		Asset:         &types.PoolAsset{Type: typ, AssetName: name, Icon: "https://icons/" + name + ".png"},
		MarketSize:    types.NewFlexFloat(size),
		TotalBorrowed: types.NewFlexFloat(borrowed),
		DepositAPY:    types.NewFlexFloat(depositAPY),
	}
	if extraAPY != 0 {
		m.ExtraAPY = &types.ExtraAPY{DepositAPY: types.NewFlexFloat(extraAPY)}
	}
	if ltvBps != 0 {
		m.LTV = types.NewFlexFloat(ltvBps)
	}
	return m
}

func TestPoolRiskScoreWorkedExample(t *testing.T) {
	params := config.DefaultYieldParameters

	// utilization 0.5, ltv 70%: 0.5*0.7 + (1-0.7)*0.3 = 0.35 + 0.09 = 0.44 -> round(4.4) = 4
	assert.Equal(t, 4, PoolRiskScore(0.5, 70, params))

	opportunity, ok := ScoreMarket(market("0xapt", "APT", 1000, 500, 5, 0, 7000), NormalizeYieldQuery(types.YieldQuery{RiskTolerance: 5}, params), params)
	require.True(t, ok)
	assert.Equal(t, 70.0, opportunity.LTV)
	assert.Equal(t, 4, opportunity.RiskScore)
	assert.Equal(t, types.RiskMedium, opportunity.RiskLevel)
	// suitability 10 - |5 - 4| = 9, medium horizon 1.0, no preferences 1.2
	assert.InDelta(t, 10.8, opportunity.RecommendationScore, 1e-9)
}

func TestPoolRiskScoreRounding(t *testing.T) {
	params := config.DefaultYieldParameters
	assert.Equal(t, 3, PoolRiskScore(0, 0, params))    // 0.3*10 = 3
	assert.Equal(t, 10, PoolRiskScore(1, 0, params))   // (0.7+0.3)*10
	assert.Equal(t, 0, PoolRiskScore(0, 100, params))  // no utilization, full LTV
	assert.Equal(t, 5, PoolRiskScore(0.5, 50, params)) // 0.35+0.15 = 0.5 -> 5
}

func TestMarketLTVFallbacks(t *testing.T) {
	params := config.DefaultYieldParameters

	m := market("0xa", "A", 1, 0, 1, 0, 7500)
	assert.Equal(t, 75.0, MarketLTV(m, params))

	m = market("0xa", "A", 1, 0, 1, 0, 0)
	m.Asset.LTV = types.NewFlexFloat(6000)
	assert.Equal(t, 60.0, MarketLTV(m, params))

	m.Asset.LTV = types.FlexFloat{}
	assert.Equal(t, params.DefaultLTV, MarketLTV(m, params))
}

func TestScoreMarketDropsIncompleteMarkets(t *testing.T) {
	params := config.DefaultYieldParameters
	query := NormalizeYieldQuery(types.YieldQuery{}, params)

	noAsset := market("0xa", "A", 1, 0, 1, 0, 0)
	noAsset.Asset = nil
	noType := market("", "A", 1, 0, 1, 0, 0)
	noAPY := market("0xa", "A", 1, 0, 1, 0, 0)
	noAPY.DepositAPY = types.FlexFloat{}
	noBorrowed := market("0xa", "A", 1, 0, 1, 0, 0)
	noBorrowed.TotalBorrowed = types.FlexFloat{}

	for _, m := range []types.PoolMarket{noAsset, noType, noAPY, noBorrowed} {
		_, ok := ScoreMarket(m, query, params)
		assert.False(t, ok)
	}

	empty := market("0xa", "", 0, 0, 1, 0, 0)
	opportunity, ok := ScoreMarket(empty, query, params)
	require.True(t, ok)
	assert.Zero(t, opportunity.UtilizationRate, "zero market size means zero utilization")
	assert.Equal(t, "Unknown", opportunity.Asset.Name)
	assert.Equal(t, "UNKNOWN", opportunity.Asset.Symbol)
}

func TestTimeHorizonAndPreferenceFactors(t *testing.T) {
	params := config.DefaultYieldParameters

	busy := market("0xbusy", "BUSY", 100, 90, 10, 0, 7000)  // utilization 0.9
	lowAPY := market("0xlow", "LOW", 100, 10, 2, 0.5, 7000) // total APY 2.5

	short := NormalizeYieldQuery(types.YieldQuery{RiskTolerance: 5, TimeHorizon: types.HorizonShort}, params)
	long := NormalizeYieldQuery(types.YieldQuery{RiskTolerance: 5, TimeHorizon: types.HorizonLong}, params)
	medium := NormalizeYieldQuery(types.YieldQuery{RiskTolerance: 5}, params)

	busyShort, _ := ScoreMarket(busy, short, params)
	busyMedium, _ := ScoreMarket(busy, medium, params)
	assert.InDelta(t, busyMedium.RecommendationScore*0.7, busyShort.RecommendationScore, 1e-9)

	lowLong, _ := ScoreMarket(lowAPY, long, params)
	lowMedium, _ := ScoreMarket(lowAPY, medium, params)
	assert.InDelta(t, lowMedium.RecommendationScore*0.8, lowLong.RecommendationScore, 1e-9)

	preferUSDC := NormalizeYieldQuery(types.YieldQuery{RiskTolerance: 5, PreferredAssets: []string{"usdc"}}, params)
	notPreferred, _ := ScoreMarket(busy, preferUSDC, params)
	assert.False(t, notPreferred.Preferred)
	assert.InDelta(t, busyMedium.RecommendationScore/1.2, notPreferred.RecommendationScore, 1e-9)

	byType, _ := ScoreMarket(market("0xf::usdc::USDC", "", 100, 10, 2, 0, 7000), preferUSDC, params)
	assert.True(t, byType.Preferred, "preference matches the asset type")
}

func yieldMarkets() []types.PoolMarket {
	return []types.PoolMarket{
		market("0x1::aptos_coin::AptosCoin", "APT", 1000, 500, 5, 1, 7000),
		market("0xusdc", "USDC", 2000, 1800, 8, 0, 8000),
		market("0xusdt", "USDT", 2000, 1800, 8, 0, 8000),
		market("0xweth", "WETH", 500, 50, 1, 0, 6000),
		market("0xstapt", "stAPT", 300, 30, 3, 0.2, 5000),
		market("0xbtc", "BTC", 100, 80, 12, 0, 7000),
		market("0xmojo", "MOJO", 10, 1, 0.5, 0, 3000),
	}
}

func TestRankYieldOpportunitiesMinAPYAndLimit(t *testing.T) {
	params := config.DefaultYieldParameters

	for _, minAPY := range []float64{0, 1, 3, 5.5, 8, 20} {
		result := RankYieldOpportunities(yieldMarkets(), types.YieldQuery{RiskTolerance: 5, MinAPY: minAPY}, params)
		assert.Equal(t, StatusSuccess, result.Status)
		assert.LessOrEqual(t, len(result.Opportunities), 5)
		for _, o := range result.Opportunities {
			assert.GreaterOrEqual(t, o.DepositAPY, minAPY)
		}
	}

	result := RankYieldOpportunities(yieldMarkets(), types.YieldQuery{MinAPY: 20}, params)
	assert.Empty(t, result.Opportunities)
	assert.NotNil(t, result.Opportunities)
}

func TestRankYieldOpportunitiesDeterministic(t *testing.T) {
	params := config.DefaultYieldParameters
	query := types.YieldQuery{RiskTolerance: 6, TimeHorizon: types.HorizonShort}

	first := RankYieldOpportunities(yieldMarkets(), query, params)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, RankYieldOpportunities(yieldMarkets(), query, params))
	}

	// Reversed input order yields the same ranking.
	reversed := yieldMarkets()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	assert.Equal(t, first.Opportunities, RankYieldOpportunities(reversed, query, params).Opportunities)
}

func TestRankYieldOpportunitiesOrdering(t *testing.T) {
	params := config.DefaultYieldParameters
	result := RankYieldOpportunities(yieldMarkets(), types.YieldQuery{RiskTolerance: 5}, params)

	require.Len(t, result.Opportunities, 5)
	for i := 1; i < len(result.Opportunities); i++ {
		prev, cur := result.Opportunities[i-1], result.Opportunities[i]
		if prev.RecommendationScore == cur.RecommendationScore {
			if prev.DepositAPY == cur.DepositAPY {
				assert.Less(t, prev.Asset.Type, cur.Asset.Type)
			} else {
				assert.Greater(t, prev.DepositAPY, cur.DepositAPY)
			}
		} else {
			assert.Greater(t, prev.RecommendationScore, cur.RecommendationScore)
		}
	}

	// USDC and USDT are identical markets: the tie is broken by asset type.
	var usdcIdx, usdtIdx = -1, -1
	for i, o := range result.Opportunities {
		switch o.Asset.Type {
		case "0xusdc":
			usdcIdx = i
		case "0xusdt":
			usdtIdx = i
		}
	}
	if usdcIdx >= 0 && usdtIdx >= 0 {
		assert.Less(t, usdcIdx, usdtIdx)
	}

	assert.Equal(t, types.YieldQuery{RiskTolerance: 5, TimeHorizon: types.HorizonMedium, PreferredAssets: []string{}}, result.RiskProfileApplied)
}

func TestYieldQueryFromProfile(t *testing.T) {
	profile := &types.RiskProfile{RiskTolerance: 8, TimeHorizon: types.HorizonLong, PreferredAssets: []string{"APT"}}

	query := YieldQueryFromProfile(profile, types.YieldQuery{MinAPY: 2})
	assert.Equal(t, types.YieldQuery{RiskTolerance: 8, TimeHorizon: types.HorizonLong, MinAPY: 2, PreferredAssets: []string{"APT"}}, query)

	query = YieldQueryFromProfile(profile, types.YieldQuery{RiskTolerance: 3, TimeHorizon: types.HorizonShort, PreferredAssets: []string{}})
	assert.Equal(t, 3, query.RiskTolerance)
	assert.Equal(t, types.HorizonShort, query.TimeHorizon)
	assert.Empty(t, query.PreferredAssets)

	assert.Equal(t, types.YieldQuery{MinAPY: 1}, YieldQueryFromProfile(nil, types.YieldQuery{MinAPY: 1}))
}

func TestLowercaseHorizonsApplyPenalties(t *testing.T) {
	params := config.DefaultYieldParameters
	busy := market("0xbusy", "BUSY", 100, 90, 10, 0, 7000) // utilization 0.9

	canonical, _ := ScoreMarket(busy, NormalizeYieldQuery(types.YieldQuery{RiskTolerance: 5, TimeHorizon: types.HorizonShort}, params), params)

	stored := &types.RiskProfile{RiskTolerance: 5, TimeHorizon: "short"}
	query := NormalizeYieldQuery(YieldQueryFromProfile(stored, types.YieldQuery{}), params)
	assert.Equal(t, types.HorizonShort, query.TimeHorizon)
	fromProfile, _ := ScoreMarket(busy, query, params)
	assert.InDelta(t, canonical.RecommendationScore, fromProfile.RecommendationScore, 1e-9)

	veryLong := YieldQueryFromProfile(&types.RiskProfile{RiskTolerance: 5, TimeHorizon: "very-long"}, types.YieldQuery{})
	assert.Equal(t, types.HorizonLong, veryLong.TimeHorizon)
	assert.Equal(t, types.HorizonMedium, NormalizeYieldQuery(types.YieldQuery{TimeHorizon: "MEDIUM"}, params).TimeHorizon)
}

func TestNullMarketFieldsCountAsZero(t *testing.T) {
	params := config.DefaultYieldParameters

	var markets []types.PoolMarket
	require.NoError(t, json.Unmarshal([]byte(`[
		{"asset":{"type":"0xnull","assetName":"NULL"},"marketSize":null,"totalBorrowed":null,"depositApy":null},
		{"asset":{"type":"0xmissing","assetName":"MISSING"},"marketSize":"10","depositApy":"2"}
	]`), &markets))

	assert.True(t, IsCompleteMarket(markets[0]))
	assert.False(t, IsCompleteMarket(markets[1]))

	opportunity, ok := ScoreMarket(markets[0], NormalizeYieldQuery(types.YieldQuery{}, params), params)
	require.True(t, ok)
	assert.Zero(t, opportunity.DepositAPY)
	assert.Zero(t, opportunity.UtilizationRate)
}
