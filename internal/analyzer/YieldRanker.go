/*

This file contains the yield ranker: it scores live Joule lending markets against
a user's risk tolerance, time horizon, minimum APY and preferred assets.

*/

package analyzer

import (
	"math"
	"sort"
	"strings"

	"github.com/aptomizer/core/internal/logger"
	"github.com/aptomizer/core/internal/types"
)

var yieldLogger = logger.GetForComponent("yield_ranker")

// Yield result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// NormalizeYieldQuery fills unset query fields with their defaults.
func NormalizeYieldQuery(query types.YieldQuery, params types.YieldParameters) types.YieldQuery {
	if query.RiskTolerance <= 0 {
		query.RiskTolerance = params.DefaultRiskTolerance
	}
	query.TimeHorizon, _ = types.NormalizeTimeHorizon(query.TimeHorizon)
	if query.TimeHorizon == "" {
		query.TimeHorizon = types.HorizonMedium
	}
	if query.PreferredAssets == nil {
		query.PreferredAssets = []string{}
	}
	return query
}

// MarketLTV returns the LTV of a market in percent. Both the market and asset
// fields are in basis points; a zero asset LTV counts as missing.
func MarketLTV(market types.PoolMarket, params types.YieldParameters) float64 {
	if market.LTV.Valid {
		return market.LTV.Value / 100
	}
	if market.Asset != nil && market.Asset.LTV.Valid && market.Asset.LTV.Value != 0 {
		return market.Asset.LTV.Value / 100
	}
	return params.DefaultLTV
}

// PoolRiskScore combines utilization and LTV into a 1-10 style risk score,
// rounding half away from zero.
func PoolRiskScore(utilization, ltvPercent float64, params types.YieldParameters) int {
	utilizationRisk := utilization * params.UtilizationWeight
	ltvRisk := (1 - ltvPercent/100) * params.LTVWeight
	return int(math.Round((utilizationRisk + ltvRisk) * 10))
}

// RiskLevel labels a risk score as Low, Medium or High.
func RiskLevel(riskScore int, params types.YieldParameters) string {
	switch {
	case riskScore <= params.LowRiskMaxScore:
		return types.RiskLow
	case riskScore <= params.MediumRiskMaxScore:
		return types.RiskMedium
	default:
		return types.RiskHigh
	}
}

// IsPreferred reports whether the asset name or type contains any preference,
// case-insensitively. No preferences means every asset is preferred.
func IsPreferred(assetName, assetType string, preferred []string) bool {
	if len(preferred) == 0 {
		return true
	}
	name := strings.ToLower(assetName)
	typ := strings.ToLower(assetType)
	for _, p := range preferred {
		p = strings.ToLower(p)
		if strings.Contains(name, p) || strings.Contains(typ, p) {
			return true
		}
	}
	return false
}

// IsCompleteMarket reports whether a market has every field the ranker needs.
// Fields sent as null count as present with value 0.
func IsCompleteMarket(market types.PoolMarket) bool {
	return market.Asset != nil &&
		market.Asset.Type != "" &&
		market.DepositAPY.Present() &&
		market.MarketSize.Present() &&
		market.TotalBorrowed.Present()
}

// ScoreMarket scores one market against a normalized query. The second result
// is false for markets missing required data.
func ScoreMarket(market types.PoolMarket, query types.YieldQuery, params types.YieldParameters) (types.YieldOpportunity, bool) {
	if !IsCompleteMarket(market) {
		return types.YieldOpportunity{}, false
	}

	marketSize := market.MarketSize.Value
	totalBorrowed := market.TotalBorrowed.Value

	utilization := 0.0
	if marketSize > 0 {
		utilization = totalBorrowed / marketSize
	}

	ltv := MarketLTV(market, params)
	totalDepositAPY := market.DepositAPY.Value + market.ExtraDepositAPY()
	riskScore := PoolRiskScore(utilization, ltv, params)

	suitability := 10 - math.Abs(float64(query.RiskTolerance-riskScore))

	timeHorizonFactor := 1.0
	if query.TimeHorizon == types.HorizonShort && utilization > params.ShortHorizonMaxUtil {
		timeHorizonFactor = params.ShortHorizonFactor
	} else if query.TimeHorizon == types.HorizonLong && totalDepositAPY < params.LongHorizonMinAPY {
		timeHorizonFactor = params.LongHorizonFactor
	}

	assetName := market.Asset.DisplayName
	if assetName == "" {
		assetName = market.Asset.AssetName
	}
	preferred := IsPreferred(assetName, market.Asset.Type, query.PreferredAssets)
	preferredFactor := 1.0
	if preferred {
		preferredFactor = params.PreferredAssetFactor
	}

	displayName := assetName
	if displayName == "" {
		displayName = "Unknown"
	}
	symbol := market.Asset.AssetName
	if symbol == "" {
		symbol = "UNKNOWN"
	}

	return types.YieldOpportunity{
		Asset: types.YieldAsset{
			Name:    displayName,
			Symbol:  symbol,
			Type:    market.Asset.Type,
			LogoURL: market.Asset.Icon,
		},
		DepositAPY:          totalDepositAPY,
		UtilizationRate:     utilization,
		RiskScore:           riskScore,
		RiskLevel:           RiskLevel(riskScore, params),
		RecommendationScore: suitability * timeHorizonFactor * preferredFactor,
		Liquidity:           marketSize - totalBorrowed,
		LTV:                 ltv,
		Preferred:           preferred,
	}, true
}

// RankYieldOpportunities scores every market, drops those below the query's
// minimum APY and returns the best MaxResults. Ordering is by recommendation
// score, then APY, both descending, then asset type ascending, so equal inputs
// always produce the same list.
func RankYieldOpportunities(markets []types.PoolMarket, query types.YieldQuery, params types.YieldParameters) types.YieldResult {
	query = NormalizeYieldQuery(query, params)

	opportunities := make([]types.YieldOpportunity, 0, len(markets))
	skipped := 0
	for _, market := range markets {
		opportunity, ok := ScoreMarket(market, query, params)
		if !ok {
			skipped++
			continue
		}
		if opportunity.DepositAPY < query.MinAPY {
			continue
		}
		opportunities = append(opportunities, opportunity)
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		a, b := opportunities[i], opportunities[j]
		if a.RecommendationScore != b.RecommendationScore {
			return a.RecommendationScore > b.RecommendationScore
		}
		if a.DepositAPY != b.DepositAPY {
			return a.DepositAPY > b.DepositAPY
		}
		return a.Asset.Type < b.Asset.Type
	})

	if params.MaxResults > 0 && len(opportunities) > params.MaxResults {
		opportunities = opportunities[:params.MaxResults]
	}

	yieldLogger.Debug().
		Int("markets", len(markets)).
		Int("incomplete", skipped).
		Int("returned", len(opportunities)).
		Int("riskTolerance", query.RiskTolerance).
		Str("timeHorizon", query.TimeHorizon).
		Float64("minAPY", query.MinAPY).
		Msg("Ranked yield opportunities")

	return types.YieldResult{
		Status:             StatusSuccess,
		Opportunities:      opportunities,
		RiskProfileApplied: query,
	}
}

// YieldQueryFromProfile builds a query from a stored risk profile. Fields of
// override that are set take precedence.
func YieldQueryFromProfile(profile *types.RiskProfile, override types.YieldQuery) types.YieldQuery {
	query := override
	query.TimeHorizon, _ = types.NormalizeTimeHorizon(query.TimeHorizon)
	if profile == nil {
		return query
	}
	if query.RiskTolerance <= 0 {
		query.RiskTolerance = profile.RiskTolerance
	}
	if query.TimeHorizon == "" {
		query.TimeHorizon, _ = types.NormalizeTimeHorizon(profile.TimeHorizon)
	}
	if query.PreferredAssets == nil && len(profile.PreferredAssets) > 0 {
		query.PreferredAssets = profile.PreferredAssets
	}
	return query
}
