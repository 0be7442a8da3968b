/*

This file contains the optimization ranker. It compares the user's holdings with a
static table of Aptos DeFi products in four categories and suggests the moves with
the largest projected yearly gain.

Each category is gated on the user's risk tolerance and only surfaces when the
projected gain is material. Gains are computed with decimal arithmetic and
compared at cent precision, the precision they are displayed with.

*/

package analyzer

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/aptomizer/core/internal/logger"
	"github.com/aptomizer/core/internal/types"
	"github.com/aptomizer/core/internal/utils"
	"github.com/shopspring/decimal"
)

var optimizationLogger = logger.GetForComponent("optimization_ranker")

// OptimizationInput is what the optimization ranker reads from a portfolio.
// Assets are expected in value-descending order, as a snapshot returns them.
type OptimizationInput struct {
	Assets        []types.Asset
	Strategies    []types.Strategy
	RiskTolerance int
}

type candidate struct {
	opportunity types.OptimizationOpportunity
	gain        decimal.Decimal
}

// RankOptimizationOpportunities returns the top opportunities by projected yearly gain.
func RankOptimizationOpportunities(input OptimizationInput, table types.ProtocolTable, params types.OptimizationParameters) []types.OptimizationOpportunity {
	tolerance := input.RiskTolerance
	if tolerance <= 0 {
		tolerance = params.DefaultRiskTolerance
	}

	var candidates []candidate
	for _, build := range []func(OptimizationInput, int, types.ProtocolTable, types.OptimizationParameters) (candidate, bool){
		liquidStakingOpportunity,
		stablecoinLendingOpportunity,
		liquidityPoolOpportunity,
		farmingOpportunity,
	} {
		if c, ok := build(input, tolerance, table, params); ok {
			candidates = append(candidates, c)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].gain.Round(2).GreaterThan(candidates[j].gain.Round(2))
	})

	if params.MaxResults > 0 && len(candidates) > params.MaxResults {
		candidates = candidates[:params.MaxResults]
	}

	opportunities := make([]types.OptimizationOpportunity, 0, len(candidates))
	for _, c := range candidates {
		opportunities = append(opportunities, c.opportunity)
	}

	optimizationLogger.Debug().
		Int("riskTolerance", tolerance).
		Int("assets", len(input.Assets)).
		Int("strategies", len(input.Strategies)).
		Int("opportunities", len(opportunities)).
		Msg("Ranked optimization opportunities")

	return opportunities
}

// bestOption returns the highest-APY option accepted by eligible. Ties keep table order.
func bestOption(options []types.ProtocolOption, eligible func(types.ProtocolOption) bool) (types.ProtocolOption, bool) {
	var best types.ProtocolOption
	found := false
	for _, option := range options {
		if eligible != nil && !eligible(option) {
			continue
		}
		if !found || option.APY > best.APY {
			best = option
			found = true
		}
	}
	return best, found
}

// currentAPY returns the APY of the first strategy accepted by match, or 0.
func currentAPY(strategies []types.Strategy, match func(types.Strategy) bool) float64 {
	for _, s := range strategies {
		if match(s) {
			return s.APY
		}
	}
	return 0
}

func newCandidate(option types.ProtocolOption, category, title, description string, gain decimal.Decimal) candidate {
	yearly, _ := gain.Round(2).Float64()
	return candidate{
		gain: gain,
		opportunity: types.OptimizationOpportunity{
			Title:         title,
			Description:   description,
			PotentialGain: utils.FormatYearlyGain(gain),
			YearlyGain:    yearly,
			Risk:          option.Risk,
			APY:           option.APY,
			Protocol:      option.Protocol,
			Category:      category,
		},
	}
}

func liquidStakingOpportunity(input OptimizationInput, tolerance int, table types.ProtocolTable, params types.OptimizationParameters) (candidate, bool) {
	idx := slices.IndexFunc(input.Assets, func(a types.Asset) bool { return a.Symbol == "APT" })
	if idx < 0 || input.Assets[idx].Value <= params.StakingMinAPTValue {
		return candidate{}, false
	}
	apt := input.Assets[idx]

	best, ok := bestOption(table.LiquidStaking, func(o types.ProtocolOption) bool {
		return (o.Risk == types.RiskLow && tolerance <= params.StakingLowRiskMaxToler) || tolerance > params.StakingLowRiskMaxToler
	})
	if !ok {
		return candidate{}, false
	}

	current := currentAPY(input.Strategies, func(s types.Strategy) bool {
		return strings.Contains(s.Name, "Staking") || strings.Contains(s.Protocol, "Stake")
	})
	gain := utils.YearlyGain(apt.Value*params.StakingUtilization, current, best.APY)
	if !gain.GreaterThan(decimal.NewFromFloat(params.StakingMinYearlyGain)) {
		return candidate{}, false
	}

	return newCandidate(best, types.CategoryLiquidStaking,
		fmt.Sprintf("%s Liquid Staking", best.Name),
		fmt.Sprintf("Convert APT to liquid staked tokens for %s%% APY while maintaining liquidity.", formatAPY(best.APY)),
		gain), true
}

func stablecoinLendingOpportunity(input OptimizationInput, tolerance int, table types.ProtocolTable, params types.OptimizationParameters) (candidate, bool) {
	var stablecoins []types.Asset
	total := 0.0
	for _, asset := range input.Assets {
		if slices.Contains(params.Stablecoins, asset.Symbol) {
			stablecoins = append(stablecoins, asset)
			total += asset.Value
		}
	}
	if len(stablecoins) == 0 || total <= params.LendingMinStableValue {
		return candidate{}, false
	}

	best, ok := bestOption(table.Lending, func(o types.ProtocolOption) bool {
		return (o.Risk == types.RiskLowMedium && tolerance <= params.LendingLowRiskMaxToler) ||
			(o.Risk == types.RiskMedium && tolerance > params.LendingLowRiskMaxToler)
	})
	if !ok {
		return candidate{}, false
	}

	current := currentAPY(input.Strategies, func(s types.Strategy) bool {
		return strings.Contains(s.Name, "Lending") || strings.Contains(s.Protocol, best.Name)
	})
	gain := utils.YearlyGain(total, current, best.APY)
	if !gain.GreaterThan(decimal.NewFromFloat(params.LendingMinYearlyGain)) {
		return candidate{}, false
	}

	symbol := stablecoins[0].Symbol
	return newCandidate(best, types.CategoryLending,
		fmt.Sprintf("%s Lending", symbol),
		fmt.Sprintf("Lend your %s for %s%% APY on %s.", symbol, formatAPY(best.APY), best.Name),
		gain), true
}

func liquidityPoolOpportunity(input OptimizationInput, tolerance int, table types.ProtocolTable, params types.OptimizationParameters) (candidate, bool) {
	if len(input.Assets) < 2 || tolerance < params.LPMinTolerance {
		return candidate{}, false
	}

	var significant []types.Asset
	for _, asset := range input.Assets {
		if asset.Value > params.LPMinAssetValue {
			significant = append(significant, asset)
		}
	}
	if len(significant) < 2 {
		return candidate{}, false
	}

	best, ok := bestOption(table.Liquidity, func(o types.ProtocolOption) bool {
		return (o.Risk == types.RiskMedium && tolerance <= params.LPMediumRiskMaxToler) ||
			(o.Risk == types.RiskMediumHigh && tolerance > params.LPMediumRiskMaxToler)
	})
	if !ok {
		return candidate{}, false
	}

	current := currentAPY(input.Strategies, func(s types.Strategy) bool {
		return strings.Contains(s.Name, "Liquidity") || strings.Contains(s.Protocol, best.Name)
	})
	first, second := significant[0], significant[1]
	capital := min(first.Value, second.Value) * params.LPCapitalMultiplier
	gain := utils.YearlyGain(capital, current, best.APY)
	if !gain.GreaterThan(decimal.NewFromFloat(params.LPMinYearlyGain)) {
		return candidate{}, false
	}

	return newCandidate(best, types.CategoryLiquidity,
		fmt.Sprintf("%s-%s Liquidity Pool", first.Symbol, second.Symbol),
		fmt.Sprintf("Provide liquidity to %s %s-%s pool for %s%% APY.", best.Name, first.Symbol, second.Symbol, formatAPY(best.APY)),
		gain), true
}

func farmingOpportunity(input OptimizationInput, tolerance int, table types.ProtocolTable, params types.OptimizationParameters) (candidate, bool) {
	if tolerance < params.FarmingMinTolerance {
		return candidate{}, false
	}
	idx := slices.IndexFunc(input.Assets, func(a types.Asset) bool { return a.Value > params.FarmingMinAssetValue })
	if idx < 0 {
		return candidate{}, false
	}
	farmable := input.Assets[idx]

	best, ok := bestOption(table.Farming, nil)
	if !ok {
		return candidate{}, false
	}

	gain := utils.YearlyGain(farmable.Value*params.FarmingUtilization, 0, best.APY)

	return newCandidate(best, types.CategoryFarming,
		fmt.Sprintf("%s Yield Farming", best.Name),
		fmt.Sprintf("Stake %s in %s farming protocol for high %s%% APY returns.", farmable.Symbol, best.Name, formatAPY(best.APY)),
		gain), true
}

// formatAPY prints an APY the way it is written in the protocol table, e.g. 7.5 or 32.4.
func formatAPY(apy float64) string {
	return decimal.NewFromFloat(apy).String()
}
