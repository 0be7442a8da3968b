/*

This file contains the default parameters of the two opportunity rankers.

The optimization ranker works on the user's own portfolio and a static protocol table,
so its thresholds are expressed in USD. The yield ranker works on live Joule markets and
its thresholds are expressed on the 1-10 risk scale or in APY percent.

*/

package config

import (
	"github.com/aptomizer/core/internal/types"
)

// DefaultOptimizationParameters provides the heuristics of the optimization ranker.
var DefaultOptimizationParameters = types.OptimizationParameters{
	DefaultRiskTolerance: 5, // Moderate tolerance for users without a risk profile.

	// --- Liquid staking ---
	StakingMinAPTValue:     10.0, // APT holdings must be worth more than $10.
	StakingUtilization:     0.7,  // Assume 70% of the APT can be staked, the rest stays liquid for gas.
	StakingMinYearlyGain:   5.0,  // Only surface gains above $5/year.
	StakingLowRiskMaxToler: 6,    // Up to this tolerance only "Low" risk staking is offered.

	// --- Stablecoin lending ---
	LendingMinStableValue:  5.0, // Stablecoin holdings must be worth more than $5.
	LendingMinYearlyGain:   3.0, // Only surface gains above $3/year.
	LendingLowRiskMaxToler: 5,   // "Low-Medium" up to this tolerance, "Medium" above it.

	// --- Liquidity pools ---
	LPMinTolerance:       4,    // LP exposure carries impermanent loss, so it needs tolerance >= 4.
	LPMinAssetValue:      20.0, // Only assets worth more than $20 can form a pair.
	LPCapitalMultiplier:  1.5,  // Capital is 1.5x the smaller of the two legs.
	LPMinYearlyGain:      10.0, // Only surface gains above $10/year.
	LPMediumRiskMaxToler: 7,    // "Medium" up to this tolerance, "Medium-High" above it.

	// --- Yield farming ---
	FarmingMinTolerance:  8,    // Farming is only offered to aggressive users.
	FarmingMinAssetValue: 50.0, // Some asset must be worth more than $50.
	FarmingUtilization:   0.4,  // Assume 40% of that asset can be farmed.

	MaxResults: 3, // Top 3 opportunities by projected yearly gain.

	Stablecoins: []string{"USDC", "USDT", "DAI"},
}

// DefaultYieldParameters provides the heuristics of the yield ranker.
var DefaultYieldParameters = types.YieldParameters{
	UtilizationWeight: 0.7, // Utilization dominates pool risk: a fully borrowed pool cannot serve withdrawals.
	LTVWeight:         0.3, // Applied to (1 - ltv/100), ltv in percent.
	DefaultLTV:        70,  // Percent, used when a market reports no LTV at all.

	ShortHorizonMaxUtil: 0.8, // Short horizons need liquidity on exit.
	ShortHorizonFactor:  0.7,
	LongHorizonMinAPY:   3.0, // Long horizons are not worth locking up below 3% APY.
	LongHorizonFactor:   0.8,

	PreferredAssetFactor: 1.2,

	LowRiskMaxScore:    3, // risk score <= 3 is "Low"
	MediumRiskMaxScore: 7, // risk score <= 7 is "Medium", above is "High"

	MaxResults:           5,
	DefaultRiskTolerance: 5,
}
