/*

This file contains the types for ranking opportunities, and the tunable parameters of both rankers.

*/

package types

// Optimization categories, matching the keys of the protocol table.
const (
	CategoryLiquidStaking = "liquidStaking"
	CategoryLending       = "lending"
	CategoryLiquidity     = "liquidity"
	CategoryFarming       = "farming"
)

// Protocol risk labels used by the protocol table.
const (
	RiskLow        = "Low"
	RiskLowMedium  = "Low-Medium"
	RiskMedium     = "Medium"
	RiskMediumHigh = "Medium-High"
	RiskHigh       = "High"
)

// ProtocolOption is one named product in the static protocol table.
type ProtocolOption struct {
	Name      string   `json:"name" yaml:"name"`                       // e.g., "Amnis Finance"
	APY       float64  `json:"apy" yaml:"apy"`                         // percent
	Protocol  string   `json:"protocol" yaml:"protocol"`               // tool-facing identifier, e.g. "amnisStake"
	Risk      string   `json:"risk" yaml:"risk"`                       // one of the Risk* labels
	MinAmount float64  `json:"minAmount" yaml:"minAmount"`             // minimum deposit in token units
	Pairs     []string `json:"pairs,omitempty" yaml:"pairs,omitempty"` // LP pairs, e.g. "APT-USDC"
}

// ProtocolTable groups protocol options by optimization category.
type ProtocolTable struct {
	LiquidStaking []ProtocolOption `json:"liquidStaking" yaml:"liquidStaking"`
	Lending       []ProtocolOption `json:"lending" yaml:"lending"`
	Liquidity     []ProtocolOption `json:"liquidity" yaml:"liquidity"`
	Farming       []ProtocolOption `json:"farming" yaml:"farming"`
}

// OptimizationParameters holds the fixed heuristics of the optimization ranker.
type OptimizationParameters struct {
	DefaultRiskTolerance int `json:"default_risk_tolerance"` // tolerance assumed when the user has no profile

	StakingMinAPTValue     float64 `json:"staking_min_apt_value"`     // APT holdings must exceed this USD value
	StakingUtilization     float64 `json:"staking_utilization"`       // share of APT value assumed stakeable
	StakingMinYearlyGain   float64 `json:"staking_min_yearly_gain"`   // materiality threshold in USD per year
	StakingLowRiskMaxToler int     `json:"staking_low_risk_max_tol"`  // tolerance up to which only Low risk staking is offered
	LendingMinStableValue  float64 `json:"lending_min_stable_value"`  // stablecoin holdings must exceed this USD value
	LendingMinYearlyGain   float64 `json:"lending_min_yearly_gain"`   // materiality threshold in USD per year
	LendingLowRiskMaxToler int     `json:"lending_low_risk_max_tol"`  // tolerance up to which Low-Medium lending is offered
	LPMinTolerance         int     `json:"lp_min_tolerance"`          // LP suggestions need at least this tolerance
	LPMinAssetValue        float64 `json:"lp_min_asset_value"`        // an asset is LP-significant above this USD value
	LPCapitalMultiplier    float64 `json:"lp_capital_multiplier"`     // applied to the smaller of the two LP legs
	LPMinYearlyGain        float64 `json:"lp_min_yearly_gain"`        // materiality threshold in USD per year
	LPMediumRiskMaxToler   int     `json:"lp_medium_risk_max_tol"`    // tolerance up to which Medium LPs are offered
	FarmingMinTolerance    int     `json:"farming_min_tolerance"`     // farming needs at least this tolerance
	FarmingMinAssetValue   float64 `json:"farming_min_asset_value"`   // some asset must exceed this USD value
	FarmingUtilization     float64 `json:"farming_utilization"`       // share of the asset assumed farmable
	MaxResults             int     `json:"max_results"`               // number of opportunities returned

	Stablecoins []string `json:"stablecoins"` // symbols counted as stablecoins
}

// YieldParameters holds the fixed heuristics of the yield ranker.
type YieldParameters struct {
	UtilizationWeight    float64 `json:"utilization_weight"`     // weight of utilization in the pool risk score
	LTVWeight            float64 `json:"ltv_weight"`             // weight of (1 - ltv/100) in the pool risk score
	DefaultLTV           float64 `json:"default_ltv"`            // percent, used when a market reports no LTV
	ShortHorizonMaxUtil  float64 `json:"short_horizon_max_util"` // short horizons penalize utilization above this
	ShortHorizonFactor   float64 `json:"short_horizon_factor"`   // multiplier for that penalty
	LongHorizonMinAPY    float64 `json:"long_horizon_min_apy"`   // long horizons penalize APY below this
	LongHorizonFactor    float64 `json:"long_horizon_factor"`    // multiplier for that penalty
	PreferredAssetFactor float64 `json:"preferred_asset_factor"` // multiplier for preferred assets
	LowRiskMaxScore      int     `json:"low_risk_max_score"`     // risk scores up to this are "Low"
	MediumRiskMaxScore   int     `json:"medium_risk_max_score"`  // risk scores up to this are "Medium"
	MaxResults           int     `json:"max_results"`            // number of opportunities returned
	DefaultRiskTolerance int     `json:"default_risk_tolerance"` // used when the query omits it
}

// OptimizationOpportunity is a suggested move from the static protocol table.
type OptimizationOpportunity struct {
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	PotentialGain string  `json:"potentialGain"` // "+$12.34/year"
	YearlyGain    float64 `json:"yearlyGain"`
	Risk          string  `json:"risk"`
	APY           float64 `json:"apy"`
	Protocol      string  `json:"protocol"`
	Category      string  `json:"category"`
}

// YieldQuery is the user side of a yield ranking request.
type YieldQuery struct {
	RiskTolerance   int      `json:"riskTolerance"`
	TimeHorizon     string   `json:"timeHorizon"`
	MinAPY          float64  `json:"minAPY"`
	PreferredAssets []string `json:"preferredAssets"`
}

// YieldAsset describes the token behind a yield opportunity.
type YieldAsset struct {
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Type    string `json:"type"`
	LogoURL string `json:"logoUrl"`
}

// YieldOpportunity is a scored lending market.
type YieldOpportunity struct {
	Asset               YieldAsset `json:"asset"`
	DepositAPY          float64    `json:"depositAPY"`
	UtilizationRate     float64    `json:"utilizationRate"`
	RiskScore           int        `json:"riskScore"`
	RiskLevel           string     `json:"riskLevel"`
	RecommendationScore float64    `json:"recommendationScore"`
	Liquidity           float64    `json:"liquidity"`
	LTV                 float64    `json:"ltv"`
	Preferred           bool       `json:"preferred"`
}

// YieldResult is the response of the yield ranker, echoing the applied query.
type YieldResult struct {
	Status             string             `json:"status"`
	Opportunities      []YieldOpportunity `json:"opportunities"`
	RiskProfileApplied YieldQuery         `json:"riskProfileApplied"`
}
