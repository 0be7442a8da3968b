package analyzer

import "github.com/aptomizer/core/internal/types"

// DefaultSnapshotRiskScore is reported for users without a risk profile.
const DefaultSnapshotRiskScore = 50

// SnapshotRiskScore is riskTolerance * 10, or DefaultSnapshotRiskScore without a profile.
func SnapshotRiskScore(profile *types.RiskProfile) int {
	if profile == nil || profile.RiskTolerance <= 0 {
		return DefaultSnapshotRiskScore
	}
	return profile.RiskTolerance * 10
}

// EffectiveRiskTolerance returns the profile's tolerance, or def without a profile.
func EffectiveRiskTolerance(profile *types.RiskProfile, def int) int {
	if profile == nil || profile.RiskTolerance <= 0 {
		return def
	}
	return profile.RiskTolerance
}
