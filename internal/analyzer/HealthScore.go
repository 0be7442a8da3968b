/*

This file contains the health ratio of lending positions and the reconciliation of
lend and borrow legs into UserPosition values.

Health is always derived from the USD legs. Every function that changes a leg
recomputes it, so a position never carries a stale status.

*/

package analyzer

import (
	"github.com/aptomizer/core/internal/logger"
	"github.com/aptomizer/core/internal/types"
)

var healthLogger = logger.GetForComponent("health_scorer")

// Health thresholds. They are fixed, not configurable.
const (
	DefaultHealth    = 2.0  // reported for positions without debt
	DangerThreshold  = 1.10 // health below this is Danger
	WarningThreshold = 1.25 // health below this (and >= DangerThreshold) is Warning
)

// CalculateHealth returns suppliedUSD / borrowedUSD. Without debt it returns
// DefaultHealth; debt without collateral returns 0.
func CalculateHealth(suppliedUSD, borrowedUSD float64) float64 {
	if borrowedUSD <= 0 {
		return DefaultHealth
	}
	if suppliedUSD <= 0 {
		return 0
	}
	return suppliedUSD / borrowedUSD
}

// ClassifyHealth maps a health ratio to Healthy, Warning or Danger.
func ClassifyHealth(health float64) string {
	switch {
	case health < DangerThreshold:
		return types.HealthDanger
	case health < WarningThreshold:
		return types.HealthWarning
	default:
		return types.HealthHealthy
	}
}

// RecomputeHealth refreshes Health and HealthStatus from the USD legs.
func RecomputeHealth(position *types.UserPosition) {
	position.Health = CalculateHealth(position.SuppliedUSD, position.BorrowedUSD)
	position.HealthStatus = ClassifyHealth(position.Health)
}

// SetSupplied replaces the lend leg and recomputes health.
func SetSupplied(position *types.UserPosition, amount, usd float64) {
	position.Supplied = amount
	position.SuppliedUSD = usd
	RecomputeHealth(position)
}

// SetBorrowed replaces the borrow leg and recomputes health.
func SetBorrowed(position *types.UserPosition, amount, usd float64) {
	position.Borrowed = amount
	position.BorrowedUSD = usd
	RecomputeHealth(position)
}

// PricedLeg is a lending leg converted to token units and valued in USD.
type PricedLeg struct {
	types.RawLendingLeg
	Symbol   string
	Amount   float64
	ValueUSD float64
}

// ReconcileLegs merges the lend and borrow legs of the same position and token
// into one UserPosition each, in first-seen order. Repeated legs on the same
// side are summed.
func ReconcileLegs(protocol string, legs []PricedLeg) []types.UserPosition {
	type key struct{ positionID, token string }

	index := make(map[key]int, len(legs))
	positions := make([]types.UserPosition, 0, len(legs))

	for _, leg := range legs {
		k := key{leg.PositionID, leg.TokenAddress}
		i, exists := index[k]
		if !exists {
			positions = append(positions, types.UserPosition{
				PositionID:   leg.PositionID,
				PositionName: leg.PositionName,
				Protocol:     protocol,
				TokenAddress: leg.TokenAddress,
				TokenSymbol:  leg.Symbol,
			})
			i = len(positions) - 1
			index[k] = i
			RecomputeHealth(&positions[i])
		}

		position := &positions[i]
		switch leg.Side {
		case types.SideLend:
			SetSupplied(position, position.Supplied+leg.Amount, position.SuppliedUSD+leg.ValueUSD)
		case types.SideBorrow:
			SetBorrowed(position, position.Borrowed+leg.Amount, position.BorrowedUSD+leg.ValueUSD)
		default:
			healthLogger.Warn().Str("side", leg.Side).Str("positionId", leg.PositionID).Msg("Ignoring leg with unknown side")
		}
	}

	return positions
}
