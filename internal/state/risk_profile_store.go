package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aptomizer/core/internal/types"

	"github.com/google/uuid"
	"github.com/lib/pq" // PostgreSQL driver for array support
	"github.com/rs/zerolog/log"
)

var ErrRiskProfileNotFound = errors.New("risk profile not found")

const riskProfileColumns = `id, user_id, risk_tolerance, investment_goals, time_horizon, experience_level,
	preferred_assets, volatility_tolerance, income_requirement, rebalancing_frequency,
	max_drawdown, target_apy, created_at, updated_at`

func scanRiskProfile(row rowScanner) (types.RiskProfile, error) {
	var p types.RiskProfile
	err := row.Scan(
		&p.ID, &p.UserID, &p.RiskTolerance, pq.Array(&p.InvestmentGoals), &p.TimeHorizon, &p.ExperienceLevel,
		pq.Array(&p.PreferredAssets), &p.VolatilityTolerance, &p.IncomeRequirement, &p.RebalancingFrequency,
		&p.MaxDrawdown, &p.TargetAPY, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// SaveRiskProfile creates or replaces the risk profile of userID.
func SaveRiskProfile(ctx context.Context, userID string, profile types.RiskProfile) (types.RiskProfile, error) {
	if DB == nil {
		return types.RiskProfile{}, ErrDBNotInitialized
	}
	if err := profile.Validate(); err != nil {
		return types.RiskProfile{}, err
	}
	profile = profile.Normalized()

	goals := profile.InvestmentGoals
	if goals == nil {
		goals = []string{}
	}
	assets := profile.PreferredAssets
	if assets == nil {
		assets = []string{}
	}

	query := `
		INSERT INTO risk_profiles (
			id, user_id, risk_tolerance, investment_goals, time_horizon, experience_level,
			preferred_assets, volatility_tolerance, income_requirement, rebalancing_frequency,
			max_drawdown, target_apy
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE SET
			risk_tolerance = EXCLUDED.risk_tolerance,
			investment_goals = EXCLUDED.investment_goals,
			time_horizon = EXCLUDED.time_horizon,
			experience_level = EXCLUDED.experience_level,
			preferred_assets = EXCLUDED.preferred_assets,
			volatility_tolerance = EXCLUDED.volatility_tolerance,
			income_requirement = EXCLUDED.income_requirement,
			rebalancing_frequency = EXCLUDED.rebalancing_frequency,
			max_drawdown = EXCLUDED.max_drawdown,
			target_apy = EXCLUDED.target_apy,
			updated_at = CURRENT_TIMESTAMP
		RETURNING ` + riskProfileColumns + `;`

	saved, err := scanRiskProfile(DB.QueryRowContext(ctx, query,
		uuid.New().String(), userID, profile.RiskTolerance, pq.Array(goals), profile.TimeHorizon, profile.ExperienceLevel,
		pq.Array(assets), profile.VolatilityTolerance, profile.IncomeRequirement, profile.RebalancingFrequency,
		profile.MaxDrawdown, profile.TargetAPY,
	))
	if err != nil {
		switch pqErrorCode(err) {
		case pqForeignKeyViolation, pqInvalidTextRepresentation:
			return types.RiskProfile{}, ErrUserNotFound
		}
		return types.RiskProfile{}, fmt.Errorf("failed to save risk profile for user %s: %w", userID, err)
	}

	log.Info().
		Str("userId", userID).
		Int("riskTolerance", saved.RiskTolerance).
		Str("timeHorizon", saved.TimeHorizon).
		Msg("Risk profile saved")

	return saved, nil
}

// GetRiskProfileByUserID returns the risk profile of userID.
func GetRiskProfileByUserID(ctx context.Context, userID string) (types.RiskProfile, error) {
	if DB == nil {
		return types.RiskProfile{}, ErrDBNotInitialized
	}

	query := `SELECT ` + riskProfileColumns + ` FROM risk_profiles WHERE user_id = $1;`
	profile, err := scanRiskProfile(DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.RiskProfile{}, ErrRiskProfileNotFound
		}
		return types.RiskProfile{}, fmt.Errorf("failed to get risk profile for user %s: %w", userID, err)
	}
	return profile, nil
}

// UpdateRiskProfileByWallet saves the risk profile of the user of walletAddress
// and returns the updated user.
func UpdateRiskProfileByWallet(ctx context.Context, walletAddress string, profile types.RiskProfile) (types.User, error) {
	user, err := GetUserByWalletAddress(ctx, walletAddress)
	if err != nil {
		return types.User{}, err
	}

	saved, err := SaveRiskProfile(ctx, user.ID, profile)
	if err != nil {
		return types.User{}, err
	}
	user.RiskProfile = &saved
	return user, nil
}
