/*

This file stores users. A user is identified by the wallet address they connect
with; the risk profile and AI wallet are loaded alongside on reads.

*/

package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aptomizer/core/internal/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, wallet_address, display_name, email, bio, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	err := row.Scan(&user.ID, &user.WalletAddress, &user.DisplayName, &user.Email, &user.Bio, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

// CreateUser inserts a user for walletAddress, or returns the existing one.
func CreateUser(ctx context.Context, walletAddress string) (types.User, error) {
	if DB == nil {
		return types.User{}, ErrDBNotInitialized
	}
	walletAddress = strings.TrimSpace(walletAddress)
	if walletAddress == "" {
		return types.User{}, fmt.Errorf("wallet address cannot be empty")
	}

	query := `
		INSERT INTO users (id, wallet_address)
		VALUES ($1, $2)
		ON CONFLICT (wallet_address) DO UPDATE SET wallet_address = EXCLUDED.wallet_address
		RETURNING ` + userColumns + `;`

	user, err := scanUser(DB.QueryRowContext(ctx, query, uuid.New().String(), walletAddress))
	if err != nil {
		return types.User{}, fmt.Errorf("failed to upsert user %s: %w", walletAddress, err)
	}

	log.Info().Str("userId", user.ID).Str("walletAddress", walletAddress).Msg("User upserted")
	return user, nil
}

// GetUserByWalletAddress returns the user with their risk profile and AI wallet.
func GetUserByWalletAddress(ctx context.Context, walletAddress string) (types.User, error) {
	return getUser(ctx, `SELECT `+userColumns+` FROM users WHERE wallet_address = $1;`, walletAddress)
}

// GetUserByID returns the user with their risk profile and AI wallet.
func GetUserByID(ctx context.Context, userID string) (types.User, error) {
	return getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1;`, userID)
}

func getUser(ctx context.Context, query string, arg string) (types.User, error) {
	if DB == nil {
		return types.User{}, ErrDBNotInitialized
	}

	user, err := scanUser(DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || pqErrorCode(err) == pqInvalidTextRepresentation {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, fmt.Errorf("failed to get user: %w", err)
	}

	if err := loadRelations(ctx, &user); err != nil {
		return types.User{}, err
	}
	return user, nil
}

func loadRelations(ctx context.Context, user *types.User) error {
	profile, err := GetRiskProfileByUserID(ctx, user.ID)
	switch {
	case err == nil:
		user.RiskProfile = &profile
	case !errors.Is(err, ErrRiskProfileNotFound):
		return err
	}

	wallet, err := GetAIWalletByUserID(ctx, user.ID)
	switch {
	case err == nil:
		user.AIWallet = &wallet
	case !errors.Is(err, ErrAiWalletNotFound):
		return err
	}
	return nil
}

// UpdateUserProfile sets the non-nil fields of update on the user of walletAddress.
func UpdateUserProfile(ctx context.Context, walletAddress string, update types.ProfileUpdate) (types.User, error) {
	if DB == nil {
		return types.User{}, ErrDBNotInitialized
	}

	query := `
		UPDATE users
		SET display_name = COALESCE($2, display_name),
		    email = COALESCE($3, email),
		    bio = COALESCE($4, bio),
		    updated_at = CURRENT_TIMESTAMP
		WHERE wallet_address = $1
		RETURNING ` + userColumns + `;`

	user, err := scanUser(DB.QueryRowContext(ctx, query, walletAddress, update.DisplayName, update.Email, update.Bio))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, fmt.Errorf("failed to update profile of %s: %w", walletAddress, err)
	}

	if err := loadRelations(ctx, &user); err != nil {
		return types.User{}, err
	}

	log.Info().Str("userId", user.ID).Msg("User profile updated")
	return user, nil
}
