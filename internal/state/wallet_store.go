package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aptomizer/core/internal/types"

	"github.com/rs/zerolog/log"
)

var (
	ErrAiWalletNotFound = errors.New("AI wallet not found")
	ErrAiWalletExists   = errors.New("user already has an AI wallet")
)

const aiWalletColumns = `id, user_id, wallet_address, public_key, encrypted_private_key, created_at`

func scanAIWallet(row rowScanner) (types.AIWallet, error) {
	var w types.AIWallet
	err := row.Scan(&w.ID, &w.UserID, &w.WalletAddress, &w.PublicKey, &w.EncryptedPrivateKey, &w.CreatedAt)
	return w, err
}

// SaveAIWallet stores a generated AI wallet. A user owns at most one.
func SaveAIWallet(ctx context.Context, wallet types.AIWallet) (types.AIWallet, error) {
	if DB == nil {
		return types.AIWallet{}, ErrDBNotInitialized
	}
	if wallet.EncryptedPrivateKey == "" {
		return types.AIWallet{}, fmt.Errorf("AI wallet %s has no encrypted key", wallet.WalletAddress)
	}

	query := `
		INSERT INTO ai_wallets (id, user_id, wallet_address, public_key, encrypted_private_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + aiWalletColumns + `;`

	saved, err := scanAIWallet(DB.QueryRowContext(ctx, query,
		wallet.ID, wallet.UserID, wallet.WalletAddress, wallet.PublicKey, wallet.EncryptedPrivateKey))
	if err != nil {
		switch pqErrorCode(err) {
		case pqUniqueViolation:
			return types.AIWallet{}, ErrAiWalletExists
		case pqForeignKeyViolation, pqInvalidTextRepresentation:
			return types.AIWallet{}, ErrUserNotFound
		}
		return types.AIWallet{}, fmt.Errorf("failed to save AI wallet for user %s: %w", wallet.UserID, err)
	}

	log.Info().Str("userId", saved.UserID).Str("aiWallet", saved.WalletAddress).Msg("AI wallet saved")
	return saved, nil
}

// GetAIWalletByUserID returns the AI wallet of userID, including its encrypted key.
func GetAIWalletByUserID(ctx context.Context, userID string) (types.AIWallet, error) {
	if DB == nil {
		return types.AIWallet{}, ErrDBNotInitialized
	}

	query := `SELECT ` + aiWalletColumns + ` FROM ai_wallets WHERE user_id = $1;`
	wallet, err := scanAIWallet(DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || pqErrorCode(err) == pqInvalidTextRepresentation {
			return types.AIWallet{}, ErrAiWalletNotFound
		}
		return types.AIWallet{}, fmt.Errorf("failed to get AI wallet for user %s: %w", userID, err)
	}
	return wallet, nil
}

// HasAIWallet reports whether the user of walletAddress owns an AI wallet.
// An unknown user has none.
func HasAIWallet(ctx context.Context, walletAddress string) (bool, error) {
	if DB == nil {
		return false, ErrDBNotInitialized
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM ai_wallets w JOIN users u ON u.id = w.user_id WHERE u.wallet_address = $1
		);`

	var exists bool
	if err := DB.QueryRowContext(ctx, query, walletAddress).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check AI wallet of %s: %w", walletAddress, err)
	}
	return exists, nil
}
