package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aptomizer/core/internal/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Transaction list bounds.
const (
	DefaultTransactionLimit = 20
	MaxTransactionLimit     = 100
)

// SaveTransaction records a submitted AI wallet transaction.
func SaveTransaction(ctx context.Context, txn types.Transaction) (types.Transaction, error) {
	if DB == nil {
		return types.Transaction{}, ErrDBNotInitialized
	}
	if txn.Hash == "" {
		return types.Transaction{}, fmt.Errorf("transaction hash cannot be empty")
	}
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	if txn.Status == "" {
		txn.Status = types.TxStatusSubmitted
	}
	details := txn.Details
	if len(details) == 0 {
		details = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO transactions (id, user_id, hash, kind, status, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at;`

	err := DB.QueryRowContext(ctx, query, txn.ID, txn.UserID, txn.Hash, txn.Kind, txn.Status, []byte(details)).Scan(&txn.CreatedAt)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("failed to save transaction %s: %w", txn.Hash, err)
	}
	txn.Details = details

	log.Info().
		Str("userId", txn.UserID).
		Str("hash", txn.Hash).
		Str("kind", txn.Kind).
		Msg("Transaction recorded")

	return txn, nil
}

// ListTransactions returns the most recent transactions of userID, newest first.
func ListTransactions(ctx context.Context, userID string, limit int) ([]types.Transaction, error) {
	if DB == nil {
		return nil, ErrDBNotInitialized
	}

	if limit <= 0 || limit > MaxTransactionLimit {
		limit = DefaultTransactionLimit
	}

	query := `
		SELECT id, user_id, hash, kind, status, details, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2;`

	rows, err := DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query transactions")
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	txns := []types.Transaction{}
	for rows.Next() {
		var txn types.Transaction
		var details []byte
		if err := rows.Scan(&txn.ID, &txn.UserID, &txn.Hash, &txn.Kind, &txn.Status, &details, &txn.CreatedAt); err != nil {
			log.Error().Err(err).Msg("Failed to scan transaction row")
			continue // Skip this row and continue with others
		}
		if len(details) > 0 {
			txn.Details = json.RawMessage(details)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return txns, nil
}
