package state

import (
	"context"

	"github.com/aptomizer/core/internal/types"
)

// Store exposes the package functions as methods, for callers that depend on
// an interface rather than on the global pool.
type Store struct{}

func (Store) CreateUser(ctx context.Context, walletAddress string) (types.User, error) {
	return CreateUser(ctx, walletAddress)
}

func (Store) GetUserByWalletAddress(ctx context.Context, walletAddress string) (types.User, error) {
	return GetUserByWalletAddress(ctx, walletAddress)
}

func (Store) GetUserByID(ctx context.Context, userID string) (types.User, error) {
	return GetUserByID(ctx, userID)
}

func (Store) UpdateUserProfile(ctx context.Context, walletAddress string, update types.ProfileUpdate) (types.User, error) {
	return UpdateUserProfile(ctx, walletAddress, update)
}

func (Store) SaveRiskProfile(ctx context.Context, userID string, profile types.RiskProfile) (types.RiskProfile, error) {
	return SaveRiskProfile(ctx, userID, profile)
}

func (Store) UpdateRiskProfileByWallet(ctx context.Context, walletAddress string, profile types.RiskProfile) (types.User, error) {
	return UpdateRiskProfileByWallet(ctx, walletAddress, profile)
}

func (Store) SaveAIWallet(ctx context.Context, wallet types.AIWallet) (types.AIWallet, error) {
	return SaveAIWallet(ctx, wallet)
}

func (Store) GetAIWalletByUserID(ctx context.Context, userID string) (types.AIWallet, error) {
	return GetAIWalletByUserID(ctx, userID)
}

func (Store) HasAIWallet(ctx context.Context, walletAddress string) (bool, error) {
	return HasAIWallet(ctx, walletAddress)
}

func (Store) SaveTransaction(ctx context.Context, txn types.Transaction) (types.Transaction, error) {
	return SaveTransaction(ctx, txn)
}

func (Store) ListTransactions(ctx context.Context, userID string, limit int) ([]types.Transaction, error) {
	return ListTransactions(ctx, userID, limit)
}

// Healthy pings the database.
func (Store) Healthy() error {
	return TestDBConnection()
}
