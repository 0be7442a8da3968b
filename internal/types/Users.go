/*

User, AI wallet, risk profile and transaction records persisted in Postgres.

*/

package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidRiskProfile = errors.New("invalid risk profile")

// Time horizons understood by the yield ranker.
const (
	HorizonShort  = "Short"
	HorizonMedium = "Medium"
	HorizonLong   = "Long"
)

// NormalizeTimeHorizon returns the canonical form of a time horizon in any
// case. "very-long" counts as Long. The second result is false for unknown
// horizons, which are returned unchanged.
func NormalizeTimeHorizon(horizon string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(horizon)) {
	case "":
		return "", true
	case "short":
		return HorizonShort, true
	case "medium":
		return HorizonMedium, true
	case "long", "very-long", "very_long", "very long":
		return HorizonLong, true
	}
	return horizon, false
}

// User is an application user identified by the wallet they connect with.
type User struct {
	ID            string       `json:"id"`
	WalletAddress string       `json:"walletAddress"`
	DisplayName   *string      `json:"displayName"`
	Email         *string      `json:"email"`
	Bio           *string      `json:"bio"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
	RiskProfile   *RiskProfile `json:"riskProfile"`
	AIWallet      *AIWallet    `json:"aiWallet,omitempty"`
}

// ProfileUpdate carries the editable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	DisplayName *string `json:"displayName"`
	Email       *string `json:"email"`
	Bio         *string `json:"bio"`
}

// AIWallet is the custodial wallet the assistant signs with.
// EncryptedPrivateKey never leaves the server.
type AIWallet struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"userId"`
	WalletAddress       string    `json:"walletAddress"`
	PublicKey           string    `json:"publicKey"`
	EncryptedPrivateKey string    `json:"-"`
	CreatedAt           time.Time `json:"createdAt"`
}

// RiskProfile is the user's investment preference questionnaire.
type RiskProfile struct {
	ID                   string    `json:"id,omitempty"`
	UserID               string    `json:"userId,omitempty"`
	RiskTolerance        int       `json:"riskTolerance"`       // 1-10
	InvestmentGoals      []string  `json:"investmentGoals"`     // e.g. ["Growth", "Income"]
	TimeHorizon          string    `json:"timeHorizon"`         // Short, Medium, Long
	ExperienceLevel      string    `json:"experienceLevel"`     // e.g. Beginner
	PreferredAssets      []string  `json:"preferredAssets"`     // symbols or names
	VolatilityTolerance  int       `json:"volatilityTolerance"` // 1-10
	IncomeRequirement    bool      `json:"incomeRequirement"`
	RebalancingFrequency string    `json:"rebalancingFrequency"`
	MaxDrawdown          *float64  `json:"maxDrawdown"`
	TargetAPY            *float64  `json:"targetAPY"`
	CreatedAt            time.Time `json:"createdAt,omitempty"`
	UpdatedAt            time.Time `json:"updatedAt,omitempty"`
}

// Validate checks the bounded fields of a profile.
func (p RiskProfile) Validate() error {
	if p.RiskTolerance < 1 || p.RiskTolerance > 10 {
		return fmt.Errorf("%w: riskTolerance must be between 1 and 10, got %d", ErrInvalidRiskProfile, p.RiskTolerance)
	}
	if p.VolatilityTolerance != 0 && (p.VolatilityTolerance < 1 || p.VolatilityTolerance > 10) {
		return fmt.Errorf("%w: volatilityTolerance must be between 1 and 10, got %d", ErrInvalidRiskProfile, p.VolatilityTolerance)
	}
	if _, ok := NormalizeTimeHorizon(p.TimeHorizon); !ok {
		return fmt.Errorf("%w: unknown timeHorizon %q", ErrInvalidRiskProfile, p.TimeHorizon)
	}
	if p.MaxDrawdown != nil && (*p.MaxDrawdown < 0 || *p.MaxDrawdown > 100) {
		return fmt.Errorf("%w: maxDrawdown must be a percentage, got %f", ErrInvalidRiskProfile, *p.MaxDrawdown)
	}
	return nil
}

// Normalized returns a copy of p with a canonical time horizon.
func (p RiskProfile) Normalized() RiskProfile {
	p.TimeHorizon, _ = NormalizeTimeHorizon(p.TimeHorizon)
	return p
}

// Transaction kinds recorded by the chat write tools.
const (
	TxTransferToken   = "transfer_token"
	TxTransferNFT     = "transfer_nft"
	TxStake           = "stake"
	TxUnstake         = "unstake"
	TxSwap            = "swap"
	TxLend            = "lend"
	TxBorrow          = "borrow"
	TxRepay           = "repay"
	TxWithdraw        = "withdraw"
	TxClaimReward     = "claim_reward"
	TxStatusSubmitted = "submitted"
)

// Transaction is a submitted on-chain transaction made by the AI wallet.
type Transaction struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Hash      string          `json:"hash"`
	Kind      string          `json:"kind"`
	Status    string          `json:"status"`
	Details   json.RawMessage `json:"details"`
	CreatedAt time.Time       `json:"createdAt"`
}
