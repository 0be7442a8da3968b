/*

This file builds the entry function payloads behind the chat write tools.

Amounts are always raw base-unit integer strings; callers convert human amounts
with utils.FloatToRaw using the token's decimals.

*/

package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aptomizer/core/internal/datafetcher"
	"github.com/aptomizer/core/internal/utils"
)

var (
	ErrInvalidPayload   = errors.New("entry function payload is invalid")
	ErrInvalidAmount    = errors.New("token amount is invalid")
	ErrInvalidRecipient = errors.New("recipient address is invalid")
	ErrUnknownAction    = errors.New("unknown lending action")
)

// Well known entry functions.
const (
	AmnisRouter         = "0x111ae3e5bc816a5e63c2da97d0aa3886519e0cd5e4b046659fa35796bd11542a::router"
	JoulePool           = "0x2fe576faa841347a9b1b32c869685deb75a15e3f62dfe37cbd6d52cc403a16f2::pool"
	StakedAptCoinType   = "0x111ae3e5bc816a5e63c2da97d0aa3886519e0cd5e4b046659fa35796bd11542a::stapt_token::StakedApt"
	AmnisAptCoinType    = "0x111ae3e5bc816a5e63c2da97d0aa3886519e0cd5e4b046659fa35796bd11542a::amapt_token::AmnisApt"
	fungibleMetadata    = "0x1::fungible_asset::Metadata"
	tokenObjectType     = "0x4::token::Token"
	aptIncentivesName   = "APTIncentives"
	amAptIncentivesName = "amAPTIncentives"
)

// LendingAction is a Joule pool operation.
type LendingAction string

const (
	ActionLend     LendingAction = "lend"
	ActionBorrow   LendingAction = "borrow"
	ActionRepay    LendingAction = "repay"
	ActionWithdraw LendingAction = "withdraw"
)

// EntryFunctionPayload is the JSON payload of an entry function call.
type EntryFunctionPayload struct {
	Type          string   `json:"type"`
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []any    `json:"arguments"`
}

func entryFunction(function string, typeArgs []string, args ...any) EntryFunctionPayload {
	if typeArgs == nil {
		typeArgs = []string{}
	}
	if args == nil {
		args = []any{}
	}
	return EntryFunctionPayload{
		Type:          "entry_function_payload",
		Function:      function,
		TypeArguments: typeArgs,
		Arguments:     args,
	}
}

func validatePayload(p EntryFunctionPayload) error {
	if p.Type != "entry_function_payload" {
		return fmt.Errorf("%w: unsupported type %q", ErrInvalidPayload, p.Type)
	}
	if strings.Count(p.Function, "::") != 2 {
		return fmt.Errorf("%w: function %q must be address::module::name", ErrInvalidPayload, p.Function)
	}
	return nil
}

func validateRawAmount(raw string) error {
	amount, err := utils.ParseRawAmount(raw)
	if err != nil {
		return errors.Join(ErrInvalidAmount, err)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidAmount, raw)
	}
	return nil
}

func validateRecipient(address string) error {
	if err := datafetcher.ValidateAddress(address); err != nil {
		return errors.Join(ErrInvalidRecipient, err)
	}
	return nil
}

// IsFungibleAsset reports whether token is a fungible asset object address
// rather than a Move coin type.
func IsFungibleAsset(token string) bool {
	return !strings.Contains(token, "::")
}

// TransferTokenPayload transfers rawAmount of token to recipient. Coin types go
// through aptos_account::transfer_coins, fungible assets through primary_fungible_store.
func TransferTokenPayload(token, recipient, rawAmount string) (EntryFunctionPayload, error) {
	if err := validateRecipient(recipient); err != nil {
		return EntryFunctionPayload{}, err
	}
	if err := validateRawAmount(rawAmount); err != nil {
		return EntryFunctionPayload{}, err
	}
	if IsFungibleAsset(token) {
		return entryFunction("0x1::primary_fungible_store::transfer", []string{fungibleMetadata}, token, recipient, rawAmount), nil
	}
	return entryFunction("0x1::aptos_account::transfer_coins", []string{token}, recipient, rawAmount), nil
}

// TransferNFTPayload transfers a digital asset object to recipient.
func TransferNFTPayload(tokenAddress, recipient string) (EntryFunctionPayload, error) {
	if err := validateRecipient(recipient); err != nil {
		return EntryFunctionPayload{}, err
	}
	if err := datafetcher.ValidateAddress(tokenAddress); err != nil {
		return EntryFunctionPayload{}, fmt.Errorf("%w: token address: %w", ErrInvalidPayload, err)
	}
	return entryFunction("0x1::object::transfer", []string{tokenObjectType}, tokenAddress, recipient), nil
}

// AmnisStakePayload stakes rawAmount octas of APT for stAPT sent to recipient.
func AmnisStakePayload(rawAmount, recipient string) (EntryFunctionPayload, error) {
	if err := validateRecipient(recipient); err != nil {
		return EntryFunctionPayload{}, err
	}
	if err := validateRawAmount(rawAmount); err != nil {
		return EntryFunctionPayload{}, err
	}
	return entryFunction(AmnisRouter+"::deposit_and_stake_entry", nil, rawAmount, recipient), nil
}

// AmnisUnstakePayload redeems rawAmount of stAPT for APT sent to recipient.
func AmnisUnstakePayload(rawAmount, recipient string) (EntryFunctionPayload, error) {
	if err := validateRecipient(recipient); err != nil {
		return EntryFunctionPayload{}, err
	}
	if err := validateRawAmount(rawAmount); err != nil {
		return EntryFunctionPayload{}, err
	}
	return entryFunction(AmnisRouter+"::unstake_entry", nil, rawAmount, recipient), nil
}

// JoulePayload builds a Joule pool call. Fungible assets use the *_fa variant
// with the asset address as argument instead of a type argument. newPosition
// only applies to lending. Borrow and withdraw carry an empty oracle update.
func JoulePayload(action LendingAction, token, positionID, rawAmount string, newPosition bool) (EntryFunctionPayload, error) {
	if err := validateRawAmount(rawAmount); err != nil {
		return EntryFunctionPayload{}, err
	}
	if strings.TrimSpace(positionID) == "" {
		return EntryFunctionPayload{}, fmt.Errorf("%w: position id is required", ErrInvalidPayload)
	}

	fa := IsFungibleAsset(token)
	function := JoulePool + "::" + string(action)
	var typeArgs []string
	args := []any{positionID}
	if fa {
		function += "_fa"
		args = append(args, token)
	} else {
		typeArgs = []string{token}
	}
	args = append(args, rawAmount)

	switch action {
	case ActionLend:
		args = append(args, newPosition)
	case ActionBorrow, ActionWithdraw:
		args = append(args, []string{})
	case ActionRepay:
	default:
		return EntryFunctionPayload{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return entryFunction(function, typeArgs, args...), nil
}

// JouleClaimRewardPayload claims the incentives of rewardCoinType. stAPT pools
// pay amAPT incentives, every other pool pays APT.
func JouleClaimRewardPayload(rewardCoinType string) (EntryFunctionPayload, error) {
	if strings.TrimSpace(rewardCoinType) == "" {
		return EntryFunctionPayload{}, fmt.Errorf("%w: reward coin type is required", ErrInvalidPayload)
	}
	rewardCoin, rewardName := "0x1::aptos_coin::AptosCoin", aptIncentivesName
	if rewardCoinType == StakedAptCoinType {
		rewardCoin, rewardName = AmnisAptCoinType, amAptIncentivesName
	}
	return entryFunction(JoulePool+"::claim_rewards", []string{rewardCoin}, rewardName, rewardCoinType), nil
}

// SwapPayload turns a Panora quote into a payload.
func SwapPayload(quote datafetcher.SwapQuote) (EntryFunctionPayload, error) {
	payload := entryFunction(quote.Function, quote.TypeArguments, quote.Arguments...)
	if err := validatePayload(payload); err != nil {
		return EntryFunctionPayload{}, err
	}
	return payload, nil
}
