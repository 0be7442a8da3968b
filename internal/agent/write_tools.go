package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/aptomizer/core/internal/config"
	"github.com/aptomizer/core/internal/types"
	"github.com/aptomizer/core/internal/utils"
	"github.com/aptomizer/core/internal/wallet"
)

// DefaultJoulePositionID is used when lending without an existing position.
const DefaultJoulePositionID = "1234"

type jouleArgs struct {
	Amount               float64 `json:"amount"`
	Mint                 string  `json:"mint"`
	PositionID           string  `json:"positionId"`
	NewPosition          *bool   `json:"newPosition"`
	FungibleAssetAddress string  `json:"fungibleAssetAddress"`
}

func (t *Toolset) writeTools() []Tool {
	amount := NumberProperty("The amount in human readable units, eg 1.5")
	positionID := StringProperty("The Joule position ID, eg '0xf22bede237a07e121b56d91a491eb7bcdfd1f5907926a9e58338f964a01b17fa'")
	mint := StringProperty("Coin type or fungible asset address, eg '0x1::aptos_coin::AptosCoin'")

	return []Tool{
		{
			Name:        "transferToken",
			Description: "Transfer APT, a coin or a fungible asset from the AI wallet to a recipient. Leave mint empty to transfer APT.",
			Schema: ObjectSchema(map[string]any{
				"mint":   mint,
				"amount": amount,
				"to":     StringProperty("The address to transfer the token to"),
			}, "amount", "to"),
			Handler: t.transferToken,
		},
		{
			Name:        "transferNFT",
			Description: "Transfer an NFT owned by the AI wallet to a recipient",
			Schema: ObjectSchema(map[string]any{
				"mint": StringProperty("The object address of the NFT"),
				"to":   StringProperty("The address to transfer the NFT to"),
			}, "mint", "to"),
			Handler: t.transferNFT,
		},
		{
			Name: "amnisStake",
			Description: `Stake APT with Amnis and receive the liquid staking token stAPT.
keep recipient blank if the user wants to receive stAPT themselves`,
			Schema: ObjectSchema(map[string]any{
				"amount":    NumberProperty("The amount of APT to stake"),
				"recipient": StringProperty("The recipient address"),
			}, "amount"),
			Handler: t.amnisStake,
		},
		{
			Name: "amnisWithdrawStake",
			Description: `Withdraw staked APT from Amnis and receive APT back.
keep recipient blank if the user wants to receive APT themselves`,
			Schema: ObjectSchema(map[string]any{
				"amount":    NumberProperty("The amount of stAPT to withdraw"),
				"recipient": StringProperty("The recipient address"),
			}, "amount"),
			Handler: t.amnisWithdrawStake,
		},
		{
			Name: "panoraSwap",
			Description: `Swap tokens through Panora, the liquidity aggregator on Aptos.
to swap APT, fromToken is "0x1::aptos_coin::AptosCoin"`,
			Schema: ObjectSchema(map[string]any{
				"fromToken":       StringProperty("The token to swap from"),
				"toToken":         StringProperty("The token to swap to"),
				"amount":          NumberProperty("The amount of fromToken to swap"),
				"toWalletAddress": StringProperty("The wallet address to receive the swapped tokens"),
			}, "fromToken", "toToken", "amount"),
			Handler: t.panoraSwap,
		},
		{
			Name: "jouleLendToken",
			Description: `Lend APT, a coin or a fungible asset to a Joule pool.
if positionId is not provided, the positionId will be 1234 and newPosition should be true`,
			Schema: ObjectSchema(map[string]any{
				"amount":      amount,
				"mint":        mint,
				"positionId":  positionID,
				"newPosition": BooleanProperty("Whether to create a new position"),
			}, "amount", "mint"),
			Handler: t.jouleAction(wallet.ActionLend, types.TxLend, "lendTokenTransactionHash"),
		},
		{
			Name:        "jouleBorrowToken",
			Description: "Borrow APT, a coin or a fungible asset from a Joule position",
			Schema: ObjectSchema(map[string]any{
				"amount":     amount,
				"mint":       mint,
				"positionId": positionID,
			}, "amount", "mint", "positionId"),
			Handler: t.jouleAction(wallet.ActionBorrow, types.TxBorrow, "borrowTokenTransactionHash"),
		},
		{
			Name: "jouleRepayToken",
			Description: `Repay APT, a coin or a fungible asset to a Joule position.
to repay a fungible asset, also provide fungibleAssetAddress`,
			Schema: ObjectSchema(map[string]any{
				"amount":               amount,
				"mint":                 mint,
				"positionId":           positionID,
				"fungibleAssetAddress": StringProperty("The fungible asset address to repay"),
			}, "amount", "mint", "positionId"),
			Handler: t.jouleAction(wallet.ActionRepay, types.TxRepay, "repayTokenTransactionHash"),
		},
		{
			Name:        "jouleWithdrawToken",
			Description: "Withdraw APT, a coin or a fungible asset from a Joule position",
			Schema: ObjectSchema(map[string]any{
				"amount":     amount,
				"mint":       mint,
				"positionId": positionID,
			}, "amount", "mint", "positionId"),
			Handler: t.jouleAction(wallet.ActionWithdraw, types.TxWithdraw, "withdrawTokenTransactionHash"),
		},
		{
			Name: "jouleClaimReward",
			Description: `Claim Joule pool incentives. stAPT pools pay amAPT incentives, all other pools pay APT.
Rewards can be claimed for
usdt - 0x357b0b74bc833e95a115ad22604854d6b0fca151cecd94111770e5d6ffc9dc2b
usdc - 0xbae207659db88bea0cbead6da0ed00aac12edcdda169e591cd41c94180b46f3b
weth - 0xf22bede237a07e121b56d91a491eb7bcdfd1f5907926a9e58338f964a01b17fa
stapt - ` + wallet.StakedAptCoinType,
			Schema: ObjectSchema(map[string]any{
				"rewardCoinType": StringProperty("The coin type of the pool to claim rewards for"),
			}, "rewardCoinType"),
			Handler: t.jouleClaimReward,
		},
	}
}

// signer unlocks the session's AI wallet.
func (t *Toolset) signer(session Session) (*wallet.SigningClient, error) {
	aiWallet, err := requireAIWallet(session)
	if err != nil {
		return nil, err
	}
	key, err := t.keys.Unlock(aiWallet)
	if err != nil {
		return nil, err
	}
	return wallet.NewSigningClient(t.chain, key)
}

// submit signs and submits payload, then records it for the session user.
func (t *Toolset) submit(ctx context.Context, session Session, signer *wallet.SigningClient, kind string, payload wallet.EntryFunctionPayload, details map[string]any) (string, error) {
	hash, err := signer.Submit(ctx, payload)
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(details)
	if err != nil {
		raw = json.RawMessage("{}")
	}
	txn := types.Transaction{
		ID:      uuid.New().String(),
		UserID:  session.User.ID,
		Hash:    hash,
		Kind:    kind,
		Status:  types.TxStatusSubmitted,
		Details: raw,
	}
	// The transaction is already on its way, a failed insert only loses history.
	if _, err := t.transactions.SaveTransaction(ctx, txn); err != nil {
		agentLogger.Error().Err(err).Str("hash", hash).Str("kind", kind).Msg("Failed to record transaction")
	}
	return hash, nil
}

func toRawAmount(amount float64, decimals int) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("%w: amount must be positive, got %v", wallet.ErrInvalidAmount, amount)
	}
	raw, err := utils.FloatToRaw(amount, decimals)
	if err != nil {
		return "", fmt.Errorf("%w: %w", wallet.ErrInvalidAmount, err)
	}
	return raw, nil
}

func tokenSummary(token types.TokenInfo) map[string]any {
	return map[string]any{"name": token.Name, "decimals": token.Decimals}
}

func (t *Toolset) transferToken(ctx context.Context, session Session, input json.RawMessage) (map[string]any, error) {
	args, err := decodeInput[struct {
		Mint   string  `json:"mint"`
		Amount float64 `json:"amount"`
		To     string  `json:"to"`
	}](input)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.To) == "" {
		return nil, missingArgument("to")
	}
	mint := strings.TrimSpace(args.Mint)
	if mint == "" {
		mint = config.AptosCoinType
	}

	signer, err := t.signer(session)
	if err != nil {
		return nil, err
	}
	token := t.portfolio.TokenIndex(ctx).Resolve(mint)
	raw, err := toRawAmount(args.Amount, token.Decimals)
	if err != nil {
		return nil, err
	}
	payload, err := wallet.TransferTokenPayload(mint, args.To, raw)
	if err != nil {
		return nil, err
	}

	details := map[string]any{"token": tokenSummary(token), "to": args.To, "amount": args.Amount, "mint": mint}
	hash, err := t.submit(ctx, session, signer, types.TxTransferToken, payload, details)
	if err != nil {
		return nil, err
	}
	return SuccessResult(map[string]any{
		"transferTokenTransactionHash": hash,
		"token":                        tokenSummary(token),
	}), nil
}

func (t *Toolset) transferNFT(ctx context.Context, session Session, input json.RawMessage) (map[string]any, error) {
	args, err := decodeInput[struct {
		Mint string `json:"mint"`
		To   string `json:"to"`
	}](input)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.Mint) == "" {
		return nil, missingArgument("mint")
	}
	if strings.TrimSpace(args.To) == "" {
		return nil, missingArgument("to")
	}

	signer, err := t.signer(session)
	if err != nil {
		return nil, err
	}
	payload, err := wallet.TransferNFTPayload(args.Mint, args.To)
	if err != nil {
		return nil, err
	}
	hash, err := t.submit(ctx, session, signer, types.TxTransferNFT, payload, map[string]any{"nft": args.Mint, "to": args.To})
	if err != nil {
		return nil, err
	}
	return SuccessResult(map[string]any{"transfer": hash, "nft": args.Mint}), nil
}

type stakeArgs struct {
	Amount    float64 `json:"amount"`
	Recipient string  `json:"recipient"`
}

func (t *Toolset) amnisStake(ctx context.Context, session Session, input json.RawMessage) (map[string]any, error) {
	return t.amnis(ctx, session, input, wallet.AmnisStakePayload, types.TxStake, "stakeTransactionHash")
}

func (t *Toolset) amnisWithdrawStake(ctx context.Context, session Session, input json.RawMessage) (map[string]any, error) {
	return t.amnis(ctx, session, input, wallet.AmnisUnstakePayload, types.TxUnstake, "withdrawStakeTransactionHash")
}

func (t *Toolset) amnis(ctx context.Context, session Session, input json.RawMessage,
	build func(rawAmount, recipient string) (wallet.EntryFunctionPayload, error), kind, hashKey string) (map[string]any, error) {
	args, err := decodeInput[stakeArgs](input)
	if err != nil {
		return nil, err
	}

	signer, err := t.signer(session)
	if err != nil {
		return nil, err
	}
	recipient := strings.TrimSpace(args.Recipient)
	if recipient == "" {
		recipient = signer.Address()
	}
	raw, err := toRawAmount(args.Amount, config.AptosDecimals)
	if err != nil {
		return nil, err
	}
	payload, err := build(raw, recipient)
	if err != nil {
		return nil, err
	}

	token := map[string]any{"name": "stAPT", "decimals": config.AptosDecimals}
	hash, err := t.submit(ctx, session, signer, kind, payload, map[string]any{"recipient": recipient, "amount": args.Amount, "token": token})
	if err != nil {
		return nil, err
	}
	return SuccessResult(map[string]any{hashKey: hash, "token": token}), nil
}

func (t *Toolset) panoraSwap(ctx context.Context, session Session, input json.RawMessage) (map[string]any, error) {
	args, err := decodeInput[struct {
		FromToken       string  `json:"fromToken"`
		ToToken         string  `json:"toToken"`
		Amount          float64 `json:"amount"`
		ToWalletAddress string  `json:"toWalletAddress"`
	}](input)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.FromToken) == "" {
		return nil, missingArgument("fromToken")
	}
	if strings.TrimSpace(args.ToToken) == "" {
		return nil, missingArgument("toToken")
	}
	if args.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %v", wallet.ErrInvalidAmount, args.Amount)
	}

	signer, err := t.signer(session)
	if err != nil {
		return nil, err
	}
	toWallet := strings.TrimSpace(args.ToWalletAddress)
	if toWallet == "" {
		toWallet = signer.Address()
	}

	index := t.portfolio.TokenIndex(ctx)
	from := index.ResolveBySymbolOrAddress(args.FromToken)
	to := index.ResolveBySymbolOrAddress(args.ToToken)

	quote, err := t.swaps.Quote(ctx, args.FromToken, args.ToToken, args.Amount, toWallet)
	if err != nil {
		return nil, err
	}
	payload, err := wallet.SwapPayload(quote)
	if err != nil {
		return nil, err
	}

	tokens := []map[string]any{
		{"mintX": from.Name, "decimals": from.Decimals},
		{"mintY": to.Name, "decimals": to.Decimals},
	}
	details := map[string]any{"fromToken": args.FromToken, "toToken": args.ToToken, "amount": args.Amount, "toWalletAddress": toWallet}
	hash, err := t.submit(ctx, session, signer, types.TxSwap, payload, details)
	if err != nil {
		return nil, err
	}
	return SuccessResult(map[string]any{"swapTransactionHash": hash, "token": tokens}), nil
}

// jouleAction returns the handler of one Joule pool operation.
func (t *Toolset) jouleAction(action wallet.LendingAction, kind, hashKey string) Handler {
	return func(ctx context.Context, session Session, input json.RawMessage) (map[string]any, error) {
		args, err := decodeInput[jouleArgs](input)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(args.Mint) == "" {
			return nil, missingArgument("mint")
		}

		positionID := strings.TrimSpace(args.PositionID)
		newPosition := args.NewPosition != nil && *args.NewPosition
		if positionID == "" {
			if action != wallet.ActionLend {
				return nil, missingArgument("positionId")
			}
			positionID, newPosition = DefaultJoulePositionID, true
		}

		token := args.Mint
		if action == wallet.ActionRepay && strings.TrimSpace(args.FungibleAssetAddress) != "" {
			token = strings.TrimSpace(args.FungibleAssetAddress)
		}

		signer, err := t.signer(session)
		if err != nil {
			return nil, err
		}
		info := t.portfolio.TokenIndex(ctx).Resolve(args.Mint)
		raw, err := toRawAmount(args.Amount, info.Decimals)
		if err != nil {
			return nil, err
		}
		payload, err := wallet.JoulePayload(action, token, positionID, raw, newPosition)
		if err != nil {
			return nil, err
		}

		details := map[string]any{"token": tokenSummary(info), "mint": token, "positionId": positionID, "amount": args.Amount}
		hash, err := t.submit(ctx, session, signer, kind, payload, details)
		if err != nil {
			return nil, err
		}

		out := map[string]any{hashKey: hash, "token": tokenSummary(info)}
		if action == wallet.ActionLend {
			out["positionId"] = positionID
			out["newPosition"] = newPosition
		}
		return SuccessResult(out), nil
	}
}

func (t *Toolset) jouleClaimReward(ctx context.Context, session Session, input json.RawMessage) (map[string]any, error) {
	args, err := decodeInput[struct {
		RewardCoinType string `json:"rewardCoinType"`
	}](input)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.RewardCoinType) == "" {
		return nil, missingArgument("rewardCoinType")
	}

	signer, err := t.signer(session)
	if err != nil {
		return nil, err
	}
	payload, err := wallet.JouleClaimRewardPayload(args.RewardCoinType)
	if err != nil {
		return nil, err
	}

	info := t.portfolio.TokenIndex(ctx).Resolve(args.RewardCoinType)
	reward := map[string]any{
		"coinType": args.RewardCoinType,
		"name":     info.Name,
		"type":     info.TokenAddress,
		"decimals": info.Decimals,
	}
	hash, err := t.submit(ctx, session, signer, types.TxClaimReward, payload, map[string]any{"reward": reward})
	if err != nil {
		return nil, err
	}
	return SuccessResult(map[string]any{"claimRewardsTransactionHash": hash, "reward": reward}), nil
}
