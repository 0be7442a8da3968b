/*

This file contains the chat toolset and its read-only tools.

Tools act for the session user: the model never supplies a user id, and every
on-chain read or write targets the session's AI wallet unless a tool takes an
explicit address.

*/

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aptomizer/core/internal/analyzer"
	"github.com/aptomizer/core/internal/config"
	"github.com/aptomizer/core/internal/datafetcher"
	"github.com/aptomizer/core/internal/logger"
	"github.com/aptomizer/core/internal/types"
	"github.com/aptomizer/core/internal/utils"
	"github.com/aptomizer/core/internal/wallet"
)

var agentLogger = logger.GetForComponent("agent")

var (
	ErrInvalidConfig    = errors.New("invalid toolset configuration")
	ErrAIWalletRequired = errors.New("AI wallet not found")
)

// PortfolioReader is the read side of the portfolio service.
type PortfolioReader interface {
	BuildSnapshot(ctx context.Context, aiWalletAddress string, profile *types.RiskProfile) (types.PortfolioSnapshot, error)
	YieldOpportunities(ctx context.Context, query types.YieldQuery) (types.YieldResult, error)
	Markets(ctx context.Context) datafetcher.Result[[]types.PoolMarket]
	TokenIndex(ctx context.Context) *datafetcher.TokenIndex
}

// Chain reads from and submits to an Aptos fullnode.
type Chain interface {
	wallet.ChainClient
	NativeBalance(ctx context.Context, address string) datafetcher.Result[string]
	Transaction(ctx context.Context, hash string) (json.RawMessage, error)
}

// PositionReader lists the lending legs of an address.
type PositionReader interface {
	Positions(ctx context.Context, address string) datafetcher.Result[[]types.RawLendingLeg]
}

// SwapQuoter returns swap routes.
type SwapQuoter interface {
	Quote(ctx context.Context, fromToken, toToken string, amount float64, toWallet string) (datafetcher.SwapQuote, error)
}

// KeyUnlocker decrypts the signing key of an AI wallet.
type KeyUnlocker interface {
	Unlock(w types.AIWallet) (wallet.KeyPair, error)
}

// TransactionRecorder persists submitted transactions.
type TransactionRecorder interface {
	SaveTransaction(ctx context.Context, txn types.Transaction) (types.Transaction, error)
}

// Toolset implements the chat tools.
type Toolset struct {
	portfolio    PortfolioReader
	chain        Chain
	prices       datafetcher.PriceSource
	positions    PositionReader
	swaps        SwapQuoter
	keys         KeyUnlocker
	transactions TransactionRecorder
}

// ToolsetConfig holds the dependencies of a Toolset.
type ToolsetConfig struct {
	Portfolio    PortfolioReader
	Chain        Chain
	Prices       datafetcher.PriceSource
	Positions    PositionReader
	Swaps        SwapQuoter
	Keys         KeyUnlocker
	Transactions TransactionRecorder
}

// NewToolset validates cfg and returns a Toolset.
func NewToolset(cfg ToolsetConfig) (*Toolset, error) {
	if err := validateToolsetConfig(cfg); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	return &Toolset{
		portfolio:    cfg.Portfolio,
		chain:        cfg.Chain,
		prices:       cfg.Prices,
		positions:    cfg.Positions,
		swaps:        cfg.Swaps,
		keys:         cfg.Keys,
		transactions: cfg.Transactions,
	}, nil
}

func validateToolsetConfig(cfg ToolsetConfig) error {
	if cfg.Portfolio == nil {
		return fmt.Errorf("portfolio reader cannot be nil")
	}
	if cfg.Chain == nil {
		return fmt.Errorf("chain client cannot be nil")
	}
	if cfg.Prices == nil {
		return fmt.Errorf("price source cannot be nil")
	}
	if cfg.Positions == nil {
		return fmt.Errorf("position reader cannot be nil")
	}
	if cfg.Swaps == nil {
		return fmt.Errorf("swap quoter cannot be nil")
	}
	if cfg.Keys == nil {
		return fmt.Errorf("key unlocker cannot be nil")
	}
	if cfg.Transactions == nil {
		return fmt.Errorf("transaction recorder cannot be nil")
	}
	return nil
}

// Registry returns a registry holding every chat tool.
func (t *Toolset) Registry() *Registry {
	r := NewRegistry()
	for _, tool := range t.readTools() {
		r.Register(tool)
	}
	for _, tool := range t.writeTools() {
		tool.Write = true
		r.Register(tool)
	}
	return r
}

func (t *Toolset) readTools() []Tool {
	return []Tool{
		{
			Name:        "getBalance",
			Description: "Get the APT balance of the user's AI wallet",
			Schema:      ObjectSchema(map[string]any{}),
			Handler:     t.getBalance,
		},
		{
			Name: "getTokenDetails",
			Description: `Get the details of any aptos token.
details also include decimals which you can use to make onchain values readable to a human user`,
			Schema: ObjectSchema(map[string]any{
				"mint": StringProperty(`Coin type or fungible asset address, eg "0xf22bede237a07e121b56d91a491eb7bcdfd1f5907926a9e58338f964a01b17fa::asset::USDT"`),
			}, "mint"),
			Handler: t.getTokenDetails,
		},
		{
			Name: "getTokenPrice",
			Description: `Get the live price of any aptos token in USD.
do not do any decimals conversion here, the price is already in USD`,
			Schema: ObjectSchema(map[string]any{
				"token": StringProperty("Token symbol or address, eg usdt, btc"),
			}, "token"),
			Handler: t.getTokenPrice,
		},
		{
			Name:        "getTransaction",
			Description: "Fetches a transaction from the aptos blockchain",
			Schema: ObjectSchema(map[string]any{
				"transactionHash": StringProperty("The transaction hash"),
			}, "transactionHash"),
			Handler: t.getTransaction,
		},
		{
			Name:        "getPortfolio",
			Description: "Get the user's portfolio data including assets, strategies, and portfolio metrics",
			Schema:      ObjectSchema(map[string]any{}),
			Handler:     t.getPortfolio,
		},
		{
			Name:        "jouleGetAllPools",
			Description: "Get all Joule Finance lending pools",
			Schema:      ObjectSchema(map[string]any{}),
			Handler:     t.jouleGetAllPools,
		},
		{
			Name:        "jouleGetPoolDetails",
			Description: "Get the details of the Joule pool of a token or fungible asset",
			Schema: ObjectSchema(map[string]any{
				"mint": StringProperty("Coin type, fungible asset address or symbol of the pool token, eg '0x1::aptos_coin::AptosCoin'"),
			}, "mint"),
			Handler: t.jouleGetPoolDetails,
		},
		{
			Name:        "jouleGetUserAllPositions",
			Description: "Get all Joule lending and borrowing positions of the user's AI wallet",
			Schema:      ObjectSchema(map[string]any{}),
			Handler:     t.jouleGetUserAllPositions,
		},
		{
			Name: "jouleYieldOpportunities",
			Description: `Find the best Joule lending opportunities for the user's risk profile.
Unset parameters come from the user's stored risk profile.`,
			Schema: ObjectSchema(map[string]any{
				"riskTolerance":   IntegerRangeProperty("User's risk tolerance on a scale of 1-10", 1, 10),
				"timeHorizon":     StringEnumProperty("User's investment time horizon", types.HorizonShort, types.HorizonMedium, types.HorizonLong),
				"minAPY":          NumberProperty("Minimum APY the user is looking for"),
				"preferredAssets": ArrayProperty("List of preferred assets", StringProperty("Asset symbol or name")),
			}),
			Handler: t.jouleYieldOpportunities,
		},
	}
}

func requireAIWallet(session Session) (types.AIWallet, error) {
	if session.AIWallet == nil || session.AIWallet.WalletAddress == "" {
		return types.AIWallet{}, ErrAIWalletRequired
	}
	return *session.AIWallet, nil
}

func (t *Toolset) getBalance(ctx context.Context, session Session, _ json.RawMessage) (map[string]any, error) {
	aiWallet, err := requireAIWallet(session)
	if err != nil {
		return nil, err
	}
	native := t.chain.NativeBalance(ctx, aiWallet.WalletAddress)
	if !native.OK() {
		return nil, native.Err
	}
	balance, err := utils.RawToFloat64(native.Value, config.AptosDecimals)
	if err != nil {
		return nil, err
	}
	return SuccessResult(map[string]any{
		"balance": balance,
		"token":   map[string]any{"name": "APT", "decimals": config.AptosDecimals},
	}), nil
}

func (t *Toolset) getTokenDetails(ctx context.Context, _ Session, input json.RawMessage) (map[string]any, error) {
	args, err := decodeInput[struct {
		Mint string `json:"mint"`
	}](input)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.Mint) == "" {
		return nil, missingArgument("mint")
	}
	token := t.portfolio.TokenIndex(ctx).ResolveBySymbolOrAddress(args.Mint)
	return SuccessResult(map[string]any{"tokenData": token}), nil
}

func (t *Toolset) getTokenPrice(ctx context.Context, _ Session, input json.RawMessage) (map[string]any, error) {
	args, err := decodeInput[struct {
		Token string `json:"token"`
	}](input)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.Token) == "" {
		return nil, missingArgument("token")
	}
	symbol := t.portfolio.TokenIndex(ctx).ResolveBySymbolOrAddress(args.Token).Symbol
	price, err := t.prices.TokenPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return SuccessResult(map[string]any{"tokenData": price}), nil
}

func (t *Toolset) getTransaction(ctx context.Context, _ Session, input json.RawMessage) (map[string]any, error) {
	args, err := decodeInput[struct {
		TransactionHash string `json:"transactionHash"`
	}](input)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.TransactionHash) == "" {
		return nil, missingArgument("transactionHash")
	}
	txn, err := t.chain.Transaction(ctx, args.TransactionHash)
	if err != nil {
		return nil, err
	}
	return SuccessResult(map[string]any{"transaction": txn}), nil
}

func (t *Toolset) getPortfolio(ctx context.Context, session Session, _ json.RawMessage) (map[string]any, error) {
	aiWallet, err := requireAIWallet(session)
	if err != nil {
		return nil, err
	}
	snapshot, err := t.portfolio.BuildSnapshot(ctx, aiWallet.WalletAddress, session.User.RiskProfile)
	if err != nil {
		return nil, err
	}
	return SuccessResult(map[string]any{"portfolio": snapshot}), nil
}

func (t *Toolset) jouleGetAllPools(ctx context.Context, _ Session, _ json.RawMessage) (map[string]any, error) {
	markets := t.portfolio.Markets(ctx)
	if !markets.OK() {
		return nil, markets.Err
	}
	return SuccessResult(map[string]any{"pools": markets.Value}), nil
}

func (t *Toolset) jouleGetPoolDetails(ctx context.Context, _ Session, input json.RawMessage) (map[string]any, error) {
	args, err := decodeInput[struct {
		Mint string `json:"mint"`
	}](input)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.Mint) == "" {
		return nil, missingArgument("mint")
	}
	markets := t.portfolio.Markets(ctx)
	if !markets.OK() {
		return nil, markets.Err
	}
	pool, err := datafetcher.LookupPool(markets.Value, args.Mint)
	if err != nil {
		return nil, err
	}
	return SuccessResult(map[string]any{"pool": pool}), nil
}

type positionToken struct {
	Name         string `json:"name"`
	Decimals     int    `json:"decimals"`
	TokenAddress string `json:"tokenAddress"`
}

func (t *Toolset) jouleGetUserAllPositions(ctx context.Context, session Session, _ json.RawMessage) (map[string]any, error) {
	aiWallet, err := requireAIWallet(session)
	if err != nil {
		return nil, err
	}
	legs := t.positions.Positions(ctx, aiWallet.WalletAddress)
	if !legs.OK() {
		return nil, legs.Err
	}

	index := t.portfolio.TokenIndex(ctx)
	seen := make(map[string]bool)
	tokens := make([]positionToken, 0, len(legs.Value))
	for _, leg := range legs.Value {
		if seen[leg.TokenAddress] {
			continue
		}
		seen[leg.TokenAddress] = true
		info := index.Resolve(leg.TokenAddress)
		tokens = append(tokens, positionToken{Name: info.Name, Decimals: info.Decimals, TokenAddress: leg.TokenAddress})
	}

	return SuccessResult(map[string]any{
		"jouleUserAllPositions": legs.Value,
		"tokens":                tokens,
	}), nil
}

func (t *Toolset) jouleYieldOpportunities(ctx context.Context, session Session, input json.RawMessage) (map[string]any, error) {
	args, err := decodeInput[types.YieldQuery](input)
	if err != nil {
		return nil, err
	}
	if args.RiskTolerance != 0 && (args.RiskTolerance < 1 || args.RiskTolerance > 10) {
		return nil, fmt.Errorf("%w: riskTolerance must be between 1 and 10", ErrInvalidToolArguments)
	}
	horizon, ok := types.NormalizeTimeHorizon(args.TimeHorizon)
	if !ok {
		return nil, fmt.Errorf("%w: unknown timeHorizon %q", ErrInvalidToolArguments, args.TimeHorizon)
	}
	args.TimeHorizon = horizon

	query := analyzer.YieldQueryFromProfile(session.User.RiskProfile, args)
	result, err := t.portfolio.YieldOpportunities(ctx, query)
	if err != nil {
		return nil, err
	}
	return SuccessResult(map[string]any{
		"opportunities":      result.Opportunities,
		"riskProfileApplied": result.RiskProfileApplied,
	}), nil
}
