/*
This file is a small client for the Aptos fullnode REST API (v1).

It covers the reads the portfolio needs (view functions, account resources,
transactions) and the endpoints used to build and submit signed transactions.
*/

package datafetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/aptomizer/core/internal/config"
	"github.com/aptomizer/core/internal/logger"
)

var aptosLogger = logger.GetForComponent("aptos_client")

var ErrInvalidAddress = errors.New("invalid Aptos address")
var ErrUnexpectedViewResult = errors.New("unexpected view function result")

// Source names used in warnings.
const (
	SourceNativeBalance = "native_balance"
	SourceResources     = "account_resources"
)

// AptosClient talks to one fullnode.
type AptosClient struct {
	client  *http.Client
	baseURL string
}

// NewAptosClient returns a client for the fullnode at baseURL, e.g. https://fullnode.mainnet.aptoslabs.com.
func NewAptosClient(client *http.Client, baseURL string) *AptosClient {
	return &AptosClient{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// ViewRequest is the body of POST /v1/view.
type ViewRequest struct {
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []any    `json:"arguments"`
}

// AccountResource is one entry of GET /v1/accounts/{address}/resources.
type AccountResource struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// coinStoreData is the data of a 0x1::coin::CoinStore resource.
type coinStoreData struct {
	Coin struct {
		Value string `json:"value"`
	} `json:"coin"`
	Frozen bool `json:"frozen"`
}

// RawCoinBalance is a nonzero legacy coin balance in base units.
type RawCoinBalance struct {
	CoinType  string
	RawAmount string
}

// AccountInfo is the response of GET /v1/accounts/{address}.
type AccountInfo struct {
	SequenceNumber    string `json:"sequence_number"`
	AuthenticationKey string `json:"authentication_key"`
}

// ValidateAddress checks that address is a 0x-prefixed hex string of at most 64 digits.
func ValidateAddress(address string) error {
	if !strings.HasPrefix(address, "0x") {
		return fmt.Errorf("%w: %q must start with 0x", ErrInvalidAddress, address)
	}
	hexPart := address[2:]
	if len(hexPart) == 0 || len(hexPart) > 64 {
		return fmt.Errorf("%w: %q has invalid length", ErrInvalidAddress, address)
	}
	for _, c := range hexPart {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return fmt.Errorf("%w: %q is not hex", ErrInvalidAddress, address)
		}
	}
	return nil
}

// View calls a Move view function and returns its raw results.
func (c *AptosClient) View(ctx context.Context, req ViewRequest) ([]json.RawMessage, error) {
	if req.TypeArguments == nil {
		req.TypeArguments = []string{}
	}
	if req.Arguments == nil {
		req.Arguments = []any{}
	}
	var out []json.RawMessage
	if err := postJSON(ctx, c.client, c.baseURL+"/v1/view", req, &out); err != nil {
		return nil, fmt.Errorf("view %s failed: %w", req.Function, err)
	}
	return out, nil
}

// NativeBalance returns the APT balance of address in octas.
func (c *AptosClient) NativeBalance(ctx context.Context, address string) Result[string] {
	out, err := c.View(ctx, ViewRequest{
		Function:      "0x1::coin::balance",
		TypeArguments: []string{config.AptosCoinType},
		Arguments:     []any{address},
	})
	if err != nil {
		aptosLogger.Error().Err(err).Str("address", address).Msg("Failed to fetch native balance")
		return Fail[string](SourceNativeBalance, err)
	}
	if len(out) == 0 {
		return Fail[string](SourceNativeBalance, fmt.Errorf("%w: empty balance result", ErrUnexpectedViewResult))
	}
	var octas string
	if err := json.Unmarshal(out[0], &octas); err != nil {
		return Fail[string](SourceNativeBalance, fmt.Errorf("%w: %w", ErrUnexpectedViewResult, err))
	}
	return Ok(SourceNativeBalance, octas)
}

// Resources returns every resource stored under address.
func (c *AptosClient) Resources(ctx context.Context, address string) ([]AccountResource, error) {
	endpoint := fmt.Sprintf("%s/v1/accounts/%s/resources?limit=9999", c.baseURL, url.PathEscape(address))
	var resources []AccountResource
	if err := getJSON(ctx, c.client, endpoint, nil, &resources); err != nil {
		return nil, err
	}
	return resources, nil
}

// CoinBalances returns the nonzero legacy coin balances of address, excluding APT.
func (c *AptosClient) CoinBalances(ctx context.Context, address string) Result[[]RawCoinBalance] {
	resources, err := c.Resources(ctx, address)
	if err != nil {
		aptosLogger.Error().Err(err).Str("address", address).Msg("Failed to fetch account resources")
		return Fail[[]RawCoinBalance](SourceResources, err)
	}
	return Ok(SourceResources, CoinBalancesFromResources(resources))
}

// CoinBalancesFromResources filters CoinStore resources, skipping APT and zero balances.
func CoinBalancesFromResources(resources []AccountResource) []RawCoinBalance {
	var balances []RawCoinBalance
	for _, resource := range resources {
		if !strings.HasPrefix(resource.Type, CoinStorePrefix) {
			continue
		}
		coinType, ok := ExtractCoinType(resource.Type)
		if !ok || coinType == config.AptosCoinType {
			continue
		}
		var data coinStoreData
		if err := json.Unmarshal(resource.Data, &data); err != nil {
			aptosLogger.Warn().Err(err).Str("coinType", coinType).Msg("Skipping undecodable CoinStore")
			continue
		}
		if isZeroAmount(data.Coin.Value) {
			continue
		}
		balances = append(balances, RawCoinBalance{CoinType: coinType, RawAmount: data.Coin.Value})
	}
	return balances
}

// Transaction returns a transaction by hash as raw JSON.
func (c *AptosClient) Transaction(ctx context.Context, hash string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/v1/transactions/by_hash/%s", c.baseURL, url.PathEscape(hash))
	var txn json.RawMessage
	if err := getJSON(ctx, c.client, endpoint, nil, &txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// Account returns the sequence number and authentication key of address.
func (c *AptosClient) Account(ctx context.Context, address string) (AccountInfo, error) {
	endpoint := fmt.Sprintf("%s/v1/accounts/%s", c.baseURL, url.PathEscape(address))
	var info AccountInfo
	if err := getJSON(ctx, c.client, endpoint, nil, &info); err != nil {
		return AccountInfo{}, err
	}
	return info, nil
}

// EstimateGasPrice returns the node's gas unit price estimate.
func (c *AptosClient) EstimateGasPrice(ctx context.Context) (uint64, error) {
	var estimate struct {
		GasEstimate uint64 `json:"gas_estimate"`
	}
	if err := getJSON(ctx, c.client, c.baseURL+"/v1/estimate_gas_price", nil, &estimate); err != nil {
		return 0, err
	}
	return estimate.GasEstimate, nil
}

// EncodeSubmission asks the node for the BCS signing message of an unsigned transaction.
func (c *AptosClient) EncodeSubmission(ctx context.Context, txn any) (string, error) {
	var signingMessage string
	if err := postJSON(ctx, c.client, c.baseURL+"/v1/transactions/encode_submission", txn, &signingMessage); err != nil {
		return "", err
	}
	return signingMessage, nil
}

// SubmitTransaction submits a signed transaction and returns its hash.
func (c *AptosClient) SubmitTransaction(ctx context.Context, signed any) (string, error) {
	var pending struct {
		Hash string `json:"hash"`
	}
	if err := postJSON(ctx, c.client, c.baseURL+"/v1/transactions", signed, &pending); err != nil {
		return "", err
	}
	if pending.Hash == "" {
		return "", fmt.Errorf("%w: submission returned no hash", ErrEmptyResponse)
	}
	return pending.Hash, nil
}

func isZeroAmount(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err == nil {
		return v == 0
	}
	return strings.Trim(raw, "0") == ""
}
