/*
This file fetches Joule Finance lending markets from the Joule price API.
*/

package datafetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aptomizer/core/internal/logger"
	"github.com/aptomizer/core/internal/types"
)

var marketLogger = logger.GetForComponent("joule_market")

var ErrInvalidMarketData = errors.New("invalid market data structure")
var ErrMarketNotFound = errors.New("market not found")

// SourceJouleMarkets names the market API dependency in warnings.
const SourceJouleMarkets = "joule_markets"

// JouleMarketClient reads the Joule market API.
type JouleMarketClient struct {
	client *http.Client
	url    string
}

// NewJouleMarketClient returns a client for the market endpoint at url.
func NewJouleMarketClient(client *http.Client, url string) *JouleMarketClient {
	return &JouleMarketClient{client: client, url: url}
}

// Markets returns every market listed by the API.
func (j *JouleMarketClient) Markets(ctx context.Context) Result[[]types.PoolMarket] {
	var resp struct {
		Data *[]types.PoolMarket `json:"data"`
	}
	if err := getJSON(ctx, j.client, j.url, nil, &resp); err != nil {
		marketLogger.Error().Err(err).Str("url", j.url).Msg("Failed to fetch Joule markets")
		return Fail[[]types.PoolMarket](SourceJouleMarkets, err)
	}
	if resp.Data == nil {
		return Fail[[]types.PoolMarket](SourceJouleMarkets, fmt.Errorf("%w: missing data array", ErrInvalidMarketData))
	}

	marketLogger.Debug().Int("markets", len(*resp.Data)).Msg("Fetched Joule markets")
	return Ok(SourceJouleMarkets, *resp.Data)
}

// FindMarket returns the market for a coin type or asset address.
func FindMarket(markets []types.PoolMarket, tokenAddress string) (types.PoolMarket, bool) {
	for _, market := range markets {
		if market.Matches(tokenAddress) {
			return market, true
		}
	}
	return types.PoolMarket{}, false
}

// PoolDetails returns the market of one token, accepting a coin type, an asset
// address or a symbol such as "USDC".
func (j *JouleMarketClient) PoolDetails(ctx context.Context, token string) (types.PoolMarket, error) {
	markets := j.Markets(ctx)
	if !markets.OK() {
		return types.PoolMarket{}, markets.Err
	}
	return LookupPool(markets.Value, token)
}

// LookupPool finds the market of token among markets by coin type, asset
// address or case-insensitive asset name.
func LookupPool(markets []types.PoolMarket, token string) (types.PoolMarket, error) {
	if market, ok := FindMarket(markets, token); ok {
		return market, nil
	}
	for _, market := range markets {
		if market.Asset == nil {
			continue
		}
		if strings.EqualFold(market.Asset.AssetName, token) || strings.EqualFold(market.Asset.DisplayName, token) ||
			(market.Asset.FAAddress != "" && market.Asset.FAAddress == token) {
			return market, nil
		}
	}
	return types.PoolMarket{}, fmt.Errorf("%w: %s", ErrMarketNotFound, token)
}
