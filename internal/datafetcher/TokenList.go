/*
This file resolves Aptos coin types into token metadata.

The Panora token list is the primary source. It is fetched over HTTP and kept in an
in-memory ristretto cache for a short TTL. Resolution itself never fails: tokens the
list does not know about get symbol, name and decimals derived from the coin type.
*/

package datafetcher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aptomizer/core/internal/config"
	"github.com/aptomizer/core/internal/logger"
	"github.com/aptomizer/core/internal/types"
	"github.com/dgraph-io/ristretto"
)

var tokenLogger = logger.GetForComponent("token_resolver")

// SourceTokenList names the token list dependency in warnings.
const SourceTokenList = "token_list"

// TokenResolver fetches and caches the token list.
type TokenResolver struct {
	client *http.Client
	url    string
	ttl    time.Duration
	cache  *ristretto.Cache
}

// NewTokenResolver creates a resolver for the token list at url. A ttl of zero disables caching.
func NewTokenResolver(client *http.Client, url string, ttl time.Duration) (*TokenResolver, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100,
		MaxCost:     10,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token list cache: %w", err)
	}
	return &TokenResolver{client: client, url: url, ttl: ttl, cache: cache}, nil
}

// Close releases the cache.
func (r *TokenResolver) Close() {
	r.cache.Close()
}

// FetchTokenList returns the token list, from cache when fresh.
func (r *TokenResolver) FetchTokenList(ctx context.Context) Result[[]types.TokenInfo] {
	if cached, ok := r.cache.Get(r.url); ok {
		if list, ok := cached.([]types.TokenInfo); ok {
			return Ok(SourceTokenList, list)
		}
	}

	var list []types.TokenInfo
	if err := getJSON(ctx, r.client, r.url, nil, &list); err != nil {
		tokenLogger.Error().Err(err).Str("url", r.url).Msg("Failed to fetch token list")
		return Fail[[]types.TokenInfo](SourceTokenList, err)
	}

	tokenLogger.Debug().Int("tokens", len(list)).Msg("Fetched token list")

	if r.ttl > 0 {
		r.cache.SetWithTTL(r.url, list, 1, r.ttl)
		r.cache.Wait()
	}
	return Ok(SourceTokenList, list)
}

// Index fetches the token list and indexes it. A failed fetch yields an empty
// index, so every lookup falls back to coin type heuristics.
func (r *TokenResolver) Index(ctx context.Context, warnings *Warnings) *TokenIndex {
	return NewTokenIndex(Fold(r.FetchTokenList(ctx), nil, warnings))
}

// TokenIndex is an immutable lookup table over one fetched token list.
type TokenIndex struct {
	byAddress map[string]types.TokenInfo
	bySymbol  map[string]types.TokenInfo
}

// NewTokenIndex indexes list by token address, fungible asset address and symbol.
// The first entry wins when addresses or symbols repeat.
func NewTokenIndex(list []types.TokenInfo) *TokenIndex {
	idx := &TokenIndex{
		byAddress: make(map[string]types.TokenInfo, len(list)*2),
		bySymbol:  make(map[string]types.TokenInfo, len(list)),
	}
	for _, token := range list {
		token.Resolved = true
		if token.TokenAddress != "" {
			if _, exists := idx.byAddress[token.TokenAddress]; !exists {
				idx.byAddress[token.TokenAddress] = token
			}
		}
		if token.FAAddress != "" {
			if _, exists := idx.byAddress[token.FAAddress]; !exists {
				idx.byAddress[token.FAAddress] = token
			}
		}
		symbol := strings.ToUpper(token.Symbol)
		if symbol != "" {
			if _, exists := idx.bySymbol[symbol]; !exists {
				idx.bySymbol[symbol] = token
			}
		}
	}
	return idx
}

// Len returns the number of indexed addresses.
func (i *TokenIndex) Len() int {
	return len(i.byAddress)
}

// Resolve returns metadata for a coin type or asset address. It never fails:
// unknown tokens get a derived symbol and name and DefaultTokenDecimals.
func (i *TokenIndex) Resolve(coinType string) types.TokenInfo {
	if token, ok := i.byAddress[coinType]; ok {
		if token.Symbol == "" {
			token.Symbol = SymbolFromCoinType(coinType)
		}
		if token.Name == "" {
			token.Name = SimplifyTokenName(coinType)
		}
		if token.Decimals <= 0 {
			token.Decimals = config.DefaultTokenDecimals
		}
		if token.LogoURL == "" {
			token.LogoURL = LogoFallback(token.Symbol)
		}
		return token
	}

	symbol := SymbolFromCoinType(coinType)
	return types.TokenInfo{
		TokenAddress: coinType,
		Name:         SimplifyTokenName(coinType),
		Symbol:       symbol,
		Decimals:     config.DefaultTokenDecimals,
		LogoURL:      LogoFallback(symbol),
	}
}

// BySymbol looks a token up by symbol, case-insensitively.
func (i *TokenIndex) BySymbol(symbol string) (types.TokenInfo, bool) {
	token, ok := i.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	return token, ok
}

// ResolveBySymbolOrAddress accepts either a symbol ("usdc") or a coin type / asset address.
func (i *TokenIndex) ResolveBySymbolOrAddress(query string) types.TokenInfo {
	query = strings.TrimSpace(query)
	if strings.HasPrefix(query, "0x") {
		return i.Resolve(query)
	}
	if token, ok := i.BySymbol(query); ok {
		return i.Resolve(addressOf(token))
	}
	symbol := strings.ToUpper(query)
	return types.TokenInfo{Symbol: symbol, Name: query, Decimals: config.DefaultTokenDecimals, LogoURL: LogoFallback(symbol)}
}

// NativeToken returns the metadata of APT, preferring the token list logo.
func (i *TokenIndex) NativeToken() types.TokenInfo {
	token := i.Resolve(config.AptosCoinType)
	token.Name = "Aptos Coin"
	token.Symbol = "APT"
	token.Decimals = config.AptosDecimals
	if listed, ok := i.BySymbol("APT"); ok && listed.LogoURL != "" {
		token.LogoURL = listed.LogoURL
	} else if token.LogoURL == "" {
		token.LogoURL = LogoFallback("APT")
	}
	return token
}

func addressOf(token types.TokenInfo) string {
	if token.TokenAddress != "" {
		return token.TokenAddress
	}
	return token.FAAddress
}
