package datafetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aptomizer/core/internal/config"
	"github.com/aptomizer/core/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usdcCoinType = "0x5e156f1207d0ebfa19a9eeff00d62a282278fb8719f4fab3a586a0a2c0fffbea::coin::T"

func tokenListServer(t *testing.T, list []types.TokenInfo, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(list))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractCoinType(t *testing.T) {
	tests := []struct {
		resourceType string
		want         string
		ok           bool
	}{
		{"0x1::coin::CoinStore<0x1::aptos_coin::AptosCoin>", "0x1::aptos_coin::AptosCoin", true},
		{"0x1::coin::CoinStore<0xabc::lp::LP<0x1::aptos_coin::AptosCoin, 0xdef::usdc::USDC>>", "0xabc::lp::LP<0x1::aptos_coin::AptosCoin, 0xdef::usdc::USDC>", true},
		{"0x1::account::Account", "", false},
		{"0x1::coin::CoinStore<>", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.resourceType, func(t *testing.T) {
			got, ok := ExtractCoinType(tt.resourceType)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSymbolFromCoinType(t *testing.T) {
	assert.Equal(t, "APT", SymbolFromCoinType(config.AptosCoinType))
	assert.Equal(t, "USDC", SymbolFromCoinType(usdcCoinType))
	assert.Equal(t, "MOJO", SymbolFromCoinType("0x881ac202b1f1e6ad4efcff7a1d0579411533f2502417a19211cfc49751ddb5f4::coin::MOJO"))
	assert.Equal(t, "TOKEN", SymbolFromCoinType("0xdead::module::token"))
	assert.Equal(t, "token", SimplifyTokenName("0xdead::module::token"))
}

func TestTokenIndexResolve(t *testing.T) {
	idx := NewTokenIndex([]types.TokenInfo{
		{TokenAddress: usdcCoinType, FAAddress: "0xbae207", Name: "USD Coin (LayerZero)", Symbol: "zUSDC", Decimals: 6, LogoURL: "https://logo/usdc.png"},
		{TokenAddress: "0xfeed::coin::NOLOGO", Name: "No Logo", Symbol: "USDT", Decimals: 6},
	})

	t.Run("listed by coin type", func(t *testing.T) {
		token := idx.Resolve(usdcCoinType)
		assert.True(t, token.Resolved)
		assert.Equal(t, "zUSDC", token.Symbol)
		assert.Equal(t, 6, token.Decimals)
	})

	t.Run("listed by fungible asset address", func(t *testing.T) {
		assert.Equal(t, "zUSDC", idx.Resolve("0xbae207").Symbol)
	})

	t.Run("listed without logo uses fallback", func(t *testing.T) {
		assert.Equal(t, config.LogoFallbacks["USDT"], idx.Resolve("0xfeed::coin::NOLOGO").LogoURL)
	})

	t.Run("unknown coin type never fails", func(t *testing.T) {
		token := idx.Resolve("0x123::weird_module::Wobble")
		assert.False(t, token.Resolved)
		assert.Equal(t, "WOBBLE", token.Symbol)
		assert.Equal(t, "Wobble", token.Name)
		assert.Equal(t, 8, token.Decimals)
		assert.Empty(t, token.LogoURL)
	})

	t.Run("by symbol", func(t *testing.T) {
		token := idx.ResolveBySymbolOrAddress("zusdc")
		assert.Equal(t, usdcCoinType, token.TokenAddress)
		assert.Equal(t, "BTC", idx.ResolveBySymbolOrAddress("btc").Symbol)
	})
}

func TestNativeToken(t *testing.T) {
	token := NewTokenIndex(nil).NativeToken()
	assert.Equal(t, "Aptos Coin", token.Name)
	assert.Equal(t, "APT", token.Symbol)
	assert.Equal(t, 8, token.Decimals)
	assert.Equal(t, config.LogoFallbacks["APT"], token.LogoURL)

	listed := NewTokenIndex([]types.TokenInfo{{TokenAddress: "0xa", Symbol: "APT", LogoURL: "https://listed/apt.svg"}}).NativeToken()
	assert.Equal(t, "https://listed/apt.svg", listed.LogoURL)
}

func TestTokenResolverCachesList(t *testing.T) {
	var hits atomic.Int32
	srv := tokenListServer(t, []types.TokenInfo{{TokenAddress: usdcCoinType, Symbol: "USDC", Decimals: 6}}, &hits)

	resolver, err := NewTokenResolver(srv.Client(), srv.URL, time.Minute)
	require.NoError(t, err)
	defer resolver.Close()

	first := resolver.FetchTokenList(context.Background())
	require.True(t, first.OK())
	second := resolver.FetchTokenList(context.Background())
	require.True(t, second.OK())

	assert.Len(t, second.Value, 1)
	assert.Equal(t, int32(1), hits.Load())
}

func TestTokenResolverFailureFallsBackToEmptyIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	resolver, err := NewTokenResolver(srv.Client(), srv.URL, time.Minute)
	require.NoError(t, err)
	defer resolver.Close()

	var warnings Warnings
	idx := resolver.Index(context.Background(), &warnings)

	assert.Zero(t, idx.Len())
	assert.Equal(t, "USDC", idx.Resolve(usdcCoinType).Symbol)
	require.Len(t, warnings.List(), 1)
	assert.Contains(t, warnings.List()[0], SourceTokenList)
}
