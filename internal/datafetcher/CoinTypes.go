package datafetcher

import (
	"strings"

	"github.com/aptomizer/core/internal/config"
)

// CoinStorePrefix is the resource type prefix of legacy coin balances.
const CoinStorePrefix = "0x1::coin::CoinStore<"

// ExtractCoinType returns the type parameter of a resource type such as
// "0x1::coin::CoinStore<0x1::aptos_coin::AptosCoin>". It matches the outermost
// angle brackets, so nested generics are kept whole.
func ExtractCoinType(resourceType string) (string, bool) {
	open := strings.IndexByte(resourceType, '<')
	end := strings.LastIndexByte(resourceType, '>')
	if open < 0 || end <= open+1 {
		return "", false
	}
	return strings.TrimSpace(resourceType[open+1 : end]), true
}

// SimplifyTokenName returns the last "::" segment of a type path.
func SimplifyTokenName(coinType string) string {
	parts := strings.Split(coinType, "::")
	return parts[len(parts)-1]
}

// SymbolFromCoinType derives a symbol from a well-known coin type, else the
// uppercased last "::" segment.
func SymbolFromCoinType(coinType string) string {
	if symbol, ok := config.KnownCoinSymbols[coinType]; ok {
		return symbol
	}
	return strings.ToUpper(SimplifyTokenName(coinType))
}

// LogoFallback returns a known logo for symbol, or "".
func LogoFallback(symbol string) string {
	return config.LogoFallbacks[strings.ToUpper(symbol)]
}
