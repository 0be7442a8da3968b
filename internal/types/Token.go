/*

This file contains the token metadata types used to turn raw on-chain amounts into
human readable balances. Token metadata comes from the Panora token list, with
heuristic fallbacks for anything the list does not know about.

*/

package types

// TokenInfo describes a single Aptos coin or fungible asset.
type TokenInfo struct {
	ChainID      int      `json:"chainId"`                // e.g., 1 for mainnet
	TokenAddress string   `json:"tokenAddress"`           // e.g., "0x1::aptos_coin::AptosCoin" (coin type) or an object address
	FAAddress    string   `json:"faAddress,omitempty"`    // fungible asset address paired with a coin type, if any
	Name         string   `json:"name"`                   // e.g., "Aptos Coin"
	Symbol       string   `json:"symbol"`                 // e.g., "APT"
	Decimals     int      `json:"decimals"`               // e.g., 8 = 100000000 raw units per token
	LogoURL      string   `json:"logoUrl"`                // may be empty
	PanoraSymbol string   `json:"panoraSymbol,omitempty"` // symbol used by the Panora aggregator
	PanoraTags   []string `json:"panoraTags,omitempty"`   // e.g., ["Verified", "Native"]

	// Resolved reports whether the info came from the token list (true) or from fallbacks (false).
	Resolved bool `json:"-"`
}

// TokenPrice is a live USD quote for a token symbol.
type TokenPrice struct {
	Symbol string  `json:"symbol"`
	FeedID string  `json:"feedId,omitempty"`
	Price  float64 `json:"price"`
}
