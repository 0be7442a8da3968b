package config

// AptosCoinType is the coin type of the native APT coin.
const AptosCoinType = "0x1::aptos_coin::AptosCoin"

// AptosDecimals is the number of decimals of APT (1 APT = 1e8 octas).
const AptosDecimals = 8

// DefaultTokenDecimals is assumed for tokens missing from the token list.
const DefaultTokenDecimals = 8

// KnownCoinSymbols maps well-known coin types to their symbol when the token list misses them.
var KnownCoinSymbols = map[string]string{
	AptosCoinType: "APT",
	"0x5e156f1207d0ebfa19a9eeff00d62a282278fb8719f4fab3a586a0a2c0fffbea::coin::T":    "USDC",
	"0xf22bede237a07e121b56d91a491eb7bcdfd1f5907926a9e58338f964a01b17fa::asset::USDT": "USDT",
}

// LogoFallbacks maps symbols to a logo used when the token list has none.
var LogoFallbacks = map[string]string{
	"APT":  "https://raw.githubusercontent.com/hippospace/aptos-coin-list/main/icons/APT.webp",
	"BTC":  "https://assets.coingecko.com/coins/images/1/large/bitcoin.png",
	"ETH":  "https://assets.coingecko.com/coins/images/279/large/ethereum.png",
	"USDC": "https://assets.coingecko.com/coins/images/6319/large/USD_Coin_icon.png",
	"USDT": "https://assets.coingecko.com/coins/images/325/large/Tether.png",
	"DAI":  "https://assets.coingecko.com/coins/images/9956/large/dai-multi-collateral-mcd.png",
}
