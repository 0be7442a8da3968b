/*

Portfolio types returned by the portfolio endpoint and the getPortfolio chat tool.

A snapshot is rebuilt on every request and never persisted.

*/

package types

// Health labels used on strategies and positions.
const (
	HealthHealthy = "Healthy"
	HealthWarning = "Warning"
	HealthDanger  = "Danger"
	HealthNeutral = "Neutral"
)

// Strategy sides.
const (
	SideLend   = "lend"
	SideBorrow = "borrow"
)

// Asset is a held token balance valued in USD.
type Asset struct {
	Name      string   `json:"name"`
	Symbol    string   `json:"symbol"`
	CoinType  string   `json:"coinType"`
	Balance   float64  `json:"balance"`   // decimal adjusted quantity
	Value     float64  `json:"value"`     // Balance * PriceUSD
	PriceUSD  float64  `json:"priceUsd"`  // 0 when the price lookup failed
	Change24h *float64 `json:"change24h"` // always null, no price history is kept
	APY       *float64 `json:"apy"`       // always null for idle balances
	LogoURL   string   `json:"logoUrl"`
}

// NewAsset builds an Asset whose value is derived from balance and price together.
func NewAsset(token TokenInfo, balance, priceUSD float64, logoURL string) Asset {
	return Asset{
		Name:     token.Name,
		Symbol:   token.Symbol,
		CoinType: token.TokenAddress,
		Balance:  balance,
		Value:    balance * priceUSD,
		PriceUSD: priceUSD,
		LogoURL:  logoURL,
	}
}

// Strategy is one leg (lend or borrow) of a lending protocol position.
type Strategy struct {
	Name         string  `json:"name"`
	Protocol     string  `json:"protocol"`
	PositionID   string  `json:"positionId"`
	TokenAddress string  `json:"tokenAddress"`
	Side         string  `json:"side"`
	Balance      float64 `json:"balance"`
	Value        float64 `json:"value"`
	APY          float64 `json:"apy"`      // positive for lending, negative for the cost of borrowing
	TimeLeft     *string `json:"timeLeft"` // always null for open-ended lending
	Health       string  `json:"health"`
}

// PortfolioSnapshot is the aggregated view of an AI wallet.
//
// TotalValue only counts idle asset balances. Lending positions are reported
// separately in PositionsValue, and NetWorth is the sum of both.
type PortfolioSnapshot struct {
	AIWalletAddress string         `json:"aiWalletAddress"`
	TotalValue      float64        `json:"totalValue"`
	PositionsValue  float64        `json:"positionsValue"`
	NetWorth        float64        `json:"netWorth"`
	Change24h       *float64       `json:"change24h"`
	Change7d        *float64       `json:"change7d"`
	Change30d       *float64       `json:"change30d"`
	RiskScore       int            `json:"riskScore"`
	Assets          []Asset        `json:"assets"`
	Strategies      []Strategy     `json:"strategies"`
	Positions       []UserPosition `json:"positions"`
	Warnings        []string       `json:"warnings,omitempty"`
}
