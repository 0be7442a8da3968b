/*

This file contains the lending market types returned by the Joule price API.

The API is loosely typed: numbers arrive either as JSON numbers or as strings, and
several fields are optional. FlexFloat records whether a field was sent at all so
the yield ranker can drop markets with missing fields. A field sent as null or as
an unparseable value counts as present with value 0.

*/

package types

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexFloat decodes a JSON number or numeric string, remembering presence.
type FlexFloat struct {
	Value float64
	Valid bool // Value was parsed from a number
	Set   bool // the field was sent, possibly as null
}

// NewFlexFloat returns a present FlexFloat.
func NewFlexFloat(v float64) FlexFloat {
	return FlexFloat{Value: v, Valid: true, Set: true}
}

// Present reports whether the field was sent.
func (f FlexFloat) Present() bool {
	return f.Set || f.Valid
}

// UnmarshalJSON implements json.Unmarshaler. It never fails: values that are
// not numbers decode as present and invalid.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	*f = FlexFloat{Set: true}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			f.Value, f.Valid = v, true
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		f.Value, f.Valid = v, true
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Or returns the value when present, else def.
func (f FlexFloat) Or(def float64) float64 {
	if f.Valid {
		return f.Value
	}
	return def
}

// PoolAsset identifies the token a lending market is for.
type PoolAsset struct {
	Type        string    `json:"type"`
	DisplayName string    `json:"displayName,omitempty"`
	AssetName   string    `json:"assetName,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	FAAddress   string    `json:"faAddress,omitempty"`
	LTV         FlexFloat `json:"ltv"` // basis points, e.g. 7000
}

// ExtraAPY holds incentive APYs on top of the base market rates, in percent.
type ExtraAPY struct {
	DepositAPY FlexFloat `json:"depositAPY"`
	BorrowAPY  FlexFloat `json:"borrowAPY"`
	StakingAPY FlexFloat `json:"stakingAPY"`
}

// PriceInfo is the oracle price attached to a market.
type PriceInfo struct {
	TokenAddress string    `json:"tokenAddress"`
	Price        FlexFloat `json:"price"`
	Currency     string    `json:"currency,omitempty"`
}

// PoolMarket is one row of the Joule market API.
type PoolMarket struct {
	Asset         *PoolAsset `json:"asset"`
	LTV           FlexFloat  `json:"ltv"` // basis points as a string, e.g. "7000"
	MarketSize    FlexFloat  `json:"marketSize"`
	TotalBorrowed FlexFloat  `json:"totalBorrowed"`
	DepositAPY    FlexFloat  `json:"depositApy"` // percent
	BorrowAPY     FlexFloat  `json:"borrowApy"`  // percent
	ExtraAPY      *ExtraAPY  `json:"extraAPY,omitempty"`
	PriceInfo     *PriceInfo `json:"priceInfo,omitempty"`
}

// ExtraDepositAPY returns the incentive deposit APY, or 0.
func (m PoolMarket) ExtraDepositAPY() float64 {
	if m.ExtraAPY == nil {
		return 0
	}
	return m.ExtraAPY.DepositAPY.Or(0)
}

// Matches reports whether the market is for the given coin type or asset address.
func (m PoolMarket) Matches(tokenAddress string) bool {
	if tokenAddress == "" {
		return false
	}
	if m.PriceInfo != nil && m.PriceInfo.TokenAddress == tokenAddress {
		return true
	}
	return m.Asset != nil && m.Asset.Type == tokenAddress
}
