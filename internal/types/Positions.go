/*

Lending position types.

The lending protocol returns positions in two different JSON shapes. Both are
decoded into a LendingPositionRecord at the parsing boundary and flattened into
RawLendingLeg values right away, so no variant shape travels further than the
fetcher. UserPosition is the reconciled, priced form used by the portfolio.

*/

package types

// PositionShape discriminates the LendingPositionRecord union.
type PositionShape int

const (
	ShapeUnknown PositionShape = iota
	ShapeLegacy                // a single position body at the top level
	ShapeMap                   // a positions_map wrapping many position bodies
)

func (s PositionShape) String() string {
	switch s {
	case ShapeLegacy:
		return "legacy"
	case ShapeMap:
		return "map"
	default:
		return "unknown"
	}
}

// KeyAmount is a {key, value} entry of a Move SimpleMap, e.g. coin type -> raw amount.
type KeyAmount struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// KeyAmountTable is a Move SimpleMap of raw amounts.
type KeyAmountTable struct {
	Data []KeyAmount `json:"data"`
}

// PositionBody is the common content of one lending position.
type PositionBody struct {
	PositionName    string         `json:"position_name"`
	LendPositions   KeyAmountTable `json:"lend_positions"`
	BorrowPositions KeyAmountTable `json:"borrow_positions"`
}

// LegacyPosition is a single position returned without a surrounding map.
type LegacyPosition struct {
	PositionID string `json:"position_id"`
	PositionBody
}

// MapPosition wraps every position of a user keyed by position id.
type MapPosition struct {
	PositionsMap struct {
		Data []struct {
			Key   string       `json:"key"`
			Value PositionBody `json:"value"`
		} `json:"data"`
	} `json:"positions_map"`
}

// LendingPositionRecord is the tagged union over the two response shapes.
// Exactly one of Legacy or Map is set, as named by Shape.
type LendingPositionRecord struct {
	Shape  PositionShape
	Legacy *LegacyPosition
	Map    *MapPosition
}

// RawLendingLeg is one token amount of a lend or borrow leg, before pricing.
type RawLendingLeg struct {
	PositionID   string `json:"positionId"`
	PositionName string `json:"positionName"`
	TokenAddress string `json:"tokenAddress"`
	Side         string `json:"side"`      // SideLend or SideBorrow
	RawAmount    string `json:"rawAmount"` // integer string in the token's smallest unit
}

// Legs flattens the record into lend and borrow legs.
func (r LendingPositionRecord) Legs() []RawLendingLeg {
	var legs []RawLendingLeg
	switch r.Shape {
	case ShapeLegacy:
		if r.Legacy != nil {
			legs = appendBodyLegs(legs, r.Legacy.PositionID, r.Legacy.PositionBody)
		}
	case ShapeMap:
		if r.Map != nil {
			for _, entry := range r.Map.PositionsMap.Data {
				legs = appendBodyLegs(legs, entry.Key, entry.Value)
			}
		}
	}
	return legs
}

func appendBodyLegs(legs []RawLendingLeg, positionID string, body PositionBody) []RawLendingLeg {
	name := body.PositionName
	if name == "" {
		name = "Joule Position"
	}
	for _, lend := range body.LendPositions.Data {
		legs = append(legs, RawLendingLeg{PositionID: positionID, PositionName: name, TokenAddress: lend.Key, Side: SideLend, RawAmount: lend.Value})
	}
	for _, borrow := range body.BorrowPositions.Data {
		legs = append(legs, RawLendingLeg{PositionID: positionID, PositionName: name, TokenAddress: borrow.Key, Side: SideBorrow, RawAmount: borrow.Value})
	}
	return legs
}

// UserPosition is a lending position with both legs of one token reconciled.
type UserPosition struct {
	PositionID   string  `json:"positionId"`
	PositionName string  `json:"positionName"`
	Protocol     string  `json:"protocol"`
	TokenAddress string  `json:"tokenAddress"`
	TokenSymbol  string  `json:"tokenSymbol"`
	Supplied     float64 `json:"supplied"`
	SuppliedUSD  float64 `json:"suppliedUsd"`
	Borrowed     float64 `json:"borrowed"`
	BorrowedUSD  float64 `json:"borrowedUsd"`
	Health       float64 `json:"health"`
	HealthStatus string  `json:"healthStatus"`
}
