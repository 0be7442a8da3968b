/*
This file reads Joule lending positions through a Move view function.

The view result comes in two shapes: a positions_map wrapping every position of
the user, or a single position body. Both are decoded into the
LendingPositionRecord union here and flattened into legs before returning.
*/

package datafetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aptomizer/core/internal/logger"
	"github.com/aptomizer/core/internal/types"
)

var positionLogger = logger.GetForComponent("joule_positions")

var ErrUnknownPositionShape = errors.New("unknown lending position shape")

// SourceJoulePositions names the positions dependency in warnings.
const SourceJoulePositions = "joule_positions"

// ViewCaller calls Move view functions.
type ViewCaller interface {
	View(ctx context.Context, req ViewRequest) ([]json.RawMessage, error)
}

// JoulePositionsClient reads positions through a view function such as
// "<joule>::pool::user_positions_map".
type JoulePositionsClient struct {
	view     ViewCaller
	function string
}

// NewJoulePositionsClient returns a positions reader calling function.
func NewJoulePositionsClient(view ViewCaller, function string) *JoulePositionsClient {
	return &JoulePositionsClient{view: view, function: function}
}

// Positions returns the lend and borrow legs of address.
func (j *JoulePositionsClient) Positions(ctx context.Context, address string) Result[[]types.RawLendingLeg] {
	out, err := j.view.View(ctx, ViewRequest{Function: j.function, Arguments: []any{address}})
	if err != nil {
		positionLogger.Error().Err(err).Str("address", address).Msg("Failed to fetch Joule positions")
		return Fail[[]types.RawLendingLeg](SourceJoulePositions, err)
	}

	legs, err := LegsFromViewResult(out)
	if err != nil {
		positionLogger.Error().Err(err).Str("address", address).Msg("Failed to parse Joule positions")
		return Fail[[]types.RawLendingLeg](SourceJoulePositions, err)
	}
	return Ok(SourceJoulePositions, legs)
}

// LegsFromViewResult decodes every record of a view result and flattens them.
// Nested arrays are walked, since some view functions wrap records in a vector.
func LegsFromViewResult(out []json.RawMessage) ([]types.RawLendingLeg, error) {
	var legs []types.RawLendingLeg
	for _, raw := range out {
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '[' {
			var nested []json.RawMessage
			if err := json.Unmarshal(raw, &nested); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrUnknownPositionShape, err)
			}
			nestedLegs, err := LegsFromViewResult(nested)
			if err != nil {
				return nil, err
			}
			legs = append(legs, nestedLegs...)
			continue
		}
		record, err := ParseLendingPositionRecord(raw)
		if err != nil {
			return nil, err
		}
		legs = append(legs, record.Legs()...)
	}
	return legs, nil
}

// ParseLendingPositionRecord discriminates between the map and legacy shapes.
func ParseLendingPositionRecord(raw json.RawMessage) (types.LendingPositionRecord, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return types.LendingPositionRecord{}, fmt.Errorf("%w: %w", ErrUnknownPositionShape, err)
	}

	if _, ok := probe["positions_map"]; ok {
		var m types.MapPosition
		if err := json.Unmarshal(raw, &m); err != nil {
			return types.LendingPositionRecord{}, fmt.Errorf("%w: map shape: %w", ErrUnknownPositionShape, err)
		}
		return types.LendingPositionRecord{Shape: types.ShapeMap, Map: &m}, nil
	}

	_, hasLend := probe["lend_positions"]
	_, hasBorrow := probe["borrow_positions"]
	if hasLend || hasBorrow {
		var l types.LegacyPosition
		if err := json.Unmarshal(raw, &l); err != nil {
			return types.LendingPositionRecord{}, fmt.Errorf("%w: legacy shape: %w", ErrUnknownPositionShape, err)
		}
		return types.LendingPositionRecord{Shape: types.ShapeLegacy, Legacy: &l}, nil
	}

	return types.LendingPositionRecord{}, ErrUnknownPositionShape
}
