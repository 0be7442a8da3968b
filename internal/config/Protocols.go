package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/aptomizer/core/internal/types"
	"gopkg.in/yaml.v3"
)

//go:embed protocols.yaml
var embeddedProtocols []byte

var ErrEmptyProtocolTable = errors.New("protocol table has no options")

// LoadProtocolTable returns the protocol table from path, or the embedded table when path is empty.
func LoadProtocolTable(path string) (types.ProtocolTable, error) {
	data := embeddedProtocols
	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return types.ProtocolTable{}, fmt.Errorf("failed to read protocol table %s: %w", path, err)
		}
		data = fileData
	}
	return ParseProtocolTable(data)
}

// ParseProtocolTable decodes a YAML protocol table and validates every option.
func ParseProtocolTable(data []byte) (types.ProtocolTable, error) {
	var table types.ProtocolTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return types.ProtocolTable{}, fmt.Errorf("failed to parse protocol table: %w", err)
	}

	categories := map[string][]types.ProtocolOption{
		types.CategoryLiquidStaking: table.LiquidStaking,
		types.CategoryLending:       table.Lending,
		types.CategoryLiquidity:     table.Liquidity,
		types.CategoryFarming:       table.Farming,
	}

	total := 0
	var errs []error
	for category, options := range categories {
		total += len(options)
		for _, option := range options {
			if option.Name == "" || option.Protocol == "" {
				errs = append(errs, fmt.Errorf("%s: option without name or protocol", category))
			}
			if option.APY < 0 {
				errs = append(errs, fmt.Errorf("%s/%s: negative apy %f", category, option.Name, option.APY))
			}
			if !isKnownRisk(option.Risk) {
				errs = append(errs, fmt.Errorf("%s/%s: unknown risk %q", category, option.Name, option.Risk))
			}
		}
	}
	if total == 0 {
		return types.ProtocolTable{}, ErrEmptyProtocolTable
	}
	if err := errors.Join(errs...); err != nil {
		return types.ProtocolTable{}, err
	}
	return table, nil
}

// MustDefaultProtocolTable returns the embedded table and panics if it is invalid.
func MustDefaultProtocolTable() types.ProtocolTable {
	table, err := ParseProtocolTable(embeddedProtocols)
	if err != nil {
		panic(err)
	}
	return table
}

func isKnownRisk(risk string) bool {
	switch risk {
	case types.RiskLow, types.RiskLowMedium, types.RiskMedium, types.RiskMediumHigh, types.RiskHigh:
		return true
	}
	return false
}
