package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ColorWeights are draw probabilities; they must sum to 1.
type ColorWeights struct {
	Green float64 `yaml:"green"`
	Blue  float64 `yaml:"blue"`
	Red   float64 `yaml:"red"`
}

type GameTable struct {
	BettingSeconds  int `yaml:"betting_seconds"`
	RollingSeconds  int `yaml:"rolling_seconds"`
	HistoryCapacity int `yaml:"history_capacity"`
	SeedRounds      int `yaml:"seed_rounds"`

	Weights ColorWeights               `yaml:"weights"`
	Payouts map[string]decimal.Decimal `yaml:"payouts"`

	RolloverMultiplier decimal.Decimal `yaml:"rollover_multiplier"`

	CPAValue    decimal.Decimal `yaml:"cpa_value"`
	NGRWinRate  decimal.Decimal `yaml:"ngr_win_rate"`
	NGRLossRate decimal.Decimal `yaml:"ngr_loss_rate"`
}

func DefaultGameTable() GameTable {
	return GameTable{
		BettingSeconds:  15,
		RollingSeconds:  5,
		HistoryCapacity: 50,
		SeedRounds:      10,
		Weights:         ColorWeights{Green: 0.02, Blue: 0.49, Red: 0.49},
		Payouts: map[string]decimal.Decimal{
			"RED":   decimal.NewFromInt(2),
			"BLUE":  decimal.NewFromInt(2),
			"GREEN": decimal.NewFromInt(14),
			"ODD":   decimal.NewFromInt(2),
			"EVEN":  decimal.NewFromInt(2),
		},
		RolloverMultiplier: decimal.NewFromInt(5),
		CPAValue:           decimal.RequireFromString("5.00"),
		NGRWinRate:         decimal.RequireFromString("0.03"),
		NGRLossRate:        decimal.RequireFromString("0.05"),
	}
}

// LoadGameTable overlays the YAML file at path on the defaults. An empty path
// returns the defaults.
func LoadGameTable(path string) (GameTable, error) {
	table := DefaultGameTable()
	if path == "" {
		return table, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return table, fmt.Errorf("read game table: %w", err)
	}
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return table, fmt.Errorf("parse game table: %w", err)
	}
	if err := table.Validate(); err != nil {
		return table, err
	}
	return table, nil
}

func (t GameTable) Validate() error {
	if t.BettingSeconds <= 0 || t.RollingSeconds <= 0 {
		return errors.New("phase durations must be positive")
	}
	if t.HistoryCapacity <= 0 {
		return errors.New("history_capacity must be positive")
	}
	if t.SeedRounds < 0 || t.SeedRounds > t.HistoryCapacity {
		return errors.New("seed_rounds must be within history_capacity")
	}
	w := t.Weights
	if w.Green < 0 || w.Blue < 0 || w.Red < 0 {
		return errors.New("color weights must not be negative")
	}
	if math.Abs(w.Green+w.Blue+w.Red-1) > 1e-9 {
		return fmt.Errorf("color weights sum to %v, want 1", w.Green+w.Blue+w.Red)
	}
	for _, key := range []string{"RED", "BLUE", "GREEN", "ODD", "EVEN"} {
		p, ok := t.Payouts[key]
		if !ok || !p.IsPositive() {
			return fmt.Errorf("payout for %s must be positive", key)
		}
	}
	if t.RolloverMultiplier.IsNegative() || t.CPAValue.IsNegative() ||
		t.NGRWinRate.IsNegative() || t.NGRLossRate.IsNegative() {
		return errors.New("commission and rollover values must not be negative")
	}
	return nil
}
