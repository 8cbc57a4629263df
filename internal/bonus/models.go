package bonus

import "github.com/shopspring/decimal"

// Ledger is the part of an account that rollover rules touch.
type Ledger struct {
	Real     decimal.Decimal
	Bonus    decimal.Decimal
	Target   decimal.Decimal
	Progress decimal.Decimal
}

type WageringProgress struct {
	WageringRequired   decimal.Decimal `json:"wagering_required"`
	WageringCompleted  decimal.Decimal `json:"wagering_completed"`
	PercentageComplete float64         `json:"percentage_complete"`
	Active             bool            `json:"active"`
}

// Funding is how a stake was split across the two pools.
type Funding struct {
	FromReal  decimal.Decimal
	FromBonus decimal.Decimal
}
