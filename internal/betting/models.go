package betting

import (
	"time"

	"github.com/shopspring/decimal"

	"roulette_service/internal/round"
)

type BetType string

const (
	BetTypeColor  BetType = "COLOR"
	BetTypeParity BetType = "PARITY"
)

type Wager struct {
	// BetID is an optional client key; a repeated id for one user is rejected.
	BetID    string          `json:"betId"`
	BetType  BetType         `json:"betType"`
	BetValue string          `json:"betValue"`
	Amount   decimal.Decimal `json:"amount"`
}

// GameLog is the private record of one settled bet.
type GameLog struct {
	LogID         string          `gorm:"column:log_id;primaryKey;type:uuid" json:"logId"`
	UserID        string          `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_game_logs_user_bet;index" json:"-"`
	ClientBetID   *string         `gorm:"column:client_bet_id;type:varchar(64);uniqueIndex:idx_game_logs_user_bet" json:"betId,omitempty"`
	BetType       BetType         `gorm:"column:bet_type;type:varchar(10);not null" json:"betType"`
	BetValue      string          `gorm:"column:bet_value;type:varchar(10);not null" json:"betValue"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(20,2);not null" json:"amount"`
	FromReal      decimal.Decimal `gorm:"column:from_real;type:numeric(20,2);not null" json:"betFromReal"`
	FromBonus     decimal.Decimal `gorm:"column:from_bonus;type:numeric(20,2);not null" json:"betFromBonus"`
	IsWin         bool            `gorm:"column:is_win;not null" json:"isWin"`
	Winnings      decimal.Decimal `gorm:"column:winnings;type:numeric(20,2);not null" json:"winnings"`
	OutcomeColor  round.Color     `gorm:"column:outcome_color;type:varchar(10);not null" json:"resultColor"`
	OutcomeNumber *int            `gorm:"column:outcome_number" json:"resultNumber"`
	CreatedAt     time.Time       `gorm:"column:created_at;not null;default:now();index" json:"createdAt"`
}

// PublicBet is the entry shown in everyone's live feed.
type PublicBet struct {
	PublicBetID string          `gorm:"column:public_bet_id;primaryKey;type:uuid" json:"-"`
	UserID      string          `gorm:"column:user_id;type:uuid;not null" json:"-"`
	Username    string          `gorm:"column:username;type:varchar(50);not null" json:"username"`
	Avatar      string          `gorm:"column:avatar;type:varchar(255);not null;default:''" json:"avatar"`
	BetValue    string          `gorm:"column:bet_value;type:varchar(10);not null" json:"betValue"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(20,2);not null" json:"amount"`
	IsWin       bool            `gorm:"column:is_win;not null" json:"isWin"`
	Winnings    decimal.Decimal `gorm:"column:winnings;type:numeric(20,2);not null" json:"winnings"`
	CreatedAt   time.Time       `gorm:"column:created_at;not null;default:now();index" json:"createdAt"`
}

type Result struct {
	IsWin            bool            `json:"isWin"`
	Winnings         decimal.Decimal `json:"winnings"`
	NewRealBalance   decimal.Decimal `json:"newRealBalance"`
	NewBonusBalance  decimal.Decimal `json:"newBonusBalance"`
	WageringProgress decimal.Decimal `json:"wageringProgress"`
	WageringTarget   decimal.Decimal `json:"wageringTarget"`
	BetFromReal      decimal.Decimal `json:"betFromReal"`
	BetFromBonus     decimal.Decimal `json:"betFromBonus"`
	RolloverComplete bool            `json:"rolloverComplete"`
	Outcome          round.Outcome   `json:"outcome"`
}
