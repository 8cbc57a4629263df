package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"roulette_service/internal/bonus"
)

type Role string

const (
	RoleUser       Role = "user"
	RoleAffiliate  Role = "affiliate"
	RoleInfluencer Role = "influencer"
	RoleAdmin      Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAffiliate, RoleInfluencer, RoleAdmin:
		return true
	}
	return false
}

type Account struct {
	UserID            string          `gorm:"column:user_id;primaryKey;type:uuid"`
	Username          string          `gorm:"column:username;type:varchar(50);not null;uniqueIndex"`
	PasswordHash      string          `gorm:"column:password_hash;type:varchar(100);not null"`
	Avatar            string          `gorm:"column:avatar;type:varchar(255);not null;default:''"`
	Role              Role            `gorm:"column:role;type:varchar(20);not null;default:'user'"`
	AffiliateID       *string         `gorm:"column:affiliate_id;type:uuid;index"`
	RealBalance       decimal.Decimal `gorm:"column:real_balance;type:numeric(20,2);not null;default:0"`
	BonusBalance      decimal.Decimal `gorm:"column:bonus_balance;type:numeric(20,2);not null;default:0"`
	CommissionBalance decimal.Decimal `gorm:"column:commission_balance;type:numeric(20,2);not null;default:0"`
	WageringTarget    decimal.Decimal `gorm:"column:wagering_target;type:numeric(20,2);not null;default:0"`
	WageringProgress  decimal.Decimal `gorm:"column:wagering_progress;type:numeric(20,2);not null;default:0"`
	HasGeneratedCPA   bool            `gorm:"column:has_generated_cpa;not null;default:false"`
	Version           int             `gorm:"column:version;not null;default:1"`
	CreatedAt         time.Time       `gorm:"column:created_at;not null;default:now()"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;not null;default:now()"`
}

func (a *Account) Ledger() bonus.Ledger {
	return bonus.Ledger{
		Real:     a.RealBalance,
		Bonus:    a.BonusBalance,
		Target:   a.WageringTarget,
		Progress: a.WageringProgress,
	}
}

func (a *Account) SetLedger(l bonus.Ledger) {
	a.RealBalance = l.Real
	a.BonusBalance = l.Bonus
	a.WageringTarget = l.Target
	a.WageringProgress = l.Progress
}

const (
	TransactionDeposit    = "DEPOSIT"
	TransactionWithdrawal = "WITHDRAWAL"
)

// InitiatedBySelf marks a withdrawal requested by the account owner.
const InitiatedBySelf = "USER"

type FinancialTransaction struct {
	TransactionID   string          `gorm:"column:transaction_id;primaryKey;type:uuid"`
	UserID          string          `gorm:"column:user_id;type:uuid;not null;index"`
	Username        string          `gorm:"column:username;type:varchar(50);not null"`
	TransactionType string          `gorm:"column:transaction_type;type:varchar(20);not null"` // "DEPOSIT", "WITHDRAWAL"
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(20,2);not null"`
	BalanceBefore   decimal.Decimal `gorm:"column:balance_before;type:numeric(20,2);not null"`
	BalanceAfter    decimal.Decimal `gorm:"column:balance_after;type:numeric(20,2);not null"`
	BonusGranted    decimal.Decimal `gorm:"column:bonus_granted;type:numeric(20,2);not null;default:0"`
	InitiatedBy     string          `gorm:"column:initiated_by;type:varchar(64);not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;not null;default:now()"`
}

type TransactionRequest struct {
	UserID          string          `json:"userId"`
	TransactionType string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	AddBonus        bool            `json:"addBonus"`
	InitiatedBy     string          `json:"-"`
}

type TransactionResponse struct {
	TransactionID   string          `json:"transactionId"`
	NewBalance      decimal.Decimal `json:"newBalance"`
	NewBonusBalance decimal.Decimal `json:"newBonusBalance"`
}

type BalanceView struct {
	RealBalance       decimal.Decimal `json:"balance"`
	BonusBalance      decimal.Decimal `json:"bonusBalance"`
	CommissionBalance decimal.Decimal `json:"commissionBalance"`
	WageringProgress  decimal.Decimal `json:"wageringProgress"`
	WageringTarget    decimal.Decimal `json:"wageringTarget"`
	PercentComplete   float64         `json:"percentComplete"`
}

// ValidID reports whether id can name an account. Account ids are UUIDs, and
// Postgres rejects anything else in a uuid column rather than matching nothing.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
