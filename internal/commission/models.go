package commission

import (
	"time"

	"github.com/shopspring/decimal"

	"roulette_service/internal/wallet"
)

type TransactionType string

const (
	TypeCPA      TransactionType = "CPA"
	TypeNGR      TransactionType = "NGR"
	TypeNGRDebit TransactionType = "NGR_DEBIT"
)

// Transaction is an immutable audit record of one cascade effect. Amount is
// always positive; Type decides the sign applied to the partner's balance.
type Transaction struct {
	TransactionID      string          `gorm:"column:transaction_id;primaryKey;type:uuid" json:"transactionId"`
	RecipientID        string          `gorm:"column:recipient_id;type:uuid;not null;index" json:"recipientId"`
	SourceUserID       string          `gorm:"column:source_user_id;type:uuid;not null" json:"sourceUserId"`
	SourceUsername     string          `gorm:"column:source_username;type:varchar(50);not null" json:"sourceUsername"`
	Type               TransactionType `gorm:"column:type;type:varchar(20);not null" json:"type"`
	Amount             decimal.Decimal `gorm:"column:amount;type:numeric(20,4);not null" json:"amount"`
	SourceBetAmount    decimal.Decimal `gorm:"column:source_bet_amount;type:numeric(20,2);not null" json:"sourceBetAmount"`
	SourcePlayerProfit decimal.Decimal `gorm:"column:source_player_profit;type:numeric(20,2);not null;default:0" json:"sourcePlayerProfit"`
	CreatedAt          time.Time       `gorm:"column:created_at;not null;default:now()" json:"createdAt"`
}

func (Transaction) TableName() string {
	return "commission_transactions"
}

// Delta is the signed change this record makes to the recipient's balance.
func (t Transaction) Delta() decimal.Decimal {
	if t.Type == TypeNGRDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

type PartnerKind string

const (
	PartnerAffiliate  PartnerKind = "affiliate"
	PartnerInfluencer PartnerKind = "influencer"
	PartnerAdmin      PartnerKind = "admin"
)

// Partner is the referring account of a bettor, tagged by what the cascade
// may do to it.
type Partner struct {
	ID       string
	Username string
	Kind     PartnerKind
}

func PartnerOf(a *wallet.Account) Partner {
	p := Partner{ID: a.UserID, Username: a.Username}
	switch a.Role {
	case wallet.RoleInfluencer:
		p.Kind = PartnerInfluencer
	case wallet.RoleAdmin:
		p.Kind = PartnerAdmin
	default:
		p.Kind = PartnerAffiliate
	}
	return p
}

// Bet is the settled wager the cascade reacts to.
type Bet struct {
	BettorID       string
	BettorUsername string
	Stake          decimal.Decimal
	Winnings       decimal.Decimal
	IsWin          bool
	// CPAAlreadyPaid is the bettor's flag as read before this settlement.
	CPAAlreadyPaid bool
}

type Rates struct {
	CPA     decimal.Decimal
	NGRWin  decimal.Decimal
	NGRLoss decimal.Decimal
}

type Dashboard struct {
	ReferralCode      string          `json:"referralCode"`
	CommissionBalance decimal.Decimal `json:"commissionBalance"`
	ReferralCount     int64           `json:"referralCount"`
}
