// Package commission pays referring partners for the bets of the users they
// brought in: a one-time CPA and, for influencers, a revenue share.
package commission

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"roulette_service/internal/apperr"
	"roulette_service/internal/wallet"
)

const StatementLimit = 500

// Plan computes the cascade effects of one settled bet for partner. The
// win and loss branches are mutually exclusive.
func Plan(p Partner, bet Bet, rates Rates) []Transaction {
	var entries []Transaction
	now := time.Now()
	entry := func(t TransactionType) Transaction {
		return Transaction{
			TransactionID:   uuid.New().String(),
			RecipientID:     p.ID,
			SourceUserID:    bet.BettorID,
			SourceUsername:  bet.BettorUsername,
			Type:            t,
			SourceBetAmount: bet.Stake,
			CreatedAt:       now,
		}
	}

	if !bet.CPAAlreadyPaid {
		cpa := entry(TypeCPA)
		cpa.Amount = rates.CPA
		entries = append(entries, cpa)
	}

	switch p.Kind {
	case PartnerInfluencer:
		if bet.IsWin {
			profit := bet.Winnings.Sub(bet.Stake)
			if profit.IsPositive() {
				debit := entry(TypeNGRDebit)
				debit.Amount = profit.Mul(rates.NGRWin)
				debit.SourcePlayerProfit = profit
				entries = append(entries, debit)
			}
		} else {
			credit := entry(TypeNGR)
			credit.Amount = bet.Stake.Mul(rates.NGRLoss)
			credit.SourcePlayerProfit = bet.Stake.Neg()
			entries = append(entries, credit)
		}
	case PartnerAffiliate, PartnerAdmin:
	}
	return entries
}

type Service struct {
	repo     Repository
	accounts wallet.AccountRepository
	rates    Rates
}

func NewService(repo Repository, accounts wallet.AccountRepository, rates Rates) *Service {
	return &Service{repo: repo, accounts: accounts, rates: rates}
}

// LoadPartner returns the bettor's referring partner, or nil when there is none.
func (s *Service) LoadPartner(ctx context.Context, bettor *wallet.Account) (*Partner, error) {
	if bettor.AffiliateID == nil || *bettor.AffiliateID == "" {
		return nil, nil
	}
	a, err := s.repo.GetPartner(ctx, *bettor.AffiliateID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPartnerCascadeFailure, "load partner", err)
	}
	p := PartnerOf(a)
	return &p, nil
}

// Cascade records and applies the effects of bet for partner.
func (s *Service) Cascade(ctx context.Context, p Partner, bet Bet) ([]Transaction, error) {
	entries := Plan(p, bet, s.rates)
	if len(entries) == 0 {
		return nil, nil
	}
	if err := s.repo.Apply(ctx, p.ID, entries); err != nil {
		return nil, apperr.Wrap(apperr.KindPartnerCascadeFailure, "apply commission", err)
	}
	for _, e := range entries {
		log.Printf("Commission applied: partner=%s source=%s type=%s amount=%s",
			p.ID, e.SourceUserID, e.Type, e.Amount.String())
	}
	return entries, nil
}

func (s *Service) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	a, err := s.accounts.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, wallet.ErrAccountNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, "affiliate not found", err)
		}
		return nil, err
	}
	n, err := s.accounts.CountReferrals(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		ReferralCode:      a.UserID,
		CommissionBalance: a.CommissionBalance,
		ReferralCount:     n,
	}, nil
}

func (s *Service) Statement(ctx context.Context, recipientID string) ([]Transaction, error) {
	return s.repo.Statement(ctx, recipientID, StatementLimit)
}
