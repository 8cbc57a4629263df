// Package commissiontest provides an in-memory commission ledger for tests.
package commissiontest

import (
	"context"
	"errors"
	"sort"
	"sync"

	"roulette_service/internal/commission"
	"roulette_service/internal/wallet"
	"roulette_service/internal/wallet/wallettest"
)

// Ledger implements commission.Repository over a wallettest.Store.
type Ledger struct {
	accounts *wallettest.Store

	mu      sync.Mutex
	entries []commission.Transaction

	// FailApply makes every Apply call fail.
	FailApply error
}

func NewLedger(accounts *wallettest.Store) *Ledger {
	return &Ledger{accounts: accounts}
}

func (l *Ledger) GetPartner(ctx context.Context, partnerID string) (*wallet.Account, error) {
	a, err := l.accounts.GetAccount(ctx, partnerID)
	if errors.Is(err, wallet.ErrAccountNotFound) {
		return nil, commission.ErrPartnerNotFound
	}
	return a, err
}

func (l *Ledger) Apply(ctx context.Context, partnerID string, entries []commission.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailApply != nil {
		return l.FailApply
	}
	for _, e := range entries {
		if err := l.accounts.AddCommission(partnerID, e.Delta()); err != nil {
			return commission.ErrPartnerNotFound
		}
	}
	l.entries = append(l.entries, entries...)
	return nil
}

func (l *Ledger) Statement(ctx context.Context, recipientID string, limit int) ([]commission.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []commission.Transaction
	for _, e := range l.entries {
		if e.RecipientID == recipientID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Entries returns every recorded entry of the given type.
func (l *Ledger) Entries(t commission.TransactionType) []commission.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []commission.Transaction
	for _, e := range l.entries {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
