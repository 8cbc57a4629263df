// Package wallettest provides an in-memory account store for tests.
package wallettest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"roulette_service/internal/wallet"
)

// Store implements wallet.AccountRepository with the same optimistic version
// check as the gorm repository.
type Store struct {
	mu           sync.Mutex
	accounts     map[string]wallet.Account
	transactions []wallet.FinancialTransaction

	// FailGet makes GetAccount fail for the listed user ids.
	FailGet map[string]error
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]wallet.Account),
		FailGet:  make(map[string]error),
	}
}

// Put inserts or replaces an account and returns its id.
func (s *Store) Put(a wallet.Account) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.UserID == "" {
		a.UserID = uuid.New().String()
	}
	if a.Role == "" {
		a.Role = wallet.RoleUser
	}
	if a.Version == 0 {
		a.Version = 1
	}
	s.accounts[a.UserID] = a
	return a.UserID
}

func (s *Store) Get(userID string) wallet.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[userID]
}

func (s *Store) GetAccount(ctx context.Context, userID string) (*wallet.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailGet[userID]; err != nil {
		return nil, err
	}
	a, ok := s.accounts[userID]
	if !ok {
		return nil, wallet.ErrAccountNotFound
	}
	return &a, nil
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*wallet.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Username == username {
			a := a
			return &a, nil
		}
	}
	return nil, wallet.ErrAccountNotFound
}

func (s *Store) CreateAccount(ctx context.Context, a *wallet.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Username == a.Username {
			return wallet.ErrUsernameTaken
		}
	}
	if a.UserID == "" {
		a.UserID = uuid.New().String()
	}
	if a.Role == "" {
		a.Role = wallet.RoleUser
	}
	a.Version = 1
	s.accounts[a.UserID] = *a
	return nil
}

// Save applies the optimistic version check and bumps a.Version.
func (s *Store) Save(a *wallet.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(a)
}

func (s *Store) saveLocked(a *wallet.Account) error {
	current, ok := s.accounts[a.UserID]
	if !ok {
		return wallet.ErrAccountNotFound
	}
	if current.Version != a.Version {
		return wallet.ErrOptimisticLock
	}
	current.RealBalance = a.RealBalance
	current.BonusBalance = a.BonusBalance
	current.WageringTarget = a.WageringTarget
	current.WageringProgress = a.WageringProgress
	current.HasGeneratedCPA = a.HasGeneratedCPA
	current.Version++
	current.UpdatedAt = time.Now()
	s.accounts[a.UserID] = current
	a.Version = current.Version
	return nil
}

// AddCommission mirrors the atomic commission_balance increment.
func (s *Store) AddCommission(userID string, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[userID]
	if !ok {
		return wallet.ErrAccountNotFound
	}
	a.CommissionBalance = a.CommissionBalance.Add(delta)
	s.accounts[userID] = a
	return nil
}

func (s *Store) ApplyTransaction(ctx context.Context, a *wallet.Account, tx *wallet.FinancialTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveLocked(a); err != nil {
		return err
	}
	if tx.TransactionID == "" {
		tx.TransactionID = uuid.New().String()
	}
	tx.CreatedAt = time.Now()
	s.transactions = append(s.transactions, *tx)
	return nil
}

func (s *Store) UpdateRole(ctx context.Context, userID string, role wallet.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[userID]
	if !ok {
		return wallet.ErrAccountNotFound
	}
	a.Role = role
	s.accounts[userID] = a
	return nil
}

func (s *Store) CountReferrals(ctx context.Context, partnerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range s.accounts {
		if a.AffiliateID != nil && *a.AffiliateID == partnerID {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string, limit int) ([]wallet.FinancialTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []wallet.FinancialTransaction
	for _, tx := range s.transactions {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
