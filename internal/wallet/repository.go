package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountNotFound   = errors.New("account not found")
	ErrOptimisticLock    = errors.New("optimistic lock error")
	ErrUsernameTaken     = errors.New("username already taken")
)

type AccountRepository interface {
	GetAccount(ctx context.Context, userID string) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	CreateAccount(ctx context.Context, account *Account) error
	ApplyTransaction(ctx context.Context, account *Account, tx *FinancialTransaction) error
	UpdateRole(ctx context.Context, userID string, role Role) error
	CountReferrals(ctx context.Context, partnerID string) (int64, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]FinancialTransaction, error)
}

type AccountRepositoryImpl struct {
	db *gorm.DB
}

func NewAccountRepositoryImpl(db *gorm.DB) AccountRepository {
	return &AccountRepositoryImpl{db: db}
}

func (r *AccountRepositoryImpl) GetAccount(ctx context.Context, userID string) (*Account, error) {
	if !ValidID(userID) {
		return nil, ErrAccountNotFound
	}
	var a Account
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepositoryImpl) GetByUsername(ctx context.Context, username string) (*Account, error) {
	var a Account
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepositoryImpl) CreateAccount(ctx context.Context, a *Account) error {
	if a.UserID == "" {
		a.UserID = uuid.New().String()
	}
	if a.Role == "" {
		a.Role = RoleUser
	}
	a.Version = 1
	err := r.db.WithContext(ctx).Create(a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// SaveAccount writes the balance columns of a if its version is unchanged
// since it was read, and bumps the version. It returns ErrOptimisticLock when
// another writer got there first.
func SaveAccount(db *gorm.DB, a *Account) error {
	result := db.Model(&Account{}).Where("user_id = ? AND version = ?", a.UserID, a.Version).
		Updates(map[string]interface{}{
			"real_balance":      a.RealBalance,
			"bonus_balance":     a.BonusBalance,
			"wagering_target":   a.WageringTarget,
			"wagering_progress": a.WageringProgress,
			"has_generated_cpa": a.HasGeneratedCPA,
			"version":           gorm.Expr("version + 1"),
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOptimisticLock
	}
	a.Version++
	return nil
}

func (r *AccountRepositoryImpl) ApplyTransaction(ctx context.Context, a *Account, tx *FinancialTransaction) error {
	return r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		if err := SaveAccount(dbtx, a); err != nil {
			return err
		}
		if tx.TransactionID == "" {
			tx.TransactionID = uuid.New().String()
		}
		tx.CreatedAt = time.Now()
		return dbtx.Create(tx).Error
	})
}

func (r *AccountRepositoryImpl) UpdateRole(ctx context.Context, userID string, role Role) error {
	if !ValidID(userID) {
		return ErrAccountNotFound
	}
	result := r.db.WithContext(ctx).Model(&Account{}).Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"role":       role,
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepositoryImpl) CountReferrals(ctx context.Context, partnerID string) (int64, error) {
	if !ValidID(partnerID) {
		return 0, nil
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&Account{}).Where("affiliate_id = ?", partnerID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count referrals: %w", err)
	}
	return n, nil
}

func (r *AccountRepositoryImpl) ListTransactions(ctx context.Context, userID string, limit int) ([]FinancialTransaction, error) {
	if !ValidID(userID) {
		return nil, nil
	}
	var txs []FinancialTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}
