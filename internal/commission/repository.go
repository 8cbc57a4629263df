package commission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"roulette_service/internal/wallet"
)

var ErrPartnerNotFound = errors.New("partner not found")

type Repository interface {
	GetPartner(ctx context.Context, partnerID string) (*wallet.Account, error)
	// Apply moves the partner's commission balance by the entries' net delta
	// and records every entry, all or nothing.
	Apply(ctx context.Context, partnerID string, entries []Transaction) error
	Statement(ctx context.Context, recipientID string, limit int) ([]Transaction, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) GetPartner(ctx context.Context, partnerID string) (*wallet.Account, error) {
	if !wallet.ValidID(partnerID) {
		return nil, ErrPartnerNotFound
	}
	var a wallet.Account
	err := r.db.WithContext(ctx).Where("user_id = ?", partnerID).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPartnerNotFound
		}
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}
	return &a, nil
}

func (r *RepositoryImpl) Apply(ctx context.Context, partnerID string, entries []Transaction) error {
	if len(entries) == 0 {
		return nil
	}
	delta := entries[0].Delta()
	for _, e := range entries[1:] {
		delta = delta.Add(e.Delta())
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Increment in SQL so concurrent cascades to one partner never lose updates.
		result := tx.Model(&wallet.Account{}).
			Where("user_id = ?", partnerID).
			Updates(map[string]interface{}{
				"commission_balance": gorm.Expr("commission_balance + ?", delta),
				"updated_at":         time.Now(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update commission balance: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrPartnerNotFound
		}

		for i := range entries {
			if entries[i].TransactionID == "" {
				entries[i].TransactionID = uuid.New().String()
			}
		}
		if err := tx.Create(&entries).Error; err != nil {
			return fmt.Errorf("failed to create commission transactions: %w", err)
		}
		return nil
	})
}

func (r *RepositoryImpl) Statement(ctx context.Context, recipientID string, limit int) ([]Transaction, error) {
	var txs []Transaction
	err := r.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get statement: %w", err)
	}
	return txs, nil
}
