package betting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"roulette_service/internal/wallet"
)

var ErrDuplicateBet = errors.New("bet already settled")

type Repository interface {
	GetAccount(ctx context.Context, userID string) (*wallet.Account, error)
	HasBet(ctx context.Context, userID, betID string) (bool, error)
	// CommitSettlement saves the account under its optimistic version together
	// with the game log entry.
	CommitSettlement(ctx context.Context, account *wallet.Account, entry *GameLog) error
	CreatePublicBet(ctx context.Context, bet *PublicBet) error
	RecentPublicBets(ctx context.Context, limit int) ([]PublicBet, error)
	GameHistory(ctx context.Context, userID string, limit int) ([]GameLog, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) GetAccount(ctx context.Context, userID string) (*wallet.Account, error) {
	if !wallet.ValidID(userID) {
		return nil, wallet.ErrAccountNotFound
	}
	var a wallet.Account
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wallet.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

func (r *RepositoryImpl) HasBet(ctx context.Context, userID, betID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&GameLog{}).
		Where("user_id = ? AND client_bet_id = ?", userID, betID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check bet: %w", err)
	}
	return n > 0, nil
}

func (r *RepositoryImpl) CommitSettlement(ctx context.Context, account *wallet.Account, entry *GameLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := wallet.SaveAccount(tx, account); err != nil {
			return err
		}
		if entry.LogID == "" {
			entry.LogID = uuid.New().String()
		}
		if err := tx.Create(entry).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateBet
			}
			return fmt.Errorf("failed to create game log: %w", err)
		}
		return nil
	})
}

func (r *RepositoryImpl) CreatePublicBet(ctx context.Context, bet *PublicBet) error {
	if bet.PublicBetID == "" {
		bet.PublicBetID = uuid.New().String()
	}
	if bet.CreatedAt.IsZero() {
		bet.CreatedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(bet).Error; err != nil {
		return fmt.Errorf("failed to create public bet: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) RecentPublicBets(ctx context.Context, limit int) ([]PublicBet, error) {
	var bets []PublicBet
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&bets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get public bets: %w", err)
	}
	return bets, nil
}

func (r *RepositoryImpl) GameHistory(ctx context.Context, userID string, limit int) ([]GameLog, error) {
	var logs []GameLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get game history: %w", err)
	}
	return logs, nil
}
