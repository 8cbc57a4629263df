package chat

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, m *Message) error
	// Recent returns the newest limit messages, newest first.
	Recent(ctx context.Context, limit int) ([]Message, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Create(ctx context.Context, m *Message) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create chat message: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) Recent(ctx context.Context, limit int) ([]Message, error) {
	var msgs []Message
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get chat messages: %w", err)
	}
	return msgs, nil
}
