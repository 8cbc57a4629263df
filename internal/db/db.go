// Package db opens the Postgres connection and migrates the schema.
package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"roulette_service/internal/betting"
	"roulette_service/internal/chat"
	"roulette_service/internal/commission"
	"roulette_service/internal/round"
	"roulette_service/internal/wallet"
)

// Open connects to Postgres and verifies the connection with a ping.
func Open(ctx context.Context, dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return gdb, nil
}

func Migrate(gdb *gorm.DB) error {
	err := gdb.AutoMigrate(
		&wallet.Account{},
		&wallet.FinancialTransaction{},
		&round.GameSettings{},
		&betting.GameLog{},
		&betting.PublicBet{},
		&commission.Transaction{},
		&chat.Message{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Printf("Database migrated")
	return nil
}
