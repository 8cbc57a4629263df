package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"roulette_service/internal/api"
	"roulette_service/internal/auth"
	"roulette_service/internal/betting"
	"roulette_service/internal/broadcast"
	"roulette_service/internal/chat"
	"roulette_service/internal/commission"
	"roulette_service/internal/config"
	"roulette_service/internal/db"
	"roulette_service/internal/round"
	"roulette_service/internal/wallet"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalln(err)
	}
	table, err := config.LoadGameTable(cfg.GameTablePath)
	if err != nil {
		log.Fatalln(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Open(ctx, cfg.DBConnStr)
	if err != nil {
		log.Fatalln(err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalln(err)
	}

	hub := broadcast.NewHub()

	// rounds
	settingsRepo := round.NewSettingsRepository(gdb)
	history := round.NewHistory(table.HistoryCapacity)
	generator := round.NewGenerator(settingsRepo, table.Weights, nil)
	clock := round.NewClock(generator, history, hub, table.BettingSeconds, table.RollingSeconds)
	roundService := round.NewService(generator, history, clock, settingsRepo, table.SeedRounds)

	// accounts
	accountRepo := wallet.NewAccountRepositoryImpl(gdb)
	walletService := wallet.NewService(accountRepo, table.RolloverMultiplier)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	authService := auth.NewService(accountRepo, tokens)

	commissionService := commission.NewService(commission.NewRepository(gdb), accountRepo, commission.Rates{
		CPA:     table.CPAValue,
		NGRWin:  table.NGRWinRate,
		NGRLoss: table.NGRLossRate,
	})
	bettingService := betting.NewService(betting.NewRepository(gdb), history, commissionService, hub, table.Payouts)
	chatService := chat.NewService(chat.NewRepository(gdb), hub)

	if cfg.SeedDemoUsers {
		seeds := []auth.SeedAccount{
			{Username: "TEST_ADMIN", Role: wallet.RoleAdmin, Balance: decimal.NewFromInt(1000)},
			{Username: "TEST_INFLUENCER", Role: wallet.RoleInfluencer, Balance: decimal.NewFromInt(1000)},
		}
		if err := authService.Seed(ctx, cfg.DemoPassword, seeds); err != nil {
			log.Fatalln(err)
		}
	}

	router := api.NewRouter(api.Deps{
		Rounds:      roundService,
		Bets:        bettingService,
		Wallets:     walletService,
		Commission:  commissionService,
		Chat:        chatService,
		Auth:        authService,
		Tokens:      tokens,
		Hub:         hub,
		CORSOrigins: cfg.CORSOrigins,
	})

	go clock.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Server started on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown failed: %v", err)
	}
}
