package wallet

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"roulette_service/internal/apperr"
	"roulette_service/internal/bonus"
)

const (
	MaxRetries = 3
	RetryDelay = 10 * time.Millisecond

	HistoryLimit = 20
)

type Service struct {
	repo               AccountRepository
	rolloverMultiplier decimal.Decimal
}

func NewService(repo AccountRepository, rolloverMultiplier decimal.Decimal) *Service {
	return &Service{repo: repo, rolloverMultiplier: rolloverMultiplier}
}

func (s *Service) GetBalance(ctx context.Context, userID string) (*BalanceView, error) {
	a, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	progress := bonus.Progress(a.Ledger())
	return &BalanceView{
		RealBalance:       a.RealBalance,
		BonusBalance:      a.BonusBalance,
		CommissionBalance: a.CommissionBalance,
		WageringProgress:  a.WageringProgress,
		WageringTarget:    a.WageringTarget,
		PercentComplete:   progress.PercentageComplete,
	}, nil
}

// Withdraw debits the real balance only. Bonus funds are never withdrawable.
func (s *Service) Withdraw(ctx context.Context, userID string, amount decimal.Decimal) (*TransactionResponse, error) {
	return s.ProcessTransaction(ctx, TransactionRequest{
		UserID:          userID,
		TransactionType: TransactionWithdrawal,
		Amount:          amount,
		InitiatedBy:     InitiatedBySelf,
	})
}

func (s *Service) ProcessTransaction(ctx context.Context, req TransactionRequest) (*TransactionResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, apperr.New(apperr.KindInvalidRequest, "amount must be positive")
	}
	if !req.Amount.Equal(req.Amount.Truncate(2)) {
		return nil, apperr.New(apperr.KindInvalidRequest, "amount must be in whole cents")
	}
	if req.TransactionType != TransactionDeposit && req.TransactionType != TransactionWithdrawal {
		return nil, apperr.New(apperr.KindInvalidRequest, "invalid transaction type")
	}

	var err error
	for i := 0; i < MaxRetries; i++ {
		var a *Account
		a, err = s.load(ctx, req.UserID)
		if err != nil {
			return nil, err
		}

		tx := &FinancialTransaction{
			UserID:          a.UserID,
			Username:        a.Username,
			TransactionType: req.TransactionType,
			Amount:          req.Amount,
			BalanceBefore:   a.RealBalance,
			InitiatedBy:     req.InitiatedBy,
		}

		ledger := a.Ledger()
		if req.TransactionType == TransactionDeposit {
			ledger.Real = ledger.Real.Add(req.Amount)
			if req.AddBonus {
				bonus.Grant(&ledger, req.Amount, s.rolloverMultiplier)
				tx.BonusGranted = req.Amount
			}
		} else {
			if ledger.Real.LessThan(req.Amount) {
				return nil, apperr.Wrap(apperr.KindInsufficientFunds, "insufficient withdrawable balance", ErrInsufficientFunds)
			}
			ledger.Real = ledger.Real.Sub(req.Amount)
		}
		a.SetLedger(ledger)
		tx.BalanceAfter = a.RealBalance

		err = s.repo.ApplyTransaction(ctx, a, tx)
		if err == nil {
			log.Printf("Transaction applied: id=%s user=%s type=%s amount=%s by=%s",
				tx.TransactionID, a.UserID, tx.TransactionType, req.Amount.String(), req.InitiatedBy)
			return &TransactionResponse{
				TransactionID:   tx.TransactionID,
				NewBalance:      a.RealBalance,
				NewBonusBalance: a.BonusBalance,
			}, nil
		}
		if errors.Is(err, ErrOptimisticLock) {
			time.Sleep(RetryDelay)
			continue
		}
		return nil, err
	}
	return nil, apperr.Wrap(apperr.KindConflict, "account is busy, try again", err)
}

func (s *Service) ChangeRole(ctx context.Context, userID string, role Role) error {
	if !role.Valid() {
		return apperr.New(apperr.KindInvalidRequest, "invalid role")
	}
	if !ValidID(userID) {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	if err := s.repo.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return apperr.Wrap(apperr.KindNotFound, "user not found", err)
		}
		return err
	}
	log.Printf("Role changed: user=%s role=%s", userID, role)
	return nil
}

func (s *Service) History(ctx context.Context, userID string) ([]FinancialTransaction, error) {
	return s.repo.ListTransactions(ctx, userID, HistoryLimit)
}

func (s *Service) load(ctx context.Context, userID string) (*Account, error) {
	if !ValidID(userID) {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	a, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, "user not found", err)
		}
		return nil, err
	}
	return a, nil
}
