// Package betting settles wagers against the most recently committed round
// outcome.
package betting

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"roulette_service/internal/apperr"
	"roulette_service/internal/bonus"
	"roulette_service/internal/broadcast"
	"roulette_service/internal/commission"
	"roulette_service/internal/round"
	"roulette_service/internal/wallet"
)

const (
	MaxRetries = 3
	RetryDelay = 10 * time.Millisecond

	LiveFeedLimit    = 20
	GameHistoryLimit = 500
)

type OutcomeReader interface {
	Latest() (round.Outcome, bool)
}

type Cascader interface {
	LoadPartner(ctx context.Context, bettor *wallet.Account) (*commission.Partner, error)
	Cascade(ctx context.Context, p commission.Partner, bet commission.Bet) ([]commission.Transaction, error)
}

type Service struct {
	repo       Repository
	history    OutcomeReader
	commission Cascader
	publisher  broadcast.Publisher
	payouts    map[string]decimal.Decimal
	locks      *userLocks
}

func NewService(repo Repository, history OutcomeReader, cascader Cascader, publisher broadcast.Publisher, payouts map[string]decimal.Decimal) *Service {
	return &Service{
		repo:       repo,
		history:    history,
		commission: cascader,
		publisher:  publisher,
		payouts:    payouts,
		locks:      newUserLocks(),
	}
}

// Resolve reports whether a wager wins against o. GREEN never satisfies a
// parity bet.
func Resolve(o round.Outcome, betType BetType, betValue string) bool {
	switch betType {
	case BetTypeColor:
		return betValue == string(o.Color)
	case BetTypeParity:
		if o.IsWildcard() {
			return false
		}
		return betValue == string(o.Parity)
	}
	return false
}

func (s *Service) validate(w Wager) error {
	if !w.Amount.IsPositive() {
		return apperr.New(apperr.KindInvalidWager, "amount must be positive")
	}
	if !w.Amount.Equal(w.Amount.Truncate(2)) {
		return apperr.New(apperr.KindInvalidWager, "amount must be in whole cents")
	}
	switch w.BetType {
	case BetTypeColor:
		if !round.Color(w.BetValue).Valid() {
			return apperr.New(apperr.KindInvalidWager, "color bet must be RED, BLUE or GREEN")
		}
	case BetTypeParity:
		if w.BetValue != string(round.ParityOdd) && w.BetValue != string(round.ParityEven) {
			return apperr.New(apperr.KindInvalidWager, "parity bet must be ODD or EVEN")
		}
	default:
		return apperr.New(apperr.KindInvalidWager, "bet type must be COLOR or PARITY")
	}
	if _, ok := s.payouts[w.BetValue]; !ok {
		return apperr.New(apperr.KindInvalidWager, "no payout for "+w.BetValue)
	}
	return nil
}

// Settle resolves w for userID against the latest outcome in history. A
// rejected wager leaves every balance untouched. Commission cascade failures
// are logged and never fail the settlement.
func (s *Service) Settle(ctx context.Context, userID string, w Wager) (*Result, error) {
	if err := s.validate(w); err != nil {
		return nil, err
	}
	outcome, ok := s.history.Latest()
	if !ok {
		return nil, apperr.New(apperr.KindRoundNotReady, "wait for the first round to roll")
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	if w.BetID != "" {
		seen, err := s.repo.HasBet(ctx, userID, w.BetID)
		if err != nil {
			return nil, err
		}
		if seen {
			return nil, apperr.New(apperr.KindConflict, "bet already settled")
		}
	}

	var (
		account        *wallet.Account
		partner        *commission.Partner
		partnerLoaded  bool
		cpaAlreadyPaid bool
		funding        bonus.Funding
		result         *Result
		err            error
	)
	for i := 0; i < MaxRetries; i++ {
		account, err = s.repo.GetAccount(ctx, userID)
		if err != nil {
			if errors.Is(err, wallet.ErrAccountNotFound) {
				return nil, apperr.Wrap(apperr.KindNotFound, "user not found", err)
			}
			return nil, err
		}

		if !partnerLoaded {
			partnerLoaded = true
			partner, err = s.commission.LoadPartner(ctx, account)
			if err != nil {
				log.Printf("Commission cascade skipped: user=%s err=%v", userID, err)
				partner = nil
			}
		}

		ledger := account.Ledger()
		funding, err = bonus.Fund(&ledger, w.Amount)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidWager, "insufficient balance", err)
		}
		bonus.Track(&ledger, w.Amount)

		isWin := Resolve(outcome, w.BetType, w.BetValue)
		winnings := decimal.Zero
		if isWin {
			winnings = w.Amount.Mul(s.payouts[w.BetValue])
			bonus.Credit(&ledger, funding, winnings)
		}
		swept := bonus.Sweep(&ledger)

		cpaAlreadyPaid = account.HasGeneratedCPA
		if partner != nil {
			account.HasGeneratedCPA = true
		}
		account.SetLedger(ledger)

		entry := &GameLog{
			LogID:        uuid.New().String(),
			UserID:       userID,
			BetType:      w.BetType,
			BetValue:     w.BetValue,
			Amount:       w.Amount,
			FromReal:     funding.FromReal,
			FromBonus:    funding.FromBonus,
			IsWin:        isWin,
			Winnings:     winnings,
			OutcomeColor: outcome.Color,
			CreatedAt:    time.Now(),
		}
		if w.BetID != "" {
			betID := w.BetID
			entry.ClientBetID = &betID
		}
		if !outcome.IsWildcard() {
			n := outcome.Number
			entry.OutcomeNumber = &n
		}

		err = s.repo.CommitSettlement(ctx, account, entry)
		if err == nil {
			result = &Result{
				IsWin:            isWin,
				Winnings:         winnings,
				NewRealBalance:   account.RealBalance,
				NewBonusBalance:  account.BonusBalance,
				WageringProgress: account.WageringProgress,
				WageringTarget:   account.WageringTarget,
				BetFromReal:      funding.FromReal,
				BetFromBonus:     funding.FromBonus,
				RolloverComplete: swept,
				Outcome:          outcome,
			}
			break
		}
		if errors.Is(err, wallet.ErrOptimisticLock) {
			time.Sleep(RetryDelay)
			continue
		}
		if errors.Is(err, ErrDuplicateBet) {
			return nil, apperr.Wrap(apperr.KindConflict, "bet already settled", err)
		}
		return nil, err
	}
	if result == nil {
		return nil, apperr.Wrap(apperr.KindConflict, "account is busy, try again", err)
	}

	log.Printf("Bet settled: user=%s type=%s value=%s amount=%s win=%t winnings=%s outcome=%s",
		userID, w.BetType, w.BetValue, w.Amount.String(), result.IsWin, result.Winnings.String(), outcome.Color)

	s.publishBet(ctx, account, w, result)

	if partner != nil {
		_, cerr := s.commission.Cascade(ctx, *partner, commission.Bet{
			BettorID:       userID,
			BettorUsername: account.Username,
			Stake:          w.Amount,
			Winnings:       result.Winnings,
			IsWin:          result.IsWin,
			CPAAlreadyPaid: cpaAlreadyPaid,
		})
		if cerr != nil {
			log.Printf("Commission cascade failed: user=%s partner=%s err=%v", userID, partner.ID, cerr)
		}
	}

	return result, nil
}

func (s *Service) publishBet(ctx context.Context, account *wallet.Account, w Wager, r *Result) {
	bet := &PublicBet{
		PublicBetID: uuid.New().String(),
		UserID:      account.UserID,
		Username:    account.Username,
		Avatar:      account.Avatar,
		BetValue:    w.BetValue,
		Amount:      w.Amount,
		IsWin:       r.IsWin,
		Winnings:    r.Winnings,
		CreatedAt:   time.Now(),
	}
	if err := s.repo.CreatePublicBet(ctx, bet); err != nil {
		log.Printf("Public bet not persisted: user=%s err=%v", account.UserID, err)
	}
	s.publisher.Publish(broadcast.TopicNewPublicBet, bet)
}

func (s *Service) RecentBets(ctx context.Context) ([]PublicBet, error) {
	return s.repo.RecentPublicBets(ctx, LiveFeedLimit)
}

func (s *Service) GameHistory(ctx context.Context, userID string) ([]GameLog, error) {
	return s.repo.GameHistory(ctx, userID, GameHistoryLimit)
}
