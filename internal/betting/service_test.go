package betting_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roulette_service/internal/apperr"
	"roulette_service/internal/betting"
	"roulette_service/internal/broadcast"
	"roulette_service/internal/commission"
	"roulette_service/internal/commission/commissiontest"
	"roulette_service/internal/config"
	"roulette_service/internal/round"
	"roulette_service/internal/wallet"
	"roulette_service/internal/wallet/wallettest"
)

type memRepo struct {
	accounts *wallettest.Store

	mu                 sync.Mutex
	logs               []betting.GameLog
	public             []betting.PublicBet
	optimisticFailures int
}

func (m *memRepo) GetAccount(ctx context.Context, userID string) (*wallet.Account, error) {
	return m.accounts.GetAccount(ctx, userID)
}

func (m *memRepo) HasBet(ctx context.Context, userID, betID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.logs {
		if l.UserID == userID && l.ClientBetID != nil && *l.ClientBetID == betID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) CommitSettlement(ctx context.Context, account *wallet.Account, entry *betting.GameLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.optimisticFailures > 0 {
		m.optimisticFailures--
		return wallet.ErrOptimisticLock
	}
	if err := m.accounts.Save(account); err != nil {
		return err
	}
	m.logs = append(m.logs, *entry)
	return nil
}

func (m *memRepo) CreatePublicBet(ctx context.Context, bet *betting.PublicBet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.public = append(m.public, *bet)
	return nil
}

func (m *memRepo) RecentPublicBets(ctx context.Context, limit int) ([]betting.PublicBet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]betting.PublicBet(nil), m.public...)
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memRepo) GameHistory(ctx context.Context, userID string, limit int) ([]betting.GameLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []betting.GameLog
	for _, l := range m.logs {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memRepo) logCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs)
}

type fixture struct {
	store   *wallettest.Store
	ledger  *commissiontest.Ledger
	repo    *memRepo
	history *round.History
	hub     *broadcast.Hub
	svc     *betting.Service
}

func newFixture(t *testing.T, latest ...round.Outcome) *fixture {
	t.Helper()
	table := config.DefaultGameTable()
	store := wallettest.NewStore()
	ledger := commissiontest.NewLedger(store)
	cascade := commission.NewService(ledger, store, commission.Rates{
		CPA:     table.CPAValue,
		NGRWin:  table.NGRWinRate,
		NGRLoss: table.NGRLossRate,
	})
	history := round.NewHistory(table.HistoryCapacity)
	for _, o := range latest {
		history.Append(o)
	}
	repo := &memRepo{accounts: store}
	hub := broadcast.NewHub()
	return &fixture{
		store:   store,
		ledger:  ledger,
		repo:    repo,
		history: history,
		hub:     hub,
		svc:     betting.NewService(repo, history, cascade, hub, table.Payouts),
	}
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

var redSeven = round.NewOutcome(round.ColorRed, 7, false)

func TestSettleRedSevenScenario(t *testing.T) {
	f := newFixture(t, redSeven)
	id := f.store.Put(wallet.Account{Username: "ana", RealBalance: dec(100)})

	res, err := f.svc.Settle(context.Background(), id, betting.Wager{BetType: betting.BetTypeColor, BetValue: "RED", Amount: dec(10)})
	require.NoError(t, err)
	assert.True(t, res.IsWin)
	assert.True(t, dec(20).Equal(res.Winnings))
	assert.True(t, dec(110).Equal(res.NewRealBalance))
	assert.Equal(t, redSeven, res.Outcome)

	res, err = f.svc.Settle(context.Background(), id, betting.Wager{BetType: betting.BetTypeParity, BetValue: "EVEN", Amount: dec(10)})
	require.NoError(t, err)
	assert.False(t, res.IsWin)
	assert.True(t, res.Winnings.IsZero())
	assert.True(t, dec(100).Equal(res.NewRealBalance))
}

func TestParityNeverWinsOnGreen(t *testing.T) {
	green := round.NewOutcome(round.ColorGreen, 12, false)
	f := newFixture(t, green)
	id := f.store.Put(wallet.Account{Username: "bia", RealBalance: dec(100)})

	for _, v := range []string{"ODD", "EVEN"} {
		res, err := f.svc.Settle(context.Background(), id, betting.Wager{BetType: betting.BetTypeParity, BetValue: v, Amount: dec(5)})
		require.NoError(t, err)
		assert.False(t, res.IsWin, v)
	}

	res, err := f.svc.Settle(context.Background(), id, betting.Wager{BetType: betting.BetTypeColor, BetValue: "GREEN", Amount: dec(5)})
	require.NoError(t, err)
	assert.True(t, res.IsWin)
	assert.True(t, dec(70).Equal(res.Winnings))
}

func TestResolve(t *testing.T) {
	for i := 0; i < 200; i++ {
		o := round.NewOutcome(round.ColorGreen, i, i%3 == 0)
		assert.False(t, betting.Resolve(o, betting.BetTypeParity, "ODD"))
		assert.False(t, betting.Resolve(o, betting.BetTypeParity, "EVEN"))
	}
	assert.True(t, betting.Resolve(round.NewOutcome(round.ColorBlue, 8, false), betting.BetTypeParity, "EVEN"))
	assert.False(t, betting.Resolve(redSeven, betting.BetType("NUMBER"), "7"))
}

func TestBonusFundedWinStaysInBonus(t *testing.T) {
	f := newFixture(t, redSeven)
	id := f.store.Put(wallet.Account{
		Username:       "caio",
		BonusBalance:   dec(50),
		WageringTarget: dec(250),
	})

	res, err := f.svc.Settle(context.Background(), id, betting.Wager{BetType: betting.BetTypeColor, BetValue: "RED", Amount: dec(30)})
	require.NoError(t, err)
	assert.True(t, res.BetFromReal.IsZero())
	assert.True(t, dec(30).Equal(res.BetFromBonus))
	assert.True(t, dec(60).Equal(res.Winnings))
	assert.True(t, dec(80).Equal(res.NewBonusBalance))
	assert.True(t, res.NewRealBalance.IsZero())
	assert.True(t, dec(30).Equal(res.WageringProgress))
}

func TestRolloverSweepFires(t *testing.T) {
	f := newFixture(t, redSeven)
	id := f.store.Put(wallet.Account{
		Username:         "davi",
		RealBalance:      dec(5),
		BonusBalance:     dec(40),
		WageringTarget:   dec(100),
		WageringProgress: dec(95),
	})

	res, err := f.svc.Settle(context.Background(), id, betting.Wager{BetType: betting.BetTypeColor, BetValue: "BLUE", Amount: dec(10)})
	require.NoError(t, err)
	assert.True(t, res.RolloverComplete)
	assert.True(t, res.WageringTarget.IsZero())
	assert.True(t, res.WageringProgress.IsZero())
	assert.True(t, res.NewBonusBalance.IsZero())
	assert.True(t, dec(35).Equal(res.NewRealBalance))
}

func TestSettlementInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	colors := []round.Color{round.ColorRed, round.ColorBlue, round.ColorGreen}
	values := []betting.Wager{
		{BetType: betting.BetTypeColor, BetValue: "RED"},
		{BetType: betting.BetTypeColor, BetValue: "BLUE"},
		{BetType: betting.BetTypeColor, BetValue: "GREEN"},
		{BetType: betting.BetTypeParity, BetValue: "ODD"},
		{BetType: betting.BetTypeParity, BetValue: "EVEN"},
	}

	f := newFixture(t, redSeven)
	for i := 0; i < 300; i++ {
		f.history.Append(round.NewOutcome(colors[rng.Intn(3)], rng.Intn(100)+1, false))
		pre := wallet.Account{
			Username:         fmt.Sprintf("u%d", i),
			RealBalance:      dec(int64(rng.Intn(50))),
			BonusBalance:     dec(int64(rng.Intn(50))),
			WageringTarget:   dec(int64(rng.Intn(3) * 100)),
			WageringProgress: dec(int64(rng.Intn(90))),
		}
		id := f.store.Put(pre)
		w := values[rng.Intn(len(values))]
		w.Amount = dec(int64(rng.Intn(60) + 1))

		res, err := f.svc.Settle(context.Background(), id, w)
		if w.Amount.GreaterThan(pre.RealBalance.Add(pre.BonusBalance)) {
			require.Equal(t, apperr.KindInvalidWager, apperr.KindOf(err))
			continue
		}
		require.NoError(t, err)

		assert.True(t, w.Amount.Equal(res.BetFromReal.Add(res.BetFromBonus)))
		assert.True(t, res.BetFromReal.LessThanOrEqual(w.Amount))
		if res.BetFromBonus.IsPositive() {
			assert.True(t, res.BetFromReal.Equal(pre.RealBalance))
		}
		assert.True(t, res.WageringTarget.IsZero() || res.WageringProgress.LessThan(res.WageringTarget))
		if w.BetType == betting.BetTypeParity && res.Outcome.Color == round.ColorGreen {
			assert.False(t, res.IsWin)
		}
	}
}

func TestRejectionsLeaveBalancesUntouched(t *testing.T) {
	f := newFixture(t)
	id := f.store.Put(wallet.Account{Username: "eva", RealBalance: dec(10), BonusBalance: dec(5)})
	ctx := context.Background()

	_, err := f.svc.Settle(ctx, id, betting.Wager{BetType: betting.BetTypeColor, BetValue: "RED", Amount: dec(1)})
	assert.Equal(t, apperr.KindRoundNotReady, apperr.KindOf(err))

	f.history.Append(redSeven)

	cases := []betting.Wager{
		{BetType: betting.BetTypeColor, BetValue: "RED", Amount: decimal.Zero},
		{BetType: betting.BetTypeColor, BetValue: "RED", Amount: dec(-3)},
		{BetType: betting.BetTypeColor, BetValue: "RED", Amount: dec(16)},
		{BetType: betting.BetTypeColor, BetValue: "BLUE", Amount: decimal.RequireFromString("0.005")},
		{BetType: betting.BetTypeColor, BetValue: "RED", Amount: decimal.RequireFromString("1.001")},
		{BetType: betting.BetTypeColor, BetValue: "ODD", Amount: dec(1)},
		{BetType: betting.BetTypeParity, BetValue: "RED", Amount: dec(1)},
		{BetType: "NUMBER", BetValue: "7", Amount: dec(1)},
	}
	for _, w := range cases {
		_, err := f.svc.Settle(ctx, id, w)
		assert.Equal(t, apperr.KindInvalidWager, apperr.KindOf(err), "%+v", w)
	}

	a := f.store.Get(id)
	assert.True(t, dec(10).Equal(a.RealBalance))
	assert.True(t, dec(5).Equal(a.BonusBalance))
	assert.Equal(t, 0, f.repo.logCount())
}

func TestCPAFiresOnce(t *testing.T) {
	f := newFixture(t, redSeven)
	partnerID := f.store.Put(wallet.Account{Username: "aff", Role: wallet.RoleAffiliate})
	id := f.store.Put(wallet.Account{Username: "fred", RealBalance: dec(1000), AffiliateID: &partnerID})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Settle(context.Background(), id, betting.Wager{BetType: betting.BetTypeColor, BetValue: "BLUE", Amount: dec(1)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, f.ledger.Entries(commission.TypeCPA), 1)
	assert.True(t, dec(5).Equal(f.store.Get(partnerID).CommissionBalance))
	assert.True(t, f.store.Get(id).HasGeneratedCPA)
}

func TestInfluencerLossCredit(t *testing.T) {
	f := newFixture(t, redSeven)
	partnerID := f.store.Put(wallet.Account{Username: "inf", Role: wallet.RoleInfluencer})
	id := f.store.Put(wallet.Account{Username: "gil", RealBalance: dec(100), AffiliateID: &partnerID, HasGeneratedCPA: true})

	res, err := f.svc.Settle(context.Background(), id, betting.Wager{BetType: betting.BetTypeColor, BetValue: "BLUE", Amount: dec(100)})
	require.NoError(t, err)
	assert.False(t, res.IsWin)

	assert.True(t, dec(5).Equal(f.store.Get(partnerID).CommissionBalance))
	ngr := f.ledger.Entries(commission.TypeNGR)
	require.Len(t, ngr, 1)
	assert.True(t, dec(-100).Equal(ngr[0].SourcePlayerProfit))
	assert.Empty(t, f.ledger.Entries(commission.TypeNGRDebit))
}

func TestInfluencerWinDebit(t *testing.T) {
	f := newFixture(t, redSeven)
	partnerID := f.store.Put(wallet.Account{Username: "inf", Role: wallet.RoleInfluencer, CommissionBalance: dec(10)})
	id := f.store.Put(wallet.Account{Username: "hal", RealBalance: dec(100), AffiliateID: &partnerID, HasGeneratedCPA: true})

	_, err := f.svc.Settle(context.Background(), id, betting.Wager{BetType: betting.BetTypeColor, BetValue: "RED", Amount: dec(50)})
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("8.5").Equal(f.store.Get(partnerID).CommissionBalance))
	assert.Empty(t, f.ledger.Entries(commission.TypeNGR))
}

func TestPartnerFailureDoesNotFailSettlement(t *testing.T) {
	f := newFixture(t, redSeven)
	partnerID := f.store.Put(wallet.Account{Username: "inf", Role: wallet.RoleInfluencer})
	f.store.FailGet[partnerID] = errors.New("partner store unavailable")
	id := f.store.Put(wallet.Account{Username: "ivo", RealBalance: dec(20), AffiliateID: &partnerID})

	res, err := f.svc.Settle(context.Background(), id, betting.Wager{BetType: betting.BetTypeColor, BetValue: "BLUE", Amount: dec(10)})
	require.NoError(t, err)
	assert.True(t, dec(10).Equal(res.NewRealBalance))
	assert.False(t, f.store.Get(id).HasGeneratedCPA)

	delete(f.store.FailGet, partnerID)
	f.ledger.FailApply = errors.New("write failed")
	res, err = f.svc.Settle(context.Background(), id, betting.Wager{BetType: betting.BetTypeColor, BetValue: "BLUE", Amount: dec(10)})
	require.NoError(t, err)
	assert.True(t, res.NewRealBalance.IsZero())
	assert.True(t, f.store.Get(partnerID).CommissionBalance.IsZero())
}

func TestConcurrentDoubleSubmitDoesNotDoubleSpend(t *testing.T) {
	f := newFixture(t, redSeven)
	id := f.store.Put(wallet.Account{Username: "jon", RealBalance: dec(10)})

	var wg sync.WaitGroup
	var mu sync.Mutex
	success, rejected := 0, 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Settle(context.Background(), id, betting.Wager{BetType: betting.BetTypeColor, BetValue: "BLUE", Amount: dec(10)})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				success++
			} else if apperr.KindOf(err) == apperr.KindInvalidWager {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, 9, rejected)
	assert.True(t, f.store.Get(id).RealBalance.IsZero())
}

func TestRepeatedBetIDIsConflict(t *testing.T) {
	f := newFixture(t, redSeven)
	id := f.store.Put(wallet.Account{Username: "kai", RealBalance: dec(50)})
	w := betting.Wager{BetID: "round-1", BetType: betting.BetTypeColor, BetValue: "RED", Amount: dec(10)}

	_, err := f.svc.Settle(context.Background(), id, w)
	require.NoError(t, err)
	_, err = f.svc.Settle(context.Background(), id, w)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.True(t, dec(60).Equal(f.store.Get(id).RealBalance))
}

func TestOptimisticLockIsRetried(t *testing.T) {
	f := newFixture(t, redSeven)
	id := f.store.Put(wallet.Account{Username: "lia", RealBalance: dec(50)})
	f.repo.optimisticFailures = 2

	res, err := f.svc.Settle(context.Background(), id, betting.Wager{BetType: betting.BetTypeColor, BetValue: "BLUE", Amount: dec(10)})
	require.NoError(t, err)
	assert.True(t, dec(40).Equal(res.NewRealBalance))

	f.repo.optimisticFailures = betting.MaxRetries
	_, err = f.svc.Settle(context.Background(), id, betting.Wager{BetType: betting.BetTypeColor, BetValue: "BLUE", Amount: dec(10)})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.True(t, dec(40).Equal(f.store.Get(id).RealBalance))
}

func TestSettlementPublishesPublicBet(t *testing.T) {
	f := newFixture(t, redSeven)
	sub := f.hub.Subscribe(broadcast.TopicNewPublicBet)
	defer sub.Close()
	id := f.store.Put(wallet.Account{Username: "mia", Avatar: "cat.png", RealBalance: dec(50)})

	_, err := f.svc.Settle(context.Background(), id, betting.Wager{BetType: betting.BetTypeColor, BetValue: "RED", Amount: dec(10)})
	require.NoError(t, err)

	ev := <-sub.Events()
	bet, ok := ev.Payload.(*betting.PublicBet)
	require.True(t, ok)
	assert.Equal(t, "mia", bet.Username)
	assert.Equal(t, "cat.png", bet.Avatar)
	assert.True(t, bet.IsWin)
	assert.True(t, dec(20).Equal(bet.Winnings))

	recent, err := f.svc.RecentBets(context.Background())
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	logs, err := f.svc.GameHistory(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].OutcomeNumber)
	assert.Equal(t, 7, *logs[0].OutcomeNumber)
}
