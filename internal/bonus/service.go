// Package bonus holds the rollover rules for bonus funds: granting, wagering
// progress and the one-time sweep into the real balance.
package bonus

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInsufficientFunds = errors.New("stake exceeds combined balance")

var hundred = decimal.NewFromInt(100)

// Grant adds amount as bonus funds and raises the wagering target by
// amount*multiplier.
func Grant(l *Ledger, amount, multiplier decimal.Decimal) {
	l.Bonus = l.Bonus.Add(amount)
	l.Target = l.Target.Add(amount.Mul(multiplier))
}

// Fund takes stake from the real pool first and the bonus pool for any
// shortfall.
func Fund(l *Ledger, stake decimal.Decimal) (Funding, error) {
	if stake.GreaterThan(l.Real.Add(l.Bonus)) {
		return Funding{}, ErrInsufficientFunds
	}
	f := Funding{FromReal: decimal.Min(stake, l.Real)}
	f.FromBonus = stake.Sub(f.FromReal)
	l.Real = l.Real.Sub(f.FromReal)
	l.Bonus = l.Bonus.Sub(f.FromBonus)
	return f, nil
}

// Track counts the full stake toward rollover while a target is active.
func Track(l *Ledger, stake decimal.Decimal) {
	if l.Target.IsPositive() {
		l.Progress = l.Progress.Add(stake)
	}
}

func Incomplete(l Ledger) bool {
	return l.Target.IsPositive() && l.Progress.LessThan(l.Target)
}

// Credit pays winnings to the bonus pool when the stake touched bonus funds
// and rollover is still open, otherwise to the real pool.
func Credit(l *Ledger, f Funding, winnings decimal.Decimal) {
	if f.FromBonus.IsPositive() && Incomplete(*l) {
		l.Bonus = l.Bonus.Add(winnings)
		return
	}
	l.Real = l.Real.Add(winnings)
}

// Sweep unlocks all bonus funds once progress meets the target and reports
// whether it fired.
func Sweep(l *Ledger) bool {
	if !l.Target.IsPositive() || l.Progress.LessThan(l.Target) {
		return false
	}
	l.Real = l.Real.Add(l.Bonus)
	l.Bonus = decimal.Zero
	l.Target = decimal.Zero
	l.Progress = decimal.Zero
	return true
}

func Progress(l Ledger) WageringProgress {
	p := WageringProgress{
		WageringRequired:  l.Target,
		WageringCompleted: l.Progress,
		Active:            l.Target.IsPositive(),
	}
	if p.Active {
		p.PercentageComplete = l.Progress.Div(l.Target).Mul(hundred).InexactFloat64()
		if p.PercentageComplete > 100 {
			p.PercentageComplete = 100
		}
	}
	return p
}
