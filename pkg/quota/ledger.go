// Package quota budgets calls against the upstream exercise database.
//
// The upstream plan allows 500 calls/day and 2000 calls/month; the ledger
// enforces lower ceilings to keep headroom. Exhaustion is a normal terminal
// state, not an error: callers get a retry horizon from ResetAt.
package quota

import (
	"context"
	"fmt"
	"time"

	shared "github.com/jaronwright/workouts-sub003/pkg"
)

const dayFormat = "2006-01-02"

// Ledger tracks daily and trailing-30-day call counts against fixed budgets.
type Ledger struct {
	db             shared.Database
	dailyCeiling   int
	monthlyCeiling int
	now            func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock injects a time source, used by tests to pin the date.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithCeilings overrides the default daily/monthly ceilings.
func WithCeilings(daily, monthly int) Option {
	return func(l *Ledger) {
		l.dailyCeiling = daily
		l.monthlyCeiling = monthly
	}
}

func NewLedger(db shared.Database, opts ...Option) *Ledger {
	l := &Ledger{
		db:             db,
		dailyCeiling:   shared.DailyCallCeiling,
		monthlyCeiling: shared.MonthlyCallCeiling,
		now:            time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// CanCall reports whether another upstream call fits the budget.
func (l *Ledger) CanCall(ctx context.Context) (bool, error) {
	daily, monthly, err := l.counts(ctx)
	if err != nil {
		return false, err
	}
	return daily < l.dailyCeiling && monthly < l.monthlyCeiling, nil
}

// RecordCalls adds n calls to today's counter. Callers must invoke this
// exactly once per batch of HTTP attempts, with n equal to the number of
// requests actually issued (a 429 retry counts).
func (l *Ledger) RecordCalls(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	day := l.now().UTC().Format(dayFormat)
	if err := l.db.IncrementUsage(ctx, day, n); err != nil {
		return fmt.Errorf("record %d calls for %s: %w", n, day, err)
	}
	return nil
}

// ResetAt returns when callers may try again once CanCall is false: the
// start of the next UTC day for daily exhaustion, or the start of the next
// month when the rolling monthly budget is spent. With both budgets spent
// the monthly horizon wins, since tomorrow the month would still be over.
func (l *Ledger) ResetAt(ctx context.Context) (time.Time, error) {
	_, monthly, err := l.counts(ctx)
	if err != nil {
		return time.Time{}, err
	}

	now := l.now().UTC()
	reset := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	if monthly >= l.monthlyCeiling {
		if monthStart := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC); monthStart.After(reset) {
			reset = monthStart
		}
	}
	return reset, nil
}

// counts returns today's call count and the trailing-30-day total
// (today inclusive).
func (l *Ledger) counts(ctx context.Context) (int, int, error) {
	now := l.now().UTC()
	today := now.Format(dayFormat)

	counter, err := l.db.GetUsage(ctx, today)
	if err != nil {
		return 0, 0, fmt.Errorf("get usage for %s: %w", today, err)
	}
	daily := 0
	if counter != nil {
		daily = counter.CallsMade
	}

	since := now.AddDate(0, 0, -29).Format(dayFormat)
	counters, err := l.db.ListUsageSince(ctx, since)
	if err != nil {
		return 0, 0, fmt.Errorf("list usage since %s: %w", since, err)
	}
	monthly := 0
	for _, c := range counters {
		monthly += c.CallsMade
	}

	return daily, monthly, nil
}
