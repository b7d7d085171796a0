package credits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/blissito/formmy-agent-core/internal/core/errx"
	"github.com/blissito/formmy-agent-core/internal/plan"
	logx "github.com/blissito/formmy-agent-core/pkg/logger"
)

// Account holds the two credit pools for one user. Purchased credits never
// expire; monthly usage resets lazily when the calendar month of
// CreditsResetAt differs from the current month. LifetimeCreditsUsed is a
// monotonic audit counter.
type Account struct {
	UserID              string    `json:"user_id"`
	PurchasedCredits    int       `json:"purchased_credits"`
	MonthlyCreditsUsed  int       `json:"monthly_credits_used"`
	CreditsResetAt      time.Time `json:"credits_reset_at"`
	LifetimeCreditsUsed int       `json:"lifetime_credits_used"`
}

// Balance is the read-only view handed to callers.
type Balance struct {
	Purchased        int `json:"purchased"`
	MonthlyQuota     int `json:"monthly_quota"`
	MonthlyUsed      int `json:"monthly_used"`
	MonthlyRemaining int `json:"monthly_remaining"`
	Available        int `json:"available"`
}

// SpendResult reports how one successful spend was split across pools.
type SpendResult struct {
	FromPurchased int     `json:"from_purchased"`
	FromMonthly   int     `json:"from_monthly"`
	Remaining     Balance `json:"remaining"`
}

// InsufficientCreditsError carries the shortfall and the pool breakdown so
// the caller can render an actionable message.
type InsufficientCreditsError struct {
	Requested        int
	Available        int
	Purchased        int
	MonthlyRemaining int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: need %d, have %d (purchased %d, monthly %d)",
		e.Requested, e.Available, e.Purchased, e.MonthlyRemaining)
}

// Shortfall is the number of credits missing for the rejected operation.
func (e *InsufficientCreditsError) Shortfall() int {
	return e.Requested - e.Available
}

// ErrVersionConflict is returned by Store.Save when the account changed
// since it was loaded. The ledger retries the whole spend on conflict.
var ErrVersionConflict = errors.New("credits: account version conflict")

// ErrAccountNotFound is returned by Store.Load for unknown users. The
// ledger treats it as a zeroed account.
var ErrAccountNotFound = errors.New("credits: account not found")

// Store persists credit accounts with optimistic versioning. Load returns
// the current version token; Save fails with ErrVersionConflict when that
// version is stale. This is the serialization point for concurrent spends
// against one account.
type Store interface {
	Load(ctx context.Context, userID string) (*Account, uint64, error)
	Save(ctx context.Context, acc *Account, version uint64) error
}

var consistencyRollbacks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "credits_ledger_consistency_rollbacks_total",
	Help: "Spend operations reversed by the ledger post-condition check.",
})

var conflictRetries = promauto.NewCounter(prometheus.CounterOpts{
	Name: "credits_ledger_cas_retries_total",
	Help: "Spend/add operations retried after an optimistic version conflict.",
})

const defaultMaxRetries = 5

// Ledger meters consumption against the two credit pools. All mutation goes
// through Spend, Rollback and AddPurchased; nothing else writes accounts.
type Ledger struct {
	store      Store
	now        func() time.Time
	maxRetries int
}

// Option customizes ledger construction.
type Option func(*Ledger)

// WithClock overrides the wall clock, mainly for month-reset tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithMaxRetries bounds the CAS retry loop.
func WithMaxRetries(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxRetries = n
		}
	}
}

func NewLedger(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:      store,
		now:        time.Now,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Spend deducts amount for the user on plan p, purchased pool first.
//
// Spend order is purchased-first: non-expiring purchased credits absorb load
// before the monthly allotment is touched. Product copy has at times implied
// the opposite order; this reproduces the shipped behavior deliberately.
func (l *Ledger) Spend(ctx context.Context, userID string, p plan.Plan, amount int) (*SpendResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("credits: spend amount must be positive, got %d", amount)
	}

	quota := plan.Quota(p)

	for attempt := 0; ; attempt++ {
		acc, version, err := l.load(ctx, userID)
		if err != nil {
			return nil, err
		}

		l.resetIfNewMonth(acc)

		monthlyRemaining := quota - acc.MonthlyCreditsUsed
		if monthlyRemaining < 0 {
			monthlyRemaining = 0
		}
		available := acc.PurchasedCredits + monthlyRemaining
		if amount > available {
			return nil, errx.New(&InsufficientCreditsError{
				Requested:        amount,
				Available:        available,
				Purchased:        acc.PurchasedCredits,
				MonthlyRemaining: monthlyRemaining,
			}, errx.KindCredits, 402, "not enough credits for this action")
		}

		fromPurchased := min(acc.PurchasedCredits, amount)
		fromMonthly := amount - fromPurchased

		acc.PurchasedCredits -= fromPurchased
		acc.MonthlyCreditsUsed += fromMonthly
		acc.LifetimeCreditsUsed += amount

		// Post-condition guard. The CAS save below already serializes
		// concurrent spends, but not every backing store runs this under a
		// real transaction, so verify and reverse before persisting.
		if acc.MonthlyCreditsUsed > quota || acc.PurchasedCredits < 0 {
			acc.PurchasedCredits += fromPurchased
			acc.MonthlyCreditsUsed -= fromMonthly
			acc.LifetimeCreditsUsed -= amount
			consistencyRollbacks.Inc()
			logx.Error().
				Str("user_id", userID).
				Int("amount", amount).
				Int("monthly_used", acc.MonthlyCreditsUsed).
				Int("purchased", acc.PurchasedCredits).
				Msg("Credit spend reversed by post-condition check")
			return nil, errx.Consistency(fmt.Errorf("credits: post-condition violated for user %s", userID))
		}

		if err := l.store.Save(ctx, acc, version); err != nil {
			if errors.Is(err, ErrVersionConflict) && attempt < l.maxRetries {
				conflictRetries.Inc()
				continue
			}
			return nil, err
		}

		return &SpendResult{
			FromPurchased: fromPurchased,
			FromMonthly:   fromMonthly,
			Remaining:     l.balanceOf(acc, quota),
		}, nil
	}
}

// Rollback returns a previously spent amount to its pools, monthly portion
// first so a reversed spend restores the exact pre-spend split.
func (l *Ledger) Rollback(ctx context.Context, userID string, p plan.Plan, res *SpendResult) error {
	if res == nil {
		return nil
	}
	for attempt := 0; ; attempt++ {
		acc, version, err := l.load(ctx, userID)
		if err != nil {
			return err
		}

		acc.PurchasedCredits += res.FromPurchased
		acc.MonthlyCreditsUsed -= res.FromMonthly
		if acc.MonthlyCreditsUsed < 0 {
			acc.MonthlyCreditsUsed = 0
		}
		acc.LifetimeCreditsUsed -= res.FromPurchased + res.FromMonthly
		if acc.LifetimeCreditsUsed < 0 {
			acc.LifetimeCreditsUsed = 0
		}

		if err := l.store.Save(ctx, acc, version); err != nil {
			if errors.Is(err, ErrVersionConflict) && attempt < l.maxRetries {
				conflictRetries.Inc()
				continue
			}
			return err
		}
		return nil
	}
}

// AddPurchased credits a completed purchase to the non-expiring pool.
func (l *Ledger) AddPurchased(ctx context.Context, userID string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("credits: purchase amount must be positive, got %d", amount)
	}
	for attempt := 0; ; attempt++ {
		acc, version, err := l.load(ctx, userID)
		if err != nil {
			return err
		}

		acc.PurchasedCredits += amount

		if err := l.store.Save(ctx, acc, version); err != nil {
			if errors.Is(err, ErrVersionConflict) && attempt < l.maxRetries {
				conflictRetries.Inc()
				continue
			}
			return err
		}
		return nil
	}
}

// GetBalance returns the current balance, applying the lazy month reset to
// the returned view without persisting it.
func (l *Ledger) GetBalance(ctx context.Context, userID string, p plan.Plan) (*Balance, error) {
	acc, _, err := l.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	l.resetIfNewMonth(acc)
	b := l.balanceOf(acc, plan.Quota(p))
	return &b, nil
}

func (l *Ledger) load(ctx context.Context, userID string) (*Account, uint64, error) {
	acc, version, err := l.store.Load(ctx, userID)
	if errors.Is(err, ErrAccountNotFound) {
		return &Account{UserID: userID}, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return acc, version, nil
}

// resetIfNewMonth zeroes monthly usage when the wall-clock month changed
// since the last reset, or when the account has never been reset.
func (l *Ledger) resetIfNewMonth(acc *Account) {
	now := l.now()
	if acc.CreditsResetAt.IsZero() ||
		acc.CreditsResetAt.Month() != now.Month() ||
		acc.CreditsResetAt.Year() != now.Year() {
		acc.MonthlyCreditsUsed = 0
		acc.CreditsResetAt = now
	}
}

func (l *Ledger) balanceOf(acc *Account, quota int) Balance {
	remaining := quota - acc.MonthlyCreditsUsed
	if remaining < 0 {
		remaining = 0
	}
	return Balance{
		Purchased:        acc.PurchasedCredits,
		MonthlyQuota:     quota,
		MonthlyUsed:      acc.MonthlyCreditsUsed,
		MonthlyRemaining: remaining,
		Available:        acc.PurchasedCredits + remaining,
	}
}
