package budget

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrBudgetExhausted is returned when a reservation would push committed
// plus in-flight usage past the monthly ceiling.
var ErrBudgetExhausted = errors.New("monthly token budget exhausted")

// Ledger tracks token spending against a monthly ceiling. A call reserves its
// worst case before dispatch and settles to actual usage afterwards, so the
// ceiling can never be exceeded by more than the reservations already in
// flight when it was reached.
type Ledger struct {
	mu       sync.Mutex
	ceiling  int64
	spent    int64
	reserved int64
	period   string
	now      func() time.Time
}

func NewLedger(ceiling int64) *Ledger {
	l := &Ledger{ceiling: ceiling, now: time.Now}
	l.period = l.currentPeriod()
	return l
}

func (l *Ledger) currentPeriod() string {
	return l.now().UTC().Format("2006-01")
}

// rollover resets counters when the calendar month changes. Caller holds mu.
func (l *Ledger) rollover() {
	if p := l.currentPeriod(); p != l.period {
		l.period = p
		l.spent = 0
	}
}

// Reserve atomically checks the remaining budget and reserves tokens. It
// fails fast with ErrBudgetExhausted instead of queueing.
func (l *Ledger) Reserve(tokens int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()
	if l.spent+l.reserved+tokens > l.ceiling {
		return fmt.Errorf("%w: spent=%d reserved=%d requested=%d ceiling=%d",
			ErrBudgetExhausted, l.spent, l.reserved, tokens, l.ceiling)
	}
	l.reserved += tokens
	return nil
}

// Settle replaces a reservation with the tokens actually consumed.
func (l *Ledger) Settle(reservedTokens, actualTokens int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()
	l.reserved -= reservedTokens
	if l.reserved < 0 {
		l.reserved = 0
	}
	l.spent += actualTokens
}

// Release drops a reservation without recording spend, for calls that never
// reached the provider.
func (l *Ledger) Release(reservedTokens int64) {
	l.Settle(reservedTokens, 0)
}

// Spent reports tokens committed in the current period.
func (l *Ledger) Spent() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()
	return l.spent
}

// Remaining reports tokens still available to reserve.
func (l *Ledger) Remaining() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()
	return l.ceiling - l.spent - l.reserved
}
