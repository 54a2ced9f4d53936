package budget

import (
	"errors"
	"testing"
	"time"
)

func TestLedgerReserveSettle(t *testing.T) {
	l := NewLedger(1000)

	if err := l.Reserve(400); err != nil {
		t.Fatalf("Reserve(400) error = %v", err)
	}
	if got := l.Remaining(); got != 600 {
		t.Errorf("Remaining() = %d, want 600", got)
	}

	l.Settle(400, 150)
	if got := l.Spent(); got != 150 {
		t.Errorf("Spent() = %d, want 150", got)
	}
	if got := l.Remaining(); got != 850 {
		t.Errorf("Remaining() = %d, want 850", got)
	}
}

func TestLedgerExhaustion(t *testing.T) {
	l := NewLedger(500)

	if err := l.Reserve(300); err != nil {
		t.Fatalf("first Reserve error = %v", err)
	}
	err := l.Reserve(300)
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("second Reserve error = %v, want ErrBudgetExhausted", err)
	}

	// Releasing the reservation frees the headroom again.
	l.Release(300)
	if err := l.Reserve(300); err != nil {
		t.Errorf("Reserve after Release error = %v", err)
	}
}

func TestLedgerCountsReservationsAgainstCeiling(t *testing.T) {
	l := NewLedger(100)

	if err := l.Reserve(100); err != nil {
		t.Fatalf("Reserve error = %v", err)
	}
	if err := l.Reserve(1); !errors.Is(err, ErrBudgetExhausted) {
		t.Errorf("Reserve with full reservation error = %v, want ErrBudgetExhausted", err)
	}
}

func TestLedgerMonthlyRollover(t *testing.T) {
	current := time.Date(2026, time.January, 20, 0, 0, 0, 0, time.UTC)
	l := NewLedger(100)
	l.now = func() time.Time { return current }
	l.period = l.currentPeriod()

	if err := l.Reserve(100); err != nil {
		t.Fatalf("Reserve error = %v", err)
	}
	l.Settle(100, 100)
	if err := l.Reserve(1); !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("Reserve error = %v, want ErrBudgetExhausted", err)
	}

	current = current.AddDate(0, 1, 0)
	if err := l.Reserve(100); err != nil {
		t.Errorf("Reserve after rollover error = %v", err)
	}
}
