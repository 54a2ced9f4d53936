package budget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/otienoanyango/hansard-tales-sub004/pkg/ai"
)

type countingClient struct {
	calls      atomic.Int64
	embedCalls atomic.Int64
	inFlight   atomic.Int64
	maxSeen    atomic.Int64
	err        error
	delay      time.Duration
}

func (c *countingClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	c.calls.Add(1)
	cur := c.inFlight.Add(1)
	for {
		prev := c.maxSeen.Load()
		if cur <= prev || c.maxSeen.CompareAndSwap(prev, cur) {
			break
		}
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.inFlight.Add(-1)
	if c.err != nil {
		return "", c.err
	}
	return "response to " + prompt, nil
}

func (c *countingClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	c.calls.Add(1)
	if c.err != nil {
		return c.err
	}
	return json.Unmarshal([]byte(`{"verdict":"response to `+prompt+`"}`), out)
}

func (c *countingClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	c.embedCalls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []float32{1, 2, 3}, nil
}

func (c *countingClient) ResetMetrics()               {}
func (c *countingClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func wordCount(text string) int { return len(strings.Fields(text)) }

func newTestGuard(inner ai.Client, ceiling, maxCall int64) *GuardedClient {
	return NewGuardedClient(Params{
		Inner:          inner,
		Ledger:         NewLedger(ceiling),
		MaxCallTokens:  maxCall,
		CallsPerSecond: 1000,
		MaxInFlight:    2,
		CacheTTL:       time.Minute,
		CountTokens:    wordCount,
	})
}

func TestGuardCacheDeduplicates(t *testing.T) {
	inner := &countingClient{}
	g := newTestGuard(inner, 10000, 100)
	ctx := context.Background()

	first, err := g.GenerateCompletion(ctx, "analyze this statement")
	if err != nil {
		t.Fatalf("first call error = %v", err)
	}
	second, err := g.GenerateCompletion(ctx, "analyze this statement")
	if err != nil {
		t.Fatalf("second call error = %v", err)
	}
	if first != second {
		t.Errorf("cached response %q differs from original %q", second, first)
	}
	if got := inner.calls.Load(); got != 1 {
		t.Errorf("inner client called %d times, want 1", got)
	}

	// A different prompt misses the cache.
	if _, err := g.GenerateCompletion(ctx, "analyze another statement"); err != nil {
		t.Fatalf("third call error = %v", err)
	}
	if got := inner.calls.Load(); got != 2 {
		t.Errorf("inner client called %d times, want 2", got)
	}
}

func TestGuardStructuredCacheDeduplicates(t *testing.T) {
	inner := &countingClient{}
	g := newTestGuard(inner, 10000, 100)
	ctx := context.Background()

	type verdict struct {
		Verdict string `json:"verdict"`
	}

	var first verdict
	if err := g.GenerateCompletionWithFormat(ctx, "verdict", "a verdict", "judge this statement", &first); err != nil {
		t.Fatalf("first call error = %v", err)
	}
	spent := g.Spent()

	var second verdict
	if err := g.GenerateCompletionWithFormat(ctx, "verdict", "a verdict", "judge this statement", &second); err != nil {
		t.Fatalf("second call error = %v", err)
	}
	if second != first {
		t.Errorf("cached result %+v differs from original %+v", second, first)
	}
	if got := inner.calls.Load(); got != 1 {
		t.Errorf("inner client called %d times, want 1", got)
	}
	if got := g.Spent(); got != spent {
		t.Errorf("Spent() = %d after cache hit, want unchanged %d", got, spent)
	}

	// A different schema name over the same prompt is a different request.
	var third verdict
	if err := g.GenerateCompletionWithFormat(ctx, "appeal", "an appeal", "judge this statement", &third); err != nil {
		t.Fatalf("third call error = %v", err)
	}
	if got := inner.calls.Load(); got != 2 {
		t.Errorf("inner client called %d times, want 2", got)
	}
}

func TestGuardCachedHitCostsNothing(t *testing.T) {
	inner := &countingClient{}
	g := newTestGuard(inner, 10000, 100)
	ctx := context.Background()

	if _, err := g.GenerateCompletion(ctx, "a b c"); err != nil {
		t.Fatalf("call error = %v", err)
	}
	spent := g.Spent()
	if _, err := g.GenerateCompletion(ctx, "a b c"); err != nil {
		t.Fatalf("cached call error = %v", err)
	}
	if got := g.Spent(); got != spent {
		t.Errorf("Spent() = %d after cache hit, want unchanged %d", got, spent)
	}
}

func TestGuardFailsFastWhenExhausted(t *testing.T) {
	inner := &countingClient{}
	g := newTestGuard(inner, 50, 100) // ceiling below one worst-case call
	ctx := context.Background()

	start := time.Now()
	_, err := g.GenerateCompletion(ctx, "too expensive")
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("error = %v, want ErrBudgetExhausted", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("exhausted call took %v, want immediate failure", elapsed)
	}
	if got := inner.calls.Load(); got != 0 {
		t.Errorf("inner client called %d times, want 0", got)
	}
}

func TestGuardReleasesReservationOnError(t *testing.T) {
	inner := &countingClient{err: errors.New("provider down")}
	g := newTestGuard(inner, 100, 100)
	ctx := context.Background()

	if _, err := g.GenerateCompletion(ctx, "p1"); err == nil {
		t.Fatal("expected provider error")
	}
	if got := g.Spent(); got != 0 {
		t.Errorf("Spent() = %d after failed call, want 0", got)
	}

	// The full reservation must be available again.
	inner.err = nil
	if _, err := g.GenerateCompletion(ctx, "p2"); err != nil {
		t.Errorf("call after release error = %v", err)
	}
}

func TestGuardCeilingUnderConcurrency(t *testing.T) {
	const (
		maxCall = 10
		ceiling = 45 // admits at most 4 concurrent worst-case reservations
		workers = 20
	)
	inner := &countingClient{delay: 5 * time.Millisecond}
	g := newTestGuard(inner, ceiling, maxCall)
	ctx := context.Background()

	var wg sync.WaitGroup
	var exhausted atomic.Int64
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := g.GenerateCompletion(ctx, fmt.Sprintf("statement %d", n))
			if errors.Is(err, ErrBudgetExhausted) {
				exhausted.Add(1)
			} else if err != nil {
				t.Errorf("worker %d: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	if got := g.Spent(); got > ceiling {
		t.Errorf("Spent() = %d exceeds ceiling %d", got, ceiling)
	}
	if exhausted.Load() == 0 {
		t.Error("expected some workers to hit the exhausted budget")
	}
}

func TestGuardInFlightCap(t *testing.T) {
	inner := &countingClient{delay: 20 * time.Millisecond}
	g := newTestGuard(inner, 100000, 10)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := g.GenerateCompletion(ctx, strings.Repeat("x ", n+1)); err != nil {
				t.Errorf("worker %d: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	if got := inner.maxSeen.Load(); got > 2 {
		t.Errorf("observed %d concurrent calls, want at most 2", got)
	}
}

func TestGuardEmbeddingCacheAndCost(t *testing.T) {
	inner := &countingClient{}
	g := newTestGuard(inner, 10000, 100)
	ctx := context.Background()

	if _, err := g.GenerateEmbedding(ctx, []byte("one two three")); err != nil {
		t.Fatalf("embedding error = %v", err)
	}
	if got := g.Spent(); got != 3 {
		t.Errorf("Spent() = %d, want 3", got)
	}
	if _, err := g.GenerateEmbedding(ctx, []byte("one two three")); err != nil {
		t.Fatalf("cached embedding error = %v", err)
	}
	if got := inner.embedCalls.Load(); got != 1 {
		t.Errorf("inner embed calls = %d, want 1", got)
	}
}
