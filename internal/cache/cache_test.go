package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/congo-pay/merchant_payouts/internal/ledger"
	"github.com/congo-pay/merchant_payouts/pkg/dto"
)

var errBoom = errors.New("connection refused")

type fakeFetcher struct {
	mu            sync.Mutex
	merchantCalls int
	activityCalls int
	failMerchant  int
	balance       int64
	items         []dto.ActivityItem

	merchantGate chan struct{}
	pageGate     chan struct{}
	started      chan struct{}
}

func newFakeFetcher(n int) *fakeFetcher {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	items := make([]dto.ActivityItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, dto.ActivityItem{
			ID:   fmt.Sprintf("act_%03d", i+1),
			Type: dto.ActivityDeposit,
			Date: now.Add(-time.Duration(i) * time.Hour),
		})
	}
	return &fakeFetcher{balance: 500_000, items: items, started: make(chan struct{}, 16)}
}

func (f *fakeFetcher) Merchant(_ context.Context) (dto.MerchantResponse, error) {
	f.mu.Lock()
	f.merchantCalls++
	fail := f.merchantCalls <= f.failMerchant
	gate := f.merchantGate
	balance := f.balance
	f.mu.Unlock()

	if gate != nil {
		f.started <- struct{}{}
		<-gate
	}
	if fail {
		return dto.MerchantResponse{}, errBoom
	}
	return dto.MerchantResponse{AvailableBalance: balance, Currency: dto.CurrencyGBP}, nil
}

func (f *fakeFetcher) Activity(_ context.Context, cursor string, limit int) (dto.ActivityPage, error) {
	f.mu.Lock()
	f.activityCalls++
	gate := f.pageGate
	f.mu.Unlock()

	if gate != nil && cursor != "" {
		f.started <- struct{}{}
		<-gate
	}
	return ledger.Paginate(f.items, cursor, limit), nil
}

func (f *fakeFetcher) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.merchantCalls, f.activityCalls
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(f *fakeFetcher) (*Cache, *testClock) {
	clock := &testClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := New(f, Options{
		PageSize:   5,
		RetryDelay: func(int) time.Duration { return time.Millisecond },
		Now:        clock.Now,
	})
	return c, clock
}

func TestMerchantServesFreshValue(t *testing.T) {
	f := newFakeFetcher(0)
	c, clock := newTestCache(f)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.Merchant(ctx); err != nil {
			t.Fatalf("merchant: %v", err)
		}
		clock.Advance(10 * time.Second)
	}
	if calls, _ := f.calls(); calls != 1 {
		t.Fatalf("expected one fetch while fresh, got %d", calls)
	}

	clock.Advance(time.Minute)
	if _, err := c.Merchant(ctx); err != nil {
		t.Fatalf("merchant: %v", err)
	}
	if calls, _ := f.calls(); calls != 2 {
		t.Fatalf("expected refetch once stale, got %d fetches", calls)
	}
}

func TestMerchantCoalescesConcurrentReads(t *testing.T) {
	f := newFakeFetcher(0)
	f.merchantGate = make(chan struct{})
	c, _ := newTestCache(f)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := c.Merchant(context.Background())
			if err == nil && m.AvailableBalance != 500_000 {
				err = fmt.Errorf("unexpected balance %d", m.AvailableBalance)
			}
			errs <- err
		}()
	}

	<-f.started
	time.Sleep(50 * time.Millisecond)
	close(f.merchantGate)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("reader failed: %v", err)
		}
	}
	if calls, _ := f.calls(); calls != 1 {
		t.Fatalf("expected a single shared fetch, got %d", calls)
	}
}

func TestMerchantRetriesBeforeSucceeding(t *testing.T) {
	f := newFakeFetcher(0)
	f.failMerchant = 2
	c, _ := newTestCache(f)

	m, err := c.Merchant(context.Background())
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if m.AvailableBalance != 500_000 {
		t.Fatalf("unexpected merchant %+v", m)
	}
	if calls, _ := f.calls(); calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestMerchantSurfacesErrorAfterRetries(t *testing.T) {
	f := newFakeFetcher(0)
	f.failMerchant = 100
	c, _ := newTestCache(f)

	if _, err := c.Merchant(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("expected terminal error, got %v", err)
	}
	if calls, _ := f.calls(); calls != 3 {
		t.Fatalf("expected initial attempt plus 2 retries, got %d", calls)
	}
	if _, ok := c.PeekMerchant(); ok {
		t.Fatalf("failed fetch must not populate the cache")
	}
}

func TestInvalidateMerchantForcesRefetch(t *testing.T) {
	f := newFakeFetcher(0)
	c, _ := newTestCache(f)
	ctx := context.Background()

	if _, err := c.Merchant(ctx); err != nil {
		t.Fatalf("merchant: %v", err)
	}
	f.mu.Lock()
	f.balance = 460_000
	f.mu.Unlock()

	c.InvalidateMerchant()
	if peeked, ok := c.PeekMerchant(); ok {
		t.Fatalf("peek must not return an invalidated balance, got %+v", peeked)
	}

	m, err := c.Merchant(ctx)
	if err != nil {
		t.Fatalf("merchant: %v", err)
	}
	if m.AvailableBalance != 460_000 {
		t.Fatalf("expected refetched balance, got %d", m.AvailableBalance)
	}
	if peeked, ok := c.PeekMerchant(); !ok || peeked.AvailableBalance != 460_000 {
		t.Fatalf("expected peek of the refetched balance, got %+v ok=%v", peeked, ok)
	}
}

func TestInvalidateDuringFetchDiscardsResult(t *testing.T) {
	f := newFakeFetcher(0)
	f.merchantGate = make(chan struct{})
	c, _ := newTestCache(f)

	done := make(chan error, 1)
	go func() {
		_, err := c.Merchant(context.Background())
		done <- err
	}()
	<-f.started
	c.InvalidateMerchant()
	close(f.merchantGate)
	if err := <-done; err != nil {
		t.Fatalf("merchant: %v", err)
	}

	f.mu.Lock()
	f.merchantGate = nil
	f.mu.Unlock()
	if _, err := c.Merchant(context.Background()); err != nil {
		t.Fatalf("merchant: %v", err)
	}
	if calls, _ := f.calls(); calls != 2 {
		t.Fatalf("expected the pre-invalidation result to be dropped, got %d fetches", calls)
	}
}

func TestMerchantHonoursCallerContext(t *testing.T) {
	f := newFakeFetcher(0)
	f.merchantGate = make(chan struct{})
	defer close(f.merchantGate)
	c, _ := newTestCache(f)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Merchant(ctx)
		done <- err
	}()
	<-f.started
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestActivityPagination(t *testing.T) {
	f := newFakeFetcher(12)
	c, _ := newTestCache(f)
	ctx := context.Background()

	first, err := c.FirstPage(ctx)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Items) != 5 || !c.HasMore() {
		t.Fatalf("unexpected first page %+v", first)
	}

	for c.HasMore() {
		if _, err := c.NextPage(ctx); err != nil {
			t.Fatalf("next page: %v", err)
		}
	}
	if _, err := c.NextPage(ctx); !errors.Is(err, ErrNoMorePages) {
		t.Fatalf("expected ErrNoMorePages, got %v", err)
	}

	items := c.Items()
	if len(items) != 12 || len(c.Pages()) != 3 {
		t.Fatalf("expected 12 items over 3 pages, got %d items over %d pages", len(items), len(c.Pages()))
	}
	seen := map[string]bool{}
	for i, it := range items {
		if seen[it.ID] {
			t.Fatalf("duplicate item %s", it.ID)
		}
		seen[it.ID] = true
		if i > 0 && it.Date.After(items[i-1].Date) {
			t.Fatalf("items out of order at %d", i)
		}
	}
}

func TestNextPageGuardsInFlightFetch(t *testing.T) {
	f := newFakeFetcher(12)
	c, _ := newTestCache(f)
	ctx := context.Background()

	if _, err := c.FirstPage(ctx); err != nil {
		t.Fatalf("first page: %v", err)
	}
	f.mu.Lock()
	f.pageGate = make(chan struct{})
	f.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := c.NextPage(ctx)
		done <- err
	}()
	<-f.started

	if _, err := c.NextPage(ctx); !errors.Is(err, ErrPageInFlight) {
		t.Fatalf("expected ErrPageInFlight, got %v", err)
	}
	close(f.pageGate)
	if err := <-done; err != nil {
		t.Fatalf("next page: %v", err)
	}
	if got := len(c.Pages()); got != 2 {
		t.Fatalf("expected exactly two pages, got %d", got)
	}
}

func TestPatchActivityFirstPage(t *testing.T) {
	f := newFakeFetcher(8)
	c, _ := newTestCache(f)
	item := dto.ActivityItem{ID: "payout_new", Type: dto.ActivityPayout, Amount: -40_000}

	c.PatchActivityFirstPage(item)
	if c.Pages() != nil {
		t.Fatalf("patch must be a no-op when nothing is cached")
	}

	if _, err := c.FirstPage(context.Background()); err != nil {
		t.Fatalf("first page: %v", err)
	}
	if _, err := c.NextPage(context.Background()); err != nil {
		t.Fatalf("next page: %v", err)
	}
	c.PatchActivityFirstPage(item)
	c.PatchActivityFirstPage(item)

	pages := c.Pages()
	if pages[0].Items[0].ID != "payout_new" || len(pages[0].Items) != 6 {
		t.Fatalf("expected patched item first on page one, got %+v", pages[0].Items)
	}
	if len(pages[1].Items) != 3 {
		t.Fatalf("later pages must be untouched, got %d items", len(pages[1].Items))
	}
	if _, calls := f.calls(); calls != 2 {
		t.Fatalf("patch must not fetch, got %d activity calls", calls)
	}
}

func TestReturnedDataIsCopied(t *testing.T) {
	f := newFakeFetcher(8)
	c, _ := newTestCache(f)

	page, err := c.FirstPage(context.Background())
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	page.Items[0].ID = "mutated"
	*page.NextCursor = "mutated"

	again := c.Pages()[0]
	if again.Items[0].ID == "mutated" || *again.NextCursor == "mutated" {
		t.Fatalf("cached page was mutated through a returned copy")
	}
}

func TestSweepEvictsIdleEntries(t *testing.T) {
	f := newFakeFetcher(8)
	c, clock := newTestCache(f)
	ctx := context.Background()

	if _, err := c.Merchant(ctx); err != nil {
		t.Fatalf("merchant: %v", err)
	}
	if _, err := c.FirstPage(ctx); err != nil {
		t.Fatalf("first page: %v", err)
	}

	clock.Advance(4 * time.Minute)
	c.Sweep()
	if _, ok := c.PeekMerchant(); !ok {
		t.Fatalf("entry evicted before the gc time")
	}

	clock.Advance(2 * time.Minute)
	c.Sweep()
	if _, ok := c.PeekMerchant(); ok {
		t.Fatalf("expected merchant to be evicted")
	}
	if c.Pages() != nil {
		t.Fatalf("expected activity to be evicted")
	}
}

func TestRunStopsWithContext(t *testing.T) {
	c, _ := newTestCache(newFakeFetcher(0))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestBackoff(t *testing.T) {
	cases := map[int]time.Duration{0: time.Second, 1: 2 * time.Second, 2: 4 * time.Second, 10: 30 * time.Second}
	for attempt, want := range cases {
		if got := Backoff(attempt); got != want {
			t.Fatalf("Backoff(%d) = %s, want %s", attempt, got, want)
		}
	}
}
