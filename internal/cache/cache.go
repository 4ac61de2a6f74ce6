package cache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/congo-pay/merchant_payouts/internal/logging"
	"github.com/congo-pay/merchant_payouts/pkg/dto"
)

const (
	DefaultStaleTime = 60 * time.Second
	DefaultGCTime    = 5 * time.Minute
	DefaultRetries   = 2
	DefaultPageSize  = 15

	baseRetryDelay = time.Second
	maxRetryDelay  = 30 * time.Second
)

var (
	// ErrNoMorePages is returned by NextPage once the feed is exhausted.
	ErrNoMorePages = errors.New("no more activity pages")
	// ErrPageInFlight is returned by NextPage while another page is loading.
	ErrPageInFlight = errors.New("activity page fetch already in progress")
)

// Fetcher loads merchant data from the API.
type Fetcher interface {
	Merchant(ctx context.Context) (dto.MerchantResponse, error)
	Activity(ctx context.Context, cursor string, limit int) (dto.ActivityPage, error)
}

// Options tunes the cache. Zero values take the defaults.
type Options struct {
	StaleTime time.Duration
	GCTime    time.Duration
	// Retries is the number of extra attempts after a failed read. Negative
	// disables retries.
	Retries  int
	PageSize int
	// RetryDelay returns the wait before retry attempt n (starting at 0).
	RetryDelay func(attempt int) time.Duration
	Now        func() time.Time
	Logger     *slog.Logger
}

type merchantEntry struct {
	value     dto.MerchantResponse
	fetchedAt time.Time
	lastUsed  time.Time
	stale     bool
}

type activityEntry struct {
	pages     []dto.ActivityPage
	fetchedAt time.Time
	lastUsed  time.Time
}

// Cache is a read-through cache of the merchant balance and the paginated
// activity feed. Concurrent reads of the same data share one request.
type Cache struct {
	fetcher Fetcher
	opts    Options
	group   singleflight.Group

	mu           sync.Mutex
	merchant     *merchantEntry
	merchantGen  uint64
	activity     *activityEntry
	activityGen  uint64
	pageInFlight bool
}

// New creates a cache in front of fetcher.
func New(fetcher Fetcher, opts Options) *Cache {
	if opts.StaleTime <= 0 {
		opts.StaleTime = DefaultStaleTime
	}
	if opts.GCTime <= 0 {
		opts.GCTime = DefaultGCTime
	}
	if opts.Retries == 0 {
		opts.Retries = DefaultRetries
	} else if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.RetryDelay == nil {
		opts.RetryDelay = Backoff
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Cache{fetcher: fetcher, opts: opts}
}

// Backoff doubles from one second per attempt, capped at thirty seconds.
func Backoff(attempt int) time.Duration {
	d := baseRetryDelay
	for i := 0; i < attempt && d < maxRetryDelay; i++ {
		d *= 2
	}
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	return d
}

// Merchant returns the merchant account, fetching it when the cached copy is
// missing, stale or invalidated.
func (c *Cache) Merchant(ctx context.Context) (dto.MerchantResponse, error) {
	c.mu.Lock()
	now := c.opts.Now()
	if e := c.merchant; e != nil && !e.stale && now.Sub(e.fetchedAt) < c.opts.StaleTime {
		e.lastUsed = now
		v := copyMerchant(e.value)
		c.mu.Unlock()
		return v, nil
	}
	gen := c.merchantGen
	c.mu.Unlock()

	key := "merchant:" + strconv.FormatUint(gen, 10)
	v, err := c.shared(ctx, key, func(ctx context.Context) (any, error) {
		m, err := retry(ctx, c, "merchant", func(ctx context.Context) (dto.MerchantResponse, error) {
			return c.fetcher.Merchant(ctx)
		})
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if gen == c.merchantGen {
			now := c.opts.Now()
			c.merchant = &merchantEntry{value: m, fetchedAt: now, lastUsed: now}
		}
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return dto.MerchantResponse{}, err
	}
	return copyMerchant(v.(dto.MerchantResponse)), nil
}

// PeekMerchant returns the cached merchant account without fetching, even
// when older than the stale time. ok is false when nothing is cached or the
// entry was invalidated.
func (c *Cache) PeekMerchant() (dto.MerchantResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.merchant == nil || c.merchant.stale {
		return dto.MerchantResponse{}, false
	}
	return copyMerchant(c.merchant.value), true
}

// InvalidateMerchant forces the next Merchant call to refetch. Fetches
// already in flight are not stored.
func (c *Cache) InvalidateMerchant() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.merchantGen++
	if c.merchant != nil {
		c.merchant.stale = true
	}
}

// FirstPage returns the first activity page, refetching it when stale.
// A refetch drops the pages loaded after it.
func (c *Cache) FirstPage(ctx context.Context) (dto.ActivityPage, error) {
	c.mu.Lock()
	now := c.opts.Now()
	if e := c.activity; e != nil && len(e.pages) > 0 && now.Sub(e.fetchedAt) < c.opts.StaleTime {
		e.lastUsed = now
		p := copyPage(e.pages[0])
		c.mu.Unlock()
		return p, nil
	}
	gen := c.activityGen
	c.mu.Unlock()

	key := "activity:" + strconv.FormatUint(gen, 10)
	v, err := c.shared(ctx, key, func(ctx context.Context) (any, error) {
		page, err := retry(ctx, c, "activity", func(ctx context.Context) (dto.ActivityPage, error) {
			return c.fetcher.Activity(ctx, "", c.opts.PageSize)
		})
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if gen == c.activityGen {
			now := c.opts.Now()
			c.activityGen++
			c.activity = &activityEntry{pages: []dto.ActivityPage{copyPage(page)}, fetchedAt: now, lastUsed: now}
		}
		c.mu.Unlock()
		return page, nil
	})
	if err != nil {
		return dto.ActivityPage{}, err
	}
	return copyPage(v.(dto.ActivityPage)), nil
}

// NextPage loads the page after the last cached one. It loads the first
// page when nothing is cached yet.
func (c *Cache) NextPage(ctx context.Context) (dto.ActivityPage, error) {
	c.mu.Lock()
	if c.activity == nil || len(c.activity.pages) == 0 {
		c.mu.Unlock()
		return c.FirstPage(ctx)
	}
	last := c.activity.pages[len(c.activity.pages)-1]
	if !last.HasMore || last.NextCursor == nil {
		c.mu.Unlock()
		return dto.ActivityPage{}, ErrNoMorePages
	}
	if c.pageInFlight {
		c.mu.Unlock()
		return dto.ActivityPage{}, ErrPageInFlight
	}
	c.pageInFlight = true
	cursor := *last.NextCursor
	gen := c.activityGen
	c.mu.Unlock()

	page, err := retry(ctx, c, "activity", func(ctx context.Context) (dto.ActivityPage, error) {
		return c.fetcher.Activity(ctx, cursor, c.opts.PageSize)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pageInFlight = false
	if err != nil {
		return dto.ActivityPage{}, err
	}
	if gen == c.activityGen && c.activity != nil {
		c.activity.pages = append(c.activity.pages, copyPage(page))
		c.activity.lastUsed = c.opts.Now()
	}
	return copyPage(page), nil
}

// Pages returns the cached activity pages in fetch order.
func (c *Cache) Pages() []dto.ActivityPage {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activity == nil {
		return nil
	}
	out := make([]dto.ActivityPage, 0, len(c.activity.pages))
	for _, p := range c.activity.pages {
		out = append(out, copyPage(p))
	}
	return out
}

// Items flattens the cached pages in fetch order.
func (c *Cache) Items() []dto.ActivityItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activity == nil {
		return nil
	}
	var out []dto.ActivityItem
	for _, p := range c.activity.pages {
		out = append(out, p.Items...)
	}
	return out
}

// HasMore reports whether NextPage can load anything. It is true before the
// first page has been loaded.
func (c *Cache) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activity == nil || len(c.activity.pages) == 0 {
		return true
	}
	return c.activity.pages[len(c.activity.pages)-1].HasMore
}

// PatchActivityFirstPage prepends item to the first cached page. It is a
// no-op when no page is cached or the item is already listed.
func (c *Cache) PatchActivityFirstPage(item dto.ActivityItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activity == nil || len(c.activity.pages) == 0 {
		return
	}
	first := c.activity.pages[0]
	for _, it := range first.Items {
		if it.ID == item.ID {
			return
		}
	}
	items := make([]dto.ActivityItem, 0, len(first.Items)+1)
	items = append(items, item)
	items = append(items, first.Items...)
	c.activity.pages[0].Items = items
}

// Sweep drops entries unused for longer than the GC time.
func (c *Cache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.opts.Now()
	if c.merchant != nil && now.Sub(c.merchant.lastUsed) > c.opts.GCTime {
		c.merchant = nil
		c.opts.Logger.Debug("evicted merchant entry")
	}
	if c.activity != nil && !c.pageInFlight && now.Sub(c.activity.lastUsed) > c.opts.GCTime {
		c.activity = nil
		c.activityGen++
		c.opts.Logger.Debug("evicted activity entry")
	}
}

// Run sweeps every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// shared runs fn once per key for all concurrent callers. The fetch is
// detached from the first caller's cancellation; each caller stops waiting
// when its own ctx is done.
func (c *Cache) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		return fn(detached)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

func retry[T any](ctx context.Context, c *Cache, what string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= c.opts.Retries || ctx.Err() != nil {
			c.opts.Logger.Warn("cache read failed", slog.String("query", what), slog.Int("attempts", attempt+1), slog.Any("error", err))
			return zero, err
		}

		delay := c.opts.RetryDelay(attempt)
		c.opts.Logger.Debug("retrying cache read", slog.String("query", what), slog.Int("attempt", attempt+1), slog.Duration("delay", delay))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

func copyMerchant(m dto.MerchantResponse) dto.MerchantResponse {
	if m.Activity != nil {
		m.Activity = append([]dto.ActivityItem(nil), m.Activity...)
	}
	return m
}

func copyPage(p dto.ActivityPage) dto.ActivityPage {
	out := dto.ActivityPage{HasMore: p.HasMore, Items: append([]dto.ActivityItem(nil), p.Items...)}
	if p.NextCursor != nil {
		cursor := *p.NextCursor
		out.NextCursor = &cursor
	}
	return out
}
