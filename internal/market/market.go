// Package market serves the currency, stock and investment panels shown next to
// the ledger.
package market

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"savings/internal/cache"
)

type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	// Change is the daily variation in percent.
	Change decimal.Decimal `json:"change"`
}

type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

type Investment struct {
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Risk          Risk            `json:"risk"`
	Yield         string          `json:"yield"`
	MinInvestment decimal.Decimal `json:"min_investment"`
}

type Snapshot struct {
	Currencies  []Quote      `json:"currencies"`
	Stocks      []Quote      `json:"stocks"`
	Investments []Investment `json:"investments"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type Provider interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// StaticProvider always returns the same snapshot, stamped when it was built.
type StaticProvider struct {
	snap Snapshot
}

func NewStaticProvider(s Snapshot) *StaticProvider {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	if s.Currencies == nil {
		s.Currencies = []Quote{}
	}
	if s.Stocks == nil {
		s.Stocks = []Quote{}
	}
	if s.Investments == nil {
		s.Investments = []Investment{}
	}
	return &StaticProvider{snap: s}
}

func (p *StaticProvider) Snapshot(context.Context) (Snapshot, error) {
	return p.snap, nil
}

const snapshotKey = "snapshot"

// CachedProvider memoizes another provider's snapshot for a TTL. Concurrent
// misses share one upstream call. Snapshots without a timestamp get the fetch time.
type CachedProvider struct {
	next  Provider
	cache *cache.LRUCache[Snapshot]
	group singleflight.Group
	now   func() time.Time
}

func NewCachedProvider(next Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, cache: cache.NewLRUCache[Snapshot](1, ttl), now: time.Now}
}

// Cache exposes the underlying cache so it can be registered for cleanup.
func (p *CachedProvider) Cache() *cache.LRUCache[Snapshot] { return p.cache }

func (p *CachedProvider) Snapshot(ctx context.Context) (Snapshot, error) {
	if s, ok := p.cache.Get(snapshotKey); ok {
		return s, nil
	}
	v, err, _ := p.group.Do(snapshotKey, func() (any, error) {
		s, err := p.next.Snapshot(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = p.now().UTC()
		}
		p.cache.Set(snapshotKey, s)
		return s, nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}
