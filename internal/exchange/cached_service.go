package exchange

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultRateTTL = 12 * time.Hour
	maxSweepEvery  = 5 * time.Minute
)

type rateEntry struct {
	rate    decimal.Decimal
	date    time.Time
	expires time.Time
}

// pendingFetch is a rate fetch other callers for the same pair wait on.
type pendingFetch struct {
	done  chan struct{}
	entry rateEntry
	err   error
}

// CachedService wraps a Converter with in-memory TTL caching of rates.
// Entries are keyed by the normalized "FROM->TO" pair; only rates are cached,
// so any amount can be served from one entry.
type CachedService struct {
	inner Converter
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	rates     map[string]rateEntry
	fetching  map[string]*pendingFetch
	lastSweep time.Time
}

// NewCachedService returns a converter that caches exchange rates for ttl.
func NewCachedService(inner Converter, ttl time.Duration) *CachedService {
	if ttl <= 0 {
		ttl = defaultRateTTL
	}
	return &CachedService{
		inner:    inner,
		ttl:      ttl,
		now:      time.Now,
		rates:    make(map[string]rateEntry),
		fetching: make(map[string]*pendingFetch),
	}
}

func pairKey(fromCurrency, toCurrency string) string {
	return normalizeCode(fromCurrency) + "->" + normalizeCode(toCurrency)
}

// Convert returns the converted amount, fetching the rate at most once per pair per TTL.
func (s *CachedService) Convert(
	ctx context.Context,
	amount decimal.Decimal,
	fromCurrency, toCurrency string,
) (ConversionResult, error) {
	if s.inner == nil {
		return ConversionResult{}, errors.New("inner exchange converter is required")
	}

	key := pairKey(fromCurrency, toCurrency)

	s.mu.Lock()
	if entry, ok := s.rates[key]; ok {
		if s.now().Before(entry.expires) {
			s.mu.Unlock()
			return entry.apply(amount), nil
		}
		delete(s.rates, key)
	}
	fetch, inFlight := s.fetching[key]
	if !inFlight {
		fetch = &pendingFetch{done: make(chan struct{})}
		s.fetching[key] = fetch
	}
	s.mu.Unlock()

	if !inFlight {
		// One caller's deadline must not fail everyone waiting on the same pair.
		go s.fetch(context.WithoutCancel(ctx), key, amount, fromCurrency, toCurrency, fetch)
	}

	select {
	case <-ctx.Done():
		return ConversionResult{}, ctx.Err()
	case <-fetch.done:
		if fetch.err != nil {
			return ConversionResult{}, fetch.err
		}
		return fetch.entry.apply(amount), nil
	}
}

func (s *CachedService) fetch(
	ctx context.Context,
	key string,
	amount decimal.Decimal,
	fromCurrency, toCurrency string,
	fetch *pendingFetch,
) {
	res, err := s.inner.Convert(ctx, amount, fromCurrency, toCurrency)
	if err == nil {
		err = validateConversionRate(res.Rate)
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		fetch.entry = rateEntry{rate: res.Rate, date: res.RateDate, expires: now.Add(s.ttl)}
		s.rates[key] = fetch.entry
		s.sweepLocked(now)
	}
	fetch.err = err
	delete(s.fetching, key)
	close(fetch.done)
}

func (s *CachedService) sweepLocked(now time.Time) {
	if !s.lastSweep.IsZero() && now.Sub(s.lastSweep) < min(s.ttl, maxSweepEvery) {
		return
	}
	for key, entry := range s.rates {
		if !now.Before(entry.expires) {
			delete(s.rates, key)
		}
	}
	s.lastSweep = now
}

func (e rateEntry) apply(amount decimal.Decimal) ConversionResult {
	return ConversionResult{
		Amount:   amount.Mul(e.rate).Round(2),
		Rate:     e.rate,
		RateDate: e.date,
	}
}
