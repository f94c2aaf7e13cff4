package usecase

import (
	"context"
	"time"

	"TurtleStock/internal/domain/models"
	"TurtleStock/internal/domain/repository"
	"TurtleStock/internal/service/finnhub"
	"TurtleStock/pkg/cache"
)

const quoteCacheTTL = time.Minute

// QuoteService serves price snapshots cache-first. The live trade stream and
// REST lookups share the same cache keys, so a streamed tick satisfies later
// reads without an API call.
type QuoteService struct {
	cache   cache.Service
	rest    repository.QuoteProvider
	metrics repository.Metrics
}

func NewQuoteService(c cache.Service, rest repository.QuoteProvider, m repository.Metrics) *QuoteService {
	return &QuoteService{cache: c, rest: rest, metrics: m}
}

func (s *QuoteService) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	var q models.Quote
	if err := s.cache.Get(ctx, finnhub.QuoteCacheKey(symbol), &q); err == nil && q.Price > 0 {
		return &q, nil
	}

	// Cache miss or degraded cache, fall through to the REST lookup.
	fresh, err := s.rest.Quote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, finnhub.QuoteCacheKey(symbol), fresh, quoteCacheTTL)
	s.metrics.RecordLastPrice(symbol, fresh.Price)
	return fresh, nil
}
