package usecase

import (
	"context"
	"time"

	"TurtleStock/internal/domain/errs"
	"TurtleStock/internal/domain/models"
	"TurtleStock/internal/domain/repository"
	"TurtleStock/pkg/cache"
	"TurtleStock/pkg/util"
)

const (
	signalCachePrefix = "signals"
	signalCacheTTL    = 15 * time.Minute
)

// signalListKey names one cached (date, scope) list. The batch runner drops
// every key under the prefix after it writes fresh rows.
func signalListKey(date time.Time, scope models.Scope) string {
	return cache.GenerateKeyWithParams(signalCachePrefix, util.FormatDay(date), scope.Key())
}

// Signals is the read side of the evaluation output. Lists are served from
// the cache when possible; the store stays the source of truth.
type Signals struct {
	store repository.SignalStore
	cache cache.Service
}

func NewSignals(store repository.SignalStore, c cache.Service) *Signals {
	return &Signals{store: store, cache: c}
}

// List returns the signal rows for one date and scope, triggered rows first.
// A zero date means the most recent evaluated trading day, so callers polling
// without a date see the last completed run rather than an empty set after
// UTC midnight. With buyOnly set, only triggered rows come back.
func (s *Signals) List(ctx context.Context, date time.Time, scope models.Scope, buyOnly bool) ([]*models.Signal, error) {
	if date.IsZero() {
		latest, err := s.store.LatestDate(ctx, scope)
		switch {
		case err == nil:
			date = latest
		case errs.IsKind(err, errs.KindDataUnavailable):
			date = time.Now()
		default:
			return nil, err
		}
	}
	date = util.Day(date)

	key := signalListKey(date, scope)
	var rows []*models.Signal
	if err := s.cache.Get(ctx, key, &rows); err != nil {
		rows, err = s.store.List(ctx, date, scope)
		if err != nil {
			return nil, err
		}
		_ = s.cache.Set(ctx, key, rows, signalCacheTTL)
	}

	if !buyOnly {
		return rows, nil
	}
	out := make([]*models.Signal, 0, len(rows))
	for _, r := range rows {
		if r.Triggered {
			out = append(out, r)
		}
	}
	return out, nil
}

// Health exposes the signal store's liveness for the health endpoint.
func (s *Signals) Health(ctx context.Context) error {
	return s.store.Health(ctx)
}
