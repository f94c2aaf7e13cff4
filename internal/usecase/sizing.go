package usecase

import (
	"context"

	"TurtleStock/internal/domain/models"
	"TurtleStock/internal/domain/repository"
	"TurtleStock/internal/services/indicators"
	"TurtleStock/internal/services/sizing"
)

// PositionSizer turns a user's risk settings and a symbol's volatility into
// a share-count recommendation with its stop-loss level.
type PositionSizer struct {
	settings    repository.SettingsStore
	bars        repository.BarProvider
	quotes      repository.QuoteProvider
	historyDays int
}

func NewPositionSizer(settings repository.SettingsStore,
	bars repository.BarProvider,
	quotes repository.QuoteProvider,
	historyDays int) *PositionSizer {
	return &PositionSizer{
		settings:    settings,
		bars:        bars,
		quotes:      quotes,
		historyDays: historyDays,
	}
}

// Recommend sizes a position for the user under the 2-ATR stop rule. When
// the price argument is zero the current quote is used; zero capital or risk
// fall back to the user's stored settings. A symbol whose ATR cannot be
// computed is refused, never sized with a default.
func (s *PositionSizer) Recommend(ctx context.Context, userID, symbol string, price, capital, riskPercent float64) (*models.SizeRecommendation, error) {
	sym, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if capital == 0 || riskPercent == 0 {
		settings, err := s.settings.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		if capital == 0 {
			capital = settings.Capital
		}
		if riskPercent == 0 {
			riskPercent = settings.RiskTolerance
		}
	}

	if price == 0 {
		q, err := s.quotes.Quote(ctx, sym)
		if err != nil {
			return nil, err
		}
		price = q.Price
	}

	bars, err := s.bars.DailyBars(ctx, sym, s.historyDays)
	if err != nil {
		return nil, err
	}
	set := indicators.Compute(sym, bars)

	return sizing.Calculate(sizing.Inputs{
		Symbol:       sym,
		Capital:      capital,
		RiskPercent:  riskPercent,
		CurrentPrice: price,
		ATR:          set.ATR,
	})
}
