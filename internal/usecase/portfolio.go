package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"TurtleStock/internal/domain/errs"
	"TurtleStock/internal/domain/models"
	"TurtleStock/internal/domain/repository"
	"TurtleStock/internal/services/ledger"
	"TurtleStock/internal/services/sizing"
	"TurtleStock/pkg/logger"
	"TurtleStock/pkg/util"
)

// Portfolio implements the buy, add-up, sell, delete and performance
// operations over the cost-basis ledger. Mutations on the same (user, symbol)
// position are serialized with a keyed mutex so concurrent requests cannot
// interleave a read-modify-write.
type Portfolio struct {
	store    repository.PortfolioStore
	settings repository.SettingsStore
	quotes   repository.QuoteProvider
	metrics  repository.Metrics
	log      *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewPortfolio(store repository.PortfolioStore,
	settings repository.SettingsStore,
	quotes repository.QuoteProvider,
	metrics repository.Metrics,
	log *logger.Logger) *Portfolio {
	return &Portfolio{
		store:    store,
		settings: settings,
		quotes:   quotes,
		metrics:  metrics,
		log:      log,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (p *Portfolio) positionLock(userID, symbol string) *sync.Mutex {
	key := userID + "|" + symbol
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	p.locks[key] = l
	return l
}

func normalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", errs.Validation("symbol is required")
	}
	return s, nil
}

// Buy records a purchase lot, creating the holding on first buy.
func (p *Portfolio) Buy(ctx context.Context, userID, symbol string, shares, price float64, date time.Time) (*models.Holding, error) {
	sym, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	l := p.positionLock(userID, sym)
	l.Lock()
	defer l.Unlock()

	lot := models.PurchaseLot{Shares: shares, Price: price, Date: util.Day(date)}

	h, err := p.store.GetHolding(ctx, userID, sym)
	switch {
	case errs.IsKind(err, errs.KindDataUnavailable):
		h, err = ledger.NewHolding(userID, sym, lot)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := ledger.ApplyBuy(h, lot); err != nil {
			return nil, err
		}
	}

	if err := p.store.SaveHolding(ctx, h); err != nil {
		return nil, err
	}
	p.metrics.RecordLedgerOp("buy")
	p.log.Info("buy recorded",
		logger.String("user", userID), logger.String("symbol", sym),
		logger.Float64("shares", shares), logger.Float64("price", price))
	return h, nil
}

// AddUp records a pyramid tranche on an existing position. The tranche must
// be strictly smaller than the shares already held; a breach is rejected with
// the maximum permitted size reported back.
func (p *Portfolio) AddUp(ctx context.Context, userID, symbol string, shares, price float64, date time.Time) (*models.Holding, error) {
	sym, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	l := p.positionLock(userID, sym)
	l.Lock()
	defer l.Unlock()

	h, err := p.store.GetHolding(ctx, userID, sym)
	if err != nil {
		return nil, err
	}
	if err := sizing.CheckAddUp(shares, h.TotalShares); err != nil {
		return nil, err
	}

	lot := models.PurchaseLot{Shares: shares, Price: price, Date: util.Day(date)}
	if err := ledger.ApplyBuy(h, lot); err != nil {
		return nil, err
	}
	if err := p.store.SaveHolding(ctx, h); err != nil {
		return nil, err
	}
	p.metrics.RecordLedgerOp("addup")
	p.log.Info("add-up recorded",
		logger.String("user", userID), logger.String("symbol", sym),
		logger.Float64("shares", shares), logger.Float64("price", price))
	return h, nil
}

// Sell reduces or closes a position and records the realized trade. The
// average price of the remaining shares does not change on a partial sell.
func (p *Portfolio) Sell(ctx context.Context, userID, symbol string, shares, price float64, date time.Time) (*models.Trade, error) {
	sym, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	l := p.positionLock(userID, sym)
	l.Lock()
	defer l.Unlock()

	h, err := p.store.GetHolding(ctx, userID, sym)
	if err != nil {
		return nil, err
	}
	trade, removed, err := ledger.ApplySell(h, shares, price, util.Day(date))
	if err != nil {
		return nil, err
	}
	if err := p.store.ApplySell(ctx, h, trade, removed); err != nil {
		return nil, err
	}
	p.metrics.RecordLedgerOp("sell")
	p.log.Info("sell recorded",
		logger.String("user", userID), logger.String("symbol", sym),
		logger.Float64("shares", shares), logger.Float64("net", trade.NetValue),
		logger.Bool("closed", removed))
	return trade, nil
}

// Delete removes a holding without recording a trade. Unlike a full sell,
// nothing lands in the realized-trade history.
func (p *Portfolio) Delete(ctx context.Context, userID, symbol string) error {
	sym, err := normalizeSymbol(symbol)
	if err != nil {
		return err
	}
	l := p.positionLock(userID, sym)
	l.Lock()
	defer l.Unlock()

	if err := p.store.DeleteHolding(ctx, userID, sym); err != nil {
		return err
	}
	p.metrics.RecordLedgerOp("delete")
	p.log.Info("holding deleted",
		logger.String("user", userID), logger.String("symbol", sym))
	return nil
}

// Holdings lists the user's open positions.
func (p *Portfolio) Holdings(ctx context.Context, userID string) ([]*models.Holding, error) {
	return p.store.ListHoldings(ctx, userID)
}

// Performance values every open position at its current quote and appends
// the realized-trade history. A symbol without a quote is reported with a
// zero current price rather than failing the whole report.
func (p *Portfolio) Performance(ctx context.Context, userID string) (*models.PerformanceReport, error) {
	holdings, err := p.store.ListHoldings(ctx, userID)
	if err != nil {
		return nil, err
	}

	report := &models.PerformanceReport{
		Holdings: make([]models.HoldingPerformance, 0, len(holdings)),
	}
	for _, h := range holdings {
		perf := models.HoldingPerformance{
			Symbol:        h.Symbol,
			Shares:        h.TotalShares,
			AveragePrice:  h.AveragePrice,
			InvestedValue: h.TotalShares * h.AveragePrice,
		}
		q, err := p.quotes.Quote(ctx, h.Symbol)
		if err != nil {
			p.log.Warn("quote unavailable for performance",
				logger.String("symbol", h.Symbol), logger.Error(err))
		} else {
			perf.CurrentPrice = q.Price
			perf.CurrentValue = h.TotalShares * q.Price
			perf.GainLoss = perf.CurrentValue - perf.InvestedValue
			if perf.InvestedValue > 0 {
				perf.GainLossPercent = perf.GainLoss / perf.InvestedValue * 100
			}
		}
		report.Holdings = append(report.Holdings, perf)
		report.Summary.TotalInvested += perf.InvestedValue
		report.Summary.TotalCurrent += perf.CurrentValue
	}
	report.Summary.TotalGainLoss = report.Summary.TotalCurrent - report.Summary.TotalInvested
	if report.Summary.TotalInvested > 0 {
		report.Summary.TotalGainLossPercent = report.Summary.TotalGainLoss / report.Summary.TotalInvested * 100
	}

	trades, err := p.store.ListTrades(ctx, userID)
	if err != nil {
		return nil, err
	}
	report.TradeHistory = trades
	return report, nil
}

// Settings returns the user's risk settings.
func (p *Portfolio) Settings(ctx context.Context, userID string) (*models.UserSettings, error) {
	return p.settings.Get(ctx, userID)
}

// UpdateSettings validates and persists the user's risk settings.
func (p *Portfolio) UpdateSettings(ctx context.Context, s *models.UserSettings) error {
	if s.Capital <= 0 {
		return errs.Validation("capital must be positive, got %v", s.Capital)
	}
	if s.RiskTolerance <= 0 || s.RiskTolerance > 100 {
		return errs.Validation("risk tolerance must be in (0,100], got %v", s.RiskTolerance)
	}
	if s.MaxLossLimit < 0 {
		return errs.Validation("max loss limit cannot be negative, got %v", s.MaxLossLimit)
	}
	return p.settings.Save(ctx, s)
}
