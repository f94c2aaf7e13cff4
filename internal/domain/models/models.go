package models

import (
	"fmt"
	"time"
)

// PriceBar is one daily OHLCV record for a symbol, supplied by the market
// data provider. Bars are immutable; series are ordered oldest first.
type PriceBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// IndicatorSet is the derived technical snapshot for the latest bar of a
// series. Fields are nil when the history is shorter than the window; a nil
// field is never substituted with a shorter-window estimate.
//
// High20d is the rolling 20-day high over the bars preceding the latest bar,
// so the latest close can equal or exceed it on a breakout.
type IndicatorSet struct {
	Symbol  string
	Date    time.Time
	Close   float64
	High20d *float64
	SMA50   *float64
	SMA200  *float64
	High52w *float64
	ATR     *float64
}

// ScopeKind distinguishes shared market-wide signal rows from per-user rows.
type ScopeKind string

const (
	ScopeKindMarket ScopeKind = "market"
	ScopeKindUser   ScopeKind = "user"
)

// Scope tags a signal row with its owner. Market-wide rows are shared
// read-only reference data; user rows belong to exactly one user.
type Scope struct {
	Kind   ScopeKind
	UserID string // set only when Kind == ScopeKindUser
}

// MarketScope is the shared no-owner scope produced by the batch run.
func MarketScope() Scope { return Scope{Kind: ScopeKindMarket} }

// UserScope tags a row as owned by one user.
func UserScope(userID string) Scope {
	return Scope{Kind: ScopeKindUser, UserID: userID}
}

// Key renders the scope as a stable storage key.
func (s Scope) Key() string {
	if s.Kind == ScopeKindUser {
		return fmt.Sprintf("user:%s", s.UserID)
	}
	return string(ScopeKindMarket)
}

// ParseScope is the inverse of Key.
func ParseScope(key string) Scope {
	if len(key) > 5 && key[:5] == "user:" {
		return UserScope(key[5:])
	}
	return MarketScope()
}

// Signal is one per-symbol, per-date evaluation result. Unique per
// (symbol, date, scope); created and overwritten only by the batch run.
type Signal struct {
	Symbol     string
	Date       time.Time
	Scope      Scope
	Indicators IndicatorSet
	Evaluable  bool // false when a required indicator was nil
	Triggered  bool
}

// RunStatus is the terminal (or current) state of a scheduler run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusPartial RunStatus = "partial_failure"
	RunStatusFailed  RunStatus = "failed"
)

// RunTrigger records what started a run.
type RunTrigger string

const (
	TriggerScheduled RunTrigger = "scheduled"
	TriggerManual    RunTrigger = "manual"
)

// SchedulerRun is one batch execution record, append-only.
type SchedulerRun struct {
	ID               uint
	StartedAt        time.Time
	FinishedAt       *time.Time
	Status           RunStatus
	SymbolsProcessed int
	SymbolsFailed    int
	TriggeredBy      RunTrigger
}

// UserSettings holds the per-user risk budget.
type UserSettings struct {
	UserID        string
	Capital       float64
	RiskTolerance float64 // percent in [0,100]
	MaxLossLimit  float64
}

// PurchaseLot is a single buy tranche. Immutable once created.
type PurchaseLot struct {
	Shares float64
	Price  float64
	Date   time.Time
}

// Holding is one user's position in one symbol, with its lot history and the
// derived weighted-average cost basis.
//
// Invariants: TotalShares == sum of lot shares, and
// AveragePrice*TotalShares == sum of lot shares*price within 1e-6.
type Holding struct {
	UserID       string
	Symbol       string
	Lots         []PurchaseLot
	TotalShares  float64
	AveragePrice float64
}

// Trade is a realized sale, append-only. Created only by a sell; deleting a
// holding intentionally writes no trade.
type Trade struct {
	UserID             string
	Symbol             string
	SharesSold         float64
	SellPrice          float64
	AveragePriceAtSale float64
	NetValue           float64
	Date               time.Time
}

// Quote is a point-in-time price used for performance valuation.
type Quote struct {
	Symbol        string
	Price         float64
	Change        float64
	ChangePercent float64
	Volume        float64
	Timestamp     time.Time
}

// SizeRecommendation is the output of the position sizing calculator.
type SizeRecommendation struct {
	Symbol            string
	ATR               float64
	StopLossPrice     float64
	StopDistance      float64
	RiskAmount        float64
	RecommendedShares float64
	PositionValue     float64
}

// HoldingPerformance is one holding valued at the current quote.
type HoldingPerformance struct {
	Symbol          string
	Shares          float64
	AveragePrice    float64
	CurrentPrice    float64
	InvestedValue   float64
	CurrentValue    float64
	GainLoss        float64
	GainLossPercent float64
}

// PerformanceSummary aggregates across all holdings.
type PerformanceSummary struct {
	TotalInvested        float64
	TotalCurrent         float64
	TotalGainLoss        float64
	TotalGainLossPercent float64
}

// PerformanceReport is the getPerformance payload.
type PerformanceReport struct {
	Holdings     []HoldingPerformance
	Summary      PerformanceSummary
	TradeHistory []Trade
}
