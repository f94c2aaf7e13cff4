package api

import (
	"TurtleStock/internal/domain/models"
	"TurtleStock/pkg/util"
)

type signalResponse struct {
	Symbol    string   `json:"symbol"`
	Date      string   `json:"date"`
	Scope     string   `json:"scope"`
	Close     float64  `json:"close"`
	High20d   *float64 `json:"high_20d"`
	SMA50     *float64 `json:"sma_50"`
	SMA200    *float64 `json:"sma_200"`
	High52w   *float64 `json:"high_52w"`
	ATR       *float64 `json:"atr"`
	Evaluable bool     `json:"evaluable"`
	Signal    string   `json:"signal"`
}

func toSignalResponse(s *models.Signal) signalResponse {
	action := "HOLD"
	if s.Triggered {
		action = "BUY"
	}
	return signalResponse{
		Symbol:    s.Symbol,
		Date:      util.FormatDay(s.Date),
		Scope:     s.Scope.Key(),
		Close:     s.Indicators.Close,
		High20d:   s.Indicators.High20d,
		SMA50:     s.Indicators.SMA50,
		SMA200:    s.Indicators.SMA200,
		High52w:   s.Indicators.High52w,
		ATR:       s.Indicators.ATR,
		Evaluable: s.Evaluable,
		Signal:    action,
	}
}

type runResponse struct {
	ID               uint   `json:"id"`
	StartedAt        string `json:"started_at"`
	FinishedAt       string `json:"finished_at,omitempty"`
	Status           string `json:"status"`
	SymbolsProcessed int    `json:"symbols_processed"`
	SymbolsFailed    int    `json:"symbols_failed"`
	TriggeredBy      string `json:"triggered_by"`
}

func toRunResponse(r *models.SchedulerRun) *runResponse {
	if r == nil {
		return nil
	}
	out := &runResponse{
		ID:               r.ID,
		StartedAt:        r.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
		Status:           string(r.Status),
		SymbolsProcessed: r.SymbolsProcessed,
		SymbolsFailed:    r.SymbolsFailed,
		TriggeredBy:      string(r.TriggeredBy),
	}
	if r.FinishedAt != nil {
		out.FinishedAt = r.FinishedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return out
}

type schedulerStatusResponse struct {
	Latest         *runResponse `json:"latest"`
	LastSuccessful *runResponse `json:"last_successful"`
}

type sizingRequest struct {
	Symbol      string  `json:"symbol" validate:"required"`
	Price       float64 `json:"price" validate:"gte=0"`
	Capital     float64 `json:"capital" validate:"gte=0"`
	RiskPercent float64 `json:"risk_percent" validate:"gte=0,lte=100"`
}

type sizingResponse struct {
	Symbol            string  `json:"symbol"`
	ATR               float64 `json:"atr"`
	StopLossPrice     float64 `json:"stop_loss_price"`
	StopDistance      float64 `json:"stop_distance"`
	RiskAmount        float64 `json:"risk_amount"`
	RecommendedShares float64 `json:"recommended_shares"`
	PositionValue     float64 `json:"position_value"`
}

func toSizingResponse(r *models.SizeRecommendation) sizingResponse {
	return sizingResponse{
		Symbol:            r.Symbol,
		ATR:               r.ATR,
		StopLossPrice:     r.StopLossPrice,
		StopDistance:      r.StopDistance,
		RiskAmount:        r.RiskAmount,
		RecommendedShares: r.RecommendedShares,
		PositionValue:     r.PositionValue,
	}
}

type tradeRequest struct {
	Symbol string  `json:"symbol" validate:"required"`
	Shares float64 `json:"shares" validate:"required,gt=0"`
	Price  float64 `json:"price" validate:"required,gt=0"`
	Date   string  `json:"date"` // YYYY-MM-DD, defaults to today
}

type lotResponse struct {
	Shares float64 `json:"shares"`
	Price  float64 `json:"price"`
	Date   string  `json:"date"`
}

type holdingResponse struct {
	Symbol       string        `json:"symbol"`
	TotalShares  float64       `json:"total_shares"`
	AveragePrice float64       `json:"average_price"`
	Lots         []lotResponse `json:"lots"`
}

func toHoldingResponse(h *models.Holding) holdingResponse {
	out := holdingResponse{
		Symbol:       h.Symbol,
		TotalShares:  h.TotalShares,
		AveragePrice: h.AveragePrice,
		Lots:         make([]lotResponse, 0, len(h.Lots)),
	}
	for _, l := range h.Lots {
		out.Lots = append(out.Lots, lotResponse{
			Shares: l.Shares, Price: l.Price, Date: util.FormatDay(l.Date),
		})
	}
	return out
}

type tradeResponse struct {
	Symbol             string  `json:"symbol"`
	SharesSold         float64 `json:"shares_sold"`
	SellPrice          float64 `json:"sell_price"`
	AveragePriceAtSale float64 `json:"average_price_at_sale"`
	NetValue           float64 `json:"net_value"`
	Date               string  `json:"date"`
}

func toTradeResponse(t *models.Trade) tradeResponse {
	return tradeResponse{
		Symbol:             t.Symbol,
		SharesSold:         t.SharesSold,
		SellPrice:          t.SellPrice,
		AveragePriceAtSale: t.AveragePriceAtSale,
		NetValue:           t.NetValue,
		Date:               util.FormatDay(t.Date),
	}
}

type performanceResponse struct {
	Holdings []holdingPerformanceResponse `json:"holdings"`
	Summary  summaryResponse              `json:"summary"`
	Trades   []tradeResponse              `json:"trade_history"`
}

type holdingPerformanceResponse struct {
	Symbol          string  `json:"symbol"`
	Shares          float64 `json:"shares"`
	AveragePrice    float64 `json:"average_price"`
	CurrentPrice    float64 `json:"current_price"`
	InvestedValue   float64 `json:"invested_value"`
	CurrentValue    float64 `json:"current_value"`
	GainLoss        float64 `json:"gain_loss"`
	GainLossPercent float64 `json:"gain_loss_percent"`
}

type summaryResponse struct {
	TotalInvested        float64 `json:"total_invested"`
	TotalCurrent         float64 `json:"total_current"`
	TotalGainLoss        float64 `json:"total_gain_loss"`
	TotalGainLossPercent float64 `json:"total_gain_loss_percent"`
}

func toPerformanceResponse(r *models.PerformanceReport) performanceResponse {
	out := performanceResponse{
		Holdings: make([]holdingPerformanceResponse, 0, len(r.Holdings)),
		Trades:   make([]tradeResponse, 0, len(r.TradeHistory)),
		Summary: summaryResponse{
			TotalInvested:        r.Summary.TotalInvested,
			TotalCurrent:         r.Summary.TotalCurrent,
			TotalGainLoss:        r.Summary.TotalGainLoss,
			TotalGainLossPercent: r.Summary.TotalGainLossPercent,
		},
	}
	for _, h := range r.Holdings {
		out.Holdings = append(out.Holdings, holdingPerformanceResponse{
			Symbol:          h.Symbol,
			Shares:          h.Shares,
			AveragePrice:    h.AveragePrice,
			CurrentPrice:    h.CurrentPrice,
			InvestedValue:   h.InvestedValue,
			CurrentValue:    h.CurrentValue,
			GainLoss:        h.GainLoss,
			GainLossPercent: h.GainLossPercent,
		})
	}
	for i := range r.TradeHistory {
		out.Trades = append(out.Trades, toTradeResponse(&r.TradeHistory[i]))
	}
	return out
}

type settingsRequest struct {
	Capital       float64 `json:"capital" validate:"required,gt=0"`
	RiskTolerance float64 `json:"risk_tolerance" validate:"required,gt=0,lte=100"`
	MaxLossLimit  float64 `json:"max_loss_limit" validate:"gte=0"`
}

type settingsResponse struct {
	Capital       float64 `json:"capital"`
	RiskTolerance float64 `json:"risk_tolerance"`
	MaxLossLimit  float64 `json:"max_loss_limit"`
}

type quoteResponse struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Timestamp     string  `json:"timestamp"`
}
