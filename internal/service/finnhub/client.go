package finnhub

import (
	"context"
	"fmt"
	"sort"
	"time"

	"TurtleStock/internal/domain/errs"
	"TurtleStock/internal/domain/models"
	"TurtleStock/internal/service/ratelimit"
	nhttp "TurtleStock/pkg/http"
	"TurtleStock/pkg/util"
)

const rateKey = "finnhub_rest"

// Client fetches daily candles and quote snapshots from the Finnhub REST
// API. Calls share a token bucket sized to the plan's per-minute budget.
type Client struct {
	apiKey  string
	baseURL string
	http    *nhttp.Client
	limiter *ratelimit.Limiter
	perMin  float64
}

func NewClient(apiKey, baseURL string, ratePerMinute int) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    nhttp.NewClient(nhttp.WithTimeout(15 * time.Second)),
		limiter: ratelimit.New(),
		perMin:  float64(ratePerMinute),
	}
}

type candleResponse struct {
	Status string    `json:"s"`
	Open   []float64 `json:"o"`
	High   []float64 `json:"h"`
	Low    []float64 `json:"l"`
	Close  []float64 `json:"c"`
	Volume []float64 `json:"v"`
	Time   []int64   `json:"t"`
}

type quoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	PrevClose     float64 `json:"pc"`
	Time          int64   `json:"t"`
}

// DailyBars returns up to days daily OHLCV bars for symbol, oldest first.
func (c *Client) DailyBars(ctx context.Context, symbol string, days int) ([]models.PriceBar, error) {
	if err := c.waitToken(ctx); err != nil {
		return nil, err
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)

	var resp candleResponse
	err := c.http.SendAndParse(ctx, &nhttp.RequestOptions{
		Method: nhttp.MethodGet,
		URL:    c.baseURL + "/stock/candle",
		QueryParams: map[string][]string{
			"symbol":     {symbol},
			"resolution": {"D"},
			"from":       {fmt.Sprintf("%d", from.Unix())},
			"to":         {fmt.Sprintf("%d", to.Unix())},
			"token":      {c.apiKey},
		},
	}, &resp)
	if err != nil {
		return nil, errs.System("fetch candles for %s", symbol).WithError(err)
	}
	if resp.Status == "no_data" || len(resp.Time) == 0 {
		return nil, errs.DataUnavailable("no candle data for %s", symbol)
	}
	if resp.Status != "ok" {
		return nil, errs.System("candle status %q for %s", resp.Status, symbol)
	}
	n := len(resp.Time)
	if len(resp.Open) != n || len(resp.High) != n || len(resp.Low) != n ||
		len(resp.Close) != n || len(resp.Volume) != n {
		return nil, errs.System("ragged candle arrays for %s", symbol)
	}

	bars := make([]models.PriceBar, 0, n)
	for i := 0; i < n; i++ {
		bars = append(bars, models.PriceBar{
			Date:   util.Day(time.Unix(resp.Time[i], 0)),
			Open:   resp.Open[i],
			High:   resp.High[i],
			Low:    resp.Low[i],
			Close:  resp.Close[i],
			Volume: resp.Volume[i],
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// Quote returns the current price snapshot for symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	if err := c.waitToken(ctx); err != nil {
		return nil, err
	}

	var resp quoteResponse
	err := c.http.SendAndParse(ctx, &nhttp.RequestOptions{
		Method: nhttp.MethodGet,
		URL:    c.baseURL + "/quote",
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"token":  {c.apiKey},
		},
	}, &resp)
	if err != nil {
		return nil, errs.System("fetch quote for %s", symbol).WithError(err)
	}
	// Finnhub returns an all-zero body for unknown symbols.
	if resp.Current == 0 && resp.Time == 0 {
		return nil, errs.DataUnavailable("no quote for %s", symbol)
	}
	return &models.Quote{
		Symbol:        symbol,
		Price:         resp.Current,
		Change:        resp.Change,
		ChangePercent: resp.ChangePercent,
		Timestamp:     time.Unix(resp.Time, 0).UTC(),
	}, nil
}

// waitToken blocks until the shared bucket yields a token or ctx expires.
func (c *Client) waitToken(ctx context.Context) error {
	refill := c.perMin / 60.0
	for {
		if c.limiter.Allow(rateKey, c.perMin, refill) {
			return nil
		}
		select {
		case <-ctx.Done():
			return errs.System("rate limit wait").WithError(ctx.Err())
		case <-time.After(250 * time.Millisecond):
		}
	}
}
