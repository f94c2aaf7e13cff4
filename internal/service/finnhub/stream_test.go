package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"TurtleStock/internal/domain/models"
	"TurtleStock/pkg/cache"
	"TurtleStock/pkg/logger"
)

func streamTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatal(err)
	}
	return log
}

type captureMetrics struct {
	mu     sync.Mutex
	prices map[string]float64
}

func (m *captureMetrics) RecordRunResult(string, float64) {}
func (m *captureMetrics) RecordSymbols(int, int)          {}
func (m *captureMetrics) RecordSignalsTriggered(int)      {}
func (m *captureMetrics) RecordLedgerOp(string)           {}
func (m *captureMetrics) RecordError(string)              {}

func (m *captureMetrics) RecordLastPrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prices == nil {
		m.prices = make(map[string]float64)
	}
	m.prices[symbol] = price
}

// tradeServer upgrades one connection, drains the subscribe message, pushes a
// single trade frame and then keeps reading so client pings are answered.
func tradeServer(frame string) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestStreamCachesTrades(t *testing.T) {
	srv := tradeServer(`{"type":"trade","data":[{"s":"AAPL","p":190.5,"v":10,"t":1700000000000}]}`)
	defer srv.Close()

	mem := cache.NewMemoryCache()
	defer mem.Close()
	metrics := &captureMetrics{}

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	s := NewStream("test-key", wsURL, []string{"AAPL"},
		time.Second, 10*time.Millisecond, mem, metrics, streamTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	var q models.Quote
	for {
		if err := mem.Get(ctx, QuoteCacheKey("AAPL"), &q); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("trade never reached the quote cache")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if q.Symbol != "AAPL" || q.Price != 190.5 {
		t.Fatalf("cached quote = %+v", q)
	}
	metrics.mu.Lock()
	price := metrics.prices["AAPL"]
	metrics.mu.Unlock()
	if price != 190.5 {
		t.Fatalf("recorded price = %v, want 190.5", price)
	}

	cancel()
	srv.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after cancel")
	}
}
