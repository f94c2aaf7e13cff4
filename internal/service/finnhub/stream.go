package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"TurtleStock/internal/domain/models"
	"TurtleStock/internal/domain/repository"
	"TurtleStock/pkg/cache"
	"TurtleStock/pkg/logger"
)

const quoteTTL = 5 * time.Minute

// QuoteCacheKey is where the stream and the quote service meet.
func QuoteCacheKey(symbol string) string {
	return cache.GenerateKey("quote", symbol)
}

// Stream keeps the Finnhub trade WebSocket open and mirrors the last traded
// price of each subscribed symbol into the quote cache.
type Stream struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	cache   cache.Service
	metrics repository.Metrics
	log     *logger.Logger
}

func NewStream(apiKey, websocketURL string, symbols []string,
	reconnectDelay, pingInterval time.Duration,
	c cache.Service, m repository.Metrics, log *logger.Logger) *Stream {
	return &Stream{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		cache:          c,
		metrics:        m,
		log:            log,
	}
}

type tradeFrame struct {
	Type string `json:"type"`
	Data []struct {
		Symbol string  `json:"s"`
		Price  float64 `json:"p"`
		Volume float64 `json:"v"`
		TimeMS int64   `json:"t"`
	} `json:"data"`
}

// Run connects, subscribes and consumes until ctx is cancelled, reconnecting
// after read failures. The connection is owned by one consume call at a time
// and handed to its ping loop directly, never shared through the struct.
func (s *Stream) Run(ctx context.Context) {
	for {
		conn, err := s.connect(ctx)
		if err != nil {
			s.log.Warn("quote stream connect failed", logger.Error(err))
		} else {
			s.consume(ctx, conn)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.reconnectDelay):
		}
	}
}

func (s *Stream) connect(ctx context.Context) (*websocket.Conn, error) {
	u := fmt.Sprintf("%s?token=%s", s.websocketURL, s.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	for _, sym := range s.symbols {
		msg := map[string]string{"type": "subscribe", "symbol": sym}
		if err := conn.WriteJSON(msg); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("subscribe %s: %w", sym, err)
		}
	}
	s.log.Info("quote stream connected", logger.Int("symbols", len(s.symbols)))
	return conn, nil
}

func (s *Stream) consume(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go s.pingLoop(pingCtx, conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, b, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.log.Warn("quote stream read failed", logger.Error(err))
			}
			return
		}

		var frame tradeFrame
		if err := json.Unmarshal(b, &frame); err != nil || frame.Type != "trade" {
			continue
		}
		for _, t := range frame.Data {
			q := models.Quote{
				Symbol:    t.Symbol,
				Price:     t.Price,
				Volume:    t.Volume,
				Timestamp: time.UnixMilli(t.TimeMS).UTC(),
			}
			if err := s.cache.Set(ctx, QuoteCacheKey(t.Symbol), q, quoteTTL); err != nil {
				s.log.Debug("quote cache set failed", logger.String("symbol", t.Symbol), logger.Error(err))
				continue
			}
			s.metrics.RecordLastPrice(t.Symbol, t.Price)
		}
	}
}

func (s *Stream) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = conn.WriteMessage(websocket.PingMessage, nil)
		}
	}
}
