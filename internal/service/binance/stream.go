package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"CoinSage/internal/domain/models"
	drepo "CoinSage/internal/domain/repository"
	applogger "CoinSage/pkg/logger"
)

// Stream implements a PriceStream backed by the Binance miniTicker
// WebSocket feed.
type Stream struct {
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	l              *applogger.Logger

	conn      *websocket.Conn
	connected bool
}

// NewStream creates a Binance price stream.
func NewStream(websocketURL string, symbols []string, reconnectDelay time.Duration, l *applogger.Logger) drepo.PriceStream {
	return &Stream{
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		l:              l,
	}
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("binance connect: %w", err)
	}
	s.conn = conn
	s.connected = true
	s.l.Info("binance stream: connected")
	return nil
}

// Subscribe subscribes to miniTicker streams for the configured symbols.
func (s *Stream) Subscribe(ctx context.Context) error {
	if s.conn == nil || !s.connected {
		return fmt.Errorf("binance stream not connected")
	}

	params := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		params = append(params, strings.ToLower(sym)+"@miniTicker")
	}

	msg := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": params,
		"id":     1,
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	s.l.Info("binance stream: subscribed", applogger.Strings("symbols", s.symbols))
	return nil
}

type miniTicker struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"` // ms
	Symbol    string `json:"s"`
	Close     string `json:"c"`
	Volume    string `json:"v"`
}

// Read streams price observations and errors. Observations are dropped on
// backpressure rather than blocking the read loop.
func (s *Stream) Read(ctx context.Context) (<-chan *models.PriceObservation, <-chan error) {
	obs := make(chan *models.PriceObservation, 1024)
	errs := make(chan error, 1)

	go func() {
		defer close(obs)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if s.conn == nil {
					errs <- fmt.Errorf("binance conn nil")
					return
				}
				_, b, err := s.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("binance read: %w", err)
					return
				}

				var t miniTicker
				if err := json.Unmarshal(b, &t); err != nil || t.Event != "24hrMiniTicker" {
					// subscription acks and other frames
					continue
				}

				price, err := strconv.ParseFloat(t.Close, 64)
				if err != nil {
					continue
				}
				volume, err := strconv.ParseFloat(t.Volume, 64)
				if err != nil {
					continue
				}

				o := &models.PriceObservation{
					Symbol:    t.Symbol,
					Timestamp: time.UnixMilli(t.EventTime).UTC(),
					Price:     price,
					Volume:    volume,
				}
				select {
				case obs <- o:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return obs, errs
}

// Reconnect closes and reconnects.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-time.After(s.reconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the WS connection.
func (s *Stream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool { return s.connected }
