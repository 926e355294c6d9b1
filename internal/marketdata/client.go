// Package marketdata adapts streaming market-data clients into the
// engine's event source, owning reconnect policy.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	apperrors "algo-trader/internal/errors"
	"algo-trader/internal/models"
)

// StreamClient opens a lazy, potentially-infinite tick stream for a
// symbol. Clients may also implement the optional lifecycle hooks
// below; the event source probes for them and tolerates their absence.
type StreamClient interface {
	TickStream(ctx context.Context, symbol string) (TickStream, error)
}

// TickStream yields ticks one at a time. Recv returns
// errors.ErrStreamEnded when the stream finishes cleanly; any other
// error is a transient stream failure the event source will retry.
type TickStream interface {
	Recv() (models.Tick, error)
	Close() error
}

// Optional lifecycle hooks probed by the event source.
type (
	setupHook    interface{ Setup() error }
	startHook    interface{ Start() error }
	connectHook  interface{ Connect() error }
	teardownHook interface{ Teardown() error }
	stopHook     interface{ Stop() error }
	closeHook    interface{ Close() error }
)

// WSClient is a StreamClient over a websocket JSON tick feed.
type WSClient struct {
	baseURL string
	dialer  *websocket.Dialer
}

// NewWSClient creates a websocket stream client for the given base URL
// (e.g. "wss://stream.example.com/ws").
func NewWSClient(baseURL string) *WSClient {
	return &WSClient{
		baseURL: baseURL,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// TickStream dials the feed and returns a stream of parsed ticks.
func (c *WSClient) TickStream(ctx context.Context, symbol string) (TickStream, error) {
	url := fmt.Sprintf("%s/%s@trade", c.baseURL, symbol)
	conn, _, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, apperrors.NewStreamError(symbol, err)
	}
	return &wsTickStream{conn: conn, symbol: symbol}, nil
}

type wsTickStream struct {
	conn   *websocket.Conn
	symbol string
}

// wsTickMessage is the wire format of one trade event.
type wsTickMessage struct {
	Symbol string  `json:"s"`
	Price  string  `json:"p"`
	TimeMS int64   `json:"T"`
	Qty    float64 `json:"q,string"`
}

func (s *wsTickStream) Recv() (models.Tick, error) {
	_, payload, err := s.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return models.Tick{}, apperrors.ErrStreamEnded
		}
		return models.Tick{}, apperrors.NewStreamError(s.symbol, err)
	}

	var msg wsTickMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return models.Tick{}, apperrors.NewStreamError(s.symbol, fmt.Errorf("decoding tick: %w", err))
	}

	var price float64
	if _, err := fmt.Sscanf(msg.Price, "%f", &price); err != nil {
		return models.Tick{}, apperrors.NewStreamError(s.symbol, fmt.Errorf("parsing price %q: %w", msg.Price, err))
	}

	symbol := msg.Symbol
	if symbol == "" {
		symbol = s.symbol
	}
	return models.Tick{
		Symbol: symbol,
		Price:  price,
		TS:     time.UnixMilli(msg.TimeMS).UTC(),
	}, nil
}

func (s *wsTickStream) Close() error {
	return s.conn.Close()
}
