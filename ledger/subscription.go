package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

var (
	// ErrSubscribe is returned when the slot subscription can't be established.
	ErrSubscribe = errors.New("ledger: can't connect to slot subscription")
	// ErrSubscriptionLost is returned once an established subscription breaks.
	ErrSubscriptionLost = errors.New("ledger: slot subscription lost")
)

// SlotUpdate is a single slot notification.
type SlotUpdate struct {
	Parent uint64 `json:"parent"`
	Root   uint64 `json:"root"`
	Slot   uint64 `json:"slot"`
}

// SlotStream yields slot notifications until closed or broken.
type SlotStream interface {
	Next() (SlotUpdate, error)
	Close() error
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type slotMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	Params  *struct {
		Result       *SlotUpdate `json:"result"`
		Subscription uint64      `json:"subscription"`
	} `json:"params,omitempty"`
}

// Subscription is a slot notification stream over a websocket.
type Subscription struct {
	conn *websocket.Conn

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// Subscribe dials url and subscribes to slot notifications. The subscription
// is closed once ctx is done.
func Subscribe(ctx context.Context, url string) (*Subscription, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubscribe, err)
	}
	err = conn.WriteJSON(rpcRequest{JSONRPC: "2.0", ID: 1, Method: "slotSubscribe"})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %w", ErrSubscribe, err)
	}

	s := &Subscription{conn: conn, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			s.Close() //nolint:errcheck
		case <-s.done:
		}
	}()
	return s, nil
}

// Next blocks until the next slot notification. The subscription
// acknowledgement and malformed messages are skipped.
func (s *Subscription) Next() (SlotUpdate, error) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return SlotUpdate{}, fmt.Errorf("%w: %w", ErrSubscriptionLost, err)
		}

		var msg slotMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warnw("skipping malformed slot notification", "err", err)
			continue
		}
		switch {
		case msg.Error != nil:
			return SlotUpdate{}, fmt.Errorf("%w: %d %s", ErrSubscribe, msg.Error.Code, msg.Error.Message)
		case msg.Method == "" && len(msg.Result) != 0:
			log.Debugw("slot subscription confirmed", "subscription", string(msg.Result))
			continue
		case msg.Params == nil || msg.Params.Result == nil:
			log.Warnw("skipping slot notification without result", "method", msg.Method)
			continue
		}
		return *msg.Params.Result, nil
	}
}

// Close terminates the subscription. Pending Next calls return
// ErrSubscriptionLost.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
