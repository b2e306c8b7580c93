// Package ledgertest provides an in-process ledger serving fragment requests
// over HTTP JSON-RPC and slot notifications over a websocket.
package ledgertest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/shredwatch/shredwatch-node/fragment"
)

// Call records a single fragment request.
type Call struct {
	Slot       uint64
	Indices    []uint32
	Commitment string
}

// Ledger is a fake ledger node.
type Ledger struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	lk       sync.Mutex
	leaders  map[uint64]string
	entries  map[uint64]map[uint32]json.RawMessage
	leading  map[uint64]json.RawMessage
	failing  map[uint64]bool
	calls    []Call
	subs     []*websocket.Conn
	subFirst chan struct{}
}

// New starts a fake ledger that is stopped on test cleanup.
func New(t testing.TB) *Ledger {
	l := &Ledger{
		leaders:  make(map[uint64]string),
		entries:  make(map[uint64]map[uint32]json.RawMessage),
		leading:  make(map[uint64]json.RawMessage),
		failing:  make(map[uint64]bool),
		subFirst: make(chan struct{}),
	}
	l.srv = httptest.NewServer(http.HandlerFunc(l.serve))
	t.Cleanup(func() {
		l.CloseSubscriptions()
		l.srv.Close()
	})
	return l
}

// URL is the JSON-RPC endpoint.
func (l *Ledger) URL() string {
	return l.srv.URL
}

// WSURL is the slot subscription endpoint.
func (l *Ledger) WSURL() string {
	return "ws" + strings.TrimPrefix(l.srv.URL, "http")
}

// AddSlot serves frags for slot, signed by leader.
func (l *Ledger) AddSlot(t testing.TB, slot uint64, leader fragment.Pubkey, frags []*fragment.Fragment) {
	l.lk.Lock()
	defer l.lk.Unlock()

	l.leaders[slot] = leader.String()
	if l.entries[slot] == nil {
		l.entries[slot] = make(map[uint32]json.RawMessage)
	}
	for _, f := range frags {
		raw, err := json.Marshal(f)
		if err != nil {
			t.Fatalf("marshaling fragment %s: %v", f.ID(), err)
		}
		l.entries[slot][f.Index] = raw
	}
}

// SetLeader overrides the leader string reported for slot.
func (l *Ledger) SetLeader(slot uint64, leader string) {
	l.lk.Lock()
	defer l.lk.Unlock()
	l.leaders[slot] = leader
}

// SetRaw serves raw as the entry for index of slot.
func (l *Ledger) SetRaw(slot uint64, index uint32, raw string) {
	l.lk.Lock()
	defer l.lk.Unlock()
	if l.entries[slot] == nil {
		l.entries[slot] = make(map[uint32]json.RawMessage)
	}
	l.entries[slot][index] = json.RawMessage(raw)
}

// SetLeading serves raw as the leading entry of every response for slot.
func (l *Ledger) SetLeading(slot uint64, raw string) {
	l.lk.Lock()
	defer l.lk.Unlock()
	l.leading[slot] = json.RawMessage(raw)
}

// Drop stops serving index of slot; it is answered with null.
func (l *Ledger) Drop(slot uint64, indices ...uint32) {
	l.lk.Lock()
	defer l.lk.Unlock()
	for _, idx := range indices {
		delete(l.entries[slot], idx)
	}
}

// Fail makes every request for slot fail with a JSON-RPC error.
func (l *Ledger) Fail(slot uint64) {
	l.lk.Lock()
	defer l.lk.Unlock()
	l.failing[slot] = true
}

// Calls returns the fragment requests received so far.
func (l *Ledger) Calls() []Call {
	l.lk.Lock()
	defer l.lk.Unlock()
	return append([]Call(nil), l.calls...)
}

// CallsFor returns the fragment requests received for slot.
func (l *Ledger) CallsFor(slot uint64) []Call {
	var out []Call
	for _, c := range l.Calls() {
		if c.Slot == slot {
			out = append(out, c)
		}
	}
	return out
}

// WaitSubscribed blocks until the first slot subscription is established.
func (l *Ledger) WaitSubscribed(ctx context.Context) error {
	select {
	case <-l.subFirst:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishRoot notifies every subscriber of a new root slot.
func (l *Ledger) PublishRoot(root uint64) {
	l.Publish(fmt.Sprintf(
		`{"jsonrpc":"2.0","method":"slotNotification","params":{"result":{"parent":%d,"root":%d,"slot":%d},"subscription":0}}`,
		root+31, root, root+32,
	))
}

// Publish sends raw to every subscriber.
func (l *Ledger) Publish(raw string) {
	l.lk.Lock()
	defer l.lk.Unlock()
	for _, c := range l.subs {
		c.WriteMessage(websocket.TextMessage, []byte(raw)) //nolint:errcheck
	}
}

// CloseSubscriptions drops every subscriber connection.
func (l *Ledger) CloseSubscriptions() {
	l.lk.Lock()
	defer l.lk.Unlock()
	for _, c := range l.subs {
		c.Close()
	}
	l.subs = nil
}

type request struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *respError      `json:"error,omitempty"`
}

type respError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type result struct {
	Leader    string            `json:"leader"`
	Fragments []json.RawMessage `json:"fragments"`
}

func (l *Ledger) serve(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		l.serveSubscription(w, r)
		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp := response{JSONRPC: "2.0", ID: req.ID}
	if req.Method != "getFragments" {
		resp.Error = &respError{Code: -32601, Message: "method not found"}
	} else {
		res, err := l.getFragments(req.Params)
		if err != nil {
			resp.Error = &respError{Code: -32000, Message: err.Error()}
		} else {
			resp.Result = res
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

func (l *Ledger) getFragments(params []json.RawMessage) (*result, error) {
	if len(params) < 2 {
		return nil, fmt.Errorf("want slot and indices, got %d params", len(params))
	}
	var (
		call Call
		cfg  struct {
			Commitment string `json:"commitment"`
		}
	)
	if err := json.Unmarshal(params[0], &call.Slot); err != nil {
		return nil, fmt.Errorf("invalid slot: %w", err)
	}
	if err := json.Unmarshal(params[1], &call.Indices); err != nil {
		return nil, fmt.Errorf("invalid indices: %w", err)
	}
	if len(params) > 2 {
		if err := json.Unmarshal(params[2], &cfg); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		call.Commitment = cfg.Commitment
	}

	l.lk.Lock()
	defer l.lk.Unlock()
	l.calls = append(l.calls, call)
	if l.failing[call.Slot] {
		return nil, fmt.Errorf("slot %d unavailable", call.Slot)
	}

	null := json.RawMessage("null")
	leading, ok := l.leading[call.Slot]
	if !ok {
		leading = null
	}
	res := &result{
		Leader:    l.leaders[call.Slot],
		Fragments: []json.RawMessage{leading},
	}
	for _, idx := range call.Indices {
		entry, ok := l.entries[call.Slot][idx]
		if !ok {
			entry = null
		}
		res.Fragments = append(res.Fragments, entry)
	}
	return res, nil
}

func (l *Ledger) serveSubscription(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	var req request
	if err := conn.ReadJSON(&req); err != nil || req.Method != "slotSubscribe" {
		conn.Close()
		return
	}

	l.lk.Lock()
	err = conn.WriteJSON(response{JSONRPC: "2.0", ID: req.ID, Result: 0})
	if err != nil {
		l.lk.Unlock()
		conn.Close()
		return
	}
	l.subs = append(l.subs, conn)
	if len(l.subs) == 1 {
		select {
		case <-l.subFirst:
		default:
			close(l.subFirst)
		}
	}
	l.lk.Unlock()

	// drain until the peer or CloseSubscriptions closes the connection
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
