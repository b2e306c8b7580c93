package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/filecoin-project/go-jsonrpc"
	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shredwatch/shredwatch-node/libs/utils"
)

var (
	log    = logging.Logger("ledger")
	tracer = otel.Tracer("ledger")
)

// DefaultCommitment is the commitment level fragments are requested at.
const DefaultCommitment = "confirmed"

var ErrEmptyResponse = errors.New("ledger: empty response")

// Result is the response of a fragment request. Fragments holds one leading
// entry followed by one entry per requested index, each either a JSON null or
// a tagged wire fragment. Entries are kept raw so that a single malformed
// entry does not fail the whole call.
type Result struct {
	Leader    string            `json:"leader"`
	Fragments []json.RawMessage `json:"fragments"`
}

// RequestConfig is the trailing options object of a fragment request.
type RequestConfig struct {
	Commitment string `json:"commitment"`
}

// API is the JSON-RPC surface of the ledger used by the node.
type API struct {
	Internal struct {
		GetFragments func(ctx context.Context, slot uint64, indices []uint32, cfg RequestConfig) (*Result, error) `rpc_method:"getFragments"`
	}
}

// Client talks to a ledger node over JSON-RPC for fragment requests and over
// a websocket for slot notifications.
type Client struct {
	api        API
	closer     jsonrpc.ClientCloser
	commitment string
	wsURL      string
}

// NewClient connects to the ledger RPC at addr. An empty wsURL is derived
// from addr.
func NewClient(ctx context.Context, addr, wsURL, commitment string) (*Client, error) {
	if wsURL == "" {
		var err error
		wsURL, err = WebsocketURL(addr)
		if err != nil {
			return nil, err
		}
	}
	if commitment == "" {
		commitment = DefaultCommitment
	}

	cl := &Client{
		commitment: commitment,
		wsURL:      wsURL,
	}
	closer, err := jsonrpc.NewMergeClient(ctx, addr, "", []interface{}{&cl.api.Internal}, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("ledger: creating rpc client: %w", err)
	}
	cl.closer = closer
	return cl, nil
}

// GetFragments requests the fragments at indices of slot.
func (c *Client) GetFragments(ctx context.Context, slot uint64, indices []uint32) (res *Result, err error) {
	ctx, span := tracer.Start(ctx, "get-fragments", trace.WithAttributes(
		attribute.Int64("slot", int64(slot)),
		attribute.Int("indices", len(indices)),
	))
	defer func() {
		utils.SetStatusAndEnd(span, err)
	}()

	res, err = c.api.Internal.GetFragments(ctx, slot, indices, RequestConfig{Commitment: c.commitment})
	if err != nil {
		return nil, fmt.Errorf("ledger: getFragments for slot %d: %w", slot, err)
	}
	if res == nil {
		return nil, fmt.Errorf("%w for slot %d", ErrEmptyResponse, slot)
	}
	span.SetAttributes(attribute.Int("entries", len(res.Fragments)))
	return res, nil
}

// SubscribeSlots opens a slot notification stream on the client's websocket
// endpoint.
func (c *Client) SubscribeSlots(ctx context.Context) (SlotStream, error) {
	sub, err := Subscribe(ctx, c.wsURL)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}
