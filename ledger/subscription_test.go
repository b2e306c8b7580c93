package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shredwatch/shredwatch-node/ledger"
	"github.com/shredwatch/shredwatch-node/ledger/ledgertest"
)

func TestSubscription(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	fake := ledgertest.New(t)
	sub, err := ledger.Subscribe(ctx, fake.WSURL())
	require.NoError(t, err)
	t.Cleanup(func() { sub.Close() })
	require.NoError(t, fake.WaitSubscribed(ctx))

	fake.Publish(`{"jsonrpc":"2.0","method":"slotNotification","params":{"result":"garbage"}}`)
	fake.Publish(`not json`)
	fake.PublishRoot(12345)

	upd, err := sub.Next()
	require.NoError(t, err)
	assert.EqualValues(t, 12345, upd.Root)
	assert.EqualValues(t, 12377, upd.Slot)

	fake.CloseSubscriptions()
	_, err = sub.Next()
	assert.ErrorIs(t, err, ledger.ErrSubscriptionLost)
}

func TestSubscription_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	fake := ledgertest.New(t)
	sub, err := ledger.Subscribe(ctx, fake.WSURL())
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := sub.Next()
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ledger.ErrSubscriptionLost)
	case <-time.After(5 * time.Second):
		t.Fatal("Next did not return after cancel")
	}
}

func TestSubscribe_ConnectFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	_, err := ledger.Subscribe(ctx, "ws://127.0.0.1:1")
	assert.ErrorIs(t, err, ledger.ErrSubscribe)
}
