package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionForwards(t *testing.T) {
	ch := make(chan int)
	sub := NewSubscription(ch)
	client := sub.Client()

	require.NoError(t, sub.Send(context.Background(), 1))
	select {
	case v := <-ch:
		assert.Equal(t, 1, v)
	case <-time.After(time.Second):
		t.Fatal("value was not forwarded")
	}

	client.Unsubscribe()
	assert.True(t, client.IsClosed())

	err := sub.Send(context.Background(), 2)
	assert.True(t, errors.Is(err, errs.Closed))
	assert.False(t, sub.TrySend(3))
}

func TestSubscriptionTrySendDoesNotBlock(t *testing.T) {
	ch := make(chan struct{}) // never read
	sub := NewSubscription(ch)
	defer sub.Unsubscribe()

	sent := 0
	for i := 0; i < SubscriptionBufferSize*4; i++ {
		if sub.TrySend(struct{}{}) {
			sent++
		}
	}
	assert.GreaterOrEqual(t, sent, SubscriptionBufferSize)
	assert.Less(t, sent, SubscriptionBufferSize*4)
}

func TestSubscriptionError(t *testing.T) {
	sub := NewSubscription(make(chan int))
	defer sub.Unsubscribe()

	require.NoError(t, sub.SendError(context.Background(), errors.New("stream closed")))
	select {
	case err := <-sub.Client().Err():
		assert.EqualError(t, err, "stream closed")
	case <-time.After(time.Second):
		t.Fatal("error was not delivered")
	}
}
