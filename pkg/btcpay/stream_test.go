package btcpay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeStatus(t *testing.T) {
	upgrader := websocket.Upgrader{}
	serverDone := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(serverDone)
		assert.Equal(t, "/i/BTCPAY1/status/ws", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{}")))
		assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{}")))
	}))
	defer srv.Close()

	client, err := New(Config{URL: srv.URL, StoreID: "store1", APIKey: "key1"})
	require.NoError(t, err)

	ch := make(chan struct{}, 4)
	sub, err := client.SubscribeStatus(context.Background(), "BTCPAY1", ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	for i := 0; i < 2; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("status hint %d not received", i)
		}
	}

	<-serverDone
	select {
	case err := <-sub.Err():
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("expected stream closed error")
	}
}
