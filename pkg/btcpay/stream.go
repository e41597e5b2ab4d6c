package btcpay

import (
	"context"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/internal/subscription"
	"github.com/gorilla/websocket"
)

const streamHandshakeTimeout = 10 * time.Second

// StatusStreamURL is the checkout page websocket that fires when the invoice changes.
func (c *Client) StatusStreamURL(invoiceID string) string {
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/i/" + url.PathEscape(invoiceID) + "/status/ws"
	u.RawQuery = ""
	return u.String()
}

// SubscribeStatus opens the checkout status stream of an invoice. A message on
// ch only means the invoice changed; callers re-read the invoice to learn how.
// The stream closes when the subscription is cancelled, ctx is done, or the
// server hangs up, in which case the read error is delivered on Err.
func (c *Client) SubscribeStatus(ctx context.Context, invoiceID string, ch chan<- struct{}) (*subscription.ClientSubscription[struct{}], error) {
	dialer := websocket.Dialer{HandshakeTimeout: streamHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.StatusStreamURL(invoiceID), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open status stream of invoice %q", invoiceID)
	}

	sub := subscription.NewSubscription(ch)
	go func() {
		select {
		case <-sub.Done():
		case <-ctx.Done():
			sub.Unsubscribe()
		}
		_ = conn.Close()
	}()
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !sub.IsClosed() {
					_ = sub.SendError(ctx, errors.Wrap(err, "status stream closed"))
				}
				return
			}
			sub.TrySend(struct{}{})
		}
	}()
	return sub.Client(), nil
}
