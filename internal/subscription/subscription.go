package subscription

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
)

// SubscriptionBufferSize is the buffer between the producer and the forwarding
// loop, so a slow consumer does not stall the producer right away.
var SubscriptionBufferSize = 8

// Subscription forwards values from a producer to a consumer channel until
// either side closes it. Errors travel on a separate channel.
type Subscription[T any] struct {
	channel chan<- T
	in      chan T
	err     chan error

	quitOnce sync.Once
	quit     chan struct{}
	quitDone chan struct{}
}

func NewSubscription[T any](channel chan<- T) *Subscription[T] {
	s := &Subscription[T]{
		channel:  channel,
		in:       make(chan T, SubscriptionBufferSize),
		err:      make(chan error, SubscriptionBufferSize),
		quit:     make(chan struct{}),
		quitDone: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Subscription[T]) Unsubscribe() {
	_ = s.UnsubscribeWithContext(context.Background())
}

// UnsubscribeWithContext stops forwarding and waits for the loop to exit.
func (s *Subscription[T]) UnsubscribeWithContext(ctx context.Context) (err error) {
	s.quitOnce.Do(func() {
		select {
		case s.quit <- struct{}{}:
			<-s.quitDone
		case <-s.quitDone:
		case <-ctx.Done():
			err = ctx.Err()
		}
	})
	return errors.WithStack(err)
}

func (s *Subscription[T]) Client() *ClientSubscription[T] {
	return &ClientSubscription[T]{subscription: s}
}

func (s *Subscription[T]) Err() <-chan error {
	return s.err
}

func (s *Subscription[T]) Done() <-chan struct{} {
	return s.quitDone
}

func (s *Subscription[T]) IsClosed() bool {
	select {
	case <-s.quitDone:
		return true
	default:
		return false
	}
}

// Send queues value for the consumer, blocking while the buffer is full.
func (s *Subscription[T]) Send(ctx context.Context, value T) error {
	select {
	case s.in <- value:
		return nil
	case <-s.quitDone:
		return errors.Wrap(errs.Closed, "subscription is closed")
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	}
}

// TrySend queues value without blocking. It reports false when the buffer is
// full, which is fine for values that only signal "something changed".
func (s *Subscription[T]) TrySend(value T) bool {
	select {
	case <-s.quitDone:
		return false
	default:
	}
	select {
	case s.in <- value:
		return true
	default:
		return false
	}
}

// SendError reports a producer failure to the consumer.
func (s *Subscription[T]) SendError(ctx context.Context, err error) error {
	select {
	case s.err <- err:
		return nil
	case <-s.quitDone:
		return errors.Wrap(errs.Closed, "subscription is closed")
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	}
}

func (s *Subscription[T]) run() {
	defer close(s.quitDone)

	for {
		select {
		case <-s.quit:
			return
		case value := <-s.in:
			select {
			case s.channel <- value:
			case <-s.quit:
				return
			}
		}
	}
}
