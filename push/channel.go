package push

import "context"

// EventChannel is a bounded, context-aware delivery queue. Send blocks until
// the event is accepted, the caller's context ends, or the channel's owning
// context ends. There is no close: a subscription ends by cancelling its
// owning context, which unblocks both sides.
type EventChannel[T any] struct {
	channel chan T
	context context.Context
}

// NewEventChannel creates an EventChannel bound to ctx with the given buffer.
func NewEventChannel[T any](ctx context.Context, bufferSize int) *EventChannel[T] {
	return &EventChannel[T]{
		channel: make(chan T, bufferSize),
		context: ctx,
	}
}

func (ec *EventChannel[T]) Send(ctx context.Context, event T) error {
	select {
	case ec.channel <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-ec.context.Done():
		return ec.context.Err()
	}
}

func (ec *EventChannel[T]) Receive(ctx context.Context) (T, error) {
	select {
	case event := <-ec.channel:
		return event, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-ec.context.Done():
		var zero T
		return zero, ec.context.Err()
	}
}
