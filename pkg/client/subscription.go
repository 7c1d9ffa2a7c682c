package client

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"

	"go.uber.org/zap"

	"tws-core/pkg/wire"
)

// A decoder that keeps reporting unexpected types gives up after this many
// consecutive items rather than spinning.
const maxDecodeRetries = 10

// decodeFunc turns one raw message into a stream item. It returns
// ErrUnexpectedResponse for types it does not accept and ErrEndOfStream when
// the message marks graceful termination.
type decodeFunc[T any] func(serverVersion int, msg *wire.ResponseMessage) (T, error)

// cancelBuilder produces the cancel request for a stream, or an error when
// the stream cannot be cancelled.
type cancelBuilder func(serverVersion int) (*wire.RequestMessage, error)

// messageSender is the slice of Connection a subscription needs.
type messageSender interface {
	WriteMessage(*wire.RequestMessage) error
	ServerVersion() int
}

// Subscription is a typed live stream of decoded items. Next blocks for the
// next item; Cancel sends the protocol-level cancel (when one exists) and
// releases the routing slot. Cancel is idempotent and safe to call
// concurrently with Next.
type Subscription[T any] struct {
	handle *busHandle
	sender messageSender
	decode decodeFunc[T]
	cancel cancelBuilder
	log    *zap.Logger

	// endsStream marks items whose arrival should auto-cancel the stream,
	// such as a snapshot boundary on a finite request.
	endsStream func(T) bool

	cancelled   atomic.Bool
	failureSeen atomic.Bool
}

func newSubscription[T any](
	handle *busHandle,
	sender messageSender,
	log *zap.Logger,
	decode decodeFunc[T],
	cancel cancelBuilder,
) *Subscription[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Subscription[T]{
		handle: handle,
		sender: sender,
		decode: decode,
		cancel: cancel,
		log:    log,
	}
}

// Next blocks until the next item, a stream error, context cancellation, or
// stream termination. A non-nil error with errors.Is(err, ErrEndOfStream)
// means the stream ended gracefully and no further items will arrive. Server
// errors for this stream are returned as item errors; the stream remains
// live afterward and the caller decides whether to continue. A transport
// failure that tears the stream down is returned once, after any queued
// items; subsequent calls report ErrEndOfStream.
func (s *Subscription[T]) Next(ctx context.Context) (T, error) {
	var zero T
	retries := 0
	for {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case item, ok := <-s.handle.items():
			if !ok {
				if err := s.handle.terminalError(); err != nil && s.failureSeen.CompareAndSwap(false, true) {
					return zero, err
				}
				return zero, ErrEndOfStream
			}
			if item.err != nil {
				return zero, item.err
			}
			v, err := s.decode(s.sender.ServerVersion(), item.msg)
			switch {
			case err == nil:
				if s.endsStream != nil && s.endsStream(v) {
					s.Cancel()
				}
				return v, nil
			case errors.Is(err, ErrEndOfStream):
				s.Cancel()
				return zero, ErrEndOfStream
			case errors.Is(err, ErrUnexpectedResponse):
				retries++
				if retries >= maxDecodeRetries {
					s.log.Warn("giving up after repeated unexpected responses",
						zap.Int("retries", retries))
					s.Cancel()
					return zero, ErrEndOfStream
				}
				s.log.Debug("skipping unexpected response", zap.Error(err))
			default:
				return zero, err
			}
		}
	}
}

// All iterates the stream until graceful termination or context
// cancellation. Item errors are yielded and iteration continues, matching
// the Next contract.
func (s *Subscription[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			v, err := s.Next(ctx)
			if errors.Is(err, ErrEndOfStream) {
				return
			}
			if !yield(v, err) {
				return
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
		}
	}
}

// Cancel sends the stream's cancel request, if it has one, and releases the
// routing slot. Items already queued remain readable until the channel
// drains.
func (s *Subscription[T]) Cancel() {
	if !s.cancelled.CompareAndSwap(false, true) {
		return
	}
	if s.cancel != nil {
		msg, err := s.cancel(s.sender.ServerVersion())
		if err != nil {
			s.log.Warn("cancel message unavailable", zap.Error(err))
		} else if err := s.sender.WriteMessage(msg); err != nil {
			s.log.Warn("cancel send failed", zap.Error(err))
		}
	}
	s.handle.release()
}

// Close implements io.Closer by cancelling the stream.
func (s *Subscription[T]) Close() error {
	s.Cancel()
	return nil
}
