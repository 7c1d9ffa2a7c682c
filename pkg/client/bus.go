package client

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"tws-core/pkg/protocol"
	"tws-core/pkg/wire"
)

const (
	subscriptionBuffer = 256
	unsubscribeBuffer  = 64
)

// transport is the slice of Connection the bus depends on.
type transport interface {
	ReadMessage() ([]byte, error)
	Reconnect() error
}

// busItem is one delivery to a subscriber: a decoded-frame carrier or an
// error for that stream. The stream stays open after an error item; closing
// the channel is reserved for terminal conditions.
type busItem struct {
	msg *wire.ResponseMessage
	err error
}

type channelKind int

const (
	kindRequest channelKind = iota
	kindOrder
	kindShared
)

type busKey struct {
	kind   channelKind
	id     int
	shared protocol.Outgoing
}

func (k busKey) String() string {
	switch k.kind {
	case kindRequest:
		return fmt.Sprintf("request/%d", k.id)
	case kindOrder:
		return fmt.Sprintf("order/%d", k.id)
	default:
		return fmt.Sprintf("shared/%s", k.shared)
	}
}

// busHandle is a subscriber's link to the bus. Releasing it is idempotent.
type busHandle struct {
	bus      *MessageBus
	key      busKey
	ch       chan busItem
	released atomic.Bool

	// failure is set before ch is closed when the bus tears down on a
	// transport error. Valid to read only after observing the close.
	failure error
}

func (h *busHandle) items() <-chan busItem { return h.ch }

// terminalError reports why the bus closed this channel; nil means a
// graceful close.
func (h *busHandle) terminalError() error { return h.failure }

func (h *busHandle) release() {
	if h.released.CompareAndSwap(false, true) {
		h.bus.retire(h.key)
	}
}

// MessageBus owns the single reader goroutine and fans incoming messages out
// to subscriber channels. Three registries back the routing decisions: by
// request id, by order id, and shared streams keyed by the originating
// request type.
type MessageBus struct {
	conn      transport
	log       *zap.Logger
	reconnect bool

	mu       sync.Mutex
	requests map[int]*busHandle
	orders   map[int]*busHandle
	shared   map[protocol.Outgoing]*busHandle

	unsubCh   chan busKey
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newMessageBus(conn transport, log *zap.Logger, reconnect bool) *MessageBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &MessageBus{
		conn:      conn,
		log:       log,
		reconnect: reconnect,
		requests:  make(map[int]*busHandle),
		orders:    make(map[int]*busHandle),
		shared:    make(map[protocol.Outgoing]*busHandle),
		unsubCh:   make(chan busKey, unsubscribeBuffer),
		done:      make(chan struct{}),
	}
}

func (b *MessageBus) start() {
	b.wg.Add(2)
	go b.processMessages()
	go b.processCleanup()
}

func (b *MessageBus) stop() {
	b.closeOnce.Do(func() { close(b.done) })
}

func (b *MessageBus) subscribeRequest(id int) (*busHandle, error) {
	return b.subscribe(busKey{kind: kindRequest, id: id})
}

func (b *MessageBus) subscribeOrder(id int) (*busHandle, error) {
	return b.subscribe(busKey{kind: kindOrder, id: id})
}

func (b *MessageBus) subscribeShared(origin protocol.Outgoing) (*busHandle, error) {
	return b.subscribe(busKey{kind: kindShared, shared: origin})
}

func (b *MessageBus) subscribe(key busKey) (*busHandle, error) {
	h := &busHandle{bus: b, key: key, ch: make(chan busItem, subscriptionBuffer)}

	b.mu.Lock()
	defer b.mu.Unlock()
	switch key.kind {
	case kindRequest:
		if _, taken := b.requests[key.id]; taken {
			return nil, fmt.Errorf("duplicate subscription for %s", key)
		}
		b.requests[key.id] = h
	case kindOrder:
		if _, taken := b.orders[key.id]; taken {
			return nil, fmt.Errorf("duplicate subscription for %s", key)
		}
		b.orders[key.id] = h
	case kindShared:
		if _, taken := b.shared[key.shared]; taken {
			return nil, fmt.Errorf("duplicate subscription for %s", key)
		}
		b.shared[key.shared] = h
	}
	return h, nil
}

// retire hands cleanup to the dedicated goroutine. The subscriber may be
// inside a receive on its own channel, so the drop must never run inline on
// the caller's stack while the dispatch loop holds the registry.
func (b *MessageBus) retire(key busKey) {
	select {
	case b.unsubCh <- key:
	case <-b.done:
		b.cleanup(key)
	}
}

func (b *MessageBus) processCleanup() {
	defer b.wg.Done()
	for {
		select {
		case key := <-b.unsubCh:
			b.cleanup(key)
		case <-b.done:
			return
		}
	}
}

func (b *MessageBus) cleanup(key busKey) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch key.kind {
	case kindRequest:
		if h, ok := b.requests[key.id]; ok {
			delete(b.requests, key.id)
			close(h.ch)
		}
	case kindOrder:
		if h, ok := b.orders[key.id]; ok {
			delete(b.orders, key.id)
			close(h.ch)
		}
	case kindShared:
		if h, ok := b.shared[key.shared]; ok {
			delete(b.shared, key.shared)
			close(h.ch)
		}
	}
}

func (b *MessageBus) processMessages() {
	defer b.wg.Done()
	for {
		payload, err := b.conn.ReadMessage()
		if err != nil {
			select {
			case <-b.done:
				b.closeAll()
				return
			default:
			}
			if b.reconnect && isRecoverable(err) {
				b.log.Warn("connection dropped, attempting recovery", zap.Error(err))
				if rerr := b.conn.Reconnect(); rerr == nil {
					continue
				} else {
					err = rerr
				}
			}
			b.log.Error("reader terminating", zap.Error(err))
			b.failAll(err)
			return
		}
		if !b.dispatch(wire.NewResponseMessage(payload)) {
			b.closeAll()
			return
		}
	}
}

func isRecoverable(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	return errors.Is(err, net.ErrClosed)
}

// dispatch routes one message. Returns false on the shutdown sentinel.
func (b *MessageBus) dispatch(msg *wire.ResponseMessage) bool {
	d := protocol.DetermineRouting(msg)

	switch d.Kind {
	case protocol.RouteShutdown:
		b.log.Info("shutdown requested by peer")
		return false

	case protocol.RouteError:
		b.dispatchError(msg, d)

	case protocol.RouteByRequestID:
		b.deliver(busKey{kind: kindRequest, id: d.RequestID}, busItem{msg: msg})

	case protocol.RouteByOrderID:
		b.deliver(busKey{kind: kindOrder, id: d.OrderID}, busItem{msg: msg})

	default:
		origin, ok := protocol.SharedRequest(d.Type)
		if !ok {
			b.log.Debug("no shared channel for message type",
				zap.Stringer("type", d.Type))
			return true
		}
		b.deliver(busKey{kind: kindShared, shared: origin}, busItem{msg: msg})
	}
	return true
}

func (b *MessageBus) dispatchError(msg *wire.ResponseMessage, d protocol.RoutingDecision) {
	text, _ := msg.PeekString(4)

	if protocol.IsWarning(d.ErrorCode) {
		b.log.Warn("server warning",
			zap.Int("request_id", d.RequestID),
			zap.Int("code", d.ErrorCode),
			zap.String("message", text))
		return
	}
	if d.RequestID == protocol.UnspecifiedRequestID {
		b.log.Error("connection-level server error",
			zap.Int("code", d.ErrorCode),
			zap.String("message", text))
		return
	}

	serr := &ServerError{RequestID: d.RequestID, Code: d.ErrorCode, Message: text}

	// The id namespace is shared between requests and orders; try both.
	b.mu.Lock()
	defer b.mu.Unlock()
	if h, ok := b.requests[d.RequestID]; ok {
		b.send(h.key, h.ch, busItem{err: serr})
		return
	}
	if h, ok := b.orders[d.RequestID]; ok {
		b.send(h.key, h.ch, busItem{err: serr})
		return
	}
	b.log.Info("server error with no consumer",
		zap.Int("request_id", d.RequestID),
		zap.Int("code", d.ErrorCode),
		zap.String("message", text))
}

// deliver looks up the channel and sends under the registry lock, so a
// concurrent cleanup cannot close the channel mid-send.
func (b *MessageBus) deliver(key busKey, item busItem) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var h *busHandle
	var ok bool
	switch key.kind {
	case kindRequest:
		h, ok = b.requests[key.id]
	case kindOrder:
		h, ok = b.orders[key.id]
	case kindShared:
		h, ok = b.shared[key.shared]
	}
	if !ok {
		b.log.Debug("dropping message with no subscriber", zap.Stringer("key", key))
		return
	}
	b.send(key, h.ch, item)
}

// send is best-effort: a subscriber that stops draining loses messages
// rather than stalling the reader. Callers hold b.mu.
func (b *MessageBus) send(key busKey, ch chan busItem, item busItem) {
	select {
	case ch <- item:
	default:
		b.log.Warn("subscriber buffer full, dropping message", zap.Stringer("key", key))
	}
}

// failAll records the terminal transport error on every handle, then closes
// the channels. The error sits behind the close rather than in the buffer,
// so a subscriber with a full backlog still observes it after draining.
func (b *MessageBus) failAll(err error) {
	b.forEach(func(h *busHandle) {
		h.failure = err
		close(h.ch)
	})
}

func (b *MessageBus) closeAll() {
	b.forEach(func(h *busHandle) { close(h.ch) })
}

func (b *MessageBus) forEach(fn func(*busHandle)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, h := range b.requests {
		fn(h)
	}
	for _, h := range b.orders {
		fn(h)
	}
	for _, h := range b.shared {
		fn(h)
	}
	b.requests = make(map[int]*busHandle)
	b.orders = make(map[int]*busHandle)
	b.shared = make(map[protocol.Outgoing]*busHandle)
}
