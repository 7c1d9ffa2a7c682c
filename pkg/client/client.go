// Package client implements a session with an Interactive Brokers TWS or
// Gateway endpoint: connection and handshake, request pacing, and typed
// subscription streams multiplexed over a single reader.
package client

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"tws-core/pkg/config"
	"tws-core/pkg/journal"
	"tws-core/pkg/protocol"
	"tws-core/pkg/wire"
)

// Client is the public facade. All methods are safe for concurrent use.
type Client struct {
	conn *Connection
	bus  *MessageBus
	jnl  *journal.Journal
	log  *zap.Logger

	requestIDs *idGenerator
	orderIDs   *idGenerator
}

// Connect dials the configured endpoint, performs the handshake, and starts
// the dispatch machinery.
func Connect(cfg *config.Config, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}

	conn, err := Dial(cfg, log)
	if err != nil {
		return nil, err
	}

	info := conn.AccountInfo()
	jnl, err := journal.Open(cfg.JournalPath, cfg.ClientID, conn.ServerVersion(),
		strings.Join(info.ManagedAccounts, ","))
	if err != nil {
		conn.Close()
		return nil, err
	}

	bus := newMessageBus(conn, log, cfg.MaxReconnectAttempts > 0)
	bus.start()

	return &Client{
		conn:       conn,
		bus:        bus,
		jnl:        jnl,
		log:        log,
		requestIDs: newIDGenerator(requestIDSeed),
		orderIDs:   newIDGenerator(info.NextOrderID),
	}, nil
}

// Disconnect closes the session. Open subscriptions observe end of stream.
func (c *Client) Disconnect() {
	c.bus.stop()
	c.conn.Close()
	c.bus.wg.Wait()
	if err := c.jnl.Close(); err != nil {
		c.log.Warn("journal close failed", zap.Error(err))
	}
}

// IsConnected reports whether the session is active.
func (c *Client) IsConnected() bool { return c.conn.IsConnected() }

// ServerInfo describes the negotiated session.
func (c *Client) ServerInfo() ServerInfo { return c.conn.ServerInfo() }

// ManagedAccounts returns the accounts announced during the handshake.
func (c *Client) ManagedAccounts() []string { return c.conn.AccountInfo().ManagedAccounts }

// NextRequestID reserves the next request id.
func (c *Client) NextRequestID() int { return c.requestIDs.Next() }

// NextOrderID reserves the next order id.
func (c *Client) NextOrderID() int { return c.orderIDs.Next() }

// Journal exposes the session journal; nil when journaling is disabled.
func (c *Client) Journal() *journal.Journal { return c.jnl }

// CurrentTime asks the server for its clock.
func (c *Client) CurrentTime(ctx context.Context) (time.Time, error) {
	handle, err := c.bus.subscribeShared(protocol.OutgoingRequestCurrentTime)
	if err != nil {
		return time.Time{}, err
	}
	sub := newSubscription(handle, c.conn, c.log, decodeCurrentTime, nil)
	defer sub.Cancel()

	if err := c.conn.WriteMessage(encodeRequestCurrentTime()); err != nil {
		return time.Time{}, err
	}
	return sub.Next(ctx)
}

// Positions subscribes to the account's position stream. The stream begins
// with a snapshot, ends the snapshot with an item whose End flag is set, and
// cancels itself at that boundary.
func (c *Client) Positions() (*Subscription[PositionUpdate], error) {
	handle, err := c.bus.subscribeShared(protocol.OutgoingRequestPositions)
	if err != nil {
		return nil, err
	}
	sub := newSubscription(handle, c.conn, c.log, decodePositionUpdate,
		func(int) (*wire.RequestMessage, error) {
			return encodeCancelPositions(), nil
		})
	sub.endsStream = func(u PositionUpdate) bool { return u.End }

	if err := c.conn.WriteMessage(encodeRequestPositions()); err != nil {
		sub.Cancel()
		return nil, err
	}
	return sub, nil
}

// AccountSummary subscribes to summary values for the given account group
// and comma-separated tags.
func (c *Client) AccountSummary(group, tags string) (*Subscription[AccountSummaryItem], error) {
	requestID := c.requestIDs.Next()
	handle, err := c.bus.subscribeRequest(requestID)
	if err != nil {
		return nil, err
	}
	sub := newSubscription(handle, c.conn, c.log, decodeAccountSummary,
		func(int) (*wire.RequestMessage, error) {
			return encodeCancelAccountSummary(requestID), nil
		})

	if err := c.conn.WriteMessage(encodeRequestAccountSummary(requestID, group, tags)); err != nil {
		sub.Cancel()
		return nil, err
	}
	return sub, nil
}

// AccountUpdates subscribes to value, portfolio, and timestamp updates for
// one account. An item with End set marks the initial download boundary.
func (c *Client) AccountUpdates(account string) (*Subscription[AccountUpdate], error) {
	handle, err := c.bus.subscribeShared(protocol.OutgoingRequestAccountData)
	if err != nil {
		return nil, err
	}
	sub := newSubscription(handle, c.conn, c.log, decodeAccountUpdate,
		func(int) (*wire.RequestMessage, error) {
			return encodeRequestAccountUpdates(false, account), nil
		})

	if err := c.conn.WriteMessage(encodeRequestAccountUpdates(true, account)); err != nil {
		sub.Cancel()
		return nil, err
	}
	return sub, nil
}

// MarketData subscribes to the tick stream for one contract. With snapshot
// set the server ends the stream with a TickSnapshotEnd item.
func (c *Client) MarketData(contract Contract, genericTicks string, snapshot bool) (*Subscription[TickUpdate], error) {
	requestID := c.requestIDs.Next()
	handle, err := c.bus.subscribeRequest(requestID)
	if err != nil {
		return nil, err
	}
	sub := newSubscription(handle, c.conn, c.log, decodeTickUpdate,
		func(int) (*wire.RequestMessage, error) {
			return encodeCancelMarketData(requestID), nil
		})
	if snapshot {
		sub.endsStream = func(t TickUpdate) bool { return t.Kind == TickSnapshotEnd }
	}

	if err := c.conn.WriteMessage(encodeRequestMarketData(requestID, contract, genericTicks, snapshot)); err != nil {
		sub.Cancel()
		return nil, err
	}
	return sub, nil
}

// HistoricalData fetches a bar series and blocks until the full response
// arrives.
func (c *Client) HistoricalData(
	ctx context.Context,
	contract Contract,
	endTime, duration, barSize, whatToShow string,
	useRTH bool,
) (HistoricalData, error) {
	requestID := c.requestIDs.Next()
	handle, err := c.bus.subscribeRequest(requestID)
	if err != nil {
		return HistoricalData{}, err
	}
	sub := newSubscription(handle, c.conn, c.log, decodeHistoricalData,
		func(int) (*wire.RequestMessage, error) {
			return encodeCancelHistoricalData(requestID), nil
		})
	defer sub.Cancel()

	msg := encodeRequestHistoricalData(requestID, contract, endTime, duration, barSize, whatToShow, useRTH)
	if err := c.conn.WriteMessage(msg); err != nil {
		return HistoricalData{}, err
	}
	return sub.Next(ctx)
}

// ContractDetails resolves a contract description to the server's full
// contract records, blocking until the terminating marker.
func (c *Client) ContractDetails(ctx context.Context, contract Contract) ([]ContractDetails, error) {
	requestID := c.requestIDs.Next()
	handle, err := c.bus.subscribeRequest(requestID)
	if err != nil {
		return nil, err
	}
	sub := newSubscription(handle, c.conn, c.log, decodeContractDetails, nil)
	defer sub.Cancel()

	if err := c.conn.WriteMessage(encodeRequestContractData(requestID, contract)); err != nil {
		return nil, err
	}

	var out []ContractDetails
	for {
		d, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrEndOfStream) {
				return out, nil
			}
			return out, err
		}
		out = append(out, d)
	}
}

// PlaceOrder submits an order and returns its lifecycle stream: status
// transitions, open-order echoes, fills, and commission reports.
func (c *Client) PlaceOrder(contract Contract, order Order) (*Subscription[OrderUpdate], error) {
	orderID := order.OrderID
	if orderID <= 0 {
		orderID = c.orderIDs.Next()
		order.OrderID = orderID
	}

	handle, err := c.bus.subscribeOrder(orderID)
	if err != nil {
		return nil, err
	}
	sub := newSubscription(handle, c.conn, c.log, c.journalingOrderDecoder(),
		func(int) (*wire.RequestMessage, error) {
			return encodeCancelOrder(orderID), nil
		})

	if err := c.conn.WriteMessage(encodePlaceOrder(orderID, contract, order)); err != nil {
		sub.Cancel()
		return nil, err
	}
	if err := c.jnl.RecordOrder(orderID, contract.Symbol, contract.Exchange,
		order.Action, order.OrderType, order.TotalQuantity, order.LimitPrice); err != nil {
		c.log.Warn("journal write failed", zap.Error(err))
	}
	return sub, nil
}

// journalingOrderDecoder wraps the order decoder so lifecycle events flow
// into the session journal as a side effect of consumption.
func (c *Client) journalingOrderDecoder() decodeFunc[OrderUpdate] {
	return func(serverVersion int, msg *wire.ResponseMessage) (OrderUpdate, error) {
		u, err := decodeOrderUpdate(serverVersion, msg)
		if err != nil {
			return u, err
		}
		var jerr error
		switch {
		case u.Status != nil:
			jerr = c.jnl.UpdateOrderStatus(u.Status.OrderID, u.Status.Status)
		case u.Execution != nil:
			ex := u.Execution
			jerr = c.jnl.RecordExecution(ex.ExecutionID, ex.OrderID, "", ex.Side, ex.Shares, ex.Price, ex.Time)
		case u.Commission != nil:
			jerr = c.jnl.RecordCommission(u.Commission.ExecutionID, u.Commission.Commission)
		}
		if jerr != nil {
			c.log.Warn("journal write failed", zap.Error(jerr))
		}
		return u, nil
	}
}

// CancelOrder requests cancellation of a working order. The outcome arrives
// on the order's own stream.
func (c *Client) CancelOrder(orderID int) error {
	return c.conn.WriteMessage(encodeCancelOrder(orderID))
}

// Executions requests execution reports matching the filter. Fills for an
// order route to that order's own stream; this stream observes the report
// boundary and the commission reports, which carry no order id and route
// under the unspecified id.
func (c *Client) Executions(filter ExecutionFilter) (*Subscription[OrderUpdate], error) {
	requestID := c.requestIDs.Next()
	handle, err := c.bus.subscribeOrder(protocol.UnspecifiedRequestID)
	if err != nil {
		return nil, err
	}
	sub := newSubscription(handle, c.conn, c.log, c.journalingOrderDecoder(), nil)
	sub.endsStream = func(u OrderUpdate) bool { return u.Done }

	if err := c.conn.WriteMessage(encodeRequestExecutions(requestID, filter)); err != nil {
		sub.Cancel()
		return nil, err
	}
	return sub, nil
}

// PnL subscribes to real-time profit and loss for an account, optionally
// narrowed to a model code.
func (c *Client) PnL(account, modelCode string) (*Subscription[PnL], error) {
	if err := protocol.CheckServerVersion(c.conn.ServerVersion(), protocol.MinServerVerPnL, "pnl requests"); err != nil {
		return nil, err
	}

	requestID := c.requestIDs.Next()
	handle, err := c.bus.subscribeRequest(requestID)
	if err != nil {
		return nil, err
	}
	sub := newSubscription(handle, c.conn, c.log, decodePnL,
		func(int) (*wire.RequestMessage, error) {
			return encodeCancelPnL(requestID), nil
		})

	if err := c.conn.WriteMessage(encodeRequestPnL(requestID, account, modelCode)); err != nil {
		sub.Cancel()
		return nil, err
	}
	return sub, nil
}

// RequestIDs asks the server to re-announce the next valid order id. The
// response arrives on the shared channel drained during the handshake, so
// this is fire-and-forget; it exists for parity with manual gateway
// debugging.
func (c *Client) RequestIDs() error {
	return c.conn.WriteMessage(encodeRequestIDs())
}

// RequestManagedAccounts asks the server to re-announce the managed account
// list. Fire-and-forget, like RequestIDs.
func (c *Client) RequestManagedAccounts() error {
	return c.conn.WriteMessage(encodeRequestManagedAccounts())
}
