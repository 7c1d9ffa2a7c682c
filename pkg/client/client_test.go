package client_test

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tws-core/internal/simulator"
	"tws-core/pkg/client"
	"tws-core/pkg/config"
	"tws-core/pkg/protocol"
	"tws-core/pkg/wire"
)

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func startServer(t *testing.T) *simulator.Server {
	srv := simulator.New(nil)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(srv *simulator.Server) *config.Config {
	return &config.Config{
		Host:           srv.Addr(),
		Port:           srv.Port(),
		ClientID:       100,
		ConnectTimeout: 5 * time.Second,
		MessageRate:    1000,
	}
}

func connect(t *testing.T, srv *simulator.Server) *client.Client {
	c, err := client.Connect(testConfig(srv), nil)
	require.NoError(t, err)
	t.Cleanup(c.Disconnect)
	return c
}

func TestConnectHandshake(t *testing.T) {
	srv := startServer(t)
	c := connect(t, srv)

	info := c.ServerInfo()
	require.Equal(t, 176, info.Version)
	require.NotNil(t, info.TimeZone)
	require.NotEqual(t, time.UTC, info.TimeZone)
	require.Equal(t, 2026, info.ConnectionTime.Year())

	require.Equal(t, []string{"DU1234567", "DU7654321"}, c.ManagedAccounts())
	require.Equal(t, 90, c.NextOrderID())
	require.Equal(t, 91, c.NextOrderID())
	require.True(t, c.IsConnected())
}

func TestConnectRefused(t *testing.T) {
	srv := startServer(t)
	cfg := testConfig(srv)
	srv.Close()

	_, err := client.Connect(cfg, nil)
	require.Error(t, err)
}

func TestReconnectRefreshesSessionInfo(t *testing.T) {
	srv := startServer(t)
	cfg := testConfig(srv)
	cfg.MaxReconnectAttempts = 3

	conn, err := client.Dial(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// Session metadata stays readable while the handshake re-runs.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				_ = conn.ServerVersion()
				_ = conn.ServerInfo()
				_ = conn.AccountInfo()
			}
		}
	}()

	require.NoError(t, conn.Reconnect())
	close(done)
	wg.Wait()

	require.Equal(t, 176, conn.ServerVersion())
	require.Equal(t, 90, conn.AccountInfo().NextOrderID)
	require.Len(t, srv.Sessions(), 2)
}

func TestFireAndForgetRequests(t *testing.T) {
	srv := startServer(t)
	seen := make(chan protocol.Outgoing, 2)
	srv.Handle(protocol.OutgoingRequestIDs, func(*simulator.Session, *wire.ResponseMessage) {
		seen <- protocol.OutgoingRequestIDs
	})
	srv.Handle(protocol.OutgoingRequestManagedAccounts, func(*simulator.Session, *wire.ResponseMessage) {
		seen <- protocol.OutgoingRequestManagedAccounts
	})
	c := connect(t, srv)
	ctx := testContext(t)

	require.NoError(t, c.RequestIDs())
	require.NoError(t, c.RequestManagedAccounts())

	got := map[protocol.Outgoing]bool{}
	for i := 0; i < 2; i++ {
		select {
		case out := <-seen:
			got[out] = true
		case <-ctx.Done():
			t.Fatal("request never reached the server")
		}
	}
	require.True(t, got[protocol.OutgoingRequestIDs])
	require.True(t, got[protocol.OutgoingRequestManagedAccounts])
}

func TestCurrentTime(t *testing.T) {
	srv := startServer(t)
	now := time.Now().Truncate(time.Second)
	srv.Handle(protocol.OutgoingRequestCurrentTime, func(s *simulator.Session, _ *wire.ResponseMessage) {
		s.Send("49", "1", strconv.FormatInt(now.Unix(), 10))
	})
	c := connect(t, srv)

	got, err := c.CurrentTime(testContext(t))
	require.NoError(t, err)
	require.Equal(t, now.Unix(), got.Unix())
}

func TestPositionsSnapshot(t *testing.T) {
	srv := startServer(t)
	cancelled := make(chan struct{}, 1)
	srv.Handle(protocol.OutgoingRequestPositions, func(s *simulator.Session, _ *wire.ResponseMessage) {
		s.Send("61", "3", "DU1234567",
			"756733", "AAPL", "STK", "", "0", "", "", "SMART", "USD", "AAPL", "NMS",
			"500", "150.25")
		s.Send("61", "3", "DU1234567",
			"9579970", "MSFT", "STK", "", "0", "", "", "SMART", "USD", "MSFT", "MSFT",
			"-100", "310.10")
		s.Send("62", "1")
	})
	srv.Handle(protocol.OutgoingCancelPositions, func(s *simulator.Session, _ *wire.ResponseMessage) {
		cancelled <- struct{}{}
	})
	c := connect(t, srv)
	ctx := testContext(t)

	sub, err := c.Positions()
	require.NoError(t, err)

	first, err := sub.Next(ctx)
	require.NoError(t, err)
	require.False(t, first.End)
	require.Equal(t, "AAPL", first.Position.Contract.Symbol)
	require.Equal(t, 500.0, first.Position.Quantity)
	require.Equal(t, 150.25, first.Position.AverageCost)

	second, err := sub.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, -100.0, second.Position.Quantity)

	boundary, err := sub.Next(ctx)
	require.NoError(t, err)
	require.True(t, boundary.End)

	// The boundary item auto-cancels the stream.
	select {
	case <-cancelled:
	case <-ctx.Done():
		t.Fatal("cancel request never sent")
	}

	_, err = sub.Next(ctx)
	require.ErrorIs(t, err, client.ErrEndOfStream)
}

func TestDuplicateSharedSubscription(t *testing.T) {
	srv := startServer(t)
	c := connect(t, srv)

	sub, err := c.Positions()
	require.NoError(t, err)
	defer sub.Cancel()

	_, err = c.Positions()
	require.Error(t, err)
}

func TestAccountSummaryServerError(t *testing.T) {
	srv := startServer(t)
	srv.Handle(protocol.OutgoingRequestAccountSummary, func(s *simulator.Session, msg *wire.ResponseMessage) {
		requestID, err := msg.PeekInt(2)
		if err != nil {
			return
		}
		s.Send("63", "1", strconv.Itoa(requestID), "DU1234567", "NetLiquidation", "250000.00", "USD")
		s.SendError(requestID, 354, "Requested market data is not subscribed.")
	})
	c := connect(t, srv)
	ctx := testContext(t)

	sub, err := c.AccountSummary("All", "NetLiquidation")
	require.NoError(t, err)
	defer sub.Cancel()

	item, err := sub.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "NetLiquidation", item.Tag)
	require.Equal(t, "250000.00", item.Value)

	_, err = sub.Next(ctx)
	var serr *client.ServerError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, 354, serr.Code)
}

func TestWarningsAreSuppressed(t *testing.T) {
	srv := startServer(t)
	srv.Handle(protocol.OutgoingRequestAccountSummary, func(s *simulator.Session, msg *wire.ResponseMessage) {
		requestID, err := msg.PeekInt(2)
		if err != nil {
			return
		}
		s.SendError(requestID, 2104, "Market data farm connection is OK")
		s.SendError(-1, 2107, "HMDS data farm connection is inactive")
		s.Send("63", "1", strconv.Itoa(requestID), "DU1234567", "BuyingPower", "1000000.00", "USD")
	})
	c := connect(t, srv)

	sub, err := c.AccountSummary("All", "BuyingPower")
	require.NoError(t, err)
	defer sub.Cancel()

	item, err := sub.Next(testContext(t))
	require.NoError(t, err)
	require.Equal(t, "BuyingPower", item.Tag)
}

func TestUnexpectedResponseSkipped(t *testing.T) {
	srv := startServer(t)
	srv.Handle(protocol.OutgoingRequestAccountSummary, func(s *simulator.Session, msg *wire.ResponseMessage) {
		requestID, err := msg.PeekInt(2)
		if err != nil {
			return
		}
		// Routes to the same request id but is not a summary message.
		s.Send("58", "1", strconv.Itoa(requestID), "1")
		s.Send("63", "1", strconv.Itoa(requestID), "DU1234567", "NetLiquidation", "250000.00", "USD")
	})
	c := connect(t, srv)

	sub, err := c.AccountSummary("All", "NetLiquidation")
	require.NoError(t, err)
	defer sub.Cancel()

	item, err := sub.Next(testContext(t))
	require.NoError(t, err)
	require.Equal(t, "NetLiquidation", item.Tag)
}

func TestMarketDataSnapshot(t *testing.T) {
	srv := startServer(t)
	srv.Handle(protocol.OutgoingRequestMarketData, func(s *simulator.Session, msg *wire.ResponseMessage) {
		requestID, err := msg.PeekInt(2)
		if err != nil {
			return
		}
		id := strconv.Itoa(requestID)
		s.Send("1", "6", id, "4", "185.42", "300", "1")
		s.Send("2", "6", id, "8", "125000")
		s.Send("57", "1", id)
	})
	c := connect(t, srv)
	ctx := testContext(t)

	sub, err := c.MarketData(stockContract("AAPL"), "", true)
	require.NoError(t, err)

	tick, err := sub.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, client.TickPrice, tick.Kind)
	require.Equal(t, 4, tick.TickType)
	require.Equal(t, 185.42, tick.Price)
	require.Equal(t, int64(300), tick.Size)
	require.True(t, tick.Attribute.CanAutoExecute)

	size, err := sub.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, client.TickSize, size.Kind)
	require.Equal(t, int64(125000), size.Size)

	end, err := sub.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, client.TickSnapshotEnd, end.Kind)

	_, err = sub.Next(ctx)
	require.ErrorIs(t, err, client.ErrEndOfStream)
}

func TestHistoricalData(t *testing.T) {
	srv := startServer(t)
	srv.Handle(protocol.OutgoingRequestHistoricalData, func(s *simulator.Session, msg *wire.ResponseMessage) {
		requestID, err := msg.PeekInt(2)
		if err != nil {
			return
		}
		s.Send("17", strconv.Itoa(requestID),
			"20260827 09:30:00", "20260828 16:00:00", "2",
			"20260827", "184.10", "186.00", "183.55", "185.42", "48210000", "184.90", "154210",
			"20260828", "185.50", "187.25", "185.00", "186.80", "39800000", "186.20", "128844")
	})
	c := connect(t, srv)

	data, err := c.HistoricalData(testContext(t), stockContract("AAPL"),
		"20260828 16:00:00", "2 D", "1 day", "TRADES", true)
	require.NoError(t, err)
	require.Equal(t, "20260827 09:30:00", data.Start)
	require.Len(t, data.Bars, 2)
	require.Equal(t, 186.80, data.Bars[1].Close)
	require.Equal(t, 154210, data.Bars[0].Count)
}

func TestContractDetails(t *testing.T) {
	srv := startServer(t)
	srv.Handle(protocol.OutgoingRequestContractData, func(s *simulator.Session, msg *wire.ResponseMessage) {
		requestID, err := msg.PeekInt(2)
		if err != nil {
			return
		}
		id := strconv.Itoa(requestID)
		s.Send("10", id,
			"AAPL", "STK", "", "0", "", "SMART", "USD", "AAPL", "NMS", "NMS",
			"265598", "0.01", "", "ACTIVETIM,AD", "SMART,AMEX,NYSE", "1",
			"APPLE INC", "NASDAQ")
		s.Send("52", "1", id)
	})
	c := connect(t, srv)

	details, err := c.ContractDetails(testContext(t), stockContract("AAPL"))
	require.NoError(t, err)
	require.Len(t, details, 1)
	require.Equal(t, 265598, details[0].Contract.ContractID)
	require.Equal(t, "APPLE INC", details[0].LongName)
	require.Equal(t, 0.01, details[0].MinTick)
}

func TestPlaceOrderLifecycle(t *testing.T) {
	srv := startServer(t)
	srv.Handle(protocol.OutgoingPlaceOrder, func(s *simulator.Session, msg *wire.ResponseMessage) {
		orderID, err := msg.PeekInt(1)
		if err != nil {
			return
		}
		id := strconv.Itoa(orderID)
		s.Send("3", id, "Submitted", "0", "100", "0", "1745", "0", "0", "100", "", "0")
		s.Send("11", "-1", id, "0000e0d5.1", "20260830 10:01:02", "DU1234567",
			"NASDAQ", "BOT", "100", "185.40", "1745", "100", "100", "185.40")
		s.Send("3", id, "Filled", "100", "0", "185.40", "1745", "0", "185.40", "100", "", "0")
	})

	cfg := testConfig(srv)
	cfg.JournalPath = filepath.Join(t.TempDir(), "journal.db")
	c, err := client.Connect(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(c.Disconnect)
	ctx := testContext(t)

	sub, err := c.PlaceOrder(stockContract("AAPL"), client.Order{
		Action:        "BUY",
		TotalQuantity: 100,
		OrderType:     "LMT",
		LimitPrice:    185.50,
		AuxPrice:      wire.UnsetFloat,
		TimeInForce:   "DAY",
		Transmit:      true,
	})
	require.NoError(t, err)
	defer sub.Cancel()

	submitted, err := sub.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, submitted.Status)
	require.Equal(t, "Submitted", submitted.Status.Status)

	fill, err := sub.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, fill.Execution)
	require.Equal(t, "0000e0d5.1", fill.Execution.ExecutionID)
	require.Equal(t, 100.0, fill.Execution.Shares)

	final, err := sub.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, final.Status)
	require.Equal(t, "Filled", final.Status.Status)

	orders, err := c.Journal().SessionOrders()
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, "Filled", orders[0].Status)

	execs, err := c.Journal().OrderExecutions(orders[0].OrderID)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	require.Equal(t, 185.40, execs[0].Price)
}

func TestExecutionsBoundary(t *testing.T) {
	srv := startServer(t)
	srv.Handle(protocol.OutgoingRequestExecutions, func(s *simulator.Session, msg *wire.ResponseMessage) {
		requestID, err := msg.PeekInt(2)
		if err != nil {
			return
		}
		// The commission report carries no order id, so it lands on the
		// unspecified-order stream along with the report boundary.
		s.Send("59", "1", "0000e0d5.1", "1.25", "USD", "", "", "")
		s.Send("55", "1", strconv.Itoa(requestID))
	})
	c := connect(t, srv)
	ctx := testContext(t)

	sub, err := c.Executions(client.ExecutionFilter{})
	require.NoError(t, err)

	commission, err := sub.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, commission.Commission)
	require.Equal(t, 1.25, commission.Commission.Commission)

	boundary, err := sub.Next(ctx)
	require.NoError(t, err)
	require.True(t, boundary.Done)

	_, err = sub.Next(ctx)
	require.ErrorIs(t, err, client.ErrEndOfStream)
}

func TestPnLVersionGate(t *testing.T) {
	srv := startServer(t)
	srv.ServerVersion = 120
	c := connect(t, srv)

	_, err := c.PnL("DU1234567", "")
	var verr *protocol.VersionError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, protocol.MinServerVerPnL, verr.Required)
}

func TestPnLStream(t *testing.T) {
	srv := startServer(t)
	srv.Handle(protocol.OutgoingRequestPnL, func(s *simulator.Session, msg *wire.ResponseMessage) {
		requestID, err := msg.PeekInt(1)
		if err != nil {
			return
		}
		s.Send("94", strconv.Itoa(requestID), "-120.50", "430.25", "0")
	})
	c := connect(t, srv)

	sub, err := c.PnL("DU1234567", "")
	require.NoError(t, err)
	defer sub.Cancel()

	pnl, err := sub.Next(testContext(t))
	require.NoError(t, err)
	require.Equal(t, -120.50, pnl.DailyPnL)
	require.Equal(t, 430.25, pnl.UnrealizedPnL)
}

func TestShutdownSentinelEndsStreams(t *testing.T) {
	srv := startServer(t)
	srv.Handle(protocol.OutgoingRequestPositions, func(s *simulator.Session, _ *wire.ResponseMessage) {
		s.SendShutdown()
	})
	c := connect(t, srv)

	sub, err := c.Positions()
	require.NoError(t, err)

	_, err = sub.Next(testContext(t))
	require.ErrorIs(t, err, client.ErrEndOfStream)
}

func TestAccountUpdates(t *testing.T) {
	srv := startServer(t)
	srv.Handle(protocol.OutgoingRequestAccountData, func(s *simulator.Session, msg *wire.ResponseMessage) {
		subscribe, err := msg.PeekInt(2)
		if err != nil || subscribe != 1 {
			return
		}
		s.Send("6", "2", "NetLiquidation", "250000.00", "USD", "DU1234567")
		s.Send("8", "1", "10:15")
		s.Send("54", "1", "DU1234567")
	})
	c := connect(t, srv)
	ctx := testContext(t)

	sub, err := c.AccountUpdates("DU1234567")
	require.NoError(t, err)
	defer sub.Cancel()

	value, err := sub.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, value.Value)
	require.Equal(t, "NetLiquidation", value.Value.Key)

	ts, err := sub.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "10:15", ts.Time)

	end, err := sub.Next(ctx)
	require.NoError(t, err)
	require.True(t, end.End)
	require.Equal(t, "DU1234567", end.Account)
}

// stockContract builds the minimal stock contract used across tests.
func stockContract(symbol string) client.Contract {
	return client.Contract{
		Symbol:       symbol,
		SecurityType: "STK",
		Exchange:     "SMART",
		Currency:     "USD",
	}
}
