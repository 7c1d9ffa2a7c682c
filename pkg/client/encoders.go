package client

import (
	"tws-core/pkg/protocol"
	"tws-core/pkg/wire"
)

// Request encoders. Each builds the full field sequence for one outgoing
// message; version constants here are message-body versions, not protocol
// versions.

func encodeStartAPI(serverVersion, clientID int) *wire.RequestMessage {
	msg := wire.NewRequestMessage().
		AddInt(int(protocol.OutgoingStartAPI)).
		AddInt(2).
		AddInt(clientID)
	if serverVersion >= protocol.MinServerVerOptionalCapabilities {
		msg.AddString("")
	}
	return msg
}

func encodeRequestCurrentTime() *wire.RequestMessage {
	return wire.NewRequestMessage().
		AddInt(int(protocol.OutgoingRequestCurrentTime)).
		AddInt(1)
}

func encodeRequestManagedAccounts() *wire.RequestMessage {
	return wire.NewRequestMessage().
		AddInt(int(protocol.OutgoingRequestManagedAccounts)).
		AddInt(1)
}

func encodeRequestPositions() *wire.RequestMessage {
	return wire.NewRequestMessage().
		AddInt(int(protocol.OutgoingRequestPositions)).
		AddInt(1)
}

func encodeCancelPositions() *wire.RequestMessage {
	return wire.NewRequestMessage().
		AddInt(int(protocol.OutgoingCancelPositions)).
		AddInt(1)
}

func encodeRequestAccountSummary(requestID int, group, tags string) *wire.RequestMessage {
	return wire.NewRequestMessage().
		AddInt(int(protocol.OutgoingRequestAccountSummary)).
		AddInt(1).
		AddInt(requestID).
		AddString(group).
		AddString(tags)
}

func encodeCancelAccountSummary(requestID int) *wire.RequestMessage {
	return wire.NewRequestMessage().
		AddInt(int(protocol.OutgoingCancelAccountSummary)).
		AddInt(1).
		AddInt(requestID)
}

func encodeRequestAccountUpdates(subscribe bool, account string) *wire.RequestMessage {
	return wire.NewRequestMessage().
		AddInt(int(protocol.OutgoingRequestAccountData)).
		AddInt(2).
		AddBool(subscribe).
		AddString(account)
}

func addContract(msg *wire.RequestMessage, c Contract) *wire.RequestMessage {
	return msg.
		AddInt(c.ContractID).
		AddString(c.Symbol).
		AddString(c.SecurityType).
		AddString(c.LastTradeDateOrContractMonth).
		AddFloat(c.Strike).
		AddString(c.Right).
		AddString(c.Multiplier).
		AddString(c.Exchange).
		AddString(c.PrimaryExchange).
		AddString(c.Currency).
		AddString(c.LocalSymbol).
		AddString(c.TradingClass)
}

func encodeRequestMarketData(requestID int, c Contract, genericTicks string, snapshot bool) *wire.RequestMessage {
	msg := wire.NewRequestMessage().
		AddInt(int(protocol.OutgoingRequestMarketData)).
		AddInt(11).
		AddInt(requestID)
	addContract(msg, c)
	return msg.
		AddString(genericTicks).
		AddBool(snapshot).
		AddBool(false). // regulatory snapshot
		AddString("")   // market data options
}

func encodeCancelMarketData(requestID int) *wire.RequestMessage {
	return wire.NewRequestMessage().
		AddInt(int(protocol.OutgoingCancelMarketData)).
		AddInt(2).
		AddInt(requestID)
}

func encodeRequestHistoricalData(
	requestID int,
	c Contract,
	endTime, duration, barSize, whatToShow string,
	useRTH bool,
) *wire.RequestMessage {
	msg := wire.NewRequestMessage().
		AddInt(int(protocol.OutgoingRequestHistoricalData)).
		AddInt(6).
		AddInt(requestID)
	addContract(msg, c)
	return msg.
		AddString(endTime).
		AddString(barSize).
		AddString(duration).
		AddBool(useRTH).
		AddString(whatToShow).
		AddInt(1).      // format dates as strings
		AddBool(false). // keep up to date
		AddString("")   // chart options
}

func encodeCancelHistoricalData(requestID int) *wire.RequestMessage {
	return wire.NewRequestMessage().
		AddInt(int(protocol.OutgoingCancelHistoricalData)).
		AddInt(1).
		AddInt(requestID)
}

func encodeRequestContractData(requestID int, c Contract) *wire.RequestMessage {
	msg := wire.NewRequestMessage().
		AddInt(int(protocol.OutgoingRequestContractData)).
		AddInt(8).
		AddInt(requestID)
	addContract(msg, c)
	return msg.
		AddBool(false). // include expired
		AddString("").  // security id type
		AddString("")   // security id
}

func encodePlaceOrder(orderID int, c Contract, o Order) *wire.RequestMessage {
	msg := wire.NewRequestMessage().
		AddInt(int(protocol.OutgoingPlaceOrder)).
		AddInt(orderID)
	addContract(msg, c)
	return msg.
		AddString("").  // security id type
		AddString("").  // security id
		AddString(o.Action).
		AddFloat(o.TotalQuantity).
		AddString(o.OrderType).
		AddFloat(o.LimitPrice).
		AddFloat(o.AuxPrice).
		AddString(o.TimeInForce).
		AddString(o.Account).
		AddBool(o.Transmit)
}

func encodeCancelOrder(orderID int) *wire.RequestMessage {
	return wire.NewRequestMessage().
		AddInt(int(protocol.OutgoingCancelOrder)).
		AddInt(1).
		AddInt(orderID)
}

func encodeRequestExecutions(requestID int, f ExecutionFilter) *wire.RequestMessage {
	return wire.NewRequestMessage().
		AddInt(int(protocol.OutgoingRequestExecutions)).
		AddInt(3).
		AddInt(requestID).
		AddInt(f.ClientID).
		AddString(f.Account).
		AddString(f.Time).
		AddString(f.Symbol).
		AddString(f.SecurityType).
		AddString(f.Exchange).
		AddString(f.Side)
}

func encodeRequestPnL(requestID int, account, modelCode string) *wire.RequestMessage {
	return wire.NewRequestMessage().
		AddInt(int(protocol.OutgoingRequestPnL)).
		AddInt(requestID).
		AddString(account).
		AddString(modelCode)
}

func encodeCancelPnL(requestID int) *wire.RequestMessage {
	return wire.NewRequestMessage().
		AddInt(int(protocol.OutgoingCancelPnL)).
		AddInt(requestID)
}

func encodeRequestIDs() *wire.RequestMessage {
	return wire.NewRequestMessage().
		AddInt(int(protocol.OutgoingRequestIDs)).
		AddInt(1).
		AddInt(1)
}
