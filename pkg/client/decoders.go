package client

import (
	"fmt"
	"time"

	"tws-core/pkg/protocol"
	"tws-core/pkg/wire"
)

// Response decoders. Each consumes a full message from field zero. A message
// of a type the decoder does not accept yields ErrUnexpectedResponse so the
// subscription can skip past it.

func messageType(msg *wire.ResponseMessage) (protocol.Incoming, error) {
	msg.Reset()
	code, err := msg.NextInt()
	if err != nil {
		return protocol.IncomingNotValid, err
	}
	return protocol.IncomingFromCode(code), nil
}

func unexpected(in protocol.Incoming) error {
	return fmt.Errorf("%w: %s", ErrUnexpectedResponse, in)
}

func decodeCurrentTime(_ int, msg *wire.ResponseMessage) (time.Time, error) {
	in, err := messageType(msg)
	if err != nil {
		return time.Time{}, err
	}
	if in != protocol.IncomingCurrentTime {
		return time.Time{}, unexpected(in)
	}
	msg.Skip() // version
	return msg.NextDateTime()
}

func decodeContract(msg *wire.ResponseMessage) (Contract, error) {
	var c Contract
	var err error
	read := func(dst *string) {
		if err == nil {
			*dst, err = msg.NextString()
		}
	}
	if c.ContractID, err = msg.NextInt(); err != nil {
		return c, err
	}
	read(&c.Symbol)
	read(&c.SecurityType)
	read(&c.LastTradeDateOrContractMonth)
	if err == nil {
		c.Strike, err = msg.NextFloat()
	}
	read(&c.Right)
	read(&c.Multiplier)
	read(&c.Exchange)
	read(&c.Currency)
	read(&c.LocalSymbol)
	read(&c.TradingClass)
	return c, err
}

func decodePositionUpdate(_ int, msg *wire.ResponseMessage) (PositionUpdate, error) {
	in, err := messageType(msg)
	if err != nil {
		return PositionUpdate{}, err
	}
	switch in {
	case protocol.IncomingPositionEnd:
		return PositionUpdate{End: true}, nil
	case protocol.IncomingPosition:
	default:
		return PositionUpdate{}, unexpected(in)
	}

	msg.Skip() // version
	var p Position
	if p.Account, err = msg.NextString(); err != nil {
		return PositionUpdate{}, err
	}
	if p.Contract, err = decodeContract(msg); err != nil {
		return PositionUpdate{}, err
	}
	if p.Quantity, err = msg.NextFloat(); err != nil {
		return PositionUpdate{}, err
	}
	if p.AverageCost, err = msg.NextFloat(); err != nil {
		return PositionUpdate{}, err
	}
	return PositionUpdate{Position: p}, nil
}

func decodeAccountSummary(_ int, msg *wire.ResponseMessage) (AccountSummaryItem, error) {
	in, err := messageType(msg)
	if err != nil {
		return AccountSummaryItem{}, err
	}
	switch in {
	case protocol.IncomingAccountSummaryEnd:
		return AccountSummaryItem{}, ErrEndOfStream
	case protocol.IncomingAccountSummary:
	default:
		return AccountSummaryItem{}, unexpected(in)
	}

	msg.Skip() // version
	msg.Skip() // request id
	var item AccountSummaryItem
	if item.Account, err = msg.NextString(); err != nil {
		return item, err
	}
	if item.Tag, err = msg.NextString(); err != nil {
		return item, err
	}
	if item.Value, err = msg.NextString(); err != nil {
		return item, err
	}
	item.Currency, err = msg.NextString()
	return item, err
}

func decodeAccountUpdate(_ int, msg *wire.ResponseMessage) (AccountUpdate, error) {
	in, err := messageType(msg)
	if err != nil {
		return AccountUpdate{}, err
	}
	switch in {
	case protocol.IncomingAccountValue:
		msg.Skip() // version
		var v AccountValue
		if v.Key, err = msg.NextString(); err != nil {
			return AccountUpdate{}, err
		}
		if v.Value, err = msg.NextString(); err != nil {
			return AccountUpdate{}, err
		}
		if v.Currency, err = msg.NextString(); err != nil {
			return AccountUpdate{}, err
		}
		if v.Account, err = msg.NextString(); err != nil {
			return AccountUpdate{}, err
		}
		return AccountUpdate{Value: &v}, nil

	case protocol.IncomingPortfolioValue:
		msg.Skip() // version
		var p PortfolioValue
		if p.Contract, err = decodeContract(msg); err != nil {
			return AccountUpdate{}, err
		}
		fields := []*float64{
			&p.Quantity, &p.MarketPrice, &p.MarketValue,
			&p.AverageCost, &p.UnrealizedPnL, &p.RealizedPnL,
		}
		for _, dst := range fields {
			if *dst, err = msg.NextFloat(); err != nil {
				return AccountUpdate{}, err
			}
		}
		p.Account, err = msg.NextString()
		if err != nil {
			return AccountUpdate{}, err
		}
		return AccountUpdate{Portfolio: &p}, nil

	case protocol.IncomingAccountUpdateTime:
		msg.Skip() // version
		ts, err := msg.NextString()
		if err != nil {
			return AccountUpdate{}, err
		}
		return AccountUpdate{Time: ts}, nil

	case protocol.IncomingAccountDownloadEnd:
		msg.Skip() // version
		account, err := msg.NextString()
		if err != nil {
			return AccountUpdate{}, err
		}
		return AccountUpdate{End: true, Account: account}, nil

	default:
		return AccountUpdate{}, unexpected(in)
	}
}

func decodeTickUpdate(_ int, msg *wire.ResponseMessage) (TickUpdate, error) {
	in, err := messageType(msg)
	if err != nil {
		return TickUpdate{}, err
	}
	msg.Skip() // version
	msg.Skip() // request id

	var t TickUpdate
	switch in {
	case protocol.IncomingTickPrice:
		t.Kind = TickPrice
		if t.TickType, err = msg.NextInt(); err != nil {
			return t, err
		}
		if t.Price, err = msg.NextFloat(); err != nil {
			return t, err
		}
		if t.Size, err = msg.NextInt64(); err != nil {
			return t, err
		}
		mask, err := msg.NextInt()
		if err != nil {
			return t, err
		}
		t.Attribute = TickAttribute{
			CanAutoExecute: mask&1 != 0,
			PastLimit:      mask&2 != 0,
			PreOpen:        mask&4 != 0,
		}
		return t, nil

	case protocol.IncomingTickSize:
		t.Kind = TickSize
		if t.TickType, err = msg.NextInt(); err != nil {
			return t, err
		}
		t.Size, err = msg.NextInt64()
		return t, err

	case protocol.IncomingTickGeneric:
		t.Kind = TickGeneric
		if t.TickType, err = msg.NextInt(); err != nil {
			return t, err
		}
		t.Value, err = msg.NextFloat()
		return t, err

	case protocol.IncomingTickString:
		t.Kind = TickString
		if t.TickType, err = msg.NextInt(); err != nil {
			return t, err
		}
		t.Text, err = msg.NextString()
		return t, err

	case protocol.IncomingTickSnapshotEnd:
		t.Kind = TickSnapshotEnd
		return t, nil

	case protocol.IncomingMarketDataType:
		t.Kind = TickDataType
		if t.TickType, err = msg.NextInt(); err != nil {
			return t, err
		}
		return t, nil

	default:
		return TickUpdate{}, unexpected(in)
	}
}

func decodeHistoricalData(_ int, msg *wire.ResponseMessage) (HistoricalData, error) {
	in, err := messageType(msg)
	if err != nil {
		return HistoricalData{}, err
	}
	if in != protocol.IncomingHistoricalData {
		return HistoricalData{}, unexpected(in)
	}

	msg.Skip() // request id
	var h HistoricalData
	if h.Start, err = msg.NextString(); err != nil {
		return h, err
	}
	if h.End, err = msg.NextString(); err != nil {
		return h, err
	}
	count, err := msg.NextInt()
	if err != nil {
		return h, err
	}
	h.Bars = make([]Bar, 0, count)
	for i := 0; i < count; i++ {
		var b Bar
		if b.Time, err = msg.NextString(); err != nil {
			return h, err
		}
		for _, dst := range []*float64{&b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.WAP} {
			if *dst, err = msg.NextFloat(); err != nil {
				return h, err
			}
		}
		if b.Count, err = msg.NextInt(); err != nil {
			return h, err
		}
		h.Bars = append(h.Bars, b)
	}
	return h, nil
}

func decodeContractDetails(_ int, msg *wire.ResponseMessage) (ContractDetails, error) {
	in, err := messageType(msg)
	if err != nil {
		return ContractDetails{}, err
	}
	switch in {
	case protocol.IncomingContractDataEnd:
		return ContractDetails{}, ErrEndOfStream
	case protocol.IncomingContractData:
	default:
		return ContractDetails{}, unexpected(in)
	}

	msg.Skip() // request id
	var d ContractDetails
	c := &d.Contract
	readStr := func(dst *string) {
		if err == nil {
			*dst, err = msg.NextString()
		}
	}
	readStr(&c.Symbol)
	readStr(&c.SecurityType)
	readStr(&c.LastTradeDateOrContractMonth)
	if err == nil {
		c.Strike, err = msg.NextFloat()
	}
	readStr(&c.Right)
	readStr(&c.Exchange)
	readStr(&c.Currency)
	readStr(&c.LocalSymbol)
	readStr(&d.MarketName)
	readStr(&c.TradingClass)
	if err == nil {
		c.ContractID, err = msg.NextInt()
	}
	if err == nil {
		d.MinTick, err = msg.NextFloat()
	}
	readStr(&c.Multiplier)
	readStr(&d.OrderTypes)
	readStr(&d.ValidExchanges)
	if err == nil {
		d.PriceMagnifier, err = msg.NextInt()
	}
	readStr(&d.LongName)
	readStr(&c.PrimaryExchange)
	return d, err
}

func decodeOrderUpdate(_ int, msg *wire.ResponseMessage) (OrderUpdate, error) {
	in, err := messageType(msg)
	if err != nil {
		return OrderUpdate{}, err
	}
	switch in {
	case protocol.IncomingOrderStatus:
		st, err := decodeOrderStatus(msg)
		if err != nil {
			return OrderUpdate{}, err
		}
		return OrderUpdate{Status: st}, nil

	case protocol.IncomingOpenOrder:
		oo, err := decodeOpenOrder(msg)
		if err != nil {
			return OrderUpdate{}, err
		}
		return OrderUpdate{Open: oo}, nil

	case protocol.IncomingExecutionData:
		ex, err := decodeExecution(msg)
		if err != nil {
			return OrderUpdate{}, err
		}
		return OrderUpdate{Execution: ex}, nil

	case protocol.IncomingCommissionReport:
		cr, err := decodeCommissionReport(msg)
		if err != nil {
			return OrderUpdate{}, err
		}
		return OrderUpdate{Commission: cr}, nil

	case protocol.IncomingOpenOrderEnd,
		protocol.IncomingExecutionDataEnd,
		protocol.IncomingCompletedOrdersEnd:
		return OrderUpdate{Done: true}, nil

	default:
		return OrderUpdate{}, unexpected(in)
	}
}

func decodeOrderStatus(msg *wire.ResponseMessage) (*OrderStatus, error) {
	var st OrderStatus
	var err error
	if st.OrderID, err = msg.NextInt(); err != nil {
		return nil, err
	}
	if st.Status, err = msg.NextString(); err != nil {
		return nil, err
	}
	for _, dst := range []*float64{&st.Filled, &st.Remaining, &st.AvgFillPrice} {
		if *dst, err = msg.NextFloat(); err != nil {
			return nil, err
		}
	}
	if st.PermID, err = msg.NextInt(); err != nil {
		return nil, err
	}
	if st.ParentID, err = msg.NextInt(); err != nil {
		return nil, err
	}
	if st.LastFillPrice, err = msg.NextFloat(); err != nil {
		return nil, err
	}
	if st.ClientID, err = msg.NextInt(); err != nil {
		return nil, err
	}
	if st.WhyHeld, err = msg.NextString(); err != nil {
		return nil, err
	}
	st.MktCapPrice, err = msg.NextFloat()
	return &st, err
}

func decodeOpenOrder(msg *wire.ResponseMessage) (*OpenOrder, error) {
	var oo OpenOrder
	var err error
	if oo.OrderID, err = msg.NextInt(); err != nil {
		return nil, err
	}
	if oo.Contract, err = decodeContract(msg); err != nil {
		return nil, err
	}
	o := &oo.Order
	o.OrderID = oo.OrderID
	if o.Action, err = msg.NextString(); err != nil {
		return nil, err
	}
	if o.TotalQuantity, err = msg.NextFloat(); err != nil {
		return nil, err
	}
	if o.OrderType, err = msg.NextString(); err != nil {
		return nil, err
	}
	if o.LimitPrice, _, err = msg.NextOptionalFloat(); err != nil {
		return nil, err
	}
	if o.AuxPrice, _, err = msg.NextOptionalFloat(); err != nil {
		return nil, err
	}
	if o.TimeInForce, err = msg.NextString(); err != nil {
		return nil, err
	}
	if o.Account, err = msg.NextString(); err != nil {
		return nil, err
	}
	oo.Status, err = msg.NextString()
	return &oo, err
}

func decodeExecution(msg *wire.ResponseMessage) (*Execution, error) {
	msg.Skip() // request id
	var ex Execution
	var err error
	if ex.OrderID, err = msg.NextInt(); err != nil {
		return nil, err
	}
	if ex.ExecutionID, err = msg.NextString(); err != nil {
		return nil, err
	}
	for _, dst := range []*string{&ex.Time, &ex.Account, &ex.Exchange, &ex.Side} {
		if *dst, err = msg.NextString(); err != nil {
			return nil, err
		}
	}
	if ex.Shares, err = msg.NextFloat(); err != nil {
		return nil, err
	}
	if ex.Price, err = msg.NextFloat(); err != nil {
		return nil, err
	}
	if ex.PermID, err = msg.NextInt(); err != nil {
		return nil, err
	}
	if ex.ClientID, err = msg.NextInt(); err != nil {
		return nil, err
	}
	if ex.CumulativeQty, err = msg.NextFloat(); err != nil {
		return nil, err
	}
	ex.AveragePrice, err = msg.NextFloat()
	return &ex, err
}

func decodeCommissionReport(msg *wire.ResponseMessage) (*CommissionReport, error) {
	msg.Skip() // version
	var cr CommissionReport
	var err error
	if cr.ExecutionID, err = msg.NextString(); err != nil {
		return nil, err
	}
	if cr.Commission, err = msg.NextFloat(); err != nil {
		return nil, err
	}
	if cr.Currency, err = msg.NextString(); err != nil {
		return nil, err
	}
	if cr.RealizedPnL, _, err = msg.NextOptionalFloat(); err != nil {
		return nil, err
	}
	if cr.Yield, _, err = msg.NextOptionalFloat(); err != nil {
		return nil, err
	}
	cr.YieldRedempts, err = msg.NextString()
	return &cr, err
}

func decodePnL(_ int, msg *wire.ResponseMessage) (PnL, error) {
	in, err := messageType(msg)
	if err != nil {
		return PnL{}, err
	}
	if in != protocol.IncomingPnL {
		return PnL{}, unexpected(in)
	}

	msg.Skip() // request id
	var p PnL
	if p.DailyPnL, err = msg.NextFloat(); err != nil {
		return p, err
	}
	if p.UnrealizedPnL, _, err = msg.NextOptionalFloat(); err != nil {
		return p, err
	}
	p.RealizedPnL, _, err = msg.NextOptionalFloat()
	return p, err
}
