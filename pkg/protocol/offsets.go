package protocol

// Fixed field offsets, counted from the message-type field at index 0.
// Frames that still carry a legacy version field have their correlation id
// one position later than frames with the modern versionless layout; the
// tables below encode the layout actually transmitted for each type.

// requestIDOffsets maps message types that carry a request id to its index.
var requestIDOffsets = map[Incoming]int{
	IncomingErrorMessage:      2,
	IncomingTickPrice:         2,
	IncomingTickSize:          2,
	IncomingTickGeneric:       2,
	IncomingTickString:        2,
	IncomingTickSnapshotEnd:   2,
	IncomingMarketDataType:    2,
	IncomingMarketDepth:       2,
	IncomingMarketDepthL2:     2,
	IncomingRealTimeBars:      2,
	IncomingContractDataEnd:   2,
	IncomingAccountSummary:    2,
	IncomingAccountSummaryEnd: 2,
	IncomingScannerData:       2,
	IncomingContractData:      1,
	IncomingHistoricalData:    1,
	IncomingSymbolSamples:     1,
	IncomingHeadTimestamp:     1,
	IncomingPnL:               1,
	IncomingPnLSingle:         1,
	IncomingTickByTick:        1,
}

// orderIDOffsets maps order-lifecycle types that carry an order id to its
// index. End markers and the commission report have no order id on purpose.
var orderIDOffsets = map[Incoming]int{
	IncomingOrderStatus:   1,
	IncomingOpenOrder:     1,
	IncomingExecutionData: 2,
}

// orderLifecycle is the closed set of order-related types. Members without an
// order id field still route to the order stream under the -1 boundary id so
// a single consumer observes every lifecycle event.
var orderLifecycle = map[Incoming]struct{}{
	IncomingOrderStatus:        {},
	IncomingOpenOrder:          {},
	IncomingOpenOrderEnd:       {},
	IncomingExecutionData:      {},
	IncomingExecutionDataEnd:   {},
	IncomingCommissionReport:   {},
	IncomingCompletedOrder:     {},
	IncomingCompletedOrdersEnd: {},
}

// RequestIDOffset returns the request-id field index for the type, or false
// when the type carries none. Unmapped types are a soft miss, never a panic.
func RequestIDOffset(in Incoming) (int, bool) {
	i, ok := requestIDOffsets[in]
	return i, ok
}

// OrderIDOffset returns the order-id field index for the type, or false when
// the type carries none.
func OrderIDOffset(in Incoming) (int, bool) {
	i, ok := orderIDOffsets[in]
	return i, ok
}

// IsOrderLifecycle reports whether the type belongs to the order stream.
func IsOrderLifecycle(in Incoming) bool {
	_, ok := orderLifecycle[in]
	return ok
}
