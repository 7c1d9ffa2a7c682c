// Package protocol defines the TWS message-type codes, the fixed field
// offsets used to correlate inbound frames with outstanding requests, and the
// pure routing decision applied to every frame read off the socket.
package protocol

// Incoming identifies an inbound message type. The numeric values are the
// protocol's historical codes and appear as the first field of every frame.
type Incoming int32

const (
	// IncomingShutdown tells the reader loop to stop. It is a control
	// sentinel, not a gateway message type.
	IncomingShutdown Incoming = -2

	// IncomingNotValid is the decode result for an unrecognized code.
	IncomingNotValid Incoming = -1

	IncomingTickPrice          Incoming = 1
	IncomingTickSize           Incoming = 2
	IncomingOrderStatus        Incoming = 3
	IncomingErrorMessage       Incoming = 4
	IncomingOpenOrder          Incoming = 5
	IncomingAccountValue       Incoming = 6
	IncomingPortfolioValue     Incoming = 7
	IncomingAccountUpdateTime  Incoming = 8
	IncomingNextValidID        Incoming = 9
	IncomingContractData       Incoming = 10
	IncomingExecutionData      Incoming = 11
	IncomingMarketDepth        Incoming = 12
	IncomingMarketDepthL2      Incoming = 13
	IncomingNewsBulletins      Incoming = 14
	IncomingManagedAccounts    Incoming = 15
	IncomingHistoricalData     Incoming = 17
	IncomingScannerData        Incoming = 20
	IncomingTickGeneric        Incoming = 45
	IncomingTickString         Incoming = 46
	IncomingCurrentTime        Incoming = 49
	IncomingRealTimeBars       Incoming = 50
	IncomingContractDataEnd    Incoming = 52
	IncomingOpenOrderEnd       Incoming = 53
	IncomingAccountDownloadEnd Incoming = 54
	IncomingExecutionDataEnd   Incoming = 55
	IncomingTickSnapshotEnd    Incoming = 57
	IncomingMarketDataType     Incoming = 58
	IncomingCommissionReport   Incoming = 59
	IncomingPosition           Incoming = 61
	IncomingPositionEnd        Incoming = 62
	IncomingAccountSummary     Incoming = 63
	IncomingAccountSummaryEnd  Incoming = 64
	IncomingSymbolSamples      Incoming = 79
	IncomingHeadTimestamp      Incoming = 88
	IncomingPnL                Incoming = 94
	IncomingPnLSingle          Incoming = 95
	IncomingTickByTick         Incoming = 99
	IncomingCompletedOrder     Incoming = 101
	IncomingCompletedOrdersEnd Incoming = 102
)

var incomingNames = map[Incoming]string{
	IncomingShutdown:           "Shutdown",
	IncomingNotValid:           "NotValid",
	IncomingTickPrice:          "TickPrice",
	IncomingTickSize:           "TickSize",
	IncomingOrderStatus:        "OrderStatus",
	IncomingErrorMessage:       "ErrorMessage",
	IncomingOpenOrder:          "OpenOrder",
	IncomingAccountValue:       "AccountValue",
	IncomingPortfolioValue:     "PortfolioValue",
	IncomingAccountUpdateTime:  "AccountUpdateTime",
	IncomingNextValidID:        "NextValidID",
	IncomingContractData:       "ContractData",
	IncomingExecutionData:      "ExecutionData",
	IncomingMarketDepth:        "MarketDepth",
	IncomingMarketDepthL2:      "MarketDepthL2",
	IncomingNewsBulletins:      "NewsBulletins",
	IncomingManagedAccounts:    "ManagedAccounts",
	IncomingHistoricalData:     "HistoricalData",
	IncomingScannerData:        "ScannerData",
	IncomingTickGeneric:        "TickGeneric",
	IncomingTickString:         "TickString",
	IncomingCurrentTime:        "CurrentTime",
	IncomingRealTimeBars:       "RealTimeBars",
	IncomingContractDataEnd:    "ContractDataEnd",
	IncomingOpenOrderEnd:       "OpenOrderEnd",
	IncomingAccountDownloadEnd: "AccountDownloadEnd",
	IncomingExecutionDataEnd:   "ExecutionDataEnd",
	IncomingTickSnapshotEnd:    "TickSnapshotEnd",
	IncomingMarketDataType:     "MarketDataType",
	IncomingCommissionReport:   "CommissionReport",
	IncomingPosition:           "Position",
	IncomingPositionEnd:        "PositionEnd",
	IncomingAccountSummary:     "AccountSummary",
	IncomingAccountSummaryEnd:  "AccountSummaryEnd",
	IncomingSymbolSamples:      "SymbolSamples",
	IncomingHeadTimestamp:      "HeadTimestamp",
	IncomingPnL:                "PnL",
	IncomingPnLSingle:          "PnLSingle",
	IncomingTickByTick:         "TickByTick",
	IncomingCompletedOrder:     "CompletedOrder",
	IncomingCompletedOrdersEnd: "CompletedOrdersEnd",
}

// IncomingFromCode maps a numeric code to its Incoming value, or
// IncomingNotValid for codes this client does not know.
func IncomingFromCode(code int) Incoming {
	in := Incoming(code)
	if _, ok := incomingNames[in]; !ok {
		return IncomingNotValid
	}
	return in
}

func (i Incoming) String() string {
	if name, ok := incomingNames[i]; ok {
		return name
	}
	return "Unknown"
}
