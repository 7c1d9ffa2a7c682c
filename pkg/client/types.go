package client

import "time"

// Contract identifies a tradable instrument. Zero values are omitted from
// the wire encoding, so a bare symbol/exchange/currency triple is enough for
// most lookups.
type Contract struct {
	ContractID                   int
	Symbol                       string
	SecurityType                 string
	LastTradeDateOrContractMonth string
	Strike                       float64
	Right                        string
	Multiplier                   string
	Exchange                     string
	PrimaryExchange              string
	Currency                     string
	LocalSymbol                  string
	TradingClass                 string
}

// ContractDetails carries the server's full description of a contract.
type ContractDetails struct {
	Contract       Contract
	MarketName     string
	MinTick        float64
	OrderTypes     string
	ValidExchanges string
	PriceMagnifier int
	LongName       string
}

// Order describes an order to submit. LimitPrice and AuxPrice should be set
// to wire.UnsetFloat when not applicable.
type Order struct {
	OrderID       int
	Action        string
	TotalQuantity float64
	OrderType     string
	LimitPrice    float64
	AuxPrice      float64
	TimeInForce   string
	Account       string
	Transmit      bool
}

// Position is one row of a positions snapshot.
type Position struct {
	Account     string
	Contract    Contract
	Quantity    float64
	AverageCost float64
}

// PositionUpdate is one item of a positions stream. End marks the snapshot
// boundary; the position fields are unset on that item.
type PositionUpdate struct {
	End      bool
	Position Position
}

// AccountSummaryItem is one tag/value row of an account summary stream.
type AccountSummaryItem struct {
	Account  string
	Tag      string
	Value    string
	Currency string
}

// AccountValue is one key/value row of an account update stream.
type AccountValue struct {
	Key      string
	Value    string
	Currency string
	Account  string
}

// PortfolioValue is one portfolio row of an account update stream.
type PortfolioValue struct {
	Contract      Contract
	Quantity      float64
	MarketPrice   float64
	MarketValue   float64
	AverageCost   float64
	UnrealizedPnL float64
	RealizedPnL   float64
	Account       string
}

// AccountUpdate is one item of an account update stream. Exactly one of the
// pointer fields is set, or End is true for the initial download boundary.
type AccountUpdate struct {
	Value     *AccountValue
	Portfolio *PortfolioValue
	Time      string
	End       bool
	Account   string
}

// TickKind discriminates market data stream items.
type TickKind int

const (
	TickPrice TickKind = iota + 1
	TickSize
	TickGeneric
	TickString
	TickSnapshotEnd
	TickDataType
)

// TickAttribute carries the flags reported alongside a price tick.
type TickAttribute struct {
	CanAutoExecute bool
	PastLimit      bool
	PreOpen        bool
}

// TickUpdate is one item of a market data stream. Fields beyond TickType are
// populated according to Kind.
type TickUpdate struct {
	Kind      TickKind
	TickType  int
	Price     float64
	Size      int64
	Value     float64
	Text      string
	Attribute TickAttribute
}

// Bar is a single OHLCV bar.
type Bar struct {
	Time   string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	WAP    float64
	Count  int
}

// HistoricalData is a complete historical bar series.
type HistoricalData struct {
	Start string
	End   string
	Bars  []Bar
}

// OrderStatus reports the lifecycle state of an order.
type OrderStatus struct {
	OrderID       int
	Status        string
	Filled        float64
	Remaining     float64
	AvgFillPrice  float64
	PermID        int
	ParentID      int
	LastFillPrice float64
	ClientID      int
	WhyHeld       string
	MktCapPrice   float64
}

// OpenOrder reports a working order as the server sees it.
type OpenOrder struct {
	OrderID  int
	Contract Contract
	Order    Order
	Status   string
}

// Execution reports a single fill.
type Execution struct {
	ExecutionID   string
	OrderID       int
	Time          string
	Account       string
	Exchange      string
	Side          string
	Shares        float64
	Price         float64
	PermID        int
	ClientID      int
	CumulativeQty float64
	AveragePrice  float64
}

// CommissionReport carries the commission charged for an execution.
type CommissionReport struct {
	ExecutionID   string
	Commission    float64
	Currency      string
	RealizedPnL   float64
	Yield         float64
	YieldRedempts string
}

// OrderUpdate is one item of an order lifecycle stream. Exactly one of the
// pointer fields is set, or Done is true for a boundary event such as the end
// of an open-orders or executions report.
type OrderUpdate struct {
	Status     *OrderStatus
	Open       *OpenOrder
	Execution  *Execution
	Commission *CommissionReport
	Done       bool
}

// ExecutionFilter narrows an executions request. Zero values match
// everything.
type ExecutionFilter struct {
	ClientID     int
	Account      string
	Time         string
	Symbol       string
	SecurityType string
	Exchange     string
	Side         string
}

// PnL is one item of a profit-and-loss stream.
type PnL struct {
	DailyPnL      float64
	UnrealizedPnL float64
	RealizedPnL   float64
}

// AccountInfo is accumulated during the handshake from the session bootstrap
// messages.
type AccountInfo struct {
	NextOrderID     int
	ManagedAccounts []string

	seenOrderID  bool
	seenAccounts bool
}

func (a *AccountInfo) complete() bool {
	return a.seenOrderID && a.seenAccounts
}

// ServerInfo describes the negotiated session.
type ServerInfo struct {
	Version        int
	ConnectionTime time.Time
	TimeZone       *time.Location
}
