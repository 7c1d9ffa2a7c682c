package protocol

import "fmt"

// Outgoing identifies a client request type. The value is transmitted as the
// first field of the request frame.
type Outgoing int32

const (
	OutgoingRequestMarketData      Outgoing = 1
	OutgoingCancelMarketData       Outgoing = 2
	OutgoingPlaceOrder             Outgoing = 3
	OutgoingCancelOrder            Outgoing = 4
	OutgoingRequestOpenOrders      Outgoing = 5
	OutgoingRequestAccountData     Outgoing = 6
	OutgoingRequestExecutions      Outgoing = 7
	OutgoingRequestIDs             Outgoing = 8
	OutgoingRequestContractData    Outgoing = 9
	OutgoingRequestManagedAccounts Outgoing = 17
	OutgoingRequestHistoricalData  Outgoing = 20
	OutgoingCancelHistoricalData   Outgoing = 25
	OutgoingRequestCurrentTime     Outgoing = 49
	OutgoingRequestPositions       Outgoing = 61
	OutgoingRequestAccountSummary  Outgoing = 62
	OutgoingCancelAccountSummary   Outgoing = 63
	OutgoingCancelPositions        Outgoing = 64
	OutgoingStartAPI               Outgoing = 71
	OutgoingRequestMatchingSymbols Outgoing = 81
	OutgoingRequestHeadTimestamp   Outgoing = 87
	OutgoingRequestPnL             Outgoing = 92
	OutgoingCancelPnL              Outgoing = 93
	OutgoingRequestTickByTick      Outgoing = 97
	OutgoingCancelTickByTick       Outgoing = 98
	OutgoingRequestCompletedOrders Outgoing = 99
)

var outgoingNames = map[Outgoing]string{
	OutgoingRequestMarketData:      "RequestMarketData",
	OutgoingCancelMarketData:       "CancelMarketData",
	OutgoingPlaceOrder:             "PlaceOrder",
	OutgoingCancelOrder:            "CancelOrder",
	OutgoingRequestOpenOrders:      "RequestOpenOrders",
	OutgoingRequestAccountData:     "RequestAccountData",
	OutgoingRequestExecutions:      "RequestExecutions",
	OutgoingRequestIDs:             "RequestIDs",
	OutgoingRequestContractData:    "RequestContractData",
	OutgoingRequestManagedAccounts: "RequestManagedAccounts",
	OutgoingRequestHistoricalData:  "RequestHistoricalData",
	OutgoingCancelHistoricalData:   "CancelHistoricalData",
	OutgoingRequestCurrentTime:     "RequestCurrentTime",
	OutgoingRequestPositions:       "RequestPositions",
	OutgoingRequestAccountSummary:  "RequestAccountSummary",
	OutgoingCancelAccountSummary:   "CancelAccountSummary",
	OutgoingCancelPositions:        "CancelPositions",
	OutgoingStartAPI:               "StartAPI",
	OutgoingRequestMatchingSymbols: "RequestMatchingSymbols",
	OutgoingRequestHeadTimestamp:   "RequestHeadTimestamp",
	OutgoingRequestPnL:             "RequestPnL",
	OutgoingCancelPnL:              "CancelPnL",
	OutgoingRequestTickByTick:      "RequestTickByTick",
	OutgoingCancelTickByTick:       "CancelTickByTick",
	OutgoingRequestCompletedOrders: "RequestCompletedOrders",
}

func (o Outgoing) String() string {
	if name, ok := outgoingNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Outgoing(%d)", int32(o))
}

// sharedRequests maps inbound shared-stream types back to the outgoing
// request type that originated them. Shared channels are keyed by the
// outgoing type so the channel that receives a Position frame is the one
// opened by RequestPositions, and the cancel for that stream is derivable
// from the same key.
var sharedRequests = map[Incoming]Outgoing{
	IncomingPosition:           OutgoingRequestPositions,
	IncomingPositionEnd:        OutgoingRequestPositions,
	IncomingAccountValue:       OutgoingRequestAccountData,
	IncomingPortfolioValue:     OutgoingRequestAccountData,
	IncomingAccountUpdateTime:  OutgoingRequestAccountData,
	IncomingAccountDownloadEnd: OutgoingRequestAccountData,
	IncomingManagedAccounts:    OutgoingRequestManagedAccounts,
	IncomingNextValidID:        OutgoingRequestIDs,
	IncomingCurrentTime:        OutgoingRequestCurrentTime,
}

// SharedRequest resolves the outgoing request type whose shared channel
// should receive the given inbound type.
func SharedRequest(in Incoming) (Outgoing, bool) {
	out, ok := sharedRequests[in]
	return out, ok
}
