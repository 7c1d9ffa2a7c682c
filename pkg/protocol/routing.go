package protocol

import (
	"tws-core/pkg/wire"
)

// Error frame layout: type, version, request id, error code, message.
const (
	errorRequestIDIndex = 2
	errorCodeIndex      = 3
)

// UnspecifiedRequestID marks an error that is connection-global rather than
// scoped to a request.
const UnspecifiedRequestID = -1

// Warning error codes occupy a fixed numeric range; they are informational
// and must never terminate a consumer stream.
const (
	warningCodeLow  = 2100
	warningCodeHigh = 2169
)

// RoutingKind tags a RoutingDecision.
type RoutingKind int

const (
	RouteByRequestID RoutingKind = iota
	RouteByOrderID
	RouteByMessageType
	RouteShared
	RouteError
	RouteShutdown
)

// RoutingDecision is the verdict for one inbound frame: which registry the
// message bus should deliver it through, and under which key.
type RoutingDecision struct {
	Kind      RoutingKind
	RequestID int
	OrderID   int
	Type      Incoming
	ErrorCode int
}

// DetermineRouting classifies one decoded frame. It is a pure function of
// the frame contents and never fails: frames with an unrecognized type fall
// through to the by-message-type shared route.
func DetermineRouting(msg *wire.ResponseMessage) RoutingDecision {
	code, err := msg.PeekInt(0)
	if err != nil {
		return RoutingDecision{Kind: RouteByMessageType, Type: IncomingNotValid}
	}
	in := IncomingFromCode(code)

	switch {
	case in == IncomingShutdown:
		return RoutingDecision{Kind: RouteShutdown, Type: in}

	case in == IncomingErrorMessage:
		reqID, _ := msg.PeekInt(errorRequestIDIndex)
		errCode, _ := msg.PeekInt(errorCodeIndex)
		return RoutingDecision{Kind: RouteError, Type: in, RequestID: reqID, ErrorCode: errCode}

	case IsOrderLifecycle(in):
		orderID := -1
		if idx, ok := OrderIDOffset(in); ok {
			if id, err := msg.PeekInt(idx); err == nil {
				orderID = id
			}
		}
		// End markers and commission reports have no order id; the -1 route
		// lets a single order-stream consumer observe every boundary event.
		return RoutingDecision{Kind: RouteByOrderID, Type: in, OrderID: orderID}
	}

	if idx, ok := RequestIDOffset(in); ok {
		reqID, err := msg.PeekInt(idx)
		if err != nil {
			return RoutingDecision{Kind: RouteByMessageType, Type: in}
		}
		return RoutingDecision{Kind: RouteByRequestID, Type: in, RequestID: reqID}
	}

	switch in {
	case IncomingManagedAccounts, IncomingNextValidID, IncomingCurrentTime:
		return RoutingDecision{Kind: RouteShared, Type: in}
	}

	return RoutingDecision{Kind: RouteByMessageType, Type: in}
}

// IsWarning reports whether a server error code is informational.
func IsWarning(code int) bool {
	return code >= warningCodeLow && code <= warningCodeHigh
}
