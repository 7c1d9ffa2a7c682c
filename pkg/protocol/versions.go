package protocol

import "fmt"

// Client-supported server version range, transmitted during the handshake as
// "v<min>..<max>".
const (
	MinClientVersion = 100
	MaxClientVersion = 187
)

// Server version gates. A request that depends on a feature the negotiated
// server version predates must fail before any bytes are sent.
const (
	MinServerVerOptionalCapabilities = 100
	MinServerVerTradingClass         = 68
	MinServerVerPositions            = 67
	MinServerVerAccountSummary       = 67
	MinServerVerModelsSupport        = 121
	MinServerVerTickByTick           = 137
	MinServerVerPnL                  = 144
	MinServerVerCompletedOrders      = 150
	MinServerVerFractionalPositions  = 160
)

// VersionError reports a request that requires a newer server than the one
// negotiated at connect time.
type VersionError struct {
	Required int
	Actual   int
	Feature  string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("server version %d does not support %s (requires %d)",
		e.Actual, e.Feature, e.Required)
}

// CheckServerVersion validates a feature gate against the negotiated version.
func CheckServerVersion(actual, required int, feature string) error {
	if actual < required {
		return &VersionError{Required: required, Actual: actual, Feature: feature}
	}
	return nil
}
