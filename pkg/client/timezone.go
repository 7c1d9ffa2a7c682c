package client

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// The gateway reports its time zone as an abbreviation, a Windows display
// name, or occasionally a localized string. Abbreviations resolve to fixed
// offsets so parsing does not depend on the host's tzdata; anything else is
// tried against the IANA database before falling back to UTC.
var zoneOffsets = map[string]int{
	"UTC":  0,
	"GMT":  0,
	"EST":  -5 * 3600,
	"EDT":  -4 * 3600,
	"CST":  -6 * 3600,
	"CDT":  -5 * 3600,
	"MST":  -7 * 3600,
	"MDT":  -6 * 3600,
	"PST":  -8 * 3600,
	"PDT":  -7 * 3600,
	"BST":  1 * 3600,
	"CET":  1 * 3600,
	"CEST": 2 * 3600,
	"EET":  2 * 3600,
	"MET":  1 * 3600,
	"JST":  9 * 3600,
	"HKT":  8 * 3600,
	"SGT":  8 * 3600,
	"AEST": 10 * 3600,
	"AEDT": 11 * 3600,
}

var zoneDisplayNames = map[string]string{
	"Eastern Standard Time": "EST",
	"Central Standard Time": "CST",
	"Pacific Standard Time": "PST",
	"Greenwich Mean Time":   "GMT",
	"China Standard Time":   "HKT",
}

func resolveTimeZone(name string, log *zap.Logger) *time.Location {
	if alias, ok := zoneDisplayNames[name]; ok {
		name = alias
	}
	if offset, ok := zoneOffsets[name]; ok {
		return time.FixedZone(name, offset)
	}
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	log.Warn("unrecognized time zone, falling back to UTC", zap.String("zone", name))
	return time.UTC
}

const connectionTimeLayout = "20060102 15:04:05"

// parseConnectionTime parses the handshake's server time string, e.g.
// "20240120 12:00:00 EST". The zone suffix is optional.
func parseConnectionTime(s string, log *zap.Logger) (time.Time, *time.Location) {
	parts := strings.SplitN(strings.TrimSpace(s), " ", 3)
	loc := time.UTC
	if len(parts) == 3 {
		loc = resolveTimeZone(parts[2], log)
	}
	if len(parts) >= 2 {
		if ts, err := time.ParseInLocation(connectionTimeLayout, parts[0]+" "+parts[1], loc); err == nil {
			return ts, loc
		}
	}
	log.Warn("unparseable connection time", zap.String("value", s))
	return time.Time{}, loc
}
