// Package wire implements the TWS legacy wire codec: NUL-delimited text
// fields inside 4-byte big-endian length-prefixed frames.
package wire

import (
	"bytes"
	"math"
	"strconv"
)

// Unset sentinels. The protocol transmits "no value" for these as an empty
// field; inbound, the literal sentinel strings decode to "absent" through the
// optional accessors.
const (
	UnsetFloat = math.MaxFloat64
	UnsetInt   = math.MaxInt32
	UnsetInt64 = math.MaxInt64
)

const (
	unsetFloatString = "1.7976931348623157E308"
	unsetIntString   = "2147483647"
	unsetInt64String = "9223372036854775807"
	infinityString   = "Infinity"
)

// RequestMessage is a write-only ordered list of fields under construction.
// Add methods are chainable so encoders read as a field-by-field transcript
// of the wire layout.
type RequestMessage struct {
	fields []string
}

func NewRequestMessage() *RequestMessage {
	return &RequestMessage{fields: make([]string, 0, 16)}
}

func (m *RequestMessage) AddString(v string) *RequestMessage {
	m.fields = append(m.fields, v)
	return m
}

// AddInt encodes v, or an empty field when v is UnsetInt.
func (m *RequestMessage) AddInt(v int) *RequestMessage {
	if v == UnsetInt {
		return m.AddString("")
	}
	return m.AddString(strconv.Itoa(v))
}

// AddInt64 encodes v, or an empty field when v is UnsetInt64.
func (m *RequestMessage) AddInt64(v int64) *RequestMessage {
	if v == UnsetInt64 {
		return m.AddString("")
	}
	return m.AddString(strconv.FormatInt(v, 10))
}

// AddFloat encodes v, or an empty field when v is UnsetFloat. Positive
// infinity is transmitted as the literal "Infinity".
func (m *RequestMessage) AddFloat(v float64) *RequestMessage {
	if v == UnsetFloat {
		return m.AddString("")
	}
	if math.IsInf(v, 1) {
		return m.AddString(infinityString)
	}
	return m.AddString(strconv.FormatFloat(v, 'g', -1, 64))
}

// AddBool encodes booleans as "1"/"0".
func (m *RequestMessage) AddBool(v bool) *RequestMessage {
	if v {
		return m.AddString("1")
	}
	return m.AddString("0")
}

// Fields returns the accumulated fields. The slice is owned by the message.
func (m *RequestMessage) Fields() []string {
	return m.fields
}

// Encode joins the fields with NUL and appends a trailing NUL. This is the
// frame payload; see WriteFrame for the length prefix.
func (m *RequestMessage) Encode() []byte {
	var buf bytes.Buffer
	for _, f := range m.fields {
		buf.WriteString(f)
		buf.WriteByte(0)
	}
	return buf.Bytes()
}
