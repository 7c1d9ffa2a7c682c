package wire

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ResponseMessage is a read cursor over the ordered fields of one inbound
// frame. Next* accessors consume one field each; Peek* accessors read a
// protocol-constant position without moving the cursor.
type ResponseMessage struct {
	fields []string
	pos    int
}

// NewResponseMessage splits a frame payload on NUL into its field list. A
// trailing NUL terminates the last field and does not produce an extra one.
func NewResponseMessage(payload []byte) *ResponseMessage {
	s := string(payload)
	s = strings.TrimSuffix(s, "\x00")
	return &ResponseMessage{fields: strings.Split(s, "\x00")}
}

// NewResponseMessageFromFields builds a message directly from fields.
func NewResponseMessageFromFields(fields ...string) *ResponseMessage {
	return &ResponseMessage{fields: fields}
}

// Len returns the number of fields.
func (m *ResponseMessage) Len() int { return len(m.fields) }

// Remaining reports how many fields are left to consume.
func (m *ResponseMessage) Remaining() int { return len(m.fields) - m.pos }

// Reset rewinds the cursor to the first field.
func (m *ResponseMessage) Reset() { m.pos = 0 }

// Skip discards the next field.
func (m *ResponseMessage) Skip() {
	if m.pos < len(m.fields) {
		m.pos++
	}
}

func (m *ResponseMessage) next() (int, string, error) {
	if m.pos >= len(m.fields) {
		return m.pos, "", ErrFieldOverrun
	}
	i := m.pos
	m.pos++
	return i, m.fields[i], nil
}

func (m *ResponseMessage) NextString() (string, error) {
	_, v, err := m.next()
	return v, err
}

// NextInt decodes the next field as an int. An empty field decodes to zero.
func (m *ResponseMessage) NextInt() (int, error) {
	i, v, err := m.next()
	if err != nil {
		return 0, err
	}
	return parseInt(i, v)
}

// NextInt64 decodes the next field as an int64. An empty field decodes to zero.
func (m *ResponseMessage) NextInt64() (int64, error) {
	i, v, err := m.next()
	if err != nil {
		return 0, err
	}
	if v == "" {
		return 0, nil
	}
	n, perr := strconv.ParseInt(v, 10, 64)
	if perr != nil {
		return 0, &FieldParseError{Index: i, Value: v, Err: perr}
	}
	return n, nil
}

// NextFloat decodes the next field as a float64. "", "0" and "0.0" all decode
// to 0.0; this collision with the unset sentinel is a protocol quirk the wire
// format depends on, so it is preserved here. "Infinity" decodes to +Inf.
func (m *ResponseMessage) NextFloat() (float64, error) {
	i, v, err := m.next()
	if err != nil {
		return 0, err
	}
	switch v {
	case "", "0", "0.0":
		return 0, nil
	case infinityString:
		return math.Inf(1), nil
	}
	f, perr := strconv.ParseFloat(v, 64)
	if perr != nil {
		return 0, &FieldParseError{Index: i, Value: v, Err: perr}
	}
	return f, nil
}

// NextBool decodes "1" or "true" as true; anything else, including an empty
// field, as false.
func (m *ResponseMessage) NextBool() (bool, error) {
	_, v, err := m.next()
	if err != nil {
		return false, err
	}
	return v == "1" || v == "true", nil
}

// NextOptionalInt decodes the next field, reporting ok=false for an empty
// field or the int unset sentinel.
func (m *ResponseMessage) NextOptionalInt() (int, bool, error) {
	i, v, err := m.next()
	if err != nil {
		return 0, false, err
	}
	if v == "" || v == unsetIntString {
		return 0, false, nil
	}
	n, perr := parseInt(i, v)
	if perr != nil {
		return 0, false, perr
	}
	return n, true, nil
}

// NextOptionalInt64 decodes the next field, reporting ok=false for an empty
// field or the long unset sentinel.
func (m *ResponseMessage) NextOptionalInt64() (int64, bool, error) {
	i, v, err := m.next()
	if err != nil {
		return 0, false, err
	}
	if v == "" || v == unsetInt64String {
		return 0, false, nil
	}
	n, perr := strconv.ParseInt(v, 10, 64)
	if perr != nil {
		return 0, false, &FieldParseError{Index: i, Value: v, Err: perr}
	}
	return n, true, nil
}

// NextOptionalFloat decodes the next field, reporting ok=false for an empty
// field or the double unset sentinel. "Infinity" is a present +Inf.
func (m *ResponseMessage) NextOptionalFloat() (float64, bool, error) {
	i, v, err := m.next()
	if err != nil {
		return 0, false, err
	}
	if v == "" || v == unsetFloatString {
		return 0, false, nil
	}
	if v == infinityString {
		return math.Inf(1), true, nil
	}
	f, perr := strconv.ParseFloat(v, 64)
	if perr != nil {
		return 0, false, &FieldParseError{Index: i, Value: v, Err: perr}
	}
	if f == math.MaxFloat64 {
		// Non-canonical spelling of the unset sentinel.
		return 0, false, nil
	}
	return f, true, nil
}

// NextDateTime decodes the next field as unix seconds.
func (m *ResponseMessage) NextDateTime() (time.Time, error) {
	i, v, err := m.next()
	if err != nil {
		return time.Time{}, err
	}
	secs, perr := strconv.ParseInt(v, 10, 64)
	if perr != nil {
		return time.Time{}, &FieldParseError{Index: i, Value: v, Err: perr}
	}
	return time.Unix(secs, 0), nil
}

// PeekString reads the field at index i without moving the cursor.
func (m *ResponseMessage) PeekString(i int) (string, error) {
	if i < 0 || i >= len(m.fields) {
		return "", ErrFieldOverrun
	}
	return m.fields[i], nil
}

// PeekInt reads the field at index i as an int without moving the cursor.
// Used for fields at protocol-constant offsets: the message type at index 0,
// request ids and error codes at type-dependent fixed positions.
func (m *ResponseMessage) PeekInt(i int) (int, error) {
	v, err := m.PeekString(i)
	if err != nil {
		return 0, err
	}
	return parseInt(i, v)
}

func parseInt(i int, v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &FieldParseError{Index: i, Value: v, Err: err}
	}
	return n, nil
}
