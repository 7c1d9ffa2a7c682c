package wire

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextFloatSentinelCollision(t *testing.T) {
	// "", "0" and "0.0" all decode to 0.0 for non-optional doubles. This is
	// the documented protocol quirk, not something to normalize away.
	tests := []struct {
		raw  string
		want float64
	}{
		{"", 0},
		{"0", 0},
		{"0.0", 0},
		{"150.25", 150.25},
		{"Infinity", math.Inf(1)},
		{"-2.5", -2.5},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			msg := NewResponseMessageFromFields(tt.raw)
			got, err := msg.NextFloat()
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNextOptionalFloat(t *testing.T) {
	tests := []struct {
		raw    string
		want   float64
		wantOK bool
	}{
		{"1.7976931348623157E308", 0, false},
		{"", 0, false},
		{"0", 0, true},
		{"0.0", 0, true},
		{"Infinity", math.Inf(1), true},
		{"42.5", 42.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			msg := NewResponseMessageFromFields(tt.raw)
			got, ok, err := msg.NextOptionalFloat()
			require.NoError(t, err)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNextOptionalIntSentinels(t *testing.T) {
	msg := NewResponseMessageFromFields("2147483647", "", "7")

	_, ok, err := msg.NextOptionalInt()
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = msg.NextOptionalInt()
	require.NoError(t, err)
	require.False(t, ok)

	v, ok, err := msg.NextOptionalInt()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 7, v)
}

func TestNextOptionalInt64Sentinel(t *testing.T) {
	msg := NewResponseMessageFromFields("9223372036854775807", "12345678901")

	_, ok, err := msg.NextOptionalInt64()
	require.NoError(t, err)
	require.False(t, ok)

	v, ok, err := msg.NextOptionalInt64()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(12345678901), v)
}

func TestFieldParseErrorCarriesContext(t *testing.T) {
	msg := NewResponseMessageFromFields("4", "not-a-number")
	msg.Skip()

	_, err := msg.NextInt()
	require.Error(t, err)

	var perr *FieldParseError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, 1, perr.Index)
	require.Equal(t, "not-a-number", perr.Value)
	require.Error(t, perr.Err)
}

func TestPeekDoesNotAdvance(t *testing.T) {
	msg := NewResponseMessageFromFields("4", "2", "9000", "321", "oops")

	mt, err := msg.PeekInt(0)
	require.NoError(t, err)
	require.Equal(t, 4, mt)

	reqID, err := msg.PeekInt(2)
	require.NoError(t, err)
	require.Equal(t, 9000, reqID)

	// Cursor still at the start.
	first, err := msg.NextInt()
	require.NoError(t, err)
	require.Equal(t, 4, first)

	_, err = msg.PeekInt(99)
	require.ErrorIs(t, err, ErrFieldOverrun)
}

func TestTrailingNulHandling(t *testing.T) {
	msg := NewResponseMessage([]byte("9\x001\x0042\x00"))
	require.Equal(t, 3, msg.Len())

	last, err := msg.PeekString(2)
	require.NoError(t, err)
	require.Equal(t, "42", last)
}

func TestNextBool(t *testing.T) {
	msg := NewResponseMessageFromFields("1", "0", "", "true")

	for _, want := range []bool{true, false, false, true} {
		got, err := msg.NextBool()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}
