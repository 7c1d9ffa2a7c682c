package wire

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestMessageEncoding(t *testing.T) {
	msg := NewRequestMessage().
		AddInt(71).
		AddInt(2).
		AddString("DU12345").
		AddBool(true).
		AddBool(false).
		AddFloat(1.5).
		AddFloat(UnsetFloat).
		AddInt(UnsetInt).
		AddInt64(UnsetInt64).
		AddFloat(math.Inf(1))

	require.Equal(t,
		[]string{"71", "2", "DU12345", "1", "0", "1.5", "", "", "", "Infinity"},
		msg.Fields())

	require.Equal(t,
		[]byte("71\x002\x00DU12345\x001\x000\x001.5\x00\x00\x00\x00Infinity\x00"),
		msg.Encode())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	fields := []string{"9", "1", "42", "", "hello world", "0.0"}

	msg := NewRequestMessage()
	for _, f := range fields {
		msg.AddString(f)
	}

	decoded := NewResponseMessage(msg.Encode())
	require.Equal(t, len(fields), decoded.Len())
	for _, want := range fields {
		got, err := decoded.NextString()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := decoded.NextString()
	require.ErrorIs(t, err, ErrFieldOverrun)
}
