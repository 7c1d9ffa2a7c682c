package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	payload := NewRequestMessage().AddInt(49).AddInt(1).Encode()

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, payload))

	// 4-byte big-endian prefix.
	require.Equal(t, []byte{0, 0, 0, byte(len(payload))}, buf.Bytes()[:4])

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestReadFrameZeroLength(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0, 0, 0, 0}))
	require.ErrorIs(t, err, ErrEmptyFrame)
}

func TestReadFrameOversizedPrefix(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF}))
	require.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0, 0, 0, 10, 'a', 'b'}))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
