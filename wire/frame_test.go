package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gtassert "gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/badu/kvm"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte("ABCDEFG")
	buf, err := AppendEncode(TypeMouse, 1234567890, payload)
	require.NoError(t, err)

	expected := []byte{
		0x4D, 0x53, // magic "MS"
		0x01,       // version
		0x10,       // type Mouse
		7, 0, 0, 0, // payload length (little-endian)
	}
	gtassert.Assert(t, bytes.Equal(buf[:8], expected))

	frame, n, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, TypeMouse, frame.Type)
	assert.Equal(t, int64(1234567890), frame.Timestamp)
	gtassert.Assert(t, is.DeepEqual(payload, frame.Payload))
}

func TestPeekHeaderReportsTotalLength(t *testing.T) {
	buf, err := AppendEncode(TypePing, 0, nil)
	require.NoError(t, err)

	h, err := PeekHeader(buf[:HeaderSize])
	require.NoError(t, err)
	assert.Equal(t, len(buf), h.TotalLength())
}

func TestDecodeInvalidMagic(t *testing.T) {
	buf, err := AppendEncode(TypePing, 0, nil)
	require.NoError(t, err)
	buf[0], buf[1] = 0x00, 0x00

	_, _, err = Decode(buf)
	assert.ErrorIs(t, err, kvm.ErrInvalidMagic)
}

func TestDecodeUnsupportedVersion(t *testing.T) {
	buf, err := AppendEncode(TypePing, 0, nil)
	require.NoError(t, err)
	buf[2] = 0x02

	_, _, err = Decode(buf)
	assert.ErrorIs(t, err, kvm.ErrUnsupportedVersion)
}

func TestDecodeUnknownType(t *testing.T) {
	buf, err := AppendEncode(TypePing, 0, nil)
	require.NoError(t, err)
	buf[3] = 0x99

	_, _, err = Decode(buf)
	assert.ErrorIs(t, err, kvm.ErrUnknownType)
}

func TestDecodeTruncatedPayload(t *testing.T) {
	buf, err := AppendEncode(TypeMouse, 0, []byte("0123456789ABCDEF"))
	require.NoError(t, err)

	_, _, err = Decode(buf[:HeaderSize+4])
	assert.ErrorIs(t, err, kvm.ErrTruncatedPayload)
}

func TestDecodePayloadTooLarge(t *testing.T) {
	buf := make([]byte, HeaderSize)
	buf[0], buf[1], buf[2], buf[3] = 0x4D, 0x53, Version, byte(TypePing)
	// declare an absurd payload length without actually allocating it
	buf[4], buf[5], buf[6], buf[7] = 0xFF, 0xFF, 0xFF, 0x7F

	_, _, err := Decode(buf)
	assert.ErrorIs(t, err, kvm.ErrPayloadTooLarge)
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	_, err := AppendEncode(TypeClipboard, 0, make([]byte, MaxPayloadSize+1))
	assert.ErrorIs(t, err, kvm.ErrPayloadTooLarge)
}

func TestPutGetStringRoundTrip(t *testing.T) {
	buf, err := PutString(nil, "alpha")
	require.NoError(t, err)

	s, n, err := GetString(buf)
	require.NoError(t, err)
	assert.Equal(t, "alpha", s)
	assert.Equal(t, StringLen("alpha"), n)
}

func TestGetStringTruncated(t *testing.T) {
	buf, err := PutString(nil, "alpha")
	require.NoError(t, err)

	_, _, err = GetString(buf[:5])
	assert.ErrorIs(t, err, kvm.ErrTruncatedPayload)
}

func TestPutStringRejectsInvalidUTF8(t *testing.T) {
	_, err := PutString(nil, string([]byte{0xff, 0xfe}))
	assert.ErrorIs(t, err, kvm.ErrInvalidString)
}
