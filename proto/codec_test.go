package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badu/kvm/wire"
)

func TestHandshakeRoundTrip(t *testing.T) {
	h := Handshake{
		MachineID:         "alpha",
		MachineName:       "Alpha's Mac",
		ScreenWidth:       2560,
		ScreenHeight:      1440,
		SupportsClipboard: true,
	}
	buf, err := EncodeHandshake(42, h)
	require.NoError(t, err)

	msg, n, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, wire.TypeHandshake, msg.Type)
	assert.Equal(t, int64(42), msg.Timestamp)
	assert.Equal(t, h, msg.Handshake)
}

func TestHandshakeAckRoundTrip(t *testing.T) {
	a := HandshakeAck{
		Accepted:     true,
		MachineID:    "beta",
		MachineName:  "Beta",
		ScreenWidth:  2560,
		ScreenHeight: 1440,
	}
	buf, err := EncodeHandshakeAck(0, a)
	require.NoError(t, err)

	msg, _, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, a, msg.HandshakeAck)
}

func TestHandshakeAckRejection(t *testing.T) {
	a := HandshakeAck{Accepted: false, RejectReason: "unknown machine id"}
	buf, err := EncodeHandshakeAck(0, a)
	require.NoError(t, err)

	msg, _, err := Decode(buf)
	require.NoError(t, err)
	assert.False(t, msg.HandshakeAck.Accepted)
	assert.Equal(t, "unknown machine id", msg.HandshakeAck.RejectReason)
}

func TestMouseRoundTripBaseForm(t *testing.T) {
	m := Mouse{X: 100, Y: 200, EventType: MouseMove, WheelDelta: 0}
	buf, err := EncodeMouse(0, m)
	require.NoError(t, err)
	assert.Equal(t, wire.HeaderSize+13, len(buf))

	msg, _, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, m, msg.Mouse)
}

func TestMouseRoundTripExtendedForm(t *testing.T) {
	m := Mouse{X: -5, Y: 10, EventType: MouseWheel, WheelDelta: 120, HasVelocity: true, VelocityX: 12.5, VelocityY: -3.25}
	buf, err := EncodeMouse(0, m)
	require.NoError(t, err)
	assert.Equal(t, wire.HeaderSize+21, len(buf))

	msg, _, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, m, msg.Mouse)
}

func TestDecodeAcceptsBothMouseLengths(t *testing.T) {
	base, err := EncodeMouse(0, Mouse{X: 1, Y: 2, EventType: MouseLeftDown})
	require.NoError(t, err)
	_, _, err = Decode(base)
	assert.NoError(t, err)

	ext, err := EncodeMouse(0, Mouse{X: 1, Y: 2, EventType: MouseLeftDown, HasVelocity: true})
	require.NoError(t, err)
	_, _, err = Decode(ext)
	assert.NoError(t, err)
}

func TestKeyboardRoundTrip(t *testing.T) {
	k := Keyboard{KeyCode: 65, ScanCode: 0x1E, EventType: KeyDown, IsExtended: false}
	buf, err := EncodeKeyboard(0, k)
	require.NoError(t, err)

	msg, _, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, k, msg.Keyboard)
}

func TestCursorEnterLeaveRoundTrip(t *testing.T) {
	enter := CursorEnter{X: 0, Y: 0.5, Edge: 0}
	buf, err := EncodeCursorEnter(0, enter)
	require.NoError(t, err)
	msg, _, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, enter, msg.CursorEnter)

	leave := CursorLeave{X: 1, Y: 0.25, Edge: 1}
	buf, err = EncodeCursorLeave(0, leave)
	require.NoError(t, err)
	msg, _, err = Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, leave, msg.CursorLeave)
}

func TestClipboardRoundTrip(t *testing.T) {
	c := Clipboard{ContentType: ContentText, FormatHint: "text/plain", Data: []byte("hello, clipboard")}
	buf, err := EncodeClipboard(0, c)
	require.NoError(t, err)

	msg, _, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, c, msg.Clipboard)
}

func TestEmptyPayloadMessagesRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name  string
		enc   func() ([]byte, error)
		mtype wire.MessageType
	}{
		{"ClipboardRequest", func() ([]byte, error) { return EncodeClipboardRequest(0) }, wire.TypeClipboardRequest},
		{"Ping", func() ([]byte, error) { return EncodePing(0) }, wire.TypePing},
		{"Pong", func() ([]byte, error) { return EncodePong(0) }, wire.TypePong},
		{"Disconnect", func() ([]byte, error) { return EncodeDisconnect(0) }, wire.TypeDisconnect},
	} {
		t.Run(tc.name, func(t *testing.T) {
			buf, err := tc.enc()
			require.NoError(t, err)
			msg, n, err := Decode(buf)
			require.NoError(t, err)
			assert.Equal(t, len(buf), n)
			assert.Equal(t, tc.mtype, msg.Type)
		})
	}
}

func TestErrorRoundTrip(t *testing.T) {
	e := Error{Code: 7, Description: "bad juju"}
	buf, err := EncodeError(0, e)
	require.NoError(t, err)

	msg, _, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, e, msg.Error)
}
