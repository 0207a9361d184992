package proto

import (
	"encoding/binary"
	"math"

	"github.com/badu/kvm"
	"github.com/badu/kvm/wire"
)

// EncodeHandshake builds a Handshake frame.
func EncodeHandshake(timestamp int64, h Handshake) ([]byte, error) {
	payload, err := marshalHandshake(h)
	if err != nil {
		return nil, err
	}
	return wire.AppendEncode(wire.TypeHandshake, timestamp, payload)
}

func marshalHandshake(h Handshake) ([]byte, error) {
	buf := make([]byte, 0, wire.StringLen(h.MachineID)+wire.StringLen(h.MachineName)+9)
	var err error
	if buf, err = wire.PutString(buf, h.MachineID); err != nil {
		return nil, err
	}
	if buf, err = wire.PutString(buf, h.MachineName); err != nil {
		return nil, err
	}
	buf = appendInt32(buf, h.ScreenWidth)
	buf = appendInt32(buf, h.ScreenHeight)
	buf = append(buf, boolByte(h.SupportsClipboard))
	return buf, nil
}

func unmarshalHandshake(payload []byte) (Handshake, error) {
	var h Handshake
	machineID, n, err := wire.GetString(payload)
	if err != nil {
		return Handshake{}, err
	}
	h.MachineID = machineID
	payload = payload[n:]

	name, n, err := wire.GetString(payload)
	if err != nil {
		return Handshake{}, err
	}
	h.MachineName = name
	payload = payload[n:]

	if len(payload) < 9 {
		return Handshake{}, kvm.ErrTruncatedPayload
	}
	h.ScreenWidth = readInt32(payload[0:4])
	h.ScreenHeight = readInt32(payload[4:8])
	h.SupportsClipboard = payload[8] != 0
	return h, nil
}

// EncodeHandshakeAck builds a HandshakeAck frame.
func EncodeHandshakeAck(timestamp int64, a HandshakeAck) ([]byte, error) {
	buf := make([]byte, 0, 1+wire.StringLen(a.MachineID)+wire.StringLen(a.MachineName)+8+wire.StringLen(a.RejectReason))
	buf = append(buf, boolByte(a.Accepted))
	var err error
	if buf, err = wire.PutString(buf, a.MachineID); err != nil {
		return nil, err
	}
	if buf, err = wire.PutString(buf, a.MachineName); err != nil {
		return nil, err
	}
	buf = appendInt32(buf, a.ScreenWidth)
	buf = appendInt32(buf, a.ScreenHeight)
	if buf, err = wire.PutString(buf, a.RejectReason); err != nil {
		return nil, err
	}
	return wire.AppendEncode(wire.TypeHandshakeAck, timestamp, buf)
}

func unmarshalHandshakeAck(payload []byte) (HandshakeAck, error) {
	var a HandshakeAck
	if len(payload) < 1 {
		return HandshakeAck{}, kvm.ErrTruncatedPayload
	}
	a.Accepted = payload[0] != 0
	payload = payload[1:]

	id, n, err := wire.GetString(payload)
	if err != nil {
		return HandshakeAck{}, err
	}
	a.MachineID = id
	payload = payload[n:]

	name, n, err := wire.GetString(payload)
	if err != nil {
		return HandshakeAck{}, err
	}
	a.MachineName = name
	payload = payload[n:]

	if len(payload) < 8 {
		return HandshakeAck{}, kvm.ErrTruncatedPayload
	}
	a.ScreenWidth = readInt32(payload[0:4])
	a.ScreenHeight = readInt32(payload[4:8])
	payload = payload[8:]

	reason, _, err := wire.GetString(payload)
	if err != nil {
		return HandshakeAck{}, err
	}
	a.RejectReason = reason
	return a, nil
}

// EncodeMouse builds a Mouse frame. The extended 21-byte velocity form is
// emitted only when m.HasVelocity is set (spec.md §4.1).
func EncodeMouse(timestamp int64, m Mouse) ([]byte, error) {
	size := 13
	if m.HasVelocity {
		size = 21
	}
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(m.X))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(m.Y))
	buf[8] = byte(m.EventType)
	binary.LittleEndian.PutUint32(buf[9:13], uint32(m.WheelDelta))
	if m.HasVelocity {
		binary.LittleEndian.PutUint32(buf[13:17], float32bits(m.VelocityX))
		binary.LittleEndian.PutUint32(buf[17:21], float32bits(m.VelocityY))
	}
	return wire.AppendEncode(wire.TypeMouse, timestamp, buf)
}

func unmarshalMouse(payload []byte) (Mouse, error) {
	if len(payload) != 13 && len(payload) != 21 {
		return Mouse{}, kvm.ErrTruncatedPayload
	}
	m := Mouse{
		X:          readInt32(payload[0:4]),
		Y:          readInt32(payload[4:8]),
		EventType:  MouseEventType(payload[8]),
		WheelDelta: readInt32(payload[9:13]),
	}
	if len(payload) == 21 {
		m.HasVelocity = true
		m.VelocityX = float32frombits(binary.LittleEndian.Uint32(payload[13:17]))
		m.VelocityY = float32frombits(binary.LittleEndian.Uint32(payload[17:21]))
	}
	return m, nil
}

// EncodeKeyboard builds a Keyboard frame.
func EncodeKeyboard(timestamp int64, k Keyboard) ([]byte, error) {
	buf := make([]byte, 10)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(k.KeyCode))
	binary.LittleEndian.PutUint32(buf[4:8], k.ScanCode)
	buf[8] = byte(k.EventType)
	buf[9] = boolByte(k.IsExtended)
	return wire.AppendEncode(wire.TypeKeyboard, timestamp, buf)
}

func unmarshalKeyboard(payload []byte) (Keyboard, error) {
	if len(payload) != 10 {
		return Keyboard{}, kvm.ErrTruncatedPayload
	}
	return Keyboard{
		KeyCode:    readInt32(payload[0:4]),
		ScanCode:   binary.LittleEndian.Uint32(payload[4:8]),
		EventType:  KeyEventType(payload[8]),
		IsExtended: payload[9] != 0,
	}, nil
}

func encodeEnterLeave(msgType wire.MessageType, timestamp int64, x, y float32, edge uint8) ([]byte, error) {
	buf := make([]byte, 9)
	binary.LittleEndian.PutUint32(buf[0:4], float32bits(x))
	binary.LittleEndian.PutUint32(buf[4:8], float32bits(y))
	buf[8] = edge
	return wire.AppendEncode(msgType, timestamp, buf)
}

// EncodeCursorEnter builds a CursorEnter frame.
func EncodeCursorEnter(timestamp int64, c CursorEnter) ([]byte, error) {
	return encodeEnterLeave(wire.TypeCursorEnter, timestamp, c.X, c.Y, c.Edge)
}

// EncodeCursorLeave builds a CursorLeave frame.
func EncodeCursorLeave(timestamp int64, c CursorLeave) ([]byte, error) {
	return encodeEnterLeave(wire.TypeCursorLeave, timestamp, c.X, c.Y, c.Edge)
}

func unmarshalEnterLeave(payload []byte) (float32, float32, uint8, error) {
	if len(payload) != 9 {
		return 0, 0, 0, kvm.ErrTruncatedPayload
	}
	x := float32frombits(binary.LittleEndian.Uint32(payload[0:4]))
	y := float32frombits(binary.LittleEndian.Uint32(payload[4:8]))
	return x, y, payload[8], nil
}

// EncodeClipboard builds a Clipboard frame.
func EncodeClipboard(timestamp int64, c Clipboard) ([]byte, error) {
	buf := make([]byte, 0, 1+wire.StringLen(c.FormatHint)+4+len(c.Data))
	buf = append(buf, byte(c.ContentType))
	var err error
	if buf, err = wire.PutString(buf, c.FormatHint); err != nil {
		return nil, err
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(c.Data)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, c.Data...)
	return wire.AppendEncode(wire.TypeClipboard, timestamp, buf)
}

func unmarshalClipboard(payload []byte) (Clipboard, error) {
	if len(payload) < 1 {
		return Clipboard{}, kvm.ErrTruncatedPayload
	}
	c := Clipboard{ContentType: ContentType(payload[0])}
	payload = payload[1:]

	hint, n, err := wire.GetString(payload)
	if err != nil {
		return Clipboard{}, err
	}
	c.FormatHint = hint
	payload = payload[n:]

	if len(payload) < 4 {
		return Clipboard{}, kvm.ErrTruncatedPayload
	}
	dataLen := int(binary.LittleEndian.Uint32(payload[0:4]))
	payload = payload[4:]
	if dataLen < 0 || len(payload) < dataLen {
		return Clipboard{}, kvm.ErrTruncatedPayload
	}
	c.Data = append([]byte(nil), payload[:dataLen]...)
	return c, nil
}

// EncodeError builds an Error frame.
func EncodeError(timestamp int64, e Error) ([]byte, error) {
	buf := make([]byte, 0, 4+wire.StringLen(e.Description))
	buf = appendInt32(buf, e.Code)
	var err error
	if buf, err = wire.PutString(buf, e.Description); err != nil {
		return nil, err
	}
	return wire.AppendEncode(wire.TypeError, timestamp, buf)
}

func unmarshalError(payload []byte) (Error, error) {
	if len(payload) < 4 {
		return Error{}, kvm.ErrTruncatedPayload
	}
	code := readInt32(payload[0:4])
	desc, _, err := wire.GetString(payload[4:])
	if err != nil {
		return Error{}, err
	}
	return Error{Code: code, Description: desc}, nil
}

func encodeEmpty(msgType wire.MessageType, timestamp int64) ([]byte, error) {
	return wire.AppendEncode(msgType, timestamp, nil)
}

// EncodeClipboardRequest, EncodePing, EncodePong, EncodeDisconnect all emit
// empty-payload frames (spec.md §4.1).
func EncodeClipboardRequest(timestamp int64) ([]byte, error) { return encodeEmpty(wire.TypeClipboardRequest, timestamp) }
func EncodePing(timestamp int64) ([]byte, error)             { return encodeEmpty(wire.TypePing, timestamp) }
func EncodePong(timestamp int64) ([]byte, error)             { return encodeEmpty(wire.TypePong, timestamp) }
func EncodeDisconnect(timestamp int64) ([]byte, error)       { return encodeEmpty(wire.TypeDisconnect, timestamp) }

// Decode parses a complete framed message (header + payload present in buf)
// into a typed Message, dispatching on the frame's type.
func Decode(buf []byte) (Message, int, error) {
	frame, n, err := wire.Decode(buf)
	if err != nil {
		return Message{}, 0, err
	}

	msg := Message{Type: frame.Type, Timestamp: frame.Timestamp}
	switch frame.Type {
	case wire.TypeHandshake:
		msg.Handshake, err = unmarshalHandshake(frame.Payload)
	case wire.TypeHandshakeAck:
		msg.HandshakeAck, err = unmarshalHandshakeAck(frame.Payload)
	case wire.TypeMouse:
		msg.Mouse, err = unmarshalMouse(frame.Payload)
	case wire.TypeKeyboard:
		msg.Keyboard, err = unmarshalKeyboard(frame.Payload)
	case wire.TypeCursorEnter:
		var x, y float32
		var edge uint8
		x, y, edge, err = unmarshalEnterLeave(frame.Payload)
		msg.CursorEnter = CursorEnter{X: x, Y: y, Edge: edge}
	case wire.TypeCursorLeave:
		var x, y float32
		var edge uint8
		x, y, edge, err = unmarshalEnterLeave(frame.Payload)
		msg.CursorLeave = CursorLeave{X: x, Y: y, Edge: edge}
	case wire.TypeClipboard:
		msg.Clipboard, err = unmarshalClipboard(frame.Payload)
	case wire.TypeClipboardRequest, wire.TypePing, wire.TypePong, wire.TypeDisconnect:
		// empty payloads, nothing to unmarshal
	case wire.TypeError:
		msg.Error, err = unmarshalError(frame.Payload)
	default:
		err = kvm.ErrUnknownType
	}
	if err != nil {
		return Message{}, 0, err
	}
	return msg, n, nil
}

func appendInt32(dst []byte, v int32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return append(dst, b[:]...)
}

func readInt32(b []byte) int32 {
	return int32(binary.LittleEndian.Uint32(b))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func float32bits(f float32) uint32 {
	return math.Float32bits(f)
}

func float32frombits(u uint32) float32 {
	return math.Float32frombits(u)
}
