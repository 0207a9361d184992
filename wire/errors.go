package wire

import "errors"

// ErrShortHeader means fewer than HeaderSize bytes were supplied to
// PeekHeader — the caller needs to read more before trying again. This is
// distinct from kvm's protocol error taxonomy: it is a "not enough data
// yet" signal for a stream reader, not a malformed frame.
var ErrShortHeader = errors.New("wire: fewer than HeaderSize bytes available")

// ErrBufferTooSmall is returned by Encode when dst cannot hold the frame.
var ErrBufferTooSmall = errors.New("wire: destination buffer too small")
