package kvm

import "errors"

// Sentinel errors for the taxonomy spec.md §7 names. Named in badu-term's
// package-level-sentinel style (ErrNoScreen, ErrNoCharset in core/engine.go)
// rather than as ad-hoc fmt.Errorf strings, so callers can errors.Is against
// them.
var (
	// Protocol errors (wire codec, spec.md §4.1/§7). Always local-only;
	// the connection that produced them is closed, never retried.
	ErrInvalidMagic           = errors.New("kvm: invalid frame magic")
	ErrUnsupportedVersion     = errors.New("kvm: unsupported frame version")
	ErrUnknownType            = errors.New("kvm: unknown message type")
	ErrTruncatedPayload       = errors.New("kvm: truncated payload")
	ErrPayloadTooLarge        = errors.New("kvm: payload exceeds maximum size")
	ErrInvalidString          = errors.New("kvm: invalid UTF-8 string field")
	ErrUnexpectedHandshake    = errors.New("kvm: unexpected message during handshake")
	ErrHandshakeProtocolError = errors.New("kvm: peer closed the connection during handshake")

	// Transport errors (spec.md §4.3/§7).
	ErrConnectionClosedByPeer = errors.New("kvm: connection closed by peer")
	ErrHandshakeTimeout       = errors.New("kvm: handshake timed out")
	ErrReadTimeout            = errors.New("kvm: no frame received within the liveness window")

	// Policy violations (spec.md §7): the offending message is ignored,
	// state does not change. The control core does not return these; it
	// reports a violation as an EventPolicyViolation event and keeps the
	// connection open.
	ErrNotControlled     = errors.New("kvm: message is only valid while Controlled")
	ErrAlreadyControlled = errors.New("kvm: already Controlled by a different peer")
)

// HandshakeRejectedError wraps the reason a peer's acceptor gave for
// refusing a handshake (spec.md §4.3 HandshakeAck.RejectReason).
type HandshakeRejectedError struct {
	Reason string
}

func (e *HandshakeRejectedError) Error() string {
	if e.Reason == "" {
		return "kvm: handshake rejected by peer"
	}
	return "kvm: handshake rejected by peer: " + e.Reason
}

// TransportError wraps an underlying I/O failure (connect refused, reset,
// unreachable, read/write error) so callers can distinguish it from a
// protocol error without inspecting error strings.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "kvm: transport error during " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
