package wire

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/badu/kvm"
)

// PutString appends a length-prefixed UTF-8 string to dst, per spec.md
// §4.1 ("4-byte little-endian length prefix followed by UTF-8 bytes"), and
// returns the extended slice. It rejects invalid UTF-8 up front rather than
// silently shipping a frame the other side's decoder would choke on —
// golang.org/x/text/encoding's UTF-8 validity contract is what badu-term's
// core package leans on for the same reason when transcoding terminal
// input (core/engine.go's encoder/charset handling).
func PutString(dst []byte, s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, kvm.ErrInvalidString
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	dst = append(dst, lenBuf[:]...)
	dst = append(dst, s...)
	return dst, nil
}

// GetString reads a length-prefixed string starting at buf[0], returning
// the string, the number of bytes consumed, and an error if buf is too
// short or the bytes are not valid UTF-8.
func GetString(buf []byte) (string, int, error) {
	if len(buf) < 4 {
		return "", 0, kvm.ErrTruncatedPayload
	}
	n := int(binary.LittleEndian.Uint32(buf[:4]))
	if n < 0 || len(buf) < 4+n {
		return "", 0, kvm.ErrTruncatedPayload
	}
	b := buf[4 : 4+n]
	if !utf8.Valid(b) {
		return "", 0, kvm.ErrInvalidString
	}
	return string(b), 4 + n, nil
}

// StringLen returns the number of bytes PutString would write for s.
func StringLen(s string) int {
	return 4 + len(s)
}
