package platform

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// LegacyAnsiFormatHint marks a clipboard payload captured from a
// CF_TEXT-style legacy API rather than CF_UNICODETEXT: raw Windows-1252
// bytes instead of UTF-8 (spec.md §4.1's "Data (byte array, format
// dependent)" leaves the encoding to the format; a real Windows Clipboard
// adapter reading the ANSI clipboard format would tag its payload this way).
const LegacyAnsiFormatHint = "windows-1252"

// DecodeClipboardText converts a clipboard payload to UTF-8 if its
// FormatHint marks it as legacy Windows-1252 text, passing every other hint
// (including the default empty one, meaning "already UTF-8") through
// unchanged. Grounded on wire.PutString/GetString's UTF-8 validity contract
// (package wire's strings.go): the protocol only carries valid UTF-8 text,
// so any legacy-encoded clipboard capture must be normalized before it
// reaches proto.Clipboard.
func DecodeClipboardText(data []byte, formatHint string) ([]byte, error) {
	if formatHint != LegacyAnsiFormatHint {
		return data, nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}

// ValidUTF8OrLegacy reports whether data is either already valid UTF-8 or
// tagged with a format hint DecodeClipboardText knows how to normalize.
func ValidUTF8OrLegacy(data []byte, formatHint string) bool {
	if formatHint == LegacyAnsiFormatHint {
		return true
	}
	return utf8.Valid(data)
}
