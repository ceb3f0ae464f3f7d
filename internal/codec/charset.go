package codec

import (
	"unicode/utf8"

	"github.com/takapi327/ldbc-sub016/internal/protocol"
)

// charsetName maps the handful of collation ids this client is expected to
// see in practice to the encoding family used to decode CHAR/VARCHAR/TEXT
// columns. MySQL's collation table has hundreds of entries; a connector
// only needs to distinguish "is this already UTF-8" from "is this binary"
// from "unknown, decode best-effort" (spec.md §4.5).
func charsetName(id uint16) string {
	switch id {
	case protocol.CharsetUTF8General, protocol.CharsetUTF8MB4General:
		return "utf8"
	case protocol.CharsetBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// DecodeString converts raw column bytes to a Go string per the column's
// charset id. utf8 and utf8mb4 columns decode directly since Go source
// strings are already UTF-8 bytes under the hood. binary columns are
// returned as a raw Latin-1-style passthrough. Anything else falls back to
// a lossy best-effort decode and reports warn=true so the caller can
// surface a LogEvent, per spec.md's "fall back to lossy decode with a
// warning event for unknown charsets" requirement.
func DecodeString(raw []byte, charset uint16) (s string, warn bool) {
	switch charsetName(charset) {
	case "utf8":
		if utf8.Valid(raw) {
			return string(raw), false
		}
		return string(sanitizeUTF8(raw)), true
	case "binary":
		return string(raw), false
	default:
		return string(sanitizeUTF8(raw)), true
	}
}

// sanitizeUTF8 replaces invalid byte sequences with the Unicode
// replacement character rather than producing a string that round-trips
// incorrectly through encoding/json or database/sql callers.
func sanitizeUTF8(raw []byte) []rune {
	out := make([]rune, 0, len(raw))
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRune(raw[i:])
		out = append(out, r)
		i += size
	}
	return out
}
