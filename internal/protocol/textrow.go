package protocol

import "github.com/pkg/errors"

// TextRow is a decoded text-protocol row: each column is either NULL or a
// raw string (the server's textual rendering); internal/codec converts
// these to typed values using the corresponding ColumnDefinition41.
type TextRow struct {
	Values [][]byte // nil element means SQL NULL
}

// IsRowPacket reports whether payload looks like a row rather than an
// OK/ERR/EOF sentinel, given the current DEPRECATE_EOF negotiation.
func IsRowPacket(payload []byte, deprecateEOF bool) bool {
	if len(payload) == 0 {
		return false
	}
	if IsERR(payload) {
		return false
	}
	if IsEOF(payload, deprecateEOF) {
		return false
	}
	if !deprecateEOF {
		return true
	}
	// DEPRECATE_EOF: an OK-shaped terminator (0x00 or short 0xFE) ends the
	// result set instead of a row.
	return !(payload[0] == packetOK || (payload[0] == packetEOF && len(payload) < 9))
}

// ParseTextRow decodes a text-protocol row packet body for numColumns
// columns.
func ParseTextRow(payload []byte, numColumns int) (*TextRow, error) {
	row := &TextRow{Values: make([][]byte, numColumns)}
	off := 0
	for i := 0; i < numColumns; i++ {
		value, isNull, n, err := ReadLengthEncodedString(payload[off:])
		if err != nil {
			return nil, errors.Wrapf(err, "protocol: text row column %d", i)
		}
		if !isNull {
			row.Values[i] = value
		}
		off += n
	}
	return row, nil
}

// EncodeTextRow is used by tests to build server fixtures.
func EncodeTextRow(values [][]byte) []byte {
	var buf []byte
	for _, v := range values {
		if v == nil {
			buf = AppendLengthEncodedNull(buf)
			continue
		}
		buf = AppendLengthEncodedString(buf, v)
	}
	return buf
}
