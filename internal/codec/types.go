// Package codec implements the bidirectional mapping between MySQL
// column/binary wire types and Go values (C5): decoding rows produced by
// internal/protocol into application values, and encoding bound
// parameters back into their wire form.
package codec

import (
	"github.com/takapi327/ldbc-sub016/internal/protocol"
)

// Value is a decoded column value. It is always one of: nil (SQL NULL),
// int64, uint64, float32, float64, string, []byte, shopspring/decimal.Decimal,
// time.Time, Bit, or Duration (for TIME columns).
//
// Decoding is structural rather than reflective: a Decoder table keyed by
// protocol.ColumnType picks the concrete Go representation, and composite
// decoding (a row, a struct-shaped result) is just iterating that table
// positionally — there is no decoder type hierarchy to extend.
type Value interface{}

// Bit is the decoded form of a MySQL BIT(n) column: the raw bits,
// left-padded to whole bytes, most significant byte first.
type Bit []byte

// Column is the subset of ColumnDefinition41 the codec needs to decode a
// value: its wire type, charset (for string families) and signedness.
type Column struct {
	Type      protocol.ColumnType
	Charset   uint16
	Unsigned  bool
	Decimals  byte // scale, for DECIMAL/NEWDECIMAL and temporal fractional seconds
}

// FromDefinition adapts a protocol.ColumnDefinition41 into the narrower
// Column shape the codec tables consume.
func FromDefinition(def *protocol.ColumnDefinition41) Column {
	return Column{
		Type:     def.Type,
		Charset:  def.Charset,
		Unsigned: def.Flags&protocol.FlagUnsigned != 0,
		Decimals: def.Decimals,
	}
}
