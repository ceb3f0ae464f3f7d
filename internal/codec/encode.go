package codec

import (
	"encoding/binary"
	"encoding/hex"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/takapi327/ldbc-sub016/internal/protocol"
)

// EncodeParam converts a bound application value into the
// protocol.BoundParam the binary COM_STMT_EXECUTE payload builder expects,
// mapping each Go type to one fixed wire type (every integer is sent as
// LONGLONG, time.Time as DATETIME, and so on) (spec.md
// §4.5's Encoder<T>: write(buf, value) → type_byte).
func EncodeParam(v Value) (protocol.BoundParam, error) {
	if v == nil {
		return protocol.BoundParam{Type: protocol.TypeNull, IsNull: true}, nil
	}
	switch val := v.(type) {
	case int64:
		return protocol.BoundParam{Type: protocol.TypeLongLong, Data: leUint64(uint64(val))}, nil
	case int:
		return protocol.BoundParam{Type: protocol.TypeLongLong, Data: leUint64(uint64(int64(val)))}, nil
	case uint64:
		return protocol.BoundParam{Type: protocol.TypeLongLong, Unsigned: true, Data: leUint64(val)}, nil
	case bool:
		b := byte(0)
		if val {
			b = 1
		}
		return protocol.BoundParam{Type: protocol.TypeTiny, Data: []byte{b}}, nil
	case float32:
		return protocol.BoundParam{Type: protocol.TypeFloat, Data: leUint32(math.Float32bits(val))}, nil
	case float64:
		return protocol.BoundParam{Type: protocol.TypeDouble, Data: leUint64(math.Float64bits(val))}, nil
	case decimal.Decimal:
		return protocol.BoundParam{Type: protocol.TypeNewDecimal, Data: lenencBytes(EncodeDecimal(val))}, nil
	case string:
		return protocol.BoundParam{Type: protocol.TypeVarString, Data: lenencBytes([]byte(val))}, nil
	case []byte:
		return protocol.BoundParam{Type: protocol.TypeBlob, Data: lenencBytes(val)}, nil
	case time.Time:
		return protocol.BoundParam{Type: protocol.TypeDateTime, Data: lenencBytes(EncodeDateTime(val))}, nil
	case Duration:
		return protocol.BoundParam{Type: protocol.TypeTime, Data: lenencBytes(EncodeTime(val))}, nil
	case Bit:
		return protocol.BoundParam{Type: protocol.TypeBit, Data: lenencBytes(val)}, nil
	default:
		return protocol.BoundParam{}, errors.Errorf("codec: unsupported parameter type %T", v)
	}
}

func leUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func leUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// lenencBytes prefixes data with its MySQL length-encoded-integer length,
// the form BuildComStmtExecute expects for variable-width param values.
func lenencBytes(data []byte) []byte {
	return protocol.AppendLengthEncodedString(nil, data)
}

// EncodeLiteral renders v as a SQL literal suitable for interpolation into
// a text-protocol COM_QUERY statement. Callers that accept untrusted input
// should prefer prepared statements (EncodeParam); this exists for the
// Statement.execute text-protocol path described in spec.md §4.6.
func EncodeLiteral(v Value) (string, error) {
	if v == nil {
		return "NULL", nil
	}
	switch val := v.(type) {
	case int64:
		return formatInt(val), nil
	case int:
		return formatInt(int64(val)), nil
	case uint64:
		return formatUint(val), nil
	case bool:
		if val {
			return "1", nil
		}
		return "0", nil
	case float32:
		return formatFloat(float64(val), 32), nil
	case float64:
		return formatFloat(val, 64), nil
	case decimal.Decimal:
		return val.String(), nil
	case string:
		return quoteString(val), nil
	case []byte:
		return quoteBinary(val), nil
	case time.Time:
		return quoteString(FormatDateTimeText(val, true)), nil
	case Duration:
		return quoteString(FormatTimeText(val)), nil
	case Bit:
		return quoteBinary(val), nil
	default:
		return "", errors.Errorf("codec: unsupported literal type %T", v)
	}
}

func formatInt(v int64) string    { return strconv.FormatInt(v, 10) }
func formatUint(v uint64) string  { return strconv.FormatUint(v, 10) }
func formatFloat(v float64, bitSize int) string {
	return strconv.FormatFloat(v, 'g', -1, bitSize)
}

// quoteString escapes a value for a single-quoted SQL string literal under
// MySQL's default (non-NO_BACKSLASH_ESCAPES) SQL mode.
func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		case 0:
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// quoteBinary renders raw bytes as a MySQL hex literal (X'...'), which
// needs no escaping and round-trips through any charset unambiguously.
func quoteBinary(raw []byte) string {
	return "X'" + hex.EncodeToString(raw) + "'"
}
