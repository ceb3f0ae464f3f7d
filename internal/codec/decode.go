package codec

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/takapi327/ldbc-sub016/internal/protocol"
)

// DecodeTextValue decodes one column of a text-protocol row (spec.md §4.4):
// raw is the column's ASCII/UTF-8 bytes as handed back by
// protocol.ParseTextRow, or nil for SQL NULL.
func DecodeTextValue(raw []byte, col Column) (Value, bool, error) {
	if raw == nil {
		return nil, false, nil
	}
	switch col.Type {
	case protocol.TypeTiny, protocol.TypeShort, protocol.TypeLong, protocol.TypeInt24, protocol.TypeLongLong, protocol.TypeYear:
		return decodeTextInt(raw, col.Unsigned)
	case protocol.TypeFloat:
		f, err := strconv.ParseFloat(string(raw), 32)
		return float32(f), false, wrapDecodeErr(err, "FLOAT")
	case protocol.TypeDouble:
		f, err := strconv.ParseFloat(string(raw), 64)
		return f, false, wrapDecodeErr(err, "DOUBLE")
	case protocol.TypeDecimal, protocol.TypeNewDecimal:
		d, err := DecodeDecimal(raw)
		return d, false, err
	case protocol.TypeDate, protocol.TypeNewDate:
		t, err := ParseDateTimeText(raw)
		return t, false, err
	case protocol.TypeDateTime, protocol.TypeTimestamp:
		t, err := ParseDateTimeText(raw)
		return t, false, err
	case protocol.TypeTime:
		d, err := ParseTimeText(raw)
		return d, false, err
	case protocol.TypeBit:
		return Bit(append([]byte(nil), raw...)), false, nil
	case protocol.TypeVarChar, protocol.TypeVarString, protocol.TypeString, protocol.TypeEnum, protocol.TypeSet, protocol.TypeJSON:
		s, warn := DecodeString(raw, col.Charset)
		return s, warn, nil
	case protocol.TypeBlob, protocol.TypeTinyBlob, protocol.TypeMediumBlob, protocol.TypeLongBlob:
		if col.Charset == protocol.CharsetBinary {
			return append([]byte(nil), raw...), false, nil
		}
		s, warn := DecodeString(raw, col.Charset)
		return s, warn, nil
	default:
		s, warn := DecodeString(raw, col.Charset)
		return s, warn, nil
	}
}

func decodeTextInt(raw []byte, unsigned bool) (Value, bool, error) {
	if unsigned {
		u, err := strconv.ParseUint(string(raw), 10, 64)
		return u, false, wrapDecodeErr(err, "unsigned integer")
	}
	i, err := strconv.ParseInt(string(raw), 10, 64)
	return i, false, wrapDecodeErr(err, "integer")
}

func wrapDecodeErr(err error, kind string) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "codec: decode %s", kind)
}

// DecodeBinaryValue decodes one column of a binary-protocol row (spec.md
// §4.5): raw is the column's raw wire bytes as sliced out by
// protocol.ParseBinaryRow (fixed-width columns already isolated to their
// exact width; variable-width columns already stripped of their
// length-encoding prefix), or nil for SQL NULL.
func DecodeBinaryValue(raw []byte, col Column) (Value, bool, error) {
	if raw == nil {
		return nil, false, nil
	}
	switch col.Type {
	case protocol.TypeTiny:
		if col.Unsigned {
			return uint64(raw[0]), false, nil
		}
		return int64(int8(raw[0])), false, nil
	case protocol.TypeShort:
		v := binary.LittleEndian.Uint16(raw)
		if col.Unsigned {
			return uint64(v), false, nil
		}
		return int64(int16(v)), false, nil
	case protocol.TypeYear:
		y, err := DecodeYear(raw)
		return int64(y), false, err
	case protocol.TypeLong, protocol.TypeInt24:
		v := binary.LittleEndian.Uint32(raw)
		if col.Unsigned {
			return uint64(v), false, nil
		}
		return int64(int32(v)), false, nil
	case protocol.TypeLongLong:
		v := binary.LittleEndian.Uint64(raw)
		if col.Unsigned {
			return v, false, nil
		}
		return int64(v), false, nil
	case protocol.TypeFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(raw)), false, nil
	case protocol.TypeDouble:
		return math.Float64frombits(binary.LittleEndian.Uint64(raw)), false, nil
	case protocol.TypeDecimal, protocol.TypeNewDecimal:
		d, err := DecodeDecimal(raw)
		return d, false, err
	case protocol.TypeDate, protocol.TypeNewDate:
		t, err := DecodeDate(raw)
		return t, false, err
	case protocol.TypeDateTime, protocol.TypeTimestamp:
		t, err := DecodeDateTime(raw)
		return t, false, err
	case protocol.TypeTime:
		d, err := DecodeTime(raw)
		return d, false, err
	case protocol.TypeBit:
		return Bit(append([]byte(nil), raw...)), false, nil
	case protocol.TypeVarChar, protocol.TypeVarString, protocol.TypeString, protocol.TypeEnum, protocol.TypeSet, protocol.TypeJSON:
		s, warn := DecodeString(raw, col.Charset)
		return s, warn, nil
	case protocol.TypeBlob, protocol.TypeTinyBlob, protocol.TypeMediumBlob, protocol.TypeLongBlob:
		if col.Charset == protocol.CharsetBinary {
			return append([]byte(nil), raw...), false, nil
		}
		s, warn := DecodeString(raw, col.Charset)
		return s, warn, nil
	default:
		return nil, false, errors.Errorf("codec: unsupported column type %d", col.Type)
	}
}

