package codec

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takapi327/ldbc-sub016/internal/protocol"
)

// stripLenenc removes the length-encoded-integer prefix EncodeParam adds to
// variable-width values, mirroring what protocol.ParseBinaryRow does before
// handing a column's bytes to DecodeBinaryValue.
func stripLenenc(t *testing.T, data []byte) []byte {
	t.Helper()
	length, isNull, n, err := protocol.ReadLengthEncodedInt(data)
	require.NoError(t, err)
	require.False(t, isNull)
	return data[n : n+int(length)]
}

// TestEncodeDecode_RoundTrip covers spec.md §8's "encoder∘decoder = identity
// for every supported (column_type, value)" law for the binary protocol:
// round-tripping a Value through EncodeParam and back through
// DecodeBinaryValue must reproduce the original value.
func TestEncodeDecode_RoundTrip(t *testing.T) {
	decVal, err := decimal.NewFromString("-123.456000")
	require.NoError(t, err)

	cases := []struct {
		name string
		in   Value
		col  Column
	}{
		{"int64", int64(-42), Column{Type: protocol.TypeLongLong}},
		{"uint64", uint64(42), Column{Type: protocol.TypeLongLong, Unsigned: true}},
		{"bool true", true, Column{Type: protocol.TypeTiny}},
		{"bool false", false, Column{Type: protocol.TypeTiny}},
		{"float32", float32(3.5), Column{Type: protocol.TypeFloat}},
		{"float64", float64(2.71828), Column{Type: protocol.TypeDouble}},
		{"decimal", decVal, Column{Type: protocol.TypeNewDecimal}},
		{"string", "hello world", Column{Type: protocol.TypeVarString, Charset: protocol.CharsetUTF8General}},
		{"bytes", []byte{0xDE, 0xAD, 0xBE, 0xEF}, Column{Type: protocol.TypeBlob, Charset: protocol.CharsetBinary}},
		{"time", time.Date(2023, time.June, 15, 12, 30, 0, 0, time.UTC), Column{Type: protocol.TypeDateTime}},
		{"duration", Duration{Hours: 1, Minutes: 2, Seconds: 3}, Column{Type: protocol.TypeTime}},
		{"bit", Bit{0x0F}, Column{Type: protocol.TypeBit}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			param, err := EncodeParam(tc.in)
			require.NoError(t, err)

			raw := param.Data
			switch tc.col.Type {
			case protocol.TypeVarString, protocol.TypeNewDecimal, protocol.TypeBlob, protocol.TypeDateTime, protocol.TypeTime, protocol.TypeBit:
				raw = stripLenenc(t, param.Data)
			}

			got, _, err := DecodeBinaryValue(raw, tc.col)
			require.NoError(t, err)

			switch want := tc.in.(type) {
			case decimal.Decimal:
				assert.True(t, want.Equal(got.(decimal.Decimal)))
			case time.Time:
				assert.True(t, want.Equal(got.(time.Time)))
			case bool:
				gotInt, ok := got.(int64)
				require.True(t, ok)
				if want {
					assert.Equal(t, int64(1), gotInt)
				} else {
					assert.Equal(t, int64(0), gotInt)
				}
			default:
				assert.Equal(t, tc.in, got)
			}
		})
	}
}

func TestEncodeParam_NilIsSQLNull(t *testing.T) {
	param, err := EncodeParam(nil)
	require.NoError(t, err)
	assert.True(t, param.IsNull)
	assert.Equal(t, protocol.TypeNull, param.Type)
}

func TestEncodeParam_RejectsUnsupportedType(t *testing.T) {
	_, err := EncodeParam(struct{}{})
	assert.Error(t, err)
}

func TestEncodeLiteral_QuotesAndEscapesStrings(t *testing.T) {
	lit, err := EncodeLiteral("O'Brien")
	require.NoError(t, err)
	assert.Equal(t, `'O\'Brien'`, lit)
}

func TestEncodeLiteral_NilIsNULL(t *testing.T) {
	lit, err := EncodeLiteral(nil)
	require.NoError(t, err)
	assert.Equal(t, "NULL", lit)
}

func TestEncodeLiteral_BinaryIsHexLiteral(t *testing.T) {
	lit, err := EncodeLiteral([]byte{0xAB, 0xCD})
	require.NoError(t, err)
	assert.Equal(t, "X'abcd'", lit)
}
