package codec

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// DecodeDecimal parses a DECIMAL/NEWDECIMAL value. Both the text and binary
// row protocols send decimals as a length-encoded ASCII digit string
// (already split out by the row parsers before this is called), so there
// is a single decode path.
func DecodeDecimal(raw []byte) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "codec: decode DECIMAL")
	}
	return d, nil
}

// EncodeDecimal renders d back into the ASCII digit string MySQL expects
// for a DECIMAL parameter, used by both text-protocol query building and
// binary COM_STMT_EXECUTE parameter encoding.
func EncodeDecimal(d decimal.Decimal) []byte {
	return []byte(d.String())
}
