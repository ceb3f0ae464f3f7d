package codec

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalRoundTrip(t *testing.T) {
	cases := []string{"0", "-0.00", "123.456", "-999999999999.999999", "0.1"}
	for _, s := range cases {
		t.Run(s, func(t *testing.T) {
			want, err := decimal.NewFromString(s)
			require.NoError(t, err)

			got, err := DecodeDecimal(EncodeDecimal(want))
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "want %s got %s", want, got)
		})
	}
}

func TestDecodeDecimal_RejectsGarbage(t *testing.T) {
	_, err := DecodeDecimal([]byte("not-a-number"))
	assert.Error(t, err)
}
