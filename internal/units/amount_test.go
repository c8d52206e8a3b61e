package units

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "2.5000", Format(big.NewInt(2_500_000_000_000_000_000)))
	assert.Equal(t, "0.0000", Format(nil))
	assert.Equal(t, "1", FormatExact(Tokens(1), Decimals))
	assert.Equal(t, "1.25", FormatExact(big.NewInt(1_250_000), 6))
}

func TestNormalizeAmountBaseUnits(t *testing.T) {
	v, err := NormalizeAmount("1000000000000000000", "", Decimals)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Cmp(Wad()))
}

func TestNormalizeAmountDecimal(t *testing.T) {
	v, err := NormalizeAmount("", "1.25", 6)
	require.NoError(t, err)
	assert.Equal(t, "1250000", v.String())
}

func TestNormalizeAmountValidation(t *testing.T) {
	_, err := NormalizeAmount("10", "1", 6)
	require.Error(t, err)

	_, err = NormalizeAmount("", "1.1234567", 6)
	require.Error(t, err)

	_, err = NormalizeAmount("-5", "", 6)
	require.Error(t, err)

	_, err = NormalizeAmount("", "", 6)
	require.Error(t, err)
}
