package engine

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multisender-core/pkg/errno"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		decimals uint8
		want     string
		wantErr  error
	}{
		{"Integer", "42", 6, "42000000", nil},
		{"Fraction", "1.5", 6, "1500000", nil},
		{"Full precision", "0.000001", 6, "1", nil},
		{"Leading dot", ".5", 6, "500000", nil},
		{"Trailing dot", "5.", 6, "5000000", nil},
		{"Zero decimals", "7", 0, "7", nil},
		{"Zero value", "0", 18, "0", nil},
		{"Whitespace trimmed", " 1.5 ", 6, "1500000", nil},
		{"Empty", "", 6, "", errno.ErrMalformedAmount},
		{"Lone dot", ".", 6, "", errno.ErrMalformedAmount},
		{"Negative", "-1", 6, "", errno.ErrMalformedAmount},
		{"Exponent notation", "1e5", 6, "", errno.ErrMalformedAmount},
		{"Two dots", "1.2.3", 6, "", errno.ErrMalformedAmount},
		{"Letters", "abc", 6, "", errno.ErrMalformedAmount},
		// 小数位超限必须拒绝，不允许静默截断
		{"Excess precision", "1.1234567", 6, "", errno.ErrMalformedAmount},
		{"Fraction with zero decimals", "1.5", 0, "", errno.ErrMalformedAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToMinorUnits(tt.input, tt.decimals)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestToPositiveMinorUnits(t *testing.T) {
	_, err := ToPositiveMinorUnits("0", 6)
	assert.ErrorIs(t, err, errno.ErrNonPositiveAmount)

	_, err = ToPositiveMinorUnits("0.000000", 6)
	assert.ErrorIs(t, err, errno.ErrNonPositiveAmount)

	v, err := ToPositiveMinorUnits("0.000001", 6)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Int64())
}

func TestToDecimalString(t *testing.T) {
	tests := []struct {
		name     string
		input    int64
		decimals uint8
		want     string
	}{
		{"Whole", 42000000, 6, "42"},
		{"Fraction", 1500000, 6, "1.5"},
		{"Smallest unit", 1, 6, "0.000001"},
		{"Zero", 0, 18, "0"},
		{"No decimals", 7, 0, "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToDecimalString(big.NewInt(tt.input), tt.decimals))
		})
	}

	assert.Equal(t, "0", ToDecimalString(nil, 6))
}

// 往返律: toMinorUnits(toDecimalString(x, d), d) == x
func TestCodecRoundTrip(t *testing.T) {
	values := []string{"0", "1", "999", "4500000", "1000000000000000000", "123456789123456789123456789"}
	decimals := []uint8{0, 1, 6, 8, 18, 77}

	for _, d := range decimals {
		for _, raw := range values {
			x, ok := new(big.Int).SetString(raw, 10)
			require.True(t, ok)

			s := ToDecimalString(x, d)
			back, err := ToMinorUnits(s, d)
			require.NoError(t, err, "decimals=%d value=%s rendered=%s", d, raw, s)
			assert.Zero(t, x.Cmp(back), "decimals=%d value=%s rendered=%s", d, raw, s)
		}
	}
}
