package engine

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateFee(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		bps   uint32
		want  string
	}{
		{"2.5 percent", 100000, 250, "2500"},
		{"Floor at odd total", 3, 250, "0"},
		{"Floor rounds down", 10001, 250, "250"},
		{"Zero rate disables fee", 100000, 0, "0"},
		{"Zero total", 0, 250, "0"},
		{"Full rate", 12345, 10000, "12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote := EstimateFee(big.NewInt(tt.total), tt.bps)
			assert.Equal(t, tt.want, quote.Fee.String())
			assert.Equal(t, tt.bps, quote.BasisPoints)
		})
	}

	assert.Equal(t, "0", EstimateFee(nil, 250).Fee.String())
}

func TestGasTier(t *testing.T) {
	thresholds := GasTierThresholds{Low: 100000, Mid: 500000}

	assert.Equal(t, "low", GasTier(21000, thresholds))
	assert.Equal(t, "medium", GasTier(100000, thresholds))
	assert.Equal(t, "medium", GasTier(499999, thresholds))
	assert.Equal(t, "high", GasTier(500000, thresholds))
}

func TestFindDuplicates(t *testing.T) {
	lower := "0x742d35cc6634c0532925a3b844bc454e4438f44e"

	rows := []Row{
		{Address: addrA},
		{Address: addrB},
		{Address: lower},  // 与 addrA 仅大小写不同
		{Address: addrA},  // 第三次出现，只报告一次
		{Address: "junk"}, // 非法地址不参与查重
	}

	dups := FindDuplicates(rows)
	assert.Equal(t, []string{addrA}, dups)

	assert.Empty(t, FindDuplicates([]Row{{Address: addrA}, {Address: addrB}}))
}
