package engine

import "math/big"

// bps 分母
const basisPointDenominator = 10000

// FeeQuote is the protocol fee over a batch total.
type FeeQuote struct {
	Fee         *big.Int `json:"fee"`
	BasisPoints uint32   `json:"basis_points"`
}

// EstimateFee computes floor(total * basisPoints / 10000) in exact integer
// arithmetic. A zero rate disables the fee; the rate itself comes from the
// distribution contract, never from local config.
func EstimateFee(total *big.Int, basisPoints uint32) FeeQuote {
	fee := new(big.Int)
	if total != nil && total.Sign() > 0 && basisPoints > 0 {
		fee.Mul(total, big.NewInt(int64(basisPoints)))
		fee.Quo(fee, big.NewInt(basisPointDenominator))
	}
	return FeeQuote{Fee: fee, BasisPoints: basisPoints}
}

// GasTierThresholds are configuration, injected so business logic stays free
// of hard-coded gas economics.
type GasTierThresholds struct {
	Low uint64
	Mid uint64
}

// GasTier coarsely labels an externally supplied gas estimate.
func GasTier(gas uint64, t GasTierThresholds) string {
	switch {
	case gas < t.Low:
		return "low"
	case gas < t.Mid:
		return "medium"
	default:
		return "high"
	}
}
