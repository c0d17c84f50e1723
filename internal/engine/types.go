package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Mode 分发模式: 所有人等额 or 逐个指定金额
type Mode string

const (
	ModeEqual  Mode = "equal"
	ModeCustom Mode = "custom"
)

// Row is a raw recipient entry as typed or imported. Both fields may be
// invalid; validation happens downstream.
type Row struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// AssetKind distinguishes the chain's native coin from an ERC20 token.
type AssetKind string

const (
	AssetNative AssetKind = "native"
	AssetToken  AssetKind = "token"
)

// Asset describes the asset being distributed. Immutable once selected;
// re-selection builds a new descriptor because decimals may change.
type Asset struct {
	Kind     AssetKind      `json:"kind"`
	Token    common.Address `json:"token,omitempty"` // zero for native
	Decimals uint8          `json:"decimals"`
	Symbol   string         `json:"symbol"`
}

func (a Asset) IsNative() bool {
	return a.Kind == AssetNative
}

// Label returns the display name used in history entries.
func (a Asset) Label() string {
	if a.Symbol != "" {
		return a.Symbol
	}
	if a.IsNative() {
		return "ETH"
	}
	return a.Token.Hex()
}

// ResolvedBatch is the derived send payload: parallel recipient/amount
// arrays plus the exact integer total in minor units.
type ResolvedBatch struct {
	Recipients []common.Address
	Amounts    []*big.Int
	Total      *big.Int
}

func emptyBatch() ResolvedBatch {
	return ResolvedBatch{Total: new(big.Int)}
}

// IsEmpty reports the "not ready yet" sentinel: no resolvable recipients.
func (b ResolvedBatch) IsEmpty() bool {
	return len(b.Recipients) == 0
}
