package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"multisender-core/internal/engine"
)

// CallShape is the distribution contract entrypoint, chosen purely by
// (asset kind, mode).
type CallShape string

const (
	ShapeTokenCustom  CallShape = "sendToMany"
	ShapeTokenEqual   CallShape = "sendEqual"
	ShapeNativeCustom CallShape = "sendNativeToMany"
	ShapeNativeEqual  CallShape = "sendNativeEqual"
)

// SendRequest is one batch-send call. Native shapes carry total+fee as the
// transaction value; token shapes carry zero.
type SendRequest struct {
	Shape      CallShape
	Token      common.Address // token shapes only
	Recipients []common.Address
	Amounts    []*big.Int // custom shapes
	AmountPer  *big.Int   // equal shapes
	Value      *big.Int   // attached native value, nil for token shapes
}

// BuildSendRequest maps a resolved batch onto its call shape.
func BuildSendRequest(asset engine.Asset, mode engine.Mode, batch engine.ResolvedBatch, fee *big.Int) SendRequest {
	req := SendRequest{Recipients: batch.Recipients}

	if mode == engine.ModeEqual && len(batch.Amounts) > 0 {
		req.AmountPer = batch.Amounts[0]
	} else {
		req.Amounts = batch.Amounts
	}

	if asset.IsNative() {
		if mode == engine.ModeEqual {
			req.Shape = ShapeNativeEqual
		} else {
			req.Shape = ShapeNativeCustom
		}
		req.Value = new(big.Int).Add(batch.Total, fee)
	} else {
		req.Token = asset.Token
		if mode == engine.ModeEqual {
			req.Shape = ShapeTokenEqual
		} else {
			req.Shape = ShapeTokenCustom
		}
	}
	return req
}

// TxHandle identifies a submitted transaction awaiting confirmation.
type TxHandle struct {
	Hash common.Hash
}

// Client is the narrow contract with the remote ledger. All reads are
// side-effect-free and retriable; Approve/SendBatch submit and return a
// handle whose lifecycle WaitConfirmed drives to success or failure.
type Client interface {
	// Sender is the account all operations originate from.
	Sender() common.Address
	// Multisender is the distribution contract address, zero if unset.
	Multisender() common.Address

	BalanceOf(ctx context.Context, owner common.Address, asset engine.Asset) (*big.Int, error)
	Allowance(ctx context.Context, owner, token, spender common.Address) (*big.Int, error)
	TokenMeta(ctx context.Context, token common.Address) (decimals uint8, symbol string, err error)
	FeeBasisPoints(ctx context.Context) (uint32, error)
	EstimateGas(ctx context.Context, req SendRequest) (uint64, error)

	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (TxHandle, error)
	SendBatch(ctx context.Context, req SendRequest) (TxHandle, error)
	// WaitConfirmed blocks until the transaction is mined or ctx expires.
	// Mid-flight cancellation of the chain operation itself is not a thing;
	// the only terminal outcomes are success and failure.
	WaitConfirmed(ctx context.Context, tx TxHandle) error
}
