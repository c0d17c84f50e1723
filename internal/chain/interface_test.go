package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"multisender-core/internal/engine"
)

func testBatch(n int, per int64) engine.ResolvedBatch {
	batch := engine.ResolvedBatch{Total: new(big.Int)}
	for i := 0; i < n; i++ {
		batch.Recipients = append(batch.Recipients, common.BigToAddress(big.NewInt(int64(i+1))))
		batch.Amounts = append(batch.Amounts, big.NewInt(per))
		batch.Total.Add(batch.Total, big.NewInt(per))
	}
	return batch
}

func TestBuildSendRequest(t *testing.T) {
	token := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	native := engine.Asset{Kind: engine.AssetNative, Decimals: 18}
	erc20 := engine.Asset{Kind: engine.AssetToken, Token: token, Decimals: 6}
	fee := big.NewInt(25)

	tests := []struct {
		name      string
		asset     engine.Asset
		mode      engine.Mode
		wantShape CallShape
	}{
		{"代币逐个金额", erc20, engine.ModeCustom, ShapeTokenCustom},
		{"代币等额", erc20, engine.ModeEqual, ShapeTokenEqual},
		{"原生币逐个金额", native, engine.ModeCustom, ShapeNativeCustom},
		{"原生币等额", native, engine.ModeEqual, ShapeNativeEqual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := testBatch(3, 100)
			req := BuildSendRequest(tt.asset, tt.mode, batch, fee)

			assert.Equal(t, tt.wantShape, req.Shape)
			assert.Len(t, req.Recipients, 3)

			if tt.mode == engine.ModeEqual {
				assert.Equal(t, "100", req.AmountPer.String())
				assert.Nil(t, req.Amounts)
			} else {
				assert.Len(t, req.Amounts, 3)
				assert.Nil(t, req.AmountPer)
			}

			if tt.asset.IsNative() {
				// 原生币形态: 交易 value = total + fee
				assert.Equal(t, "325", req.Value.String())
			} else {
				assert.Equal(t, token, req.Token)
				assert.Nil(t, req.Value)
			}
		})
	}
}
