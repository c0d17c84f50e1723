package request

import "multisender-core/internal/engine"

// SelectAssetRequest 选择要分发的资产
// kind = "native" 或 "token"; 代币必须带合约地址
type SelectAssetRequest struct {
	Kind    string `json:"kind" binding:"required,oneof=native token"`
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
}

// SetModeRequest 切换分发模式
type SetModeRequest struct {
	Mode string `json:"mode" binding:"required,oneof=equal custom"`
}

// SetRowsRequest 整表替换收款人
type SetRowsRequest struct {
	Rows []engine.Row `json:"rows" binding:"required"`
}

// SetEqualAmountRequest 等额模式下每人的金额
type SetEqualAmountRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// ImportRequest CSV 批量导入
type ImportRequest struct {
	Text       string `json:"text" binding:"required"`
	HasHeaders bool   `json:"has_headers"`
}

// SaveAddressRequest 地址簿条目
type SaveAddressRequest struct {
	Address string `json:"address" binding:"required"`
	Label   string `json:"label" binding:"required"`
}
