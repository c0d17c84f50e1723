package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"multisender-core/internal/engine"
	"multisender-core/internal/handler/request"
	"multisender-core/internal/handler/response"
	"multisender-core/internal/service"
	"multisender-core/pkg/errno"
)

// 展示层最多透出的校验错误条数
const maxSurfacedErrors = 5

type DistributionHandler struct {
	svc *service.DistributionService
}

func NewDistributionHandler(svc *service.DistributionService) *DistributionHandler {
	return &DistributionHandler{svc: svc}
}

// SelectAsset 选择要分发的资产
// @Summary 选择资产
// @Description 选择原生币或 ERC20 代币作为分发资产
// @Tags Distribution
// @Accept json
// @Produce json
// @Param request body request.SelectAssetRequest true "Asset"
// @Success 200 {object} response.Response
// @Router /api/v1/asset [post]
func (h *DistributionHandler) SelectAsset(c *gin.Context) {
	var req request.SelectAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	if req.Kind == string(engine.AssetNative) {
		h.svc.SelectNative(req.Symbol)
		response.Success(c, nil)
		return
	}

	if err := h.svc.SelectToken(c.Request.Context(), req.Address); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// SetMode 切换分发模式
// @Summary 切换模式
// @Tags Distribution
// @Accept json
// @Produce json
// @Param request body request.SetModeRequest true "Mode"
// @Success 200 {object} response.Response
// @Router /api/v1/mode [post]
func (h *DistributionHandler) SetMode(c *gin.Context) {
	var req request.SetModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	h.svc.SetMode(engine.Mode(req.Mode))
	response.Success(c, nil)
}

// GetRows 返回当前收款人表格
// @Summary 查看收款人
// @Tags Distribution
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/rows [get]
func (h *DistributionHandler) GetRows(c *gin.Context) {
	rows := h.svc.Rows()
	response.Success(c, gin.H{
		"rows":       rows,
		"duplicates": engine.FindDuplicates(rows),
	})
}

// SetRows 整表替换收款人
// @Summary 替换收款人
// @Tags Distribution
// @Accept json
// @Produce json
// @Param request body request.SetRowsRequest true "Rows"
// @Success 200 {object} response.Response
// @Router /api/v1/rows [put]
func (h *DistributionHandler) SetRows(c *gin.Context) {
	var req request.SetRowsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	h.svc.SetRows(req.Rows)
	response.Success(c, nil)
}

// SetEqualAmount 设置等额模式的每人金额
// @Summary 设置等额金额
// @Tags Distribution
// @Accept json
// @Produce json
// @Param request body request.SetEqualAmountRequest true "Amount"
// @Success 200 {object} response.Response
// @Router /api/v1/equal_amount [post]
func (h *DistributionHandler) SetEqualAmount(c *gin.Context) {
	var req request.SetEqualAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	h.svc.SetEqualAmount(req.Amount)
	response.Success(c, nil)
}

// ImportCSV 批量导入收款人
// @Summary CSV 导入
// @Description 校验整份 CSV, 全部合法才会替换当前收款人
// @Tags Distribution
// @Accept json
// @Produce json
// @Param request body request.ImportRequest true "CSV text"
// @Success 200 {object} response.Response
// @Router /api/v1/import [post]
func (h *DistributionHandler) ImportCSV(c *gin.Context) {
	var req request.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	result := h.svc.ImportCSV(req.Text, req.HasHeaders)
	if !result.IsValid {
		response.Success(c, gin.H{
			"is_valid":    false,
			"errors":      result.TopErrors(maxSurfacedErrors),
			"error_count": len(result.Errors),
			"row_count":   0,
		})
		return
	}
	response.Success(c, gin.H{
		"is_valid":  true,
		"row_count": len(result.Accepted),
	})
}

// Template 下载 CSV 模板
// @Summary CSV 模板
// @Tags Distribution
// @Produce plain
// @Param custom query bool false "包含金额列"
// @Success 200 {string} string
// @Router /api/v1/template [get]
func (h *DistributionHandler) Template(c *gin.Context) {
	custom, _ := strconv.ParseBool(c.DefaultQuery("custom", "false"))
	headers, _ := strconv.ParseBool(c.DefaultQuery("headers", "true"))

	c.Header("Content-Disposition", `attachment; filename="recipients_template.csv"`)
	c.Data(200, "text/csv", []byte(engine.GenerateTemplate(custom, headers)))
}

// Summary 当前批次的派生视图
// @Summary 批次摘要
// @Description 返回解析结果、费用、Gas 档位与可发送状态
// @Tags Distribution
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/summary [get]
func (h *DistributionHandler) Summary(c *gin.Context) {
	sum, err := h.svc.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, sum)
}

// Approve 提交 ERC20 授权并等待确认
// @Summary 授权
// @Tags Distribution
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/approve [post]
func (h *DistributionHandler) Approve(c *gin.Context) {
	hash, err := h.svc.Approve(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"tx_hash": hash})
}

// Send 提交批量转账并等待确认
// @Summary 发送
// @Tags Distribution
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/send [post]
func (h *DistributionHandler) Send(c *gin.Context) {
	hash, err := h.svc.Send(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"tx_hash": hash})
}
