package service

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multisender-core/internal/chain"
	"multisender-core/internal/engine"
	"multisender-core/internal/service/mq"
	"multisender-core/pkg/errno"
	"multisender-core/pkg/monitor"
)

const (
	addrA = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	addrB = "0x40ceeEdE9fA9ee09e594aFFb63CFc4994aF5B14e"

	tokenAddr = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
)

var (
	senderAddr   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	contractAddr = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func newTestService(t *testing.T) (*DistributionService, *chain.MockClient, *HistoryService) {
	t.Helper()
	client := chain.NewMockClient(senderAddr, contractAddr)
	history := NewHistoryService(NewMemoryHistoryStore(), 10)
	svc := NewDistributionService(client, history, mq.NopProducer{}, engine.GasTierThresholds{Low: 100000, Mid: 500000})
	return svc, client, history
}

// setupTokenBatch 准备一个 2 人等额批次: 每人 500, decimals=6, 费率 250bps
// total = 1_000_000_000, fee = 25_000_000, required = 1_025_000_000
func setupTokenBatch(t *testing.T, svc *DistributionService, client *chain.MockClient) {
	t.Helper()
	client.SetTokenMeta(6, "USDT")
	client.SetFeeBasisPoints(250)
	client.SetTokenBalance(common.HexToAddress(tokenAddr), big.NewInt(2_000_000_000))

	require.NoError(t, svc.SelectToken(context.Background(), tokenAddr))
	svc.SetMode(engine.ModeEqual)
	svc.SetEqualAmount("500")
	svc.SetRows([]engine.Row{{Address: addrA}, {Address: addrB}})
}

func TestSelectToken(t *testing.T) {
	svc, client, _ := newTestService(t)
	client.SetTokenMeta(8, "WBTC")

	err := svc.SelectToken(context.Background(), "not-an-address")
	assert.ErrorIs(t, err, errno.ErrInvalidAddress)

	require.NoError(t, svc.SelectToken(context.Background(), tokenAddr))
	sum, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sum.Asset)
	assert.Equal(t, uint8(8), sum.Asset.Decimals)
	assert.Equal(t, "WBTC", sum.Asset.Symbol)
}

func TestNeedsApprovalLifecycle(t *testing.T) {
	svc, client, _ := newTestService(t)
	setupTokenBatch(t, svc, client)
	ctx := context.Background()

	// 授权额度为零: 必须先授权
	needs, err := svc.NeedsApproval(ctx)
	require.NoError(t, err)
	assert.True(t, needs)

	hash, err := svc.Approve(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	// 确认后重新读取链上额度: 已足额, 不再需要授权
	needs, err = svc.NeedsApproval(ctx)
	require.NoError(t, err)
	assert.False(t, needs)
	assert.Equal(t, PhaseReadyToSend, svc.Phase())
}

func TestApproveNative(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.SelectNative("ETH")
	svc.SetEqualAmount("1")
	svc.SetRows([]engine.Row{{Address: addrA}})

	_, err := svc.Approve(context.Background())
	assert.ErrorIs(t, err, errno.ErrApprovalNotRequired)
}

func TestApproveEmptyBatch(t *testing.T) {
	svc, client, _ := newTestService(t)
	client.SetTokenMeta(6, "USDT")
	require.NoError(t, svc.SelectToken(context.Background(), tokenAddr))

	_, err := svc.Approve(context.Background())
	assert.ErrorIs(t, err, errno.ErrBatchNotSendable)
}

func TestApproveRejected(t *testing.T) {
	svc, client, _ := newTestService(t)
	setupTokenBatch(t, svc, client)
	client.RejectApprove = true

	_, err := svc.Approve(context.Background())
	assert.ErrorIs(t, err, errno.ErrRequestRejected)
	assert.Equal(t, PhaseFailed, svc.Phase())

	// 失败可恢复: 解除拒签后重试成功
	client.RejectApprove = false
	_, err = svc.Approve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseReadyToSend, svc.Phase())
}

func TestApproveConfirmationFailed(t *testing.T) {
	svc, client, _ := newTestService(t)
	setupTokenBatch(t, svc, client)
	client.FailApproveConfirm = true

	_, err := svc.Approve(context.Background())
	assert.ErrorIs(t, err, errno.ErrConfirmationFailed)
	assert.Equal(t, PhaseFailed, svc.Phase())

	// 确认失败时额度不会生效
	needs, err := svc.NeedsApproval(context.Background())
	require.NoError(t, err)
	assert.True(t, needs)
}

func TestApproveNotRequiredSkipsFailureMetric(t *testing.T) {
	svc, client, _ := newTestService(t)
	setupTokenBatch(t, svc, client)
	ctx := context.Background()

	prev := monitor.Business
	monitor.Business = &monitor.BusinessMetrics{
		ApprovalTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "approval_total_scoped",
		}, []string{"result"}),
	}
	t.Cleanup(func() { monitor.Business = prev })

	// 额度已足: Approve 无事可做, 不算失败
	client.SetAllowance(senderAddr, common.HexToAddress(tokenAddr), contractAddr, big.NewInt(1_025_000_000))
	_, err := svc.Approve(ctx)
	assert.ErrorIs(t, err, errno.ErrApprovalNotRequired)
	assert.Equal(t, PhaseReadyToSend, svc.Phase())
	assert.Equal(t, float64(0), testutil.ToFloat64(monitor.Business.ApprovalTotal.WithLabelValues("failed")))

	// 真正被拒签的授权才计入失败
	client.SetAllowance(senderAddr, common.HexToAddress(tokenAddr), contractAddr, big.NewInt(0))
	client.RejectApprove = true
	_, err = svc.Approve(ctx)
	assert.ErrorIs(t, err, errno.ErrRequestRejected)
	assert.Equal(t, float64(1), testutil.ToFloat64(monitor.Business.ApprovalTotal.WithLabelValues("failed")))
}

func TestSendTokenSuccess(t *testing.T) {
	svc, client, history := newTestService(t)
	setupTokenBatch(t, svc, client)
	ctx := context.Background()

	_, err := svc.Approve(ctx)
	require.NoError(t, err)

	hash, err := svc.Send(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.Equal(t, PhaseSucceeded, svc.Phase())

	// 调用形态: 代币等额
	require.Len(t, client.SentBatches, 1)
	sent := client.SentBatches[0]
	assert.Equal(t, chain.ShapeTokenEqual, sent.Shape)
	assert.Equal(t, "500000000", sent.AmountPer.String())
	assert.Len(t, sent.Recipients, 2)
	assert.Nil(t, sent.Value)

	// 历史记录
	entries, err := history.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, hash, entries[0].ID)
	assert.Equal(t, "USDT", entries[0].AssetLabel)
	assert.Equal(t, 2, entries[0].RecipientCount)
	// 历史按资产精度换算成展示单位
	assert.Equal(t, "1000", entries[0].TotalAmount.String())
	assert.Equal(t, "25", entries[0].Fee.String())
	assert.Len(t, entries[0].Samples(), 2)

	// 成功后输入被清空
	rows := svc.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, engine.Row{}, rows[0])
	assert.True(t, svc.Resolve().IsEmpty())
}

func TestSendNativeSuccess(t *testing.T) {
	svc, client, _ := newTestService(t)
	client.SetFeeBasisPoints(250)
	svc.SelectNative("ETH")
	svc.SetMode(engine.ModeCustom)
	svc.SetRows([]engine.Row{
		{Address: addrA, Amount: "1.5"},
		{Address: addrB, Amount: "0.5"},
	})

	// total = 2e18, fee = 5e16, required = 2.05e18
	required, _ := new(big.Int).SetString("2050000000000000000", 10)
	client.SetNativeBalance(required)

	_, err := svc.Send(context.Background())
	require.NoError(t, err)

	require.Len(t, client.SentBatches, 1)
	sent := client.SentBatches[0]
	assert.Equal(t, chain.ShapeNativeCustom, sent.Shape)
	assert.Equal(t, required.String(), sent.Value.String())
	assert.Len(t, sent.Amounts, 2)
}

func TestSendInsufficientBalance(t *testing.T) {
	svc, client, _ := newTestService(t)
	client.SetFeeBasisPoints(250)
	svc.SelectNative("ETH")
	svc.SetEqualAmount("1")
	svc.SetRows([]engine.Row{{Address: addrA}})
	client.SetNativeBalance(big.NewInt(1)) // 远低于 total+fee

	_, err := svc.Send(context.Background())
	assert.ErrorIs(t, err, errno.ErrInsufficientBalance)
	assert.Equal(t, PhaseIdle, svc.Phase())
}

func TestSendInsufficientAllowance(t *testing.T) {
	svc, client, _ := newTestService(t)
	setupTokenBatch(t, svc, client)

	// 未授权直接发送
	_, err := svc.Send(context.Background())
	assert.ErrorIs(t, err, errno.ErrInsufficientAllowance)
}

func TestSendRejectedKeepsBatch(t *testing.T) {
	svc, client, _ := newTestService(t)
	setupTokenBatch(t, svc, client)
	ctx := context.Background()

	_, err := svc.Approve(ctx)
	require.NoError(t, err)

	client.RejectSend = true
	_, err = svc.Send(ctx)
	assert.ErrorIs(t, err, errno.ErrRequestRejected)

	// 批次原样保留, 回到可发送状态
	assert.Equal(t, PhaseReadyToSend, svc.Phase())
	assert.Len(t, svc.Rows(), 2)
	assert.False(t, svc.Resolve().IsEmpty())

	// 重试成功
	client.RejectSend = false
	_, err = svc.Send(ctx)
	require.NoError(t, err)
	assert.Equal(t, PhaseSucceeded, svc.Phase())
}

func TestSendConfirmationFailedKeepsBatch(t *testing.T) {
	svc, client, _ := newTestService(t)
	setupTokenBatch(t, svc, client)
	ctx := context.Background()

	_, err := svc.Approve(ctx)
	require.NoError(t, err)

	client.FailSendConfirm = true
	_, err = svc.Send(ctx)
	assert.ErrorIs(t, err, errno.ErrConfirmationFailed)
	assert.Equal(t, PhaseReadyToSend, svc.Phase())
	assert.Len(t, svc.Rows(), 2)
}

func TestSendNoAsset(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.SetRows([]engine.Row{{Address: addrA, Amount: "1"}})

	_, err := svc.Send(context.Background())
	assert.ErrorIs(t, err, errno.ErrNoAssetSelected)
}

func TestImportCSVAllOrNothing(t *testing.T) {
	svc, client, _ := newTestService(t)
	client.SetTokenMeta(6, "USDT")
	require.NoError(t, svc.SelectToken(context.Background(), tokenAddr))
	svc.SetMode(engine.ModeCustom)
	svc.SetRows([]engine.Row{{Address: addrA, Amount: "1"}})

	// 第二行地址非法: 整体拒绝, 原有行不变
	result := svc.ImportCSV(addrA+",1.5\nnot-an-address,2", false)
	assert.False(t, result.IsValid)
	assert.Len(t, result.Errors, 1)
	require.Len(t, svc.Rows(), 1)
	assert.Equal(t, "1", svc.Rows()[0].Amount)

	// 全部合法: 整体替换
	result = svc.ImportCSV(addrA+",1.5\n"+addrB+",2", false)
	assert.True(t, result.IsValid)
	require.Len(t, svc.Rows(), 2)
	assert.Equal(t, addrB, svc.Rows()[1].Address)
}

func TestSummary(t *testing.T) {
	svc, client, _ := newTestService(t)
	setupTokenBatch(t, svc, client)
	ctx := context.Background()

	sum, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.RecipientCount)
	assert.Equal(t, "1000000000", sum.Total)
	assert.Equal(t, "1000", sum.TotalDisplay)
	assert.Equal(t, "25000000", sum.Fee)
	assert.Equal(t, "25", sum.FeeDisplay)
	assert.Equal(t, uint32(250), sum.BasisPoints)
	assert.True(t, sum.NeedsApproval)
	assert.False(t, sum.CanSend)
	assert.Equal(t, "low", sum.GasTier)

	_, err = svc.Approve(ctx)
	require.NoError(t, err)

	sum, err = svc.Summary(ctx)
	require.NoError(t, err)
	assert.False(t, sum.NeedsApproval)
	assert.True(t, sum.CanSend)
}

func TestSummaryEmptyBatch(t *testing.T) {
	svc, _, _ := newTestService(t)

	// 未选资产、无收款人: 空批次哨兵, 不是错误
	sum, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.RecipientCount)
	assert.Equal(t, "0", sum.Total)
	assert.False(t, sum.CanSend)
}

func TestSummaryNotSendableWhileConfirming(t *testing.T) {
	svc, client, _ := newTestService(t)
	client.SetFeeBasisPoints(250)
	svc.SelectNative("ETH")
	svc.SetEqualAmount("1")
	svc.SetRows([]engine.Row{{Address: addrA}})

	balance, _ := new(big.Int).SetString("2000000000000000000", 10)
	client.SetNativeBalance(balance)

	// 卡住确认步骤, 让交易停在在途状态
	gate := make(chan struct{})
	client.ConfirmGate = gate

	done := make(chan error, 1)
	go func() {
		_, err := svc.Send(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool {
		return svc.Phase() == PhaseSendConfirming
	}, time.Second, 5*time.Millisecond)

	// 余额充足, 但已有交易在途: 不可再次发送
	sum, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, sum.CanSend)

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, PhaseSucceeded, svc.Phase())
}
