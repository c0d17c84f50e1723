package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"multisender-core/internal/chain"
	"multisender-core/internal/engine"
	"multisender-core/internal/model"
	"multisender-core/internal/service/mq"
	"multisender-core/pkg/errno"
	"multisender-core/pkg/logger"
	"multisender-core/pkg/monitor"
)

// Phase is the lifecycle of the current batch. Only Approve and Send move it
// forward; editing inputs while ReadyToSend keeps the phase (readiness is
// re-derived on demand), and any confirmed failure is recoverable.
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseApproving          Phase = "approving"
	PhaseApprovalConfirming Phase = "approval_confirming"
	PhaseReadyToSend        Phase = "ready_to_send"
	PhaseSending            Phase = "sending"
	PhaseSendConfirming     Phase = "send_confirming"
	PhaseSucceeded          Phase = "succeeded"
	PhaseFailed             Phase = "failed"
)

// 发送完成事件的 MQ 主题
const TopicDistributionCompleted = "multisender_events_distribution"

// DistributionEvent 对应 MQ 中的 Payload
type DistributionEvent struct {
	TxHash         string `json:"tx_hash"`
	Asset          string `json:"asset"`
	IsNative       bool   `json:"is_native"`
	Mode           string `json:"mode"`
	RecipientCount int    `json:"recipient_count"`
	Total          string `json:"total"` // 最小单位
	Fee            string `json:"fee"`   // 最小单位
	Timestamp      int64  `json:"timestamp"`
}

// Summary is the derived, read-only view over the current inputs.
type Summary struct {
	Phase          Phase         `json:"phase"`
	Asset          *engine.Asset `json:"asset,omitempty"`
	Mode           engine.Mode   `json:"mode"`
	RecipientCount int           `json:"recipient_count"`
	Total          string        `json:"total"`         // 最小单位
	TotalDisplay   string        `json:"total_display"` // 展示单位
	Fee            string        `json:"fee"`
	FeeDisplay     string        `json:"fee_display"`
	BasisPoints    uint32        `json:"basis_points"`
	GasEstimate    uint64        `json:"gas_estimate,omitempty"`
	GasTier        string        `json:"gas_tier,omitempty"`
	Balance        string        `json:"balance,omitempty"`
	Allowance      string        `json:"allowance,omitempty"` // 仅代币
	NeedsApproval  bool          `json:"needs_approval"`
	CanSend        bool          `json:"can_send"`
	LastError      string        `json:"last_error,omitempty"`
}

// sampleRecipientLimit 历史条目里保留的展示用地址数
const sampleRecipientLimit = 3

// DistributionService orchestrates one batch at a time: holds the editable
// inputs, derives the resolved batch and fee on demand, and drives the
// approve/send flows against the chain client. All mutation goes through the
// mutex; the long confirmation waits run outside it, guarded by inFlight.
type DistributionService struct {
	client    chain.Client
	history   *HistoryService
	producer  mq.Producer
	gasLevels engine.GasTierThresholds

	mu          sync.Mutex
	asset       *engine.Asset
	mode        engine.Mode
	rows        []engine.Row
	equalAmount string
	phase       Phase
	lastError   string
	inFlight    bool
}

func NewDistributionService(client chain.Client, history *HistoryService, producer mq.Producer, gasLevels engine.GasTierThresholds) *DistributionService {
	if producer == nil {
		producer = mq.NopProducer{}
	}
	return &DistributionService{
		client:    client,
		history:   history,
		producer:  producer,
		gasLevels: gasLevels,
		mode:      engine.ModeEqual,
		rows:      []engine.Row{{}},
		phase:     PhaseIdle,
	}
}

// SelectNative selects the chain's native coin as the asset to distribute.
func (s *DistributionService) SelectNative(symbol string) {
	if symbol == "" {
		symbol = "ETH"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asset = &engine.Asset{Kind: engine.AssetNative, Decimals: 18, Symbol: symbol}
	s.phase = PhaseIdle
	s.lastError = ""
}

// SelectToken selects an ERC20 token, fetching its decimals and symbol from
// the chain. Re-selection always rebuilds the descriptor because decimals
// drive every amount interpretation downstream.
func (s *DistributionService) SelectToken(ctx context.Context, address string) error {
	if !engine.IsHexAddress(address) {
		return errno.ErrInvalidAddress
	}
	token := common.HexToAddress(address)

	decimals, symbol, err := s.client.TokenMeta(ctx, token)
	if err != nil {
		return fmt.Errorf("读取代币元数据失败: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.asset = &engine.Asset{Kind: engine.AssetToken, Token: token, Decimals: decimals, Symbol: symbol}
	s.phase = PhaseIdle
	s.lastError = ""
	return nil
}

func (s *DistributionService) SetMode(mode engine.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode == engine.ModeEqual || mode == engine.ModeCustom {
		s.mode = mode
	}
}

func (s *DistributionService) SetEqualAmount(amount string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.equalAmount = strings.TrimSpace(amount)
}

// SetRows replaces the recipient table wholesale.
func (s *DistributionService) SetRows(rows []engine.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(rows) == 0 {
		rows = []engine.Row{{}}
	}
	s.rows = rows
}

func (s *DistributionService) Rows() []engine.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]engine.Row, len(s.rows))
	copy(out, s.rows)
	return out
}

// ImportCSV validates the pasted text and, only if every line passes,
// replaces the recipient table. A rejected import leaves current rows
// untouched.
func (s *DistributionService) ImportCSV(text string, hasHeaders bool) engine.ImportResult {
	s.mu.Lock()
	amountsRequired := s.mode == engine.ModeCustom
	var decimals uint8 = 18
	if s.asset != nil {
		decimals = s.asset.Decimals
	}
	s.mu.Unlock()

	result := engine.ValidateImport(text, hasHeaders, amountsRequired, decimals)
	if !result.IsValid {
		if m := monitor.Business; m != nil {
			m.ImportRejectedTotal.Inc()
		}
		return result
	}

	s.mu.Lock()
	s.rows = result.Accepted
	s.mu.Unlock()
	return result
}

// Resolve derives the current send payload. Empty means "not ready yet".
func (s *DistributionService) Resolve() engine.ResolvedBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked()
}

func (s *DistributionService) resolveLocked() engine.ResolvedBatch {
	if s.asset == nil {
		return engine.ResolvedBatch{Total: new(big.Int)}
	}
	return engine.ResolveBatch(s.mode, s.rows, s.equalAmount, s.asset.Decimals)
}

func (s *DistributionService) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Summary computes the full derived view: resolution, fee, gas tier,
// balance/allowance checks and the resulting readiness flags.
func (s *DistributionService) Summary(ctx context.Context) (*Summary, error) {
	s.mu.Lock()
	asset := s.asset
	mode := s.mode
	phase := s.phase
	lastError := s.lastError
	inFlight := s.inFlight
	batch := s.resolveLocked()
	s.mu.Unlock()

	out := &Summary{
		Phase:     phase,
		Asset:     asset,
		Mode:      mode,
		Total:     batch.Total.String(),
		Fee:       "0",
		LastError: lastError,
	}
	if asset == nil || batch.IsEmpty() {
		return out, nil
	}

	out.RecipientCount = len(batch.Recipients)
	out.TotalDisplay = engine.ToDecimalString(batch.Total, asset.Decimals)

	bps, err := s.client.FeeBasisPoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取费率失败: %w", err)
	}
	quote := engine.EstimateFee(batch.Total, bps)
	out.Fee = quote.Fee.String()
	out.FeeDisplay = engine.ToDecimalString(quote.Fee, asset.Decimals)
	out.BasisPoints = quote.BasisPoints

	required := new(big.Int).Add(batch.Total, quote.Fee)

	balance, err := s.client.BalanceOf(ctx, s.client.Sender(), *asset)
	if err != nil {
		return nil, fmt.Errorf("读取余额失败: %w", err)
	}
	out.Balance = balance.String()

	if !asset.IsNative() {
		allowance, err := s.client.Allowance(ctx, s.client.Sender(), asset.Token, s.client.Multisender())
		if err != nil {
			return nil, fmt.Errorf("读取授权额度失败: %w", err)
		}
		out.Allowance = allowance.String()
		out.NeedsApproval = allowance.Cmp(required) < 0
	}

	// 已有交易在途时不可再发, 避免确认期间重复提交
	out.CanSend = !inFlight && balance.Cmp(required) >= 0 && !out.NeedsApproval &&
		s.client.Multisender() != (common.Address{})

	// Gas 估算失败不阻塞摘要，只是没有档位可显示
	req := chain.BuildSendRequest(*asset, mode, batch, quote.Fee)
	if gas, err := s.client.EstimateGas(ctx, req); err == nil {
		out.GasEstimate = gas
		out.GasTier = engine.GasTier(gas, s.gasLevels)
	}

	return out, nil
}

// NeedsApproval reports whether the current batch requires an ERC20 approval
// before it can be sent. Always false for the native asset.
func (s *DistributionService) NeedsApproval(ctx context.Context) (bool, error) {
	s.mu.Lock()
	asset := s.asset
	batch := s.resolveLocked()
	s.mu.Unlock()

	if asset == nil || asset.IsNative() || batch.IsEmpty() {
		return false, nil
	}

	bps, err := s.client.FeeBasisPoints(ctx)
	if err != nil {
		return false, err
	}
	required := new(big.Int).Add(batch.Total, engine.EstimateFee(batch.Total, bps).Fee)

	allowance, err := s.client.Allowance(ctx, s.client.Sender(), asset.Token, s.client.Multisender())
	if err != nil {
		return false, err
	}
	return allowance.Cmp(required) < 0, nil
}

// Approve submits an ERC20 approval for total+fee and waits for its
// confirmation. The resulting allowance is re-read from the chain rather than
// assumed, so a partial approval leaves NeedsApproval true.
func (s *DistributionService) Approve(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return "", errno.ErrOperationInFlight
	}
	asset := s.asset
	batch := s.resolveLocked()
	if asset == nil {
		s.mu.Unlock()
		return "", errno.ErrNoAssetSelected
	}
	if asset.IsNative() {
		s.mu.Unlock()
		return "", errno.ErrApprovalNotRequired
	}
	if batch.IsEmpty() {
		s.mu.Unlock()
		return "", errno.ErrBatchNotSendable
	}
	s.inFlight = true
	s.phase = PhaseApproving
	s.lastError = ""
	s.mu.Unlock()

	hash, err := s.approve(ctx, *asset, batch)
	if err != nil {
		// 额度已足够不算失败, 只是无事可做
		if !errors.Is(err, errno.ErrApprovalNotRequired) {
			if m := monitor.Business; m != nil {
				m.ApprovalTotal.WithLabelValues("failed").Inc()
			}
		}
		return "", err
	}
	if m := monitor.Business; m != nil {
		m.ApprovalTotal.WithLabelValues("success").Inc()
	}
	return hash, nil
}

func (s *DistributionService) approve(ctx context.Context, asset engine.Asset, batch engine.ResolvedBatch) (string, error) {
	defer s.clearInFlight()

	bps, err := s.client.FeeBasisPoints(ctx)
	if err != nil {
		s.fail(PhaseIdle, err)
		return "", err
	}
	required := new(big.Int).Add(batch.Total, engine.EstimateFee(batch.Total, bps).Fee)

	allowance, err := s.client.Allowance(ctx, s.client.Sender(), asset.Token, s.client.Multisender())
	if err != nil {
		s.fail(PhaseIdle, err)
		return "", err
	}
	if allowance.Cmp(required) >= 0 {
		s.setPhase(PhaseReadyToSend)
		return "", errno.ErrApprovalNotRequired
	}

	// 1. 提交授权交易
	tx, err := s.client.Approve(ctx, asset.Token, s.client.Multisender(), required)
	if err != nil {
		logger.Error("approval rejected", zap.Error(err))
		s.fail(PhaseFailed, err)
		return "", err
	}

	// 2. 等待确认
	s.setPhase(PhaseApprovalConfirming)
	if err := s.client.WaitConfirmed(ctx, tx); err != nil {
		logger.Error("approval confirmation failed", zap.String("tx", tx.Hash.Hex()), zap.Error(err))
		s.fail(PhaseFailed, err)
		return tx.Hash.Hex(), err
	}

	// 3. 确认后重新读取链上额度，而不是直接认为已足额
	allowance, err = s.client.Allowance(ctx, s.client.Sender(), asset.Token, s.client.Multisender())
	if err != nil {
		s.fail(PhaseFailed, err)
		return tx.Hash.Hex(), err
	}
	if allowance.Cmp(required) >= 0 {
		s.setPhase(PhaseReadyToSend)
	} else {
		s.setPhase(PhaseIdle)
	}

	logger.Info("approval confirmed",
		zap.String("tx", tx.Hash.Hex()),
		zap.String("token", asset.Token.Hex()),
		zap.String("allowance", allowance.String()))
	return tx.Hash.Hex(), nil
}

// Send submits the batch distribution and waits for confirmation. A rejected
// or reverted send returns the batch to ReadyToSend with the inputs intact;
// success records history and resets the recipient table.
func (s *DistributionService) Send(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return "", errno.ErrOperationInFlight
	}
	asset := s.asset
	mode := s.mode
	batch := s.resolveLocked()
	if asset == nil {
		s.mu.Unlock()
		return "", errno.ErrNoAssetSelected
	}
	if batch.IsEmpty() || s.client.Multisender() == (common.Address{}) {
		s.mu.Unlock()
		return "", errno.ErrBatchNotSendable
	}
	s.inFlight = true
	s.phase = PhaseSending
	s.lastError = ""
	s.mu.Unlock()

	return s.send(ctx, *asset, mode, batch)
}

func (s *DistributionService) send(ctx context.Context, asset engine.Asset, mode engine.Mode, batch engine.ResolvedBatch) (string, error) {
	defer s.clearInFlight()

	assetKind := string(asset.Kind)

	// 1. 费用与前置检查
	bps, err := s.client.FeeBasisPoints(ctx)
	if err != nil {
		s.fail(PhaseIdle, err)
		return "", err
	}
	fee := engine.EstimateFee(batch.Total, bps).Fee
	required := new(big.Int).Add(batch.Total, fee)

	balance, err := s.client.BalanceOf(ctx, s.client.Sender(), asset)
	if err != nil {
		s.fail(PhaseIdle, err)
		return "", err
	}
	if balance.Cmp(required) < 0 {
		s.fail(PhaseIdle, errno.ErrInsufficientBalance)
		return "", errno.ErrInsufficientBalance
	}

	if !asset.IsNative() {
		allowance, err := s.client.Allowance(ctx, s.client.Sender(), asset.Token, s.client.Multisender())
		if err != nil {
			s.fail(PhaseIdle, err)
			return "", err
		}
		if allowance.Cmp(required) < 0 {
			s.fail(PhaseIdle, errno.ErrInsufficientAllowance)
			return "", errno.ErrInsufficientAllowance
		}
	}

	// 2. 提交批量转账
	req := chain.BuildSendRequest(asset, mode, batch, fee)
	tx, err := s.client.SendBatch(ctx, req)
	if err != nil {
		logger.Error("batch send rejected", zap.Error(err))
		// 拒签/提交失败: 批次原样保留，回到可发送状态
		s.fail(PhaseReadyToSend, err)
		if m := monitor.Business; m != nil {
			m.DistributionFailedTotal.WithLabelValues(assetKind, "submit").Inc()
		}
		return "", err
	}

	// 3. 等待确认
	s.setPhase(PhaseSendConfirming)
	if err := s.client.WaitConfirmed(ctx, tx); err != nil {
		logger.Error("batch send confirmation failed", zap.String("tx", tx.Hash.Hex()), zap.Error(err))
		s.fail(PhaseReadyToSend, err)
		if m := monitor.Business; m != nil {
			m.DistributionFailedTotal.WithLabelValues(assetKind, "confirm").Inc()
		}
		return tx.Hash.Hex(), err
	}

	// 4. 成功: 记录历史、发事件、清空输入
	s.complete(ctx, asset, mode, batch, fee, tx.Hash.Hex())
	return tx.Hash.Hex(), nil
}

func (s *DistributionService) complete(ctx context.Context, asset engine.Asset, mode engine.Mode, batch engine.ResolvedBatch, fee *big.Int, txHash string) {
	// 历史记录存展示单位的十进制数, 不存最小单位
	entry := &model.HistoryEntry{
		ID:             txHash,
		Timestamp:      time.Now().UnixMilli(),
		AssetLabel:     asset.Label(),
		IsNative:       asset.IsNative(),
		Mode:           string(mode),
		RecipientCount: len(batch.Recipients),
		TotalAmount:    decimal.NewFromBigInt(batch.Total, -int32(asset.Decimals)),
		Fee:            decimal.NewFromBigInt(fee, -int32(asset.Decimals)),
		ReferenceID:    txHash,
	}
	samples := make([]string, 0, sampleRecipientLimit)
	for i, r := range batch.Recipients {
		if i == sampleRecipientLimit {
			break
		}
		samples = append(samples, r.Hex())
	}
	entry.SetSamples(samples, sampleRecipientLimit)

	if s.history != nil {
		if err := s.history.Record(ctx, entry); err != nil {
			// 链上已成功，历史落库失败只记日志
			logger.Error("history record failed", zap.String("tx", txHash), zap.Error(err))
		}
	}

	event := DistributionEvent{
		TxHash:         txHash,
		Asset:          asset.Label(),
		IsNative:       asset.IsNative(),
		Mode:           string(mode),
		RecipientCount: len(batch.Recipients),
		Total:          batch.Total.String(),
		Fee:            fee.String(),
		Timestamp:      entry.Timestamp,
	}
	if payload, err := json.Marshal(event); err == nil {
		if err := s.producer.Publish(ctx, TopicDistributionCompleted, txHash, payload); err != nil {
			logger.Warn("distribution event publish failed", zap.Error(err))
		}
	}

	if m := monitor.Business; m != nil {
		m.DistributionSuccessTotal.WithLabelValues(string(asset.Kind), string(mode)).Inc()
		m.RecipientsPerSend.Observe(float64(len(batch.Recipients)))
		if v, err := decimal.NewFromString(engine.ToDecimalString(batch.Total, asset.Decimals)); err == nil {
			f, _ := v.Float64()
			m.DistributionAmountTotal.WithLabelValues(asset.Label()).Add(f)
		}
	}

	s.mu.Lock()
	s.phase = PhaseSucceeded
	s.lastError = ""
	s.rows = []engine.Row{{}}
	s.equalAmount = ""
	s.mu.Unlock()

	logger.Info("distribution confirmed",
		zap.String("tx", txHash),
		zap.String("asset", asset.Label()),
		zap.Int("recipients", len(batch.Recipients)),
		zap.String("total", batch.Total.String()))
}

func (s *DistributionService) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

func (s *DistributionService) fail(p Phase, err error) {
	s.mu.Lock()
	s.phase = p
	s.lastError = err.Error()
	s.mu.Unlock()
}

func (s *DistributionService) clearInFlight() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}
