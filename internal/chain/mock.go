package chain

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"multisender-core/internal/engine"
	"multisender-core/pkg/errno"
	"multisender-core/pkg/safe_random"
)

type allowanceKey struct {
	Owner, Token, Spender common.Address
}

type pendingApproval struct {
	Key    allowanceKey
	Amount *big.Int
}

// MockClient is an in-memory Client for tests and for simulation mode when
// no RPC node is reachable. Confirmation is synchronous: WaitConfirmed
// applies the pending state change, so an approval only becomes visible to
// Allowance after its confirmation — same causal order as the real chain.
type MockClient struct {
	mu sync.Mutex

	sender   common.Address
	contract common.Address

	nativeBalance *big.Int
	tokenBalance  map[common.Address]*big.Int
	allowance     map[allowanceKey]*big.Int

	decimals uint8
	symbol   string
	bps      uint32
	gas      uint64

	// failure switches
	RejectApprove      bool
	FailApproveConfirm bool
	RejectSend         bool
	FailSendConfirm    bool

	// ConfirmGate, when set before the first submission, makes WaitConfirmed
	// block until the channel is closed. Set it to hold a confirmation open.
	ConfirmGate chan struct{}

	pendingApprovals map[common.Hash]pendingApproval
	pendingSends     map[common.Hash]SendRequest

	// SentBatches records every confirmed batch send.
	SentBatches []SendRequest
}

func NewMockClient(sender, contract common.Address) *MockClient {
	return &MockClient{
		sender:           sender,
		contract:         contract,
		nativeBalance:    new(big.Int),
		tokenBalance:     make(map[common.Address]*big.Int),
		allowance:        make(map[allowanceKey]*big.Int),
		decimals:         18,
		symbol:           "MOCK",
		gas:              21000,
		pendingApprovals: make(map[common.Hash]pendingApproval),
		pendingSends:     make(map[common.Hash]SendRequest),
	}
}

func (m *MockClient) SetNativeBalance(v *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nativeBalance = new(big.Int).Set(v)
}

func (m *MockClient) SetTokenBalance(token common.Address, v *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenBalance[token] = new(big.Int).Set(v)
}

func (m *MockClient) SetAllowance(owner, token, spender common.Address, v *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowance[allowanceKey{owner, token, spender}] = new(big.Int).Set(v)
}

func (m *MockClient) SetTokenMeta(decimals uint8, symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decimals = decimals
	m.symbol = symbol
}

func (m *MockClient) SetFeeBasisPoints(bps uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bps = bps
}

func (m *MockClient) SetGasEstimate(gas uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gas = gas
}

func (m *MockClient) Sender() common.Address      { return m.sender }
func (m *MockClient) Multisender() common.Address { return m.contract }

func (m *MockClient) BalanceOf(ctx context.Context, owner common.Address, asset engine.Asset) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if asset.IsNative() {
		return new(big.Int).Set(m.nativeBalance), nil
	}
	if b, ok := m.tokenBalance[asset.Token]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (m *MockClient) Allowance(ctx context.Context, owner, token, spender common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.allowance[allowanceKey{owner, token, spender}]; ok {
		return new(big.Int).Set(a), nil
	}
	return new(big.Int), nil
}

func (m *MockClient) TokenMeta(ctx context.Context, token common.Address) (uint8, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decimals, m.symbol, nil
}

func (m *MockClient) FeeBasisPoints(ctx context.Context) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bps, nil
}

func (m *MockClient) EstimateGas(ctx context.Context, req SendRequest) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gas, nil
}

func (m *MockClient) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (TxHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RejectApprove {
		return TxHandle{}, errno.ErrRequestRejected
	}

	handle := randomHandle()
	m.pendingApprovals[handle.Hash] = pendingApproval{
		Key:    allowanceKey{m.sender, token, spender},
		Amount: new(big.Int).Set(amount),
	}
	return handle, nil
}

func (m *MockClient) SendBatch(ctx context.Context, req SendRequest) (TxHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RejectSend {
		return TxHandle{}, errno.ErrRequestRejected
	}

	handle := randomHandle()
	m.pendingSends[handle.Hash] = req
	return handle, nil
}

func (m *MockClient) WaitConfirmed(ctx context.Context, tx TxHandle) error {
	// 先等闸门再拿锁, 阻塞期间其他读操作不受影响
	if gate := m.ConfirmGate; gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if approval, ok := m.pendingApprovals[tx.Hash]; ok {
		delete(m.pendingApprovals, tx.Hash)
		if m.FailApproveConfirm {
			return errno.ErrConfirmationFailed
		}
		m.allowance[approval.Key] = approval.Amount
		return nil
	}

	if req, ok := m.pendingSends[tx.Hash]; ok {
		delete(m.pendingSends, tx.Hash)
		if m.FailSendConfirm {
			return errno.ErrConfirmationFailed
		}
		m.SentBatches = append(m.SentBatches, req)
		return nil
	}

	return errno.ErrConfirmationFailed
}

func randomHandle() TxHandle {
	s, err := safe_random.GenerateRandomHexString(32)
	if err != nil {
		panic(err)
	}
	return TxHandle{Hash: common.HexToHash("0x" + s)}
}
