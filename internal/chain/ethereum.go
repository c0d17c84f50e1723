package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"multisender-core/internal/engine"
	"multisender-core/pkg/cache"
	"multisender-core/pkg/errno"
	"multisender-core/pkg/logger"
)

// 批量转账合约的最小 ABI (与部署版本保持一致)
const multisenderABI = `[
	{"type":"function","name":"sendToMany","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"recipients","type":"address[]"},{"name":"amounts","type":"uint256[]"}],"outputs":[]},
	{"type":"function","name":"sendEqual","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"recipients","type":"address[]"},{"name":"amountPerRecipient","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"sendNativeToMany","stateMutability":"payable","inputs":[{"name":"recipients","type":"address[]"},{"name":"amounts","type":"uint256[]"}],"outputs":[]},
	{"type":"function","name":"sendNativeEqual","stateMutability":"payable","inputs":[{"name":"recipients","type":"address[]"},{"name":"amountPerRecipient","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"feePercentage","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"estimateFee","stateMutability":"view","inputs":[{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const erc20ABI = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]}
]`

const receiptPollInterval = 2 * time.Second

// tokenMeta 缓存条目
type tokenMeta struct {
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
}

// EthClient is the go-ethereum backed Client.
type EthClient struct {
	client   *ethclient.Client
	chainID  *big.Int
	key      *ecdsa.PrivateKey
	sender   common.Address
	contract common.Address

	msABI  abi.ABI
	ercABI abi.ABI

	cache cache.Cache
}

// NewEthClient dials rpcURL and prepares the sender account from a hex
// private key. metaCache is used for token decimals/symbol reads, which are
// immutable per token.
func NewEthClient(rpcURL, senderKeyHex, multisender string, metaCache cache.Cache) (*EthClient, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("无法连接 ETH RPC (%s): %w", rpcURL, err)
	}

	chainID, err := client.ChainID(context.Background())
	if err != nil {
		// 节点暂时不可用时先用主网默认值，不阻塞启动
		logger.Warn("读取 ChainID 失败，回退到 1", zap.Error(err))
		chainID = big.NewInt(1)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(senderKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("解析 sender 私钥失败: %w", err)
	}

	msParsed, err := abi.JSON(strings.NewReader(multisenderABI))
	if err != nil {
		return nil, err
	}
	ercParsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, err
	}

	return &EthClient{
		client:   client,
		chainID:  chainID,
		key:      key,
		sender:   crypto.PubkeyToAddress(key.PublicKey),
		contract: common.HexToAddress(multisender),
		msABI:    msParsed,
		ercABI:   ercParsed,
		cache:    metaCache,
	}, nil
}

func (c *EthClient) Sender() common.Address      { return c.sender }
func (c *EthClient) Multisender() common.Address { return c.contract }

func (c *EthClient) BalanceOf(ctx context.Context, owner common.Address, asset engine.Asset) (*big.Int, error) {
	if asset.IsNative() {
		return c.client.BalanceAt(ctx, owner, nil)
	}

	data, err := c.ercABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, asset.Token, data)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(out), nil
}

func (c *EthClient) Allowance(ctx context.Context, owner, token, spender common.Address) (*big.Int, error) {
	data, err := c.ercABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, token, data)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(out), nil
}

func (c *EthClient) TokenMeta(ctx context.Context, token common.Address) (uint8, string, error) {
	cacheKey := "token_meta:" + strings.ToLower(token.Hex())
	if c.cache != nil {
		var meta tokenMeta
		if err := c.cache.Get(ctx, cacheKey, &meta); err == nil {
			return meta.Decimals, meta.Symbol, nil
		}
	}

	data, err := c.ercABI.Pack("decimals")
	if err != nil {
		return 0, "", err
	}
	out, err := c.call(ctx, token, data)
	if err != nil {
		return 0, "", err
	}
	decimals := uint8(18)
	if len(out) > 0 {
		decimals = out[len(out)-1]
	}

	symbol := ""
	if data, err = c.ercABI.Pack("symbol"); err == nil {
		if out, err := c.call(ctx, token, data); err == nil {
			var decoded []interface{}
			if decoded, err = c.ercABI.Unpack("symbol", out); err == nil && len(decoded) == 1 {
				symbol, _ = decoded[0].(string)
			}
		}
	}

	if c.cache != nil {
		// decimals/symbol 基本不可变，缓存一小时足够安全
		_ = c.cache.Set(ctx, cacheKey, tokenMeta{Decimals: decimals, Symbol: symbol}, time.Hour)
	}
	return decimals, symbol, nil
}

func (c *EthClient) FeeBasisPoints(ctx context.Context) (uint32, error) {
	data, err := c.msABI.Pack("feePercentage")
	if err != nil {
		return 0, err
	}
	out, err := c.call(ctx, c.contract, data)
	if err != nil {
		return 0, err
	}
	return uint32(new(big.Int).SetBytes(out).Uint64()), nil
}

func (c *EthClient) EstimateGas(ctx context.Context, req SendRequest) (uint64, error) {
	data, err := c.packSend(req)
	if err != nil {
		return 0, err
	}
	msg := ethereum.CallMsg{
		From:  c.sender,
		To:    &c.contract,
		Data:  data,
		Value: req.Value,
	}
	return c.client.EstimateGas(ctx, msg)
}

func (c *EthClient) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (TxHandle, error) {
	data, err := c.ercABI.Pack("approve", spender, amount)
	if err != nil {
		return TxHandle{}, err
	}
	return c.submit(ctx, token, nil, data)
}

func (c *EthClient) SendBatch(ctx context.Context, req SendRequest) (TxHandle, error) {
	data, err := c.packSend(req)
	if err != nil {
		return TxHandle{}, err
	}
	return c.submit(ctx, c.contract, req.Value, data)
}

// WaitConfirmed polls for the receipt until mined or ctx expires. A mined
// receipt with failed status is an on-chain revert.
func (c *EthClient) WaitConfirmed(ctx context.Context, tx TxHandle) error {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.client.TransactionReceipt(ctx, tx.Hash)
		if err == nil && receipt != nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return errno.ErrConfirmationFailed
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *EthClient) packSend(req SendRequest) ([]byte, error) {
	switch req.Shape {
	case ShapeTokenCustom:
		return c.msABI.Pack("sendToMany", req.Token, req.Recipients, req.Amounts)
	case ShapeTokenEqual:
		return c.msABI.Pack("sendEqual", req.Token, req.Recipients, req.AmountPer)
	case ShapeNativeCustom:
		return c.msABI.Pack("sendNativeToMany", req.Recipients, req.Amounts)
	case ShapeNativeEqual:
		return c.msABI.Pack("sendNativeEqual", req.Recipients, req.AmountPer)
	default:
		return nil, fmt.Errorf("unknown call shape %q", req.Shape)
	}
}

func (c *EthClient) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return c.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// submit 构造、签名并广播一笔交易
func (c *EthClient) submit(ctx context.Context, to common.Address, value *big.Int, data []byte) (TxHandle, error) {
	nonce, err := c.client.PendingNonceAt(ctx, c.sender)
	if err != nil {
		return TxHandle{}, err
	}
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return TxHandle{}, err
	}
	gasLimit, err := c.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.sender,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return TxHandle{}, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return TxHandle{}, err
	}
	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return TxHandle{}, err
	}

	logger.Info("交易已广播", zap.String("hash", signed.Hash().Hex()), zap.Uint64("nonce", nonce))
	return TxHandle{Hash: signed.Hash()}, nil
}
