package chain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/osse101/cosmos-agent/internal/domain"
	"github.com/osse101/cosmos-agent/internal/logger"
)

const landNFTABIJSON = `[
	{"type":"function","name":"ownerOf","stateMutability":"view",
	 "inputs":[{"name":"tokenId","type":"uint256"}],
	 "outputs":[{"name":"","type":"address"}]}
]`

// EthConfig configures an EthClient
type EthConfig struct {
	RPCURL         string
	ChainID        int64 // 0 asks the node
	LandNFTAddress common.Address
	Selectors      SelectorTable
	PollInterval   time.Duration
}

// EthClient implements Client over a JSON-RPC node
type EthClient struct {
	rpc          *ethclient.Client
	chainID      *big.Int
	landNFT      common.Address
	nftABI       abi.ABI
	selectors    SelectorTable
	pollInterval time.Duration
}

// DialEthClient connects to the node and resolves the chain id
func DialEthClient(ctx context.Context, cfg EthConfig) (*EthClient, error) {
	rpcClient, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, &domain.TransportError{Op: "dial", Err: err}
	}

	nftABI, err := abi.JSON(strings.NewReader(landNFTABIJSON))
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("failed to parse land NFT ABI: %w", err)
	}

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID == 0 {
		chainID, err = rpcClient.ChainID(ctx)
		if err != nil {
			rpcClient.Close()
			return nil, &domain.TransportError{Op: "chain id", Err: err}
		}
	}

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = DefaultReceiptPollInterval
	}
	selectors := cfg.Selectors
	if selectors == nil {
		selectors = SelectorTable{}
	}

	return &EthClient{
		rpc:          rpcClient,
		chainID:      chainID,
		landNFT:      cfg.LandNFTAddress,
		nftABI:       nftABI,
		selectors:    selectors,
		pollInterval: poll,
	}, nil
}

// Close releases the RPC connection
func (c *EthClient) Close() {
	c.rpc.Close()
}

// ChainID returns the chain id transactions are signed for
func (c *EthClient) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// ErrorSelectorTable returns the selector table built from the loaded ABIs
func (c *EthClient) ErrorSelectorTable() SelectorTable {
	return c.selectors
}

// EstimateGas simulates call against the pending state
func (c *EthClient) EstimateGas(ctx context.Context, call Call) (uint64, error) {
	return c.rpc.EstimateGas(ctx, toCallMsg(call))
}

// BuildTransaction fills nonce, gas and EIP-1559 fees for call
func (c *EthClient) BuildTransaction(ctx context.Context, call Call, opts TxOptions) (*types.Transaction, error) {
	var nonce uint64
	if opts.Nonce != nil {
		nonce = *opts.Nonce
	} else {
		n, err := c.rpc.PendingNonceAt(ctx, call.From)
		if err != nil {
			return nil, fmt.Errorf("failed to get nonce: %w", err)
		}
		nonce = n
	}

	gas := opts.GasLimit
	if gas == 0 {
		estimated, err := c.EstimateGas(ctx, call)
		if err != nil {
			return nil, err
		}
		multiplier := opts.GasMultiplier
		if multiplier <= 0 {
			multiplier = DefaultGasMultiplier
		}
		gas = uint64(math.Ceil(float64(estimated) * multiplier))
	}

	tip := opts.GasTipCap
	if tip == nil {
		suggested, err := c.rpc.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get gas tip: %w", err)
		}
		tip = suggested
	}

	feeCap := opts.GasFeeCap
	if feeCap == nil {
		head, err := c.rpc.HeaderByNumber(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to get latest header: %w", err)
		}
		baseFee := head.BaseFee
		if baseFee == nil {
			baseFee = new(big.Int)
		}
		feeCap = new(big.Int).Add(tip, new(big.Int).Mul(baseFee, big.NewInt(2)))
	}

	value := call.Value
	if value == nil {
		value = new(big.Int)
	}
	to := call.To

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      call.Data,
	}), nil
}

// SignAndSend signs tx with cred and broadcasts it
func (c *EthClient) SignAndSend(ctx context.Context, tx *types.Transaction, cred *Credential) (common.Hash, error) {
	signed, err := cred.Sign(tx, c.chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := c.rpc.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	logger.FromContext(ctx).Debug(LogMsgTxSent, "tx", signed.Hash().Hex(), "nonce", signed.Nonce(), "gas", signed.Gas())
	return signed.Hash(), nil
}

// WaitForReceipt polls until the transaction is mined or timeout elapses.
// A timeout returns domain.ErrConfirmationTimeout.
func (c *EthClient) WaitForReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (*Receipt, error) {
	if timeout <= 0 {
		timeout = DefaultConfirmationTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log := logger.FromContext(ctx)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.rpc.TransactionReceipt(waitCtx, hash)
		if err == nil {
			log.Debug(LogMsgReceiptReceived, "tx", hash.Hex(), "status", receipt.Status, "block", receipt.BlockNumber)
			return &Receipt{
				TxHash:      hash,
				Status:      receipt.Status,
				BlockNumber: receipt.BlockNumber.Uint64(),
				GasUsed:     receipt.GasUsed,
				Confirmed:   true,
			}, nil
		}
		if !errors.Is(err, ethereum.NotFound) && waitCtx.Err() == nil {
			return nil, err
		}
		log.Debug(LogMsgReceiptPending, "tx", hash.Hex())

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: tx %s not mined after %s", domain.ErrConfirmationTimeout, hash.Hex(), timeout)
		case <-ticker.C:
		}
	}
}

// LatestBlockTime returns the timestamp of the latest block
func (c *EthClient) LatestBlockTime(ctx context.Context) (time.Time, error) {
	head, err := c.rpc.HeaderByNumber(ctx, nil)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(head.Time), 0).UTC(), nil
}

// LandOwner returns the owner of the land NFT. Unminted tokens revert.
func (c *EthClient) LandOwner(ctx context.Context, landID domain.LandID) (common.Address, error) {
	data, err := c.nftABI.Pack(MethodOwnerOf, big.NewInt(int64(landID)))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to encode %s: %w", MethodOwnerOf, err)
	}

	to := c.landNFT
	out, err := c.rpc.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return common.Address{}, err
	}

	values, err := c.nftABI.Unpack(MethodOwnerOf, out)
	if err != nil || len(values) != 1 {
		return common.Address{}, fmt.Errorf("failed to decode %s for land %d: %v", MethodOwnerOf, landID, err)
	}
	owner, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected %s result type %T", MethodOwnerOf, values[0])
	}
	return owner, nil
}

func toCallMsg(call Call) ethereum.CallMsg {
	to := call.To
	return ethereum.CallMsg{
		From:  call.From,
		To:    &to,
		Data:  call.Data,
		Value: call.Value,
	}
}

var _ Client = (*EthClient)(nil)
