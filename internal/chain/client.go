package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/osse101/cosmos-agent/internal/domain"
)

// Call is a contract call before it becomes a transaction
type Call struct {
	From  common.Address
	To    common.Address
	Data  []byte
	Value *big.Int
}

// TxOptions overrides transaction fields. Zero values are filled from the node.
type TxOptions struct {
	Nonce         *uint64
	GasLimit      uint64
	GasTipCap     *big.Int
	GasFeeCap     *big.Int
	GasMultiplier float64
}

// Receipt is the subset of a transaction receipt the agent reports
type Receipt struct {
	TxHash      common.Hash `json:"tx_hash"`
	Status      uint64      `json:"status"`
	BlockNumber uint64      `json:"block_number"`
	GasUsed     uint64      `json:"gas_used"`
	Confirmed   bool        `json:"confirmed"`
}

// Succeeded reports whether the transaction was mined without reverting. A
// receipt returned without waiting for confirmation only carries the hash.
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Confirmed && r.Status == types.ReceiptStatusSuccessful
}

// Client is everything the agent needs from a chain node
type Client interface {
	EstimateGas(ctx context.Context, call Call) (uint64, error)
	BuildTransaction(ctx context.Context, call Call, opts TxOptions) (*types.Transaction, error)
	SignAndSend(ctx context.Context, tx *types.Transaction, cred *Credential) (common.Hash, error)
	WaitForReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (*Receipt, error)
	ErrorSelectorTable() SelectorTable
	LatestBlockTime(ctx context.Context) (time.Time, error)
	LandOwner(ctx context.Context, landID domain.LandID) (common.Address, error)
}

// Credential is the signing identity of a player. The key never leaves it.
type Credential struct {
	Address common.Address
	key     *ecdsa.PrivateKey
}

// NewCredential parses a hex private key, with or without 0x prefix
func NewCredential(hexKey string) (*Credential, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid private key: %v", domain.ErrInvalidInput, err)
	}
	return NewCredentialFromKey(key), nil
}

// NewCredentialFromKey wraps an existing key
func NewCredentialFromKey(key *ecdsa.PrivateKey) *Credential {
	return &Credential{
		Address: crypto.PubkeyToAddress(key.PublicKey),
		key:     key,
	}
}

// Sign signs tx for chainID
func (c *Credential) Sign(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), c.key)
}

// String never reveals the key
func (c *Credential) String() string {
	return c.Address.Hex()
}
