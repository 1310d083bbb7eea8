// Package ledger submits calls to the booking ledger: it builds delegated
// call payloads, budgets gas, signs, sends and awaits inclusion.
package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Backend is the RPC surface the client needs. *ethclient.Client satisfies it.
type Backend interface {
	ethereum.ContractCaller
	ethereum.GasEstimator
	ethereum.LogFilterer

	ChainID(ctx context.Context) (*big.Int, error)
	NetworkID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
}

// Signer signs transactions for one account. Key handling stays behind it.
type Signer interface {
	Address() common.Address
	SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Delegation records the registry route of a delegated call.
type Delegation struct {
	Manager  common.Address
	Property common.Address
	Index    uint64
}

// Call is a fully encoded state-changing invocation.
type Call struct {
	// To is the receiving contract; nil deploys Data as creation code.
	To    *common.Address
	Data  []byte
	Value *big.Int
	// Method labels the call in logs and metrics, e.g. "property.editInfo".
	Method string
	// Delegation is set when the call is routed through the registry.
	Delegation *Delegation
}

// Msg returns the call as a message from the given account.
func (c Call) Msg(from common.Address) ethereum.CallMsg {
	return ethereum.CallMsg{
		From:  from,
		To:    c.To,
		Data:  c.Data,
		Value: c.Value,
	}
}

// Target is the address the call acts on: the property for delegated calls,
// the receiving contract otherwise, zero for deploys.
func (c Call) Target() common.Address {
	if c.Delegation != nil {
		return c.Delegation.Property
	}
	if c.To != nil {
		return *c.To
	}
	return common.Address{}
}

// Receipt is the settled result of a submission.
type Receipt struct {
	TxHash          common.Hash
	BlockNumber     uint64
	GasLimit        uint64
	GasUsed         uint64
	ContractAddress common.Address
	Logs            []types.Log
}

func newReceipt(tx *types.Transaction, r *types.Receipt) *Receipt {
	out := &Receipt{
		TxHash:          r.TxHash,
		GasLimit:        tx.Gas(),
		GasUsed:         r.GasUsed,
		ContractAddress: r.ContractAddress,
		Logs:            make([]types.Log, 0, len(r.Logs)),
	}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	for _, l := range r.Logs {
		out.Logs = append(out.Logs, *l)
	}
	return out
}
