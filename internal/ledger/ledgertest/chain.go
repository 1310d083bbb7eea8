// Package ledgertest provides an in-process ledger for tests. It emulates the
// registry, property, category, unit and token contracts at the ABI level,
// mines one block per transaction and serves logs and subscriptions.
package ledgertest

import (
	"context"
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"

	"github.com/windingtree/wt-client/internal/contracts"
)

var (
	// RegistryAddress is where the registry lives on every Chain.
	RegistryAddress = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	// TokenAddress is where the token lives on every Chain.
	TokenAddress = common.HexToAddress("0x000000000000000000000000000000000000b0b0")

	// ErrSubscriptionDropped is reported by subscriptions closed with DropSubscriptions.
	ErrSubscriptionDropped = errors.New("ledgertest: subscription dropped")
)

// EstimateHook rewrites a gas estimate. used is the gas the call consumed.
type EstimateHook func(msg ethereum.CallMsg, used uint64) (uint64, error)

// Chain is a single-node ledger. It is safe for concurrent use.
type Chain struct {
	mu sync.Mutex

	chainID   *big.Int
	networkID *big.Int
	gasPrice  *big.Int
	signer    types.Signer

	head     uint64
	state    *world
	nonces   map[common.Address]uint64
	txs      map[common.Hash]*types.Transaction
	receipts map[common.Hash]*types.Receipt
	held     map[common.Hash]*types.Receipt
	logs     []types.Log
	code     map[contracts.Kind][]byte

	holdReceipts bool
	estimateHook EstimateHook
	subs         map[*logSub]struct{}
}

// NewChain creates a ledger with a registry and a token deployed.
func NewChain() *Chain {
	chainID := big.NewInt(1337)
	return &Chain{
		chainID:   chainID,
		networkID: big.NewInt(1337),
		gasPrice:  big.NewInt(1_000_000_000),
		signer:    types.LatestSignerForChainID(chainID),
		state:     newWorld(RegistryAddress, TokenAddress),
		nonces:    make(map[common.Address]uint64),
		txs:       make(map[common.Hash]*types.Transaction),
		receipts:  make(map[common.Hash]*types.Receipt),
		held:      make(map[common.Hash]*types.Receipt),
		code: map[contracts.Kind][]byte{
			contracts.Category: []byte("ledgertest:category:"),
			contracts.Unit:     []byte("ledgertest:unit:"),
		},
		subs: make(map[*logSub]struct{}),
	}
}

// Artifact returns creation code the chain recognizes for kind.
func (c *Chain) Artifact(kind contracts.Kind) *contracts.Artifact {
	a, err := contracts.NewArtifact(kind, c.code[kind])
	if err != nil {
		panic(fmt.Sprintf("ledgertest: %v", err))
	}
	return a
}

// SetNetworkID changes the reported network id.
func (c *Chain) SetNetworkID(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.networkID = new(big.Int).SetUint64(id)
}

// SetGasPrice changes the suggested gas price.
func (c *Chain) SetGasPrice(price *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gasPrice = new(big.Int).Set(price)
}

// SetEstimateHook installs a hook applied to every gas estimate.
func (c *Chain) SetEstimateHook(h EstimateHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.estimateHook = h
}

// HoldReceipts makes mined transactions invisible to receipt lookups until
// ReleaseReceipts is called.
func (c *Chain) HoldReceipts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holdReceipts = true
}

// ReleaseReceipts publishes held receipts.
func (c *Chain) ReleaseReceipts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holdReceipts = false
	for h, r := range c.held {
		c.receipts[h] = r
		delete(c.held, h)
	}
}

// Mint credits amount tokens to account.
func (c *Chain) Mint(account common.Address, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.state.token
	t.balances[account] = new(big.Int).Add(c.state.balance(account), amount)
	t.totalSupply = new(big.Int).Add(t.totalSupply, amount)
}

// TokenBalance returns account's token balance.
func (c *Chain) TokenBalance(account common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneBig(c.state.balance(account))
}

// Mine appends n empty blocks.
func (c *Chain) Mine(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head += uint64(n)
}

// TxCount returns the number of transactions mined, including failed ones.
func (c *Chain) TxCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.txs)
}

// Logs returns every log emitted so far.
func (c *Chain) Logs() []types.Log {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.Log(nil), c.logs...)
}

// DropSubscriptions fails every live subscription, as a lost connection would.
func (c *Chain) DropSubscriptions() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for s := range c.subs {
		s.drop()
		delete(c.subs, s)
	}
}

// Subscriptions returns the number of live log subscriptions.
func (c *Chain) Subscriptions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *Chain) ChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneBig(c.chainID), nil
}

func (c *Chain) NetworkID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneBig(c.networkID), nil
}

func (c *Chain) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head, nil
}

func (c *Chain) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneBig(c.gasPrice), nil
}

func (c *Chain) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonces[account], nil
}

func (c *Chain) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kind, ok := c.state.kinds[account]
	if !ok {
		return nil, nil
	}
	return []byte(kind.String()), nil
}

// CallContract runs msg against a copy of the current state.
func (c *Chain) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.To == nil {
		return nil, errors.New("ledgertest: call without recipient")
	}
	f := newFrame(c.state.clone(), c.head, msg.From, msg.Data)
	return f.call(msg.From, *msg.To, msg.Data)
}

// EstimateGas reports the gas msg would use, or the revert it would hit.
func (c *Chain) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f := newFrame(c.state.clone(), c.head+1, msg.From, msg.Data)
	var err error
	if msg.To == nil {
		_, err = f.deploy(msg.From, c.nonces[msg.From], msg.Data, c.code)
	} else {
		_, err = f.call(msg.From, *msg.To, msg.Data)
	}
	if err != nil {
		return 0, err
	}
	if c.estimateHook != nil {
		return c.estimateHook(msg, f.gas)
	}
	return f.gas, nil
}

// SendTransaction mines tx into a new block.
func (c *Chain) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	from, err := types.Sender(c.signer, tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if _, dup := c.txs[tx.Hash()]; dup {
		return errors.New("already known")
	}
	if want := c.nonces[from]; tx.Nonce() != want {
		return fmt.Errorf("invalid nonce: have %d, want %d", tx.Nonce(), want)
	}
	c.nonces[from]++
	c.head++

	next := c.state.clone()
	f := newFrame(next, c.head, from, tx.Data())
	var created common.Address
	if tx.To() == nil {
		created, err = f.deploy(from, tx.Nonce(), tx.Data(), c.code)
	} else {
		_, err = f.call(from, *tx.To(), tx.Data())
	}
	if err == nil && f.gas > tx.Gas() {
		err = revert("out of gas")
	}

	blockHash := blockHash(c.head)
	receipt := &types.Receipt{
		Type:             tx.Type(),
		TxHash:           tx.Hash(),
		BlockHash:        blockHash,
		BlockNumber:      new(big.Int).SetUint64(c.head),
		TransactionIndex: 0,
	}
	if err != nil {
		receipt.Status = types.ReceiptStatusFailed
		receipt.GasUsed = min(f.gas, tx.Gas())
		receipt.Logs = []*types.Log{}
	} else {
		c.state = next
		receipt.Status = types.ReceiptStatusSuccessful
		receipt.GasUsed = f.gas
		receipt.ContractAddress = created
		for i, l := range f.logs {
			l.BlockNumber = c.head
			l.BlockHash = blockHash
			l.TxHash = tx.Hash()
			l.TxIndex = 0
			l.Index = uint(i)
		}
		receipt.Logs = f.logs
	}
	receipt.CumulativeGasUsed = receipt.GasUsed

	c.txs[tx.Hash()] = tx
	if c.holdReceipts {
		c.held[tx.Hash()] = receipt
	} else {
		c.receipts[tx.Hash()] = receipt
	}
	for _, l := range receipt.Logs {
		c.logs = append(c.logs, *l)
		for s := range c.subs {
			if matches(s.query, *l) {
				s.deliver(*l)
			}
		}
	}
	return nil
}

func (c *Chain) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (c *Chain) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, ok := c.txs[hash]
	if !ok {
		return nil, false, ethereum.NotFound
	}
	_, held := c.held[hash]
	return tx, held, nil
}

// FilterLogs returns logs matching q in ledger order.
func (c *Chain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []types.Log
	for _, l := range c.logs {
		if matches(q, l) {
			out = append(out, l)
		}
	}
	return out, nil
}

// SubscribeFilterLogs delivers logs matching q that are mined after the call.
func (c *Chain) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	s := &logSub{
		query:   q,
		buf:     make(chan types.Log, 1024),
		dropped: make(chan struct{}),
	}
	c.mu.Lock()
	c.subs[s] = struct{}{}
	c.mu.Unlock()

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer func() {
			c.mu.Lock()
			delete(c.subs, s)
			c.mu.Unlock()
		}()
		for {
			select {
			case l := <-s.buf:
				select {
				case ch <- l:
				case <-quit:
					return nil
				}
			case <-s.dropped:
				return ErrSubscriptionDropped
			case <-quit:
				return nil
			}
		}
	}), nil
}

type logSub struct {
	query   ethereum.FilterQuery
	buf     chan types.Log
	dropped chan struct{}
	once    sync.Once
}

func (s *logSub) deliver(l types.Log) {
	select {
	case s.buf <- l:
	default:
	}
}

func (s *logSub) drop() {
	s.once.Do(func() { close(s.dropped) })
}

func matches(q ethereum.FilterQuery, l types.Log) bool {
	if q.BlockHash != nil && *q.BlockHash != l.BlockHash {
		return false
	}
	if q.FromBlock != nil && q.FromBlock.Sign() >= 0 && l.BlockNumber < q.FromBlock.Uint64() {
		return false
	}
	if q.ToBlock != nil && q.ToBlock.Sign() >= 0 && l.BlockNumber > q.ToBlock.Uint64() {
		return false
	}
	if len(q.Addresses) > 0 {
		found := false
		for _, a := range q.Addresses {
			if a == l.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(q.Topics) > len(l.Topics) {
		return false
	}
	for i, alternatives := range q.Topics {
		if len(alternatives) == 0 {
			continue
		}
		found := false
		for _, t := range alternatives {
			if t == l.Topics[i] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func blockHash(n uint64) common.Hash {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	return crypto.Keccak256Hash([]byte("ledgertest block"), b[:])
}

// Account is a funded test identity that signs its own transactions.
type Account struct {
	Key     *ecdsa.PrivateKey
	address common.Address
}

// NewAccount generates a fresh account.
func NewAccount() *Account {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(fmt.Sprintf("ledgertest: generate key: %v", err))
	}
	return &Account{Key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

func (a *Account) Address() common.Address {
	return a.address
}

func (a *Account) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), a.Key)
}
