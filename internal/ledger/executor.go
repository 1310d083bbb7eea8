package ledger

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/windingtree/wt-client/internal/logging"
	"github.com/windingtree/wt-client/internal/metrics"
	"github.com/windingtree/wt-client/pkg/types"
)

// ExecutorConfig controls how submissions are priced and awaited.
type ExecutorConfig struct {
	// ReceiptTimeout bounds the wait for inclusion. Zero waits until ctx ends.
	ReceiptTimeout time.Duration
	// Confirmations is the number of blocks to wait after inclusion.
	Confirmations int
	// ConfirmationPoll is the block polling interval while confirming.
	ConfirmationPoll time.Duration
	// MaxGasPrice caps the suggested gas price. Nil means no cap.
	MaxGasPrice *big.Int
}

// DefaultExecutorConfig returns the defaults used by the CLI.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		ReceiptTimeout:   2 * time.Minute,
		Confirmations:    0,
		ConfirmationPoll: 2 * time.Second,
		MaxGasPrice:      big.NewInt(100_000_000_000), // 100 gwei
	}
}

// Executor signs, sends and awaits calls. Each Submit is independent: the
// nonce is read from the ledger every time and nothing is resent.
type Executor struct {
	backend Backend
	gas     *GasEstimator
	cfg     ExecutorConfig
	metrics *metrics.Collector
}

// NewExecutor creates an executor.
func NewExecutor(backend Backend, gas *GasEstimator, cfg ExecutorConfig, m *metrics.Collector) *Executor {
	if cfg.ConfirmationPoll <= 0 {
		cfg.ConfirmationPoll = 2 * time.Second
	}
	return &Executor{backend: backend, gas: gas, cfg: cfg, metrics: m}
}

// Backend returns the backend submissions go through.
func (e *Executor) Backend() Backend {
	return e.backend
}

// Gas returns the executor's estimator.
func (e *Executor) Gas() *GasEstimator {
	return e.gas
}

type submitOptions struct {
	gasLimit uint64
}

// SubmitOption adjusts a single submission.
type SubmitOption func(*submitOptions)

// WithGasLimit skips estimation and uses limit as the budget.
func WithGasLimit(limit uint64) SubmitOption {
	return func(o *submitOptions) {
		o.gasLimit = limit
	}
}

// Submit sends call from signer's account and waits for its receipt.
// A receipt that does not arrive within the receipt timeout yields
// ErrSubmissionTimeout; the transaction may still be included later.
// A failed receipt yields ErrSubmissionReverted.
func (e *Executor) Submit(ctx context.Context, signer Signer, call Call, opts ...SubmitOption) (*Receipt, error) {
	var o submitOptions
	for _, opt := range opts {
		opt(&o)
	}
	from := signer.Address()
	log := logging.With(logging.Method(call.Method), logging.Account(from))

	gasLimit := o.gasLimit
	if gasLimit == 0 {
		var err error
		gasLimit, err = e.gas.Estimate(ctx, call.Method, call.Msg(from))
		if err != nil {
			e.metrics.RecordSubmission(call.Method, metrics.OutcomeFailed, 0, 0)
			return nil, e.fail(call, err)
		}
	}

	tx, err := e.sign(ctx, signer, call, gasLimit)
	if err != nil {
		e.metrics.RecordSubmission(call.Method, metrics.OutcomeFailed, 0, 0)
		return nil, e.fail(call, err)
	}

	start := time.Now()
	if err := e.backend.SendTransaction(ctx, tx); err != nil {
		e.metrics.RecordSubmission(call.Method, metrics.OutcomeFailed, 0, time.Since(start))
		e.audit(call, from, tx.Hash(), "send_failed")
		return nil, e.fail(call, fmt.Errorf("failed to send transaction: %w", err))
	}
	log.Debug("transaction sent", logging.TxHash(tx.Hash()), "gas", gasLimit, "nonce", tx.Nonce())

	r, err := e.await(ctx, tx)
	elapsed := time.Since(start)
	switch {
	case err != nil:
		e.metrics.RecordSubmission(call.Method, metrics.OutcomeTimeout, 0, elapsed)
		e.audit(call, from, tx.Hash(), "timeout")
		log.Warn("no receipt before timeout", logging.TxHash(tx.Hash()), logging.Err(err))
		return nil, &types.CallError{Op: call.Method, Target: call.Target(), TxHash: tx.Hash(), Err: errors.Mark(err, types.ErrSubmissionTimeout)}
	case r.Status == ethtypes.ReceiptStatusFailed:
		e.metrics.RecordSubmission(call.Method, metrics.OutcomeReverted, r.GasUsed, elapsed)
		e.audit(call, from, tx.Hash(), "reverted")
		log.Warn("transaction reverted", logging.TxHash(tx.Hash()), "gas_used", r.GasUsed, "gas_limit", gasLimit)
		return newReceipt(tx, r), &types.CallError{Op: call.Method, Target: call.Target(), TxHash: tx.Hash(), Err: types.ErrSubmissionReverted}
	}

	if err := e.confirm(ctx, r); err != nil {
		e.metrics.RecordSubmission(call.Method, metrics.OutcomeTimeout, r.GasUsed, time.Since(start))
		e.audit(call, from, tx.Hash(), "unconfirmed")
		log.Warn("confirmations not reached before timeout", logging.TxHash(tx.Hash()), logging.Err(err))
		return newReceipt(tx, r), &types.CallError{Op: call.Method, Target: call.Target(), TxHash: tx.Hash(), Err: errors.Mark(err, types.ErrSubmissionTimeout)}
	}

	e.metrics.RecordSubmission(call.Method, metrics.OutcomeSettled, r.GasUsed, elapsed)
	e.audit(call, from, tx.Hash(), "settled")
	log.Info("transaction settled", logging.TxHash(tx.Hash()), "block", r.BlockNumber.Uint64(), "gas_used", r.GasUsed)
	return newReceipt(tx, r), nil
}

func (e *Executor) sign(ctx context.Context, signer Signer, call Call, gasLimit uint64) (*ethtypes.Transaction, error) {
	chainID, err := e.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	nonce, err := e.backend.PendingNonceAt(ctx, signer.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := e.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	if e.cfg.MaxGasPrice != nil && gasPrice.Cmp(e.cfg.MaxGasPrice) > 0 {
		gasPrice = e.cfg.MaxGasPrice
	}

	value := call.Value
	if value == nil {
		value = new(big.Int)
	}
	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       call.To,
		Value:    value,
		Data:     call.Data,
	})
	signed, err := signer.SignTx(ctx, tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}

func (e *Executor) await(ctx context.Context, tx *ethtypes.Transaction) (*ethtypes.Receipt, error) {
	if e.cfg.ReceiptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ReceiptTimeout)
		defer cancel()
	}
	return bind.WaitMined(ctx, e.backend, tx)
}

// confirm waits until the receipt's block is buried under the configured
// number of confirmations. The wait is bounded by the receipt timeout.
func (e *Executor) confirm(ctx context.Context, r *ethtypes.Receipt) error {
	if e.cfg.Confirmations <= 0 {
		return nil
	}
	if e.cfg.ReceiptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ReceiptTimeout)
		defer cancel()
	}
	target := r.BlockNumber.Uint64() + uint64(e.cfg.Confirmations)

	ticker := time.NewTicker(e.cfg.ConfirmationPoll)
	defer ticker.Stop()
	var lastErr error
	for {
		current, err := e.backend.BlockNumber(ctx)
		if err == nil && current >= target {
			return nil
		}
		if err != nil {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return errors.Wrapf(ctx.Err(), "block %d not reached, last head lookup failed: %v", target, lastErr)
			}
			return errors.Wrapf(ctx.Err(), "block %d not reached", target)
		case <-ticker.C:
		}
	}
}

func (e *Executor) fail(call Call, err error) error {
	return &types.CallError{Op: call.Method, Target: call.Target(), Err: err}
}

func (e *Executor) audit(call Call, from common.Address, hash common.Hash, result string) {
	details := "tx " + hash.Hex()
	if d := call.Delegation; d != nil {
		details += fmt.Sprintf(" delegation_index %d", d.Index)
	}
	logging.Audit(logging.AuditEvent{
		Operation: call.Method,
		Actor:     from.Hex(),
		Target:    call.Target().Hex(),
		Result:    result,
		Details:   details,
	})
}
