package ledger

import (
	"context"
	"maps"
	"math"
	"math/big"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"

	"github.com/windingtree/wt-client/internal/logging"
	"github.com/windingtree/wt-client/internal/metrics"
	"github.com/windingtree/wt-client/pkg/types"
)

// DefaultGasMargin inflates node estimates, which undershoot for calls
// whose cost depends on state the node does not simulate exactly.
const DefaultGasMargin = 1.25

// DefaultFixedGas lists networks that get a constant budget instead of an
// estimate.
var DefaultFixedGas = map[uint64]uint64{
	77: 4_700_000,
}

// GasPolicy decides how a node estimate becomes a gas budget.
type GasPolicy struct {
	Margin   float64
	FixedGas map[uint64]uint64
}

// DefaultGasPolicy returns the policy used when none is configured.
func DefaultGasPolicy() GasPolicy {
	return GasPolicy{Margin: DefaultGasMargin, FixedGas: maps.Clone(DefaultFixedGas)}
}

// MaxGasMargin is the largest margin a policy may carry.
const MaxGasMargin = 10.0

// Validate checks the margin is usable.
func (p GasPolicy) Validate() error {
	if math.IsNaN(p.Margin) || p.Margin < 1 || p.Margin > MaxGasMargin {
		return errors.Newf("gas margin must be between 1 and %v, got %v", MaxGasMargin, p.Margin)
	}
	for id, gas := range p.FixedGas {
		if gas == 0 {
			return errors.Newf("fixed gas for network %d must be positive", id)
		}
	}
	return nil
}

// apply scales estimate by the margin, rounding up. The margin is taken to
// four decimal places.
func (p GasPolicy) apply(estimate uint64) uint64 {
	bps := uint64(math.Round(p.Margin * 10_000))
	v := new(big.Int).SetUint64(estimate)
	v.Mul(v, new(big.Int).SetUint64(bps))
	v.Add(v, big.NewInt(9_999))
	v.Div(v, big.NewInt(10_000))
	if !v.IsUint64() {
		return math.MaxUint64
	}
	return v.Uint64()
}

// GasBackend is what a GasEstimator queries.
type GasBackend interface {
	ethereum.GasEstimator
	NetworkID(ctx context.Context) (*big.Int, error)
}

// GasEstimator turns a call into a gas budget. The policy can be swapped at
// runtime; each estimate reads it once.
type GasEstimator struct {
	backend GasBackend
	policy  atomic.Pointer[GasPolicy]
	metrics *metrics.Collector
}

// NewGasEstimator creates an estimator with the given policy.
func NewGasEstimator(backend GasBackend, policy GasPolicy, m *metrics.Collector) *GasEstimator {
	g := &GasEstimator{backend: backend, metrics: m}
	g.policy.Store(&policy)
	return g
}

// Policy returns the policy in effect.
func (g *GasEstimator) Policy() GasPolicy {
	return *g.policy.Load()
}

// SetPolicy replaces the policy for subsequent estimates.
func (g *GasEstimator) SetPolicy(p GasPolicy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.FixedGas = maps.Clone(p.FixedGas)
	g.policy.Store(&p)
	logging.Info("gas policy updated", "margin", p.Margin, "fixed_networks", len(p.FixedGas))
	return nil
}

// Estimate returns the gas budget for msg. Networks listed in the policy's
// FixedGas get their constant; everything else gets the node estimate times
// the margin. A failed estimate is returned as ErrEstimationFailed rather
// than replaced with a guess.
func (g *GasEstimator) Estimate(ctx context.Context, method string, msg ethereum.CallMsg) (uint64, error) {
	policy := g.Policy()

	networkID, err := g.backend.NetworkID(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read network id")
	}
	if networkID.IsUint64() {
		if fixed, ok := policy.FixedGas[networkID.Uint64()]; ok {
			g.metrics.RecordGasBudget(method, fixed)
			return fixed, nil
		}
	}

	estimate, err := g.backend.EstimateGas(ctx, msg)
	if err != nil {
		g.metrics.RecordEstimationFailure(method)
		logging.Debug("gas estimation failed", logging.Method(method), logging.Err(err))
		return 0, errors.Mark(errors.Wrapf(err, "estimate gas for %s", method), types.ErrEstimationFailed)
	}

	budget := policy.apply(estimate)
	g.metrics.RecordGasBudget(method, budget)
	return budget, nil
}
