package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/windingtree/wt-client/internal/logging"
	"github.com/windingtree/wt-client/internal/metrics"
	"github.com/windingtree/wt-client/internal/util"
)

// ErrNoEndpoint is returned when no RPC endpoint could be reached.
var ErrNoEndpoint = errors.New("no reachable RPC endpoint")

// ClientConfig holds connection settings for the ledger RPC.
type ClientConfig struct {
	// Endpoints are HTTP(S) RPC URLs in order of preference.
	Endpoints []string
	// WSEndpoint serves log subscriptions. Empty disables live watching.
	WSEndpoint string
	// ChainID, when non-zero, must match the connected chain.
	ChainID     int64
	RetryConfig *util.RetryConfig
}

// Client is a Backend over one or more RPC endpoints. Reads fail over to the
// next healthy endpoint on transport errors; transactions are sent once, to
// the preferred endpoint only.
type Client struct {
	cfg     ClientConfig
	tracker *EndpointTracker
	metrics *metrics.Collector

	mu    sync.RWMutex
	conns map[string]*ethclient.Client
	ws    *ethclient.Client
}

var _ Backend = (*Client)(nil)

// Dial connects to every configured endpoint and verifies the chain id.
func Dial(ctx context.Context, cfg ClientConfig, m *metrics.Collector) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, errors.Wrap(ErrNoEndpoint, "no RPC endpoints configured")
	}
	if cfg.RetryConfig == nil {
		cfg.RetryConfig = util.DefaultRetryConfig()
	}

	c := &Client{
		cfg:     cfg,
		tracker: NewEndpointTracker(cfg.Endpoints),
		metrics: m,
		conns:   make(map[string]*ethclient.Client, len(cfg.Endpoints)),
	}

	for _, url := range cfg.Endpoints {
		conn, result := util.RetryWithValue(ctx, cfg.RetryConfig, func() (*ethclient.Client, error) {
			return ethclient.DialContext(ctx, url)
		})
		if result.LastError != nil {
			logging.Warn("failed to dial RPC endpoint", "endpoint", url, logging.Err(result.LastError))
			c.tracker.RecordError(url)
			continue
		}
		c.conns[url] = conn
	}
	if len(c.conns) == 0 {
		return nil, ErrNoEndpoint
	}

	if cfg.WSEndpoint != "" {
		ws, err := ethclient.DialContext(ctx, cfg.WSEndpoint)
		if err != nil {
			logging.Warn("failed to connect to WebSocket endpoint", "endpoint", cfg.WSEndpoint, logging.Err(err))
		} else {
			c.ws = ws
		}
	}

	chainID, result := util.RetryWithValue(ctx, cfg.RetryConfig, func() (*big.Int, error) {
		return c.ChainID(ctx)
	})
	if result.LastError != nil {
		c.Close()
		return nil, fmt.Errorf("failed to get chain ID: %w", result.LastError)
	}
	if cfg.ChainID != 0 && chainID.Cmp(big.NewInt(cfg.ChainID)) != 0 {
		c.Close()
		return nil, fmt.Errorf("chain ID mismatch: expected %d, got %d", cfg.ChainID, chainID)
	}

	logging.Info("connected to ledger",
		"endpoints", len(c.conns),
		"chain_id", chainID.String(),
		"subscriptions", c.ws != nil,
	)
	return c, nil
}

// Close closes every connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for url, conn := range c.conns {
		conn.Close()
		delete(c.conns, url)
	}
	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}
}

// Endpoints reports the health of every configured endpoint.
func (c *Client) Endpoints() []EndpointHealth {
	return c.tracker.Snapshot()
}

// CanSubscribe reports whether log subscriptions are available.
func (c *Client) CanSubscribe() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ws != nil
}

func (c *Client) conn(url string) *ethclient.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conns[url]
}

// read runs fn against endpoints in health order until one answers.
// Deterministic errors (reverts, not found) are returned without failover.
func read[T any](ctx context.Context, c *Client, fn func(*ethclient.Client) (T, error)) (T, error) {
	var zero T
	lastErr := ErrNoEndpoint

	for _, url := range c.tracker.Ordered() {
		conn := c.conn(url)
		if conn == nil {
			continue
		}
		start := time.Now()
		v, err := fn(conn)
		if err == nil || !util.IsTransient(err) {
			c.tracker.RecordSuccess(url, time.Since(start))
			return v, err
		}
		c.tracker.RecordError(url)
		c.metrics.RecordRPCError(url)
		logging.Debug("RPC endpoint failed, trying next", "endpoint", url, logging.Err(err))
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return read(ctx, c, func(ec *ethclient.Client) (*big.Int, error) { return ec.ChainID(ctx) })
}

func (c *Client) NetworkID(ctx context.Context) (*big.Int, error) {
	return read(ctx, c, func(ec *ethclient.Client) (*big.Int, error) { return ec.NetworkID(ctx) })
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return read(ctx, c, func(ec *ethclient.Client) (uint64, error) { return ec.BlockNumber(ctx) })
}

func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	return read(ctx, c, func(ec *ethclient.Client) ([]byte, error) { return ec.CallContract(ctx, msg, block) })
}

func (c *Client) CodeAt(ctx context.Context, account common.Address, block *big.Int) ([]byte, error) {
	return read(ctx, c, func(ec *ethclient.Client) ([]byte, error) { return ec.CodeAt(ctx, account, block) })
}

func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return read(ctx, c, func(ec *ethclient.Client) (uint64, error) { return ec.EstimateGas(ctx, msg) })
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return read(ctx, c, func(ec *ethclient.Client) (*big.Int, error) { return ec.SuggestGasPrice(ctx) })
}

func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return read(ctx, c, func(ec *ethclient.Client) (uint64, error) { return ec.PendingNonceAt(ctx, account) })
}

func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return read(ctx, c, func(ec *ethclient.Client) (*types.Receipt, error) { return ec.TransactionReceipt(ctx, hash) })
}

func (c *Client) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	type result struct {
		tx      *types.Transaction
		pending bool
	}
	r, err := read(ctx, c, func(ec *ethclient.Client) (result, error) {
		tx, pending, err := ec.TransactionByHash(ctx, hash)
		return result{tx, pending}, err
	})
	return r.tx, r.pending, err
}

func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return read(ctx, c, func(ec *ethclient.Client) ([]types.Log, error) { return ec.FilterLogs(ctx, q) })
}

// SendTransaction sends tx once to the preferred endpoint. A transport error
// leaves the outcome unknown, so nothing is resent here.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	for _, url := range c.tracker.Ordered() {
		conn := c.conn(url)
		if conn == nil {
			continue
		}
		start := time.Now()
		if err := conn.SendTransaction(ctx, tx); err != nil {
			if util.IsTransient(err) {
				c.tracker.RecordError(url)
				c.metrics.RecordRPCError(url)
			}
			return err
		}
		c.tracker.RecordSuccess(url, time.Since(start))
		return nil
	}
	return ErrNoEndpoint
}

// SubscribeFilterLogs subscribes over the WebSocket endpoint.
func (c *Client) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	c.mu.RLock()
	ws := c.ws
	c.mu.RUnlock()

	if ws == nil {
		return nil, errors.New("log subscriptions require a WebSocket endpoint")
	}
	return ws.SubscribeFilterLogs(ctx, q, ch)
}

// Resubscribe re-dials the WebSocket endpoint after a dropped connection.
func (c *Client) Resubscribe(ctx context.Context) error {
	if c.cfg.WSEndpoint == "" {
		return errors.New("no WebSocket endpoint configured")
	}
	ws, err := ethclient.DialContext(ctx, c.cfg.WSEndpoint)
	if err != nil {
		return fmt.Errorf("failed to reconnect WebSocket: %w", err)
	}

	c.mu.Lock()
	old := c.ws
	c.ws = ws
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}
