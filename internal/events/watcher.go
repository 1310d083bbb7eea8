package events

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/windingtree/wt-client/internal/contracts"
	"github.com/windingtree/wt-client/internal/logging"
	"github.com/windingtree/wt-client/internal/metrics"
	"github.com/windingtree/wt-client/internal/util"
	"github.com/windingtree/wt-client/pkg/types"
)

const (
	watchReconnectBase = 2 * time.Second
	watchReconnectMax  = 60 * time.Second
	watchChannelBuffer = 64
	watchLogBuffer     = 16
)

// SubscribeBackend is a Backend that can also stream logs.
type SubscribeBackend interface {
	Backend
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- ethtypes.Log) (ethereum.Subscription, error)
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithReconnectDelay sets the first delay between subscription attempts.
// The delay doubles on every failure up to max.
func WithReconnectDelay(base, max time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.reconnectBase = base
		w.reconnectMax = max
	}
}

// Watcher follows the Book, CallStarted and CallFinish events of a set of
// properties. Every event is applied to the caller's PendingSet and then
// forwarded on Events. A dropped subscription is re-established and the
// gap is backfilled from the last event seen.
type Watcher struct {
	backend    SubscribeBackend
	decoder    *contracts.Decoder
	metrics    *metrics.Collector
	properties []common.Address
	set        *PendingSet

	reconnectBase time.Duration
	reconnectMax  time.Duration

	events chan any

	mu   sync.Mutex
	last *types.LogRef

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatcher creates a watcher. Backfill starts at set.Next().
func NewWatcher(backend SubscribeBackend, decoder *contracts.Decoder, m *metrics.Collector, properties []common.Address, set *PendingSet, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		backend:       backend,
		decoder:       decoder,
		metrics:       m,
		properties:    append([]common.Address(nil), properties...),
		set:           set,
		reconnectBase: watchReconnectBase,
		reconnectMax:  watchReconnectMax,
		events:        make(chan any, watchChannelBuffer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the subscription goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	if w.running.Load() {
		return nil
	}
	if len(w.properties) == 0 {
		logging.Info("event watcher: no properties to watch")
		return nil
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.running.Store(true)

	w.wg.Add(1)
	util.SafeGoWithName("property-event-watcher", func() {
		defer w.wg.Done()
		w.subscribeWithReconnect(ctx)
	})

	logging.Info("event watcher started", "properties", len(w.properties), "from_block", w.set.Next())
	return nil
}

// Stop stops the watcher and closes Events once the goroutine has exited.
func (w *Watcher) Stop() {
	if !w.running.Load() {
		return
	}
	w.cancel()
	w.wg.Wait()
	w.running.Store(false)
	close(w.events)

	logging.Info("event watcher stopped")
}

// Events delivers *Booked, *RequestStarted and *RequestFinished values in
// ledger order. Events are dropped when the consumer falls behind; the
// pending set is always updated.
func (w *Watcher) Events() <-chan any {
	return w.events
}

func (w *Watcher) query() ethereum.FilterQuery {
	return ethereum.FilterQuery{
		Addresses: w.properties,
		Topics:    [][]common.Hash{{bookTopic, startedTopic, finishedTopic}},
	}
}

func (w *Watcher) subscribeWithReconnect(ctx context.Context) {
	delay := w.reconnectBase
	first := true

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !first {
			w.metrics.RecordReconnect()
		}
		first = false

		// Subscribe before backfilling so nothing mined in between is lost.
		logs := make(chan ethtypes.Log, watchLogBuffer)
		sub, err := w.backend.SubscribeFilterLogs(ctx, w.query(), logs)
		if err != nil {
			logging.Warn("event watcher: subscribe failed", "error", err)
			if !sleepOrDone(ctx, delay) {
				return
			}
			delay = w.nextDelay(delay)
			continue
		}

		if err := w.backfill(ctx); err != nil {
			sub.Unsubscribe()
			logging.Warn("event watcher: backfill failed", "error", err)
			if !sleepOrDone(ctx, delay) {
				return
			}
			delay = w.nextDelay(delay)
			continue
		}

		delay = w.reconnectBase
		logging.Info("event watcher: subscribed", "properties", len(w.properties))

		done := w.processEvents(ctx, sub, logs)
		sub.Unsubscribe()
		if done {
			return
		}
	}
}

// processEvents returns true when ctx is done and false when the
// subscription failed.
func (w *Watcher) processEvents(ctx context.Context, sub ethereum.Subscription, logs <-chan ethtypes.Log) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case err := <-sub.Err():
			if err != nil {
				logging.Warn("event watcher: subscription error", "error", err)
			}
			return false
		case l := <-logs:
			w.handle(l)
			if l.BlockNumber > 0 {
				w.set.advance(l.BlockNumber - 1)
			}
		}
	}
}

// backfill replays logs from the last handled event, or from the set's
// cursor before any event was handled, up to the current head.
func (w *Watcher) backfill(ctx context.Context) error {
	head, err := w.backend.BlockNumber(ctx)
	if err != nil {
		return err
	}

	from := w.set.Next()
	w.mu.Lock()
	if w.last != nil {
		from = w.last.BlockNumber
	}
	w.mu.Unlock()
	if from > head {
		return nil
	}

	q := w.query()
	q.FromBlock = new(big.Int).SetUint64(from)
	q.ToBlock = new(big.Int).SetUint64(head)
	logs, err := w.backend.FilterLogs(ctx, q)
	if err != nil {
		return err
	}
	w.metrics.RecordLogQuery("backfill", len(logs))

	for _, l := range logs {
		w.handle(l)
	}
	w.set.advance(head)

	if len(logs) > 0 {
		logging.Info("event watcher: backfilled events", "count", len(logs), "from_block", from, "to_block", head)
	}
	return nil
}

func (w *Watcher) handle(l ethtypes.Log) {
	ref := refOf(l)
	w.mu.Lock()
	if w.last != nil && !w.last.Before(ref) {
		w.mu.Unlock()
		return
	}
	w.last = &ref
	w.mu.Unlock()

	ev, err := Parse(w.decoder, l)
	if err != nil {
		logging.Warn("event watcher: undecodable log", "tx_hash", l.TxHash.Hex(), "error", err)
		return
	}
	w.set.Apply(ev)
	w.metrics.SetOutstanding(len(w.set.Outstanding()))

	select {
	case w.events <- ev:
	default:
		logging.Warn("event watcher: event channel full, dropping")
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (w *Watcher) nextDelay(current time.Duration) time.Duration {
	next := current * 2
	if next > w.reconnectMax {
		next = w.reconnectMax
	}
	return next
}
