package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alpha-fi/cheddar-maze-minter/observability"
)

// ErrQueueFull reports a call dropped because every slot was taken.
var ErrQueueFull = errors.New("ledger: dispatch queue full")

// ErrClosed reports a call submitted after Close.
var ErrClosed = errors.New("ledger: dispatcher closed")

// DispatcherOptions tunes the worker pool.
type DispatcherOptions struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Dispatcher delivers mint calls to the ledger from a bounded queue. Submission
// never blocks and the caller never learns whether a call succeeded.
type Dispatcher struct {
	client  Client
	queue   chan MintCall
	workers int
	timeout time.Duration
	logger  *slog.Logger
	metrics *observability.LedgerMetrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewDispatcher(client Client, opts DispatcherOptions) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Dispatcher{
		client:  client,
		queue:   make(chan MintCall, opts.QueueSize),
		workers: opts.Workers,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		metrics: observability.Ledger(),
	}
}

// Start launches the workers. They exit when ctx is cancelled or after Close has
// drained the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(ctx)
	}
}

// Enqueue submits call without blocking.
func (d *Dispatcher) Enqueue(call MintCall) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- call:
		d.metrics.SetQueueDepth(len(d.queue))
		return nil
	default:
		d.metrics.ObserveCall("dropped", 0)
		d.logger.Error("ledger queue full; dropping mint call",
			"request_id", call.RequestID,
			"recipient", call.ReceiverID,
			"amount", call.Amount)
		return ErrQueueFull
	}
}

// Pending returns the number of queued calls.
func (d *Dispatcher) Pending() int { return len(d.queue) }

// Close stops accepting calls and waits for the queue to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
	if d.cancel != nil {
		d.cancel()
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case call, ok := <-d.queue:
			if !ok {
				return
			}
			d.metrics.SetQueueDepth(len(d.queue))
			d.deliver(ctx, call)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, call MintCall) {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	start := time.Now()
	err := d.client.Mint(callCtx, call)
	if err != nil {
		d.metrics.ObserveCall("error", time.Since(start))
		d.logger.Error("ledger mint call failed",
			"request_id", call.RequestID,
			"recipient", call.ReceiverID,
			"amount", call.Amount,
			"error", err)
		return
	}
	d.metrics.ObserveCall("ok", time.Since(start))
	d.logger.Debug("ledger mint call delivered", "request_id", call.RequestID, "recipient", call.ReceiverID)
}
