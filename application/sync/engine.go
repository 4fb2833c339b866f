// Package sync reconciles the local store against the remote canonical
// store for one authenticated user: full and per-canvas push/pull, a
// periodic background loop, and an offline queue replayed when connectivity
// returns.
//
// The engine is fail-open: no sync failure ever reaches a caller as an
// error. Failures surface through the status callback, the log, and queued
// retries, and the application keeps running on whatever local data exists.
// Overlapping syncs (a manual sync racing the periodic timer) are safe
// without engine-level locking because every store write is an idempotent
// upsert keyed by id with an UpdatedAt-wins comparison; replaying or
// interleaving the same push twice converges to the same state. Changing
// the write strategy to anything non-idempotent requires adding a
// per-canvas single-flight guard here.
package sync

import (
	"context"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"canvassync/application/ports"
	"canvassync/domain/canvas"
	"canvassync/pkg/metrics"
)

// Status is the engine state broadcast to the registered observer.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// DefaultSyncInterval is the recommended periodic sync cadence.
const DefaultSyncInterval = 30 * time.Second

// Engine orchestrates synchronization between a LocalStore and a
// RemoteStore. Construct it with New and hand it its collaborators
// explicitly; there is no package-level instance.
type Engine struct {
	local   ports.LocalStore
	remote  ports.RemoteStore
	queue   ports.SyncQueue
	net     ports.Connectivity
	logger  *zap.Logger
	metrics *metrics.Sync

	mu       gosync.Mutex
	userID   string
	status   Status
	onStatus func(Status)
	stopTick chan struct{}
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithUserID sets the authenticated user at construction instead of a later
// Configure call.
func WithUserID(id string) Option {
	return func(e *Engine) { e.userID = id }
}

// WithMetrics attaches sync counters.
func WithMetrics(m *metrics.Sync) Option {
	return func(e *Engine) { e.metrics = m }
}

// New builds an inert engine. Until a user id is supplied (here or via
// Configure) every sync operation is a silent no-op.
func New(local ports.LocalStore, remote ports.RemoteStore, queue ports.SyncQueue, net ports.Connectivity, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		local:  local,
		remote: remote,
		queue:  queue,
		net:    net,
		logger: logger,
		status: StatusIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Configure assigns the authenticated user the engine syncs for.
func (e *Engine) Configure(userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.userID = userID
}

// SetStatusCallback registers the observer notified on every status change.
// Only one observer is kept; passing nil unregisters.
func (e *Engine) SetStatusCallback(fn func(Status)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onStatus = fn
}

// Status returns the last broadcast status.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Engine) setStatus(s Status) {
	e.mu.Lock()
	e.status = s
	fn := e.onStatus
	e.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (e *Engine) currentUser() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.userID
}

// StartPeriodicSync arms a repeating timer that pushes every local canvas
// each tick, skipping ticks entirely while offline. Only one timer can be
// active; starting again cancels the previous one. A tick already in flight
// runs to completion when the timer stops — stopping only gates the next
// scheduled invocation.
func (e *Engine) StartPeriodicSync(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}

	e.mu.Lock()
	if e.stopTick != nil {
		close(e.stopTick)
	}
	stop := make(chan struct{})
	e.stopTick = stop
	e.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if e.net != nil && !e.net.Online() {
					e.logger.Debug("periodic sync skipped, device offline")
					continue
				}
				e.pushAllCanvases(context.Background())
			}
		}
	}()
}

// StopPeriodicSync disarms the periodic timer if one is active.
func (e *Engine) StopPeriodicSync() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopTick != nil {
		close(e.stopTick)
		e.stopTick = nil
	}
}

// NotifyOnline replays the offline queue after a connectivity transition
// back online. Each entry's operation is re-attempted, then the queue is
// cleared unconditionally regardless of replay outcomes: partial-drain
// failures are swallowed rather than leaving a partially processed queue,
// and an edit that still matters will be re-pushed by the next periodic
// tick anyway.
func (e *Engine) NotifyOnline(ctx context.Context) {
	entries, err := e.queue.All(ctx)
	if err != nil {
		e.logger.Error("offline queue read failed", zap.Error(err))
		return
	}

	for _, entry := range entries {
		switch entry.Op {
		case canvas.SyncOpCanvas:
			if err := e.syncCanvasToCloud(ctx, entry.CanvasID); err != nil {
				e.logger.Warn("queued sync replay failed",
					zap.String("canvasID", entry.CanvasID),
					zap.Error(err),
				)
			}
		default:
			e.logger.Warn("unknown queued operation dropped", zap.String("op", string(entry.Op)))
		}
	}

	if err := e.queue.Clear(ctx); err != nil {
		e.logger.Error("offline queue clear failed", zap.Error(err))
		return
	}
	e.metrics.SetQueueDepth(0)
}
