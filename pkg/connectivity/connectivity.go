// Package connectivity reports device network state to the sync engine and
// raises the offline-to-online edge that triggers queue replay.
package connectivity

import (
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Checker probes reachability by dialing a TCP address. The zero timeout
// defaults to two seconds.
type Checker struct {
	Addr    string
	Timeout time.Duration
}

// Online reports whether the probe address is currently reachable.
func (c *Checker) Online() bool {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 2 * time.Second
	}
	conn, err := net.DialTimeout("tcp", c.Addr, timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Watcher polls a checker and invokes onOnline exactly once per
// offline-to-online transition. The first successful probe after Start
// counts as a transition, so a queue left over from a previous run gets
// drained at startup.
type Watcher struct {
	check    func() bool
	onOnline func()
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	stop    chan struct{}
	started bool
}

// NewWatcher builds a watcher polling check every interval.
func NewWatcher(check func() bool, interval time.Duration, onOnline func(), logger *zap.Logger) *Watcher {
	return &Watcher{
		check:    check,
		onOnline: onOnline,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the polling loop. Starting twice is a no-op.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true
	w.stop = make(chan struct{})

	go func() {
		online := false
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			now := w.check()
			if now && !online {
				w.logger.Info("connectivity restored")
				w.onOnline()
			} else if !now && online {
				w.logger.Warn("connectivity lost")
			}
			online = now

			select {
			case <-w.stop:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop halts the polling loop.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	close(w.stop)
	w.started = false
}
