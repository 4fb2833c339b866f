package connectivity

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCheckerOnline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	c := &Checker{Addr: ln.Addr().String(), Timeout: time.Second}
	assert.True(t, c.Online())
}

func TestCheckerOffline(t *testing.T) {
	// A closed listener's address refuses connections immediately.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	c := &Checker{Addr: addr, Timeout: 200 * time.Millisecond}
	assert.False(t, c.Online())
}

func TestWatcherFiresOncePerTransition(t *testing.T) {
	var online atomic.Bool
	var fired atomic.Int32

	w := NewWatcher(online.Load, 10*time.Millisecond, func() { fired.Add(1) }, zap.NewNop())
	w.Start()
	defer w.Stop()

	// Offline at start: nothing fires.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())

	// First success after start counts as a transition.
	online.Store(true)
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)

	// Staying online does not refire.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())

	// A full offline/online cycle fires again.
	online.Store(false)
	time.Sleep(50 * time.Millisecond)
	online.Store(true)
	require.Eventually(t, func() bool { return fired.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestWatcherStartTwiceIsNoOp(t *testing.T) {
	var fired atomic.Int32
	w := NewWatcher(func() bool { return false }, 10*time.Millisecond, func() { fired.Add(1) }, zap.NewNop())

	w.Start()
	w.Start()
	w.Stop()
	w.Stop()
}
