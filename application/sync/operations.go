package sync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"canvassync/domain/canvas"
	"canvassync/pkg/errors"
)

// FullSync pushes every local canvas, then pulls every remote canvas the
// user owns, merging by UpdatedAt. Invoked once per authenticated session
// start. Failures never propagate: the status observer sees error and the
// application keeps running on local data — staleness is preferred over a
// hard failure blocking the UI.
func (e *Engine) FullSync(ctx context.Context) {
	if e.currentUser() == "" {
		// Inert until configured; not an error so opportunistic callers
		// need no defensive checks.
		return
	}
	start := time.Now()
	e.setStatus(StatusSyncing)
	err := e.fullSync(ctx)
	e.metrics.ObserveOperation("full_sync", err)
	e.metrics.ObserveDuration("full_sync", time.Since(start).Seconds())
	if err != nil {
		e.logger.Error("full sync failed", zap.Error(err))
		e.setStatus(StatusError)
		return
	}
	e.setStatus(StatusSuccess)
}

func (e *Engine) fullSync(ctx context.Context) error {
	const op = "sync.FullSync"
	userID := e.currentUser()
	if userID == "" {
		return nil
	}

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	locals, err := e.local.GetAllCanvases(ctx)
	if err != nil {
		return errors.Wrap(errors.KindStore, op, err)
	}
	for _, c := range locals {
		keep(e.syncCanvasToCloud(ctx, c.ID))
	}

	remotes, err := e.remote.GetAllCanvases(ctx, userID)
	if err != nil {
		keep(errors.Wrap(errors.KindConnectivity, op, err))
	} else {
		for _, rc := range remotes {
			keep(e.syncCanvasFromCloud(ctx, rc.ID))
		}
	}
	return firstErr
}

// SyncCanvasToCloud pushes one canvas, its nodes and its chat sessions.
// Failures are logged and queued for replay, never returned.
func (e *Engine) SyncCanvasToCloud(ctx context.Context, canvasID string) {
	start := time.Now()
	err := e.syncCanvasToCloud(ctx, canvasID)
	e.metrics.ObserveOperation("push_canvas", err)
	e.metrics.ObserveDuration("push_canvas", time.Since(start).Seconds())
}

func (e *Engine) syncCanvasToCloud(ctx context.Context, canvasID string) error {
	const op = "sync.SyncCanvasToCloud"
	userID := e.currentUser()
	if userID == "" {
		return nil
	}

	lc, err := e.local.GetCanvas(ctx, canvasID)
	if err != nil {
		return e.queueRetry(ctx, canvasID, errors.Wrap(errors.KindStore, op, err))
	}
	if lc == nil {
		// Absent locally: nothing to push, by design not an error.
		return nil
	}

	rc, err := e.remote.GetCanvas(ctx, canvasID)
	if err != nil {
		return e.queueRetry(ctx, canvasID, errors.Wrap(errors.KindConnectivity, op, err))
	}
	if rc == nil {
		// Create with the same id as local so identifiers never diverge.
		if _, err := e.remote.CreateCanvas(ctx, userID, lc.Name, lc.ID); err != nil {
			return e.queueRetry(ctx, canvasID, errors.Wrap(errors.KindConnectivity, op, err))
		}
	} else if lc.UpdatedAt > rc.UpdatedAt {
		if err := e.remote.UpdateCanvas(ctx, lc.ID, lc.Name); err != nil {
			return e.queueRetry(ctx, canvasID, errors.Wrap(errors.KindConnectivity, op, err))
		}
	}

	// Upsert, not a diff: every local node is re-sent each cycle. Simpler
	// than change tracking, and idempotent by id.
	nodes, err := e.local.GetCanvasNodes(ctx, canvasID)
	if err != nil {
		return e.queueRetry(ctx, canvasID, errors.Wrap(errors.KindStore, op, err))
	}
	if err := e.remote.BulkUpsertNodes(ctx, userID, canvasID, nodes); err != nil {
		return e.queueRetry(ctx, canvasID, errors.Wrap(errors.KindConnectivity, op, err))
	}

	sessions, err := e.local.GetChatSessions(ctx, canvasID)
	if err != nil {
		return e.queueRetry(ctx, canvasID, errors.Wrap(errors.KindStore, op, err))
	}
	for _, s := range sessions {
		if err := e.remote.SaveChatSession(ctx, userID, canvasID, s); err != nil {
			return e.queueRetry(ctx, canvasID, errors.Wrap(errors.KindConnectivity, op, err))
		}
	}

	e.logger.Debug("canvas pushed",
		zap.String("canvasID", canvasID),
		zap.Int("nodes", len(nodes)),
		zap.Int("chatSessions", len(sessions)),
	)
	return nil
}

// SyncCanvasFromCloud pulls one canvas and merges it into the local store.
// Failures are logged and dropped: pulls are re-attempted on the next
// natural cycle anyway, so there is nothing to queue.
func (e *Engine) SyncCanvasFromCloud(ctx context.Context, canvasID string) {
	start := time.Now()
	err := e.syncCanvasFromCloud(ctx, canvasID)
	e.metrics.ObserveOperation("pull_canvas", err)
	e.metrics.ObserveDuration("pull_canvas", time.Since(start).Seconds())
	if err != nil {
		e.logger.Warn("canvas pull failed", zap.String("canvasID", canvasID), zap.Error(err))
	}
}

func (e *Engine) syncCanvasFromCloud(ctx context.Context, canvasID string) error {
	const op = "sync.SyncCanvasFromCloud"
	if e.currentUser() == "" {
		return nil
	}

	rc, err := e.remote.GetCanvas(ctx, canvasID)
	if err != nil {
		return errors.Wrap(errors.KindConnectivity, op, err).WithCanvas(canvasID)
	}
	if rc == nil {
		return nil
	}

	lc, err := e.local.GetCanvas(ctx, canvasID)
	if err != nil {
		return errors.Wrap(errors.KindStore, op, err).WithCanvas(canvasID)
	}
	if lc == nil || rc.UpdatedAt > lc.UpdatedAt {
		// Remote canvas row wins only when strictly newer (or absent
		// locally). Ties deliberately favor neither side.
		if err := e.local.PutCanvas(ctx, rc); err != nil {
			return errors.Wrap(errors.KindStore, op, err).WithCanvas(canvasID)
		}
	}

	if err := e.mergeRemoteNodes(ctx, canvasID); err != nil {
		return errors.Wrap(errors.KindStore, op, err).WithCanvas(canvasID)
	}
	if err := e.mergeRemoteChatSessions(ctx, canvasID); err != nil {
		return errors.Wrap(errors.KindStore, op, err).WithCanvas(canvasID)
	}
	return nil
}

// mergeRemoteNodes applies the per-record rule: a remote node is written
// locally only when absent there or strictly newer.
func (e *Engine) mergeRemoteNodes(ctx context.Context, canvasID string) error {
	remoteNodes, err := e.remote.GetCanvasNodes(ctx, canvasID)
	if err != nil {
		return err
	}
	localNodes, err := e.local.GetCanvasNodes(ctx, canvasID)
	if err != nil {
		return err
	}
	localByID := make(map[string]*canvas.Node, len(localNodes))
	for _, n := range localNodes {
		localByID[n.ID] = n
	}
	for _, rn := range remoteNodes {
		ln, ok := localByID[rn.ID]
		if ok && ln.UpdatedAt >= rn.UpdatedAt {
			continue
		}
		if err := e.local.PutNode(ctx, rn); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) mergeRemoteChatSessions(ctx context.Context, canvasID string) error {
	remoteSessions, err := e.remote.GetChatSessions(ctx, canvasID)
	if err != nil {
		return err
	}
	localSessions, err := e.local.GetChatSessions(ctx, canvasID)
	if err != nil {
		return err
	}
	localByID := make(map[string]*canvas.ChatSession, len(localSessions))
	for _, s := range localSessions {
		localByID[s.ID] = s
	}
	for _, rs := range remoteSessions {
		ls, ok := localByID[rs.ID]
		if ok && ls.UpdatedAt >= rs.UpdatedAt {
			continue
		}
		if err := e.local.PutChatSession(ctx, rs); err != nil {
			return err
		}
	}
	return nil
}

// pushAllCanvases is the periodic tick body: every local canvas pushed
// sequentially, failures queued per canvas.
func (e *Engine) pushAllCanvases(ctx context.Context) {
	locals, err := e.local.GetAllCanvases(ctx)
	if err != nil {
		e.logger.Error("periodic sync could not list canvases", zap.Error(err))
		return
	}
	for _, c := range locals {
		if err := e.syncCanvasToCloud(ctx, c.ID); err != nil {
			e.logger.Warn("periodic push failed", zap.String("canvasID", c.ID), zap.Error(err))
		}
	}
}

// queueRetry logs the push failure and enqueues a sync_canvas retry entry,
// returning the original error for the caller's status bookkeeping.
func (e *Engine) queueRetry(ctx context.Context, canvasID string, cause *errors.SyncError) error {
	cause.WithCanvas(canvasID)
	e.logger.Warn("canvas push failed, queued for retry",
		zap.String("canvasID", canvasID),
		zap.Error(cause),
	)
	if err := e.queue.Enqueue(ctx, canvas.SyncOpCanvas, canvasID); err != nil {
		e.logger.Error("offline queue enqueue failed", zap.Error(err))
		return cause
	}
	if entries, err := e.queue.All(ctx); err == nil {
		e.metrics.SetQueueDepth(len(entries))
	}
	return cause
}
