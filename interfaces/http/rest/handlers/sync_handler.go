// Package handlers implements the control-API endpoints the UI layer uses
// to observe and trigger synchronization.
package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"canvassync/application/sync"
	"canvassync/pkg/common"
)

// SyncHandler exposes the engine over HTTP. Sync operations are fail-open
// and asynchronous from the UI's perspective, so triggers always answer
// 202; outcomes surface through the status endpoint.
type SyncHandler struct {
	engine *sync.Engine
	logger *zap.Logger
}

// NewSyncHandler wires the handler.
func NewSyncHandler(engine *sync.Engine, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{engine: engine, logger: logger}
}

// Status answers the last broadcast engine status.
//
//	GET /api/v1/sync/status
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"status": string(h.engine.Status()),
	})
}

// FullSync triggers a full push/pull cycle in the background.
//
//	POST /api/v1/sync/full
func (h *SyncHandler) FullSync(w http.ResponseWriter, r *http.Request) {
	go h.engine.FullSync(context.Background())
	common.RespondJSON(w, http.StatusAccepted, map[string]string{"status": string(sync.StatusSyncing)})
}

// PushCanvas pushes one canvas to the remote store.
//
//	POST /api/v1/canvases/{canvasID}/sync/push
func (h *SyncHandler) PushCanvas(w http.ResponseWriter, r *http.Request) {
	canvasID := chi.URLParam(r, "canvasID")
	if canvasID == "" {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "canvas id is required")
		return
	}
	go h.engine.SyncCanvasToCloud(context.Background(), canvasID)
	common.RespondJSON(w, http.StatusAccepted, map[string]string{"canvasId": canvasID})
}

// PullCanvas pulls one canvas from the remote store.
//
//	POST /api/v1/canvases/{canvasID}/sync/pull
func (h *SyncHandler) PullCanvas(w http.ResponseWriter, r *http.Request) {
	canvasID := chi.URLParam(r, "canvasID")
	if canvasID == "" {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "canvas id is required")
		return
	}
	go h.engine.SyncCanvasFromCloud(context.Background(), canvasID)
	common.RespondJSON(w, http.StatusAccepted, map[string]string{"canvasId": canvasID})
}
