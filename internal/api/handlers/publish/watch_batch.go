package publish

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"Omnipost/internal/api/middleware"
	"Omnipost/internal/core/publishing"
)

// WatchBatchHandler streams batch status updates over a websocket so
// clients don't have to poll the status endpoint while jobs run
type WatchBatchHandler struct {
	service  *publishing.Service
	upgrader websocket.Upgrader
	interval time.Duration
}

// NewWatchBatchHandler creates a new handler for watching batch progress
func NewWatchBatchHandler(service *publishing.Service) *WatchBatchHandler {
	return &WatchBatchHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		interval: 2 * time.Second,
	}
}

// HandleWatch upgrades to a websocket and pushes the batch snapshot
// whenever a member job changes state, closing once the batch settles
// GET /publish/batches/{flowID}/watch
func (h *WatchBatchHandler) HandleWatch(w http.ResponseWriter, r *http.Request) {
	flowID := chi.URLParam(r, "flowID")
	if flowID == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Missing flow id")
		return
	}

	batch, err := h.service.GetBatchStatus(r.Context(), flowID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !ownsBatch(middleware.GetUserID(r), batch) {
		writeError(w, http.StatusNotFound, "NotFound", publishing.ErrFlowNotFound.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		log.Printf("Failed to upgrade batch watch connection: %v", err)
		return
	}
	defer conn.Close()

	// Reader goroutine: surfaces client disconnects and drains pings
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	lastFingerprint := ""
	for {
		batch, err := h.service.GetBatchStatus(r.Context(), flowID)
		if err != nil {
			log.Printf("Batch watch read failed for flow %s: %v", flowID, err)
			return
		}

		if fp := batchFingerprint(batch); fp != lastFingerprint {
			lastFingerprint = fp
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(batch); err != nil {
				return
			}
		}

		if batch.Status != publishing.BatchInProgress {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(batch.Status)),
				time.Now().Add(time.Second))
			return
		}

		select {
		case <-ticker.C:
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// batchFingerprint summarizes the mutable portion of a batch snapshot
func batchFingerprint(batch *publishing.Batch) string {
	fp := string(batch.Status)
	for _, job := range batch.Jobs {
		fp += "|" + job.ID + ":" + string(job.State)
	}
	return fp
}
