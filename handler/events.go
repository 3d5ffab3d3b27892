package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/stevemurr/poi-editor-server/geojson"
	"github.com/stevemurr/poi-editor-server/logging"
)

// events streams the collection as server-sent events. The first event is
// the current collection. A slow client only ever sees the latest one.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	logger := logging.GetLoggerFromContext(r.Context())

	updates := make(chan geojson.Collection, 1)
	unsubscribe := h.manager.Subscribe(func(c geojson.Collection) {
		select {
		case updates <- c:
		default:
			select {
			case <-updates:
			default:
			}
			updates <- c
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case c := <-updates:
			b, err := json.Marshal(c)
			if err != nil {
				logger.Error().Err(err).Msg("failed to encode collection")
				return
			}
			if _, err := fmt.Fprintf(w, "event: collection\ndata: %s\n\n", b); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
