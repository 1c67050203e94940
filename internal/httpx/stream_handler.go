package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campusrun/orders/internal/notify"
	"github.com/campusrun/orders/internal/orders"
)

// SSE endpoints. Each response starts with the current state from the store
// (the resync the notifier contract requires), then pushes snapshots until
// the client disconnects. A comment line every 30s keeps proxies from
// closing idle streams.

const heartbeat = 30 * time.Second

// streamOrder is the customer tracking feed: every state change of one order.
func (h *OrdersHandler) streamOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	o, err := h.Store.Get(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}

	// Subscribe before sending the initial snapshot so a transition landing
	// in between is buffered, not lost.
	sub := h.Notifier.SubscribeOrder(orderID)
	defer sub.Close()

	fl, ok := beginStream(w)
	if !ok {
		return
	}
	sendEvent(w, fl, o)
	h.pump(w, r, fl, sub)
}

// streamPendingJobs is the runner dashboard feed: the current open jobs,
// then every newly created one.
func (h *OrdersHandler) streamPendingJobs(w http.ResponseWriter, r *http.Request) {
	sub := h.Notifier.SubscribePending()
	defer sub.Close()

	open, err := h.Store.ListPending(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	fl, ok := beginStream(w)
	if !ok {
		return
	}
	for _, o := range open {
		sendEvent(w, fl, o)
	}
	h.pump(w, r, fl, sub)
}

func (h *OrdersHandler) pump(w http.ResponseWriter, r *http.Request, fl http.Flusher, sub *notify.Subscription) {
	tick := time.NewTicker(heartbeat)
	defer tick.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			fl.Flush()
		case o, ok := <-sub.Updates():
			if !ok {
				return
			}
			sendEvent(w, fl, o)
		}
	}
}

func beginStream(w http.ResponseWriter) (http.Flusher, bool) {
	fl, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fl.Flush()
	return fl, true
}

func sendEvent(w http.ResponseWriter, fl http.Flusher, o orders.Order) {
	b, err := json.Marshal(o)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", b)
	fl.Flush()
}
