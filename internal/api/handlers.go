package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	apperrors "warlock-arena/internal/errors"
	"warlock-arena/internal/resource"
)

const (
	defaultEventCount = 50
	maxEventCount     = 500
)

// registryResponse lists a registry in name order.
type registryResponse[T any] struct {
	Kind        string `json:"kind"`
	Fingerprint uint64 `json:"fingerprint"`
	Entries     []T    `json:"entries"`
}

func listRegistry[T any](r *resource.Registry[T]) registryResponse[T] {
	resp := registryResponse[T]{Entries: []T{}}
	if r == nil {
		return resp
	}
	resp.Kind = r.Kind()
	resp.Fingerprint = r.Fingerprint()
	for _, name := range r.Names() {
		if v, _, ok := r.Lookup(name); ok {
			resp.Entries = append(resp.Entries, v)
		}
	}
	return resp
}

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.GetState())
}

func (h *routerHandlers) handleGetAbilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, listRegistry(h.engine.Abilities()))
}

func (h *routerHandlers) handleGetAudio(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, listRegistry(h.engine.Clips()))
}

func (h *routerHandlers) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	n := defaultEventCount
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, "n must be a positive integer", http.StatusBadRequest)
			return
		}
		n = min(parsed, maxEventCount)
	}
	writeJSON(w, h.engine.RecentEvents(n))
}

func (h *routerHandlers) handleMatchStart(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.StartMatch(); err != nil {
		h.log.Info("match start refused", zap.Error(err))
		writeAppError(w, err)
		return
	}
	h.log.Info("⚔️ match started via API")
	writeJSON(w, map[string]bool{"success": true})
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeAppError maps an error code to its HTTP status.
func writeAppError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code.HTTPStatus())
	json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"code":  code.String(),
	})
}
