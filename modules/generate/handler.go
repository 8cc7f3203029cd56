package generate

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"outfit-studio-server/modules/common/fault"
	"outfit-studio-server/modules/gencache"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, fault.ErrInvalidSelection):
		return http.StatusBadRequest
	case errors.Is(err, fault.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// HandleGenerate - POST /generate
// Body: {"ref_id"?: string, "top_id": string, "bottom_id": string, "theme": string}
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": "invalid request format"})
		return
	}
	if strings.TrimSpace(req.TopID) == "" || strings.TrimSpace(req.BottomID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": "top_id and bottom_id are required"})
		return
	}

	result, err := h.service.Generate(r.Context(), &req)
	if err != nil {
		log.Printf("❌ [Generate] Request failed: %v", err)
		writeJSON(w, statusForError(err), map[string]interface{}{"ok": false, "error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":           true,
		"output_url":   result.ArtifactRef,
		"artifact_ref": result.ArtifactRef,
		"status":       result.Status,
		"cached":       result.Cached,
	})
}

type invalidateRequest struct {
	Fingerprint string `json:"fingerprint,omitempty"`
	RefID       string `json:"ref_id,omitempty"`
	TopID       string `json:"top_id,omitempty"`
	BottomID    string `json:"bottom_id,omitempty"`
	Theme       string `json:"theme,omitempty"`
}

// HandleInvalidate - POST /admin/cache/invalidate
// Accepts either an explicit fingerprint or a selection to fingerprint.
// Dropping a fallback entry is how a recovered provider gets retried.
func (h *Handler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": "invalid request format"})
		return
	}

	fingerprint := req.Fingerprint
	if fingerprint == "" {
		if req.TopID == "" || req.BottomID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"ok": false, "error": "fingerprint or top_id/bottom_id required",
			})
			return
		}
		fingerprint = gencache.Fingerprint(req.RefID, req.TopID, req.BottomID, req.Theme)
	}

	if err := h.service.Invalidate(r.Context(), fingerprint); err != nil {
		writeJSON(w, statusForError(err), map[string]interface{}{"ok": false, "error": err.Error()})
		return
	}

	log.Printf("🧹 [Generate] Invalidated cache entry %s", shortFP(fingerprint))
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "fingerprint": fingerprint})
}
