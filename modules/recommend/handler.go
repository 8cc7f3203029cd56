package recommend

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"outfit-studio-server/modules/common/fault"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type autoPickRequest struct {
	Theme string `json:"theme"`
}

// HandleAutoPick - POST /autopick
func (h *Handler) HandleAutoPick(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req autoPickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error": "invalid request format"})
		return
	}

	pick, err := h.service.AutoPick(r.Context(), req.Theme)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, fault.ErrNoCandidates) {
			status = http.StatusBadRequest
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error": err.Error()})
		return
	}

	log.Printf("🎯 [AutoPick] theme=%q → top=%s bottom=%s", req.Theme, pick.TopID, pick.BottomID)
	json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "pick": pick})
}
