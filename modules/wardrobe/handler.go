package wardrobe

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"outfit-studio-server/modules/common/fault"
)

// 25MB cap on uploaded images.
const maxUploadBytes = 25 << 20

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, fault.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, fault.ErrInvalidSelection), errors.Is(err, fault.ErrNoCandidates):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]interface{}{"ok": false, "error": err.Error()})
}

func readUpload(r *http.Request) (string, []byte, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", nil, err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

// HandleUploadClothing - POST /upload/clothing
// Multipart form: item_type ("top"/"bottom"), tags (comma separated), file.
func (h *Handler) HandleUploadClothing(w http.ResponseWriter, r *http.Request) {
	kind := strings.ToLower(strings.TrimSpace(r.FormValue("item_type")))
	if !ValidKind(kind) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"ok": false, "error": "item_type must be 'top' or 'bottom'",
		})
		return
	}

	filename, data, err := readUpload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": "file is required"})
		return
	}

	var tags []string
	for _, tag := range strings.Split(r.FormValue("tags"), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	item, err := h.store.AddItem(r.Context(), kind, filename, data, tags)
	if err != nil {
		log.Printf("❌ [Wardrobe] Upload clothing failed: %v", err)
		writeError(w, err)
		return
	}

	log.Printf("👕 [Wardrobe] Added %s %s (%d tags, %d bytes)", kind, item.ID, len(tags), len(data))
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "item": item})
}

// HandleUploadReference - POST /upload/reference
func (h *Handler) HandleUploadReference(w http.ResponseWriter, r *http.Request) {
	filename, data, err := readUpload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": "file is required"})
		return
	}

	ref, err := h.store.AddReference(r.Context(), filename, data)
	if err != nil {
		log.Printf("❌ [Wardrobe] Upload reference failed: %v", err)
		writeError(w, err)
		return
	}

	log.Printf("🧍 [Wardrobe] Added reference %s (%d bytes)", ref.ID, len(data))
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "ref": ref})
}

// HandleListTops - GET /wardrobe/tops
func (h *Handler) HandleListTops(w http.ResponseWriter, r *http.Request) {
	h.listItems(w, r, KindTop)
}

// HandleListBottoms - GET /wardrobe/bottoms
func (h *Handler) HandleListBottoms(w http.ResponseWriter, r *http.Request) {
	h.listItems(w, r, KindBottom)
}

// HandleListItems - GET /wardrobe/items?kind=top|bottom
func (h *Handler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	kind := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("kind")))
	if kind != "" && !ValidKind(kind) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"ok": false, "error": "kind must be 'top' or 'bottom'",
		})
		return
	}
	h.listItems(w, r, kind)
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request, kind string) {
	items, err := h.store.ListItems(r.Context(), kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "items": items})
}

// HandleListReferences - GET /user/refs
func (h *Handler) HandleListReferences(w http.ResponseWriter, r *http.Request) {
	refs, err := h.store.ListReferences(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "refs": refs})
}

// HandleDeleteItem - DELETE /wardrobe/items/{id}
// Cache entries referencing the id survive: generated artifacts stay servable.
func (h *Handler) HandleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.DeleteItem(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	log.Printf("🗑️  [Wardrobe] Deleted item %s", id)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// HandleDeleteReference - DELETE /user/refs/{id}
func (h *Handler) HandleDeleteReference(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.DeleteReference(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	log.Printf("🗑️  [Wardrobe] Deleted reference %s", id)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
