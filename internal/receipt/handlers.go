package receipt

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tanakrit-dev/backend-pos/internal/common"
	"github.com/tanakrit-dev/backend-pos/internal/store"
)

// Handler serves receipt renderings for committed transactions.
type Handler struct {
	Renderer *Renderer
}

// Text handles GET /api/v1/receipts/{number} as plain text.
func (h *Handler) Text(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	body, err := h.Renderer.Text(r.Context(), number)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// PDF handles GET /api/v1/receipts/{number}/pdf.
func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	body, err := h.Renderer.PDF(r.Context(), number)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=receipt-"+number+".pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		common.NotFound(w, "transaction not found")
		return
	}
	common.Internal(w)
}
