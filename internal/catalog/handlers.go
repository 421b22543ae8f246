package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tanakrit-dev/backend-pos/internal/common"
	"github.com/tanakrit-dev/backend-pos/internal/money"
	"github.com/tanakrit-dev/backend-pos/internal/store"
)

// Handler exposes the catalog endpoints used by the sale screen.
type Handler struct {
	Service *Service
}

// Products handles GET /api/v1/products.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	products, err := h.Service.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": products})
}

// ProductDetail handles GET /api/v1/products/{id}.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		common.Validation(w, "invalid product id")
		return
	}
	detail, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}

// Scan handles GET /api/v1/products/scan?barcode=...&total=... where total is
// the weighed price printed by a scale for by-weight products.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	barcode := r.URL.Query().Get("barcode")
	if barcode == "" {
		common.Validation(w, "barcode is required")
		return
	}
	in := ScanInput{Barcode: barcode}
	if raw := r.URL.Query().Get("total"); raw != "" {
		total, err := money.Parse(raw)
		if err != nil {
			common.Validation(w, "invalid weighed total")
			return
		}
		in.WeighedTotal = &total
	}
	add, err := h.Service.Scan(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": add})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		common.NotFound(w, "product not found")
	case errors.Is(err, ErrProductInactive):
		common.JSONError(w, http.StatusConflict, "PRODUCT_INACTIVE", "product is not for sale", nil)
	case errors.Is(err, ErrWeightRequired):
		common.JSONError(w, http.StatusBadRequest, "WEIGHT_REQUIRED", "weighed total is required for this product", nil)
	default:
		common.Internal(w)
	}
}
