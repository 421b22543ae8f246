package customer

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tanakrit-dev/backend-pos/internal/common"
	"github.com/tanakrit-dev/backend-pos/internal/store"
)

// Handler exposes customer lookup endpoints for the sale screen.
type Handler struct {
	Service *Service
}

// Get handles GET /api/v1/customers/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		common.Validation(w, "invalid customer id")
		return
	}
	c, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// Lookup handles GET /api/v1/customers?phone=... for the cashier's
// phone-number search.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		common.Validation(w, "phone is required")
		return
	}
	c, err := h.Service.FindByPhone(r.Context(), phone)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// Loyalty handles GET /api/v1/loyalty/settings.
func (h *Handler) Loyalty(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Service.LoyaltySettings(r.Context())
	if err != nil {
		if errors.Is(err, ErrRedemptionDisabled) {
			common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"enabled": false}})
			return
		}
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"enabled":           true,
		"pointValue":        settings.PointValue,
		"minPointsToRedeem": settings.MinPointsToRedeem,
		"pointsPerBaht":     settings.PointsPerBaht,
	}})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		common.NotFound(w, "customer not found")
		return
	}
	common.Internal(w)
}
