package report

import (
	"net/http"
	"time"

	"github.com/tanakrit-dev/backend-pos/internal/common"
)

// Handler serves the end-of-day sales reports.
type Handler struct {
	Service *Service
}

// Daily handles GET /api/v1/reports/daily?date=2026-03-14. Without a date
// it reports the current day.
func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	day := time.Now()
	if h.Service.Now != nil {
		day = h.Service.Now()
	}
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, day.Location())
		if err != nil {
			common.Validation(w, "invalid date, expected YYYY-MM-DD")
			return
		}
		day = parsed
	}
	summary, err := h.Service.Daily(r.Context(), day)
	if err != nil {
		common.Internal(w)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summary})
}
