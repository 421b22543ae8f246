package discount

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tanakrit-dev/backend-pos/internal/common"
	"github.com/tanakrit-dev/backend-pos/internal/money"
)

// Handler exposes discount administration and code validation endpoints.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
}

type createPayload struct {
	Code       string     `json:"code"`
	Name       string     `json:"name" validate:"required"`
	Kind       string     `json:"kind" validate:"required,oneof=percentage fixed_amount bill_total product_specific"`
	Value      string     `json:"value"`
	PercentBps int        `json:"percentBps" validate:"gte=0,lte=10000"`
	MinBill    string     `json:"minBill"`
	MaxAmount  string     `json:"maxAmount"`
	ProductID  int64      `json:"productId"`
	AutoApply  bool       `json:"autoApply"`
	ValidFrom  *time.Time `json:"validFrom"`
	ValidTo    *time.Time `json:"validTo"`
}

// List handles GET /api/v1/discounts.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Service.List(r.Context())
	if err != nil {
		common.Internal(w)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rules})
}

// Create handles POST /api/v1/discounts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload createPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.BadRequest(w, "invalid payload")
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid discount", validationDetails(err))
		return
	}
	rule, err := payloadToRule(payload)
	if err != nil {
		common.Validation(w, err.Error())
		return
	}
	created, err := h.Service.Create(r.Context(), rule)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// SetActive handles PATCH /api/v1/discounts/{id} with {"active": bool}.
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.Validation(w, "invalid discount id")
		return
	}
	var body struct {
		Active *bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Active == nil {
		common.BadRequest(w, "active flag is required")
		return
	}
	if err := h.Service.SetActive(r.Context(), id, *body.Active); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": id, "active": *body.Active}})
}

// ValidateCode handles POST /api/v1/discounts/validate with
// {"code": "...", "subtotal": "80.00"}. It reports eligibility without
// attaching the code to any sale.
func (h *Handler) ValidateCode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code     string `json:"code"`
		Subtotal string `json:"subtotal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Code == "" {
		common.BadRequest(w, "code is required")
		return
	}
	subtotal, err := money.Parse(body.Subtotal)
	if err != nil {
		common.Validation(w, "invalid subtotal")
		return
	}
	rule, err := h.Service.ValidateCode(r.Context(), body.Code, subtotal)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rule})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCodeNotFound):
		common.JSONError(w, http.StatusNotFound, "CODE_NOT_FOUND", "discount code not found", nil)
	case errors.Is(err, ErrMinSpendUnmet):
		common.JSONError(w, http.StatusUnprocessableEntity, "MIN_BILL_UNMET", "bill does not reach the discount minimum", nil)
	case errors.Is(err, ErrInactive):
		common.JSONError(w, http.StatusUnprocessableEntity, "CODE_INACTIVE", "discount code is not active", nil)
	case errors.Is(err, ErrExpired):
		common.JSONError(w, http.StatusUnprocessableEntity, "CODE_EXPIRED", "discount code has expired", nil)
	case errors.Is(err, ErrInvalidKind), errors.Is(err, ErrInvalidRule):
		common.Validation(w, err.Error())
	default:
		common.Internal(w)
	}
}

func payloadToRule(p createPayload) (Rule, error) {
	rule := Rule{
		Code:       p.Code,
		Name:       p.Name,
		Kind:       Kind(p.Kind),
		PercentBps: p.PercentBps,
		ProductID:  p.ProductID,
		AutoApply:  p.AutoApply,
		Active:     true,
		ValidFrom:  p.ValidFrom,
		ValidTo:    p.ValidTo,
	}
	var err error
	if p.Value != "" {
		if rule.Value, err = money.Parse(p.Value); err != nil {
			return Rule{}, errors.New("invalid value amount")
		}
	}
	if p.MinBill != "" {
		if rule.MinBill, err = money.Parse(p.MinBill); err != nil {
			return Rule{}, errors.New("invalid minBill amount")
		}
	}
	if p.MaxAmount != "" {
		if rule.MaxAmount, err = money.Parse(p.MaxAmount); err != nil {
			return Rule{}, errors.New("invalid maxAmount amount")
		}
	}
	return rule, nil
}

func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}
