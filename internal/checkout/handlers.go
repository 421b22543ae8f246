package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tanakrit-dev/backend-pos/internal/cart"
	"github.com/tanakrit-dev/backend-pos/internal/catalog"
	"github.com/tanakrit-dev/backend-pos/internal/common"
	"github.com/tanakrit-dev/backend-pos/internal/customer"
	"github.com/tanakrit-dev/backend-pos/internal/discount"
	"github.com/tanakrit-dev/backend-pos/internal/money"
	"github.com/tanakrit-dev/backend-pos/internal/pricing"
	"github.com/tanakrit-dev/backend-pos/internal/store"
)

// Handler exposes the sale session endpoints under /api/v1/sale/{terminal}.
type Handler struct {
	Service   *Service
	Catalog   *catalog.Service
	Customers *customer.Service
	Discounts *discount.Service
}

func terminalID(r *http.Request) string {
	return chi.URLParam(r, "terminal")
}

// Snapshot handles GET /api/v1/sale/{terminal}.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.Snapshot(r.Context(), terminalID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

type addItemPayload struct {
	ProductID    int64   `json:"productId"`
	Barcode      string  `json:"barcode"`
	WeighedTotal string  `json:"weighedTotal"`
	ModifierIDs  []int64 `json:"modifierIds"`
	Quantity     int     `json:"quantity"`
}

// AddItem handles POST /api/v1/sale/{terminal}/items. The cashier either
// picks a product from the grid (productId + modifierIds) or scans a
// barcode, optionally with the scale-printed total for by-weight items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var payload addItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.BadRequest(w, "invalid payload")
		return
	}
	var (
		add cart.AddInput
		err error
	)
	switch {
	case payload.Barcode != "":
		in := catalog.ScanInput{Barcode: payload.Barcode}
		if payload.WeighedTotal != "" {
			total, perr := money.Parse(payload.WeighedTotal)
			if perr != nil {
				common.Validation(w, "invalid weighed total")
				return
			}
			in.WeighedTotal = &total
		}
		add, err = h.Catalog.Scan(r.Context(), in)
	case payload.ProductID != 0:
		add, err = h.Catalog.ResolveAdd(r.Context(), payload.ProductID, payload.ModifierIDs, payload.Quantity)
	default:
		common.Validation(w, "productId or barcode is required")
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.Service.AddItem(r.Context(), terminalID(r), add)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// UpdateItem handles PATCH /api/v1/sale/{terminal}/items/{key} with
// {"quantity": n}. Zero or less removes the line.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Quantity *int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Quantity == nil {
		common.BadRequest(w, "quantity is required")
		return
	}
	view, err := h.Service.UpdateQuantity(r.Context(), terminalID(r), chi.URLParam(r, "key"), *body.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// RemoveItem handles DELETE /api/v1/sale/{terminal}/items/{key}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.RemoveLine(r.Context(), terminalID(r), chi.URLParam(r, "key"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// ClearCart handles DELETE /api/v1/sale/{terminal}/items.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.ClearCart(r.Context(), terminalID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// SetCustomer handles PUT /api/v1/sale/{terminal}/customer with either a
// customerId or a phone. An empty body detaches the customer.
func (h *Handler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerID int64  `json:"customerId"`
		Phone      string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.BadRequest(w, "invalid payload")
		return
	}
	var attached *store.Customer
	switch {
	case body.CustomerID != 0:
		c, err := h.Customers.Get(r.Context(), body.CustomerID)
		if err != nil {
			h.writeError(w, err)
			return
		}
		attached = &c
	case body.Phone != "":
		c, err := h.Customers.FindByPhone(r.Context(), body.Phone)
		if err != nil {
			h.writeError(w, err)
			return
		}
		attached = &c
	}
	view, err := h.Service.AttachCustomer(r.Context(), terminalID(r), attached)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// SetManualDiscount handles PUT /api/v1/sale/{terminal}/discount with
// {"amount": "10.00"}.
func (h *Handler) SetManualDiscount(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.BadRequest(w, "invalid payload")
		return
	}
	amount, err := money.Parse(body.Amount)
	if err != nil || amount < 0 {
		common.Validation(w, "invalid discount amount")
		return
	}
	view, err := h.Service.SetManualDiscount(r.Context(), terminalID(r), amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// ApplyCode handles POST /api/v1/sale/{terminal}/code. The code is
// validated against the current subtotal before it attaches, so an
// ineligible code is rejected with a specific reason instead of silently
// pricing to zero.
func (h *Handler) ApplyCode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Code == "" {
		common.BadRequest(w, "code is required")
		return
	}
	view, err := h.Service.Snapshot(r.Context(), terminalID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	rule, err := h.Discounts.ValidateCode(r.Context(), body.Code, view.Cart.Subtotal())
	if err != nil {
		h.writeError(w, err)
		return
	}
	view, err = h.Service.ApplyCode(r.Context(), terminalID(r), rule)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// RemoveCode handles DELETE /api/v1/sale/{terminal}/code.
func (h *Handler) RemoveCode(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.RemoveCode(r.Context(), terminalID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// SetPoints handles PUT /api/v1/sale/{terminal}/points with {"points": n}.
func (h *Handler) SetPoints(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Points int64 `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.BadRequest(w, "invalid payload")
		return
	}
	view, err := h.Service.SetRedeemPoints(r.Context(), terminalID(r), body.Points)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// BeginPayment handles POST /api/v1/sale/{terminal}/checkout.
func (h *Handler) BeginPayment(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.BeginPayment(r.Context(), terminalID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// CancelPayment handles POST /api/v1/sale/{terminal}/cancel.
func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.CancelPayment(r.Context(), terminalID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// CommittedSale is the receipt payload returned after a successful commit.
// Monetary fields are fixed two-decimal strings.
type CommittedSale struct {
	TransactionNumber string              `json:"transactionNumber"`
	Subtotal          string              `json:"subtotal"`
	Discount          string              `json:"discount"`
	Tax               string              `json:"tax"`
	Total             string              `json:"total"`
	PaymentMethod     string              `json:"paymentMethod"`
	AmountReceived    string              `json:"amountReceived"`
	Change            string              `json:"change"`
	RedeemedPoints    int64               `json:"redeemedPoints"`
	EarnedPoints      int64               `json:"earnedPoints"`
	Items             []CommittedSaleItem `json:"items"`
	CreatedAt         string              `json:"createdAt"`
}

// CommittedSaleItem is one receipt line.
type CommittedSaleItem struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	Subtotal  string `json:"subtotal"`
}

// NewCommittedSale formats a stored transaction for the receipt payload.
func NewCommittedSale(txn store.Transaction) CommittedSale {
	out := CommittedSale{
		TransactionNumber: txn.Number,
		Subtotal:          money.Format(txn.Subtotal),
		Discount:          money.Format(txn.Discount),
		Tax:               money.Format(txn.Tax),
		Total:             money.Format(txn.Total),
		PaymentMethod:     txn.PaymentMethod,
		AmountReceived:    money.Format(txn.AmountReceived),
		Change:            money.Format(txn.Change),
		RedeemedPoints:    txn.RedeemedPoints,
		EarnedPoints:      txn.EarnedPoints,
		CreatedAt:         txn.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	for _, item := range txn.Items {
		out.Items = append(out.Items, CommittedSaleItem{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: money.Format(item.UnitPrice),
			Subtotal:  money.Format(item.Subtotal),
		})
	}
	return out
}

// Commit handles POST /api/v1/sale/{terminal}/commit with
// {"paymentMethod": "cash", "amountReceived": "100.00"}.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PaymentMethod  string `json:"paymentMethod"`
		AmountReceived string `json:"amountReceived"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.BadRequest(w, "invalid payload")
		return
	}
	method := pricing.Method(body.PaymentMethod)
	if !method.Valid() {
		common.Validation(w, "unknown payment method")
		return
	}
	var received money.Money
	if body.AmountReceived != "" {
		var err error
		if received, err = money.Parse(body.AmountReceived); err != nil {
			common.Validation(w, "invalid amount received")
			return
		}
	}
	txn, err := h.Service.Commit(r.Context(), CommitInput{
		TerminalID: terminalID(r),
		Method:     method,
		Received:   received,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": NewCommittedSale(txn)})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		common.NotFound(w, "resource not found")
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "cart is empty", nil)
	case errors.Is(err, ErrCartLocked):
		common.JSONError(w, http.StatusConflict, "CART_LOCKED", "cart is locked during payment", nil)
	case errors.Is(err, ErrInvalidPhase):
		common.JSONError(w, http.StatusConflict, "INVALID_PHASE", "operation not allowed in current phase", nil)
	case errors.Is(err, ErrNoCustomer):
		common.JSONError(w, http.StatusUnprocessableEntity, "NO_CUSTOMER", "no customer attached", nil)
	case errors.Is(err, ErrRedeemNotAllowed):
		common.JSONError(w, http.StatusUnprocessableEntity, "REDEEM_NOT_ALLOWED", "point redemption not allowed", nil)
	case errors.Is(err, pricing.ErrInsufficientPayment):
		common.JSONError(w, http.StatusUnprocessableEntity, "INSUFFICIENT_PAYMENT", "cash received does not cover the total", nil)
	case errors.Is(err, pricing.ErrUnknownMethod):
		common.Validation(w, "unknown payment method")
	case errors.Is(err, discount.ErrCodeNotFound):
		common.JSONError(w, http.StatusNotFound, "CODE_NOT_FOUND", "discount code not found", nil)
	case errors.Is(err, discount.ErrMinSpendUnmet):
		common.JSONError(w, http.StatusUnprocessableEntity, "MIN_BILL_UNMET", "bill does not reach the discount minimum", nil)
	case errors.Is(err, discount.ErrInactive):
		common.JSONError(w, http.StatusUnprocessableEntity, "CODE_INACTIVE", "discount code is not active", nil)
	case errors.Is(err, discount.ErrExpired):
		common.JSONError(w, http.StatusUnprocessableEntity, "CODE_EXPIRED", "discount code has expired", nil)
	case errors.Is(err, catalog.ErrProductInactive):
		common.JSONError(w, http.StatusConflict, "PRODUCT_INACTIVE", "product is not for sale", nil)
	case errors.Is(err, catalog.ErrWeightRequired):
		common.JSONError(w, http.StatusBadRequest, "WEIGHT_REQUIRED", "weighed total is required for this product", nil)
	case errors.Is(err, ErrCommitFailed):
		common.JSONError(w, http.StatusBadGateway, "COMMIT_FAILED", "sale could not be recorded, retry the payment", nil)
	default:
		common.Internal(w)
	}
}
