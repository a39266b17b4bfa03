package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Andres4532/solhana-storefront/internal/service"
	"github.com/Andres4532/solhana-storefront/internal/session"
	"github.com/Andres4532/solhana-storefront/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service  *service.CartService
	sessions *session.Manager
	logger   *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, sessions *session.Manager, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service:  svc,
		sessions: sessions,
		logger:   logger,
	}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding an item to the cart.
type AddItemRequest struct {
	ProductID string  `json:"product_id" validate:"required"`
	VariantID *string `json:"variant_id,omitempty"`
	Color     *string `json:"color,omitempty"`
	Size      *string `json:"size,omitempty"`
	Quantity  int     `json:"quantity" validate:"required,gte=1"`
}

// UpdateQuantityRequest is the JSON request body for setting a line quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// AvailabilityRequest is the JSON request body for the availability probe.
type AvailabilityRequest struct {
	Color   *string `json:"color,omitempty"`
	Size    *string `json:"size,omitempty"`
	Changed string  `json:"changed,omitempty" validate:"omitempty,oneof=color size"`
	Value   string  `json:"value,omitempty"`
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(r)
	if !ok {
		writeBadRequest(w, "no cart owner could be resolved")
		return
	}

	cart, err := h.service.GetCart(r.Context(), owner)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: cart})
}

// AddItem handles POST /api/v1/cart/lines
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(r)
	if !ok {
		writeBadRequest(w, "no cart owner could be resolved")
		return
	}

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	cart, err := h.service.AddItem(r.Context(), owner, service.AddItemInput{
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Color:     req.Color,
		Size:      req.Size,
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: cart})
}

// UpdateLine handles PUT /api/v1/cart/lines/{lineID}
func (h *CartHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(r)
	if !ok {
		writeBadRequest(w, "no cart owner could be resolved")
		return
	}

	lineID := chi.URLParam(r, "lineID")
	if lineID == "" {
		writeBadRequest(w, "lineID is required")
		return
	}

	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	cart, err := h.service.UpdateLineQuantity(r.Context(), owner, lineID, service.UpdateQuantityInput{Quantity: req.Quantity})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: cart})
}

// RemoveLine handles DELETE /api/v1/cart/lines/{lineID}
func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(r)
	if !ok {
		writeBadRequest(w, "no cart owner could be resolved")
		return
	}

	lineID := chi.URLParam(r, "lineID")
	if lineID == "" {
		writeBadRequest(w, "lineID is required")
		return
	}

	cart, err := h.service.RemoveLine(r.Context(), owner, lineID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: cart})
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(r)
	if !ok {
		writeBadRequest(w, "no cart owner could be resolved")
		return
	}

	if err := h.service.ClearCart(r.Context(), owner, "manual"); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]string{"status": "cleared"}})
}

// Availability handles POST /api/v1/products/{productID}/availability
func (h *CartHandler) Availability(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(r)
	if !ok {
		writeBadRequest(w, "no cart owner could be resolved")
		return
	}

	productID := chi.URLParam(r, "productID")
	if productID == "" {
		writeBadRequest(w, "productID is required")
		return
	}

	var req AvailabilityRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid request body: "+err.Error())
			return
		}
		if err := validator.Validate(req); err != nil {
			writeValidationError(w, err)
			return
		}
	}

	avail, err := h.service.Availability(r.Context(), owner, productID, service.AvailabilityInput{
		Color:   req.Color,
		Size:    req.Size,
		Changed: req.Changed,
		Value:   req.Value,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: avail})
}

// ClaimCart handles POST /api/v1/cart/claim. Called right after login to
// re-own the anonymous cart; requires both an authenticated customer and a
// live session cookie.
func (h *CartHandler) ClaimCart(w http.ResponseWriter, r *http.Request) {
	customerID := r.Header.Get(CustomerIDHeader)
	if customerID == "" {
		writeJSON(w, http.StatusUnauthorized, response{
			Error: &errorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeBadRequest(w, "no anonymous session to claim")
		return
	}

	cart, err := h.service.ClaimSessionCart(r.Context(), sess.Token, customerID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	// The anonymous identity is spent once its cart is claimed.
	expireSessionCookies(w)

	writeJSON(w, http.StatusOK, response{Data: cart})
}

// SignOut handles POST /api/v1/session/signout. Purges the anonymous cart
// best-effort and drops the cookies; it never fails visibly.
func (h *CartHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if sess, ok := sessionFromContext(r.Context()); ok {
		h.sessions.Clear(r.Context(), sess.Token)
	}
	expireSessionCookies(w)

	writeJSON(w, http.StatusOK, response{Data: map[string]string{"status": "signed_out"}})
}
