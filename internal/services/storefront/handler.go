package storefront

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"cafe-pos/internal/cart"
	"cafe-pos/internal/checkout"
	"cafe-pos/internal/httpapi"
	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"
	"cafe-pos/internal/pricing"
	"cafe-pos/internal/session"
)

const (
	sessionHeader = "X-Session-ID"
	cookieMaxAge  = 12 * time.Hour
)

// Handler serves the storefront API.
type Handler struct {
	menu     MenuStore
	sessions *session.Manager
	checkout *checkout.Service
	currency string
	logger   *logger.Logger
}

func NewHandler(menu MenuStore, sessions *session.Manager, co *checkout.Service, currency string, log *logger.Logger) *Handler {
	return &Handler{menu: menu, sessions: sessions, checkout: co, currency: currency, logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/menu", h.ListMenu)
	r.Get("/menu/{id}", h.GetMenuItem)

	r.Post("/session", h.StartSession)
	r.Get("/session", h.GetSession)
	r.Put("/session/table", h.SetTable)
	r.Delete("/session/table", h.ClearTable)
	r.Put("/session/service-type", h.SetServiceType)
	r.Delete("/session", h.EndSession)

	r.Get("/cart", h.GetCart)
	r.Post("/cart/items", h.AddItem)
	r.Patch("/cart/items/{lineID}", h.UpdateItem)
	r.Delete("/cart/items/{lineID}", h.RemoveItem)
	r.Delete("/cart", h.ClearCart)

	r.Post("/checkout", h.Checkout)
}

// MenuItemView is a menu item with its display prices resolved.
type MenuItemView struct {
	models.MenuItem
	Price                 decimal.Decimal      `json:"price"`
	PriceLabel            string               `json:"price_label"`
	DiscountPercent       int64                `json:"discount_percent,omitempty"`
	OnSale                bool                 `json:"on_sale"`
	RequiresCustomization bool                 `json:"requires_customization"`
	LowStock              bool                 `json:"low_stock"`
	AddOnGroups           []pricing.AddOnGroup `json:"add_on_groups"`
}

func (h *Handler) newMenuItemView(item *models.MenuItem) MenuItemView {
	price := pricing.EffectivePrice(item)
	_, onSale := pricing.Discount(item)
	groups := pricing.GroupAddOns(item)
	if groups == nil {
		groups = []pricing.AddOnGroup{}
	}
	return MenuItemView{
		MenuItem:              *item,
		Price:                 price,
		PriceLabel:            pricing.FormatCurrency(price, h.currency),
		DiscountPercent:       pricing.DiscountPercent(item),
		OnSale:                onSale,
		RequiresCustomization: pricing.RequiresCustomization(item),
		LowStock:              item.LowOnStock(),
		AddOnGroups:           groups,
	}
}

// ListMenu handles GET /menu. Unavailable items are hidden; ?category= narrows
// the list.
func (h *Handler) ListMenu(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())

	items, err := h.menu.ListMenu(r.Context())
	if err != nil {
		h.logger.Error("menu_list_failed", "Failed to load menu", requestID, err, nil)
		httpapi.WriteError(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	category := strings.TrimSpace(r.URL.Query().Get("category"))
	views := make([]MenuItemView, 0, len(items))
	for i := range items {
		if !items[i].Available {
			continue
		}
		if category != "" && !strings.EqualFold(items[i].Category, category) {
			continue
		}
		views = append(views, h.newMenuItemView(&items[i]))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]interface{}{"items": views})
}

// GetMenuItem handles GET /menu/{id}
func (h *Handler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())

	item, err := h.menu.GetMenuItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			httpapi.WriteError(w, http.StatusNotFound, "Menu item not found", requestID)
			return
		}
		h.logger.Error("menu_item_failed", "Failed to load menu item", requestID, err, nil)
		httpapi.WriteError(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, h.newMenuItemView(item))
}

type startSessionRequest struct {
	Table string `json:"table"`
}

// StartSession handles POST /session. The table usually comes from the QR
// code's ?table= link and may be sent either way.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())

	req := startSessionRequest{Table: r.URL.Query().Get("table")}
	if r.ContentLength > 0 {
		if err := httpapi.DecodeJSON(w, r, &req); err != nil {
			httpapi.WriteError(w, http.StatusBadRequest, "Invalid JSON format", requestID)
			return
		}
	}

	sess, err := h.sessions.Start(r.Context(), req.Table)
	if err != nil {
		h.logger.Error("session_start_failed", "Failed to start session", requestID, err, nil)
		httpapi.WriteError(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}
	setSessionCookie(w, sess.ID)
	_ = httpapi.WriteJSON(w, http.StatusCreated, sess.View())
}

// GetSession handles GET /session
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r, false)
	if !ok {
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, sess.View())
}

type tableRequest struct {
	Table string `json:"table"`
}

// SetTable handles PUT /session/table
func (h *Handler) SetTable(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())
	sess, ok := h.session(w, r, true)
	if !ok {
		return
	}

	var req tableRequest
	if err := httpapi.DecodeJSON(w, r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}
	if err := h.sessions.SetTable(r.Context(), sess, req.Table); err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, sess.View())
}

// ClearTable handles DELETE /session/table
func (h *Handler) ClearTable(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())
	sess, ok := h.session(w, r, false)
	if !ok {
		return
	}
	if err := h.sessions.ClearTable(r.Context(), sess); err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, sess.View())
}

type serviceTypeRequest struct {
	ServiceType string `json:"service_type"`
}

// SetServiceType handles PUT /session/service-type
func (h *Handler) SetServiceType(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())
	sess, ok := h.session(w, r, true)
	if !ok {
		return
	}

	var req serviceTypeRequest
	if err := httpapi.DecodeJSON(w, r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}
	if err := h.sessions.SetServiceType(r.Context(), sess, req.ServiceType); err != nil {
		var verr models.ValidationError
		if errors.As(err, &verr) {
			httpapi.WriteError(w, http.StatusBadRequest, verr.Error(), requestID)
			return
		}
		httpapi.WriteError(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, sess.View())
}

// EndSession handles DELETE /session
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())

	if id := sessionID(r); id != "" {
		if err := h.sessions.End(r.Context(), id); err != nil {
			h.logger.Error("session_end_failed", "Failed to end session", requestID, err, nil)
			httpapi.WriteError(w, http.StatusInternalServerError, "Internal server error", requestID)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{Name: session.CookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	w.WriteHeader(http.StatusNoContent)
}

// CartView is the cart as the storefront shows it.
type CartView struct {
	Lines      []LineView      `json:"lines"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	TotalLabel string          `json:"total_label"`
}

// LineView is a cart line with its subtotal.
type LineView struct {
	cart.Line
	Subtotal decimal.Decimal `json:"subtotal"`
}

func (h *Handler) newCartView(c *cart.Cart) CartView {
	lines := c.Lines()
	views := make([]LineView, len(lines))
	for i, l := range lines {
		views[i] = LineView{Line: l, Subtotal: l.Subtotal()}
	}
	total := c.TotalPrice()
	return CartView{
		Lines:      views,
		TotalItems: c.TotalItems(),
		TotalPrice: total,
		TotalLabel: pricing.FormatCurrency(total, h.currency),
	}
}

// GetCart handles GET /cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r, true)
	if !ok {
		return
	}
	var view CartView
	_ = sess.Do(func(c *cart.Cart) error {
		view = h.newCartView(c)
		return nil
	})
	_ = httpapi.WriteJSON(w, http.StatusOK, view)
}

type addOnRequest struct {
	AddOnID string `json:"add_on_id"`
	Count   int    `json:"count"`
}

type addItemRequest struct {
	MenuItemID  string         `json:"menu_item_id"`
	Quantity    int            `json:"quantity"`
	VariationID string         `json:"variation_id,omitempty"`
	AddOns      []addOnRequest `json:"add_ons,omitempty"`
}

// AddItem handles POST /cart/items
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())
	sess, ok := h.session(w, r, true)
	if !ok {
		return
	}

	var req addItemRequest
	if err := httpapi.DecodeJSON(w, r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	item, err := h.menu.GetMenuItem(r.Context(), req.MenuItemID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			httpapi.WriteError(w, http.StatusNotFound, "Menu item not found", requestID)
			return
		}
		h.logger.Error("menu_item_failed", "Failed to load menu item", requestID, err, nil)
		httpapi.WriteError(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	var variation *models.Variation
	if req.VariationID != "" {
		variation = &models.Variation{ID: req.VariationID}
	}
	selections := make([]models.AddOnSelection, len(req.AddOns))
	for i, a := range req.AddOns {
		selections[i] = models.AddOnSelection{AddOn: models.AddOn{ID: a.AddOnID}, Count: a.Count}
	}

	var (
		line cart.Line
		view CartView
	)
	err = sess.Do(func(c *cart.Cart) error {
		var err error
		if line, err = c.Add(item, req.Quantity, variation, selections); err != nil {
			return err
		}
		view = h.newCartView(c)
		return nil
	})
	if err != nil {
		httpapi.WriteError(w, cartErrorStatus(err), err.Error(), requestID)
		return
	}

	h.logger.Debug("cart_item_added", "Item added to cart", requestID, map[string]interface{}{
		"session_id": sess.ID,
		"line_id":    line.ID,
		"quantity":   req.Quantity,
	})
	_ = httpapi.WriteJSON(w, http.StatusCreated, view)
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateItem handles PATCH /cart/items/{lineID}. A quantity of zero removes the line.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())
	sess, ok := h.session(w, r, false)
	if !ok {
		return
	}

	var req quantityRequest
	if err := httpapi.DecodeJSON(w, r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	var view CartView
	err := sess.Do(func(c *cart.Cart) error {
		if err := c.UpdateQuantity(chi.URLParam(r, "lineID"), req.Quantity); err != nil {
			return err
		}
		view = h.newCartView(c)
		return nil
	})
	if err != nil {
		httpapi.WriteError(w, cartErrorStatus(err), err.Error(), requestID)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, view)
}

// RemoveItem handles DELETE /cart/items/{lineID}
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r, false)
	if !ok {
		return
	}
	var view CartView
	_ = sess.Do(func(c *cart.Cart) error {
		c.Remove(chi.URLParam(r, "lineID"))
		view = h.newCartView(c)
		return nil
	})
	_ = httpapi.WriteJSON(w, http.StatusOK, view)
}

// ClearCart handles DELETE /cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r, false)
	if !ok {
		return
	}
	var view CartView
	_ = sess.Do(func(c *cart.Cart) error {
		c.Clear()
		view = h.newCartView(c)
		return nil
	})
	_ = httpapi.WriteJSON(w, http.StatusOK, view)
}

type checkoutFailure struct {
	Error     string        `json:"error"`
	Kind      checkout.Kind `json:"kind"`
	Notice    string        `json:"notice"`
	RequestID string        `json:"request_id"`
}

// Checkout handles POST /checkout. Failures carry the notice the customer sees.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())
	sess, ok := h.session(w, r, false)
	if !ok {
		return
	}

	var d checkout.Details
	if err := httpapi.DecodeJSON(w, r, &d); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	resp, err := h.checkout.Submit(ctx, sess, d, requestID)
	if err != nil {
		var verr models.ValidationError
		switch {
		case errors.As(err, &verr):
			httpapi.WriteError(w, http.StatusBadRequest, verr.Error(), requestID)
		case errors.Is(err, checkout.ErrEmptyCart):
			httpapi.WriteError(w, http.StatusBadRequest, err.Error(), requestID)
		case errors.Is(err, checkout.ErrAlreadySubmitting):
			httpapi.WriteError(w, http.StatusConflict, err.Error(), requestID)
		default:
			failure := checkout.Classify(err)
			_ = httpapi.WriteJSON(w, failureStatus(failure.Kind), checkoutFailure{
				Error:     err.Error(),
				Kind:      failure.Kind,
				Notice:    failure.Notice,
				RequestID: requestID,
			})
		}
		return
	}

	_ = httpapi.WriteJSON(w, http.StatusCreated, resp)
}

func failureStatus(k checkout.Kind) int {
	switch k {
	case checkout.KindInsufficientStock:
		return http.StatusConflict
	case checkout.KindRateLimited, checkout.KindMissingIdentifiers:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

func cartErrorStatus(err error) int {
	switch {
	case errors.Is(err, cart.ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrUnavailable):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// session resolves the caller's session. With create set, a missing or
// unknown session is replaced by a new one and its cookie is issued.
func (h *Handler) session(w http.ResponseWriter, r *http.Request, create bool) (*session.Session, bool) {
	requestID := httpapi.RequestID(r.Context())

	sess, err := h.sessions.Get(r.Context(), sessionID(r))
	if err == nil {
		return sess, true
	}
	if !errors.Is(err, session.ErrSessionNotFound) {
		h.logger.Error("session_lookup_failed", "Failed to load session", requestID, err, nil)
		httpapi.WriteError(w, http.StatusInternalServerError, "Internal server error", requestID)
		return nil, false
	}
	if !create {
		httpapi.WriteError(w, http.StatusNotFound, "Session not found", requestID)
		return nil, false
	}

	sess, err = h.sessions.Start(r.Context(), "")
	if err != nil {
		h.logger.Error("session_start_failed", "Failed to start session", requestID, err, nil)
		httpapi.WriteError(w, http.StatusInternalServerError, "Internal server error", requestID)
		return nil, false
	}
	setSessionCookie(w, sess.ID)
	return sess, true
}

func sessionID(r *http.Request) string {
	if id := r.Header.Get(sessionHeader); id != "" {
		return id
	}
	if c, err := r.Cookie(session.CookieName); err == nil {
		return c.Value
	}
	return ""
}

func setSessionCookie(w http.ResponseWriter, id string) {
	w.Header().Set(sessionHeader, id)
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
