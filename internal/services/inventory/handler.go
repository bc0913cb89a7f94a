package inventory

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"cafe-pos/internal/auth"
	"cafe-pos/internal/httpapi"
	"cafe-pos/internal/lifecycle"
	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"
)

// Handler serves the back-office API. Every route is staff-only.
type Handler struct {
	service *Service
	tokens  *auth.Tokens
	logger  *logger.Logger
}

func NewHandler(service *Service, tokens *auth.Tokens, log *logger.Logger) *Handler {
	return &Handler{service: service, tokens: tokens, logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.Require(h.tokens, lifecycle.Staff))

		r.Get("/inventory/summary", h.Summary)

		r.Get("/materials", h.ListMaterials)
		r.Post("/materials", h.CreateMaterial)
		r.Put("/materials/{id}", h.UpdateMaterial)
		r.Delete("/materials/{id}", h.DeleteMaterial)
		r.Post("/materials/{id}/adjust", h.AdjustStock)

		r.Get("/purchases", h.ListPurchases)
		r.Post("/purchases", h.CreatePurchase)
		r.Delete("/purchases/{id}", h.DeletePurchase)

		r.Get("/suppliers", h.ListSuppliers)
		r.Post("/suppliers", h.CreateSupplier)
		r.Put("/suppliers/{id}", h.UpdateSupplier)
		r.Delete("/suppliers/{id}", h.DeleteSupplier)

		r.Get("/recipes", h.ListRecipe)
		r.Put("/recipes", h.SetRecipeEntry)
		r.Delete("/recipes/{id}", h.DeleteRecipeEntry)

		r.Get("/costing", h.CostingAll)
		r.Get("/costing/{menuItemID}", h.Costing)
	})
}

// fail writes the response for a service error.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	requestID := httpapi.RequestID(r.Context())

	var verr models.ValidationError
	switch {
	case errors.As(err, &verr):
		httpapi.WriteError(w, http.StatusBadRequest, verr.Error(), requestID)
	case errors.Is(err, models.ErrNotFound):
		httpapi.WriteError(w, http.StatusNotFound, "Not found", requestID)
	default:
		h.logger.Error(action, "Back-office request failed", requestID, err, map[string]interface{}{
			"path": r.URL.Path,
		})
		httpapi.WriteError(w, http.StatusInternalServerError, "Internal server error", requestID)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := httpapi.DecodeJSON(w, r, v); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "Invalid JSON format", httpapi.RequestID(r.Context()))
		return false
	}
	return true
}

// Summary handles GET /inventory/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.fail(w, r, "inventory_summary_failed", err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, summary)
}

// ListMaterials handles GET /materials?q=
func (h *Handler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := h.service.ListMaterials(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, "materials_list_failed", err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]interface{}{"materials": materials})
}

func (h *Handler) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	var in MaterialInput
	if !h.decode(w, r, &in) {
		return
	}
	m, err := h.service.CreateMaterial(r.Context(), in, httpapi.RequestID(r.Context()))
	if err != nil {
		h.fail(w, r, "material_create_failed", err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, m)
}

func (h *Handler) UpdateMaterial(w http.ResponseWriter, r *http.Request) {
	var in MaterialInput
	if !h.decode(w, r, &in) {
		return
	}
	m, err := h.service.UpdateMaterial(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, "material_update_failed", err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) DeleteMaterial(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteMaterial(r.Context(), chi.URLParam(r, "id"), httpapi.RequestID(r.Context())); err != nil {
		h.fail(w, r, "material_delete_failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type adjustRequest struct {
	Delta decimal.Decimal `json:"delta"`
}

// AdjustStock handles POST /materials/{id}/adjust
func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if !h.decode(w, r, &req) {
		return
	}
	m, err := h.service.AdjustStock(r.Context(), chi.URLParam(r, "id"), req.Delta, httpapi.RequestID(r.Context()))
	if err != nil {
		h.fail(w, r, "stock_adjust_failed", err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := h.service.ListPurchases(r.Context())
	if err != nil {
		h.fail(w, r, "purchases_list_failed", err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]interface{}{"purchases": purchases})
}

func (h *Handler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	var in PurchaseInput
	if !h.decode(w, r, &in) {
		return
	}
	result, err := h.service.CreatePurchase(r.Context(), in, httpapi.RequestID(r.Context()))
	if err != nil {
		h.fail(w, r, "purchase_create_failed", err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) DeletePurchase(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePurchase(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "purchase_delete_failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.service.ListSuppliers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, "suppliers_list_failed", err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]interface{}{"suppliers": suppliers})
}

func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var in SupplierInput
	if !h.decode(w, r, &in) {
		return
	}
	sup, err := h.service.CreateSupplier(r.Context(), in)
	if err != nil {
		h.fail(w, r, "supplier_create_failed", err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, sup)
}

func (h *Handler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	var in SupplierInput
	if !h.decode(w, r, &in) {
		return
	}
	sup, err := h.service.UpdateSupplier(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, "supplier_update_failed", err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, sup)
}

func (h *Handler) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSupplier(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "supplier_delete_failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRecipe handles GET /recipes?menu_item_id=
func (h *Handler) ListRecipe(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListRecipe(r.Context(), r.URL.Query().Get("menu_item_id"))
	if err != nil {
		h.fail(w, r, "recipes_list_failed", err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// SetRecipeEntry handles PUT /recipes
func (h *Handler) SetRecipeEntry(w http.ResponseWriter, r *http.Request) {
	var in RecipeInput
	if !h.decode(w, r, &in) {
		return
	}
	e, err := h.service.SetRecipeEntry(r.Context(), in)
	if err != nil {
		h.fail(w, r, "recipe_save_failed", err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) DeleteRecipeEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRecipeEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "recipe_delete_failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CostingAll handles GET /costing
func (h *Handler) CostingAll(w http.ResponseWriter, r *http.Request) {
	reports, err := h.service.CostingAll(r.Context())
	if err != nil {
		h.fail(w, r, "costing_failed", err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]interface{}{"items": reports})
}

// Costing handles GET /costing/{menuItemID}
func (h *Handler) Costing(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Costing(r.Context(), chi.URLParam(r, "menuItemID"))
	if err != nil {
		h.fail(w, r, "costing_failed", err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, report)
}
