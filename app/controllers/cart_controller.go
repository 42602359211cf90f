package controllers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sumitghosal/zaika/app/models"
	"github.com/sumitghosal/zaika/app/services"
	"github.com/sumitghosal/zaika/pkg/bind"
	"github.com/sumitghosal/zaika/pkg/logger"
	"github.com/sumitghosal/zaika/pkg/response"
)

type CartController struct {
	service *services.CartService
}

func NewCartController(service *services.CartService) *CartController {
	return &CartController{service: service}
}

type addItemRequest struct {
	UserID         string `json:"userId" validate:"required,max=64"`
	FoodID         string `json:"foodId" validate:"required,max=64"`
	Quantity       int    `json:"quantity" validate:"nullable,integer,gte=0,lte=999"`
	Addons         []any  `json:"addons"`
	Notes          string `json:"notes" validate:"nullable,max=500"`
	IdempotencyKey string `json:"idempotencyKey" validate:"nullable,max=128"`
}

type setQuantityRequest struct {
	UserID   string `json:"userId" validate:"required,max=64"`
	Quantity int    `json:"quantity" validate:"integer,lte=999"`
}

type replaceAddonsRequest struct {
	UserID string  `json:"userId" validate:"required,max=64"`
	Addons []any   `json:"addons"`
	Notes  *string `json:"notes"`
}

type userRequest struct {
	UserID string `json:"userId" validate:"required,max=64"`
}

// Show handles GET /cart?userId= — returns the cart, creating an empty one
// on first access.
func (c *CartController) Show(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		response.ValidationError(w, map[string]string{"userId": "The userId field is required."})
		return
	}

	cart, err := c.service.GetOrCreate(r.Context(), userID)
	if err != nil {
		c.respondError(w, r, err)
		return
	}
	response.Success(w, cart)
}

// AddItem handles POST /cart/items.
func (c *CartController) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !c.decode(w, r, &req) {
		return
	}

	// Header takes precedence over the body field for retried requests.
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		req.IdempotencyKey = key
	}

	cart, err := c.service.AddItem(r.Context(), services.AddItemInput{
		UserID:         req.UserID,
		FoodID:         req.FoodID,
		Quantity:       req.Quantity,
		Addons:         req.Addons,
		Notes:          req.Notes,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		c.respondError(w, r, err)
		return
	}
	response.Success(w, cart)
}

// SetQuantity handles PATCH /cart/items/{lineId}/quantity. A quantity of
// zero (or below) removes the line.
func (c *CartController) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var req setQuantityRequest
	if !c.decode(w, r, &req) {
		return
	}

	cart, err := c.service.SetQuantity(r.Context(), req.UserID, chi.URLParam(r, "lineId"), req.Quantity)
	if err != nil {
		c.respondError(w, r, err)
		return
	}
	response.Success(w, cart)
}

// ReplaceAddons handles PUT /cart/items/{lineId}/addons.
func (c *CartController) ReplaceAddons(w http.ResponseWriter, r *http.Request) {
	var req replaceAddonsRequest
	if !c.decode(w, r, &req) {
		return
	}

	cart, err := c.service.ReplaceAddons(r.Context(), req.UserID, chi.URLParam(r, "lineId"), req.Addons, req.Notes)
	if err != nil {
		c.respondError(w, r, err)
		return
	}
	response.Success(w, cart)
}

// RemoveItem handles DELETE /cart/items/{lineId}.
func (c *CartController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !c.decode(w, r, &req) {
		return
	}

	cart, err := c.service.RemoveItem(r.Context(), req.UserID, chi.URLParam(r, "lineId"))
	if err != nil {
		c.respondError(w, r, err)
		return
	}
	response.Success(w, cart)
}

// Clear handles DELETE /cart/clear.
func (c *CartController) Clear(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !c.decode(w, r, &req) {
		return
	}

	cart, err := c.service.Clear(r.Context(), req.UserID)
	if err != nil {
		c.respondError(w, r, err)
		return
	}
	response.Success(w, cart)
}

// decode binds and validates the JSON body, writing the error response
// itself. Returns false when the request was already answered.
func (c *CartController) decode(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	errs, err := bind.JSON(r, dest)
	if err != nil {
		response.BadRequest(w, err.Error())
		return false
	}
	if errs != nil {
		response.ValidationError(w, errs)
		return false
	}
	return true
}

func (c *CartController) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrFoodNotFound):
		response.NotFound(w, "Food item not found")
	case errors.Is(err, models.ErrLineNotFound):
		response.NotFound(w, "Cart line not found")
	case errors.Is(err, models.ErrCartNotFound):
		response.NotFound(w, "Cart not found")
	case errors.Is(err, models.ErrVersionConflict):
		response.Error(w, http.StatusConflict, "Cart was modified concurrently, please retry")
	default:
		logger.WithCtx(r.Context()).Error("cart operation failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		response.ServerError(w)
	}
}
