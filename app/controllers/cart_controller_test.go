package controllers_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumitghosal/zaika/app/controllers"
	"github.com/sumitghosal/zaika/app/models"
	"github.com/sumitghosal/zaika/app/routes"
	"github.com/sumitghosal/zaika/app/services"
	"github.com/sumitghosal/zaika/pkg/router"
	"github.com/sumitghosal/zaika/pkg/testkit"
)

type memCatalog struct {
	foods  map[string]models.Food
	addons map[string]models.Addon
}

func (c *memCatalog) GetFood(_ context.Context, foodID string) (models.Food, error) {
	food, ok := c.foods[foodID]
	if !ok {
		return models.Food{}, models.ErrFoodNotFound
	}
	return food, nil
}

func (c *memCatalog) GetAddons(_ context.Context, ids []string) (map[string]models.Addon, error) {
	out := map[string]models.Addon{}
	for _, id := range ids {
		if a, ok := c.addons[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

type memStore struct {
	mu    sync.Mutex
	carts map[string]models.Cart
}

func (s *memStore) Find(_ context.Context, userID string) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.carts[userID]
	if !ok {
		return nil, nil
	}
	return &cart, nil
}

func (s *memStore) Upsert(_ context.Context, cart *models.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.carts[cart.UserID]; ok && existing.Version != cart.Version {
		return models.ErrVersionConflict
	}
	cart.Version++
	s.carts[cart.UserID] = *cart
	return nil
}

func newTestHandler() http.Handler {
	catalog := &memCatalog{
		foods: map[string]models.Food{
			"f1": {ID: "f1", Name: "Margherita", Price: 1000},
		},
		addons: map[string]models.Addon{
			"a1": {ID: "a1", Name: "Extra Cheese", Price: 200},
		},
	}
	store := &memStore{carts: map[string]models.Cart{}}

	r := router.New()
	routes.RegisterAPI(r, controllers.NewCartController(services.NewCartService(catalog, store)))
	return r.Handler()
}

func TestShowCreatesEmptyCart(t *testing.T) {
	h := newTestHandler()

	rec := testkit.DoJSON(t, h, http.MethodGet, "/cart?userId=u1", nil)

	var cart models.Cart
	testkit.DecodeData(t, rec, http.StatusOK, &cart)
	assert.Equal(t, "u1", cart.UserID)
	assert.Empty(t, cart.Lines)
	assert.Equal(t, 0.0, cart.Subtotal)
}

func TestShowRequiresUserID(t *testing.T) {
	h := newTestHandler()

	rec := testkit.DoJSON(t, h, http.MethodGet, "/cart", nil)
	env := testkit.DecodeEnvelope(t, rec, http.StatusUnprocessableEntity)
	assert.Contains(t, env.Errors, "userId")
}

func TestAddItemEndToEnd(t *testing.T) {
	h := newTestHandler()

	body := map[string]any{
		"userId":   "u1",
		"foodId":   "f1",
		"quantity": 2,
		"addons":   []any{"a1"},
	}
	rec := testkit.DoJSON(t, h, http.MethodPost, "/cart/items", body)

	var cart models.Cart
	testkit.DecodeData(t, rec, http.StatusOK, &cart)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2400.0, cart.Lines[0].LineTotal)
	assert.Equal(t, 2400.0, cart.Subtotal)

	// Same identity again: merged, not duplicated.
	body["quantity"] = 1
	rec = testkit.DoJSON(t, h, http.MethodPost, "/cart/items", body)
	testkit.DecodeData(t, rec, http.StatusOK, &cart)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 3, cart.Lines[0].Quantity)
	assert.Equal(t, 3600.0, cart.Subtotal)
}

func TestAddItemValidation(t *testing.T) {
	h := newTestHandler()

	rec := testkit.DoJSON(t, h, http.MethodPost, "/cart/items", map[string]any{"foodId": "f1"})
	env := testkit.DecodeEnvelope(t, rec, http.StatusUnprocessableEntity)
	assert.Contains(t, env.Errors, "userId")
}

func TestAddItemUnknownFood(t *testing.T) {
	h := newTestHandler()

	rec := testkit.DoJSON(t, h, http.MethodPost, "/cart/items",
		map[string]any{"userId": "u1", "foodId": "nope", "quantity": 1})
	testkit.DecodeEnvelope(t, rec, http.StatusNotFound)
}

func TestMalformedJSONIsBadRequest(t *testing.T) {
	h := newTestHandler()

	rec := testkit.DoJSON(t, h, http.MethodPost, "/cart/items", nil)
	testkit.DecodeEnvelope(t, rec, http.StatusBadRequest)
}

func TestQuantityAndRemoveEndpoints(t *testing.T) {
	h := newTestHandler()

	var cart models.Cart
	rec := testkit.DoJSON(t, h, http.MethodPost, "/cart/items",
		map[string]any{"userId": "u1", "foodId": "f1", "quantity": 1})
	testkit.DecodeData(t, rec, http.StatusOK, &cart)
	lineID := cart.Lines[0].ID

	rec = testkit.DoJSON(t, h, http.MethodPatch, "/cart/items/"+lineID+"/quantity",
		map[string]any{"userId": "u1", "quantity": 4})
	testkit.DecodeData(t, rec, http.StatusOK, &cart)
	assert.Equal(t, 4, cart.Lines[0].Quantity)
	assert.Equal(t, 4000.0, cart.Subtotal)

	rec = testkit.DoJSON(t, h, http.MethodPatch, "/cart/items/missing/quantity",
		map[string]any{"userId": "u1", "quantity": 1})
	testkit.DecodeEnvelope(t, rec, http.StatusNotFound)

	rec = testkit.DoJSON(t, h, http.MethodDelete, "/cart/items/"+lineID,
		map[string]any{"userId": "u1"})
	testkit.DecodeData(t, rec, http.StatusOK, &cart)
	assert.Empty(t, cart.Lines)
}

func TestReplaceAddonsEndpoint(t *testing.T) {
	h := newTestHandler()

	var cart models.Cart
	rec := testkit.DoJSON(t, h, http.MethodPost, "/cart/items",
		map[string]any{"userId": "u1", "foodId": "f1", "quantity": 1})
	testkit.DecodeData(t, rec, http.StatusOK, &cart)
	lineID := cart.Lines[0].ID

	rec = testkit.DoJSON(t, h, http.MethodPut, "/cart/items/"+lineID+"/addons",
		map[string]any{"userId": "u1", "addons": []any{"a1"}})
	testkit.DecodeData(t, rec, http.StatusOK, &cart)
	require.Len(t, cart.Lines[0].Addons, 1)
	assert.Equal(t, "a1", cart.Lines[0].Addons[0].ID)
	assert.Equal(t, 1200.0, cart.Subtotal)
}

func TestClearEndpoint(t *testing.T) {
	h := newTestHandler()

	rec := testkit.DoJSON(t, h, http.MethodPost, "/cart/items",
		map[string]any{"userId": "u1", "foodId": "f1", "quantity": 2})
	testkit.DecodeEnvelope(t, rec, http.StatusOK)

	var cart models.Cart
	rec = testkit.DoJSON(t, h, http.MethodDelete, "/cart/clear",
		map[string]any{"userId": "u1"})
	testkit.DecodeData(t, rec, http.StatusOK, &cart)
	assert.Empty(t, cart.Lines)
	assert.Equal(t, 0.0, cart.Subtotal)
}

func TestRouteNamesRegistered(t *testing.T) {
	r := router.New()
	routes.RegisterAPI(r, controllers.NewCartController(nil))

	for _, name := range []string{
		"cart.show", "cart.items.add", "cart.items.quantity",
		"cart.items.addons", "cart.items.remove", "cart.clear",
	} {
		_, ok := r.Path(name)
		assert.True(t, ok, "route %s not registered", name)
	}
}
