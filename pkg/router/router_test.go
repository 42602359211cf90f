package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(_ http.ResponseWriter, _ *http.Request) {}

func TestNamedRoutes(t *testing.T) {
	r := New()
	r.Get("/carts", "carts.index", noop)

	g := r.Group("/carts")
	g.Patch("/items/{lineId}/quantity", "carts.quantity", noop)

	path, ok := r.Path("carts.quantity")
	require.True(t, ok)
	assert.Equal(t, "/carts/items/{lineId}/quantity", path)

	_, ok = r.Path("missing")
	assert.False(t, ok)
}

func TestURL(t *testing.T) {
	r := New()
	r.Patch("/cart/items/{lineId}/quantity", "cart.items.quantity", noop)

	url, err := r.URL("cart.items.quantity", map[string]string{"lineId": "L1"})
	require.NoError(t, err)
	assert.Equal(t, "/cart/items/L1/quantity", url)

	_, err = r.URL("cart.items.quantity", nil)
	assert.Error(t, err, "unsubstituted params must fail")

	_, err = r.URL("nope", nil)
	assert.Error(t, err)
}

func TestRoutesSorted(t *testing.T) {
	r := New()
	r.Post("/b", "b.post", noop)
	r.Get("/b", "b.get", noop)
	r.Get("/a", "a.get", noop)

	infos := r.Routes()
	require.Len(t, infos, 3)
	assert.Equal(t, "a.get", infos[0].Name)
	assert.Equal(t, http.MethodGet, infos[1].Method)
	assert.Equal(t, http.MethodPost, infos[2].Method)
}

func TestGroupPrefixAndDispatch(t *testing.T) {
	r := New()
	g := r.Group("/cart")
	g.Get("/items", "cart.items", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/cart/items", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
