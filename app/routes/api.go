package routes

import (
	"github.com/sumitghosal/zaika/app/controllers"
	"github.com/sumitghosal/zaika/pkg/router"
)

// RegisterAPI mounts the cart endpoints. Every response carries the full
// resolved cart — there are no partial/delta responses.
func RegisterAPI(r *router.Router, cart *controllers.CartController) {
	g := r.Group("/cart")

	g.Get("", "cart.show", cart.Show)
	g.Post("/items", "cart.items.add", cart.AddItem)
	g.Patch("/items/{lineId}/quantity", "cart.items.quantity", cart.SetQuantity)
	g.Put("/items/{lineId}/addons", "cart.items.addons", cart.ReplaceAddons)
	g.Delete("/items/{lineId}", "cart.items.remove", cart.RemoveItem)
	g.Delete("/clear", "cart.clear", cart.Clear)
}
