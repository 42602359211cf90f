// Package kernel assembles the HTTP handler: global middleware, operational
// endpoints, and the cart routes with their dependencies wired in.
package kernel

import (
	"net/http"
	"time"

	"github.com/sumitghosal/zaika/app/controllers"
	"github.com/sumitghosal/zaika/app/repositories"
	"github.com/sumitghosal/zaika/app/routes"
	"github.com/sumitghosal/zaika/app/services"
	"github.com/sumitghosal/zaika/pkg/metrics"
	"github.com/sumitghosal/zaika/pkg/middleware"
	"github.com/sumitghosal/zaika/pkg/mongodb"
	"github.com/sumitghosal/zaika/pkg/reqid"
	"github.com/sumitghosal/zaika/pkg/response"
	"github.com/sumitghosal/zaika/pkg/router"
)

// Build wires repositories → service → controller and mounts everything on
// the shared middleware stack.
func Build() http.Handler {
	cartRepo := repositories.NewCartRepository(mongodb.Collection("carts"))
	catalogRepo := repositories.NewCatalogRepository(
		mongodb.Collection("foods"),
		mongodb.Collection("addons"),
	)
	cartService := services.NewCartService(catalogRepo, cartRepo)
	cartController := controllers.NewCartController(cartService)

	r := router.New()

	// Global middleware stack (outermost → innermost):
	//  1. Prometheus metrics — outermost for accurate total latency
	//  2. Recovery          — catches panics before they kill the goroutine
	//  3. Request ID        — inject unique ID before anything logs
	//  4. Logger            — logs request_id from context
	//  5. CORS              — set CORS headers
	//  6. Rate limiter      — reject abusers early
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.DefaultCORSOptions()))
	r.Use(middleware.RateLimit(200, time.Minute))

	// Operational endpoints — no auth, no rate-limit exemption needed at
	// this traffic level.
	r.Get("/metrics", "metrics", metrics.Handler())
	r.Get("/healthz", "healthz", healthz)

	routes.RegisterAPI(r, cartController)

	return r.Handler()
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{"status": "ok"})
}
