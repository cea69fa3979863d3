package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/storefront/internal/httpx/middlewares"
)

// NewRouter mounts the storefront API under /api. Catalog reads and account
// creation are public; everything touching carts and orders requires a
// bearer token.
func NewRouter(handler *Handler, auth middlewares.Authenticator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", handler.ListProducts)
		r.Get("/products/{id}", handler.GetProduct)
		r.Get("/categories", handler.ListCategories)
		r.Post("/users", handler.RegisterUser)
		r.Post("/token", handler.CreateToken)

		r.Group(func(r chi.Router) {
			r.Use(middlewares.RequireUser(auth))

			r.Get("/orders", handler.ListOrders)
			r.Post("/orders", handler.CreateOrder)
			r.Get("/orders/{id}", handler.GetOrder)
			r.Put("/orders/{id}", handler.UpdateOrder)

			r.Get("/order-items", handler.ListCartItems)
			r.Post("/order-items", handler.CreateOrderItem)
			r.Get("/order-items/{id}", handler.GetOrderItem)
			r.Put("/order-items/{id}", handler.UpdateOrderItem)
			r.Delete("/order-items/{id}", handler.DeleteOrderItem)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
