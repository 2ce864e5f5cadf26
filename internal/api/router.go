package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/example/grocery-shop/internal/api/middleware"
	"github.com/example/grocery-shop/internal/auth"
)

// RouterConfig holds the dependencies of the HTTP API
type RouterConfig struct {
	Handlers       *Handlers
	AuthHandlers   *AuthHandlers
	JWTService     *auth.JWTService
	CORSOrigins    []string
	LoginRateLimit int // requests per minute per client IP on login and register
	Production     bool
}

func NewRouter(cfg RouterConfig) http.Handler {
	h := cfg.Handlers
	ah := cfg.AuthHandlers

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        cfg.Production,
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      !cfg.Production,
	})

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(secureMiddleware.Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.CartSessionHeader},
		ExposedHeaders:   []string{middleware.CartSessionHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	limit := cfg.LoginRateLimit
	if limit <= 0 {
		limit = 10
	}
	loginLimiter := httprate.Limit(limit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, http.StatusTooManyRequests, "too many requests", nil)
		}),
	)

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.CartSession)

		// Catalog
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Get("/categories", h.ListCategories)

		// Cart, guest or signed in
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuthMiddleware(cfg.JWTService))
			r.Get("/cart", h.GetCart)
			r.Delete("/cart", h.ClearCart)
			r.Post("/cart/items", h.AddCartItem)
			r.Put("/cart/items/{productID}", h.UpdateCartItem)
			r.Delete("/cart/items/{productID}", h.RemoveCartItem)
		})

		// Auth
		r.Route("/auth", func(r chi.Router) {
			r.With(loginLimiter).Post("/register", ah.Register)
			r.With(loginLimiter).Post("/login", ah.Login)
			r.Post("/logout", ah.Logout)
			r.Post("/refresh", ah.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(middleware.AuthMiddleware(cfg.JWTService))
				r.Get("/me", ah.Me)
				r.Put("/me", ah.UpdateProfile)
				r.Put("/password", ah.ChangePassword)
			})
		})

		// Signed-in customers
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(cfg.JWTService))
			r.Post("/cart/merge", h.MergeCart)
			r.Get("/orders", h.ListMyOrders)
			r.Post("/orders", h.PlaceOrder)
			r.Get("/orders/{id}", h.GetOrder)
			r.Post("/orders/{id}/cancel", h.CancelMyOrder)
		})

		// Back office
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(cfg.JWTService))
			r.Use(middleware.RequireRole(auth.RoleAdmin))

			r.Post("/products", h.CreateProduct)
			r.Put("/products/{id}", h.UpdateProduct)
			r.Delete("/products/{id}", h.DeleteProduct)
			r.Put("/products/{id}/image", h.SetProductImage)

			r.Get("/inventory", h.ListInventory)
			r.Get("/inventory/low-stock", h.LowStockFeed)
			r.Get("/inventory/{productID}/{unitType}", h.GetInventory)
			r.Post("/inventory/{productID}/{unitType}/adjust", h.AdjustStock)

			r.Get("/orders", h.ListOrders)
			r.Post("/orders/{id}/pay", h.PayOrder)
			r.Post("/orders/{id}/ship", h.ShipOrder)
			r.Post("/orders/{id}/deliver", h.DeliverOrder)
			r.Post("/orders/{id}/cancel", h.CancelOrder)

			r.Get("/purchase-orders", h.ListPurchaseOrders)
			r.Post("/purchase-orders", h.CreatePurchaseOrder)
			r.Get("/purchase-orders/{id}", h.GetPurchaseOrder)
			r.Post("/purchase-orders/{id}/receive", h.ReceivePurchaseOrder)
			r.Post("/purchase-orders/{id}/cancel", h.CancelPurchaseOrder)

			r.Get("/users", ah.ListUsers)
			r.Post("/users/{id}/deactivate", ah.DeactivateUser)
			r.Post("/users/{id}/activate", ah.ActivateUser)

			r.Get("/reports/summary", h.ReportSummary)
		})
	})

	return r
}
