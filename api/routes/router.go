package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-api/api/controllers"
	"github.com/angelmondragon/storefront-api/api/middleware"
	"github.com/angelmondragon/storefront-api/internal/addresses"
	"github.com/angelmondragon/storefront-api/internal/admin"
	"github.com/angelmondragon/storefront-api/internal/auth"
	"github.com/angelmondragon/storefront-api/internal/cart"
	"github.com/angelmondragon/storefront-api/internal/categories"
	"github.com/angelmondragon/storefront-api/internal/contact"
	"github.com/angelmondragon/storefront-api/internal/orders"
	"github.com/angelmondragon/storefront-api/internal/paymentmethods"
	product "github.com/angelmondragon/storefront-api/internal/products"
	"github.com/angelmondragon/storefront-api/internal/reviews"
	"github.com/angelmondragon/storefront-api/internal/settings"
	"github.com/angelmondragon/storefront-api/internal/users"
	"github.com/angelmondragon/storefront-api/internal/wishlist"
	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/metrics"
)

// Cache is the slice of the Redis client the HTTP stack relies on for rate
// limiting and idempotent replays.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, time.Duration, error)
}

// Services carries every domain service mounted on the router. A nil service
// answers its routes with a 500.
type Services struct {
	Auth           auth.Service
	Users          users.Service
	Products       product.Service
	Categories     categories.Service
	Reviews        reviews.Service
	Cart           cart.Service
	Wishlist       wishlist.Service
	Addresses      addresses.Service
	PaymentMethods paymentmethods.Service
	Orders         orders.Service
	Contact        contact.Service
	Settings       settings.Service
	Dashboard      admin.Service
}

// Params groups the router's infrastructure.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	Cache    Cache
	Metrics  *metrics.HTTPMetrics
	Gatherer prometheus.Gatherer
	Ready    map[string]controllers.Pinger
	Services Services
}

func NewRouter(p Params) http.Handler {
	cfg, logg, svc := p.Config, p.Logger, p.Services

	// Load has already rejected malformed entries.
	trustedProxies, _ := cfg.App.TrustedProxyPrefixes()

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.ClientIP(trustedProxies),
		middleware.Logging(logg),
		middleware.Metrics(p.Metrics),
		middleware.CORS(cfg.App.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Ready))
	})
	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	loginThrottle := middleware.AuthThrottle{
		Name:     "login",
		Window:   cfg.RateLimit.LoginWindow,
		PerIP:    cfg.RateLimit.LoginIPLimit,
		PerEmail: cfg.RateLimit.LoginEmailLimit,
	}
	registerThrottle := middleware.AuthThrottle{
		Name:     "register",
		Window:   cfg.RateLimit.RegisterWindow,
		PerIP:    cfg.RateLimit.RegisterIPLimit,
		PerEmail: cfg.RateLimit.RegisterEmailLimit,
	}

	authenticate := middleware.Auth(cfg.JWT, logg)
	idempotent := middleware.Idempotency(p.Cache, logg)
	can := func(perm enums.Permission) func(http.Handler) http.Handler {
		return middleware.RequirePermission(perm, logg)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(p.Cache, cfg.RateLimit.GlobalLimit, cfg.RateLimit.GlobalWindow, logg))

		// Public storefront.
		r.Group(func(r chi.Router) {
			r.Use(idempotent)

			r.With(middleware.ThrottleAuth(registerThrottle, p.Cache, logg)).Post("/auth/register", controllers.AuthRegister(svc.Auth, logg))
			r.With(middleware.ThrottleAuth(loginThrottle, p.Cache, logg)).Post("/auth/login", controllers.AuthLogin(svc.Auth, logg))
			r.With(middleware.ThrottleAuth(loginThrottle, p.Cache, logg)).Post("/auth/admin/login", controllers.AdminAuthLogin(svc.Auth, logg))
			r.Post("/auth/refresh", controllers.AuthRefresh(svc.Auth, logg))
			r.Post("/auth/logout", controllers.AuthLogout(svc.Auth, logg))
			r.Post("/auth/forgot-password", controllers.AuthForgotPassword(svc.Auth, logg))
			r.Post("/auth/reset-password", controllers.AuthResetPassword(svc.Auth, logg))

			r.Get("/products", controllers.ProductList(svc.Products, logg))
			r.Get("/products/search", controllers.ProductSearch(svc.Products, logg))
			for _, collection := range []string{"featured", "new", "flash-sale", "best-selling"} {
				r.Get("/products/"+collection, controllers.ProductCurated(svc.Products, collection, logg))
			}
			r.Get("/products/slug/{slug}", controllers.ProductBySlug(svc.Products, logg))
			r.Get("/products/{id}", controllers.ProductByID(svc.Products, logg))
			r.Get("/products/{id}/related", controllers.ProductRelated(svc.Products, logg))
			r.Get("/products/{id}/reviews", controllers.ProductReviews(svc.Reviews, logg))

			r.Get("/categories", controllers.CategoryList(svc.Categories, logg))
			r.Get("/categories/{slug}", controllers.CategoryBySlug(svc.Categories, logg))
			r.Get("/categories/{slug}/products", controllers.CategoryProducts(svc.Categories, logg))

			r.Post("/contact", controllers.ContactSubmit(svc.Contact, logg))
			r.Get("/settings/public", controllers.SettingsPublic(svc.Settings, logg))
		})

		// Signed-in customers and staff.
		r.Group(func(r chi.Router) {
			r.Use(authenticate, idempotent)

			r.Get("/auth/permissions", controllers.AuthPermissions())
			r.Post("/auth/logout-all", controllers.AuthLogoutAll(svc.Auth, logg))
			r.Post("/auth/change-password", controllers.AuthChangePassword(svc.Auth, logg))

			r.Get("/users/me", controllers.MeProfile(svc.Users, logg))
			r.Put("/users/me", controllers.MeUpdate(svc.Users, logg))

			r.Post("/products/{id}/reviews", controllers.ReviewCreate(svc.Reviews, logg))
			r.Put("/reviews/{id}", controllers.ReviewUpdate(svc.Reviews, logg))
			r.Delete("/reviews/{id}", controllers.ReviewDelete(svc.Reviews, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(svc.Cart, logg))
				r.Delete("/", controllers.CartClear(svc.Cart, logg))
				r.Post("/items", controllers.CartAddItem(svc.Cart, logg))
				r.Put("/items/{itemId}", controllers.CartUpdateItem(svc.Cart, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(svc.Cart, logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistList(svc.Wishlist, logg))
				r.Post("/", controllers.WishlistAdd(svc.Wishlist, logg))
				r.Get("/{productId}/check", controllers.WishlistContains(svc.Wishlist, logg))
				r.Delete("/{productId}", controllers.WishlistRemove(svc.Wishlist, logg))
			})

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", controllers.AddressList(svc.Addresses, logg))
				r.Post("/", controllers.AddressCreate(svc.Addresses, logg))
				r.Get("/{id}", controllers.AddressGet(svc.Addresses, logg))
				r.Put("/{id}", controllers.AddressUpdate(svc.Addresses, logg))
				r.Delete("/{id}", controllers.AddressDelete(svc.Addresses, logg))
				r.Put("/{id}/default", controllers.AddressSetDefault(svc.Addresses, logg))
			})

			r.Route("/payment-methods", func(r chi.Router) {
				r.Get("/", controllers.PaymentMethodList(svc.PaymentMethods, logg))
				r.Post("/", controllers.PaymentMethodCreate(svc.PaymentMethods, logg))
				r.Get("/{id}", controllers.PaymentMethodGet(svc.PaymentMethods, logg))
				r.Put("/{id}", controllers.PaymentMethodUpdate(svc.PaymentMethods, logg))
				r.Delete("/{id}", controllers.PaymentMethodDelete(svc.PaymentMethods, logg))
				r.Put("/{id}/default", controllers.PaymentMethodSetDefault(svc.PaymentMethods, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(svc.Orders, logg))
				r.Post("/", controllers.OrderPlace(svc.Orders, logg))
				r.Get("/{id}", controllers.OrderGet(svc.Orders, logg))
				r.Post("/{id}/cancel", controllers.OrderCancel(svc.Orders, logg))
			})
		})

		// Back office.
		r.Route("/admin", func(r chi.Router) {
			r.Use(authenticate, can(enums.PermAdminAccess), idempotent)

			r.With(can(enums.PermDashboardView)).Get("/dashboard", controllers.AdminDashboard(svc.Dashboard, logg))

			r.Route("/products", func(r chi.Router) {
				r.With(can(enums.PermCatalogRead)).Get("/", controllers.AdminProductList(svc.Products, logg))
				r.With(can(enums.PermCatalogRead)).Get("/{id}", controllers.AdminProductGet(svc.Products, logg))
				r.Group(func(r chi.Router) {
					r.Use(can(enums.PermCatalogWrite))
					r.Post("/", controllers.AdminProductCreate(svc.Products, logg))
					r.Put("/{id}", controllers.AdminProductUpdate(svc.Products, logg))
					r.Delete("/{id}", controllers.AdminProductDelete(svc.Products, logg))
					r.Put("/{id}/stock", controllers.AdminProductUpdateStock(svc.Products, logg))
					r.Post("/{id}/images", controllers.AdminProductAddImage(svc.Products, logg))
					r.Delete("/{id}/images/{imageId}", controllers.AdminProductRemoveImage(svc.Products, logg))
				})
			})

			r.Route("/categories", func(r chi.Router) {
				r.With(can(enums.PermCatalogRead)).Get("/", controllers.AdminCategoryList(svc.Categories, logg))
				r.Group(func(r chi.Router) {
					r.Use(can(enums.PermCatalogWrite))
					r.Post("/", controllers.AdminCategoryCreate(svc.Categories, logg))
					r.Put("/{id}", controllers.AdminCategoryUpdate(svc.Categories, logg))
					r.Delete("/{id}", controllers.AdminCategoryDelete(svc.Categories, logg))
				})
			})

			r.Route("/orders", func(r chi.Router) {
				r.Use(can(enums.PermOrdersManage))
				r.Get("/", controllers.AdminOrderList(svc.Orders, logg))
				r.Get("/{id}", controllers.AdminOrderGet(svc.Orders, logg))
				r.Put("/{id}/status", controllers.AdminOrderUpdateStatus(svc.Orders, logg))
				r.Put("/{id}/payment-status", controllers.AdminOrderUpdatePaymentStatus(svc.Orders, logg))
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(can(enums.PermUsersManage))
				r.Get("/", controllers.AdminUserList(svc.Users, logg))
				r.Get("/{id}", controllers.AdminUserGet(svc.Users, logg))
				r.Put("/{id}/role", controllers.AdminUserUpdateRole(svc.Users, logg))
				r.Put("/{id}/status", controllers.AdminUserUpdateStatus(svc.Users, logg))
				r.Delete("/{id}", controllers.AdminUserDelete(svc.Users, logg))
			})

			r.Route("/reviews", func(r chi.Router) {
				r.Use(can(enums.PermReviewsModerate))
				r.Get("/", controllers.AdminReviewList(svc.Reviews, logg))
				r.Put("/{id}/status", controllers.AdminReviewModerate(svc.Reviews, logg))
				r.Delete("/{id}", controllers.AdminReviewDelete(svc.Reviews, logg))
			})

			r.Route("/messages", func(r chi.Router) {
				r.Use(can(enums.PermMessagesManage))
				r.Get("/", controllers.AdminMessageList(svc.Contact, logg))
				r.Get("/{id}", controllers.AdminMessageGet(svc.Contact, logg))
				r.Put("/{id}/status", controllers.AdminMessageUpdateStatus(svc.Contact, logg))
				r.Delete("/{id}", controllers.AdminMessageDelete(svc.Contact, logg))
			})

			r.Route("/settings", func(r chi.Router) {
				r.Use(can(enums.PermSettingsManage))
				r.Get("/", controllers.AdminSettingsList(svc.Settings, logg))
				r.Put("/", controllers.AdminSettingsUpdate(svc.Settings, logg))
			})
		})
	})

	return r
}
