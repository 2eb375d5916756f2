package main

import (
	"fmt"

	"github.com/angelmondragon/storefront-api/api/routes"
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
	"github.com/angelmondragon/storefront-api/pkg/auth/session"
	"github.com/angelmondragon/storefront-api/pkg/checkout"
	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/db"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/outbox"
)

// buildServices wires every repository and domain service onto one database.
func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (routes.Services, error) {
	conn := dbClient.DB()
	pricing := checkout.NewPricing(cfg.Orders)

	userRepo := users.NewRepository(conn)
	productRepo := product.NewRepository(conn)
	addressRepo := addresses.NewRepository(conn)
	paymentRepo := paymentmethods.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	contactRepo := contact.NewRepository(conn)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)

	sessions, err := session.NewManager(auth.NewTokenRepository(conn), cfg.JWT)
	if err != nil {
		return routes.Services{}, fmt.Errorf("session manager: %w", err)
	}

	var out routes.Services
	if out.Auth, err = auth.NewService(auth.ServiceParams{
		Users:          userRepo,
		SessionManager: sessions,
		DB:             dbClient,
		Outbox:         outboxSvc,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	}); err != nil {
		return out, fmt.Errorf("auth service: %w", err)
	}
	if out.Users, err = users.NewService(users.ServiceParams{Repo: userRepo, Revoker: sessions, Logger: logg}); err != nil {
		return out, fmt.Errorf("users service: %w", err)
	}
	if out.Products, err = product.NewService(product.ServiceParams{
		Repo:              productRepo,
		DB:                dbClient,
		Outbox:            outboxSvc,
		LowStockThreshold: cfg.Orders.LowStockThreshold,
	}); err != nil {
		return out, fmt.Errorf("product service: %w", err)
	}
	if out.Categories, err = categories.NewService(categories.NewRepository(conn), out.Products); err != nil {
		return out, fmt.Errorf("category service: %w", err)
	}
	if out.Reviews, err = reviews.NewService(reviews.ServiceParams{
		Repo:     reviews.NewRepository(conn),
		Products: productRepo,
		DB:       dbClient,
		Logger:   logg,
	}); err != nil {
		return out, fmt.Errorf("review service: %w", err)
	}
	if out.Cart, err = cart.NewService(cart.ServiceParams{Repo: cartRepo, Products: productRepo, Pricing: &pricing}); err != nil {
		return out, fmt.Errorf("cart service: %w", err)
	}
	if out.Wishlist, err = wishlist.NewService(wishlist.ServiceParams{WishlistRepo: wishlist.NewRepository(conn), Products: productRepo}); err != nil {
		return out, fmt.Errorf("wishlist service: %w", err)
	}
	if out.Addresses, err = addresses.NewService(addresses.ServiceParams{Repo: addressRepo, DB: dbClient}); err != nil {
		return out, fmt.Errorf("address service: %w", err)
	}
	if out.PaymentMethods, err = paymentmethods.NewService(paymentmethods.ServiceParams{Repo: paymentRepo, TransactionRunner: dbClient}); err != nil {
		return out, fmt.Errorf("payment method service: %w", err)
	}
	if out.Orders, err = orders.NewService(orders.ServiceParams{
		Repo:                orders.NewRepository(conn),
		DB:                  dbClient,
		Outbox:              outboxSvc,
		Products:            productRepo,
		Addresses:           addressRepo,
		PaymentMethods:      paymentRepo,
		Cart:                cartRepo,
		Pricing:             &pricing,
		OrderNumberAttempts: cfg.Orders.OrderNumberAttempts,
		LowStockThreshold:   cfg.Orders.LowStockThreshold,
		Logger:              logg,
	}); err != nil {
		return out, fmt.Errorf("order service: %w", err)
	}
	if out.Contact, err = contact.NewService(contactRepo, logg); err != nil {
		return out, fmt.Errorf("contact service: %w", err)
	}
	if out.Settings, err = settings.NewService(settings.ServiceParams{
		Repo:    settings.NewRepository(conn),
		DB:      dbClient,
		Pricing: pricing,
		Logger:  logg,
	}); err != nil {
		return out, fmt.Errorf("settings service: %w", err)
	}
	if out.Dashboard, err = admin.NewService(admin.NewRepository(conn), contactRepo, cfg.Orders.LowStockThreshold); err != nil {
		return out, fmt.Errorf("dashboard service: %w", err)
	}
	return out, nil
}
