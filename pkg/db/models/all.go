package models

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&RefreshToken{},
		&Category{},
		&Product{},
		&ProductImage{},
		&CartItem{},
		&WishlistItem{},
		&Address{},
		&PaymentMethod{},
		&Order{},
		&OrderItem{},
		&Review{},
		&ContactMessage{},
		&StoreSetting{},
		&OutboxEvent{},
	}
}
