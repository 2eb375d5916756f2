package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	product "github.com/angelmondragon/storefront-api/internal/products"
	"github.com/angelmondragon/storefront-api/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
)

const buyer = uint(7)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(ServiceParams{Repo: NewRepository(conn), Products: product.NewRepository(conn)})
	require.NoError(t, err)
	return svc, conn
}

func seedProduct(t *testing.T, conn *gorm.DB, slug, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:          slug,
		Slug:          slug,
		Price:         decimal.RequireFromString(price),
		Stock:         stock,
		Status:        enums.ProductStatusActive,
		RatingAverage: decimal.Zero,
	}
	require.NoError(t, conn.Create(p).Error)
	return p
}

func TestAddItemMergesSameVariant(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	shirt := seedProduct(t, conn, "shirt", "10.00", 10)

	_, err := svc.AddItem(ctx, buyer, AddItemRequest{ProductID: shirt.ID, Quantity: 1, Variant: map[string]string{"size": "M", "color": "red"}})
	require.NoError(t, err)
	cart, err := svc.AddItem(ctx, buyer, AddItemRequest{ProductID: shirt.ID, Quantity: 1, Variant: map[string]string{"color": "red", "size": "M"}})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)

	cart, err = svc.AddItem(ctx, buyer, AddItemRequest{ProductID: shirt.ID, Quantity: 1, Variant: map[string]string{"size": "L"}})
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	assert.Equal(t, 3, cart.ItemCount)
	assert.Equal(t, "30", cart.Totals.Subtotal.String())
	assert.Equal(t, "9.99", cart.Totals.Shipping.String())
	assert.Equal(t, "2.4", cart.Totals.Tax.String())
	assert.Equal(t, "42.39", cart.Totals.Total.String())
}

func TestAddItemRejectsOverStock(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	mug := seedProduct(t, conn, "mug", "4.00", 2)

	_, err := svc.AddItem(ctx, buyer, AddItemRequest{ProductID: mug.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, buyer, AddItemRequest{ProductID: mug.ID, Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest))

	_, err = svc.AddItem(ctx, buyer, AddItemRequest{ProductID: 999, Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGetUsesLivePrices(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	lamp := seedProduct(t, conn, "lamp", "50.00", 5)
	gone := seedProduct(t, conn, "gone", "5.00", 5)

	_, err := svc.AddItem(ctx, buyer, AddItemRequest{ProductID: lamp.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, buyer, AddItemRequest{ProductID: gone.ID, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", lamp.ID).Update("price", decimal.RequireFromString("55.00")).Error)
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", gone.ID).Update("status", enums.ProductStatusDeleted).Error)

	cart, err := svc.Get(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, "110", cart.Items[0].LineTotal.String())
	assert.False(t, cart.Items[1].Available)
	assert.True(t, cart.Totals.Shipping.IsZero())
	assert.Equal(t, "118.8", cart.Totals.Total.String())
}

func TestUpdateRemoveAndClear(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	pen := seedProduct(t, conn, "pen", "1.50", 4)

	cart, err := svc.AddItem(ctx, buyer, AddItemRequest{ProductID: pen.ID, Quantity: 1})
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	cart, err = svc.UpdateItem(ctx, buyer, itemID, UpdateItemRequest{Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, cart.Items[0].Quantity)

	_, err = svc.UpdateItem(ctx, buyer, itemID, UpdateItemRequest{Quantity: 5})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest))

	_, err = svc.UpdateItem(ctx, buyer+1, itemID, UpdateItemRequest{Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "other users cannot touch the line")

	cart, err = svc.RemoveItem(ctx, buyer, itemID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Totals.Total.IsZero())

	_, err = svc.RemoveItem(ctx, buyer, itemID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.AddItem(ctx, buyer, AddItemRequest{ProductID: pen.ID, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, buyer))
	cart, err = svc.Get(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}
