package wishlist

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	product "github.com/angelmondragon/storefront-api/internal/products"
	"github.com/angelmondragon/storefront-api/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
)

func TestWishlistLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(ServiceParams{WishlistRepo: NewRepository(conn), Products: product.NewRepository(conn)})
	require.NoError(t, err)
	ctx := context.Background()

	item := &models.Product{Name: "Kettle", Slug: "kettle", Price: decimal.RequireFromString("30"), Stock: 2, Status: enums.ProductStatusActive, RatingAverage: decimal.Zero}
	require.NoError(t, conn.Create(item).Error)

	list, err := svc.Add(ctx, 1, item.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "kettle", list[0].Product.Slug)

	list, err = svc.Add(ctx, 1, item.ID)
	require.NoError(t, err, "adding twice is not an error")
	assert.Len(t, list, 1)

	contains, err := svc.Contains(ctx, 1, item.ID)
	require.NoError(t, err)
	assert.True(t, contains.InWishlist)

	other, err := svc.List(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, svc.Remove(ctx, 1, item.ID))
	require.NoError(t, svc.Remove(ctx, 1, item.ID))
	contains, err = svc.Contains(ctx, 1, item.ID)
	require.NoError(t, err)
	assert.False(t, contains.InWishlist)

	_, err = svc.Add(ctx, 1, 12345)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
