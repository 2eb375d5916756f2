package addresses

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-api/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	client := dbtest.Client(t)
	svc, err := NewService(ServiceParams{Repo: NewRepository(client.DB()), DB: client})
	require.NoError(t, err)
	return svc
}

func addressInput(name string) CreateAddressRequest {
	return CreateAddressRequest{FullName: name, Line1: "1 Main St", City: "Austin", PostalCode: "73301", Country: "us"}
}

func defaults(list []AddressDTO) []uint {
	var out []uint
	for _, a := range list {
		if a.IsDefault {
			out = append(out, a.ID)
		}
	}
	return out
}

func TestFirstAddressBecomesDefault(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, 1, addressInput("Home"))
	require.NoError(t, err)
	assert.True(t, first.IsDefault)
	assert.Equal(t, "US", first.Country)

	second, err := svc.Create(ctx, 1, addressInput("Work"))
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	input := addressInput("Cabin")
	input.IsDefault = true
	third, err := svc.Create(ctx, 1, input)
	require.NoError(t, err)

	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{third.ID}, defaults(list))
	assert.Equal(t, third.ID, list[0].ID)
}

func TestSetDefaultAndDeletePromotion(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	home, err := svc.Create(ctx, 1, addressInput("Home"))
	require.NoError(t, err)
	work, err := svc.Create(ctx, 1, addressInput("Work"))
	require.NoError(t, err)

	_, err = svc.SetDefault(ctx, 1, work.ID)
	require.NoError(t, err)
	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{work.ID}, defaults(list))

	require.NoError(t, svc.Delete(ctx, 1, work.ID))
	list, err = svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{home.ID}, defaults(list))
}

func TestAddressesAreScopedToOwner(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	home, err := svc.Create(ctx, 1, addressInput("Home"))
	require.NoError(t, err)

	_, err = svc.Get(ctx, 2, home.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = svc.SetDefault(ctx, 2, home.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.True(t, pkgerrors.IsCode(svc.Delete(ctx, 2, home.ID), pkgerrors.CodeNotFound))

	city := "Dallas"
	updated, err := svc.Update(ctx, 1, home.ID, UpdateAddressRequest{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Dallas", updated.City)
	assert.True(t, updated.IsDefault)
}
