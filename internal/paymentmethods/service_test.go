package paymentmethods

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-api/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
)

func strPtr(v string) *string { return &v }

func newTestService(t *testing.T) Service {
	t.Helper()
	client := dbtest.Client(t)
	svc, err := NewService(ServiceParams{Repo: NewRepository(client.DB()), TransactionRunner: client})
	require.NoError(t, err)
	return svc
}

func TestCreateValidatesCards(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, CreatePaymentMethodRequest{Type: "card", Last4: strPtr("12a4")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(ctx, 1, CreatePaymentMethodRequest{Type: "card"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(ctx, 1, CreatePaymentMethodRequest{Type: "crypto"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	card, err := svc.Create(ctx, 1, CreatePaymentMethodRequest{Type: "card", Brand: strPtr("visa"), Last4: strPtr("4242")})
	require.NoError(t, err)
	assert.True(t, card.IsDefault)
	assert.Equal(t, "4242", *card.Last4)
}

func TestDefaultSemantics(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	card, err := svc.Create(ctx, 1, CreatePaymentMethodRequest{Type: "card", Last4: strPtr("4242")})
	require.NoError(t, err)
	paypal, err := svc.Create(ctx, 1, CreatePaymentMethodRequest{Type: "paypal"})
	require.NoError(t, err)
	assert.False(t, paypal.IsDefault)

	_, err = svc.SetDefault(ctx, 1, paypal.ID)
	require.NoError(t, err)
	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, paypal.ID, list[0].ID)
	assert.True(t, list[0].IsDefault)
	assert.False(t, list[1].IsDefault)

	require.NoError(t, svc.Delete(ctx, 1, paypal.ID))
	got, err := svc.Get(ctx, 1, card.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDefault)

	_, err = svc.Get(ctx, 2, card.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
