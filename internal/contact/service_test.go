package contact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-api/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/pagination"
)

func TestSubmitAndTriage(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, nil)
	require.NoError(t, err)
	ctx := context.Background()

	blank := "   "
	first, err := svc.Submit(ctx, SubmitRequest{Name: " Ada ", Email: "Ada@Example.com", Subject: &blank, Message: "Where is my parcel?"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", first.Name)
	assert.Equal(t, "ada@example.com", first.Email)
	assert.Nil(t, first.Subject)
	assert.Equal(t, enums.ContactStatusNew, first.Status)

	_, err = svc.Submit(ctx, SubmitRequest{Name: "Grace", Email: "grace@example.com", Message: "Do you ship abroad?"})
	require.NoError(t, err)

	read, err := svc.UpdateStatus(ctx, first.ID, enums.ContactStatusRead)
	require.NoError(t, err)
	assert.Equal(t, enums.ContactStatusRead, read.Status)

	unread, err := repo.CountByStatus(ctx, enums.ContactStatusNew)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	status := enums.ContactStatusRead
	page, err := svc.List(ctx, &status, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, first.ID, page.Items[0].ID)

	all, err := svc.List(ctx, nil, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Meta.Total)

	_, err = svc.UpdateStatus(ctx, first.ID, enums.ContactStatus("spam"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.NoError(t, svc.Delete(ctx, first.ID))
	assert.True(t, pkgerrors.IsCode(svc.Delete(ctx, first.ID), pkgerrors.CodeNotFound))
	_, err = svc.UpdateStatus(ctx, first.ID, enums.ContactStatusArchived)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
