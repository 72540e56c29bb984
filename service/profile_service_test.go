package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDeliveryAddress(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewProfileService(db)

	padded := createProfile(t, db, withAddress("  inbox-1 \n"))
	address, err := svc.GetDeliveryAddress(ctx, padded.ID)
	require.NoError(t, err)
	assert.Equal(t, "inbox-1", address)

	blank := createProfile(t, db, withAddress("   "))
	_, err = svc.GetDeliveryAddress(ctx, blank.ID)
	assert.ErrorIs(t, err, ErrAddressUnresolved)

	missing := createProfile(t, db, withoutAddress())
	_, err = svc.GetDeliveryAddress(ctx, missing.ID)
	assert.ErrorIs(t, err, ErrAddressUnresolved)

	_, err = svc.GetDeliveryAddress(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrProfileNotFound)
}
