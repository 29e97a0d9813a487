package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrganisationConfigRepository_FindAllWithMessagingEnabled(t *testing.T) {
	tdb := setupTestDB(t)
	repo := NewOrganisationConfigRepository(tdb.DB)
	ctx := context.Background()

	seed := []*OrganisationConfigEntity{
		{OrganisationID: 3, OrganisationName: "gamma", MessagingEnabled: true, SystemUserName: "gamma-system"},
		{OrganisationID: 1, OrganisationName: "alpha", MessagingEnabled: true, SystemUserName: "alpha-system"},
		{OrganisationID: 2, OrganisationName: "beta", MessagingEnabled: false, SystemUserName: "beta-system"},
		{OrganisationID: 4, OrganisationName: "delta", MessagingEnabled: true, SystemUserName: "delta-system", IsVoided: true},
	}
	for _, e := range seed {
		require.NoError(t, tdb.rawDB.Create(e).Error)
	}

	enabled, err := repo.FindAllWithMessagingEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 2)
	assert.Equal(t, int64(1), enabled[0].OrganisationID)
	assert.Equal(t, int64(3), enabled[1].OrganisationID)
}

func TestOrganisationConfigRepository_FindByOrganisationID(t *testing.T) {
	tdb := setupTestDB(t)
	repo := NewOrganisationConfigRepository(tdb.DB)
	ctx := context.Background()

	require.NoError(t, tdb.rawDB.Create(&OrganisationConfigEntity{
		OrganisationID:   7,
		OrganisationName: "acme",
		MessagingEnabled: true,
		SystemUserName:   "acme-system",
		ProviderAPIKey:   "secret-key",
	}).Error)

	t.Run("found", func(t *testing.T) {
		cfg, err := repo.FindByOrganisationID(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "acme", cfg.OrganisationName)
		assert.Equal(t, "secret-key", cfg.ProviderAPIKey)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.FindByOrganisationID(ctx, 99)
		assert.ErrorIs(t, err, ErrOrganisationConfigNotFound)
	})
}
