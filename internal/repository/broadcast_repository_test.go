package repository

import (
	"context"
	"testing"

	"github.com/careline/message-dispatch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualBroadcastMessageRepository_Create(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewManualBroadcastMessageRepository(db)
	ctx := context.Background()

	t.Run("round-trips parameters", func(t *testing.T) {
		created, err := repo.Create(ctx, &model.ManualBroadcastMessage{
			MessageTemplateID: "tpl-9",
			Parameters:        []string{"@name", "Friday", "10:00"},
			OrganisationID:    1,
		})
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.NotEmpty(t, created.UUID)

		found, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"@name", "Friday", "10:00"}, found.Parameters)
	})

	t.Run("allows empty parameters", func(t *testing.T) {
		created, err := repo.Create(ctx, &model.ManualBroadcastMessage{
			MessageTemplateID: "tpl-10",
			OrganisationID:    1,
		})
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Empty(t, found.Parameters)
	})

	t.Run("rejects missing template", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.ManualBroadcastMessage{OrganisationID: 1})
		assert.Error(t, err)
	})
}

func TestManualBroadcastMessageRepository_Void(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewManualBroadcastMessageRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.ManualBroadcastMessage{
		MessageTemplateID: "tpl-11",
		OrganisationID:    1,
	})
	require.NoError(t, err)

	require.NoError(t, repo.Void(ctx, created.ID))

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, found.IsVoided)
}
