package repository

import (
	"context"
	"testing"

	"github.com/careline/message-dispatch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRule(name string, entityTypeID int64) *model.MessageRule {
	return &model.MessageRule{
		Name:              name,
		EntityType:        model.EntityTypeSubject,
		EntityTypeID:      entityTypeID,
		ScheduleRule:      "schedule-expr",
		MessageRule:       "message-expr",
		ReceiverType:      model.ReceiverTypeSubject,
		MessageTemplateID: "tpl-1",
		OrganisationID:    1,
	}
}

func TestMessageRuleRepository_Create(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewMessageRuleRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newRule("welcome", 100))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.NotEmpty(t, created.UUID)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "welcome", found.Name)
	assert.Equal(t, model.EntityTypeSubject, found.EntityType)
}

func TestMessageRuleRepository_FindAllByEntityTypeAndEntityTypeID(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewMessageRuleRepository(db)
	ctx := context.Background()

	first, err := repo.Create(ctx, newRule("rule-a", 100))
	require.NoError(t, err)
	second, err := repo.Create(ctx, newRule("rule-b", 100))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newRule("other-entity", 200))
	require.NoError(t, err)

	t.Run("returns matching rules in id order", func(t *testing.T) {
		rules, err := repo.FindAllByEntityTypeAndEntityTypeID(ctx, 1, model.EntityTypeSubject, 100)
		require.NoError(t, err)
		require.Len(t, rules, 2)
		assert.Equal(t, first.ID, rules[0].ID)
		assert.Equal(t, second.ID, rules[1].ID)
	})

	t.Run("excludes voided rules", func(t *testing.T) {
		require.NoError(t, repo.Void(ctx, first.ID))

		rules, err := repo.FindAllByEntityTypeAndEntityTypeID(ctx, 1, model.EntityTypeSubject, 100)
		require.NoError(t, err)
		require.Len(t, rules, 1)
		assert.Equal(t, second.ID, rules[0].ID)
	})

	t.Run("scopes by organisation", func(t *testing.T) {
		rules, err := repo.FindAllByEntityTypeAndEntityTypeID(ctx, 99, model.EntityTypeSubject, 100)
		require.NoError(t, err)
		assert.Empty(t, rules)
	})
}

func TestMessageRuleRepository_List(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewMessageRuleRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := repo.Create(ctx, newRule("rule", int64(100+i)))
		require.NoError(t, err)
	}

	t.Run("lists with total", func(t *testing.T) {
		rules, total, err := repo.List(ctx, 1, model.MessageRuleFilter{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, rules, 5)
	})

	t.Run("paginates", func(t *testing.T) {
		rules, total, err := repo.List(ctx, 1, model.MessageRuleFilter{Limit: 2, Offset: 4})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, rules, 1)
	})

	t.Run("filters by entity type id", func(t *testing.T) {
		id := int64(102)
		rules, total, err := repo.List(ctx, 1, model.MessageRuleFilter{EntityTypeID: &id, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, rules, 1)
		assert.Equal(t, id, rules[0].EntityTypeID)
	})
}
