package repository

import (
	"context"
	"testing"

	"github.com/Freeeeeet/planbot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	plans, err := repo.GetPlans(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, plans)

	plans["A"] = model.NewPlan(nil)
	require.NoError(t, repo.PutPlans(ctx, 1, plans))

	loaded, err := repo.GetPlans(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, loaded["A"].AddStudent(model.Student{ID: 10, Name: "alice"}))

	again, err := repo.GetPlans(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, again["A"].Students, "stored plan must not change through a loaded copy")

	other, err := repo.GetPlans(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMemoryRepositoryUserFields(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	require.NoError(t, repo.PutUserField(ctx, 1, 10, FieldJoinedPlan, "A"))
	value, ok, err := repo.GetUserField(ctx, 1, 10, FieldJoinedPlan)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "A", value)

	_, ok, err = repo.GetUserField(ctx, 2, 10, FieldJoinedPlan)
	require.NoError(t, err)
	assert.False(t, ok, "fields are scoped to a chat")

	require.NoError(t, repo.PutUserField(ctx, 1, 10, FieldJoinedPlan, ""))
	_, ok, err = repo.GetUserField(ctx, 1, 10, FieldJoinedPlan)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryRepositoryClipboard(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	plan, err := repo.GetClipboard(ctx, 10)
	require.NoError(t, err)
	assert.Nil(t, plan)

	require.NoError(t, repo.PutClipboard(ctx, 10, model.NewPlan(nil)))
	plan, err = repo.GetClipboard(ctx, 10)
	require.NoError(t, err)
	assert.NotNil(t, plan)

	require.NoError(t, repo.PutClipboard(ctx, 10, nil))
	plan, err = repo.GetClipboard(ctx, 10)
	require.NoError(t, err)
	assert.Nil(t, plan)
}
