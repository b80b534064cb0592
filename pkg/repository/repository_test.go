package repository

import (
	"context"
	"testing"

	"github.com/smallbiznis/partnerbot/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	Key   string `gorm:"primaryKey"`
	Color string
}

func TestStoreSaveUpserts(t *testing.T) {
	ctx := context.Background()
	store := ProvideStore[widget](dbtest.Open(t, &widget{}))

	found, err := store.FindOne(ctx, &widget{Key: "a"})
	require.NoError(t, err)
	assert.Nil(t, found)

	require.NoError(t, store.Save(ctx, &widget{Key: "a", Color: "red"}))
	require.NoError(t, store.Save(ctx, &widget{Key: "a", Color: "blue"}))

	found, err = store.FindOne(ctx, &widget{Key: "a"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "blue", found.Color)

	count, err := store.Count(ctx, &widget{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
