package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipehub/internal/auth"
	"recipehub/internal/auth/authtest"
	"recipehub/internal/recipes"
	"recipehub/internal/shoppinglist"
	"recipehub/pkg/database/dbtest"
)

func TestExportIngredients(t *testing.T) {
	ctx := context.Background()
	repo := recipes.NewRepo(dbtest.Open(t))
	require.NoError(t, repo.UpsertIngredient(ctx, "Sugar", "g"))
	require.NoError(t, repo.UpsertIngredient(ctx, "Eggs", "pcs"))

	var buf bytes.Buffer
	require.NoError(t, exportIngredients(ctx, repo, &buf))
	assert.Equal(t, "name,measurement_unit\nEggs,pcs\nSugar,g\n", buf.String())
}

func TestExportShoppingList(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	repo := recipes.NewRepo(db)
	authRepo := auth.NewRepo(db)
	u, _ := authtest.CreateUser(t, authRepo, "shopper")

	require.NoError(t, repo.UpsertTag(ctx, "Any", "any"))
	require.NoError(t, repo.UpsertIngredient(ctx, "Salt", "g"))
	tags, err := repo.ListTags(ctx)
	require.NoError(t, err)
	ings, err := repo.ListIngredients(ctx, "")
	require.NoError(t, err)

	id, err := repo.Create(ctx, u.ID, recipes.Write{
		Name: "Brine", Text: "Stir", Image: "img", CookingTime: 1,
		TagIDs:      []int64{tags[0].ID},
		Ingredients: []recipes.IngredientAmount{{ID: ings[0].ID, Amount: 5}},
	})
	require.NoError(t, err)
	require.NoError(t, repo.Add(ctx, recipes.ShoppingCart, u.ID, id))

	found, err := findUser(ctx, authRepo, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	_, err = findUser(ctx, authRepo, "missing-id")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	var buf bytes.Buffer
	svc := shoppinglist.NewService(repo, "", shoppinglist.PDFRenderer{}, nil)
	require.NoError(t, exportShoppingList(ctx, svc, u.ID, &buf))
	assert.Equal(t, "name,measurement_unit,total_amount\nSalt,g,5\n", buf.String())
}
