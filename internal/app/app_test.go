package app

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipehub/pkg/database/dbtest"
	"recipehub/pkg/models"
	"recipehub/pkg/utils"
)

func newTestApp(t *testing.T) (*App, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := utils.DefaultConfig()
	cfg.ShoppingList.Header = "Shopping list"
	a := New(cfg, dbtest.Open(t), nil)
	return a, a.Router()
}

func call(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthReadyMetrics(t *testing.T) {
	_, r := newTestApp(t)

	w := call(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = call(t, r, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"db":"ok"`)

	w = call(t, r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "recipehub_http_requests_total")
}

// Walks the main user journey through the fully wired router.
func TestShoppingListJourney(t *testing.T) {
	a, r := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.Recipes.UpsertTag(ctx, "Baking", "baking"))
	require.NoError(t, a.Recipes.UpsertIngredient(ctx, "Flour", "g"))
	require.NoError(t, a.Recipes.UpsertIngredient(ctx, "Sugar", "g"))

	w := call(t, r, http.MethodPost, "/api/users/", "", map[string]string{
		"email": "cook@example.test", "username": "cook", "first_name": "C", "last_name": "K",
		"password": "long-enough-pw",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = call(t, r, http.MethodPost, "/api/auth/token/login", "", map[string]string{
		"email": "cook@example.test", "password": "long-enough-pw",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	token := login["auth_token"]

	var tags []models.Tag
	require.NoError(t, json.Unmarshal(call(t, r, http.MethodGet, "/api/tags/", "", nil).Body.Bytes(), &tags))
	var ings []models.Ingredient
	require.NoError(t, json.Unmarshal(call(t, r, http.MethodGet, "/api/ingredients/", "", nil).Body.Bytes(), &ings))
	ids := map[string]int64{}
	for _, in := range ings {
		ids[in.Name] = in.ID
	}

	recipe := func(name string, amounts ...[2]any) int64 {
		list := []map[string]any{}
		for _, pair := range amounts {
			list = append(list, map[string]any{"id": ids[pair[0].(string)], "amount": pair[1]})
		}
		w := call(t, r, http.MethodPost, "/api/recipes/", token, map[string]any{
			"name": name, "text": "t", "image": "img", "cooking_time": 10,
			"tags": []int64{tags[0].ID}, "ingredients": list,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var rec models.Recipe
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
		return rec.ID
	}
	cake := recipe("Cake", [2]any{"Flour", 200}, [2]any{"Sugar", 50})
	bread := recipe("Bread", [2]any{"Flour", 100})

	for _, id := range []int64{cake, bread} {
		w := call(t, r, http.MethodPost, fmt.Sprintf("/api/recipes/%d/shopping_cart", id), token, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	claims, err := a.Tokens.Parse(token)
	require.NoError(t, err)
	list, err := a.Lists.Build(ctx, claims.UserID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Shopping list", "1 Flour - 300, g", "2 Sugar - 50, g"}, list.Lines)

	w = call(t, r, http.MethodGet, "/api/recipes/download_shopping_cart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
}
