package users_test

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipehub/internal/auth"
	"recipehub/internal/auth/authtest"
	"recipehub/internal/feed"
	"recipehub/internal/users"
	"recipehub/pkg/database/dbtest"
	"recipehub/pkg/models"
)

type recorder struct {
	mu     sync.Mutex
	events []feed.Event
}

func (r *recorder) Publish(e feed.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db     *sql.DB
	router *gin.Engine
	auth   *auth.Repo
	events *recorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := dbtest.Open(t)
	authRepo := auth.NewRepo(db)
	events := &recorder{}
	h := users.NewHandler(users.NewRepo(db), authtest.Tokens, authRepo, events, 2)

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/users"))
	return fixture{db: db, router: r, auth: authRepo, events: events}
}

func (f fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", authtest.Bearer(token))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f fixture) addRecipe(t *testing.T, authorID, name string) {
	t.Helper()
	_, err := f.db.Exec(`INSERT INTO recipes (author_id, name, text, image, cooking_time) VALUES (?, ?, 'text', 'img.png', 10)`, authorID, name)
	require.NoError(t, err)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestListPaginates(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"alice", "bob", "carol"} {
		authtest.CreateUser(t, f.auth, name)
	}

	w := f.do(t, http.MethodGet, "/api/users/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pg := decode[models.Page[models.User]](t, w)
	assert.Equal(t, 3, pg.Count)
	require.Len(t, pg.Results, 2)
	assert.Equal(t, "alice", pg.Results[0].Username)
	require.NotNil(t, pg.Next)
	assert.Contains(t, *pg.Next, "page=2")
	assert.Nil(t, pg.Previous)

	w = f.do(t, http.MethodGet, "/api/users/?page=2", "", nil)
	pg = decode[models.Page[models.User]](t, w)
	require.Len(t, pg.Results, 1)
	assert.Equal(t, "carol", pg.Results[0].Username)
	assert.Nil(t, pg.Next)
}

func TestMeRequiresAuth(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/users/me", "", nil).Code)

	u, token := authtest.CreateUser(t, f.auth, "dora")
	w := f.do(t, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[models.User](t, w)
	assert.Equal(t, u.ID, me.ID)
	assert.False(t, me.IsSubscribed)
	assert.Nil(t, me.Avatar)
}

func TestGetUnknownUser(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/users/nope", "", nil).Code)
}

func TestAvatar(t *testing.T) {
	f := newFixture(t)
	_, token := authtest.CreateUser(t, f.auth, "eve")

	w := f.do(t, http.MethodPut, "/api/users/me/avatar", token, map[string]string{"avatar": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string][]string](t, w), "avatar")

	w = f.do(t, http.MethodPut, "/api/users/me/avatar", token, map[string]string{"avatar": "data:image/png;base64,AAAA"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "data:image/png;base64,AAAA", decode[map[string]string](t, w)["avatar"])

	me := decode[models.User](t, f.do(t, http.MethodGet, "/api/users/me", token, nil))
	require.NotNil(t, me.Avatar)

	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/users/me/avatar", token, nil).Code)
	me = decode[models.User](t, f.do(t, http.MethodGet, "/api/users/me", token, nil))
	assert.Nil(t, me.Avatar)
}

func TestSubscribeFlow(t *testing.T) {
	f := newFixture(t)
	_, token := authtest.CreateUser(t, f.auth, "reader")
	author, _ := authtest.CreateUser(t, f.auth, "chef")
	f.addRecipe(t, author.ID, "Soup")
	f.addRecipe(t, author.ID, "Stew")
	f.addRecipe(t, author.ID, "Pie")

	w := f.do(t, http.MethodPost, "/api/users/"+author.ID+"/subscribe?recipes_limit=2", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	card := decode[models.Subscription](t, w)
	assert.Equal(t, "chef", card.Username)
	assert.True(t, card.IsSubscribed)
	assert.Equal(t, 3, card.RecipesCount)
	assert.Len(t, card.Recipes, 2)

	// duplicate
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/users/"+author.ID+"/subscribe", token, nil).Code)

	w = f.do(t, http.MethodGet, "/api/users/"+author.ID, token, nil)
	assert.True(t, decode[models.User](t, w).IsSubscribed)
	w = f.do(t, http.MethodGet, "/api/users/"+author.ID, "", nil)
	assert.False(t, decode[models.User](t, w).IsSubscribed)

	w = f.do(t, http.MethodGet, "/api/users/subscriptions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	subs := decode[models.Page[models.Subscription]](t, w)
	assert.Equal(t, 1, subs.Count)
	require.Len(t, subs.Results, 1)
	assert.Len(t, subs.Results[0].Recipes, 3)

	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/users/"+author.ID+"/subscribe", token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodDelete, "/api/users/"+author.ID+"/subscribe", token, nil).Code)

	assert.Equal(t, []string{feed.SubscriptionAdded, feed.SubscriptionRemoved}, f.events.types())
}

func TestSubscribeErrors(t *testing.T) {
	f := newFixture(t)
	u, token := authtest.CreateUser(t, f.auth, "solo")

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/users/"+u.ID+"/subscribe", token, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/users/ghost/subscribe", token, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/users/ghost/subscribe", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/api/users/"+u.ID+"/subscribe", "", nil).Code)
}

func TestRepoFollowSentinels(t *testing.T) {
	db := dbtest.Open(t)
	repo := users.NewRepo(db)
	a, _ := authtest.CreateUser(t, auth.NewRepo(db), "a1")
	b, _ := authtest.CreateUser(t, auth.NewRepo(db), "b1")
	ctx := context.Background()

	assert.ErrorIs(t, repo.Follow(ctx, a.ID, a.ID), users.ErrSelfFollow)
	require.NoError(t, repo.Follow(ctx, a.ID, b.ID))
	assert.ErrorIs(t, repo.Follow(ctx, a.ID, b.ID), users.ErrAlreadyFollowing)
	assert.ErrorIs(t, repo.Unfollow(ctx, b.ID, a.ID), users.ErrNotFollowing)
}
