package users

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"recipehub/internal/auth"
	"recipehub/internal/feed"
	"recipehub/pkg/models"
	"recipehub/pkg/utils"
	"recipehub/pkg/validation"
)

type Handler struct {
	Repo     *Repo
	Tokens   auth.TokenService
	Auth     *auth.Repo
	Events   feed.Publisher
	PageSize int
}

func NewHandler(repo *Repo, tokens auth.TokenService, authRepo *auth.Repo, events feed.Publisher, pageSize int) *Handler {
	return &Handler{Repo: repo, Tokens: tokens, Auth: authRepo, Events: events, PageSize: pageSize}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	required := auth.AuthMiddleware(h.Tokens, h.Auth)
	optional := auth.OptionalAuth(h.Tokens, h.Auth)

	rg.GET("/", optional, h.list)
	rg.GET("/me", required, h.me)
	rg.GET("/subscriptions", required, h.subscriptions)
	rg.PUT("/me/avatar", required, h.setAvatar)
	rg.DELETE("/me/avatar", required, h.deleteAvatar)
	rg.GET("/:id", optional, h.get)
	rg.POST("/:id/subscribe", required, h.subscribe)
	rg.DELETE("/:id/subscribe", required, h.unsubscribe)
}

func (h *Handler) list(c *gin.Context) {
	p := utils.ParsePagination(c.Request.URL.Query(), h.PageSize)
	items, total, err := h.Repo.List(c.Request.Context(), auth.UserID(c), p.Limit, p.Offset())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list users failed"})
		return
	}
	c.JSON(http.StatusOK, utils.NewPage(c.Request, p, items, total))
}

func (h *Handler) get(c *gin.Context) {
	u, err := h.Repo.Get(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get user failed"})
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) me(c *gin.Context) {
	id := auth.UserID(c)
	u, err := h.Repo.Get(c.Request.Context(), id, id)
	if err != nil || u == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get user failed"})
		return
	}
	c.JSON(http.StatusOK, u)
}

type avatarReq struct {
	Avatar string `json:"avatar"`
}

func (h *Handler) setAvatar(c *gin.Context) {
	var req avatarReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	avatar := strings.TrimSpace(req.Avatar)
	if avatar == "" {
		c.JSON(http.StatusBadRequest, validation.FieldErrors{"avatar": {"This field is required."}})
		return
	}
	if err := h.Repo.SetAvatar(c.Request.Context(), auth.UserID(c), &avatar); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "set avatar failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar": avatar})
}

func (h *Handler) deleteAvatar(c *gin.Context) {
	if err := h.Repo.SetAvatar(c.Request.Context(), auth.UserID(c), nil); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete avatar failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) subscriptions(c *gin.Context) {
	p := utils.ParsePagination(c.Request.URL.Query(), h.PageSize)
	limit := recipesLimit(c)

	authors, total, err := h.Repo.Subscriptions(c.Request.Context(), auth.UserID(c), p.Limit, p.Offset())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list subscriptions failed"})
		return
	}

	cards := make([]models.Subscription, 0, len(authors))
	for _, a := range authors {
		card, err := h.card(c, a, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list subscriptions failed"})
			return
		}
		cards = append(cards, card)
	}
	c.JSON(http.StatusOK, utils.NewPage(c.Request, p, cards, total))
}

func (h *Handler) subscribe(c *gin.Context) {
	ctx := c.Request.Context()
	viewer := auth.UserID(c)
	authorID := c.Param("id")

	err := h.Repo.Follow(ctx, viewer, authorID)
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	case errors.Is(err, ErrSelfFollow), errors.Is(err, ErrAlreadyFollowing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "subscribe failed"})
		return
	}

	author, err := h.Repo.Get(ctx, viewer, authorID)
	if err != nil || author == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "subscribe failed"})
		return
	}
	card, err := h.card(c, *author, recipesLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "subscribe failed"})
		return
	}

	feed.Publish(h.Events, feed.Event{Type: feed.SubscriptionAdded, UserID: viewer, AuthorID: authorID})
	c.JSON(http.StatusCreated, card)
}

func (h *Handler) unsubscribe(c *gin.Context) {
	viewer := auth.UserID(c)
	authorID := c.Param("id")

	if u, err := h.Repo.Get(c.Request.Context(), viewer, authorID); err == nil && u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	err := h.Repo.Unfollow(c.Request.Context(), viewer, authorID)
	switch {
	case errors.Is(err, ErrNotFollowing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unsubscribe failed"})
		return
	}

	feed.Publish(h.Events, feed.Event{Type: feed.SubscriptionRemoved, UserID: viewer, AuthorID: authorID})
	c.Status(http.StatusNoContent)
}

func (h *Handler) card(c *gin.Context, author models.User, limit int) (models.Subscription, error) {
	recipes, count, err := h.Repo.RecipePreview(c.Request.Context(), author.ID, limit)
	if err != nil {
		return models.Subscription{}, err
	}
	return models.Subscription{User: author, Recipes: recipes, RecipesCount: count}, nil
}

// recipesLimit reads ?recipes_limit; missing or invalid means no limit.
func recipesLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("recipes_limit"))
	if err != nil || n < 0 {
		return -1
	}
	return n
}
