package recipes

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"recipehub/internal/auth"
	"recipehub/internal/feed"
	"recipehub/internal/shoppinglist"
	"recipehub/pkg/logger"
	"recipehub/pkg/metrics"
	"recipehub/pkg/utils"
	"recipehub/pkg/validation"
)

type Handler struct {
	Repo    *Repo
	Tokens  auth.TokenService
	Auth    *auth.Repo
	Events  feed.Publisher
	Lists   *shoppinglist.Service
	Metrics *metrics.ServerMetrics
	Log     *logger.Logger

	PageSize  int
	PublicURL string
	Filename  string
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	if h.Log == nil {
		h.Log = logger.Nop()
	}
	if h.Filename == "" {
		h.Filename = "shopping_list.pdf"
	}
	required := auth.AuthMiddleware(h.Tokens, h.Auth)
	optional := auth.OptionalAuth(h.Tokens, h.Auth)

	rg.GET("/tags/", h.listTags)
	rg.GET("/tags/:id", h.getTag)
	rg.GET("/ingredients/", h.listIngredients)
	rg.GET("/ingredients/:id", h.getIngredient)

	rg.GET("/recipes/", optional, h.list)
	rg.POST("/recipes/", required, h.create)
	rg.GET("/recipes/download_shopping_cart", required, h.downloadShoppingCart)
	rg.GET("/recipes/:id", optional, h.get)
	rg.PATCH("/recipes/:id", required, h.update)
	rg.DELETE("/recipes/:id", required, h.delete)
	rg.GET("/recipes/:id/get-link", h.getLink)
	rg.POST("/recipes/:id/favorite", required, h.add(Favorites, feed.FavoriteAdded))
	rg.DELETE("/recipes/:id/favorite", required, h.remove(Favorites, feed.FavoriteRemoved))
	rg.POST("/recipes/:id/shopping_cart", required, h.add(ShoppingCart, feed.CartAdded))
	rg.DELETE("/recipes/:id/shopping_cart", required, h.remove(ShoppingCart, feed.CartRemoved))
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return id, true
}

func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	h.Log.Error(msg, "error", err, "path", c.FullPath())
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// --- catalogue ---

func (h *Handler) listTags(c *gin.Context) {
	tags, err := h.Repo.ListTags(c.Request.Context())
	if err != nil {
		h.internalError(c, "list tags failed", err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (h *Handler) getTag(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	tag, err := h.Repo.GetTag(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "get tag failed", err)
		return
	}
	if tag == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "tag not found"})
		return
	}
	c.JSON(http.StatusOK, tag)
}

func (h *Handler) listIngredients(c *gin.Context) {
	items, err := h.Repo.ListIngredients(c.Request.Context(), c.Query("name"))
	if err != nil {
		h.internalError(c, "list ingredients failed", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) getIngredient(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	in, err := h.Repo.GetIngredient(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "get ingredient failed", err)
		return
	}
	if in == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "ingredient not found"})
		return
	}
	c.JSON(http.StatusOK, in)
}

// --- recipes ---

func (h *Handler) list(c *gin.Context) {
	p := utils.ParsePagination(c.Request.URL.Query(), h.PageSize)
	f := Filter{
		AuthorID:  c.Query("author"),
		TagSlugs:  c.QueryArray("tags"),
		Favorited: c.Query("is_favorited") == "1",
		InCart:    c.Query("is_in_shopping_cart") == "1",
	}

	items, total, err := h.Repo.List(c.Request.Context(), auth.UserID(c), f, p.Limit, p.Offset())
	if err != nil {
		h.internalError(c, "list recipes failed", err)
		return
	}
	c.JSON(http.StatusOK, utils.NewPage(c.Request, p, items, total))
}

func (h *Handler) get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rec, err := h.Repo.Get(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		h.internalError(c, "get recipe failed", err)
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) create(c *gin.Context) {
	var req writeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	ctx := c.Request.Context()
	w, fe, err := h.validate(ctx, req, true)
	if err != nil {
		h.internalError(c, "validate recipe failed", err)
		return
	}
	if fe != nil {
		c.JSON(http.StatusBadRequest, fe)
		return
	}

	userID := auth.UserID(c)
	id, err := h.Repo.Create(ctx, userID, w)
	if errors.Is(err, ErrDuplicateName) {
		c.JSON(http.StatusBadRequest, validation.FieldErrors{"name": {err.Error()}})
		return
	}
	if err != nil {
		h.internalError(c, "create recipe failed", err)
		return
	}

	rec, err := h.Repo.Get(ctx, userID, id)
	if err != nil || rec == nil {
		h.internalError(c, "fetch created recipe failed", err)
		return
	}

	feed.Publish(h.Events, feed.Event{Type: feed.RecipeCreated, UserID: userID, RecipeID: id, Name: rec.Name})
	c.JSON(http.StatusCreated, rec)
}

// authorize answers 404/403 itself and reports whether the caller may
// change recipe id.
func (h *Handler) authorize(c *gin.Context, id int64) bool {
	author, err := h.Repo.AuthorOf(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
		return false
	}
	if err != nil {
		h.internalError(c, "load recipe failed", err)
		return false
	}
	claims := auth.MustGetClaims(c)
	if claims.UserID != author && !claims.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": ErrForbidden.Error()})
		return false
	}
	return true
}

func (h *Handler) update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok || !h.authorize(c, id) {
		return
	}

	var req writeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	ctx := c.Request.Context()
	w, fe, err := h.validate(ctx, req, false)
	if err != nil {
		h.internalError(c, "validate recipe failed", err)
		return
	}
	if fe != nil {
		c.JSON(http.StatusBadRequest, fe)
		return
	}

	err = h.Repo.Update(ctx, id, w)
	switch {
	case errors.Is(err, ErrDuplicateName):
		c.JSON(http.StatusBadRequest, validation.FieldErrors{"name": {err.Error()}})
		return
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
		return
	case err != nil:
		h.internalError(c, "update recipe failed", err)
		return
	}

	userID := auth.UserID(c)
	rec, err := h.Repo.Get(ctx, userID, id)
	if err != nil || rec == nil {
		h.internalError(c, "fetch updated recipe failed", err)
		return
	}

	feed.Publish(h.Events, feed.Event{Type: feed.RecipeUpdated, UserID: userID, RecipeID: id, Name: rec.Name})
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok || !h.authorize(c, id) {
		return
	}

	if err := h.Repo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
			return
		}
		h.internalError(c, "delete recipe failed", err)
		return
	}

	feed.Publish(h.Events, feed.Event{Type: feed.RecipeDeleted, UserID: auth.UserID(c), RecipeID: id})
	c.Status(http.StatusNoContent)
}

func (h *Handler) getLink(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, err := h.Repo.AuthorOf(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
			return
		}
		h.internalError(c, "get link failed", err)
		return
	}
	base := strings.TrimSuffix(h.PublicURL, "/")
	c.JSON(http.StatusOK, gin.H{"short-link": fmt.Sprintf("%s/recipes/%d/", base, id)})
}

// --- favorites & shopping cart ---

func (h *Handler) add(rel relation, event string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		short, err := h.Repo.Short(ctx, id)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
			return
		}
		if err != nil {
			h.internalError(c, "load recipe failed", err)
			return
		}

		userID := auth.UserID(c)
		err = h.Repo.Add(ctx, rel, userID, id)
		switch {
		case errors.Is(err, ErrAlreadyAdded):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
			return
		case err != nil:
			h.internalError(c, "add recipe failed", err)
			return
		}

		feed.Publish(h.Events, feed.Event{Type: event, UserID: userID, RecipeID: id, Name: short.Name})
		c.JSON(http.StatusCreated, short)
	}
}

func (h *Handler) remove(rel relation, event string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		if _, err := h.Repo.AuthorOf(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
				return
			}
			h.internalError(c, "load recipe failed", err)
			return
		}

		userID := auth.UserID(c)
		err := h.Repo.Remove(ctx, rel, userID, id)
		if errors.Is(err, ErrNotAdded) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			h.internalError(c, "remove recipe failed", err)
			return
		}

		feed.Publish(h.Events, feed.Event{Type: event, UserID: userID, RecipeID: id})
		c.Status(http.StatusNoContent)
	}
}

func (h *Handler) downloadShoppingCart(c *gin.Context) {
	userID := auth.UserID(c)

	out := &attachmentWriter{c: c, filename: h.Filename}
	list, err := h.Lists.WritePDF(c.Request.Context(), out, userID)
	if err != nil {
		if out.started {
			h.Log.Warn("shopping list write aborted", "user_id", userID, "error", err)
			return
		}
		h.internalError(c, "build shopping list failed", err)
		return
	}
	h.Metrics.ObserveShoppingList("http", len(list.Entries))
	h.Log.Debug("shopping list served", "user_id", userID, "entries", len(list.Entries))
}

// attachmentWriter sends the download headers with the first chunk, so an
// error before any output can still be answered as JSON.
type attachmentWriter struct {
	c        *gin.Context
	filename string
	started  bool
}

func (a *attachmentWriter) Write(p []byte) (int, error) {
	if !a.started {
		a.started = true
		a.c.Header("Content-Type", "application/pdf")
		a.c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, a.filename))
		a.c.Status(http.StatusOK)
	}
	return a.c.Writer.Write(p)
}
