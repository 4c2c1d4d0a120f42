package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"recipehub/pkg/validation"
)

type Handler struct {
	Repo   *Repo
	Tokens TokenService
	// HashCost defaults to bcrypt.DefaultCost when zero.
	HashCost int
}

func NewHandler(repo *Repo, tokens TokenService) *Handler {
	return &Handler{Repo: repo, Tokens: tokens}
}

// RegisterRoutes mounts the token endpoints (under /api/auth).
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/token/login", h.login)
	rg.POST("/token/logout", AuthMiddleware(h.Tokens, h.Repo), h.logout)
}

// RegisterUserRoutes mounts sign-up and password change (under /api/users).
func (h *Handler) RegisterUserRoutes(rg *gin.RouterGroup) {
	rg.POST("/", h.register)
	rg.POST("/set_password", AuthMiddleware(h.Tokens, h.Repo), h.setPassword)
}

func (h *Handler) cost() int {
	if h.HashCost == 0 {
		return bcrypt.DefaultCost
	}
	return h.HashCost
}

type registerReq struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,max=150,username"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if fe := validation.Struct(req); fe != nil {
		c.JSON(http.StatusBadRequest, fe)
		return
	}

	ctx := c.Request.Context()
	fe := validation.FieldErrors{}
	if u, _ := h.Repo.GetByEmail(ctx, req.Email); u != nil {
		fe.Add("email", "A user with that email already exists.")
	}
	if u, _ := h.Repo.GetByUsername(ctx, req.Username); u != nil {
		fe.Add("username", "A user with that username already exists.")
	}
	if len(fe) > 0 {
		c.JSON(http.StatusBadRequest, fe)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.cost())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash failed"})
		return
	}

	u := User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hash),
		Role:         RoleUser,
	}

	if err := h.Repo.CreateUser(ctx, u); err != nil {
		// unique constraint can still fire here on a race
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"email":      u.Email,
		"id":         u.ID,
		"username":   u.Username,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
	})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, validation.FieldErrors{
			"non_field_errors": {"Email and password are required."},
		})
		return
	}

	invalid := validation.FieldErrors{
		"non_field_errors": {"Unable to log in with provided credentials."},
	}
	u, err := h.Repo.GetByEmail(c.Request.Context(), email)
	if err != nil || u == nil {
		c.JSON(http.StatusBadRequest, invalid)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusBadRequest, invalid)
		return
	}

	token, _, err := h.Tokens.Sign(u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"auth_token": token})
}

type setPasswordReq struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

func (h *Handler) setPassword(c *gin.Context) {
	var req setPasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if fe := validation.Struct(req); fe != nil {
		c.JSON(http.StatusBadRequest, fe)
		return
	}

	claims := MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	u, err := h.Repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil || u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		c.JSON(http.StatusBadRequest, validation.FieldErrors{"current_password": {"Invalid password."}})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), h.cost())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash failed"})
		return
	}

	if err := h.Repo.UpdatePassword(c.Request.Context(), u.ID, string(hash)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update password failed"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) logout(c *gin.Context) {
	claims := MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if err := h.Repo.BumpTokenVersion(c.Request.Context(), claims.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}

	c.Status(http.StatusNoContent)
}
