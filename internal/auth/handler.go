package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"bookreviews/pkg/apperrors"
	"bookreviews/pkg/httputil"
	"bookreviews/pkg/validator"
)

type Handler struct {
	Repo   *Repo
	Tokens TokenService
	Auth   *Authenticator
}

func NewHandler(repo *Repo, tokens TokenService) *Handler {
	return &Handler{Repo: repo, Tokens: tokens, Auth: NewAuthenticator(tokens, repo)}
}

// RegisterRoutes mounts the provider endpoints. The group must already run
// Identify.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.register)
	rg.POST("/login", h.login)
	rg.GET("/me", RequireCaller(), h.me)
	rg.POST("/change-password", RequireCaller(), h.changePassword)
	rg.POST("/logout", RequireCaller(), h.logout)
}

type registerReq struct {
	Name     string `json:"name" validate:"max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"min=8,max=72"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.WriteBindError(c, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := validator.Validate(req); err != nil {
		httputil.WriteBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	existing, err := h.Repo.GetByEmail(ctx, req.Email)
	if err != nil {
		httputil.WriteError(c, apperrors.Internal(err))
		return
	}
	if existing != nil {
		httputil.WriteError(c, apperrors.Conflict("email already exists"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httputil.WriteError(c, apperrors.Internal(err))
		return
	}

	u := User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		Role:         RoleUser,
		PasswordHash: string(hash),
	}
	// the UNIQUE(email) constraint also fires here on a race
	if err := h.Repo.CreateUser(ctx, u); err != nil {
		httputil.WriteError(c, apperrors.Internal(err))
		return
	}

	h.respondWithToken(c, http.StatusCreated, &u)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.WriteBindError(c, err)
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		httputil.WriteError(c, apperrors.Validation("email and password required"))
		return
	}

	u, err := h.Repo.GetByEmail(c.Request.Context(), email)
	if err != nil || u == nil {
		// don't reveal which part failed
		httputil.WriteError(c, apperrors.Unauthenticated("invalid credentials"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		httputil.WriteError(c, apperrors.Unauthenticated("invalid credentials"))
		return
	}

	h.respondWithToken(c, http.StatusOK, u)
}

func (h *Handler) me(c *gin.Context) {
	caller := MustGetCaller(c)
	u, err := h.Repo.GetByID(c.Request.Context(), caller.ID)
	if err != nil {
		httputil.WriteError(c, apperrors.Internal(err))
		return
	}
	if u == nil {
		httputil.WriteError(c, apperrors.Unauthenticated("Not authenticated"))
		return
	}
	c.JSON(http.StatusOK, u)
}

type changePasswordReq struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"min=8,max=72"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.WriteBindError(c, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	u, err := h.Repo.GetByID(ctx, MustGetCaller(c).ID)
	if err != nil || u == nil {
		httputil.WriteError(c, apperrors.Unauthenticated("invalid token"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.OldPassword)); err != nil {
		httputil.WriteError(c, apperrors.Unauthenticated("invalid credentials"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		httputil.WriteError(c, apperrors.Internal(err))
		return
	}
	if err := h.Repo.UpdatePasswordAndBumpTokenVersion(ctx, u.ID, string(hash)); err != nil {
		httputil.WriteError(c, apperrors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "password updated"})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.Repo.BumpTokenVersion(c.Request.Context(), MustGetCaller(c).ID); err != nil {
		httputil.WriteError(c, apperrors.Internal(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *Handler) respondWithToken(c *gin.Context, status int, u *User) {
	token, exp, err := h.Tokens.Sign(u)
	if err != nil {
		httputil.WriteError(c, apperrors.Internal(err))
		return
	}
	c.JSON(status, gin.H{
		"user":       u,
		"token":      token,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}
