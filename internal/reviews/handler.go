package reviews

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookreviews/internal/auth"
	"bookreviews/pkg/apperrors"
	"bookreviews/pkg/httputil"
)

type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

// RegisterRoutes mounts the review endpoints. Authentication is enforced by
// the service, so the group only needs auth.Identify.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/reviews", h.listAll)
	rg.GET("/reviews/mine", h.mine)
	rg.GET("/reviews/:id", h.get)
	rg.POST("/reviews", h.create)
	rg.GET("/users/:id/reviews", h.listByUser)
}

func (h *Handler) listAll(c *gin.Context) {
	items, err := h.Service.ListAll(c.Request.Context())
	if err != nil {
		httputil.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) listByUser(c *gin.Context) {
	items, err := h.Service.ListByUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) mine(c *gin.Context) {
	items, err := h.Service.MyReviews(c.Request.Context(), auth.MustGetCaller(c))
	if err != nil {
		httputil.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) get(c *gin.Context) {
	rv, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, rv)
}

func (h *Handler) create(c *gin.Context) {
	caller := auth.MustGetCaller(c)
	if caller == nil {
		httputil.WriteError(c, apperrors.Unauthenticated("Not authenticated"))
		return
	}

	var req CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.WriteBindError(c, err)
		return
	}

	id, err := h.Service.Create(c.Request.Context(), caller, req)
	if err != nil {
		httputil.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}
