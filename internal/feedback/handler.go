package feedback

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

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/reviews/:id/feedback", h.byReview)
	rg.GET("/feedback/mine", h.mine)
	rg.POST("/feedback", h.create)
}

func (h *Handler) byReview(c *gin.Context) {
	items, err := h.Service.GetByReview(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) mine(c *gin.Context) {
	items, err := h.Service.GetMyReviewsFeedback(c.Request.Context(), auth.MustGetCaller(c))
	if err != nil {
		httputil.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
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
