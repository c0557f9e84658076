package adminhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"emblitzgo/internal/services/announce"
)

// AdminRequest is the /authapi action body. Every mutating action repeats
// the master password; there are no admin sessions.
type AdminRequest struct {
	Action        string `json:"action" binding:"required"`
	Auth          string `json:"auth"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	SubmittedTime int64  `json:"submittedtime"`
	Image         string `json:"image"`
	PostID        int64  `json:"postid"`
} // @name AdminRequest

type Handler struct {
	announceSvc    announce.IAnnounceService
	masterPassword string
}

func New(announceSvc announce.IAnnounceService, masterPassword string) *Handler {
	return &Handler{announceSvc: announceSvc, masterPassword: masterPassword}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/authapi", h.handle)
	r.GET("/authapi", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"error": "invalid form body"})
	})
}

// @Summary		Admin announcement API
// @Description	createpost / deletepost / validatepassword, gated by the admin master password.
// @Tags			Admin
// @Param			body	body	AdminRequest	true	"Action payload"
// @Success		200
// @Failure		403	{object}	map[string]string
// @Router			/authapi [post]
func (h *Handler) handle(c *gin.Context) {
	var req AdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"error": "invalid form body"})
		return
	}

	switch req.Action {
	case "createpost":
		if !h.authorized(c, req) {
			return
		}
		if err := h.announceSvc.Create(c.Request.Context(), req.Title, req.Content, req.SubmittedTime, req.Image); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": "post created successfully"})

	case "deletepost":
		if !h.authorized(c, req) {
			return
		}
		if err := h.announceSvc.Delete(c.Request.Context(), req.PostID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": "deleted post"})

	case "validatepassword":
		c.JSON(http.StatusOK, gin.H{"result": req.Auth == h.masterPassword})

	default:
		c.JSON(http.StatusOK, gin.H{"error": "invalid form body"})
	}
}

func (h *Handler) authorized(c *gin.Context, req AdminRequest) bool {
	if h.masterPassword == "" || req.Auth != h.masterPassword {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "403",
			"message": "You are not authorized to make this call!",
		})
		return false
	}
	return true
}
