package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/TomerAmran/guess-the-performer-sub001/apierr"
	"github.com/TomerAmran/guess-the-performer-sub001/response"
	"github.com/TomerAmran/guess-the-performer-sub001/services"
)

type CommentHandler struct {
	commentService *services.CommentService
}

func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

func (h *CommentHandler) GetComments(c *gin.Context) {
	quizID, ok := pathID(c, "id")
	if !ok {
		return
	}
	cursor, ok := queryID(c, "cursor")
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.RespondError(c, apierr.BadRequest("limit must be a positive integer"))
			return
		}
		limit = n
	}
	page, err := h.commentService.GetComments(c.Request.Context(), quizID, cursor, limit)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *CommentHandler) AddComment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	quizID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.AddCommentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.commentService.AddComment(c.Request.Context(), userID, quizID, &req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *CommentHandler) UpdateComment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	commentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateCommentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.commentService.UpdateComment(c.Request.Context(), userID, commentID, &req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (h *CommentHandler) DeleteComment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	commentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.commentService.DeleteComment(c.Request.Context(), userID, commentID); err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}

func (h *CommentHandler) HideComment(c *gin.Context) {
	commentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.HideCommentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.commentService.HideComment(c.Request.Context(), commentID, *req.Hidden)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}
