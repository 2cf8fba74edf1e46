package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/TomerAmran/guess-the-performer-sub001/apierr"
	"github.com/TomerAmran/guess-the-performer-sub001/middleware"
	"github.com/TomerAmran/guess-the-performer-sub001/response"
	"github.com/TomerAmran/guess-the-performer-sub001/services"
)

const (
	clientIDHeader     = "X-Client-ID"
	maxSnapshotBodyLen = 64 << 10
)

type QuizHandler struct {
	quizService    *services.QuizService
	pendingService *services.PendingSessionService
}

func NewQuizHandler(quizService *services.QuizService, pendingService *services.PendingSessionService) *QuizHandler {
	return &QuizHandler{
		quizService:    quizService,
		pendingService: pendingService,
	}
}

type checkAnswersRequest struct {
	Answers map[uuid.UUID]uuid.UUID `json:"answers" binding:"required"`
}

func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req services.QuizRequest
	if !bindJSON(c, &req) {
		return
	}
	quiz, err := h.quizService.CreateQuiz(c.Request.Context(), userID, &req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

func (h *QuizHandler) GetAllQuizzes(c *gin.Context) {
	quizzes, err := h.quizService.GetAllQuizzes(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

func (h *QuizHandler) GetUserQuizzes(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	quizzes, err := h.quizService.GetUserQuizzes(c.Request.Context(), userID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

func (h *QuizHandler) SearchQuizzes(c *gin.Context) {
	composerID, ok := queryID(c, "composerId")
	if !ok {
		return
	}
	instrumentID, ok := queryID(c, "instrumentId")
	if !ok {
		return
	}
	quizzes, err := h.quizService.SearchQuizzes(c.Request.Context(), &services.SearchQuizzesRequest{
		ComposerID:   composerID,
		InstrumentID: instrumentID,
		PieceName:    c.Query("pieceName"),
		Query:        c.Query("q"),
		OrderBy:      c.Query("orderBy"),
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

func (h *QuizHandler) GetQuizByID(c *gin.Context) {
	quizID, ok := pathID(c, "id")
	if !ok {
		return
	}
	quiz, err := h.quizService.GetQuizByID(c.Request.Context(), quizID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	quizID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.QuizRequest
	if !bindJSON(c, &req) {
		return
	}
	quiz, err := h.quizService.UpdateQuiz(c.Request.Context(), userID, quizID, &req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	quizID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.quizService.DeleteQuiz(c.Request.Context(), userID, quizID); err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Quiz deleted successfully"})
}

func (h *QuizHandler) LikeQuiz(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	quizID, ok := pathID(c, "id")
	if !ok {
		return
	}
	count, err := h.quizService.LikeQuiz(c.Request.Context(), userID, quizID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, count)
}

func (h *QuizHandler) UnlikeQuiz(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	quizID, ok := pathID(c, "id")
	if !ok {
		return
	}
	count, err := h.quizService.UnlikeQuiz(c.Request.Context(), userID, quizID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, count)
}

// GetLikeStatus runs behind OptionalAuthMiddleware.
func (h *QuizHandler) GetLikeStatus(c *gin.Context) {
	quizID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var userID *uuid.UUID
	if id, ok := middleware.UserID(c); ok {
		userID = &id
	}
	status, err := h.quizService.GetLikeStatus(c.Request.Context(), userID, quizID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *QuizHandler) CheckAnswers(c *gin.Context) {
	quizID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req checkAnswersRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.quizService.CheckAnswers(c.Request.Context(), quizID, req.Answers)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *QuizHandler) PlayQuiz(c *gin.Context) {
	quizID, ok := pathID(c, "id")
	if !ok {
		return
	}
	session, err := h.quizService.NewPlaySession(c.Request.Context(), quizID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *QuizHandler) SavePendingSession(c *gin.Context) {
	quizID, ok := pathID(c, "id")
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxSnapshotBodyLen))
	if err != nil {
		response.RespondError(c, apierr.BadRequest("snapshot is too large or unreadable"))
		return
	}
	if err := h.pendingService.Save(c.Request.Context(), quizID, c.GetHeader(clientIDHeader), body); err != nil {
		response.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TakePendingSession returns the saved session once; a second call is 404.
func (h *QuizHandler) TakePendingSession(c *gin.Context) {
	quizID, ok := pathID(c, "id")
	if !ok {
		return
	}
	session, err := h.pendingService.Take(c.Request.Context(), quizID, c.GetHeader(clientIDHeader))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
