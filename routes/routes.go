package routes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/TomerAmran/guess-the-performer-sub001/apierr"
	"github.com/TomerAmran/guess-the-performer-sub001/handlers"
	"github.com/TomerAmran/guess-the-performer-sub001/logger"
	"github.com/TomerAmran/guess-the-performer-sub001/middleware"
	"github.com/TomerAmran/guess-the-performer-sub001/models"
	"github.com/TomerAmran/guess-the-performer-sub001/response"
	"github.com/TomerAmran/guess-the-performer-sub001/services"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	Composer    *handlers.ComposerHandler
	Artist      *handlers.ArtistHandler
	Piece       *handlers.PieceHandler
	Instrument  *handlers.InstrumentHandler
	Performance *handlers.PerformanceHandler
	Quiz        *handlers.QuizHandler
	Comment     *handlers.CommentHandler
}

// QuizLookup is the slice of the quiz service the feed endpoint needs.
type QuizLookup interface {
	GetQuizByID(ctx context.Context, id uuid.UUID) (*models.Quiz, error)
}

func SetupRoutes(
	router *gin.Engine,
	h Handlers,
	auth middleware.Authenticator,
	hub *services.Hub,
	quizzes QuizLookup,
	checkOrigin func(r *http.Request) bool,
	log *logger.Logger,
) {
	requireAuth := middleware.AuthMiddleware(auth)
	optionalAuth := middleware.OptionalAuthMiddleware(auth)
	requireAdmin := middleware.AdminMiddleware(auth)

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.Auth.Register)
			authGroup.POST("/login", h.Auth.Login)
			authGroup.POST("/provider", h.Auth.ProviderSignIn)
			authGroup.GET("/me", requireAuth, h.Auth.Me)
		}

		composers := api.Group("/composers")
		{
			composers.GET("", h.Composer.GetAll)
			composers.GET("/:id", h.Composer.GetByID)
			composers.GET("/:id/pieces", h.Composer.GetPieces)
			composers.POST("", requireAuth, h.Composer.Create)
			composers.PATCH("/:id", requireAuth, h.Composer.Update)
			composers.DELETE("/:id", requireAuth, requireAdmin, h.Composer.Delete)
		}

		artists := api.Group("/artists")
		{
			artists.GET("", h.Artist.GetAll)
			artists.GET("/:id", h.Artist.GetByID)
			artists.POST("", requireAuth, h.Artist.Create)
			artists.PATCH("/:id", requireAuth, h.Artist.Update)
			artists.DELETE("/:id", requireAuth, requireAdmin, h.Artist.Delete)
		}

		pieces := api.Group("/pieces")
		{
			pieces.GET("", h.Piece.GetAll)
			pieces.GET("/:id", h.Piece.GetByID)
			pieces.GET("/:id/performances", h.Piece.GetPerformances)
			pieces.POST("", requireAuth, h.Piece.Create)
			pieces.PATCH("/:id", requireAuth, h.Piece.Update)
			pieces.DELETE("/:id", requireAuth, requireAdmin, h.Piece.Delete)
		}

		instruments := api.Group("/instruments")
		{
			instruments.GET("", h.Instrument.GetAll)
			instruments.GET("/:id", h.Instrument.GetByID)
			instruments.POST("", requireAuth, h.Instrument.Create)
		}

		performances := api.Group("/performances")
		{
			performances.GET("", h.Performance.GetAll)
			performances.GET("/:id", h.Performance.GetByID)
			performances.POST("", requireAuth, h.Performance.Create)
			performances.PATCH("/:id", requireAuth, h.Performance.Update)
			performances.DELETE("/:id", requireAuth, requireAdmin, h.Performance.Delete)
		}

		quizzesGroup := api.Group("/quizzes")
		{
			quizzesGroup.GET("", h.Quiz.GetAllQuizzes)
			quizzesGroup.GET("/search", h.Quiz.SearchQuizzes)
			quizzesGroup.GET("/mine", requireAuth, h.Quiz.GetUserQuizzes)
			quizzesGroup.POST("", requireAuth, h.Quiz.CreateQuiz)
			quizzesGroup.GET("/:id", h.Quiz.GetQuizByID)
			quizzesGroup.PUT("/:id", requireAuth, h.Quiz.UpdateQuiz)
			quizzesGroup.DELETE("/:id", requireAuth, h.Quiz.DeleteQuiz)

			quizzesGroup.GET("/:id/like", optionalAuth, h.Quiz.GetLikeStatus)
			quizzesGroup.POST("/:id/like", requireAuth, h.Quiz.LikeQuiz)
			quizzesGroup.DELETE("/:id/like", requireAuth, h.Quiz.UnlikeQuiz)

			quizzesGroup.POST("/:id/check", h.Quiz.CheckAnswers)
			quizzesGroup.GET("/:id/play", h.Quiz.PlayQuiz)
			quizzesGroup.PUT("/:id/pending-session", h.Quiz.SavePendingSession)
			quizzesGroup.GET("/:id/pending-session", h.Quiz.TakePendingSession)

			quizzesGroup.GET("/:id/comments", h.Comment.GetComments)
			quizzesGroup.POST("/:id/comments", requireAuth, h.Comment.AddComment)
		}

		comments := api.Group("/comments")
		{
			comments.PATCH("/:id", requireAuth, h.Comment.UpdateComment)
			comments.DELETE("/:id", requireAuth, h.Comment.DeleteComment)
			comments.POST("/:id/hide", requireAuth, requireAdmin, h.Comment.HideComment)
		}
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin,
	}

	// Realtime feed of likes and comments for one quiz.
	router.GET("/ws/quizzes/:id", func(c *gin.Context) {
		quizID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.RespondError(c, apierr.BadRequest("invalid quiz id"))
			return
		}
		quiz, err := quizzes.GetQuizByID(c.Request.Context(), quizID)
		if err != nil {
			response.RespondError(c, err)
			return
		}
		if quiz == nil {
			response.RespondError(c, apierr.NotFound("quiz not found"))
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade has already written the HTTP error.
			log.Warn("websocket upgrade failed", "quiz_id", quizID, "error", err)
			return
		}
		hub.Serve(conn, quizID)
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
