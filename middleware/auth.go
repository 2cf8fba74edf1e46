package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/TomerAmran/guess-the-performer-sub001/apierr"
	"github.com/TomerAmran/guess-the-performer-sub001/response"
	"github.com/TomerAmran/guess-the-performer-sub001/services"
)

const (
	userIDKey    = "user_id"
	userEmailKey = "user_email"
)

// Authenticator verifies session tokens and recognises admins.
type Authenticator interface {
	ParseToken(token string) (*services.Session, error)
	IsAdmin(email string) bool
}

// bearerToken reads "Authorization: Bearer <token>", falling back to the
// token query parameter that browsers use for websockets.
func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", false
		}
		return strings.TrimSpace(parts[1]), true
	}
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}

func setSession(c *gin.Context, s *services.Session) {
	c.Set(userIDKey, s.UserID)
	c.Set(userEmailKey, s.Email)
}

func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.RespondError(c, apierr.Unauthorized("authorization required"))
			return
		}
		session, err := auth.ParseToken(token)
		if err != nil {
			response.RespondError(c, err)
			return
		}
		setSession(c, session)
		c.Next()
	}
}

// OptionalAuthMiddleware attaches the session when a valid token is present
// and otherwise lets the request through anonymously.
func OptionalAuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if session, err := auth.ParseToken(token); err == nil {
				setSession(c, session)
			}
		}
		c.Next()
	}
}

// AdminMiddleware must run after AuthMiddleware.
func AdminMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); !ok {
			response.RespondError(c, apierr.Unauthorized("authorization required"))
			return
		}
		if !auth.IsAdmin(c.GetString(userEmailKey)) {
			response.RespondError(c, apierr.Forbidden("admin access required"))
			return
		}
		c.Next()
	}
}

func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func UserEmail(c *gin.Context) string {
	return c.GetString(userEmailKey)
}
