package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/TomerAmran/guess-the-performer-sub001/apierr"
	"github.com/TomerAmran/guess-the-performer-sub001/middleware"
	"github.com/TomerAmran/guess-the-performer-sub001/response"
)

// pathID parses a uuid path parameter, responding 400 when it is malformed.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, apierr.BadRequest("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

func queryID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.RespondError(c, apierr.BadRequest("invalid %s", name))
		return nil, false
	}
	return &id, true
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.RespondError(c, apierr.BadRequest("invalid request body: %v", err))
		return false
	}
	return true
}

// currentUser is only used behind AuthMiddleware, so a missing user is a
// 401 rather than a panic.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		response.RespondError(c, apierr.Unauthorized("user not authenticated"))
	}
	return id, ok
}
