package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TomerAmran/guess-the-performer-sub001/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError renders err as an error envelope. Errors that are not
// *apierr.Error become 500s with a generic message; the cause is kept on
// the gin context for the request logger.
func RespondError(c *gin.Context, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	_ = c.Error(err)

	e, ok := apierr.As(err)
	if !ok || e.Status >= http.StatusInternalServerError {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorEnvelope{
			Error: APIError{Message: "internal server error", Code: apierr.CodeInternal},
		})
		return
	}
	c.AbortWithStatusJSON(e.Status, ErrorEnvelope{
		Error: APIError{Message: e.Error(), Code: e.Code},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
