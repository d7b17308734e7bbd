package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/shiftsleep-backend/internal/platform/apierr"
	"github.com/yungbote/shiftsleep-backend/internal/platform/ctxutil"
)

// RespondAPIError maps err onto the error envelope. Errors that are not an
// *apierr.Error become a 500 and their text is not echoed to the client.
func RespondAPIError(c *gin.Context, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	ae := apierr.As(err)
	if ae.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
		RespondError(c, ae.Status, ae.Code, errors.New(http.StatusText(ae.Status)))
		return
	}
	RespondError(c, ae.Status, ae.Code, ae)
}

func correlationID(c *gin.Context) string {
	return ctxutil.CorrelationID(c.Request.Context())
}
