package gateway

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"assetstore.evalgo.org/applog"
)

// ErrorBody is the JSON shape every error response takes, per the
// external-interface contract: message, exception, stacktrace.
type ErrorBody struct {
	Message   string `json:"message"`
	Exception string `json:"exception,omitempty"`
	Stacktrace string `json:"stacktrace,omitempty"`
}

// CustomHTTPErrorHandler renders every error an echo handler returns as
// the structured JSON body the contract specifies, never leaking a raw Go
// stack trace unless an action explicitly embedded one in an Error
// result.
func CustomHTTPErrorHandler(err error, c echo.Context) {
	status := http.StatusInternalServerError
	body := ErrorBody{Message: err.Error()}

	switch e := err.(type) {
	case *StoreError:
		status = e.Status
		body = ErrorBody{Message: e.Message, Exception: e.Exception, Stacktrace: e.Stack}
	case *echo.HTTPError:
		status = e.Code
		if msg, ok := e.Message.(string); ok {
			body.Message = msg
		}
	default:
		status = classifyStoreError(err)
	}

	if !c.Response().Committed {
		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			applog.Base.WithError(werr).Error("failed writing error response")
		}
	}
}
