package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loans/library/internal/errs"
)

const internalMessage = "internal error"

type errorResponse struct {
	Error string `json:"error"`
}

var kindStatus = map[errs.Kind]int{
	errs.KindValidation: http.StatusBadRequest,
	errs.KindAuth:       http.StatusUnauthorized,
	errs.KindForbidden:  http.StatusForbidden,
	errs.KindNotFound:   http.StatusNotFound,
	errs.KindConflict:   http.StatusConflict,
}

// statusOf maps an error to a status code and a message safe to show the client.
func statusOf(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= http.StatusInternalServerError {
			return he.Code, internalMessage
		}
		return he.Code, fmt.Sprint(he.Message)
	}
	if code, ok := kindStatus[errs.KindOf(err)]; ok {
		return code, errs.Message(err)
	}
	return http.StatusInternalServerError, internalMessage
}

func (h *Handler) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := statusOf(err)
	if code >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorResponse{Error: msg})
	}
	if err != nil {
		h.log.Error("write error response", zap.Error(err))
	}
}
