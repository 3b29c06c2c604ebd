package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	apperrors "findash/internal/errors"
)

// ErrorHandler renders every error as {"detail": ...}. 401 responses carry
// a Bearer challenge.
func ErrorHandler(log *logrus.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			httpErr *apperrors.HTTPError
			echoErr *echo.HTTPError
		)
		if errors.As(err, &echoErr) {
			httpErr = apperrors.NewHTTPError(echoErr.Code, echoMessage(echoErr))
		} else {
			httpErr = apperrors.MapErrorToHTTP(err)
		}

		entry := log.WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
			"status": httpErr.StatusCode,
		})
		if httpErr.StatusCode >= http.StatusInternalServerError {
			entry.WithError(err).Error("request error")
		} else {
			entry.WithError(err).Debug("request rejected")
		}

		if httpErr.StatusCode == http.StatusUnauthorized {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(httpErr.StatusCode)
		} else {
			writeErr = c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
		}
		if writeErr != nil {
			log.WithError(writeErr).Warn("write error response")
		}
	}
}

func echoMessage(he *echo.HTTPError) interface{} {
	switch m := he.Message.(type) {
	case string:
		return m
	case error:
		return m.Error()
	case nil:
		return http.StatusText(he.Code)
	default:
		return fmt.Sprint(m)
	}
}
