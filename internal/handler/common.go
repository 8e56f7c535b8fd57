// Package handler holds the echo handlers of the v1 API.  Handlers
// bind and validate the request, call a service or repository through
// a small interface and map the result to JSON.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/zoo-booking/internal/gateway"
	"github.com/iliyamo/zoo-booking/internal/middleware"
	"github.com/iliyamo/zoo-booking/internal/repository"
	"github.com/iliyamo/zoo-booking/internal/service"
)

const requestTimeout = 5 * time.Second

var errUnauthenticated = errors.New("unauthenticated")

// getUserID extracts the user_id set by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	switch v := c.Get(middleware.CtxUserID).(type) {
	case uint64:
		if v == 0 {
			return 0, errUnauthenticated
		}
		return v, nil
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil || id == 0 {
			return 0, errUnauthenticated
		}
		return id, nil
	default:
		return 0, errUnauthenticated
	}
}

// principal builds the caller identity for the service layer.
func principal(c echo.Context) (service.Principal, error) {
	id, err := getUserID(c)
	if err != nil {
		return service.Principal{}, err
	}
	role, _ := c.Get(middleware.CtxRole).(string)
	return service.Principal{UserID: id, Role: role}, nil
}

func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// writeError maps service and repository errors to the HTTP error
// body.  Anything unrecognised is logged and answered with 500.
func writeError(c echo.Context, err error) error {
	var verr *service.ValidationError
	var cerr *service.CapacityError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Msg})
	case errors.As(err, &cerr):
		return c.JSON(http.StatusConflict, echo.Map{"error": cerr.Error(), "available_rooms": cerr.Available})
	case errors.Is(err, service.ErrInvalidState):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "resource is still referenced"})
	case errors.Is(err, gateway.ErrInvalidSignature):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
	case errors.Is(err, service.ErrUpstreamPayment):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider unavailable"})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "request timed out"})
	}
	logrus.WithError(err).WithFields(logrus.Fields{
		"method": c.Request().Method,
		"path":   c.Path(),
	}).Error("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}
