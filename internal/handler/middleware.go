package handler

import (
	"errors"
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"findash/internal/auth"
	apperrors "findash/internal/errors"
	"findash/internal/model"
	"findash/internal/service"
)

const principalKey = "principal"

// Principal is the authenticated caller of a request.
type Principal struct {
	User   *model.User
	Claims *auth.TokenClaims
}

// resolveError carries a failure from token resolution through echo-jwt.
type resolveError struct {
	err error
}

func (e *resolveError) Error() string { return e.err.Error() }
func (e *resolveError) Unwrap() error { return e.err }

// Authenticate extracts the bearer token and resolves it to the current user.
// Requests without a token are rejected with 401 "Not authenticated".
func Authenticate(authService service.AuthService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  principalKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			user, claims, err := authService.ResolveCurrentUser(c.Request().Context(), token)
			if err != nil {
				return nil, &resolveError{err: err}
			}
			return &Principal{User: user, Claims: claims}, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			var re *resolveError
			if errors.As(err, &re) {
				return re.err
			}
			return apperrors.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
		},
	})
}

// RequireActive rejects deactivated callers with 400 "Inactive user".
func RequireActive() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := service.RequireActive(CurrentUser(c)); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// RequireSuperuser rejects callers without the superuser flag.
func RequireSuperuser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := service.RequireSuperuser(CurrentUser(c)); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// CurrentPrincipal returns the authenticated caller, or nil.
func CurrentPrincipal(c echo.Context) *Principal {
	p, _ := c.Get(principalKey).(*Principal)
	return p
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c echo.Context) *model.User {
	if p := CurrentPrincipal(c); p != nil {
		return p.User
	}
	return nil
}
