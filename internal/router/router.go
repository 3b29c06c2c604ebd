package router

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	echoSwagger "github.com/swaggo/echo-swagger"

	"findash/internal/handler"
	"findash/internal/logging"
	"findash/internal/metrics"
	"findash/internal/model"
	"findash/internal/service"
	"findash/internal/ws"
)

// WelcomeMessage is served at the root path.
const WelcomeMessage = "Welcome to the Financial Dashboard API. See /docs for API details."

// Handlers groups everything Register mounts.
type Handlers struct {
	Auth        *handler.AuthHandler
	Users       *handler.UserHandler
	Stocks      *handler.StockHandler
	WebSocket   *ws.Handler
	AuthService service.AuthService
}

// Register wires routes and middleware.
func Register(e *echo.Echo, log *logrus.Logger, h Handlers) {
	e.HideBanner = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(logging.RequestLogger(log))
	e.Use(metrics.Middleware())

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, handler.MessageResponse{Message: WelcomeMessage})
	})
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", metrics.Handler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/docs", func(c echo.Context) error {
		return c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	authn := handler.Authenticate(h.AuthService)
	active := handler.RequireActive()
	superuser := handler.RequireSuperuser()

	auth := e.Group("/auth")
	auth.POST("/token", h.Auth.Login)
	auth.POST("/logout", h.Auth.Logout, authn, active)

	users := e.Group("/users")
	for _, root := range []string{"", "/"} {
		users.POST(root, h.Users.CreateUser)
		users.GET(root, h.Users.ListUsers, authn, superuser)
	}
	users.GET("/me", h.Users.Me, authn, active)
	users.POST("/me/change-password", h.Users.ChangePassword, authn, active)
	users.GET("/:id", h.Users.GetUser, authn, active)
	users.PUT("/:id", h.Users.UpdateUser, authn, active)
	users.DELETE("/:id", h.Users.DeleteUser, authn, superuser)

	stocks := e.Group("/stocks")
	stocks.POST("", h.Stocks.CreatePrice, authn, superuser)
	stocks.POST("/", h.Stocks.CreatePrice, authn, superuser)
	stocks.POST("/bulk", h.Stocks.CreatePricesBulk, authn, superuser)
	stocks.POST("/fetch/:symbol", h.Stocks.FetchPrices, authn, superuser)
	stocks.GET("/:symbol", h.Stocks.GetPrices)
	stocks.DELETE("/:symbol", h.Stocks.DeletePrices, authn, superuser)

	if h.WebSocket != nil {
		e.GET("/ws_example/ws/:client_id", h.WebSocket.Serve)
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator reports fields by their JSON names and understands the
// decimal and date types used in request bodies.
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(model.Date); ok && !d.IsZero() {
			return d.Time
		}
		return nil
	}, model.Date{})
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
