package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apperrors "findash/internal/errors"
)

var bodyBinder = new(echo.DefaultBinder)

// bindBody decodes the request body (JSON or form) into req and validates it.
// Failures become 422 responses located under "body".
func bindBody(c echo.Context, req interface{}) error {
	if err := bodyBinder.BindBody(c, req); err != nil {
		return apperrors.NewValidationError([]string{"body"}, bindMessage(err), "value_error.jsondecode")
	}
	return validate(c, req, "body")
}

// validate runs the registered validator and converts its failures.
func validate(c echo.Context, req interface{}, loc string) error {
	err := c.Validate(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &apperrors.ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, apperrors.FieldError{
			Loc:  fieldLoc(loc, fe.Namespace()),
			Msg:  fieldMessage(fe),
			Type: fieldType(fe),
		})
	}
	return out
}

// queryError converts an echo query binding failure into a 422.
func queryError(err error) error {
	var be *echo.BindingError
	if errors.As(err, &be) {
		return apperrors.NewValidationError([]string{"query", be.Field}, bindMessage(be.HTTPError), "type_error")
	}
	return apperrors.NewValidationError([]string{"query"}, bindMessage(err), "type_error")
}

func missing(loc, field string) error {
	return apperrors.NewValidationError([]string{loc, field}, "field required", "value_error.missing")
}

// fieldLoc turns "Request.prices[1].open" into [loc, "prices", "1", "open"].
func fieldLoc(loc, namespace string) []string {
	parts := strings.Split(namespace, ".")
	out := []string{loc}
	for _, p := range parts[1:] {
		if i := strings.IndexByte(p, '['); i > 0 && strings.HasSuffix(p, "]") {
			out = append(out, p[:i], p[i+1:len(p)-1])
			continue
		}
		out = append(out, p)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "email":
		return "value is not a valid email address"
	case "min":
		return fmt.Sprintf("ensure this value has at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("ensure this value has at most %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("ensure this value is greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("ensure this value is greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("ensure this value is less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("value is not a valid enumeration member; permitted: %s", fe.Param())
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}

func fieldType(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "value_error.missing"
	case "email":
		return "value_error.email"
	case "min", "max":
		return "value_error.any_str"
	case "gt", "gte", "lte":
		return "value_error.number"
	default:
		return "value_error"
	}
}

func bindMessage(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil {
			return he.Internal.Error()
		}
		return fmt.Sprint(he.Message)
	}
	return err.Error()
}
