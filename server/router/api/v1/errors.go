package v1

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/labstack/echo/v4"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hrygo/feedlens/internal/logging"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail any    `json:"detail"`
	Type   string `json:"type"`
}

// FieldError describes one failed field of a request body.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"msg"`
}

// validationError marks a request that could not be bound or validated.
type validationError struct {
	fields []FieldError
	cause  error
}

func (e *validationError) Error() string {
	return "validation failed: " + e.cause.Error()
}

func (e *validationError) Unwrap() error {
	return e.cause
}

func newValidationError(err error) error {
	ve := &validationError{cause: err}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			ve.fields = append(ve.fields, FieldError{
				Field:   fe.Field(),
				Message: "failed on the '" + fe.Tag() + "' rule",
			})
		}
		return ve
	}
	var be *echo.BindingError
	if errors.As(err, &be) {
		ve.fields = []FieldError{{Field: be.Field, Message: "must be an integer"}}
		return ve
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			ve.fields = []FieldError{{Field: "body", Message: msg}}
			return ve
		}
	}
	ve.fields = []FieldError{{Field: "body", Message: err.Error()}}
	return ve
}

// errorResponse maps err to an HTTP status and body.
func errorResponse(err error) (int, *ErrorResponse) {
	var ve *validationError
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity, &ErrorResponse{Detail: ve.fields, Type: "validation_error"}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusNotFound:
			return he.Code, &ErrorResponse{Detail: "Not Found", Type: "not_found"}
		case http.StatusMethodNotAllowed:
			return he.Code, &ErrorResponse{Detail: "Method Not Allowed", Type: "method_not_allowed"}
		default:
			return he.Code, &ErrorResponse{Detail: he.Message, Type: "http_error"}
		}
	}

	st, ok := status.FromError(err)
	if !ok {
		return http.StatusInternalServerError, &ErrorResponse{Detail: "An unexpected error occurred", Type: "internal_error"}
	}
	code := runtime.HTTPStatusFromCode(st.Code())
	switch st.Code() {
	case codes.InvalidArgument:
		return code, &ErrorResponse{Detail: st.Message(), Type: "bad_request"}
	case codes.NotFound:
		return code, &ErrorResponse{Detail: st.Message(), Type: "not_found"}
	case codes.Unavailable:
		return code, &ErrorResponse{Detail: "AI service temporarily unavailable", Type: "ai_service_error"}
	case codes.Internal:
		return code, &ErrorResponse{Detail: "Database operation failed", Type: "database_error"}
	case codes.Canceled, codes.DeadlineExceeded:
		return code, &ErrorResponse{Detail: st.Message(), Type: "timeout"}
	default:
		return http.StatusInternalServerError, &ErrorResponse{Detail: "An unexpected error occurred", Type: "internal_error"}
	}
}

// HTTPErrorHandler renders errors returned by handlers as ErrorResponse JSON.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, body := errorResponse(err)
	logger := logging.FromContext(c.Request().Context())
	if code >= http.StatusInternalServerError {
		logger.Error("request failed", "path", c.Path(), "status", code, "error", err)
	} else {
		logger.Debug("request rejected", "path", c.Path(), "status", code, "error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		logger.Error("failed to write error response", "error", err)
	}
}
