package response

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"redirect_service/internal/lib/api/apierr"
	"redirect_service/internal/lib/logger/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

// HandlerFunc is an http.HandlerFunc that reports failures instead of writing them.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Handle adapts h so that every returned error goes through Error.
func Handle(log *slog.Logger, h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			Error(w, r, log, err)
		}
	}
}

// Error writes err as a plain-text response. Anything outside the apierr
// taxonomy is logged and answered with a bare 500.
func Error(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	apiErr := apierr.From(err)

	if apiErr.Kind == apierr.KindInternal {
		log.Error("request failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			sl.Err(err),
		)
	}

	render.Status(r, apiErr.Status())
	render.PlainText(w, r, apiErr.Body)
}

// JSON encodes v before touching w, so an encoding failure can still become a clean 500.
func JSON(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("response.JSON: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	if status, ok := r.Context().Value(render.StatusCtxKey).(int); ok {
		w.WriteHeader(status)
	}
	_, _ = w.Write(body)

	return nil
}

// PlainText is used by creation endpoints that answer with a bare id or token.
func PlainText(w http.ResponseWriter, r *http.Request, v string) {
	render.PlainText(w, r, v)
}

// DecodeJSON decodes and validates a request body, reporting problems as 400s.
func DecodeJSON(r *http.Request, validate *validator.Validate, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return apierr.BadRequest("Failed to decode request body")
	}

	if err := validate.Struct(v); err != nil {
		validateErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return apierr.Internal(err)
		}

		return apierr.BadRequest(ValidationError(validateErrs))
	}

	return nil
}

// NewValidator reports fields by their json names.
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

func ValidationError(errs validator.ValidationErrors) string {
	var errMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not a valid email", err.Field()))
		case "url":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not a valid URL", err.Field()))
		case "hostname":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not a valid hostname", err.Field()))
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}

	return strings.Join(errMsgs, ", ")
}
