package response

import (
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"redirect_service/internal/lib/api/apierr"
	"redirect_service/internal/lib/logger/handlers/slogdiscard"
)

func TestErrorMapsDomainErrorsVerbatim(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"not found", apierr.NotFound(), http.StatusNotFound, apierr.MsgNotFound},
		{"method", apierr.MethodNotAllowed(), http.StatusMethodNotAllowed, apierr.MsgMethodNotAllowed},
		{"bad request", apierr.BadRequest("No such subscription tier"), http.StatusBadRequest, "No such subscription tier"},
		{"only for me", apierr.OnlyForMe(), http.StatusUnauthorized, apierr.MsgOnlyForMe},
		{"forbidden", apierr.Forbidden("That's not your redirect"), http.StatusForbidden, "That's not your redirect"},
		{"unimplemented", apierr.Unimplemented(), http.StatusNotImplemented, apierr.MsgUnimplemented},
		{"wrapped", errors.Join(errors.New("ctx"), apierr.InvalidToken()), http.StatusUnauthorized, apierr.MsgInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			Error(rec, req, slogdiscard.NewDiscardLogger(), tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
				t.Errorf("content type = %q, want text/plain", ct)
			}
		})
	}
}

func TestErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	Error(rec, req, slogdiscard.NewDiscardLogger(), errors.New("pq: password authentication failed"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("internal detail leaked: %q", rec.Body.String())
	}
}

func TestJSONEncodingFailureIsReported(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	err := JSON(rec, req, map[string]float64{"x": math.Inf(1)})
	if err == nil {
		t.Fatal("expected encoding error")
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("nothing should be written on failure, got %q", rec.Body.String())
	}
}

func TestHandleRoutesErrors(t *testing.T) {
	h := Handle(slogdiscard.NewDiscardLogger(), func(w http.ResponseWriter, r *http.Request) error {
		return apierr.LoginRequired("")
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized || rec.Body.String() != apierr.MsgLoginRequired {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestDecodeJSONValidation(t *testing.T) {
	type body struct {
		Email string `json:"email" validate:"required,email"`
	}

	validate := NewValidator()

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"garbage", "{", "Failed to decode request body"},
		{"missing", `{}`, "field email is a required field"},
		{"not email", `{"email":"nope"}`, "field email is not a valid email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))

			var b body
			err := DecodeJSON(req, validate, &b)

			var apiErr *apierr.Error
			if !errors.As(err, &apiErr) || apiErr.Kind != apierr.KindBadRequest {
				t.Fatalf("expected bad request, got %v", err)
			}
			if apiErr.Body != tt.want {
				t.Fatalf("body = %q, want %q", apiErr.Body, tt.want)
			}
		})
	}
}
