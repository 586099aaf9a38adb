package login

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"redirect_service/internal/auth"
	"redirect_service/internal/lib/api/apierr"
	resp "redirect_service/internal/lib/api/response"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	msgNoSuchEmail       = "No such user with that email address"
	msgIncorrectPassword = "Incorrect password"
)

type Request struct {
	Email string `json:"email" validate:"required"`
	Pass  string `json:"password" validate:"required"`
}

type Authenticator interface {
	Login(ctx context.Context, email, password string) (uuid.UUID, error)
}

// New handles POST /logins and answers with the login token as plain text.
func New(
	log *slog.Logger,
	validate *validator.Validate,
	authenticator Authenticator,
) http.HandlerFunc {
	return resp.Handle(log, func(w http.ResponseWriter, r *http.Request) error {
		const op = "handlers.login.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := resp.DecodeJSON(r, validate, &req); err != nil {
			return err
		}

		token, err := authenticator.Login(r.Context(), req.Email, req.Pass)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUserNotFound):
				return apierr.BadRequest(msgNoSuchEmail)
			case errors.Is(err, auth.ErrInvalidCredentials):
				return apierr.Unauthorized(msgIncorrectPassword)
			}

			return err
		}

		log.Info("user logged in successfully")

		resp.PlainText(w, r, token.String())

		return nil
	})
}
