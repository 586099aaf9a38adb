package signup

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"redirect_service/internal/auth"
	"redirect_service/internal/lib/api/apierr"
	resp "redirect_service/internal/lib/api/response"
	sl "redirect_service/internal/lib/logger/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const msgUserExists = "A user with that email address already exists"

type Request struct {
	Email string `json:"email" validate:"required,email"`
	Pass  string `json:"password" validate:"required"`
}

type UserRegistrar interface {
	RegisterNewUser(ctx context.Context, email, pass string) (int64, error)
}

// New handles POST /users and answers with the new user id as plain text.
func New(
	log *slog.Logger,
	validate *validator.Validate,
	registrar UserRegistrar,
) http.HandlerFunc {
	return resp.Handle(log, func(w http.ResponseWriter, r *http.Request) error {
		const op = "handlers.signup.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := resp.DecodeJSON(r, validate, &req); err != nil {
			log.Info("invalid request", sl.Err(err))

			return err
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		userID, err := registrar.RegisterNewUser(ctx, req.Email, req.Pass)
		if err != nil {
			if errors.Is(err, auth.ErrUserExists) {
				return apierr.BadRequest(msgUserExists)
			}

			return err
		}

		log.Info("user registered", slog.Int64("id", userID))

		resp.PlainText(w, r, strconv.FormatInt(userID, 10))

		return nil
	})
}
