package checkoutSessions

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"redirect_service/internal/checkout"
	"redirect_service/internal/lib/api/apierr"
	resp "redirect_service/internal/lib/api/response"
	"redirect_service/internal/middleware/identity"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const msgNoSuchTier = "No such subscription tier"

type Request struct {
	SubscriptionTier *int32 `json:"subscription_tier" validate:"required"`
}

type Response struct {
	StripeSession string `json:"stripe_session"`
}

type Starter interface {
	Start(ctx context.Context, userID int64, tierID int32) (string, error)
}

// New handles POST /users/{user}/checkout_sessions. Only the user
// themselves may start a purchase.
func New(log *slog.Logger, validate *validator.Validate, saga Starter) http.HandlerFunc {
	return resp.Handle(log, func(w http.ResponseWriter, r *http.Request) error {
		const op = "handlers.checkout_sessions.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if err := identity.EnsureSelf(r.Context()); err != nil {
			return err
		}

		target, _ := identity.TargetFrom(r.Context())

		var req Request

		if err := resp.DecodeJSON(r, validate, &req); err != nil {
			return err
		}

		stripeID, err := saga.Start(r.Context(), target.ID, *req.SubscriptionTier)
		if err != nil {
			if errors.Is(err, checkout.ErrNoSuchTier) {
				return apierr.BadRequest(msgNoSuchTier)
			}

			return err
		}

		log.Info("checkout started", slog.String("stripe_session", stripeID))

		return resp.JSON(w, r, Response{StripeSession: stripeID})
	})
}
