package subscriptionTier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"redirect_service/internal/lib/api/apierr"
	resp "redirect_service/internal/lib/api/response"
	"redirect_service/internal/middleware/identity"
	"redirect_service/internal/storage"
	"redirect_service/internal/tiers"
)

const msgNoSuchUser = "No such user"

type UserTierProvider interface {
	UserTier(ctx context.Context, id int64) (int32, error)
}

type TierSource interface {
	Get(id int32) (tiers.Tier, bool)
}

// New handles GET /users/{user}/subscription_tier. The tier details come
// from the cache; a user on a tier the cache does not know is an internal
// error.
func New(log *slog.Logger, users UserTierProvider, cache TierSource) http.HandlerFunc {
	return resp.Handle(log, func(w http.ResponseWriter, r *http.Request) error {
		const op = "handlers.subscription_tier.New"

		target, _ := identity.TargetFrom(r.Context())

		tierID, err := users.UserTier(r.Context(), target.ID)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return apierr.NotFoundMsg(msgNoSuchUser)
			}

			return err
		}

		tier, ok := cache.Get(tierID)
		if !ok {
			return apierr.Internal(fmt.Errorf("%s: tier %d of user %d is not cached", op, tierID, target.ID))
		}

		return resp.JSON(w, r, tier)
	})
}
