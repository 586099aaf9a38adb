package subscriptionTiers

import (
	"log/slog"
	"net/http"

	resp "redirect_service/internal/lib/api/response"
	"redirect_service/internal/tiers"
)

type Snapshotter interface {
	Snapshot() []tiers.Tier
}

// New handles GET /subscription_tiers.
func New(log *slog.Logger, cache Snapshotter) http.HandlerFunc {
	return resp.Handle(log, func(w http.ResponseWriter, r *http.Request) error {
		return resp.JSON(w, r, cache.Snapshot())
	})
}
