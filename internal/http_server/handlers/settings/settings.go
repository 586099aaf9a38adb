package settings

import (
	"log/slog"
	"net/http"

	resp "redirect_service/internal/lib/api/response"
)

// Settings is the public client configuration.
type Settings struct {
	StripePublishableKey string `json:"stripe_publishable_key"`
}

// New handles GET /settings.
func New(log *slog.Logger, s Settings) http.HandlerFunc {
	return resp.Handle(log, func(w http.ResponseWriter, r *http.Request) error {
		return resp.JSON(w, r, s)
	})
}
