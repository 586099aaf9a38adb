package user

import (
	"log/slog"
	"net/http"

	"redirect_service/internal/lib/api/apierr"
	resp "redirect_service/internal/lib/api/response"
	"redirect_service/internal/middleware/identity"
)

type Response struct {
	ID int64 `json:"id"`
}

// New handles GET /users/{user}.
func New(log *slog.Logger) http.HandlerFunc {
	return resp.Handle(log, func(w http.ResponseWriter, r *http.Request) error {
		target, ok := identity.TargetFrom(r.Context())
		if !ok {
			return apierr.NotFound()
		}

		return resp.JSON(w, r, Response{ID: target.ID})
	})
}
