package redirects

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"redirect_service/internal/lib/api/apierr"
	resp "redirect_service/internal/lib/api/response"
	"redirect_service/internal/middleware/identity"
	"redirect_service/internal/models"
	"redirect_service/internal/storage"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

// IDParam is the route placeholder of GET /redirects/{id}.
const IDParam = "id"

const (
	msgInvalidRedirectID = "Invalid redirect ID"
	msgNoSuchRedirect    = "No such redirect"
	msgNotYourRedirect   = "That's not your redirect"
	msgLoginRequired     = "Login is required to access redirects"
	msgHostTaken         = "A redirect for that host already exists"
)

type Lister interface {
	Redirects(ctx context.Context, owner int64) ([]models.Redirect, error)
}

type Saver interface {
	SaveRedirect(ctx context.Context, owner int64, host, destination string) (int64, error)
}

type Provider interface {
	Redirect(ctx context.Context, id int64) (models.RedirectDetails, error)
}

type CreateRequest struct {
	Host        string `json:"host" validate:"required,hostname"`
	Destination string `json:"destination" validate:"required,url"`
}

type TLSInfo struct {
	Enabled bool                    `json:"enabled"`
	State   models.RedirectTLSState `json:"state"`
}

type DetailsResponse struct {
	models.Redirect
	TLS TLSInfo `json:"tls"`
}

// List handles GET /users/{user}/redirects. The router only lets the owner
// through.
func List(log *slog.Logger, lister Lister) http.HandlerFunc {
	return resp.Handle(log, func(w http.ResponseWriter, r *http.Request) error {
		target, _ := identity.TargetFrom(r.Context())

		list, err := lister.Redirects(r.Context(), target.ID)
		if err != nil {
			return err
		}

		if list == nil {
			list = []models.Redirect{}
		}

		return resp.JSON(w, r, list)
	})
}

// Create handles POST /users/{user}/redirects and answers with the new id.
func Create(log *slog.Logger, validate *validator.Validate, saver Saver) http.HandlerFunc {
	return resp.Handle(log, func(w http.ResponseWriter, r *http.Request) error {
		const op = "handlers.redirects.Create"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		target, _ := identity.TargetFrom(r.Context())

		var req CreateRequest

		if err := resp.DecodeJSON(r, validate, &req); err != nil {
			return err
		}

		id, err := saver.SaveRedirect(r.Context(), target.ID, req.Host, req.Destination)
		if err != nil {
			if errors.Is(err, storage.ErrRedirectExists) {
				return apierr.BadRequest(msgHostTaken)
			}

			return err
		}

		log.Info("redirect created", slog.Int64("id", id), slog.String("host", req.Host))

		resp.PlainText(w, r, strconv.FormatInt(id, 10))

		return nil
	})
}

// Get handles GET /redirects/{id}, visible to its owner only.
func Get(log *slog.Logger, provider Provider) http.HandlerFunc {
	return resp.Handle(log, func(w http.ResponseWriter, r *http.Request) error {
		id, err := strconv.ParseInt(chi.URLParam(r, IDParam), 10, 32)
		if err != nil {
			return apierr.BadRequest(msgInvalidRedirectID)
		}

		caller, err := identity.RequireCaller(r.Context(), msgLoginRequired)
		if err != nil {
			return err
		}

		details, err := provider.Redirect(r.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrRedirectNotFound) {
				return apierr.NotFoundMsg(msgNoSuchRedirect)
			}

			return err
		}

		if details.Owner != caller.UserID {
			return apierr.Forbidden(msgNotYourRedirect)
		}

		return resp.JSON(w, r, DetailsResponse{
			Redirect: details.Redirect,
			TLS: TLSInfo{
				Enabled: details.AllowTLS,
				State:   details.TLSState(),
			},
		})
	})
}
