// Package identity attaches the authenticated caller and the addressed user
// to the request context.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"redirect_service/internal/auth"
	"redirect_service/internal/lib/api/apierr"
	resp "redirect_service/internal/lib/api/response"

	"github.com/go-chi/chi"
)

const (
	// UserParam is the route placeholder holding a user id or "~me".
	UserParam = "user"
	me        = "~me"

	msgInvalidUserSegment = "Invalid user ID segment. Must be an integer or '~me'"
)

type ctxKey int

const (
	callerKey ctxKey = iota
	targetKey
)

type Identifier interface {
	Identify(ctx context.Context, header string) (*auth.Caller, error)
}

// Target is the user a /users/{user} request is addressed to.
type Target struct {
	ID     int64
	IsSelf bool
}

// Caller returns the authenticated caller, or nil for anonymous requests.
func Caller(ctx context.Context) *auth.Caller {
	c, _ := ctx.Value(callerKey).(*auth.Caller)
	return c
}

func WithCaller(ctx context.Context, c *auth.Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// TargetFrom returns the target resolved by ResolveUser.
func TargetFrom(ctx context.Context) (Target, bool) {
	t, ok := ctx.Value(targetKey).(Target)
	return t, ok
}

func WithTarget(ctx context.Context, t Target) context.Context {
	return context.WithValue(ctx, targetKey, t)
}

// Authenticate runs the Authorization header through the gate. Anonymous
// requests pass with no caller; unknown tokens are rejected.
func Authenticate(log *slog.Logger, gate Identifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			caller, err := identify(r.Context(), gate, r.Header.Get("Authorization"))
			if err != nil {
				resp.Error(w, r, log, err)

				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		}

		return http.HandlerFunc(fn)
	}
}

// ResolveUser turns the {user} segment into a Target. The segment is checked
// before the caller is identified, so a malformed segment is a 400 whatever
// the Authorization header holds.
func ResolveUser(log *slog.Logger, gate Identifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			segment := chi.URLParam(r, UserParam)

			id, isMe, err := parseSegment(segment)
			if err != nil {
				resp.Error(w, r, log, err)

				return
			}

			ctx := r.Context()

			caller, err := identify(ctx, gate, r.Header.Get("Authorization"))
			if err != nil {
				resp.Error(w, r, log, err)

				return
			}

			var target Target

			switch {
			case isMe && caller == nil:
				resp.Error(w, r, log, apierr.LoginRequired(apierr.MsgMeLoginRequired))

				return
			case isMe:
				target = Target{ID: caller.UserID, IsSelf: true}
			default:
				target = Target{ID: id, IsSelf: caller != nil && caller.UserID == id}
			}

			ctx = WithTarget(WithCaller(ctx, caller), target)

			next.ServeHTTP(w, r.WithContext(ctx))
		}

		return http.HandlerFunc(fn)
	}
}

// parseSegment accepts ids in the range of the int4 users.id column.
func parseSegment(segment string) (id int64, isMe bool, err error) {
	if segment == me {
		return 0, true, nil
	}

	id, err = strconv.ParseInt(segment, 10, 32)
	if err != nil {
		return 0, false, apierr.BadRequest(msgInvalidUserSegment)
	}

	return id, false, nil
}

func identify(ctx context.Context, gate Identifier, header string) (*auth.Caller, error) {
	caller, err := gate.Identify(ctx, header)
	if errors.Is(err, auth.ErrInvalidToken) {
		return nil, apierr.InvalidToken()
	}

	return caller, err
}

// RequireSelf lets through only requests whose target is the caller.
func RequireSelf(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if err := EnsureSelf(r.Context()); err != nil {
				resp.Error(w, r, log, err)

				return
			}

			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(fn)
	}
}

func EnsureSelf(ctx context.Context) error {
	t, ok := TargetFrom(ctx)
	if !ok || !t.IsSelf {
		return apierr.OnlyForMe()
	}

	return nil
}

// RequireCaller rejects anonymous requests with msg, or the default login message.
func RequireCaller(ctx context.Context, msg string) (*auth.Caller, error) {
	c := Caller(ctx)
	if c == nil {
		return nil, apierr.LoginRequired(msg)
	}

	return c, nil
}
