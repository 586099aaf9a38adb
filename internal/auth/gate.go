package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"redirect_service/internal/storage"

	"github.com/google/uuid"
)

// ErrInvalidToken means a well-formed bearer token that matches no login.
var ErrInvalidToken = errors.New("unrecognized authentication token")

// Caller is the verified identity behind a request.
type Caller struct {
	UserID int64
}

type TokenResolver interface {
	LoginTokenUser(ctx context.Context, token uuid.UUID) (int64, error)
}

type Gate struct {
	log    *slog.Logger
	tokens TokenResolver
}

func NewGate(log *slog.Logger, tokens TokenResolver) *Gate {
	return &Gate{
		log:    log,
		tokens: tokens,
	}
}

// Identify resolves an Authorization header value.
//
// An empty or malformed header yields a nil Caller and no error: the request
// is anonymous. Only a well-formed token that no login owns is rejected with
// ErrInvalidToken.
func (g *Gate) Identify(ctx context.Context, header string) (*Caller, error) {
	const op = "auth.Gate.Identify"

	token, ok := ParseBearer(header)
	if !ok {
		if header != "" {
			g.log.Debug("ignoring malformed authorization header", slog.String("op", op))
		}

		return nil, nil
	}

	userID, err := g.tokens.LoginTokenUser(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			return nil, ErrInvalidToken
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Caller{UserID: userID}, nil
}

// ParseBearer extracts the login token from "Bearer <token>".
func ParseBearer(header string) (uuid.UUID, bool) {
	scheme, credentials, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return uuid.Nil, false
	}

	token, err := uuid.Parse(strings.TrimSpace(credentials))
	if err != nil {
		return uuid.Nil, false
	}

	return token, true
}
