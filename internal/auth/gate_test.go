package auth

import (
	"context"
	"errors"
	"testing"

	"redirect_service/internal/lib/logger/handlers/slogdiscard"
	"redirect_service/internal/storage"

	"github.com/google/uuid"
)

type mockTokenResolver struct {
	LoginTokenUserFunc func(ctx context.Context, token uuid.UUID) (int64, error)
	calls              int
}

func (m *mockTokenResolver) LoginTokenUser(ctx context.Context, token uuid.UUID) (int64, error) {
	m.calls++
	if m.LoginTokenUserFunc != nil {
		return m.LoginTokenUserFunc(ctx, token)
	}
	return 0, storage.ErrTokenNotFound
}

func TestIdentifyAnonymous(t *testing.T) {
	headers := []string{
		"",
		"Bearer",
		"Bearer ",
		"Basic dXNlcjpwYXNz",
		"Bearer not-a-uuid",
		uuid.NewString(),
	}

	for _, h := range headers {
		t.Run(h, func(t *testing.T) {
			tokens := &mockTokenResolver{}
			g := NewGate(slogdiscard.NewDiscardLogger(), tokens)

			caller, err := g.Identify(context.Background(), h)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if caller != nil {
				t.Fatalf("expected anonymous caller, got %+v", caller)
			}
			if tokens.calls != 0 {
				t.Errorf("malformed header caused %d lookups", tokens.calls)
			}
		})
	}
}

func TestIdentifyUnknownToken(t *testing.T) {
	tokens := &mockTokenResolver{}
	g := NewGate(slogdiscard.NewDiscardLogger(), tokens)

	_, err := g.Identify(context.Background(), "Bearer "+uuid.NewString())
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if tokens.calls != 1 {
		t.Errorf("lookups = %d, want 1", tokens.calls)
	}
}

func TestIdentifyKnownToken(t *testing.T) {
	want := uuid.New()
	tokens := &mockTokenResolver{
		LoginTokenUserFunc: func(_ context.Context, token uuid.UUID) (int64, error) {
			if token != want {
				return 0, storage.ErrTokenNotFound
			}
			return 7, nil
		},
	}
	g := NewGate(slogdiscard.NewDiscardLogger(), tokens)

	caller, err := g.Identify(context.Background(), "bearer "+want.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if caller == nil || caller.UserID != 7 {
		t.Fatalf("caller = %+v, want user 7", caller)
	}
}

func TestIdentifyDatabaseFailure(t *testing.T) {
	dbErr := &storage.DatabaseError{Op: "test", Err: storage.ErrPoolTimeout}
	tokens := &mockTokenResolver{
		LoginTokenUserFunc: func(context.Context, uuid.UUID) (int64, error) {
			return 0, dbErr
		},
	}
	g := NewGate(slogdiscard.NewDiscardLogger(), tokens)

	_, err := g.Identify(context.Background(), "Bearer "+uuid.NewString())
	if errors.Is(err, ErrInvalidToken) {
		t.Fatal("database failure reported as invalid token")
	}
	if !errors.Is(err, storage.ErrPoolTimeout) {
		t.Fatalf("cause lost: %v", err)
	}
}
