// Package checkout starts subscription purchases with the payment provider.
//
// A purchase spans a local insert and a non-idempotent provider call. The row
// is written first so every provider session can be traced back to a user;
// if a later step fails the row stays behind without a stripe_id. Such rows
// are logged and announced as checkout.intent_orphaned events, never retried.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sl "redirect_service/internal/lib/logger/sl"
	"redirect_service/internal/models"
	"redirect_service/internal/payments/stripe"
	"redirect_service/internal/storage"
)

var (
	ErrNoSuchTier    = errors.New("no such subscription tier")
	ErrNotConfigured = errors.New("checkout is not configured")
)

const (
	StageLookupEmail   = "lookup_email"
	StageCreateSession = "create_provider_session"
	StageRecordID      = "record_stripe_id"

	publishTimeout = 5 * time.Second
)

type Store interface {
	TierPlan(ctx context.Context, id int32) (string, error)
	CreateCheckoutSession(ctx context.Context, userID int64, tierID int32) (int64, error)
	UserEmail(ctx context.Context, id int64) (string, error)
	SetCheckoutStripeID(ctx context.Context, id int64, stripeID string) error
}

type Provider interface {
	Configured() bool
	CreateCheckoutSession(ctx context.Context, p stripe.CheckoutParams) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event models.CheckoutEvent) error
}

type Saga struct {
	log          *slog.Logger
	store        Store
	provider     Provider
	events       EventPublisher
	frontendHost string
	now          func() time.Time
}

// New builds a Saga. events may be nil, in which case nothing is published.
func New(
	log *slog.Logger,
	store Store,
	provider Provider,
	events EventPublisher,
	frontendHost string,
) *Saga {
	return &Saga{
		log:          log,
		store:        store,
		provider:     provider,
		events:       events,
		frontendHost: strings.TrimSuffix(frontendHost, "/"),
		now:          time.Now,
	}
}

// Start opens a provider checkout for userID buying tierID and returns the
// provider session id. The caller must already have checked that the
// requester is userID.
func (s *Saga) Start(ctx context.Context, userID int64, tierID int32) (string, error) {
	const op = "checkout.Saga.Start"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("user_id", userID),
		slog.Int("tier_id", int(tierID)),
	)

	plan, err := s.store.TierPlan(ctx, tierID)
	if err != nil {
		if errors.Is(err, storage.ErrTierNotFound) {
			return "", ErrNoSuchTier
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	if !s.provider.Configured() || s.frontendHost == "" {
		return "", fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	sessionID, err := s.store.CreateCheckoutSession(ctx, userID, tierID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.Int64("checkout_session_id", sessionID))

	email, err := s.store.UserEmail(ctx, userID)
	if err != nil {
		s.orphaned(ctx, log, sessionID, userID, tierID, "", StageLookupEmail, err)

		return "", fmt.Errorf("%s: %w", op, err)
	}

	stripeID, err := s.provider.CreateCheckoutSession(ctx, stripe.CheckoutParams{
		UserID:        userID,
		CustomerEmail: email,
		Plan:          plan,
		CancelURL:     s.frontendHost + "/pricing",
		SuccessURL:    s.frontendHost + "/purchaseCallback",
	})
	if err != nil {
		s.orphaned(ctx, log, sessionID, userID, tierID, "", StageCreateSession, err)

		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.SetCheckoutStripeID(ctx, sessionID, stripeID); err != nil {
		s.orphaned(ctx, log, sessionID, userID, tierID, stripeID, StageRecordID, err)

		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("checkout session created", slog.String("stripe_id", stripeID))

	s.publish(ctx, log, models.CheckoutEvent{
		Type:              models.CheckoutSessionCreated,
		CheckoutSessionID: sessionID,
		UserID:            userID,
		TierID:            tierID,
		StripeID:          stripeID,
		OccurredAt:        s.now(),
	})

	return stripeID, nil
}

func (s *Saga) orphaned(
	ctx context.Context,
	log *slog.Logger,
	sessionID, userID int64,
	tierID int32,
	stripeID, stage string,
	cause error,
) {
	log.Error("checkout session orphaned",
		slog.String("stage", stage),
		slog.String("stripe_id", stripeID),
		sl.Err(cause),
	)

	s.publish(ctx, log, models.CheckoutEvent{
		Type:              models.CheckoutIntentOrphaned,
		CheckoutSessionID: sessionID,
		UserID:            userID,
		TierID:            tierID,
		StripeID:          stripeID,
		Stage:             stage,
		Error:             cause.Error(),
		OccurredAt:        s.now(),
	})
}

// publish is best effort and outlives a cancelled request.
func (s *Saga) publish(ctx context.Context, log *slog.Logger, event models.CheckoutEvent) {
	if s.events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.events.Publish(ctx, event); err != nil {
		log.Warn("failed to publish checkout event",
			slog.String("type", string(event.Type)),
			sl.Err(err),
		)
	}
}
