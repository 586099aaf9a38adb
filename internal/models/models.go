package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID       int64
	Email    string
	PassHash []byte
	Tier     int32
}

type LoginToken struct {
	Token     uuid.UUID
	UserID    int64
	CreatedAt time.Time
}

type Redirect struct {
	ID          int64  `db:"id" json:"id"`
	Host        string `db:"host" json:"host"`
	Destination string `db:"destination" json:"destination"`
	Owner       int64  `db:"owner" json:"-"`
	VisitsTotal *int32 `db:"cache_visit_count_total" json:"visits_total"`
	VisitsMonth *int32 `db:"cache_visit_count_month" json:"visits_month"`
}

type RedirectTLSState string

const (
	RedirectTLSReady   RedirectTLSState = "ready"
	RedirectTLSError   RedirectTLSState = "error"
	RedirectTLSPending RedirectTLSState = "pending"
)

// RedirectDetails is a Redirect with its certificate status.
type RedirectDetails struct {
	Redirect
	AllowTLS   bool
	ACMEFailed bool
	HasCert    bool
}

func (d RedirectDetails) TLSState() RedirectTLSState {
	switch {
	case d.HasCert:
		return RedirectTLSReady
	case d.ACMEFailed:
		return RedirectTLSError
	default:
		return RedirectTLSPending
	}
}

// TierRow is a subscription_tiers row before pricing is resolved.
type TierRow struct {
	ID         int32   `db:"id"`
	Name       string  `db:"name"`
	StripePlan *string `db:"stripe_plan"`
	VisitLimit *int32  `db:"visit_limit"`
}

type CheckoutSession struct {
	ID        int64
	UserID    int64
	TierID    int32
	Timestamp time.Time
	StripeID  *string
}

type CheckoutEventType string

const (
	CheckoutSessionCreated CheckoutEventType = "checkout.session_created"
	CheckoutIntentOrphaned CheckoutEventType = "checkout.intent_orphaned"
)

// CheckoutEvent is published to the message broker for each finished or
// abandoned checkout attempt.
type CheckoutEvent struct {
	Type              CheckoutEventType `json:"type"`
	CheckoutSessionID int64             `json:"checkout_session_id"`
	UserID            int64             `json:"user_id"`
	TierID            int32             `json:"tier_id"`
	StripeID          string            `json:"stripe_id,omitempty"`
	Stage             string            `json:"stage,omitempty"`
	Error             string            `json:"error,omitempty"`
	OccurredAt        time.Time         `json:"occurred_at"`
}
