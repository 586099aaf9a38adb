package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"redirect_service/internal/config"
	"redirect_service/internal/models"
	"redirect_service/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type PostgresRepo struct {
	exec *Executor
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = cfg.Postgres.MaxConns
	poolConfig.MinConns = cfg.Postgres.MinConns
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{
		exec: NewExecutor(pgxPool{pool: pool}, cfg.Postgres.AcquireTimeout),
		pool: pool,
	}, nil
}

// NewWithExecutor builds a repo over an existing executor.
func NewWithExecutor(exec *Executor) *PostgresRepo {
	return &PostgresRepo{exec: exec}
}

func (r *PostgresRepo) SaveUser(ctx context.Context, email string, passHash []byte) (int64, error) {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id;
	`

	var id int64

	_, err := r.exec.QueryOne(ctx, op, query, []any{email, string(passHash)}, &id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, storage.ErrUserExists
		}

		return 0, err
	}

	return id, nil
}

func (r *PostgresRepo) User(ctx context.Context, email string) (models.User, error) {
	const op = "storage.postgres.User"

	query := `
		SELECT id, email, password_hash, tier
		FROM users
		WHERE email = $1;
	`

	var (
		u        models.User
		passHash string
	)

	found, err := r.exec.QueryOne(ctx, op, query, []any{email}, &u.ID, &u.Email, &passHash, &u.Tier)
	if err != nil {
		return models.User{}, err
	}
	if !found {
		return models.User{}, storage.ErrUserNotFound
	}

	u.PassHash = []byte(passHash)

	return u, nil
}

func (r *PostgresRepo) UserEmail(ctx context.Context, id int64) (string, error) {
	const op = "storage.postgres.UserEmail"

	var email string

	found, err := r.exec.QueryOne(ctx, op, `SELECT email FROM users WHERE id = $1`, []any{id}, &email)
	if err != nil {
		return "", err
	}
	if !found {
		return "", storage.ErrUserNotFound
	}

	return email, nil
}

func (r *PostgresRepo) UserTier(ctx context.Context, id int64) (int32, error) {
	const op = "storage.postgres.UserTier"

	var tier int32

	found, err := r.exec.QueryOne(ctx, op, `SELECT tier FROM users WHERE id = $1`, []any{id}, &tier)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, storage.ErrUserNotFound
	}

	return tier, nil
}

func (r *PostgresRepo) SaveLoginToken(ctx context.Context, token uuid.UUID, userID int64) error {
	const op = "storage.postgres.SaveLoginToken"

	query := `
		INSERT INTO logins (token, user_id, created_at)
		VALUES ($1, $2, localtimestamp)
	`

	_, err := r.exec.Exec(ctx, op, query, token, userID)

	return err
}

func (r *PostgresRepo) LoginTokenUser(ctx context.Context, token uuid.UUID) (int64, error) {
	const op = "storage.postgres.LoginTokenUser"

	var userID int64

	found, err := r.exec.QueryOne(ctx, op, `SELECT user_id FROM logins WHERE token = $1`, []any{token}, &userID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, storage.ErrTokenNotFound
	}

	return userID, nil
}

func (r *PostgresRepo) Redirects(ctx context.Context, owner int64) ([]models.Redirect, error) {
	const op = "storage.postgres.Redirects"

	query := `
		SELECT id, host, destination, owner, cache_visit_count_total, cache_visit_count_month
		FROM redirects
		WHERE owner = $1
		ORDER BY id;
	`

	return QueryAll[models.Redirect](ctx, r.exec, op, query, owner)
}

func (r *PostgresRepo) SaveRedirect(ctx context.Context, owner int64, host, destination string) (int64, error) {
	const op = "storage.postgres.SaveRedirect"

	query := `
		INSERT INTO redirects (host, destination, owner)
		VALUES ($1, $2, $3)
		RETURNING id;
	`

	var id int64

	found, err := r.exec.QueryOne(ctx, op, query, []any{host, destination, owner}, &id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, storage.ErrRedirectExists
		}

		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%s: insert returned no id", op)
	}

	return id, nil
}

func (r *PostgresRepo) Redirect(ctx context.Context, id int64) (models.RedirectDetails, error) {
	const op = "storage.postgres.Redirect"

	query := `
		SELECT host, destination, owner, cache_visit_count_total, cache_visit_count_month,
			allow_tls, acme_failed, (tls_cert IS NOT NULL AND tls_privkey IS NOT NULL)
		FROM redirects
		WHERE id = $1;
	`

	d := models.RedirectDetails{Redirect: models.Redirect{ID: id}}

	found, err := r.exec.QueryOne(ctx, op, query, []any{id},
		&d.Host,
		&d.Destination,
		&d.Owner,
		&d.VisitsTotal,
		&d.VisitsMonth,
		&d.AllowTLS,
		&d.ACMEFailed,
		&d.HasCert,
	)
	if err != nil {
		return models.RedirectDetails{}, err
	}
	if !found {
		return models.RedirectDetails{}, storage.ErrRedirectNotFound
	}

	return d, nil
}

func (r *PostgresRepo) SubscriptionTiers(ctx context.Context) ([]models.TierRow, error) {
	const op = "storage.postgres.SubscriptionTiers"

	query := `
		SELECT id, name, stripe_plan, visit_limit
		FROM subscription_tiers
		ORDER BY id;
	`

	return QueryAll[models.TierRow](ctx, r.exec, op, query)
}

// TierPlan returns the external plan of a purchasable tier. Tiers without a
// plan are reported as storage.ErrTierNotFound.
func (r *PostgresRepo) TierPlan(ctx context.Context, id int32) (string, error) {
	const op = "storage.postgres.TierPlan"

	var plan *string

	found, err := r.exec.QueryOne(ctx, op, `SELECT stripe_plan FROM subscription_tiers WHERE id = $1`, []any{id}, &plan)
	if err != nil {
		return "", err
	}
	if !found || plan == nil || *plan == "" {
		return "", storage.ErrTierNotFound
	}

	return *plan, nil
}

func (r *PostgresRepo) CreateCheckoutSession(ctx context.Context, userID int64, tierID int32) (int64, error) {
	const op = "storage.postgres.CreateCheckoutSession"

	query := `
		INSERT INTO subscription_checkout_sessions (user_id, tier_id, timestamp)
		VALUES ($1, $2, localtimestamp)
		RETURNING id;
	`

	var id int64

	found, err := r.exec.QueryOne(ctx, op, query, []any{userID, tierID}, &id)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%s: insert returned no id", op)
	}

	return id, nil
}

func (r *PostgresRepo) SetCheckoutStripeID(ctx context.Context, id int64, stripeID string) error {
	const op = "storage.postgres.SetCheckoutStripeID"

	affected, err := r.exec.Exec(ctx, op, `UPDATE subscription_checkout_sessions SET stripe_id = $1 WHERE id = $2`, stripeID, id)
	if err != nil {
		return err
	}
	if affected != 1 {
		return fmt.Errorf("%s: expected 1 updated row, got %d", op, affected)
	}

	return nil
}

func (r *PostgresRepo) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// * dsn формирует строку подключения к базе данных.
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
