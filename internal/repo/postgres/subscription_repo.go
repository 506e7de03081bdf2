package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/model"
)

// SubscriptionRepo is the durable record of each user's purchased tier.
// Without a pool it behaves as an empty table.
type SubscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *SubscriptionRepo {
	return &SubscriptionRepo{pool: pool}
}

func (r *SubscriptionRepo) GetSubscription(ctx context.Context, userID int64) (model.Subscription, bool, error) {
	if userID <= 0 {
		return model.Subscription{}, false, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return model.Subscription{}, false, nil
	}

	var (
		sub  model.Subscription
		tier string
	)
	err := r.pool.QueryRow(ctx, `
SELECT user_id, tier, expires_at, updated_at
FROM subscriptions
WHERE user_id = $1
LIMIT 1
`, userID).Scan(&sub.UserID, &tier, &sub.ExpiresAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Subscription{}, false, nil
		}
		return model.Subscription{}, false, fmt.Errorf("get subscription: %w", err)
	}

	parsed, err := enums.ParseTier(tier)
	if err != nil {
		return model.Subscription{}, false, fmt.Errorf("get subscription: %w", err)
	}
	sub.Tier = parsed
	return sub, true, nil
}

func (r *SubscriptionRepo) UpsertSubscription(ctx context.Context, sub model.Subscription) (model.Subscription, error) {
	if sub.UserID <= 0 {
		return model.Subscription{}, fmt.Errorf("invalid user id")
	}
	if !sub.Tier.Valid() {
		return model.Subscription{}, fmt.Errorf("%w: %s", enums.ErrUnknownTier, sub.Tier)
	}
	if r.pool == nil {
		if sub.UpdatedAt.IsZero() {
			sub.UpdatedAt = time.Now().UTC()
		}
		return sub, nil
	}

	var out model.Subscription
	var tier string
	err := WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var previous *string
		err := tx.QueryRow(ctx, `
SELECT tier FROM subscriptions WHERE user_id = $1 FOR UPDATE
`, sub.UserID).Scan(&previous)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("lock subscription: %w", err)
		}

		err = tx.QueryRow(ctx, `
INSERT INTO subscriptions (user_id, tier, expires_at, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (user_id) DO UPDATE
SET tier = EXCLUDED.tier,
	expires_at = EXCLUDED.expires_at,
	updated_at = NOW()
RETURNING user_id, tier, expires_at, updated_at
`, sub.UserID, string(sub.Tier), sub.ExpiresAt).Scan(&out.UserID, &tier, &out.ExpiresAt, &out.UpdatedAt)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
INSERT INTO subscription_changes (user_id, from_tier, to_tier, expires_at)
VALUES ($1, $2, $3, $4)
`, sub.UserID, previous, string(sub.Tier), sub.ExpiresAt)
		if err != nil {
			return fmt.Errorf("record subscription change: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Subscription{}, fmt.Errorf("upsert subscription: %w", err)
	}

	out.Tier = enums.SubscriptionTier(tier)
	return out, nil
}

// ListExpired returns paid subscriptions whose expiry is at or before at.
func (r *SubscriptionRepo) ListExpired(ctx context.Context, at time.Time, limit int) ([]model.Subscription, error) {
	if r.pool == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 500
	}

	rows, err := r.pool.Query(ctx, `
SELECT user_id, tier, expires_at, updated_at
FROM subscriptions
WHERE tier <> 'free'
  AND expires_at IS NOT NULL
  AND expires_at <= $1
ORDER BY expires_at ASC
LIMIT $2
`, at.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list expired subscriptions: %w", err)
	}
	defer rows.Close()

	out := make([]model.Subscription, 0)
	for rows.Next() {
		var (
			sub  model.Subscription
			tier string
		)
		if err := rows.Scan(&sub.UserID, &tier, &sub.ExpiresAt, &sub.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan expired subscription: %w", err)
		}
		sub.Tier = enums.SubscriptionTier(tier)
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired subscriptions: %w", err)
	}

	return out, nil
}
