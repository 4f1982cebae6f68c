package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/push"
)

type subscriptionRepository struct {
	db core.DB
}

var _ push.Repository = (*subscriptionRepository)(nil) // interface compliance check

func NewSubscriptionRepository(db core.DB) *subscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (repo subscriptionRepository) QueryAllSubscriptions(ctx context.Context) ([]push.PushSubscription, error) {
	subs := make([]push.PushSubscription, 0)
	err := repo.db.SelectContext(ctx, &subs, `
		SELECT endpoint, p256dh, auth, user_agent, platform, created_at
		FROM push_subscriptions
		ORDER BY created_at`)
	return subs, errors.Wrap(err, "selecting push_subscriptions")
}

func (repo subscriptionRepository) SaveSubscription(ctx context.Context, sub push.PushSubscription) (push.PushSubscription, error) {
	rows, err := sqlx.NamedQueryContext(ctx, repo.db, `
		INSERT INTO push_subscriptions (endpoint, p256dh, auth, user_agent, platform, created_at)
		VALUES (:endpoint, :p256dh, :auth, :user_agent, :platform, :created_at)
		ON CONFLICT (endpoint) DO UPDATE
		SET p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth,
		    user_agent = EXCLUDED.user_agent, platform = EXCLUDED.platform
		RETURNING endpoint, p256dh, auth, user_agent, platform, created_at`, sub)
	if err != nil {
		return push.PushSubscription{}, errors.Wrap(err, "upserting push_subscription")
	}
	defer func() { _ = rows.Close() }()

	var saved push.PushSubscription
	if rows.Next() {
		err = rows.StructScan(&saved)
	} else {
		err = rows.Err()
	}
	return saved, errors.Wrap(err, "upserting push_subscription")
}

// DeleteSubscription is a no-op when the endpoint is unknown.
func (repo subscriptionRepository) DeleteSubscription(ctx context.Context, endpoint string) error {
	_, err := repo.db.ExecContext(ctx, "DELETE FROM push_subscriptions WHERE endpoint = $1", endpoint)
	return errors.Wrap(err, "deleting push_subscription")
}
