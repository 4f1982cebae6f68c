package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/homeroom/core/push"
)

type subscriptionRepository struct {
	db *subscriptionTable
}

var _ push.Repository = (*subscriptionRepository)(nil) // interface compliance check

func NewSubscriptionRepository(db *DB) *subscriptionRepository {
	return &subscriptionRepository{db: db.subscriptions}
}

func (repo *subscriptionRepository) QueryAllSubscriptions(context.Context) ([]push.PushSubscription, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subs := make([]push.PushSubscription, 0, len(repo.db.t))
	for _, sub := range repo.db.t {
		subs = append(subs, *sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].CreatedAt.Before(subs[j].CreatedAt) })
	return subs, nil
}

func (repo *subscriptionRepository) SaveSubscription(_ context.Context, sub push.PushSubscription) (push.PushSubscription, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if existing, ok := repo.db.t[sub.Endpoint]; ok {
		sub.CreatedAt = existing.CreatedAt
	}
	repo.db.t[sub.Endpoint] = &sub
	return sub, nil
}

func (repo *subscriptionRepository) DeleteSubscription(_ context.Context, endpoint string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.t, endpoint)
	return nil
}
