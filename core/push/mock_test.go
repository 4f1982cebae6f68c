package push

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/homeroom/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type repoMock struct {
	mu       sync.Mutex
	subs     map[string]PushSubscription
	order    []string
	queryErr error
	queries  int
	deleted  []string
}

func newRepoMock(subs ...PushSubscription) *repoMock {
	repo := &repoMock{subs: make(map[string]PushSubscription)}
	for _, sub := range subs {
		repo.subs[sub.Endpoint] = sub
		repo.order = append(repo.order, sub.Endpoint)
	}
	return repo
}

func (r *repoMock) QueryAllSubscriptions(context.Context) ([]PushSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.queries++
	if r.queryErr != nil {
		return nil, r.queryErr
	}
	subs := make([]PushSubscription, 0, len(r.subs))
	for _, endpoint := range r.order {
		if sub, ok := r.subs[endpoint]; ok {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

func (r *repoMock) SaveSubscription(_ context.Context, sub PushSubscription) (PushSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[sub.Endpoint]; !ok {
		r.order = append(r.order, sub.Endpoint)
	}
	r.subs[sub.Endpoint] = sub
	return sub, nil
}

func (r *repoMock) DeleteSubscription(_ context.Context, endpoint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.deleted = append(r.deleted, endpoint)
	delete(r.subs, endpoint)
	return nil
}

func (r *repoMock) has(endpoint string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.subs[endpoint]
	return ok
}

type guardMock struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (g *guardMock) Acquire(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return false, g.err
	}

	if g.seen == nil {
		g.seen = make(map[string]bool)
	}
	if g.seen[key] {
		return false, nil
	}
	g.seen[key] = true
	return true, nil
}

func newValidate() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate
}

func newTestVapid(t *testing.T) core.VapidConfig {
	t.Helper()
	pub, priv, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair(): %v", err)
	}
	return core.VapidConfig{
		PublicKey:   pub,
		PrivateKey:  priv,
		Subject:     "mailto:test@homeroom.test",
		TokenExpiry: 12 * time.Hour,
	}
}
