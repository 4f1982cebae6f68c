package push

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core"
)

var errEndpointRequired = errors.New("endpoint is required")

type (
	Repository interface {
		SubscriptionDeleter

		QueryAllSubscriptions(ctx context.Context) ([]PushSubscription, error)
		// SaveSubscription inserts the subscription or refreshes the row with the same endpoint.
		SaveSubscription(ctx context.Context, sub PushSubscription) (PushSubscription, error)
	}

	// DispatchGuard lets a single process dispatch a given notification row.
	DispatchGuard interface {
		Acquire(ctx context.Context, key string) (bool, error)
	}

	Service struct {
		repo      Repository
		signer    Signer
		deliverer *Deliverer
		guard     DispatchGuard
		validate  *validator.Validate
		logger    core.Logger
	}
)

// NewService wires the dispatcher. guard may be nil when a single process listens for inserts.
func NewService(
	repo Repository,
	signer Signer,
	guard DispatchGuard,
	validate *validator.Validate,
	logger core.Logger,
	conf core.PushConfig,
) *Service {
	if guard == nil {
		guard = noGuard{}
	}
	return &Service{
		repo:      repo,
		signer:    signer,
		deliverer: NewDeliverer(signer, repo, logger, conf),
		guard:     guard,
		validate:  validate,
		logger:    logger,
	}
}

func (svc *Service) PublicKey() string {
	return svc.signer.PublicKey()
}

// Dispatch pushes an empty message to every stored subscription.
// Only batch level failures are returned: invalid record, unusable key material (*KeyFormatError)
// or an unreachable store (*StoreError). Per-subscriber failures only show in the counts.
func (svc *Service) Dispatch(ctx context.Context, rec NotificationRecord) (Result, error) {
	if err := rec.Validate(svc.validate); err != nil {
		return Result{}, err
	}
	return svc.dispatch(ctx, rec)
}

func (svc *Service) dispatch(ctx context.Context, rec NotificationRecord) (Result, error) {
	if err := svc.signer.Ready(); err != nil {
		return Result{}, err
	}

	rows, err := svc.repo.QueryAllSubscriptions(ctx)
	if err != nil {
		return Result{}, &StoreError{Op: "querying subscriptions", Err: err}
	}

	dispatchID := uuid.NewString()
	subs := make([]PushSubscription, 0, len(rows))
	for _, row := range rows {
		if err = svc.validate.Struct(row); err != nil {
			svc.logger.Error(
				"push: skipping malformed subscription",
				&StoreError{Op: "reading subscription", Err: err},
				core.LogFields{"dispatch_id": dispatchID, "endpoint": shortEndpoint(row.Endpoint)},
			)
			continue
		}
		subs = append(subs, row)
	}

	res := svc.deliverer.DeliverAll(ctx, subs)
	res.Total = len(rows)
	res.Success = true

	svc.logger.Info(
		fmt.Sprintf("push: dispatched %q to %d/%d subscribers", rec.Title, res.Sent, res.Total),
		core.LogFields{"dispatch_id": dispatchID, "type": rec.Type, "notification_id": rec.ID},
	)
	return res, nil
}

// HandleInsertEvent dispatches a notification row received from the database change feed.
// Stored rows are pushed whatever their type. A failing guard falls back to dispatching.
func (svc *Service) HandleInsertEvent(ctx context.Context, payload []byte) error {
	var rec NotificationRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return errors.Wrap(err, "decoding notification payload")
	}

	if rec.ID != 0 {
		ok, err := svc.guard.Acquire(ctx, "dispatch:"+strconv.FormatInt(rec.ID, 10))
		switch {
		case err != nil:
			svc.logger.Warn(
				"push: dispatch guard unavailable, dispatching anyway",
				errors.Wrap(err, "acquiring dispatch guard"),
				core.LogFields{"notification_id": rec.ID},
			)
		case !ok:
			svc.logger.Debug("push: notification already dispatched elsewhere", core.LogFields{"notification_id": rec.ID})
			return nil
		}
	}

	_, err := svc.dispatch(ctx, rec)
	return errors.Wrap(err, "dispatching notification")
}

func (svc *Service) Subscribe(ctx context.Context, ns NewSubscription) (PushSubscription, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return PushSubscription{}, err
	}
	sub := PushSubscription{
		Endpoint:  core.CleanString(ns.Endpoint),
		P256dh:    core.CleanString(ns.P256dh),
		Auth:      core.CleanString(ns.Auth),
		UserAgent: core.CleanString(ns.UserAgent),
		Platform:  core.CleanString(ns.Platform),
		CreatedAt: time.Now().UTC(),
	}
	sub, err := svc.repo.SaveSubscription(ctx, sub)
	return sub, errors.Wrap(err, "saving subscription")
}

// Unsubscribe deletes the subscription; unknown endpoints are ignored.
func (svc *Service) Unsubscribe(ctx context.Context, endpoint string) error {
	endpoint = core.CleanString(endpoint)
	if endpoint == "" {
		return core.NewValidationError(errEndpointRequired, core.FieldError{Field: "endpoint", Error: errEndpointRequired.Error()})
	}
	return errors.Wrap(svc.repo.DeleteSubscription(ctx, endpoint), "deleting subscription")
}

type noGuard struct{}

func (noGuard) Acquire(context.Context, string) (bool, error) { return true, nil }
