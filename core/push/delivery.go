package push

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trezcool/homeroom/core"
)

const maxLoggedBody = 512

// SubscriptionDeleter removes subscriptions a push service reports as gone.
type SubscriptionDeleter interface {
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// Deliverer POSTs an empty, VAPID-signed push message to each subscription.
type Deliverer struct {
	signer      Signer
	store       SubscriptionDeleter
	logger      core.Logger
	client      *http.Client
	ttl         string
	concurrency int
}

func NewDeliverer(signer Signer, store SubscriptionDeleter, logger core.Logger, conf core.PushConfig) *Deliverer {
	timeout := conf.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := conf.TTL
	if ttl <= 0 {
		ttl = 86400
	}
	concurrency := conf.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Deliverer{
		signer:      signer,
		store:       store,
		logger:      logger,
		client:      &http.Client{Timeout: timeout},
		ttl:         strconv.Itoa(ttl),
		concurrency: concurrency,
	}
}

// DeliverAll delivers to every subscription, at most `concurrency` at a time.
// A failing subscriber never aborts the batch; Sent counts 2xx answers only.
func (d *Deliverer) DeliverAll(ctx context.Context, subs []PushSubscription) Result {
	var (
		sent int64
		wg   sync.WaitGroup
		sem  = make(chan struct{}, d.concurrency)
	)

launch:
	for _, sub := range subs {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break launch
		}
		wg.Add(1)
		go func(sub PushSubscription) {
			defer func() {
				<-sem
				wg.Done()
			}()
			if err := d.Deliver(ctx, sub); err == nil {
				atomic.AddInt64(&sent, 1)
			}
		}(sub)
	}
	wg.Wait()

	return Result{Sent: int(sent), Total: len(subs)}
}

// Deliver sends one push message. It returns nil when the push service accepted it,
// a *SigningError when no header could be built, and a *DeliveryError otherwise.
// Subscriptions answered with 404 or 410 are deleted from the store.
func (d *Deliverer) Deliver(ctx context.Context, sub PushSubscription) error {
	fields := core.LogFields{"endpoint": shortEndpoint(sub.Endpoint)}

	audience, err := Audience(sub.Endpoint)
	if err != nil {
		d.logger.Warn("push: invalid endpoint", err, fields)
		return &DeliveryError{Endpoint: sub.Endpoint, Err: err}
	}
	auth, err := d.signer.Sign(audience)
	if err != nil {
		d.logger.Error("push: signing failed", err, fields)
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, http.NoBody)
	if err != nil {
		d.logger.Warn("push: building request", err, fields)
		return &DeliveryError{Endpoint: sub.Endpoint, Err: err}
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("TTL", d.ttl)

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("push: request failed", err, fields)
		return &DeliveryError{Endpoint: sub.Endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	fields["status"] = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		d.logger.Debug("push: delivered", fields)
		return nil

	case isGone(resp.StatusCode):
		d.logger.Info("push: subscription gone, removing", fields)
		if err = d.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			d.logger.Warn("push: removing subscription", err, fields)
		}
		return &DeliveryError{Endpoint: sub.Endpoint, Status: resp.StatusCode, Permanent: true}

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
		fields["body"] = string(body)
		d.logger.Warn("push: delivery failed", fields)
		return &DeliveryError{Endpoint: sub.Endpoint, Status: resp.StatusCode, Body: string(body)}
	}
}

func shortEndpoint(endpoint string) string {
	if len(endpoint) > 60 {
		return endpoint[:60]
	}
	return endpoint
}
