package push

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/homeroom/core"
)

func newTestService(t *testing.T, repo Repository, guard DispatchGuard, vapid ...core.VapidConfig) *Service {
	conf := newTestVapid(t)
	if len(vapid) > 0 {
		conf = vapid[0]
	}
	return NewService(repo, NewSigningContext(conf), guard, newValidate(), nopLogger{}, core.PushConfig{
		RequestTimeout: 2 * time.Second,
		Concurrency:    2,
	})
}

func TestService_Dispatch(t *testing.T) {
	fps := newFakePushService(t, map[string]int{"/gone": http.StatusGone})
	repo := newRepoMock(
		PushSubscription{Endpoint: fps.URL + "/ok1"},
		PushSubscription{Endpoint: fps.URL + "/ok2"},
		PushSubscription{Endpoint: fps.URL + "/gone"},
		PushSubscription{Endpoint: "not-a-url"}, // malformed row
	)
	svc := newTestService(t, repo, nil)

	res, err := svc.Dispatch(context.Background(), NotificationRecord{Title: "Hi", Message: "there", Type: TypeTest})
	require.NoError(t, err)

	assert.Equal(t, Result{Success: true, Sent: 2, Total: 4}, res)
	assert.False(t, repo.has(fps.URL+"/gone"))
	assert.True(t, repo.has("not-a-url"), "malformed rows are skipped, not deleted")
}

func TestService_Dispatch_Errors(t *testing.T) {
	t.Run("store failure", func(t *testing.T) {
		repo := newRepoMock()
		repo.queryErr = errors.New("connection refused")
		svc := newTestService(t, repo, nil)

		_, err := svc.Dispatch(context.Background(), NotificationRecord{Title: "x"})
		var se *StoreError
		require.True(t, errors.As(err, &se))
		assert.EqualError(t, se.Err, "connection refused")
	})

	t.Run("malformed key material", func(t *testing.T) {
		repo := newRepoMock(PushSubscription{Endpoint: "https://fcm.googleapis.com/fcm/send/1"})
		svc := newTestService(t, repo, nil, core.VapidConfig{PublicKey: core.DefaultVapidPublicKey, PrivateKey: "short"})

		_, err := svc.Dispatch(context.Background(), NotificationRecord{Title: "x"})
		var kfe *KeyFormatError
		assert.True(t, errors.As(err, &kfe), "err = %v", err)
		assert.Zero(t, repo.queries)
	})

	t.Run("unknown type", func(t *testing.T) {
		repo := newRepoMock()
		svc := newTestService(t, repo, nil)

		_, err := svc.Dispatch(context.Background(), NotificationRecord{Title: "x", Type: "spam"})
		var verrs validator.ValidationErrors
		assert.True(t, errors.As(err, &verrs), "err = %v", err)
		assert.Zero(t, repo.queries)
	})
}

func TestService_HandleInsertEvent(t *testing.T) {
	fps := newFakePushService(t, nil)
	repo := newRepoMock(PushSubscription{Endpoint: fps.URL + "/s"})
	guard := new(guardMock)
	svc := newTestService(t, repo, guard)

	payload := []byte(`{"id":42,"title":"Lịch thi","message":"Thi HK","url":"/","type":"event","created_at":"2026-10-14T17:00:00Z"}`)
	require.NoError(t, svc.HandleInsertEvent(context.Background(), payload))
	require.NoError(t, svc.HandleInsertEvent(context.Background(), payload)) // duplicate from another listener

	assert.Len(t, fps.callsTo("/s"), 1)
	assert.Equal(t, 1, repo.queries)

	assert.Error(t, svc.HandleInsertEvent(context.Background(), []byte("{")))
}

func TestService_HandleInsertEvent_GuardDown(t *testing.T) {
	fps := newFakePushService(t, nil)
	repo := newRepoMock(PushSubscription{Endpoint: fps.URL + "/s"})
	guard := &guardMock{err: errors.New("dial tcp: connection refused")}
	svc := newTestService(t, repo, guard)

	require.NoError(t, svc.HandleInsertEvent(context.Background(), []byte(`{"id":1,"title":"Thông báo","type":"free"}`)))
	assert.Len(t, fps.callsTo("/s"), 1)
	assert.Equal(t, 1, repo.queries)
}

func TestService_HandleInsertEvent_StoredRows(t *testing.T) {
	fps := newFakePushService(t, nil)
	repo := newRepoMock(PushSubscription{Endpoint: fps.URL + "/s"})
	svc := newTestService(t, repo, nil)

	tests := []struct {
		name    string
		payload string
	}{
		{name: "unlisted type", payload: `{"id":1,"title":"Họp phụ huynh","type":"announcement"}`},
		{name: "trigger payload without message", payload: `{"id":2,"title":"Lịch thi","url":"/","type":"event","created_at":"2026-10-14T17:00:00Z"}`},
		{name: "long message", payload: `{"id":3,"title":"x","message":"` + strings.Repeat("ế", 5000) + `"}`},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, svc.HandleInsertEvent(context.Background(), []byte(tt.payload)))
			assert.Len(t, fps.callsTo("/s"), i+1)
		})
	}
}

func TestService_Subscribe(t *testing.T) {
	repo := newRepoMock()
	svc := newTestService(t, repo, nil)

	tests := []struct {
		name    string
		data    NewSubscription
		wantErr bool
	}{
		{name: "valid", data: NewSubscription{Endpoint: "https://fcm.googleapis.com/fcm/send/a", P256dh: "BNc", Auth: "tBH", UserAgent: "Mozilla", Platform: "Linux"}},
		{name: "no endpoint", data: NewSubscription{P256dh: "BNc", Auth: "tBH"}, wantErr: true},
		{name: "relative endpoint", data: NewSubscription{Endpoint: "/fcm/send/a", P256dh: "BNc", Auth: "tBH"}, wantErr: true},
		{name: "blank keys", data: NewSubscription{Endpoint: "https://fcm.googleapis.com/fcm/send/b", P256dh: "  ", Auth: "tBH"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := svc.Subscribe(context.Background(), tt.data)
			if tt.wantErr {
				var verrs validator.ValidationErrors
				assert.True(t, errors.As(err, &verrs), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.data.Endpoint, sub.Endpoint)
			assert.False(t, sub.CreatedAt.IsZero())
			assert.True(t, repo.has(tt.data.Endpoint))
		})
	}
}

func TestService_Unsubscribe(t *testing.T) {
	endpoint := "https://fcm.googleapis.com/fcm/send/a"
	repo := newRepoMock(PushSubscription{Endpoint: endpoint})
	svc := newTestService(t, repo, nil)

	var verr *core.ValidationError
	assert.True(t, errors.As(svc.Unsubscribe(context.Background(), " "), &verr))

	require.NoError(t, svc.Unsubscribe(context.Background(), endpoint))
	require.NoError(t, svc.Unsubscribe(context.Background(), endpoint), "deleting twice is a no-op")
	assert.False(t, repo.has(endpoint))
}
