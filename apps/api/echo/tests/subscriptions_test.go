package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/homeroom/core/push"
)

func Test_subscriptionApi_publicKey(t *testing.T) {
	app := setup(t, nil)

	runHTTPTests(t, app, []httpTest{
		{name: "public key", method: http.MethodGet, path: "/v1/vapid-public-key", wantData: marchallObj(t, map[string]string{"publicKey": app.vapidKey})},
	})
}

func Test_subscriptionApi_subscribe(t *testing.T) {
	app := setup(t, nil)
	endpoint := "https://fcm.googleapis.com/fcm/send/abc"

	tests := []httpTest{
		{
			name: "endpoint required", body: []byte(`{"p256dh":"BNc","auth":"tBH"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"endpoint": "this field is required"}),
		},
		{
			name: "relative endpoint", body: []byte(`{"endpoint":"/fcm/send/abc","p256dh":"BNc","auth":"tBH"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"endpoint": "endpoint must be an absolute http(s) URL"}),
		},
		{
			name: "blank auth", body: []byte(`{"endpoint":"` + endpoint + `","p256dh":"BNc","auth":"  "}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"auth": "this field cannot be blank"}),
		},
		{name: "created", body: []byte(`{"endpoint":"` + endpoint + `","p256dh":"BNc","auth":"tBH","platform":"Linux"}`), wantCode: http.StatusCreated},
		{name: "refreshed", body: []byte(`{"endpoint":"` + endpoint + `","p256dh":"BNd","auth":"tBI"}`), wantCode: http.StatusCreated},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/subscriptions"
	}
	runHTTPTests(t, app, tests)

	subs, err := app.subs.QueryAllSubscriptions(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "BNd", subs[0].P256dh)
}

func Test_subscriptionApi_subscribe_Response(t *testing.T) {
	app := setup(t, nil)

	req, rec := newRequest(http.MethodPost, "/v1/subscriptions", []byte(`{"endpoint":"https://web.push.apple.com/QGa","p256dh":"BNc","auth":"tBH","platform":"  MacIntel "}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sub push.PushSubscription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
	assert.Equal(t, "https://web.push.apple.com/QGa", sub.Endpoint)
	assert.Equal(t, "MacIntel", sub.Platform)
	assert.False(t, sub.CreatedAt.IsZero())
}

func Test_subscriptionApi_unsubscribe(t *testing.T) {
	app := setup(t, nil)
	endpoints := app.subscribe(t, "/a", "/b")

	tests := []httpTest{
		{name: "endpoint required", body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"endpoint": "endpoint is required"})},
		{name: "deleted", body: []byte(`{"endpoint":"` + endpoints[0] + `"}`), wantCode: http.StatusNoContent},
		{name: "deleted twice", body: []byte(`{"endpoint":"` + endpoints[0] + `"}`), wantCode: http.StatusNoContent},
	}
	for i := range tests {
		tests[i].method = http.MethodDelete
		tests[i].path = "/v1/subscriptions"
	}
	runHTTPTests(t, app, tests)

	subs, err := app.subs.QueryAllSubscriptions(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, endpoints[1], subs[0].Endpoint)
}
