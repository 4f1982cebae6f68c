package tests

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/push"
)

func Test_dispatchApi_preflight(t *testing.T) {
	app := setup(t, nil)

	req, rec := newRequest(http.MethodOptions, "/")
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Authorization", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Zero(t, app.subs.queries)
}

func Test_dispatchApi_dispatch(t *testing.T) {
	app := setup(t, map[string]int{"/gone": http.StatusGone, "/flaky": http.StatusInternalServerError})
	endpoints := app.subscribe(t, "/ok", "/gone", "/flaky")

	body := []byte(`{"type":"INSERT","table":"notification","record":{"id":7,"title":"Lịch thi","message":"Thi HK1","url":"/","type":"event"}}`)
	req, rec := newRequest(http.MethodPost, "/", body)
	app.ServeHTTP(rec, req)

	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, push.Result{Success: true, Sent: 1, Total: 3})}, rec)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, 3, app.pushSrv.callCount())

	subs, err := app.subs.QueryAllSubscriptions(req.Context())
	require.NoError(t, err)
	var left []string
	for _, sub := range subs {
		left = append(left, sub.Endpoint)
	}
	assert.ElementsMatch(t, []string{endpoints[0], endpoints[2]}, left)
}

func Test_dispatchApi_dispatch_Errors(t *testing.T) {
	app := setup(t, nil)
	app.subscribe(t, "/ok")

	tests := []httpTest{
		{name: "empty object", method: http.MethodPost, path: "/", body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "No record"})},
		{name: "empty body", method: http.MethodPost, path: "/", wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "No record"})},
		{name: "null record", method: http.MethodGet, path: "/", body: []byte(`{"record":null}`), wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "No record"})},
		{name: "malformed JSON", method: http.MethodPost, path: "/", body: []byte(`{"record":`), wantCode: http.StatusBadRequest},
		{
			name: "unknown type", method: http.MethodPost, path: "/", body: []byte(`{"record":{"title":"x","type":"spam"}}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"type": "type must be one of [daily event free test]"}),
		},
		{name: "method not allowed", method: http.MethodPut, path: "/", body: []byte(`{}`), wantCode: http.StatusMethodNotAllowed, wantData: marchallObj(t, httpErr{Error: "Method Not Allowed"})},
	}
	runHTTPTests(t, app, tests)

	assert.Zero(t, app.subs.queries, "invalid requests never reach the store")
	assert.Zero(t, app.pushSrv.callCount())
}

func Test_dispatchApi_dispatch_CORSOnErrors(t *testing.T) {
	app := setup(t, nil)

	req, rec := newRequest(http.MethodDelete, "/")
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func Test_dispatchApi_dispatch_StoreFailure(t *testing.T) {
	app := setup(t, nil)
	app.subs.queryErr = errors.New("connection refused")

	req, rec := newRequest(http.MethodPost, "/", []byte(`{"record":{"title":"x"}}`))
	app.ServeHTTP(rec, req)

	checkCodeAndData(t, httpTest{
		wantCode: http.StatusInternalServerError,
		wantData: marchallObj(t, httpErr{Error: "querying subscriptions: connection refused"}),
	}, rec)
}

func Test_dispatchApi_dispatch_BadKeyMaterial(t *testing.T) {
	app := setup(t, nil, core.VapidConfig{PublicKey: core.DefaultVapidPublicKey, PrivateKey: "short", Subject: "mailto:test@homeroom.test"})
	app.subscribe(t, "/ok")
	queries := app.subs.queries

	req, rec := newRequest(http.MethodPost, "/", []byte(`{"record":{"title":"x","type":"test"}}`))
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body httpErr
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, strings.HasPrefix(body.Error, "invalid vapid key"), "error = %q", body.Error)
	assert.Equal(t, queries, app.subs.queries, "no subscriber is loaded")
	assert.Zero(t, app.pushSrv.callCount())

	// the rest of the API keeps working
	req, rec = newRequest(http.MethodGet, "/v1/vapid-public-key")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_dispatchApi_dispatch_IgnoresContentType(t *testing.T) {
	app := setup(t, nil)
	app.subscribe(t, "/ok")

	req, rec := newRequest(http.MethodPost, "/", []byte(`{"record":{"title":"x","type":"test"}}`))
	req.Header.Set("Content-Type", "text/plain")
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"sent":1`), rec.Body.String())
}
