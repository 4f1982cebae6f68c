package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/homeroom/apps/api/echo"
	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/notice"
	"github.com/trezcool/homeroom/core/push"
	inmemdb "github.com/trezcool/homeroom/storage/database/inmem"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// countingRepo records how often the subscription store is queried.
type countingRepo struct {
	push.Repository

	mu       sync.Mutex
	queries  int
	queryErr error
}

func (r *countingRepo) QueryAllSubscriptions(ctx context.Context) ([]push.PushSubscription, error) {
	r.mu.Lock()
	r.queries++
	err := r.queryErr
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return r.Repository.QueryAllSubscriptions(ctx)
}

// pushServer is a fake push service answering every path with the status registered for it (201 by default).
type pushServer struct {
	*httptest.Server

	mu       sync.Mutex
	statuses map[string]int
	calls    int
}

func newPushServer(t *testing.T, statuses map[string]int) *pushServer {
	ps := &pushServer{statuses: statuses}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		ps.calls++
		status, ok := ps.statuses[r.URL.Path]
		ps.mu.Unlock()

		if !ok {
			status = http.StatusCreated
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(ps.Close)
	return ps
}

func (ps *pushServer) callCount() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.calls
}

type testApp struct {
	echoapi.Server

	db       *inmemdb.DB
	subs     *countingRepo
	notices  notice.Repository
	pushSvc  *push.Service
	pushSrv  *pushServer
	vapidKey string
}

// setup builds the app on an in-memory store. vapid overrides the generated key pair.
func setup(t *testing.T, statuses map[string]int, vapid ...core.VapidConfig) *testApp {
	pub, priv, err := push.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() failed: %v", err)
	}
	vapidConf := core.VapidConfig{PublicKey: pub, PrivateKey: priv, Subject: "mailto:test@homeroom.test", TokenExpiry: 12 * time.Hour}
	if len(vapid) > 0 {
		vapidConf = vapid[0]
		pub = vapidConf.PublicKey
	}
	conf := &core.Config{
		Env:      "TEST",
		TestMode: true,
		Server:   core.ServerConfig{DisableReqLogs: true},
		Vapid:    vapidConf,
		Push:     core.PushConfig{TTL: 86400, RequestTimeout: 2 * time.Second, Concurrency: 2},
		Jobs: core.JobsConfig{
			UTCOffsetHours:   7,
			DailyCutoffHour:  16,
			FreeNoticeWindow: 5 * time.Minute,
			Retention:        30 * 24 * time.Hour,
		},
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	push.InitValidators(validate, translator)

	// set up DB & repos
	db := inmemdb.Open()
	subs := &countingRepo{Repository: inmemdb.NewSubscriptionRepository(db)}
	notices := inmemdb.NewNoticeRepository(db)

	// set up services
	logger := nopLogger{}
	pushSvc := push.NewService(subs, push.NewSigningContext(conf.Vapid), nil, validate, logger, conf.Push)
	noticeSvc := notice.NewService(notices, validate, logger, conf.Jobs)

	// set up server
	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		PushSvc:    pushSvc,
		NoticeSvc:  noticeSvc,
		Validate:   validate,
		Translator: translator,
	})

	return &testApp{
		Server:   app,
		db:       db,
		subs:     subs,
		notices:  notices,
		pushSvc:  pushSvc,
		pushSrv:  newPushServer(t, statuses),
		vapidKey: pub,
	}
}

func (a *testApp) subscribe(t *testing.T, paths ...string) []string {
	endpoints := make([]string, 0, len(paths))
	for _, path := range paths {
		sub := push.PushSubscription{
			Endpoint:  a.pushSrv.URL + path,
			P256dh:    "BNc",
			Auth:      "tBH",
			CreatedAt: time.Now().UTC(),
		}
		if _, err := a.subs.SaveSubscription(context.Background(), sub); err != nil {
			t.Fatalf("subscribe() failed: %v", err)
		}
		endpoints = append(endpoints, sub.Endpoint)
	}
	return endpoints
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

// checkCodeAndData compares the body only when wantData is set.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, "body: %s", rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app http.Handler, tests []httpTest) {
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
