package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/homeroom/core/notice"
)

var errMissingAuth = map[string]interface{}{"code": 401, "message": "Missing authorization header"}

func Test_jobApi(t *testing.T) {
	app := setup(t, nil)
	app.db.Seed(
		nil, nil,
		[]notice.Event{{ID: 1, Date: "01/01", Title: "Tết"}},
		[]notice.FreeNotice{{ID: 1, Seq: 1, Title: "later", SendAfter: time.Now().Add(time.Hour), Status: notice.FreeNoticePending}},
	)

	tests := []httpTest{
		{name: "daily without timetable", method: http.MethodPost, path: "/v1/jobs/daily", wantData: marchallObj(t, notice.JobResult{Status: notice.StatusNoSubjects})},
		{name: "events", method: http.MethodGet, path: "/v1/jobs/events"},
		{name: "cleanup", method: http.MethodPost, path: "/v1/jobs/cleanup", wantData: marchallObj(t, notice.JobResult{Status: notice.StatusSuccess})},
		{name: "free notice requires auth", method: http.MethodPost, path: "/v1/jobs/free-notice", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingAuth)},
		{name: "free notice waiting", method: http.MethodPost, path: "/v1/jobs/free-notice", token: "cron-key"},
		{name: "unknown job", method: http.MethodPost, path: "/v1/jobs/nope", wantCode: http.StatusNotFound},
	}
	runHTTPTests(t, app, tests)

	fn, err := app.notices.TopPendingFreeNotice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, notice.FreeNoticePending, fn.Status, "notice outside its window stays pending")
}
