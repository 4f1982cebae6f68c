package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core/notice"
)

type jobFunc func(ctx context.Context) (notice.JobResult, error)

func registerJobAPI(g *echo.Group, svc NoticeService) {
	jg := g.Group("/jobs")

	jobs := []struct {
		name string
		run  jobFunc
		mw   []echo.MiddlewareFunc
	}{
		{name: "daily", run: svc.SendDaily},
		{name: "events", run: svc.SendEvents},
		{name: "free-notice", run: svc.ProcessFreeNotice, mw: []echo.MiddlewareFunc{bearerMiddleware}},
		{name: "cleanup", run: svc.Cleanup},
	}
	for _, job := range jobs {
		h := runJob(job.name, job.run)
		jg.GET("/"+job.name, h, job.mw...)
		jg.POST("/"+job.name, h, job.mw...)
	}
}

func runJob(name string, run jobFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		res, err := run(ctx.Request().Context())
		if err != nil {
			return errors.Wrapf(err, "running %s job", name)
		}
		return ctx.JSON(http.StatusOK, res)
	}
}
