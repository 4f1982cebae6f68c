package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/push"
)

var errInvalidLimit = core.NewValidationError(errors.New("limit must be a positive integer"))

type notificationApi struct {
	svc NoticeService
}

func registerNotificationAPI(g *echo.Group, svc NoticeService) {
	api := notificationApi{svc: svc}

	ng := g.Group("/notifications")
	ng.GET("", api.query)
	ng.POST("", api.create)
	ng.GET("/latest", api.latest)
}

// Handlers

func (api *notificationApi) query(ctx echo.Context) error {
	var limit int
	if param := ctx.QueryParam("limit"); param != "" {
		var err error
		if limit, err = strconv.Atoi(param); err != nil || limit < 0 {
			return errInvalidLimit
		}
	}

	ns, err := api.svc.History(ctx.Request().Context(), limit)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ns)
}

func (api *notificationApi) latest(ctx echo.Context) error {
	n, err := api.svc.Latest(ctx.Request().Context())
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *notificationApi) create(ctx echo.Context) error {
	var data push.NotificationRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NotificationRecord")
	}

	n, err := api.svc.Notify(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, n)
}
