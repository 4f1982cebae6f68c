package echoapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core/push"
)

type dispatchApi struct {
	svc PushService
}

// dispatchRequest is the body posted by the notification insert webhook.
type dispatchRequest struct {
	Record *push.NotificationRecord `json:"record"`
}

func registerDispatchAPI(app *echo.Echo, svc PushService) {
	api := dispatchApi{svc: svc}

	app.OPTIONS("/", api.preflight)
	app.POST("/", api.dispatch)
	app.GET("/", api.dispatch)
}

// Handlers

func (api *dispatchApi) preflight(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "ok")
}

func (api *dispatchApi) dispatch(ctx echo.Context) error {
	// the body is JSON whatever the content type says
	var data dispatchRequest
	if err := json.NewDecoder(ctx.Request().Body).Decode(&data); err != nil && err != io.EOF {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON: "+err.Error()).SetInternal(err)
	}
	if data.Record == nil {
		return errNoRecord
	}

	res, err := api.svc.Dispatch(ctx.Request().Context(), *data.Record)
	if err != nil {
		var (
			se  *push.StoreError
			kfe *push.KeyFormatError
		)
		switch {
		case errors.As(err, &se):
			return echo.NewHTTPError(http.StatusInternalServerError, se.Error()).SetInternal(err)
		case errors.As(err, &kfe):
			return echo.NewHTTPError(http.StatusInternalServerError, kfe.Error()).SetInternal(err)
		}
		return errors.Wrap(err, "dispatching notification")
	}
	return ctx.JSON(http.StatusOK, res)
}
