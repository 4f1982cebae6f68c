package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core/push"
)

type subscriptionApi struct {
	svc PushService
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

func registerSubscriptionAPI(g *echo.Group, svc PushService) {
	api := subscriptionApi{svc: svc}

	g.GET("/vapid-public-key", api.publicKey)

	sg := g.Group("/subscriptions")
	sg.POST("", api.subscribe)
	sg.DELETE("", api.unsubscribe)
}

// Handlers

func (api *subscriptionApi) publicKey(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"publicKey": api.svc.PublicKey()})
}

func (api *subscriptionApi) subscribe(ctx echo.Context) error {
	var data push.NewSubscription
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubscription")
	}

	sub, err := api.svc.Subscribe(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *subscriptionApi) unsubscribe(ctx echo.Context) error {
	var data unsubscribeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to unsubscribeRequest")
	}

	if err := api.svc.Unsubscribe(ctx.Request().Context(), data.Endpoint); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
