package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lalamika/core"
	"github.com/trezcool/lalamika/core/feedback"
)

type feedbackApi struct {
	svc      feedback.ServiceInterface
	validate *validator.Validate
}

func registerFeedbackAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc feedback.ServiceInterface,
	validate *validator.Validate,
) {
	api := feedbackApi{
		svc:      svc,
		validate: validate,
	}

	fg := g.Group("/feedback")

	// un-authed endpoints
	fg.GET("", api.query)

	// authed endpoints
	fg.POST("", api.submit, jwt, nonAdminMiddleware())
}

// Handlers

func (api *feedbackApi) submit(ctx echo.Context) error {
	var data feedback.NewFeedback
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeedback")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	prin, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	fb, err := api.svc.Submit(ctx.Request().Context(), prin, data)
	if err != nil {
		switch errors.Cause(err) {
		case feedback.ErrNotOwner:
			return errHttpForbidden
		case feedback.ErrAlreadySubmitted:
			return core.NewValidationError(err)
		}
		return errors.Wrap(err, "submitting feedback")
	}
	return ctx.JSON(http.StatusCreated, fb)
}

func (api *feedbackApi) query(ctx echo.Context) error {
	infos, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying feedback")
	}
	if infos == nil {
		infos = []feedback.Info{}
	}
	return ctx.JSON(http.StatusOK, infos)
}
