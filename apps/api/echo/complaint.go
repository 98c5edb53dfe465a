package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lalamika/core"
	"github.com/trezcool/lalamika/core/complaint"
)

type complaintApi struct {
	svc      complaint.ServiceInterface
	store    core.FileStore
	validate *validator.Validate
}

func registerComplaintAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc complaint.ServiceInterface,
	store core.FileStore,
	validate *validator.Validate,
) {
	api := complaintApi{
		svc:      svc,
		store:    store,
		validate: validate,
	}

	cg := g.Group("/complaints")

	// un-authed endpoints
	cg.GET("/stats", api.stats)

	// authed endpoints
	ag := cg.Group("", jwt)
	ag.POST("", api.create, nonAdminMiddleware())
	ag.GET("", api.triage, adminMiddleware())
	ag.GET("/my", api.queryOwned)
	ag.GET("/assigned", api.queryAssigned, staffMiddleware())
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id/assign", api.assign, adminMiddleware())
	ag.PUT("/:id/status", api.updateStatus, adminMiddleware())
	ag.POST("/:id/staff-update", api.addStaffUpdate, staffMiddleware())
}

// Handlers

func (api *complaintApi) create(ctx echo.Context) error {
	var data complaint.NewComplaint
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComplaint")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	// only store the blob once the payload is known good
	url, err := api.saveUpload(ctx, "image")
	if err != nil {
		return err
	}
	data.ImageURL = url

	prin, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	cpl, err := api.svc.Create(ctx.Request().Context(), prin, data)
	if err != nil {
		return errors.Wrap(err, "creating complaint")
	}
	return ctx.JSON(http.StatusCreated, cpl)
}

func (api *complaintApi) queryOwned(ctx echo.Context) error {
	prin, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	complaints, err := api.svc.QueryOwned(ctx.Request().Context(), prin)
	if err != nil {
		return errors.Wrap(err, "querying own complaints")
	}
	if complaints == nil {
		complaints = []complaint.Complaint{}
	}
	return ctx.JSON(http.StatusOK, complaints)
}

func (api *complaintApi) queryAssigned(ctx echo.Context) error {
	prin, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	complaints, err := api.svc.QueryAssigned(ctx.Request().Context(), prin)
	if err != nil {
		return errors.Wrap(err, "querying assigned complaints")
	}
	if complaints == nil {
		complaints = []complaint.Complaint{}
	}
	return ctx.JSON(http.StatusOK, complaints)
}

func (api *complaintApi) retrieve(ctx echo.Context) error {
	prin, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	cpl, err := api.svc.GetByID(ctx.Request().Context(), prin, ctx.Param("id"))
	if err != nil {
		switch errors.Cause(err) {
		case complaint.ErrNotFound:
			return errHttpNotFound
		case complaint.ErrAccessDenied:
			return errHttpForbidden
		}
		return errors.Wrap(err, "finding complaint by ID")
	}
	return ctx.JSON(http.StatusOK, cpl)
}

func (api *complaintApi) triage(ctx echo.Context) error {
	triage, err := api.svc.QueryTriage(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying triage")
	}
	return ctx.JSON(http.StatusOK, triage)
}

func (api *complaintApi) assign(ctx echo.Context) error {
	var data complaint.AssignComplaint
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignComplaint")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cpl, err := api.svc.Assign(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == complaint.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "assigning complaint")
	}
	return ctx.JSON(http.StatusOK, cpl)
}

func (api *complaintApi) updateStatus(ctx echo.Context) error {
	var data complaint.StatusUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusUpdate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cpl, err := api.svc.UpdateStatus(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == complaint.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating complaint status")
	}
	return ctx.JSON(http.StatusOK, cpl)
}

func (api *complaintApi) addStaffUpdate(ctx echo.Context) error {
	var data complaint.NewStaffUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStaffUpdate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	url, err := api.saveUpload(ctx, "photo")
	if err != nil {
		return err
	}
	data.PhotoURL = url

	prin, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	cpl, err := api.svc.AddStaffUpdate(ctx.Request().Context(), prin, ctx.Param("id"), data)
	if err != nil {
		switch errors.Cause(err) {
		case complaint.ErrNotFound:
			return errHttpNotFound
		case complaint.ErrNotAssignee:
			return errHttpForbidden
		}
		return errors.Wrap(err, "adding staff update")
	}
	return ctx.JSON(http.StatusOK, cpl)
}

func (api *complaintApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing complaint stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

// saveUpload stores an optional multipart file and returns its serving URL;
// an absent file is not an error.
func (api *complaintApi) saveUpload(ctx echo.Context, field string) (string, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return "", nil
		}
		return "", errors.Wrapf(err, "reading %q form file", field)
	}

	f, err := fh.Open()
	if err != nil {
		return "", errors.Wrap(err, "opening upload")
	}
	defer func() { _ = f.Close() }()

	url, err := api.store.Save(fh.Filename, f)
	return url, errors.Wrap(err, "saving upload")
}
