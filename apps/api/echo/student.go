package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/fee"
	"github.com/nae-imUam/coaching-app-api/core/student"
)

const profilePicField = "profile_pic"

type studentApi struct {
	svc    *student.Service
	ledger *fee.Ledger
	media  core.MediaStore
	logger core.Logger
}

func registerStudentAPI(g *echo.Group, svc *student.Service, ledger *fee.Ledger, media core.MediaStore, logger core.Logger) {
	api := studentApi{
		svc:    svc,
		ledger: ledger,
		media:  media,
		logger: logger,
	}

	sg := g.Group("/students")
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update)
	sg.PATCH("/:id", api.update)
	sg.DELETE("/:id", api.destroy)
	sg.POST("/:id/profile-pic", api.uploadProfilePic)
}

func (api *studentApi) query(ctx echo.Context) error {
	var filter student.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	var ord Ordering
	ord.Bind(ctx)

	students, err := api.svc.Query(ctx.Request().Context(), ownerID(ctx), filter, ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return respond(ctx, http.StatusOK, "", echo.Map{"count": len(students), "students": students})
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}

	reqCtx := ctx.Request().Context()
	s, err := api.svc.Create(reqCtx, ownerID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	// fees already paid on enrolment become the first ledger entry
	if s, err = api.ledger.RecordOpeningBalance(reqCtx, ownerID(ctx), s, data.FeesPaid); err != nil {
		return errors.Wrap(err, "recording opening balance")
	}
	return respond(ctx, http.StatusCreated, "Student created successfully", echo.Map{"student": s})
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Get(ctx.Request().Context(), ownerID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return respond(ctx, http.StatusOK, "", echo.Map{"student": s})
}

func (api *studentApi) update(ctx echo.Context) error {
	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}

	s, err := api.svc.Update(ctx.Request().Context(), ownerID(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return respond(ctx, http.StatusOK, "Student updated successfully", echo.Map{"student": s})
}

func (api *studentApi) destroy(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	s, err := api.svc.Get(reqCtx, ownerID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	if err = api.svc.Delete(reqCtx, ownerID(ctx), s.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	api.deletePicture(s.ProfilePic.String)
	return respond(ctx, http.StatusOK, "Student deleted successfully", nil)
}

func (api *studentApi) uploadProfilePic(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	s, err := api.svc.Get(reqCtx, ownerID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}

	fh, err := ctx.FormFile(profilePicField)
	if err != nil {
		if errors.Cause(err) == http.ErrMissingFile || errors.Cause(err) == http.ErrNotMultipart {
			return core.NewValidationError(
				errors.New("No file provided"),
				core.FieldError{Field: profilePicField, Error: "No file provided"},
			)
		}
		return errors.Wrap(err, "reading profile picture")
	}
	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening profile picture")
	}
	defer src.Close()

	url, err := api.media.SavePicture(reqCtx, "students", src)
	if err != nil {
		return errors.Wrap(err, "saving profile picture")
	}
	updated, err := api.svc.SetProfilePic(reqCtx, ownerID(ctx), s.ID, url)
	if err != nil {
		api.deletePicture(url)
		return errors.Wrap(err, "setting profile picture")
	}
	api.deletePicture(s.ProfilePic.String)

	return respond(ctx, http.StatusOK, "Profile picture uploaded successfully", echo.Map{"student": updated})
}

// deletePicture removes a replaced or orphaned picture; failures are only logged.
func (api *studentApi) deletePicture(url string) {
	if url == "" {
		return
	}
	if err := api.media.Delete(url); err != nil {
		api.logger.Warn("could not delete picture "+url, err)
	}
}
