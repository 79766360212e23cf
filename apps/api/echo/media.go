package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/sanaa/core/media"
	"github.com/trezcool/sanaa/core/user"
)

const imageFormField = "image"

type mediaApi struct {
	svc      media.Service
	validate *validator.Validate
}

func registerMediaAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc media.Service, validate *validator.Validate) {
	api := mediaApi{
		svc:      svc,
		validate: validate,
	}

	ig := g.Group("/images", jwt, roleMiddleware(user.RoleTeacher))
	ig.POST("", api.upload)
	ig.POST("/delete", api.destroy)
	ig.GET("/usage", api.usage)
}

// Handlers

func (api *mediaApi) upload(ctx echo.Context) error {
	fh, err := ctx.FormFile(imageFormField)
	if err != nil {
		if cause := errors.Cause(err); cause == http.ErrMissingFile || cause == http.ErrNotMultipart {
			return media.ErrNoFile
		}
		return errors.Wrap(err, "reading multipart form")
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	upload, err := api.svc.Upload(ctx.Request().Context(), getContextUserID(ctx), media.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Content:     f,
	})
	if err != nil {
		return errors.Wrap(err, "uploading image")
	}

	setRemaining(ctx, upload.Remaining)
	return ctx.JSON(http.StatusCreated, upload)
}

func (api *mediaApi) destroy(ctx echo.Context) error {
	var data DeleteImageRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DeleteImageRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	remaining, err := api.svc.Delete(ctx.Request().Context(), getContextUserID(ctx), data.URL)
	if err != nil {
		return errors.Wrap(err, "deleting image")
	}

	setRemaining(ctx, remaining)
	return ctx.JSON(http.StatusOK, DeleteImageResponse{Remaining: remaining})
}

func (api *mediaApi) usage(ctx echo.Context) error {
	usage, err := api.svc.Usage(ctx.Request().Context(), getContextUserID(ctx))
	if err != nil {
		return errors.Wrap(err, "getting usage")
	}

	setRemaining(ctx, usage.Remaining)
	return ctx.JSON(http.StatusOK, echo.Map{
		"limit":     usage.Limit,
		"remaining": usage.Remaining,
		"reset_at":  usage.ResetAt,
	})
}

func setRemaining(ctx echo.Context, remaining int) {
	ctx.Response().Header().Set(headerRateLimitRemaining, strconv.Itoa(remaining))
}
