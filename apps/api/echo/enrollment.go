package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/sanaa/core"
	"github.com/trezcool/sanaa/core/enrollment"
)

type enrollmentApi struct {
	svc      enrollment.Service
	validate *validator.Validate
}

func registerEnrollmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc enrollment.Service, validate *validator.Validate) {
	api := enrollmentApi{
		svc:      svc,
		validate: validate,
	}

	eg := g.Group("/enrollments", jwt)
	eg.POST("", api.enroll)
	eg.GET("", api.query)
	eg.DELETE("/:courseId", api.unenroll)

	pg := g.Group("/progress", jwt)
	pg.PUT("/:artworkId/view", api.markViewed)
	pg.PUT("/:artworkId/complete", api.markCompleted)
	pg.GET("/course/:courseId", api.courseProgress)
}

// Handlers

func (api *enrollmentApi) enroll(ctx echo.Context) error {
	var data enrollment.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	data.CourseID = core.CleanString(data.CourseID)
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), getContextUserID(ctx), data.CourseID)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *enrollmentApi) query(ctx echo.Context) error {
	enrollments, err := api.svc.ListForUser(ctx.Request().Context(), getContextUserID(ctx))
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrollments == nil {
		enrollments = []enrollment.Summary{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *enrollmentApi) unenroll(ctx echo.Context) error {
	if err := api.svc.Unenroll(ctx.Request().Context(), getContextUserID(ctx), ctx.Param("courseId")); err != nil {
		return errors.Wrap(err, "unenrolling")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *enrollmentApi) markViewed(ctx echo.Context) error {
	p, err := api.svc.MarkViewed(ctx.Request().Context(), getContextUserID(ctx), ctx.Param("artworkId"))
	if err != nil {
		return errors.Wrap(err, "marking artwork viewed")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *enrollmentApi) markCompleted(ctx echo.Context) error {
	p, err := api.svc.MarkCompleted(ctx.Request().Context(), getContextUserID(ctx), ctx.Param("artworkId"))
	if err != nil {
		return errors.Wrap(err, "marking artwork completed")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *enrollmentApi) courseProgress(ctx echo.Context) error {
	cp, err := api.svc.CourseProgress(ctx.Request().Context(), getContextUserID(ctx), ctx.Param("courseId"))
	if err != nil {
		return errors.Wrap(err, "getting course progress")
	}
	if cp.Artworks == nil {
		cp.Artworks = []enrollment.ArtworkView{}
	}
	return ctx.JSON(http.StatusOK, cp)
}
