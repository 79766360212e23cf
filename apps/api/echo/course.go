package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/sanaa/core/course"
	"github.com/trezcool/sanaa/core/user"
)

type courseApi struct {
	svc      course.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt, optionalJWT echo.MiddlewareFunc, svc course.Service, validate *validator.Validate) {
	api := courseApi{
		svc:      svc,
		validate: validate,
	}
	teacher := roleMiddleware(user.RoleTeacher)

	cg := g.Group("/courses")
	cg.GET("", api.query)
	cg.GET("/mine", api.queryMine, jwt, teacher)
	cg.POST("", api.create, jwt, teacher)
	cg.GET("/:courseId", api.retrieve, optionalJWT)
	cg.PUT("/:courseId", api.update, jwt, teacher)
	cg.PUT("/:courseId/publish", api.togglePublished, jwt, teacher)
	cg.DELETE("/:courseId", api.destroy, jwt, teacher)

	cg.GET("/:courseId/artworks", api.queryArtworks, optionalJWT)
	cg.POST("/:courseId/artworks", api.createArtwork, jwt, teacher)
	cg.PUT("/:courseId/artworks", api.setArtworks, jwt, teacher)

	ag := g.Group("/artworks")
	ag.GET("/:artworkId", api.retrieveArtwork, optionalJWT)
	ag.PUT("/:artworkId", api.updateArtwork, jwt, teacher)
	ag.DELETE("/:artworkId", api.destroyArtwork, jwt, teacher)
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	filter := course.QueryFilter{Search: ctx.QueryParam("search")}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	courses, err := api.svc.ListPublished(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying published courses")
	}
	if courses == nil {
		courses = []course.Summary{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) queryMine(ctx echo.Context) error {
	courses, err := api.svc.ListByTeacher(ctx.Request().Context(), getContextUserID(ctx))
	if err != nil {
		return errors.Wrap(err, "querying teacher courses")
	}
	if courses == nil {
		courses = []course.Summary{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Create(ctx.Request().Context(), getContextUserID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetVisible(ctx.Request().Context(), getContextUserID(ctx), ctx.Param("courseId"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Update(ctx.Request().Context(), getContextUserID(ctx), ctx.Param("courseId"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) togglePublished(ctx echo.Context) error {
	crs, err := api.svc.TogglePublished(ctx.Request().Context(), getContextUserID(ctx), ctx.Param("courseId"))
	if err != nil {
		return errors.Wrap(err, "toggling course publication")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), getContextUserID(ctx), ctx.Param("courseId")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) queryArtworks(ctx echo.Context) error {
	artworks, err := api.svc.ListArtworks(ctx.Request().Context(), getContextUserID(ctx), ctx.Param("courseId"))
	if err != nil {
		return errors.Wrap(err, "querying artworks")
	}
	if artworks == nil {
		artworks = []course.Artwork{}
	}
	return ctx.JSON(http.StatusOK, artworks)
}

func (api *courseApi) createArtwork(ctx echo.Context) error {
	var data course.NewArtwork
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewArtwork")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	art, err := api.svc.CreateArtwork(ctx.Request().Context(), getContextUserID(ctx), ctx.Param("courseId"), data)
	if err != nil {
		return errors.Wrap(err, "creating artwork")
	}
	return ctx.JSON(http.StatusCreated, art)
}

func (api *courseApi) setArtworks(ctx echo.Context) error {
	var data course.SetArtworks
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetArtworks")
	}
	reqCtx := ctx.Request().Context()
	if err := data.Validate(reqCtx, api.validate); err != nil {
		return err
	}

	artworks, err := api.svc.SetArtworks(reqCtx, getContextUserID(ctx), ctx.Param("courseId"), data)
	if err != nil {
		return errors.Wrap(err, "setting artworks")
	}
	if artworks == nil {
		artworks = []course.Artwork{}
	}
	return ctx.JSON(http.StatusOK, artworks)
}

func (api *courseApi) retrieveArtwork(ctx echo.Context) error {
	art, err := api.svc.GetArtwork(ctx.Request().Context(), getContextUserID(ctx), ctx.Param("artworkId"))
	if err != nil {
		return errors.Wrap(err, "getting artwork")
	}
	return ctx.JSON(http.StatusOK, art)
}

func (api *courseApi) updateArtwork(ctx echo.Context) error {
	var data course.UpdateArtwork
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateArtwork")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	art, err := api.svc.UpdateArtwork(ctx.Request().Context(), getContextUserID(ctx), ctx.Param("artworkId"), data)
	if err != nil {
		return errors.Wrap(err, "updating artwork")
	}
	return ctx.JSON(http.StatusOK, art)
}

func (api *courseApi) destroyArtwork(ctx echo.Context) error {
	if err := api.svc.DeleteArtwork(ctx.Request().Context(), getContextUserID(ctx), ctx.Param("artworkId")); err != nil {
		return errors.Wrap(err, "deleting artwork")
	}
	return ctx.NoContent(http.StatusNoContent)
}
