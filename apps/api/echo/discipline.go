package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ead/core/discipline"
)

type disciplineApi struct {
	svc      discipline.Service
	validate *validator.Validate
}

func registerDisciplineAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc discipline.Service,
	validate *validator.Validate,
) {
	api := disciplineApi{
		svc:      svc,
		validate: validate,
	}
	admin := adminMiddleware()

	dg := g.Group("/disciplines", jwt)
	dg.GET("", api.query)
	dg.POST("", api.create, admin)
	dg.DELETE("", api.destroyMultiple, admin)

	// detail endpoints
	og := dg.Group("/:id", detailMiddleware(svc.GetByID, discipline.ErrNotFound, canSeeDiscipline))
	og.GET("", api.retrieve)
	og.PUT("", api.update, admin)
	og.DELETE("", api.destroy, admin)
	og.GET("/completeness", api.completeness)
	og.POST("/publish", api.publish, admin)
	og.POST("/unpublish", api.unpublish, admin)

	og.GET("/videos", api.listVideos)
	og.POST("/videos", api.addVideo, admin)
	og.DELETE("/videos/:videoID", api.deleteVideo, admin)

	og.GET("/ebooks", api.listEbooks)
	og.PUT("/ebooks/:kind", api.setEbook, admin)
	og.DELETE("/ebooks/:kind", api.removeEbook, admin)

	og.GET("/questions/:assessment", api.listQuestions)
	og.POST("/questions/:assessment", api.addQuestion, admin)
	og.DELETE("/questions/:assessment/:questionID", api.deleteQuestion, admin)
}

// canSeeDiscipline hides drafts from everyone but admins.
func canSeeDiscipline(ctx echo.Context, d discipline.Discipline) (bool, error) {
	return d.IsPublished || isContextAdmin(ctx), nil
}

// Disciplines

func (api *disciplineApi) query(ctx echo.Context) error {
	filter := new(discipline.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []discipline.Discipline{})
	}
	filter.Clean()
	if !isContextAdmin(ctx) {
		published := true
		filter.IsPublished = &published
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	disciplines, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying disciplines")
	}
	if disciplines == nil {
		disciplines = []discipline.Discipline{}
	}
	return ctx.JSON(http.StatusOK, disciplines)
}

func (api *disciplineApi) create(ctx echo.Context) error {
	var data discipline.NewDiscipline
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDiscipline")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	d, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating discipline")
	}
	return ctx.JSON(http.StatusCreated, d)
}

func (api *disciplineApi) retrieve(ctx echo.Context) error {
	d, err := contextObject[discipline.Discipline](ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *disciplineApi) update(ctx echo.Context) error {
	d, err := contextObject[discipline.Discipline](ctx)
	if err != nil {
		return err
	}

	var data discipline.UpdateDiscipline
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateDiscipline")
	}
	if err = data.Validate(ctx.Request().Context(), d, api.validate, api.svc); err != nil {
		return err
	}

	d, err = api.svc.Update(ctx.Request().Context(), d.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating discipline")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *disciplineApi) destroy(ctx echo.Context) error {
	d, err := contextObject[discipline.Discipline](ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), d.ID); err != nil {
		return errors.Wrap(err, "deleting discipline")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *disciplineApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting disciplines")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Completeness & publication

func (api *disciplineApi) completeness(ctx echo.Context) error {
	d, err := contextObject[discipline.Discipline](ctx)
	if err != nil {
		return err
	}
	report, err := api.svc.Completeness(ctx.Request().Context(), d.ID)
	if err != nil {
		return errors.Wrap(err, "evaluating completeness")
	}
	return ctx.JSON(http.StatusOK, report.Response())
}

func (api *disciplineApi) publish(ctx echo.Context) error {
	d, err := contextObject[discipline.Discipline](ctx)
	if err != nil {
		return err
	}
	if d, err = api.svc.Publish(ctx.Request().Context(), d.ID); err != nil {
		return errors.Wrap(err, "publishing discipline")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *disciplineApi) unpublish(ctx echo.Context) error {
	d, err := contextObject[discipline.Discipline](ctx)
	if err != nil {
		return err
	}
	if d, err = api.svc.Unpublish(ctx.Request().Context(), d.ID); err != nil {
		return errors.Wrap(err, "unpublishing discipline")
	}
	return ctx.JSON(http.StatusOK, d)
}

// Videos

func (api *disciplineApi) listVideos(ctx echo.Context) error {
	d, err := contextObject[discipline.Discipline](ctx)
	if err != nil {
		return err
	}
	videos, err := api.svc.ListVideos(ctx.Request().Context(), d.ID)
	if err != nil {
		return errors.Wrap(err, "listing videos")
	}
	if videos == nil {
		videos = []discipline.PlayableVideo{}
	}
	return ctx.JSON(http.StatusOK, videos)
}

func (api *disciplineApi) addVideo(ctx echo.Context) error {
	d, err := contextObject[discipline.Discipline](ctx)
	if err != nil {
		return err
	}

	var data discipline.NewVideo
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewVideo")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	v, err := api.svc.AddVideo(ctx.Request().Context(), d.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding video")
	}
	return ctx.JSON(http.StatusCreated, v)
}

func (api *disciplineApi) deleteVideo(ctx echo.Context) error {
	d, err := contextObject[discipline.Discipline](ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteVideo(ctx.Request().Context(), d.ID, ctx.Param("videoID")); err != nil {
		return errors.Wrap(err, "deleting video")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// E-books

func (api *disciplineApi) listEbooks(ctx echo.Context) error {
	d, err := contextObject[discipline.Discipline](ctx)
	if err != nil {
		return err
	}
	ebooks, err := api.svc.ListEbooks(ctx.Request().Context(), d.ID)
	if err != nil {
		return errors.Wrap(err, "listing ebooks")
	}
	if ebooks == nil {
		ebooks = []discipline.Ebook{}
	}
	return ctx.JSON(http.StatusOK, ebooks)
}

func (api *disciplineApi) setEbook(ctx echo.Context) error {
	d, err := contextObject[discipline.Discipline](ctx)
	if err != nil {
		return err
	}

	var data discipline.NewEbook
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEbook")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.SetEbook(ctx.Request().Context(), d.ID, ctx.Param("kind"), data)
	if err != nil {
		return errors.Wrap(err, "setting ebook")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *disciplineApi) removeEbook(ctx echo.Context) error {
	d, err := contextObject[discipline.Discipline](ctx)
	if err != nil {
		return err
	}
	if err = api.svc.RemoveEbook(ctx.Request().Context(), d.ID, ctx.Param("kind")); err != nil {
		return errors.Wrap(err, "removing ebook")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Questions

func (api *disciplineApi) listQuestions(ctx echo.Context) error {
	d, err := contextObject[discipline.Discipline](ctx)
	if err != nil {
		return err
	}
	questions, err := api.svc.ListQuestions(ctx.Request().Context(), d.ID, ctx.Param("assessment"))
	if err != nil {
		return errors.Wrap(err, "listing questions")
	}
	if questions == nil {
		questions = []discipline.Question{}
	}
	return ctx.JSON(http.StatusOK, questions)
}

func (api *disciplineApi) addQuestion(ctx echo.Context) error {
	d, err := contextObject[discipline.Discipline](ctx)
	if err != nil {
		return err
	}

	var data discipline.NewQuestion
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	q, err := api.svc.AddQuestion(ctx.Request().Context(), d.ID, ctx.Param("assessment"), data)
	if err != nil {
		return errors.Wrap(err, "adding question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *disciplineApi) deleteQuestion(ctx echo.Context) error {
	d, err := contextObject[discipline.Discipline](ctx)
	if err != nil {
		return err
	}
	err = api.svc.DeleteQuestion(ctx.Request().Context(), d.ID, ctx.Param("assessment"), ctx.Param("questionID"))
	if err != nil {
		return errors.Wrap(err, "deleting question")
	}
	return ctx.NoContent(http.StatusNoContent)
}
