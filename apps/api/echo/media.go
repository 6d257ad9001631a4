package echoapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ead/core"
	"github.com/trezcool/ead/core/media"
)

type mediaApi struct {
	resolver media.Resolver
	validate *validator.Validate
}

func registerMediaAPI(g *echo.Group, jwt echo.MiddlewareFunc, resolver media.Resolver, validate *validator.Validate) {
	api := mediaApi{resolver: resolver, validate: validate}
	g.POST("/media/resolve", api.resolve, jwt)
}

type ResolveRequest struct {
	URL            string `json:"url" validate:"max=2048"`
	DeclaredSource string `json:"declared_source" validate:"omitempty,declared_source"`
}

func (rr *ResolveRequest) Validate(validate *validator.Validate) error {
	rr.URL = strings.TrimSpace(rr.URL)
	rr.DeclaredSource = core.CleanString(rr.DeclaredSource, true /* lower */)
	return validate.Struct(rr)
}

// resolve never fails on the URL itself: unknown or malformed URLs get a fallback descriptor.
func (api *mediaApi) resolve(ctx echo.Context) error {
	var data ResolveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResolveRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.resolver.Resolve(data.URL, media.ParseDeclaredSource(data.DeclaredSource)))
}
