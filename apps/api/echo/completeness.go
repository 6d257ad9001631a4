package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/ead/core/discipline"
)

func registerCompletenessAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	g.POST("/completeness/evaluate", evaluateCompleteness, jwt)
}

// evaluateCompleteness scores a caller-supplied snapshot; no discipline is read.
func evaluateCompleteness(ctx echo.Context) error {
	var data discipline.SnapshotInput
	if err := ctx.Bind(&data); err != nil {
		return &discipline.InvalidSnapshotError{Field: "body", Reason: "is malformed"}
	}
	snap, err := data.ToSnapshot()
	if err != nil {
		return err
	}
	report, err := discipline.Evaluate(snap)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report.Response())
}
