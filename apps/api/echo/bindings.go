package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/bitacora/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.Ordering
}

// Bind reads the "ordering" query param (e.g. "-date,teacherName"); def applies when it is absent.
func (ord *Ordering) Bind(ctx echo.Context, def ...core.Ordering) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		ord.Orderings = def
		return
	}
	ord.Orderings = core.ParseOrdering(val)
}

type emailReport struct {
	To []string `json:"to" validate:"omitempty,dive,email"`
}
