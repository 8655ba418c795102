package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/codetrail/codetrail/core/guard"
)

// ReturnTo is the post-login destination carried by the from query param.
type ReturnTo struct {
	Location string
}

func (rt *ReturnTo) Bind(ctx echo.Context) {
	rt.Location = guard.ReturnLocation(ctx.QueryParam(guard.FromParam))
}
