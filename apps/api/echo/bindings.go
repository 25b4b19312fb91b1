package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/nae-imUam/coaching-app-api/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// monthParam reads a YYYY-MM query param. Malformed values are ignored.
func monthParam(ctx echo.Context, name string) core.Month {
	m, _ := core.ParseMonth(ctx.QueryParam(name))
	return m
}

// dateParam reads a YYYY-MM-DD query param. Malformed values are ignored.
func dateParam(ctx echo.Context, name string) core.Date {
	d, err := core.ParseDate(ctx.QueryParam(name))
	if err != nil {
		return core.Date{}
	}
	return d
}

// respond writes a success envelope: {"success": true, "message"?: msg, ...data}.
func respond(ctx echo.Context, code int, msg string, data echo.Map) error {
	body := echo.Map{"success": true}
	if msg != "" {
		body["message"] = msg
	}
	for k, v := range data {
		body[k] = v
	}
	return ctx.JSON(code, body)
}
