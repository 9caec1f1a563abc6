package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core"
)

var orderingParam = "ordering"

// Ordering binds the comma separated `ordering` query param. A leading "-" orders descending.
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := strings.TrimSpace(ctx.QueryParam(orderingParam))
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// paramID returns the `:id` path param. Malformed IDs are not found.
func paramID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// parseDate parses an optional YYYY-MM-DD query value as UTC midnight.
func parseDate(field, val string) (time.Time, error) {
	if val = core.CleanString(val); val == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", val)
	if err != nil {
		return time.Time{}, core.NewValidationError(err, core.FieldError{Field: field, Error: "expected format YYYY-MM-DD"})
	}
	return t, nil
}
