package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
)

var (
	orderingParam = "ordering"
	pageParam     = "page"
	limitParam    = "limit"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=name,-created_at`: a leading "-" means descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
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

// bindPagination reads `?page=&limit=`; malformed values are ignored and left for the service to default.
func bindPagination(ctx echo.Context) core.Pagination {
	var p core.Pagination
	if page, err := strconv.Atoi(ctx.QueryParam(pageParam)); err == nil {
		p.Page = page
	}
	if limit, err := strconv.Atoi(ctx.QueryParam(limitParam)); err == nil {
		p.Limit = limit
	}
	return p
}
