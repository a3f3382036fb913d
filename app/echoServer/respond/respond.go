// Package respond shapes every payload into the service's response
// envelope: {success, data, meta?} on the happy path, {success, message}
// on errors.
package respond

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"librarysvc/model"
)

type PaginationMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"total_items"`
	TotalPages int64 `json:"total_pages"`
}

func OK(c echo.Context, code int, data any) error {
	return c.JSON(code, echo.Map{"success": true, "data": data})
}

// Paginated wraps a list payload with pagination meta.
func Paginated(c echo.Context, data any, page model.Page, total int64) error {
	p := page.Normalize()
	totalPages := total / int64(p.Limit)
	if total%int64(p.Limit) != 0 {
		totalPages++
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    data,
		"meta": echo.Map{
			"pagination": PaginationMeta{
				Page:       p.Page,
				Limit:      p.Limit,
				TotalItems: total,
				TotalPages: totalPages,
			},
		},
	})
}

func NoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

func Error(c echo.Context, code int, msg string) error {
	return c.JSON(code, echo.Map{"success": false, "message": msg})
}
