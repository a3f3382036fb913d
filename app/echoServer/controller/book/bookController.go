package book

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"librarysvc/app/echoServer/respond"
	"librarysvc/model"
	booksvc "librarysvc/service/book"
)

type Controller struct {
	Svc booksvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/books
func (h *Controller) Create(c echo.Context) error {
	var req CreateBookReq
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid JSON")
	}
	if err := h.V.Struct(req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "validation error: "+err.Error())
	}

	b, err := h.Svc.Create(c.Request().Context(), booksvc.CreateInput{
		Title:       req.Title,
		Author:      req.Author,
		ISBN:        req.ISBN,
		Description: req.Description,
	})
	if err != nil {
		return h.mapErr(c, err, "book create")
	}
	return respond.OK(c, http.StatusCreated, b)
}

// GET /v1/books
func (h *Controller) List(c echo.Context) error {
	var req ListBooksReq
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid query")
	}
	if err := h.V.Struct(req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "validation error: "+err.Error())
	}

	page := model.Page{Page: req.Page, Limit: req.Limit}
	books, total, err := h.Svc.List(c.Request().Context(), booksvc.ListFilter{
		Title:  req.Title,
		Author: req.Author,
		Status: model.BookStatus(req.Status),
		Page:   page,
	})
	if err != nil {
		return h.mapErr(c, err, "book list")
	}
	return respond.Paginated(c, books, page, total)
}

// GET /v1/books/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid id")
	}
	b, err := h.Svc.FindOne(c.Request().Context(), id)
	if err != nil {
		return h.mapErr(c, err, "book detail")
	}
	return respond.OK(c, http.StatusOK, b)
}

// PATCH /v1/books/:id
func (h *Controller) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid id")
	}
	var req UpdateBookReq
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid JSON")
	}
	if err := h.V.Struct(req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "validation error: "+err.Error())
	}

	b, err := h.Svc.Update(c.Request().Context(), id, booksvc.UpdateFields{
		Title:       req.Title,
		Author:      req.Author,
		ISBN:        req.ISBN,
		Description: req.Description,
	})
	if err != nil {
		return h.mapErr(c, err, "book update")
	}
	return respond.OK(c, http.StatusOK, b)
}

// DELETE /v1/books/:id
func (h *Controller) Remove(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid id")
	}
	if err := h.Svc.Remove(c.Request().Context(), id); err != nil {
		return h.mapErr(c, err, "book remove")
	}
	return respond.NoContent(c)
}

func (h *Controller) mapErr(c echo.Context, err error, op string) error {
	switch booksvc.Code(err) {
	case booksvc.ErrNotFound:
		return respond.Error(c, http.StatusNotFound, err.Error())
	case booksvc.ErrISBNTaken, booksvc.ErrOnLoan:
		return respond.Error(c, http.StatusConflict, err.Error())
	default:
		h.Log.Error(op, "err", err)
		return respond.Error(c, http.StatusInternalServerError, "internal error")
	}
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.ErrBadRequest
	}
	return id, nil
}
