package loan

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"librarysvc/app/echoServer/respond"
	"librarysvc/model"
	"librarysvc/service/library"
)

type Controller struct {
	Svc library.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/loans
func (h *Controller) Create(c echo.Context) error {
	var req CreateLoanReq
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid JSON")
	}
	if err := h.V.Struct(req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "validation error: "+err.Error())
	}

	loan, err := h.Svc.CreateBooking(c.Request().Context(), req.UserID, req.BookID)
	if err != nil {
		return h.mapErr(c, err, "loan create")
	}
	return respond.OK(c, http.StatusCreated, loan)
}

// PATCH /v1/loans/:id/pickup
func (h *Controller) Pickup(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid id")
	}
	loan, err := h.Svc.Pickup(c.Request().Context(), id)
	if err != nil {
		return h.mapErr(c, err, "loan pickup")
	}
	return respond.OK(c, http.StatusOK, loan)
}

// PATCH /v1/loans/:id/return
func (h *Controller) Return(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid id")
	}
	loan, err := h.Svc.Return(c.Request().Context(), id)
	if err != nil {
		return h.mapErr(c, err, "loan return")
	}
	return respond.OK(c, http.StatusOK, loan)
}

// PATCH /v1/loans/:id/extend
func (h *Controller) Extend(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid id")
	}
	loan, err := h.Svc.Extend(c.Request().Context(), id)
	if err != nil {
		return h.mapErr(c, err, "loan extend")
	}
	return respond.OK(c, http.StatusOK, loan)
}

// GET /v1/loans/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid id")
	}
	loan, err := h.Svc.FindOne(c.Request().Context(), id)
	if err != nil {
		return h.mapErr(c, err, "loan detail")
	}
	return respond.OK(c, http.StatusOK, loan)
}

// GET /v1/loans
func (h *Controller) List(c echo.Context) error {
	var req ListLoansReq
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid query")
	}
	if err := h.V.Struct(req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "validation error: "+err.Error())
	}

	page := model.Page{Page: req.Page, Limit: req.Limit}
	loans, total, err := h.Svc.List(c.Request().Context(), library.ListFilter{
		UserID:    req.UserID,
		BookID:    req.BookID,
		Status:    model.LoanStatus(req.Status),
		IsOverdue: req.IsOverdue,
		Page:      page,
	})
	if err != nil {
		return h.mapErr(c, err, "loan list")
	}
	return respond.Paginated(c, loans, page, total)
}

// GET /v1/users/:id/loans
func (h *Controller) UserLoans(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid id")
	}
	var req pageReq
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid query")
	}

	page := model.Page{Page: req.Page, Limit: req.Limit}
	loans, total, err := h.Svc.UserLoans(c.Request().Context(), id, page)
	if err != nil {
		return h.mapErr(c, err, "user loans")
	}
	return respond.Paginated(c, loans, page, total)
}

// GET /v1/books/:id/loans
func (h *Controller) BookLoans(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid id")
	}
	var req pageReq
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid query")
	}

	page := model.Page{Page: req.Page, Limit: req.Limit}
	loans, total, err := h.Svc.BookLoans(c.Request().Context(), id, page)
	if err != nil {
		return h.mapErr(c, err, "book loans")
	}
	return respond.Paginated(c, loans, page, total)
}

func (h *Controller) mapErr(c echo.Context, err error, op string) error {
	switch library.Code(err) {
	case library.ErrUserNotFound, library.ErrBookNotFound, library.ErrLoanNotFound:
		return respond.Error(c, http.StatusNotFound, err.Error())
	case library.ErrBookUnavailable:
		return respond.Error(c, http.StatusConflict, err.Error())
	case library.ErrInvalidState, library.ErrNoDueDate:
		return respond.Error(c, http.StatusBadRequest, err.Error())
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
