package review

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"librarysvc/app/echoServer/respond"
	"librarysvc/model"
	reviewsvc "librarysvc/service/review"
)

type Controller struct {
	Svc reviewsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/reviews
func (h *Controller) Create(c echo.Context) error {
	var req CreateReviewReq
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid JSON")
	}
	if err := h.V.Struct(req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "validation error: "+err.Error())
	}

	rv, err := h.Svc.Create(c.Request().Context(), reviewsvc.CreateInput{
		UserID:  req.UserID,
		BookID:  req.BookID,
		LoanID:  req.LoanID,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return h.mapErr(c, err, "review create")
	}
	return respond.OK(c, http.StatusCreated, rv)
}

// GET /v1/reviews/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid id")
	}
	rv, err := h.Svc.FindOne(c.Request().Context(), id)
	if err != nil {
		return h.mapErr(c, err, "review detail")
	}
	return respond.OK(c, http.StatusOK, rv)
}

// DELETE /v1/reviews/:id
func (h *Controller) Remove(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid id")
	}
	if err := h.Svc.Remove(c.Request().Context(), id); err != nil {
		return h.mapErr(c, err, "review remove")
	}
	return respond.NoContent(c)
}

// GET /v1/books/:id/reviews
func (h *Controller) BookReviews(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid id")
	}
	var req pageReq
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid query")
	}

	page := model.Page{Page: req.Page, Limit: req.Limit}
	reviews, total, err := h.Svc.FindBookReviews(c.Request().Context(), id, page)
	if err != nil {
		return h.mapErr(c, err, "book reviews")
	}
	return respond.Paginated(c, reviews, page, total)
}

// GET /v1/users/:id/reviews
func (h *Controller) UserReviews(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid id")
	}
	var req pageReq
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid query")
	}

	page := model.Page{Page: req.Page, Limit: req.Limit}
	reviews, total, err := h.Svc.FindUserReviews(c.Request().Context(), id, page)
	if err != nil {
		return h.mapErr(c, err, "user reviews")
	}
	return respond.Paginated(c, reviews, page, total)
}

func (h *Controller) mapErr(c echo.Context, err error, op string) error {
	switch reviewsvc.Code(err) {
	case reviewsvc.ErrUserNotFound, reviewsvc.ErrBookNotFound,
		reviewsvc.ErrLoanNotFound, reviewsvc.ErrNotFound:
		return respond.Error(c, http.StatusNotFound, err.Error())
	case reviewsvc.ErrDuplicate:
		return respond.Error(c, http.StatusConflict, err.Error())
	case reviewsvc.ErrLoanMismatch, reviewsvc.ErrLoanNotReturned, reviewsvc.ErrBadRating:
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
