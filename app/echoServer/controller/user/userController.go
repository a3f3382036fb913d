package user

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"librarysvc/app/echoServer/respond"
	"librarysvc/model"
	usersvc "librarysvc/service/user"
)

type Controller struct {
	Svc usersvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/users
func (h *Controller) Create(c echo.Context) error {
	var req CreateUserReq
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid JSON")
	}
	if err := c.Validate(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "validation error: "+err.Error())
	}

	u, err := h.Svc.Create(c.Request().Context(), req.Name, req.Email)
	if err != nil {
		return h.mapErr(c, err, "user create")
	}
	return respond.OK(c, http.StatusCreated, u)
}

// GET /v1/users
func (h *Controller) List(c echo.Context) error {
	var req ListUsersReq
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid query")
	}

	page := model.Page{Page: req.Page, Limit: req.Limit}
	users, total, err := h.Svc.List(c.Request().Context(), usersvc.ListFilter{
		Name:  req.Name,
		Email: req.Email,
		Page:  page,
	})
	if err != nil {
		return h.mapErr(c, err, "user list")
	}
	return respond.Paginated(c, users, page, total)
}

// GET /v1/users/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid id")
	}
	u, err := h.Svc.FindOne(c.Request().Context(), id)
	if err != nil {
		return h.mapErr(c, err, "user detail")
	}
	return respond.OK(c, http.StatusOK, u)
}

// PATCH /v1/users/:id
func (h *Controller) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid id")
	}
	var req UpdateUserReq
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid JSON")
	}
	if err := c.Validate(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "validation error: "+err.Error())
	}

	u, err := h.Svc.Update(c.Request().Context(), id, req.Name, req.Email)
	if err != nil {
		return h.mapErr(c, err, "user update")
	}
	return respond.OK(c, http.StatusOK, u)
}

// DELETE /v1/users/:id
func (h *Controller) Remove(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid id")
	}
	if err := h.Svc.Remove(c.Request().Context(), id); err != nil {
		return h.mapErr(c, err, "user remove")
	}
	return respond.NoContent(c)
}

func (h *Controller) mapErr(c echo.Context, err error, op string) error {
	switch usersvc.Code(err) {
	case usersvc.ErrNotFound:
		return respond.Error(c, http.StatusNotFound, err.Error())
	case usersvc.ErrEmailTaken, usersvc.ErrInUse:
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
