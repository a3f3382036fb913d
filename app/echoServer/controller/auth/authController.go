package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"librarysvc/app/echoServer/respond"
	authsvc "librarysvc/service/auth"
)

type Controller struct {
	Svc authsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/auth/register
func (h *Controller) Register(c echo.Context) error {
	var req RegisterReq
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid JSON")
	}
	if err := c.Validate(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "validation error: "+err.Error())
	}

	u, token, err := h.Svc.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, authsvc.ErrEmailTaken) {
			return respond.Error(c, http.StatusConflict, "email already registered")
		}
		h.Log.Error("register", "err", err)
		return respond.Error(c, http.StatusInternalServerError, "internal error")
	}
	return respond.OK(c, http.StatusCreated, echo.Map{"user": u, "token": token})
}

// POST /v1/auth/login
func (h *Controller) Login(c echo.Context) error {
	var req LoginReq
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "invalid JSON")
	}
	if err := c.Validate(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "validation error: "+err.Error())
	}

	u, token, err := h.Svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, authsvc.ErrInvalidCreds) {
			return respond.Error(c, http.StatusUnauthorized, "invalid credentials")
		}
		h.Log.Error("login", "err", err)
		return respond.Error(c, http.StatusInternalServerError, "internal error")
	}
	return respond.OK(c, http.StatusOK, echo.Map{"user": u, "token": token})
}
