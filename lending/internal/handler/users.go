package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adpadillar/software-architecture-library/lending/internal/errs"
	"github.com/adpadillar/software-architecture-library/lending/internal/model"
)

func (h *Handler) AddUser(c echo.Context) error {
	var req model.User
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errs.ValidationErrorResponse{Message: err.Error()})
	}
	user, err := h.lendingSvc.AddUser(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *Handler) GetUser(c echo.Context) error {
	user, err := h.lendingSvc.GetUser(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Handler) UserLoans(c echo.Context) error {
	loans, err := h.lendingSvc.LoansByUser(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}
