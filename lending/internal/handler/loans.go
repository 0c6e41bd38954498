package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adpadillar/software-architecture-library/lending/internal/errs"
	"github.com/adpadillar/software-architecture-library/lending/internal/model"
)

// Lend godoc
// @Summary Lend a resource to a user
// @Tags    loans
// @Param   req body model.LendRequest true "resource and borrower"
// @Success 201 {object} model.Loan
// @Failure 404 {object} errs.ValidationErrorResponse
// @Failure 409 {object} errs.ValidationErrorResponse
// @Router  /loans [post]
func (h *Handler) Lend(c echo.Context) error {
	var req model.LendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errs.ValidationErrorResponse{Message: err.Error()})
	}
	ctx := c.Request().Context()

	user, err := h.lendingSvc.GetUser(ctx, req.UserID)
	if err != nil {
		return httpError(err)
	}
	loan, err := h.lendingSvc.Lend(ctx, req.ResourceID, user)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, loan)
}

// LendLaptop godoc
// @Summary Lend the first available laptop to a teacher
// @Tags    loans
// @Param   req body model.LendLaptopRequest true "borrower"
// @Success 201 {object} model.Loan
// @Failure 409 {object} errs.ValidationErrorResponse
// @Router  /loans/laptops [post]
func (h *Handler) LendLaptop(c echo.Context) error {
	var req model.LendLaptopRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errs.ValidationErrorResponse{Message: err.Error()})
	}
	ctx := c.Request().Context()

	user, err := h.lendingSvc.GetUser(ctx, req.UserID)
	if err != nil {
		return httpError(err)
	}
	loan, err := h.lendingSvc.LendLaptop(ctx, user)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, loan)
}

func (h *Handler) ActiveLoans(c echo.Context) error {
	loans, err := h.lendingSvc.ActiveLoans(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) ExpiredLoans(c echo.Context) error {
	loans, err := h.lendingSvc.ExpiredLoans(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) OverdueLoans(c echo.Context) error {
	loans, err := h.lendingSvc.OverdueLoans(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

// GetLoan godoc
// @Summary Get a loan by id
// @Tags    loans
// @Param   loanId path string true "loan id"
// @Success 200 {object} model.Loan
// @Failure 404 {object} errs.ValidationErrorResponse
// @Router  /loans/{loanId} [get]
func (h *Handler) GetLoan(c echo.Context) error {
	loan, err := h.lendingSvc.GetLoan(c.Request().Context(), c.Param("loanId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}
