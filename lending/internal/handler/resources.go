package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adpadillar/software-architecture-library/lending/internal/errs"
	"github.com/adpadillar/software-architecture-library/lending/internal/model"
)

// ListResources godoc
// @Summary List the catalog, optionally one kind
// @Tags    resources
// @Param   kind query string false "book or laptop"
// @Success 200 {array} model.Resource
// @Router  /resources [get]
func (h *Handler) ListResources(c echo.Context) error {
	list, err := h.lendingSvc.ListResources(c.Request().Context(), model.Kind(c.QueryParam("kind")))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}

// Search godoc
// @Summary Case-sensitive substring search on one field
// @Tags    resources
// @Param   kind  query string true "book or laptop"
// @Param   field query string true "title, author, genre, brand or model"
// @Param   q     query string false "term"
// @Success 200 {array} model.Resource
// @Router  /resources/search [get]
func (h *Handler) Search(c echo.Context) error {
	kind := model.Kind(c.QueryParam("kind"))
	if kind == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "kind is required")
	}
	field := c.QueryParam("field")
	if field == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "field is required")
	}
	list, err := h.lendingSvc.Search(c.Request().Context(), kind, field, c.QueryParam("q"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) GetResource(c echo.Context) error {
	res, err := h.lendingSvc.FindResource(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

// DeleteResource godoc
// @Summary Delete a resource nobody holds
// @Tags    resources
// @Success 204
// @Failure 409 {object} errs.ValidationErrorResponse
// @Router  /resources/{id} [delete]
func (h *Handler) DeleteResource(c echo.Context) error {
	if err := h.lendingSvc.DeleteResource(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Availability(c echo.Context) error {
	id := c.Param("id")
	ok, err := h.lendingSvc.IsAvailable(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, model.Availability{ResourceID: id, Available: ok})
}

func (h *Handler) LoanHistory(c echo.Context) error {
	loans, err := h.lendingSvc.LoanHistory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

// Return godoc
// @Summary Return a borrowed resource
// @Tags    loans
// @Success 200 {object} model.Loan
// @Failure 404 {object} errs.ValidationErrorResponse
// @Failure 409 {object} errs.ValidationErrorResponse
// @Router  /resources/{id}/return [post]
func (h *Handler) Return(c echo.Context) error {
	loan, err := h.lendingSvc.ReturnResource(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

// AddBook godoc
// @Summary Add a book to the catalog
// @Tags    resources
// @Param   book body model.Book true "book"
// @Success 201 {object} model.Resource
// @Failure 400 {object} errs.ValidationErrorResponse
// @Router  /books [post]
func (h *Handler) AddBook(c echo.Context) error {
	var req model.Book
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errs.ValidationErrorResponse{Message: err.Error()})
	}
	res, err := h.lendingSvc.AddBook(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) AddLaptop(c echo.Context) error {
	var req model.Laptop
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errs.ValidationErrorResponse{Message: err.Error()})
	}
	res, err := h.lendingSvc.AddLaptop(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) AvailableLaptops(c echo.Context) error {
	list, err := h.lendingSvc.ListAvailableLaptops(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}
