package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	_ "github.com/adpadillar/software-architecture-library/lending/docs"
	"github.com/adpadillar/software-architecture-library/lending/internal/errs"
	md "github.com/adpadillar/software-architecture-library/pkg/middleware"
	"github.com/adpadillar/software-architecture-library/pkg/validate"
)

type Handler struct {
	lendingSvc LendingService
	log        *zap.Logger
}

func New(lendingSvc LendingService, log *zap.Logger) *Handler {
	return &Handler{
		lendingSvc: lendingSvc,
		log:        log.Named("handler"),
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPost, http.MethodDelete},
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)
	base.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	base.GET("/swagger/*", echoSwagger.WrapHandler)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		md.Metrics(),
		md.NewRateLimiter(apiRPS),
	)

	api.GET("/resources", h.ListResources)
	api.GET("/resources/search", h.Search)
	api.GET("/resources/:id", h.GetResource)
	api.DELETE("/resources/:id", h.DeleteResource)
	api.GET("/resources/:id/availability", h.Availability)
	api.GET("/resources/:id/loans", h.LoanHistory)
	api.POST("/resources/:id/return", h.Return)

	api.POST("/books", h.AddBook)
	api.POST("/laptops", h.AddLaptop)
	api.GET("/laptops/available", h.AvailableLaptops)

	api.POST("/loans", h.Lend)
	api.POST("/loans/laptops", h.LendLaptop)
	api.GET("/loans/active", h.ActiveLoans)
	api.GET("/loans/expired", h.ExpiredLoans)
	api.GET("/loans/overdue", h.OverdueLoans)
	api.GET("/loans/:loanId", h.GetLoan)

	api.POST("/users", h.AddUser)
	api.GET("/users/:userId", h.GetUser)
	api.GET("/users/:userId/loans", h.UserLoans)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// httpError maps an error kind to its status code.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
