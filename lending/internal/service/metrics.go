package service

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/adpadillar/software-architecture-library/lending/internal/errs"
	"github.com/adpadillar/software-architecture-library/lending/internal/model"
)

var (
	loansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lending_loans_total",
		Help: "Lend attempts by resource kind and outcome.",
	}, []string{"kind", "outcome"})

	returnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lending_returns_total",
		Help: "Return attempts by outcome and lateness.",
	}, []string{"outcome", "late"})
)

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrConflict):
		return "conflict"
	case errors.Is(err, errs.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}

func observeLend(kind model.Kind, err error) {
	if kind == "" {
		kind = "unknown"
	}
	loansTotal.WithLabelValues(string(kind), outcome(err)).Inc()
}

func observeReturn(loan model.Loan, err error) {
	returnsTotal.WithLabelValues(outcome(err), strconv.FormatBool(err == nil && loan.ReturnedLate())).Inc()
}
