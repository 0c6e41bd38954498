package service_test

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adpadillar/software-architecture-library/lending/internal/errs"
	"github.com/adpadillar/software-architecture-library/lending/internal/model"
	"github.com/adpadillar/software-architecture-library/lending/internal/repository"
	"github.com/adpadillar/software-architecture-library/lending/internal/service"
	"github.com/adpadillar/software-architecture-library/lending/migrations"
	"github.com/adpadillar/software-architecture-library/pkg/postgres/postgrestest"
)

type clock struct {
	now atomic.Value
}

func (c *clock) Now() time.Time          { return c.now.Load().(time.Time) }
func (c *clock) Set(t time.Time)         { c.now.Store(t) }
func (c *clock) Advance(d time.Duration) { c.Set(c.Now().Add(d)) }

func setupPostgres(t *testing.T) (context.Context, *service.Service, *clock) {
	t.Helper()
	pool := postgrestest.NewPool(t, os.Getenv(postgrestest.DSNEnv), migrations.MigrationFiles)
	log := zap.NewNop()
	tx := repository.NewTransactor(pool, log)

	clk := &clock{}
	clk.Set(time.Now().UTC().Truncate(time.Microsecond))

	svc := service.NewService(service.Repository{
		Catalog: repository.NewCatalog(pool, tx, log),
		Ledger:  repository.NewLedger(pool, log),
		Users:   repository.NewUsers(pool, log),
		Tx:      tx,
	}, log, service.WithClock(clk.Now))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)
	return ctx, svc, clk
}

// requireConsistent checks that every borrowed resource has exactly one outstanding loan and
// every available one has none.
func requireConsistent(ctx context.Context, t *testing.T, svc *service.Service) {
	t.Helper()
	all, err := svc.ListResources(ctx, "")
	require.NoError(t, err)
	for _, res := range all {
		history, err := svc.LoanHistory(ctx, res.ID)
		require.NoError(t, err)
		outstanding := 0
		for _, l := range history {
			if l.Outstanding() {
				outstanding++
			}
		}
		if res.Available() {
			require.Zero(t, outstanding, res.ID)
		} else {
			require.Equal(t, 1, outstanding, res.ID)
		}
	}
}

func TestLending_ConcurrentLendOfOneResource(t *testing.T) {
	ctx, svc, _ := setupPostgres(t)

	res, err := svc.AddBook(ctx, model.Book{Title: "Dune", Author: "Frank Herbert", Genre: "Sci-Fi"})
	require.NoError(t, err)

	const borrowers = 8
	users := make([]model.User, borrowers)
	for i := range users {
		users[i], err = svc.AddUser(ctx, model.User{Name: "student", Email: "s@school.edu", Role: model.RoleStudent})
		require.NoError(t, err)
	}

	var won, lost atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	for _, u := range users {
		u := u
		g.Go(func() error {
			_, err := svc.Lend(gctx, res.ID, u)
			switch {
			case err == nil:
				won.Add(1)
			case errors.Is(err, errs.ErrResourceUnavailable):
				lost.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.EqualValues(t, 1, won.Load())
	require.EqualValues(t, borrowers-1, lost.Load())

	ok, err := svc.IsAvailable(ctx, res.ID)
	require.NoError(t, err)
	require.False(t, ok)
	requireConsistent(ctx, t, svc)
}

func TestLending_ConcurrentLaptopLending(t *testing.T) {
	ctx, svc, _ := setupPostgres(t)

	const laptops = 3
	for i := 0; i < laptops; i++ {
		_, err := svc.AddLaptop(ctx, model.Laptop{Brand: "Lenovo", Model: "T14"})
		require.NoError(t, err)
	}
	const teachers = 5
	users := make([]model.User, teachers)
	for i := range users {
		var err error
		users[i], err = svc.AddUser(ctx, model.User{Name: "teacher", Email: "t@school.edu", Role: model.RoleTeacher})
		require.NoError(t, err)
	}

	loans := make(chan model.Loan, teachers)
	var exhausted atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	for _, u := range users {
		u := u
		g.Go(func() error {
			loan, err := svc.LendLaptop(gctx, u)
			switch {
			case err == nil:
				loans <- loan
			case errors.Is(err, errs.ErrNoLaptopAvailable):
				exhausted.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	close(loans)

	seen := map[string]bool{}
	for loan := range loans {
		require.False(t, seen[loan.ResourceID], "laptop lent twice")
		seen[loan.ResourceID] = true
	}
	require.Len(t, seen, laptops)
	require.EqualValues(t, teachers-laptops, exhausted.Load())

	active, err := svc.ActiveLoans(ctx)
	require.NoError(t, err)
	require.Len(t, active, laptops)

	available, err := svc.ListAvailableLaptops(ctx)
	require.NoError(t, err)
	require.Empty(t, available)
	requireConsistent(ctx, t, svc)
}

func TestLending_Lifecycle(t *testing.T) {
	ctx, svc, clk := setupPostgres(t)

	student, err := svc.AddUser(ctx, model.User{Name: "Ana", Email: "ana@school.edu", Role: model.RoleStudent})
	require.NoError(t, err)
	teacher, err := svc.AddUser(ctx, model.User{Name: "Luis", Email: "luis@school.edu", Role: model.RoleTeacher})
	require.NoError(t, err)
	book, err := svc.AddBook(ctx, model.Book{Title: "Dune", Author: "Frank Herbert", Genre: "Sci-Fi"})
	require.NoError(t, err)
	laptop, err := svc.AddLaptop(ctx, model.Laptop{Brand: "Dell", Model: "XPS 13"})
	require.NoError(t, err)

	_, err = svc.Lend(ctx, laptop.ID, student)
	require.ErrorIs(t, err, errs.ErrTeachersOnly)
	ok, err := svc.IsAvailable(ctx, laptop.ID)
	require.NoError(t, err)
	require.True(t, ok)

	loan, err := svc.Lend(ctx, book.ID, student)
	require.NoError(t, err)
	require.True(t, loan.DueDate.Equal(clk.Now().Add(14*24*time.Hour)))
	found, err := svc.FindResource(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, model.StateBorrowed, found.State)
	open, err := svc.ActiveLoanForResource(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, loan.ID, open.ID)
	require.Equal(t, student.ID, open.UserID)

	_, err = svc.Lend(ctx, book.ID, teacher)
	require.ErrorIs(t, err, errs.ErrResourceUnavailable)
	require.ErrorIs(t, svc.DeleteResource(ctx, book.ID), errs.ErrResourceOnLoan)

	// past due, still returnable
	clk.Advance(15 * 24 * time.Hour)
	overdue, err := svc.OverdueLoans(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	require.Equal(t, loan.ID, overdue[0].ID)

	returned, err := svc.ReturnResource(ctx, book.ID)
	require.NoError(t, err)
	require.True(t, returned.ReturnedLate())
	require.True(t, returned.EndDate.Equal(clk.Now()))

	_, err = svc.ReturnResource(ctx, book.ID)
	require.ErrorIs(t, err, errs.ErrNoOpenLoan)

	active, err := svc.ActiveLoans(ctx)
	require.NoError(t, err)
	require.Empty(t, active)
	expired, err := svc.ExpiredLoans(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)

	again, err := svc.Lend(ctx, book.ID, teacher)
	require.NoError(t, err)
	require.NotEqual(t, loan.ID, again.ID)

	history, err := svc.LoanHistory(ctx, book.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	requireConsistent(ctx, t, svc)

	_, err = svc.ReturnResource(ctx, book.ID)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteResource(ctx, book.ID))
	ok, err = svc.IsAvailable(ctx, book.ID)
	require.NoError(t, err)
	require.False(t, ok)

	history, err = svc.LoanHistory(ctx, book.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
}
