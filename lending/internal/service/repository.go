package service

import (
	"context"
	"time"

	"github.com/adpadillar/software-architecture-library/lending/internal/model"
	"github.com/adpadillar/software-architecture-library/lending/internal/queue"
	"github.com/adpadillar/software-architecture-library/lending/internal/repository"
	"github.com/adpadillar/software-architecture-library/pkg/kafka"
)

//go:generate go run github.com/golang/mock/mockgen -source=repository.go -destination=mocks/mock.go

type Catalog interface {
	AddResource(ctx context.Context, res model.Resource) (model.Resource, error)
	FindResource(ctx context.Context, id string) (model.Resource, error)
	LockResource(ctx context.Context, id string) (model.Resource, error)
	LockFirstAvailable(ctx context.Context, kind model.Kind) (model.Resource, error)
	SetState(ctx context.Context, id string, state model.State) error
	DeleteResource(ctx context.Context, id string) error
	ListResources(ctx context.Context, kind model.Kind) ([]model.Resource, error)
	ListAvailable(ctx context.Context, kind model.Kind) ([]model.Resource, error)
	Search(ctx context.Context, kind model.Kind, field, term string) ([]model.Resource, error)
}

type Ledger interface {
	CreateLoan(ctx context.Context, resourceID, userID string, start, due time.Time) (model.Loan, error)
	GetLoan(ctx context.Context, id string) (model.Loan, error)
	ActiveLoans(ctx context.Context, now time.Time) ([]model.Loan, error)
	ExpiredLoans(ctx context.Context, now time.Time) ([]model.Loan, error)
	OverdueLoans(ctx context.Context, now time.Time) ([]model.Loan, error)
	LoansByUser(ctx context.Context, userID string) ([]model.Loan, error)
	ActiveLoanForResource(ctx context.Context, resourceID string) (model.Loan, error)
	CloseLoan(ctx context.Context, loanID string, now time.Time) (model.Loan, error)
	LoanHistory(ctx context.Context, resourceID string) ([]model.Loan, error)
}

type Users interface {
	AddUser(ctx context.Context, user model.User) (model.User, error)
	GetUser(ctx context.Context, id string) (model.User, error)
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event kafka.LoanEvent) error
}

var (
	_ Catalog        = (*repository.Catalog)(nil)
	_ Ledger         = (*repository.Ledger)(nil)
	_ Users          = (*repository.Users)(nil)
	_ Transactor     = (*repository.Transactor)(nil)
	_ EventPublisher = (*queue.Publisher)(nil)
)

// Repository bundles the stores the coordinator works on.
type Repository struct {
	Catalog Catalog
	Ledger  Ledger
	Users   Users
	Tx      Transactor
}
