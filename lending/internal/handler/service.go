package handler

import (
	"context"

	"github.com/adpadillar/software-architecture-library/lending/internal/model"
	"github.com/adpadillar/software-architecture-library/lending/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type LendingService interface {
	AddBook(ctx context.Context, book model.Book) (model.Resource, error)
	AddLaptop(ctx context.Context, laptop model.Laptop) (model.Resource, error)
	FindResource(ctx context.Context, id string) (model.Resource, error)
	ListResources(ctx context.Context, kind model.Kind) ([]model.Resource, error)
	ListAvailableLaptops(ctx context.Context) ([]model.Resource, error)
	Search(ctx context.Context, kind model.Kind, field, term string) ([]model.Resource, error)
	DeleteResource(ctx context.Context, id string) error
	IsAvailable(ctx context.Context, resourceID string) (bool, error)

	Lend(ctx context.Context, resourceID string, user model.User) (model.Loan, error)
	LendLaptop(ctx context.Context, user model.User) (model.Loan, error)
	ReturnResource(ctx context.Context, resourceID string) (model.Loan, error)
	ActiveLoans(ctx context.Context) ([]model.Loan, error)
	ExpiredLoans(ctx context.Context) ([]model.Loan, error)
	OverdueLoans(ctx context.Context) ([]model.Loan, error)
	GetLoan(ctx context.Context, id string) (model.Loan, error)
	LoanHistory(ctx context.Context, resourceID string) ([]model.Loan, error)
	LoansByUser(ctx context.Context, userID string) ([]model.Loan, error)

	AddUser(ctx context.Context, user model.User) (model.User, error)
	GetUser(ctx context.Context, id string) (model.User, error)
}

var _ LendingService = (*service.Service)(nil)
