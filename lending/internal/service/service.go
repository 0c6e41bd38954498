package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/adpadillar/software-architecture-library/lending/internal/errs"
	"github.com/adpadillar/software-architecture-library/lending/internal/model"
	"github.com/adpadillar/software-architecture-library/pkg/validate"
)

type Service struct {
	log      *zap.Logger
	repo     Repository
	events   EventPublisher
	policy   model.LoanPolicy
	validate *validate.CustomValidator
	now      func() time.Time
}

type Option func(*Service)

func WithPolicy(policy model.LoanPolicy) Option {
	return func(s *Service) {
		if policy.BookPeriod > 0 {
			s.policy.BookPeriod = policy.BookPeriod
		}
		if policy.LaptopPeriod > 0 {
			s.policy.LaptopPeriod = policy.LaptopPeriod
		}
	}
}

func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo Repository, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		log:      log.Named("service"),
		repo:     repo,
		policy:   model.DefaultLoanPolicy(),
		validate: validate.NewCustomValidator(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) AddBook(ctx context.Context, book model.Book) (model.Resource, error) {
	return s.AddResource(ctx, model.NewBook(book))
}

func (s *Service) AddLaptop(ctx context.Context, laptop model.Laptop) (model.Resource, error) {
	return s.AddResource(ctx, model.NewLaptop(laptop))
}

// AddResource validates the payload matching res.Kind and stores a new available resource.
func (s *Service) AddResource(ctx context.Context, res model.Resource) (model.Resource, error) {
	var payload interface{}
	switch res.Kind {
	case model.KindBook:
		if res.Book == nil {
			return model.Resource{}, errs.Validation(errors.New("book payload is required"))
		}
		payload = res.Book
	case model.KindLaptop:
		if res.Laptop == nil {
			return model.Resource{}, errs.Validation(errors.New("laptop payload is required"))
		}
		payload = res.Laptop
	default:
		return model.Resource{}, errs.ErrUnknownKind
	}
	if err := s.validate.Validate(payload); err != nil {
		return model.Resource{}, errs.Validation(err)
	}

	created, err := s.repo.Catalog.AddResource(ctx, res)
	if err != nil {
		return model.Resource{}, err
	}
	s.log.Debug("resource added", zap.String("id", created.ID), zap.String("kind", string(created.Kind)))
	return created, nil
}

func (s *Service) FindResource(ctx context.Context, id string) (model.Resource, error) {
	return s.repo.Catalog.FindResource(ctx, id)
}

func (s *Service) ListResources(ctx context.Context, kind model.Kind) ([]model.Resource, error) {
	if kind != "" && !kind.Valid() {
		return nil, errs.ErrUnknownKind
	}
	return s.repo.Catalog.ListResources(ctx, kind)
}

func (s *Service) ListAvailableLaptops(ctx context.Context) ([]model.Resource, error) {
	return s.repo.Catalog.ListAvailable(ctx, model.KindLaptop)
}

func (s *Service) Search(ctx context.Context, kind model.Kind, field, term string) ([]model.Resource, error) {
	if !kind.Valid() {
		return nil, errs.ErrUnknownKind
	}
	if !model.Searchable(kind, field) {
		return nil, errs.ErrUnknownField
	}
	return s.repo.Catalog.Search(ctx, kind, field, term)
}

func (s *Service) ActiveLoans(ctx context.Context) ([]model.Loan, error) {
	return s.repo.Ledger.ActiveLoans(ctx, s.now())
}

func (s *Service) ExpiredLoans(ctx context.Context) ([]model.Loan, error) {
	return s.repo.Ledger.ExpiredLoans(ctx, s.now())
}

func (s *Service) OverdueLoans(ctx context.Context) ([]model.Loan, error) {
	return s.repo.Ledger.OverdueLoans(ctx, s.now())
}

func (s *Service) LoansByUser(ctx context.Context, userID string) ([]model.Loan, error) {
	return s.repo.Ledger.LoansByUser(ctx, userID)
}

func (s *Service) GetLoan(ctx context.Context, id string) (model.Loan, error) {
	return s.repo.Ledger.GetLoan(ctx, id)
}

func (s *Service) LoanHistory(ctx context.Context, resourceID string) ([]model.Loan, error) {
	return s.repo.Ledger.LoanHistory(ctx, resourceID)
}

func (s *Service) ActiveLoanForResource(ctx context.Context, resourceID string) (model.Loan, error) {
	return s.repo.Ledger.ActiveLoanForResource(ctx, resourceID)
}

func (s *Service) AddUser(ctx context.Context, user model.User) (model.User, error) {
	if err := s.validate.Validate(user); err != nil {
		return model.User{}, errs.Validation(err)
	}
	return s.repo.Users.AddUser(ctx, user)
}

func (s *Service) GetUser(ctx context.Context, id string) (model.User, error) {
	return s.repo.Users.GetUser(ctx, id)
}
