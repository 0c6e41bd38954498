package service

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/adpadillar/software-architecture-library/lending/internal/errs"
	"github.com/adpadillar/software-architecture-library/lending/internal/model"
	"github.com/adpadillar/software-architecture-library/pkg/kafka"
)

// Lend transitions resourceID from available to borrowed for user and opens its loan.
// The availability check, the state flip and the ledger append share one transaction,
// and the resource row stays locked until it commits.
func (s *Service) Lend(ctx context.Context, resourceID string, user model.User) (model.Loan, error) {
	var (
		loan model.Loan
		kind model.Kind
	)
	err := s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		res, err := s.repo.Catalog.LockResource(ctx, resourceID)
		if err != nil {
			return err
		}
		kind = res.Kind
		if err := canLend(res, user); err != nil {
			return err
		}
		loan, err = s.borrow(ctx, res, user)
		return err
	})
	observeLend(kind, err)
	if err != nil {
		s.log.Debug("lend rejected", zap.String("resource", resourceID), zap.String("user", user.ID), zap.Error(err))
		return model.Loan{}, err
	}

	s.publish(ctx, kafka.EventLent, loan)
	return loan, nil
}

// LendLaptop lends the first available laptop in catalog order to a teacher.
func (s *Service) LendLaptop(ctx context.Context, user model.User) (model.Loan, error) {
	if !user.IsTeacher() {
		observeLend(model.KindLaptop, errs.ErrTeachersOnly)
		return model.Loan{}, errs.ErrTeachersOnly
	}

	var loan model.Loan
	err := s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		res, err := s.repo.Catalog.LockFirstAvailable(ctx, model.KindLaptop)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrNoLaptopAvailable
			}
			return err
		}
		loan, err = s.borrow(ctx, res, user)
		return err
	})
	observeLend(model.KindLaptop, err)
	if err != nil {
		return model.Loan{}, err
	}

	s.publish(ctx, kafka.EventLent, loan)
	return loan, nil
}

func canLend(res model.Resource, user model.User) error {
	if res.Kind == model.KindLaptop && !user.IsTeacher() {
		return errs.ErrTeachersOnly
	}
	if !res.Available() {
		return errs.ErrResourceUnavailable
	}
	return nil
}

// borrow must run inside the transaction holding the lock on res.
func (s *Service) borrow(ctx context.Context, res model.Resource, user model.User) (model.Loan, error) {
	if err := s.repo.Catalog.SetState(ctx, res.ID, model.StateBorrowed); err != nil {
		return model.Loan{}, err
	}
	start := s.now()
	return s.repo.Ledger.CreateLoan(ctx, res.ID, user.ID, start, start.Add(s.policy.Period(res.Kind)))
}

// ReturnResource closes the outstanding loan of resourceID and makes it available again.
// Overdue loans are returned the same way; their due date stays on record.
func (s *Service) ReturnResource(ctx context.Context, resourceID string) (model.Loan, error) {
	var loan model.Loan
	err := s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.Catalog.LockResource(ctx, resourceID); err != nil {
			return err
		}
		open, err := s.repo.Ledger.ActiveLoanForResource(ctx, resourceID)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrNoOpenLoan
			}
			return err
		}
		if err := s.repo.Catalog.SetState(ctx, resourceID, model.StateAvailable); err != nil {
			return err
		}
		loan, err = s.repo.Ledger.CloseLoan(ctx, open.ID, s.now())
		return err
	})
	observeReturn(loan, err)
	if err != nil {
		return model.Loan{}, err
	}

	if loan.ReturnedLate() {
		s.log.Info("late return",
			zap.String("loan", loan.ID),
			zap.String("resource", loan.ResourceID),
			zap.Time("due", loan.DueDate),
			zap.Timep("returned", loan.ReturnedAt))
	}
	s.publish(ctx, kafka.EventReturned, loan)
	return loan, nil
}

// IsAvailable reports false for unknown resources.
func (s *Service) IsAvailable(ctx context.Context, resourceID string) (bool, error) {
	res, err := s.repo.Catalog.FindResource(ctx, resourceID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return res.Available(), nil
}

// DeleteResource removes a resource that nobody holds. Its loan history stays in the ledger.
func (s *Service) DeleteResource(ctx context.Context, resourceID string) error {
	return s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		res, err := s.repo.Catalog.LockResource(ctx, resourceID)
		if err != nil {
			return err
		}
		if !res.Available() {
			return errs.ErrResourceOnLoan
		}
		if _, err := s.repo.Ledger.ActiveLoanForResource(ctx, resourceID); err == nil {
			return errs.ErrResourceOnLoan
		} else if !errors.Is(err, errs.ErrNotFound) {
			return err
		}
		return s.repo.Catalog.DeleteResource(ctx, resourceID)
	})
}

func (s *Service) publish(ctx context.Context, typ kafka.EventType, loan model.Loan) {
	if s.events == nil {
		return
	}
	event := kafka.LoanEvent{
		Type:       typ,
		LoanID:     loan.ID,
		ResourceID: loan.ResourceID,
		UserID:     loan.UserID,
		DueDate:    loan.DueDate,
		Timestamp:  s.now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		// the ledger is already committed; the event stream is best effort
		s.log.Warn("publish loan event", zap.String("type", string(typ)), zap.String("loan", loan.ID), zap.Error(err))
	}
}
