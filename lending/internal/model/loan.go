package model

import "time"

// Loan links a resource to a borrower for a time window.
//
// DueDate is the scheduled end and never changes. EndDate starts equal to DueDate and is
// rewritten to the close time on return, when ReturnedAt is set as well.
type Loan struct {
	ID         string     `json:"id" db:"id"`
	ResourceID string     `json:"resourceId" db:"resource_id"`
	UserID     string     `json:"userId" db:"user_id"`
	StartDate  time.Time  `json:"startDate" db:"start_date"`
	DueDate    time.Time  `json:"dueDate" db:"due_date"`
	EndDate    time.Time  `json:"endDate" db:"end_date"`
	ReturnedAt *time.Time `json:"returnedAt,omitempty" db:"returned_at"`
}

// Active reports whether the loan window is still open at now.
func (l Loan) Active(now time.Time) bool {
	return l.EndDate.After(now)
}

// Outstanding reports whether the resource has not been handed back yet.
func (l Loan) Outstanding() bool {
	return l.ReturnedAt == nil
}

func (l Loan) Overdue(now time.Time) bool {
	return l.Outstanding() && !l.DueDate.After(now)
}

func (l Loan) ReturnedLate() bool {
	return l.ReturnedAt != nil && l.ReturnedAt.After(l.DueDate)
}

type LoanPolicy struct {
	BookPeriod   time.Duration `envconfig:"BOOK_LOAN_PERIOD" default:"336h"`
	LaptopPeriod time.Duration `envconfig:"LAPTOP_LOAN_PERIOD" default:"24h"`
}

func DefaultLoanPolicy() LoanPolicy {
	return LoanPolicy{
		BookPeriod:   14 * 24 * time.Hour,
		LaptopPeriod: 24 * time.Hour,
	}
}

func (p LoanPolicy) Period(kind Kind) time.Duration {
	switch kind {
	case KindLaptop:
		return p.LaptopPeriod
	default:
		return p.BookPeriod
	}
}
