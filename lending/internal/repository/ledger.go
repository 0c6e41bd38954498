package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/adpadillar/software-architecture-library/lending/internal/model"
)

// Ledger owns loan records. It never checks resource availability; that is the caller's job.
// Query methods take now from the caller so one call classifies every row against the same instant.
type Ledger struct {
	db  *pgxpool.Pool
	log *zap.Logger
}

func NewLedger(db *pgxpool.Pool, log *zap.Logger) *Ledger {
	return &Ledger{
		db:  db,
		log: log.Named("ledger"),
	}
}

var loanColumns = []string{"id", "resource_id", "user_id", "start_date", "due_date", "end_date", "returned_at"}

func selectLoans() sq.SelectBuilder {
	return qb.Select(loanColumns...).From(loansTableName)
}

func (l *Ledger) CreateLoan(ctx context.Context, resourceID, userID string, start, due time.Time) (model.Loan, error) {
	start = start.UTC().Truncate(time.Microsecond)
	due = due.UTC().Truncate(time.Microsecond)
	query, args, err := qb.Insert(loansTableName).
		Columns("id", "resource_id", "user_id", "start_date", "due_date", "end_date").
		Values(uuid.NewString(), resourceID, userID, start, due, due).
		Suffix("returning id, resource_id, user_id, start_date, due_date, end_date, returned_at").
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}
	loan, err := l.getOne(ctx, "CreateLoan", query, args)
	if err != nil {
		l.log.Error("CreateLoan", zap.String("q", query), zap.Any("args", args), zap.Error(err))
	}
	return loan, err
}

func (l *Ledger) GetLoan(ctx context.Context, id string) (model.Loan, error) {
	query, args, err := selectLoans().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return model.Loan{}, err
	}
	return l.getOne(ctx, "GetLoan", query, args)
}

// ActiveLoans returns loans with end_date > now, soonest due first.
func (l *Ledger) ActiveLoans(ctx context.Context, now time.Time) ([]model.Loan, error) {
	return l.list(ctx, "ActiveLoans", selectLoans().
		Where(sq.Gt{"end_date": now}).
		OrderBy("end_date", "id"))
}

// ExpiredLoans returns loans with end_date <= now: returned ones and ones past due.
func (l *Ledger) ExpiredLoans(ctx context.Context, now time.Time) ([]model.Loan, error) {
	return l.list(ctx, "ExpiredLoans", selectLoans().
		Where(sq.LtOrEq{"end_date": now}).
		OrderBy("end_date desc", "id"))
}

// OverdueLoans returns loans not yet returned whose due date is not after now.
func (l *Ledger) OverdueLoans(ctx context.Context, now time.Time) ([]model.Loan, error) {
	return l.list(ctx, "OverdueLoans", selectLoans().
		Where(sq.Eq{"returned_at": nil}).
		Where(sq.LtOrEq{"due_date": now}).
		OrderBy("due_date", "id"))
}

func (l *Ledger) LoansByUser(ctx context.Context, userID string) ([]model.Loan, error) {
	return l.list(ctx, "LoansByUser", selectLoans().
		Where(sq.Eq{"user_id": userID}).
		OrderBy("start_date desc", "id"))
}

// ActiveLoanForResource returns the loan still holding the resource. Should a duplicate ever
// exist, the one ending last wins.
func (l *Ledger) ActiveLoanForResource(ctx context.Context, resourceID string) (model.Loan, error) {
	query, args, err := selectLoans().
		Where(sq.Eq{"resource_id": resourceID, "returned_at": nil}).
		OrderBy("end_date desc").
		Limit(1).
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}
	return l.getOne(ctx, "ActiveLoanForResource", query, args)
}

// CloseLoan ends an outstanding loan at now. The scheduled due date is kept.
func (l *Ledger) CloseLoan(ctx context.Context, loanID string, now time.Time) (model.Loan, error) {
	now = now.UTC().Truncate(time.Microsecond)
	query, args, err := qb.Update(loansTableName).
		Set("end_date", sq.Expr("greatest(start_date, ?::timestamptz)", now)).
		Set("returned_at", now).
		Where(sq.Eq{"id": loanID, "returned_at": nil}).
		Suffix("returning id, resource_id, user_id, start_date, due_date, end_date, returned_at").
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}
	return l.getOne(ctx, "CloseLoan", query, args)
}

func (l *Ledger) LoanHistory(ctx context.Context, resourceID string) ([]model.Loan, error) {
	return l.list(ctx, "LoanHistory", selectLoans().
		Where(sq.Eq{"resource_id": resourceID}).
		OrderBy("start_date desc", "id"))
}

func (l *Ledger) getOne(ctx context.Context, op, query string, args []any) (model.Loan, error) {
	rows, err := conn(ctx, l.db).Query(ctx, query, args...)
	if err != nil {
		return model.Loan{}, mapErr(op, err)
	}
	defer rows.Close()

	loan, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Loan])
	if err != nil {
		return model.Loan{}, mapErr(op, err)
	}
	return loan, nil
}

func (l *Ledger) list(ctx context.Context, op string, b sq.SelectBuilder) ([]model.Loan, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	l.log.Debug(op, zap.String("query", query), zap.Any("args", args))

	rows, err := conn(ctx, l.db).Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer rows.Close()

	loans, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Loan])
	if err != nil {
		return nil, mapErr(op, err)
	}
	return loans, nil
}
