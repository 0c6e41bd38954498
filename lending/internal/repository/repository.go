package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/adpadillar/software-architecture-library/lending/internal/errs"
)

const (
	resourcesTableName = `resources`
	booksTableName     = `books`
	laptopsTableName   = `laptops`
	usersTableName     = `users`
	loansTableName     = `loans`

	oneOutstandingLoanIndex = `loans_one_outstanding_idx`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// querier is the part of pgxpool.Pool and pgx.Tx the repositories use.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// conn returns the transaction bound to ctx by Transactor.WithinTx, or the pool.
func conn(ctx context.Context, db *pgxpool.Pool) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db
}

type Transactor struct {
	db  *pgxpool.Pool
	log *zap.Logger
}

func NewTransactor(db *pgxpool.Pool, log *zap.Logger) *Transactor {
	return &Transactor{
		db:  db,
		log: log.Named("tx"),
	}
}

// WithinTx runs fn in one READ COMMITTED transaction. Every repository call made with the ctx
// passed to fn joins it. A nested call joins the outer transaction instead of opening a new one.
// Any error from fn rolls everything back.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapErr("begin tx", err)
	}
	defer func() {
		if err := tx.Rollback(context.Background()); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			t.log.Warn("rollback", zap.Error(err))
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapErr("commit", err)
	}
	return nil
}

// mapErr classifies a driver error into the errs kinds.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			if pgErr.ConstraintName == oneOutstandingLoanIndex {
				return errs.ErrResourceUnavailable
			}
			return fmt.Errorf("%w: %s", errs.ErrConflict, pgErr.Message)
		case pgerrcode.ForeignKeyViolation:
			return fmt.Errorf("%w: %s", errs.ErrNotFound, pgErr.Detail)
		case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
			return errs.Validation(errors.New(pgErr.Message))
		}
	}
	return errs.Store(op, err)
}
