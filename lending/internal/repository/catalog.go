package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/adpadillar/software-architecture-library/lending/internal/errs"
	"github.com/adpadillar/software-architecture-library/lending/internal/model"
)

// Catalog owns resource rows and their kind payload rows.
type Catalog struct {
	db  *pgxpool.Pool
	tx  *Transactor
	log *zap.Logger
}

func NewCatalog(db *pgxpool.Pool, tx *Transactor, log *zap.Logger) *Catalog {
	return &Catalog{
		db:  db,
		tx:  tx,
		log: log.Named("catalog"),
	}
}

type resourceRow struct {
	ID        string      `db:"id"`
	Kind      model.Kind  `db:"kind"`
	State     model.State `db:"state"`
	CreatedAt time.Time   `db:"created_at"`
	Title     *string     `db:"title"`
	Author    *string     `db:"author"`
	Genre     *string     `db:"genre"`
	Brand     *string     `db:"brand"`
	Model     *string     `db:"model"`
}

func (r resourceRow) toModel() model.Resource {
	res := model.Resource{
		ID:        r.ID,
		Kind:      r.Kind,
		State:     r.State,
		CreatedAt: r.CreatedAt,
	}
	switch r.Kind {
	case model.KindBook:
		res.Book = &model.Book{Title: deref(r.Title), Author: deref(r.Author), Genre: deref(r.Genre)}
	case model.KindLaptop:
		res.Laptop = &model.Laptop{Brand: deref(r.Brand), Model: deref(r.Model)}
	}
	return res
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func selectResources() sq.SelectBuilder {
	return qb.Select("r.id", "r.kind", "r.state", "r.created_at",
		"b.title", "b.author", "b.genre", "l.brand", "l.model").
		From(resourcesTableName + " r").
		LeftJoin(fmt.Sprintf("%s b on b.id = r.id", booksTableName)).
		LeftJoin(fmt.Sprintf("%s l on l.id = r.id", laptopsTableName))
}

// catalog order, also the order LockFirstAvailable picks from
func ordered(q sq.SelectBuilder) sq.SelectBuilder {
	return q.OrderBy("r.created_at", "r.id")
}

// AddResource stores res with a fresh id in the available state. Base and payload rows are
// written in one transaction.
func (c *Catalog) AddResource(ctx context.Context, res model.Resource) (model.Resource, error) {
	res.ID = uuid.NewString()
	res.State = model.StateAvailable
	res.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	var payload sq.InsertBuilder
	switch {
	case res.Kind == model.KindBook && res.Book != nil:
		payload = qb.Insert(booksTableName).
			Columns("id", "title", "author", "genre").
			Values(res.ID, res.Book.Title, res.Book.Author, res.Book.Genre)
		res.Laptop = nil
	case res.Kind == model.KindLaptop && res.Laptop != nil:
		payload = qb.Insert(laptopsTableName).
			Columns("id", "brand", "model").
			Values(res.ID, res.Laptop.Brand, res.Laptop.Model)
		res.Book = nil
	case !res.Kind.Valid():
		return model.Resource{}, errs.ErrUnknownKind
	default:
		return model.Resource{}, errs.Validation(fmt.Errorf("%s payload is required", res.Kind))
	}

	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		q := conn(ctx, c.db)
		query, args, err := qb.Insert(resourcesTableName).
			Columns("id", "kind", "state", "created_at").
			Values(res.ID, res.Kind, res.State, res.CreatedAt).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := q.Exec(ctx, query, args...); err != nil {
			return mapErr("insert resource", err)
		}

		query, args, err = payload.ToSql()
		if err != nil {
			return err
		}
		if _, err := q.Exec(ctx, query, args...); err != nil {
			c.log.Error("AddResource", zap.String("q", query), zap.Any("args", args))
			return mapErr("insert payload", err)
		}
		return nil
	})
	if err != nil {
		return model.Resource{}, err
	}
	return res, nil
}

func (c *Catalog) FindResource(ctx context.Context, id string) (model.Resource, error) {
	return c.getOne(ctx, "FindResource", selectResources().Where(sq.Eq{"r.id": id}).Limit(1))
}

// LockResource reads a resource and holds its row lock until the surrounding transaction ends.
func (c *Catalog) LockResource(ctx context.Context, id string) (model.Resource, error) {
	return c.getOne(ctx, "LockResource", selectResources().
		Where(sq.Eq{"r.id": id}).
		Suffix("FOR UPDATE OF r"))
}

// LockFirstAvailable locks the first available resource of kind in catalog order, skipping rows
// another transaction is already lending.
func (c *Catalog) LockFirstAvailable(ctx context.Context, kind model.Kind) (model.Resource, error) {
	return c.getOne(ctx, "LockFirstAvailable", ordered(selectResources().
		Where(sq.Eq{"r.kind": kind, "r.state": model.StateAvailable})).
		Limit(1).
		Suffix("FOR UPDATE OF r SKIP LOCKED"))
}

// SetState overwrites the stored state without consulting the ledger.
func (c *Catalog) SetState(ctx context.Context, id string, state model.State) error {
	query, args, err := qb.Update(resourcesTableName).
		Set("state", state).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := conn(ctx, c.db).Exec(ctx, query, args...)
	if err != nil {
		return mapErr("set state", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteResource removes the payload rows and the base row together. It does not look at loans.
func (c *Catalog) DeleteResource(ctx context.Context, id string) error {
	return c.tx.WithinTx(ctx, func(ctx context.Context) error {
		q := conn(ctx, c.db)
		for _, table := range []string{booksTableName, laptopsTableName} {
			query, args, err := qb.Delete(table).Where(sq.Eq{"id": id}).ToSql()
			if err != nil {
				return err
			}
			if _, err := q.Exec(ctx, query, args...); err != nil {
				return mapErr("delete payload", err)
			}
		}

		query, args, err := qb.Delete(resourcesTableName).Where(sq.Eq{"id": id}).ToSql()
		if err != nil {
			return err
		}
		tag, err := q.Exec(ctx, query, args...)
		if err != nil {
			return mapErr("delete resource", err)
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
}

// ListResources returns the whole catalog, or only kind when it is not empty.
func (c *Catalog) ListResources(ctx context.Context, kind model.Kind) ([]model.Resource, error) {
	q := selectResources()
	if kind != "" {
		q = q.Where(sq.Eq{"r.kind": kind})
	}
	return c.list(ctx, "ListResources", ordered(q))
}

func (c *Catalog) ListAvailable(ctx context.Context, kind model.Kind) ([]model.Resource, error) {
	return c.list(ctx, "ListAvailable", ordered(selectResources().
		Where(sq.Eq{"r.kind": kind, "r.state": model.StateAvailable})))
}

// Search matches term as a case-sensitive substring of one payload field. LIKE wildcards in
// term are matched literally.
func (c *Catalog) Search(ctx context.Context, kind model.Kind, field, term string) ([]model.Resource, error) {
	if !kind.Valid() {
		return nil, errs.ErrUnknownKind
	}
	if !model.Searchable(kind, field) {
		return nil, errs.ErrUnknownField
	}
	alias := "b."
	if kind == model.KindLaptop {
		alias = "l."
	}
	q := selectResources().
		Where(sq.Eq{"r.kind": kind}).
		Where(sq.Like{alias + field: "%" + escapeLike(term) + "%"})
	return c.list(ctx, "Search", ordered(q))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (c *Catalog) getOne(ctx context.Context, op string, b sq.SelectBuilder) (model.Resource, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return model.Resource{}, err
	}
	rows, err := conn(ctx, c.db).Query(ctx, query, args...)
	if err != nil {
		c.log.Error(op, zap.String("q", query), zap.Any("args", args))
		return model.Resource{}, mapErr(op, err)
	}
	defer rows.Close()

	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[resourceRow])
	if err != nil {
		return model.Resource{}, mapErr(op, err)
	}
	return row.toModel(), nil
}

func (c *Catalog) list(ctx context.Context, op string, b sq.SelectBuilder) ([]model.Resource, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	c.log.Debug(op, zap.String("query", query), zap.Any("args", args))

	rows, err := conn(ctx, c.db).Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer rows.Close()

	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[resourceRow])
	if err != nil {
		return nil, mapErr(op, err)
	}
	res := make([]model.Resource, 0, len(items))
	for _, item := range items {
		res = append(res, item.toModel())
	}
	return res, nil
}
