package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/adpadillar/software-architecture-library/lending/internal/model"
)

// Users is the local copy of the user directory; the core only reads id and role from it.
type Users struct {
	db  *pgxpool.Pool
	log *zap.Logger
}

func NewUsers(db *pgxpool.Pool, log *zap.Logger) *Users {
	return &Users{
		db:  db,
		log: log.Named("users"),
	}
}

func (u *Users) AddUser(ctx context.Context, user model.User) (model.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = model.RoleUnset
	}
	query, args, err := qb.Insert(usersTableName).
		Columns("id", "name", "email", "role").
		Values(user.ID, user.Name, user.Email, user.Role).
		ToSql()
	if err != nil {
		return model.User{}, err
	}
	if _, err := conn(ctx, u.db).Exec(ctx, query, args...); err != nil {
		u.log.Error("AddUser", zap.String("q", query), zap.Any("args", args))
		return model.User{}, mapErr("insert user", err)
	}
	return user, nil
}

func (u *Users) GetUser(ctx context.Context, id string) (model.User, error) {
	query, args, err := qb.Select("id", "name", "email", "role").
		From(usersTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.User{}, err
	}
	rows, err := conn(ctx, u.db).Query(ctx, query, args...)
	if err != nil {
		return model.User{}, mapErr("GetUser", err)
	}
	defer rows.Close()

	user, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
	if err != nil {
		return model.User{}, mapErr("GetUser", err)
	}
	return user, nil
}
