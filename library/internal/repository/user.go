package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loans/library/internal/errs"
	"github.com/Astemirdum/library-loans/library/internal/model"
)

func (r *repository) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	query, args, err := qb.Insert(usersTableName).
		Columns("username", "email", "password_hash", "city", "role", "is_active", "profile_photo").
		Values(u.Username, u.Email, u.PasswordHash, u.City, u.Role, u.IsActive, u.ProfilePhoto).
		Suffix(returning(userColumns)).
		ToSql()
	if err != nil {
		return model.User{}, err
	}
	return r.oneUser(ctx, "CreateUser", query, args)
}

func (r *repository) GetUser(ctx context.Context, id int) (model.User, error) {
	query, args, err := qb.Select(userColumns...).
		From(usersTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.User{}, err
	}
	return r.oneUser(ctx, "GetUser", query, args)
}

func (r *repository) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	query, args, err := qb.Select(userColumns...).
		From(usersTableName).
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return model.User{}, err
	}
	return r.oneUser(ctx, "GetUserByUsername", query, args)
}

// LockUser reads the user row under a row lock. Only meaningful inside InTx.
func (r *repository) LockUser(ctx context.Context, id int, mode LockMode) (model.User, error) {
	query, args, err := qb.Select(userColumns...).
		From(usersTableName).
		Where(sq.Eq{"id": id}).
		Suffix(string(mode)).
		ToSql()
	if err != nil {
		return model.User{}, err
	}
	return r.oneUser(ctx, "LockUser", query, args)
}

func (r *repository) UpdateUser(ctx context.Context, id int, patch model.UserPatch) (model.User, error) {
	if patch.Empty() {
		return r.GetUser(ctx, id)
	}
	q := qb.Update(usersTableName).Where(sq.Eq{"id": id})
	if patch.Username != nil {
		q = q.Set("username", *patch.Username)
	}
	if patch.Email != nil {
		q = q.Set("email", *patch.Email)
	}
	if patch.City != nil {
		q = q.Set("city", *patch.City)
	}
	if patch.Role != nil {
		q = q.Set("role", *patch.Role)
	}
	if patch.PasswordHash != nil {
		q = q.Set("password_hash", *patch.PasswordHash)
	}
	if patch.ProfilePhoto != nil {
		q = q.Set("profile_photo", *patch.ProfilePhoto)
	}
	query, args, err := q.Suffix(returning(userColumns)).ToSql()
	if err != nil {
		return model.User{}, err
	}
	return r.oneUser(ctx, "UpdateUser", query, args)
}

func (r *repository) SetUserActive(ctx context.Context, id int, active bool) error {
	query, args, err := qb.Update(usersTableName).
		Set("is_active", active).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return r.mapErr("SetUserActive", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repository) ListActiveUsers(ctx context.Context) ([]model.User, error) {
	query, args, err := qb.Select(userColumns...).
		From(usersTableName).
		Where(sq.Eq{"is_active": true}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.users(ctx, "ListActiveUsers", query, args)
}

func (r *repository) FindActiveUsers(ctx context.Context, name string) ([]model.User, error) {
	query, args, err := qb.Select(userColumns...).
		From(usersTableName).
		Where(sq.Eq{"is_active": true}).
		Where(sq.ILike{"username": likePattern(name)}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.users(ctx, "FindActiveUsers", query, args)
}

func (r *repository) GetUsersByIDs(ctx context.Context, ids []int) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := qb.Select(userColumns...).
		From(usersTableName).
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.users(ctx, "GetUsersByIDs", query, args)
}

func (r *repository) oneUser(ctx context.Context, op, query string, args []any) (model.User, error) {
	r.log.Debug(op, zap.String("query", query), zap.Any("args", args))
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return model.User{}, r.mapErr(op, err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.User])
	if err != nil {
		return model.User{}, r.mapErr(op, err)
	}
	return u, nil
}

func (r *repository) users(ctx context.Context, op, query string, args []any) ([]model.User, error) {
	r.log.Debug(op, zap.String("query", query), zap.Any("args", args))
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapErr(op, err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.User])
	if err != nil {
		return nil, r.mapErr(op, err)
	}
	return users, nil
}
