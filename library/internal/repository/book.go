package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loans/library/internal/errs"
	"github.com/Astemirdum/library-loans/library/internal/model"
)

func (r *repository) CreateBook(ctx context.Context, b model.Book) (model.Book, error) {
	query, args, err := qb.Insert(booksTableName).
		Columns("title", "author", "published_year", "type", "image_url", "available", "is_active").
		Values(b.Title, b.Author, b.PublishedYear, b.Type, b.ImageURL, b.Available, b.IsActive).
		Suffix(returning(bookColumns)).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	return r.oneBook(ctx, "CreateBook", query, args)
}

func (r *repository) GetBook(ctx context.Context, id int) (model.Book, error) {
	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	return r.oneBook(ctx, "GetBook", query, args)
}

func (r *repository) LockBook(ctx context.Context, id int) (model.Book, error) {
	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"id": id}).
		Suffix(string(ForUpdate)).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	return r.oneBook(ctx, "LockBook", query, args)
}

func (r *repository) UpdateBook(ctx context.Context, id int, patch model.BookPatch) (model.Book, error) {
	if patch.Empty() {
		return r.GetBook(ctx, id)
	}
	q := qb.Update(booksTableName).Where(sq.Eq{"id": id})
	if patch.Title != nil {
		q = q.Set("title", *patch.Title)
	}
	if patch.Author != nil {
		q = q.Set("author", *patch.Author)
	}
	if patch.PublishedYear != nil {
		q = q.Set("published_year", *patch.PublishedYear)
	}
	if patch.Type != nil {
		q = q.Set("type", *patch.Type)
	}
	if patch.ImageURL != nil {
		q = q.Set("image_url", *patch.ImageURL)
	}
	query, args, err := q.Suffix(returning(bookColumns)).ToSql()
	if err != nil {
		return model.Book{}, err
	}
	return r.oneBook(ctx, "UpdateBook", query, args)
}

func (r *repository) SetBookActive(ctx context.Context, id int, active bool) error {
	query, args, err := qb.Update(booksTableName).
		Set("is_active", active).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return r.mapErr("SetBookActive", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repository) ListActiveBooks(ctx context.Context) ([]model.Book, error) {
	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"is_active": true}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.books(ctx, "ListActiveBooks", query, args)
}

func (r *repository) FindActiveBooks(ctx context.Context, title string) ([]model.Book, error) {
	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"is_active": true}).
		Where(sq.ILike{"title": likePattern(title)}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.books(ctx, "FindActiveBooks", query, args)
}

func (r *repository) GetBooksByIDs(ctx context.Context, ids []int) ([]model.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.books(ctx, "GetBooksByIDs", query, args)
}

// ReserveBook flips an active, available book to unavailable.
// The row lock taken by the update serializes concurrent reservations.
func (r *repository) ReserveBook(ctx context.Context, id int) (model.Book, error) {
	query, args, err := qb.Update(booksTableName).
		Set("available", false).
		Where(sq.Eq{"id": id, "is_active": true, "available": true}).
		Suffix(returning(bookColumns)).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	b, err := r.oneBook(ctx, "ReserveBook", query, args)
	if errors.Is(err, errs.ErrNotFound) {
		return model.Book{}, errs.ErrBookUnavailable
	}
	return b, err
}

// ReleaseBook marks the book available whatever its active flag.
func (r *repository) ReleaseBook(ctx context.Context, id int) error {
	query, args, err := qb.Update(booksTableName).
		Set("available", true).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return r.mapErr("ReleaseBook", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repository) oneBook(ctx context.Context, op, query string, args []any) (model.Book, error) {
	r.log.Debug(op, zap.String("query", query), zap.Any("args", args))
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return model.Book{}, r.mapErr(op, err)
	}
	b, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Book])
	if err != nil {
		return model.Book{}, r.mapErr(op, err)
	}
	return b, nil
}

func (r *repository) books(ctx context.Context, op, query string, args []any) ([]model.Book, error) {
	r.log.Debug(op, zap.String("query", query), zap.Any("args", args))
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapErr(op, err)
	}
	books, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Book])
	if err != nil {
		return nil, r.mapErr(op, err)
	}
	return books, nil
}
