package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loans/library/internal/errs"
	"github.com/Astemirdum/library-loans/library/internal/model"
)

func (r *repository) CreateLoan(ctx context.Context, bookID, userID int, loanDate time.Time) (model.Loan, error) {
	query, args, err := qb.Insert(loansTableName).
		Columns("book_id", "user_id", "loan_date").
		Values(bookID, userID, loanDate).
		Suffix(returning(loanColumns)).
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}
	return r.oneLoan(ctx, "CreateLoan", query, args)
}

func (r *repository) CloseLoan(ctx context.Context, bookID, userID int, returnDate time.Time) (model.Loan, error) {
	query, args, err := qb.Update(loansTableName).
		Set("return_date", returnDate).
		Where(sq.Eq{"book_id": bookID, "user_id": userID, "return_date": nil}).
		Suffix(returning(loanColumns)).
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}
	l, err := r.oneLoan(ctx, "CloseLoan", query, args)
	if errors.Is(err, errs.ErrNotFound) {
		return model.Loan{}, errs.ErrNoActiveLoan
	}
	return l, err
}

func (r *repository) ListLoans(ctx context.Context, filter model.LoanFilter) ([]model.Loan, error) {
	q := qb.Select(loanColumns...).From(loansTableName)
	if filter.UserID != nil {
		q = q.Where(sq.Eq{"user_id": *filter.UserID})
	}
	if filter.OpenOnly {
		q = q.Where(sq.Eq{"return_date": nil})
	}
	query, args, err := q.OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}
	r.log.Debug("ListLoans", zap.String("query", query), zap.Any("args", args))
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapErr("ListLoans", err)
	}
	loans, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Loan])
	if err != nil {
		return nil, r.mapErr("ListLoans", err)
	}
	return loans, nil
}

func (r *repository) CountOpenLoansByUser(ctx context.Context, userID int) (int, error) {
	query, args, err := qb.Select("count(*)").
		From(loansTableName).
		Where(sq.Eq{"user_id": userID, "return_date": nil}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err = r.q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, r.mapErr("CountOpenLoansByUser", err)
	}
	return n, nil
}

func (r *repository) oneLoan(ctx context.Context, op, query string, args []any) (model.Loan, error) {
	r.log.Debug(op, zap.String("query", query), zap.Any("args", args))
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return model.Loan{}, r.mapErr(op, err)
	}
	l, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Loan])
	if err != nil {
		return model.Loan{}, r.mapErr(op, err)
	}
	return l, nil
}
