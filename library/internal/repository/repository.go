package repository

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loans/library/internal/errs"
	"github.com/Astemirdum/library-loans/library/internal/model"
)

//go:generate go run github.com/golang/mock/mockgen -source=repository.go -destination=mocks/mock.go

type Repository interface {
	// InTx runs fn inside one transaction. Nested calls reuse the outer one.
	InTx(ctx context.Context, fn func(repo Repository) error) error

	CreateUser(ctx context.Context, u model.User) (model.User, error)
	GetUser(ctx context.Context, id int) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	LockUser(ctx context.Context, id int, mode LockMode) (model.User, error)
	UpdateUser(ctx context.Context, id int, patch model.UserPatch) (model.User, error)
	SetUserActive(ctx context.Context, id int, active bool) error
	ListActiveUsers(ctx context.Context) ([]model.User, error)
	FindActiveUsers(ctx context.Context, query string) ([]model.User, error)
	GetUsersByIDs(ctx context.Context, ids []int) ([]model.User, error)

	CreateBook(ctx context.Context, b model.Book) (model.Book, error)
	GetBook(ctx context.Context, id int) (model.Book, error)
	LockBook(ctx context.Context, id int) (model.Book, error)
	UpdateBook(ctx context.Context, id int, patch model.BookPatch) (model.Book, error)
	SetBookActive(ctx context.Context, id int, active bool) error
	ListActiveBooks(ctx context.Context) ([]model.Book, error)
	FindActiveBooks(ctx context.Context, query string) ([]model.Book, error)
	GetBooksByIDs(ctx context.Context, ids []int) ([]model.Book, error)
	ReserveBook(ctx context.Context, id int) (model.Book, error)
	ReleaseBook(ctx context.Context, id int) error

	CreateLoan(ctx context.Context, bookID, userID int, loanDate time.Time) (model.Loan, error)
	CloseLoan(ctx context.Context, bookID, userID int, returnDate time.Time) (model.Loan, error)
	ListLoans(ctx context.Context, filter model.LoanFilter) ([]model.Loan, error)
	CountOpenLoansByUser(ctx context.Context, userID int) (int, error)
}

type LockMode string

const (
	ForShare  LockMode = "FOR SHARE"
	ForUpdate LockMode = "FOR UPDATE"
)

type repository struct {
	db   *pgxpool.Pool
	q    querier
	inTx bool
	log  *zap.Logger
}

func NewRepository(db *pgxpool.Pool, log *zap.Logger) (*repository, error) {
	if db == nil {
		return nil, errors.New("nil db pool")
	}
	return &repository{
		db:  db,
		q:   db,
		log: log.Named("repo"),
	}, nil
}

const (
	usersTableName = `users`
	booksTableName = `books`
	loansTableName = `loans`

	openLoanIndex = `loans_open_book_uidx`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var (
	userColumns = []string{"id", "username", "email", "password_hash", "city", "role", "is_active", "profile_photo"}
	bookColumns = []string{"id", "title", "author", "published_year", "type", "image_url", "available", "is_active"}
	loanColumns = []string{"id", "book_id", "user_id", "loan_date", "return_date"}
)

func returning(cols []string) string {
	return "RETURNING " + strings.Join(cols, ", ")
}

func (r *repository) InTx(ctx context.Context, fn func(repo Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	return pgx.BeginTxFunc(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(&repository{
			db:   r.db,
			q:    tx,
			inTx: true,
			log:  r.log,
		})
	})
}

// mapErr translates driver errors into the domain taxonomy.
func (r *repository) mapErr(op string, err error) error {
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
			if pgErr.ConstraintName == openLoanIndex {
				return errs.ErrBookUnavailable
			}
			return errs.ErrDuplicateIdentity
		case pgerrcode.ForeignKeyViolation:
			return errs.ErrNotFound
		}
	}
	r.log.Error(op, zap.Error(err))
	return errors.Wrap(err, op)
}

// likePattern builds a case-insensitive substring pattern with wildcards escaped.
func likePattern(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}
