package handler

import (
	"context"
	"time"

	"github.com/Astemirdum/library-loans/library/internal/model"
	"github.com/Astemirdum/library-loans/library/internal/service"
	"github.com/Astemirdum/library-loans/pkg/auth"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type LibraryService interface {
	Register(ctx context.Context, req model.RegisterRequest, photo *model.Upload) (model.User, error)
	Authenticate(ctx context.Context, username, password string) (model.LoginResponse, error)
	Profile(ctx context.Context, p auth.Principal) (model.UserView, error)
	ListUsers(ctx context.Context, p auth.Principal) ([]model.UserView, error)
	FindUsers(ctx context.Context, p auth.Principal, name string) ([]model.UserView, error)
	UpdateUser(ctx context.Context, id int, patch model.UserPatch, photo *model.Upload) (model.User, error)
	DeactivateUser(ctx context.Context, id int) error
	ReactivateUser(ctx context.Context, id int) error

	ListBooks(ctx context.Context) ([]model.Book, error)
	FindBooks(ctx context.Context, title string) ([]model.Book, error)
	CreateBook(ctx context.Context, req model.CreateBookRequest, image *model.Upload) (model.Book, error)
	UpdateBook(ctx context.Context, id int, patch model.BookPatch, image *model.Upload) (model.Book, error)
	DeactivateBook(ctx context.Context, id int) error
	ReactivateBook(ctx context.Context, id int) error

	StartLoan(ctx context.Context, bookID, userID int) (model.Loan, error)
	CloseLoan(ctx context.Context, bookID, userID int) (model.Loan, error)
	ListLoans(ctx context.Context, p auth.Principal) ([]model.LoanView, error)
	ListLateLoans(ctx context.Context, p auth.Principal, asOf time.Time) ([]model.LateLoanView, error)
}

var _ LibraryService = (*service.Service)(nil)
