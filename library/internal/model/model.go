package model

import (
	"io"
	"time"

	"github.com/Astemirdum/library-loans/pkg/auth"
)

const DateLayout = "2006-01-02"

type BookType int

const (
	BookTypeLong    BookType = 1
	BookTypeShort   BookType = 2
	BookTypeExpress BookType = 3
)

func (t BookType) Valid() bool {
	return t >= BookTypeLong && t <= BookTypeExpress
}

type User struct {
	ID           int       `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	City         *string   `json:"city" db:"city"`
	Role         auth.Role `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	ProfilePhoto *string   `json:"profile_photo" db:"profile_photo"`
}

func (u User) Principal() auth.Principal {
	return auth.Principal{ID: u.ID, Username: u.Username, Role: u.Role}
}

type Book struct {
	ID            int      `json:"id" db:"id"`
	Title         string   `json:"title" db:"title"`
	Author        string   `json:"author" db:"author"`
	PublishedYear *int     `json:"published_year" db:"published_year"`
	Type          BookType `json:"type" db:"type"`
	ImageURL      *string  `json:"image_url" db:"image_url"`
	Available     bool     `json:"available" db:"available"`
	IsActive      bool     `json:"is_active" db:"is_active"`
}

// Loan is open while ReturnDate is nil.
type Loan struct {
	ID         int        `json:"id" db:"id"`
	BookID     int        `json:"book_id" db:"book_id"`
	UserID     int        `json:"user_id" db:"user_id"`
	LoanDate   time.Time  `json:"loan_date" db:"loan_date"`
	ReturnDate *time.Time `json:"return_date" db:"return_date"`
}

func (l Loan) Open() bool {
	return l.ReturnDate == nil
}

// UserView is a user as seen by a particular viewer. Nil fields are hidden.
type UserView struct {
	ID           *int       `json:"id,omitempty"`
	Username     string     `json:"username"`
	Email        *string    `json:"email,omitempty"`
	City         *string    `json:"city"`
	Role         *auth.Role `json:"role,omitempty"`
	IsActive     *bool      `json:"is_active,omitempty"`
	ProfilePhoto *string    `json:"profile_photo"`
}

type LoanView struct {
	ID         int      `json:"id"`
	LoanDate   string   `json:"loan_date"`
	ReturnDate *string  `json:"return_date"`
	User       UserView `json:"user"`
	Book       Book     `json:"book"`
}

type LateLoanView struct {
	ID          int      `json:"id"`
	LoanDate    string   `json:"loan_date"`
	DaysOverdue int      `json:"days_overdue"`
	User        UserView `json:"user"`
	Book        Book     `json:"book"`
}

// Upload is an image received with a request.
type Upload struct {
	Filename string
	Content  io.Reader
}

type RegisterRequest struct {
	Username string  `form:"username" validate:"required,max=80"`
	Email    string  `form:"email" validate:"required,email,max=120"`
	Password string  `form:"password" validate:"required,max=72"`
	City     *string `validate:"omitempty,max=80"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type CreateBookRequest struct {
	Title         string   `form:"title" validate:"required,max=200"`
	Author        string   `form:"author" validate:"required,max=100"`
	PublishedYear *int     `validate:"omitempty,gte=0,lte=9999"`
	Type          BookType `form:"type" validate:"required,oneof=1 2 3"`
}

// BookPatch holds the supplied fields of a book update.
type BookPatch struct {
	Title         *string   `validate:"omitempty,min=1,max=200"`
	Author        *string   `validate:"omitempty,min=1,max=100"`
	PublishedYear *int      `validate:"omitempty,gte=0,lte=9999"`
	Type          *BookType `validate:"omitempty,oneof=1 2 3"`
	ImageURL      *string   `validate:"-"`
}

func (p BookPatch) Empty() bool {
	return p.Title == nil && p.Author == nil && p.PublishedYear == nil && p.Type == nil && p.ImageURL == nil
}

// UserPatch holds the supplied fields of a user update.
type UserPatch struct {
	Username     *string    `validate:"omitempty,min=1,max=80"`
	Email        *string    `validate:"omitempty,email,max=120"`
	City         *string    `validate:"omitempty,max=80"`
	Role         *auth.Role `validate:"omitempty,oneof=user admin"`
	Password     *string    `validate:"omitempty,min=1,max=72"`
	ProfilePhoto *string    `validate:"-"`
	// PasswordHash is filled by the service from Password.
	PasswordHash *string `validate:"-"`
}

func (p UserPatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.City == nil && p.Role == nil &&
		p.PasswordHash == nil && p.ProfilePhoto == nil
}

// LoanFilter narrows ListLoans. Zero value selects every loan.
type LoanFilter struct {
	UserID   *int
	OpenOnly bool
}

type LoanRequest struct {
	BookID int `json:"book_id" validate:"required,gt=0"`
}

type Message struct {
	Message string `json:"message"`
}
