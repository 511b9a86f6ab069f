package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/library-loans/library/internal/errs"
	"github.com/Astemirdum/library-loans/library/internal/model"
	"github.com/Astemirdum/library-loans/library/internal/policy"
	libraryRepo "github.com/Astemirdum/library-loans/library/internal/repository"
	"github.com/Astemirdum/library-loans/pkg/auth"
	"github.com/Astemirdum/library-loans/pkg/kafka"
)

const (
	actionStart = "start"
	actionClose = "close"
)

// StartLoan lends an active, available book to an active user.
// Missing, inactive and already lent books all yield ErrBookUnavailable.
func (s *Service) StartLoan(ctx context.Context, bookID, userID int) (loan model.Loan, err error) {
	defer func() { s.observer.LoanObserved(actionStart, err) }()

	err = s.repo.InTx(ctx, func(repo libraryRepo.Repository) error {
		u, err := repo.LockUser(ctx, userID, libraryRepo.ForShare)
		if err != nil {
			return err
		}
		if !u.IsActive {
			return errs.ErrUserInactive
		}
		if _, err = repo.ReserveBook(ctx, bookID); err != nil {
			return err
		}
		loan, err = repo.CreateLoan(ctx, bookID, userID, s.today())
		return err
	})
	if err != nil {
		return model.Loan{}, errors.Wrap(err, "start loan")
	}

	s.invalidateBooks(ctx)
	s.publish(ctx, kafka.LoanStarted, loan)
	return loan, nil
}

// CloseLoan returns the book of the user's open loan and makes it available again.
func (s *Service) CloseLoan(ctx context.Context, bookID, userID int) (loan model.Loan, err error) {
	defer func() { s.observer.LoanObserved(actionClose, err) }()

	err = s.repo.InTx(ctx, func(repo libraryRepo.Repository) error {
		loan, err = repo.CloseLoan(ctx, bookID, userID, s.today())
		if err != nil {
			return err
		}
		return repo.ReleaseBook(ctx, bookID)
	})
	if err != nil {
		return model.Loan{}, errors.Wrap(err, "close loan")
	}

	s.invalidateBooks(ctx)
	s.publish(ctx, kafka.LoanClosed, loan)
	return loan, nil
}

// ListLoans returns all loans to admins and own loans to users, oldest first.
func (s *Service) ListLoans(ctx context.Context, p auth.Principal) ([]model.LoanView, error) {
	loans, users, books, err := s.loadLoans(ctx, policy.LoanScope(p, false))
	if err != nil {
		return nil, err
	}
	views := make([]model.LoanView, 0, len(loans))
	for _, l := range loans {
		views = append(views, model.LoanView{
			ID:         l.ID,
			LoanDate:   l.LoanDate.Format(model.DateLayout),
			ReturnDate: formatDate(l.ReturnDate),
			User:       policy.ProjectUser(users[l.UserID], p.Role),
			Book:       policy.ProjectBook(books[l.BookID]),
		})
	}
	return views, nil
}

// ListLateLoans returns the open loans in the principal's scope that are late as of asOf.
func (s *Service) ListLateLoans(ctx context.Context, p auth.Principal, asOf time.Time) ([]model.LateLoanView, error) {
	loans, users, books, err := s.loadLoans(ctx, policy.LoanScope(p, true))
	if err != nil {
		return nil, err
	}
	views := make([]model.LateLoanView, 0)
	for _, l := range loans {
		if !l.Open() {
			continue
		}
		b := books[l.BookID]
		overdue, late := Lateness(b.Type, l.LoanDate, asOf)
		if !late {
			continue
		}
		views = append(views, model.LateLoanView{
			ID:          l.ID,
			LoanDate:    l.LoanDate.Format(model.DateLayout),
			DaysOverdue: overdue,
			User:        policy.ProjectUser(users[l.UserID], p.Role),
			Book:        policy.ProjectBook(b),
		})
	}
	return views, nil
}

// loadLoans fetches loans first and then their users and books by id.
func (s *Service) loadLoans(ctx context.Context, filter model.LoanFilter) ([]model.Loan, map[int]model.User, map[int]model.Book, error) {
	loans, err := s.repo.ListLoans(ctx, filter)
	if err != nil {
		return nil, nil, nil, err
	}
	userIDs, bookIDs := refs(loans)

	var (
		users []model.User
		books []model.Book
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.repo.GetUsersByIDs(gCtx, userIDs)
		return err
	})
	g.Go(func() error {
		var err error
		books, err = s.repo.GetBooksByIDs(gCtx, bookIDs)
		return err
	})
	if err = g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	userByID := make(map[int]model.User, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}
	bookByID := make(map[int]model.Book, len(books))
	for _, b := range books {
		bookByID[b.ID] = b
	}
	for _, l := range loans {
		if _, ok := userByID[l.UserID]; !ok {
			return nil, nil, nil, errors.Errorf("loan %d: user %d not loaded", l.ID, l.UserID)
		}
		if _, ok := bookByID[l.BookID]; !ok {
			return nil, nil, nil, errors.Errorf("loan %d: book %d not loaded", l.ID, l.BookID)
		}
	}
	return loans, userByID, bookByID, nil
}

func refs(loans []model.Loan) (userIDs, bookIDs []int) {
	seenUsers := make(map[int]struct{}, len(loans))
	seenBooks := make(map[int]struct{}, len(loans))
	for _, l := range loans {
		if _, ok := seenUsers[l.UserID]; !ok {
			seenUsers[l.UserID] = struct{}{}
			userIDs = append(userIDs, l.UserID)
		}
		if _, ok := seenBooks[l.BookID]; !ok {
			seenBooks[l.BookID] = struct{}{}
			bookIDs = append(bookIDs, l.BookID)
		}
	}
	return userIDs, bookIDs
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(model.DateLayout)
	return &s
}

// publish emits a loan event after commit. Failures are logged, the loan stands.
func (s *Service) publish(ctx context.Context, typ kafka.EventType, l model.Loan) {
	ev := kafka.LoanEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		LoanID:     l.ID,
		BookID:     l.BookID,
		UserID:     l.UserID,
		LoanDate:   l.LoanDate.Format(model.DateLayout),
		ReturnDate: formatDate(l.ReturnDate),
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Warn("publish loan event", zap.String("type", string(typ)), zap.Int("loan_id", l.ID), zap.Error(err))
	}
}
