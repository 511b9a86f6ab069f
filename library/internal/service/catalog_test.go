package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loans/library/config"
	"github.com/Astemirdum/library-loans/library/internal/cache"
	"github.com/Astemirdum/library-loans/library/internal/errs"
	"github.com/Astemirdum/library-loans/library/internal/model"
	"github.com/Astemirdum/library-loans/library/internal/repository"
	repo_mocks "github.com/Astemirdum/library-loans/library/internal/repository/mocks"
	"github.com/Astemirdum/library-loans/library/internal/service"
)

func TestService_ListBooks(t *testing.T) {
	t.Parallel()
	books := []model.Book{longBook, expressBook}

	t.Run("cache hit", func(t *testing.T) {
		t.Parallel()
		svc, d := newService(t)
		d.cache.EXPECT().GetBooks(gomock.Any()).Return(books, int64(0), true, nil)

		got, err := svc.ListBooks(context.Background())
		require.NoError(t, err)
		require.Equal(t, books, got)
	})
	t.Run("cache miss fills cache", func(t *testing.T) {
		t.Parallel()
		svc, d := newService(t)
		d.cache.EXPECT().GetBooks(gomock.Any()).Return(nil, int64(3), false, nil)
		d.repo.EXPECT().ListActiveBooks(gomock.Any()).Return(books, nil)
		d.cache.EXPECT().SetBooks(gomock.Any(), int64(3), books).Return(nil)

		got, err := svc.ListBooks(context.Background())
		require.NoError(t, err)
		require.Equal(t, books, got)
	})
	t.Run("cache error falls back to storage", func(t *testing.T) {
		t.Parallel()
		svc, d := newService(t)
		d.cache.EXPECT().GetBooks(gomock.Any()).Return(nil, int64(0), false, errors.New("redis down"))
		d.repo.EXPECT().ListActiveBooks(gomock.Any()).Return(books, nil)

		got, err := svc.ListBooks(context.Background())
		require.NoError(t, err)
		require.Equal(t, books, got)
	})
}

func TestService_FindBooks(t *testing.T) {
	t.Parallel()
	svc, d := newService(t)

	_, err := svc.FindBooks(context.Background(), "")
	require.ErrorIs(t, err, errs.ErrValidation)

	d.repo.EXPECT().FindActiveBooks(gomock.Any(), "war").Return([]model.Book{longBook}, nil)
	got, err := svc.FindBooks(context.Background(), " war ")
	require.NoError(t, err)
	require.Equal(t, []model.Book{longBook}, got)
}

func TestService_CreateBook(t *testing.T) {
	t.Parallel()
	req := model.CreateBookRequest{Title: "Dune", Author: "Herbert", Type: model.BookTypeShort}

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		svc, d := newService(t)
		d.blob.EXPECT().Save(gomock.Any(), "dune.jpg", gomock.Any()).Return("/media/d.jpg", nil)
		d.repo.EXPECT().CreateBook(gomock.Any(), model.Book{
			Title: "Dune", Author: "Herbert", Type: model.BookTypeShort,
			ImageURL: ptr("/media/d.jpg"), Available: true, IsActive: true,
		}).Return(model.Book{ID: 5, Title: "Dune"}, nil)
		d.cache.EXPECT().Invalidate(gomock.Any()).Return(nil)

		got, err := svc.CreateBook(context.Background(), req, &model.Upload{Filename: "dune.jpg", Content: strings.NewReader("jpg")})
		require.NoError(t, err)
		require.Equal(t, 5, got.ID)
	})
	t.Run("err. storage drops image", func(t *testing.T) {
		t.Parallel()
		svc, d := newService(t)
		d.blob.EXPECT().Save(gomock.Any(), "dune.jpg", gomock.Any()).Return("/media/d.jpg", nil)
		d.repo.EXPECT().CreateBook(gomock.Any(), gomock.Any()).Return(model.Book{}, errors.New("db"))
		d.blob.EXPECT().Delete(gomock.Any(), "/media/d.jpg").Return(nil)

		_, err := svc.CreateBook(context.Background(), req, &model.Upload{Filename: "dune.jpg", Content: strings.NewReader("jpg")})
		require.Error(t, err)
	})
	t.Run("err. bad type", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		bad := req
		bad.Type = 4
		_, err := svc.CreateBook(context.Background(), bad, nil)
		require.ErrorIs(t, err, errs.ErrValidation)
	})
}

func TestService_UpdateBook(t *testing.T) {
	t.Parallel()
	svc, d := newService(t)
	old := longBook
	old.ImageURL = ptr("/media/old.png")
	updated := old
	updated.Title = "Anna Karenina"
	updated.ImageURL = ptr("/media/new.png")

	d.blob.EXPECT().Save(gomock.Any(), "new.png", gomock.Any()).Return("/media/new.png", nil)
	d.expectTx()
	d.repo.EXPECT().LockBook(gomock.Any(), 10).Return(old, nil)
	d.repo.EXPECT().UpdateBook(gomock.Any(), 10, model.BookPatch{
		Title:    ptr("Anna Karenina"),
		ImageURL: ptr("/media/new.png"),
	}).Return(updated, nil)
	d.blob.EXPECT().Delete(gomock.Any(), "/media/old.png").Return(nil)
	d.cache.EXPECT().Invalidate(gomock.Any()).Return(nil)

	got, err := svc.UpdateBook(context.Background(), 10, model.BookPatch{Title: ptr("Anna Karenina")},
		&model.Upload{Filename: "new.png", Content: strings.NewReader("png")})
	require.NoError(t, err)
	require.Equal(t, updated, got)
}

func TestService_DeactivateBook(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		mockBehavior func(d deps)
		wantErr      error
	}{
		{
			name: "ok",
			mockBehavior: func(d deps) {
				d.expectTx()
				b := longBook
				b.Available = true
				d.repo.EXPECT().LockBook(gomock.Any(), 10).Return(b, nil)
				d.repo.EXPECT().SetBookActive(gomock.Any(), 10, false).Return(nil)
				d.cache.EXPECT().Invalidate(gomock.Any()).Return(nil)
			},
		},
		{
			name: "err. on loan",
			mockBehavior: func(d deps) {
				d.expectTx()
				b := longBook
				b.Available = false
				d.repo.EXPECT().LockBook(gomock.Any(), 10).Return(b, nil)
			},
			wantErr: errs.ErrBookOnLoan,
		},
		{
			name: "err. not found",
			mockBehavior: func(d deps) {
				d.expectTx()
				d.repo.EXPECT().LockBook(gomock.Any(), 10).Return(model.Book{}, errs.ErrNotFound)
			},
			wantErr: errs.ErrNotFound,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, d := newService(t)
			tt.mockBehavior(d)

			err := svc.DeactivateBook(context.Background(), 10)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestService_ReactivateBook(t *testing.T) {
	t.Parallel()
	t.Run("err. already active", func(t *testing.T) {
		t.Parallel()
		svc, d := newService(t)
		d.expectTx()
		d.repo.EXPECT().LockBook(gomock.Any(), 10).Return(longBook, nil)

		require.ErrorIs(t, svc.ReactivateBook(context.Background(), 10), errs.ErrAlreadyActive)
	})
	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		svc, d := newService(t)
		b := longBook
		b.IsActive = false
		d.expectTx()
		d.repo.EXPECT().LockBook(gomock.Any(), 10).Return(b, nil)
		d.repo.EXPECT().SetBookActive(gomock.Any(), 10, true).Return(nil)
		d.cache.EXPECT().Invalidate(gomock.Any()).Return(nil)

		require.NoError(t, svc.ReactivateBook(context.Background(), 10))
	})
}

func TestService_ListBooksRacingLoan(t *testing.T) {
	t.Parallel()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	books, err := cache.New(context.Background(), config.Redis{Addr: mr.Addr(), TTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = books.Close() })

	c := gomock.NewController(t)
	repo := repo_mocks.NewMockRepository(c)
	svc := service.NewService(repo, zap.NewNop(),
		service.WithBookCache(books),
		service.WithClock(func() time.Time { return now }),
	)

	stale := model.Book{ID: 1, Title: "War and Peace", Type: model.BookTypeLong, Available: true, IsActive: true}
	repo.EXPECT().ListActiveBooks(gomock.Any()).
		DoAndReturn(func(ctx context.Context) ([]model.Book, error) {
			// the book is lent after the listing was read but before it is cached
			repo.EXPECT().InTx(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, fn func(repository.Repository) error) error {
					return fn(repo)
				})
			repo.EXPECT().LockUser(gomock.Any(), 2, repository.ForShare).Return(model.User{ID: 2, IsActive: true}, nil)
			repo.EXPECT().ReserveBook(gomock.Any(), 1).Return(model.Book{ID: 1}, nil)
			repo.EXPECT().CreateLoan(gomock.Any(), 1, 2, today).Return(model.Loan{ID: 10, BookID: 1, UserID: 2, LoanDate: today}, nil)
			_, err := svc.StartLoan(ctx, 1, 2)
			require.NoError(t, err)
			return []model.Book{stale}, nil
		})

	got, err := svc.ListBooks(context.Background())
	require.NoError(t, err)
	require.Equal(t, []model.Book{stale}, got)

	_, _, hit, err := books.GetBooks(context.Background())
	require.NoError(t, err)
	require.False(t, hit)

	lent := stale
	lent.Available = false
	repo.EXPECT().ListActiveBooks(gomock.Any()).Return([]model.Book{lent}, nil)
	got, err = svc.ListBooks(context.Background())
	require.NoError(t, err)
	require.Equal(t, []model.Book{lent}, got)

	cached, _, hit, err := books.GetBooks(context.Background())
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, []model.Book{lent}, cached)
}
