package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loans/library/internal/errs"
	"github.com/Astemirdum/library-loans/library/internal/model"
	libraryRepo "github.com/Astemirdum/library-loans/library/internal/repository"
)

// ListBooks returns every active book, served from the cache when possible.
func (s *Service) ListBooks(ctx context.Context) ([]model.Book, error) {
	books, version, ok, cacheErr := s.cache.GetBooks(ctx)
	if cacheErr != nil {
		s.log.Warn("cache get books", zap.Error(cacheErr))
	}
	if ok {
		return books, nil
	}

	books, err := s.repo.ListActiveBooks(ctx)
	if err != nil {
		return nil, err
	}
	if cacheErr != nil {
		return books, nil
	}
	if err = s.cache.SetBooks(ctx, version, books); err != nil {
		s.log.Warn("cache set books", zap.Error(err))
	}
	return books, nil
}

func (s *Service) FindBooks(ctx context.Context, title string) ([]model.Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errs.Validation("book name parameter is required")
	}
	return s.repo.FindActiveBooks(ctx, title)
}

func (s *Service) CreateBook(ctx context.Context, req model.CreateBookRequest, image *model.Upload) (model.Book, error) {
	if !req.Type.Valid() {
		return model.Book{}, errs.Validation("type must be 1, 2 or 3")
	}
	ref, err := s.saveUpload(ctx, image)
	if err != nil {
		return model.Book{}, err
	}
	b, err := s.repo.CreateBook(ctx, model.Book{
		Title:         req.Title,
		Author:        req.Author,
		PublishedYear: req.PublishedYear,
		Type:          req.Type,
		ImageURL:      ref,
		Available:     true,
		IsActive:      true,
	})
	if err != nil {
		s.dropUpload(ctx, ref)
		return model.Book{}, errors.Wrap(err, "create book")
	}
	s.invalidateBooks(ctx)
	return b, nil
}

// UpdateBook changes catalog fields only. Availability belongs to the loan engine.
func (s *Service) UpdateBook(ctx context.Context, id int, patch model.BookPatch, image *model.Upload) (model.Book, error) {
	if patch.Type != nil && !patch.Type.Valid() {
		return model.Book{}, errs.Validation("type must be 1, 2 or 3")
	}
	ref, err := s.saveUpload(ctx, image)
	if err != nil {
		return model.Book{}, err
	}
	patch.ImageURL = ref

	var before, after model.Book
	err = s.repo.InTx(ctx, func(repo libraryRepo.Repository) error {
		if before, err = repo.LockBook(ctx, id); err != nil {
			return err
		}
		after, err = repo.UpdateBook(ctx, id, patch)
		return err
	})
	if err != nil {
		s.dropUpload(ctx, ref)
		return model.Book{}, errors.Wrap(err, "update book")
	}
	if ref != nil {
		s.dropUpload(ctx, before.ImageURL)
	}
	s.invalidateBooks(ctx)
	return after, nil
}

// DeactivateBook hides a book from the catalog. A book out on loan cannot be removed.
func (s *Service) DeactivateBook(ctx context.Context, id int) error {
	err := s.repo.InTx(ctx, func(repo libraryRepo.Repository) error {
		b, err := repo.LockBook(ctx, id)
		if err != nil {
			return err
		}
		if !b.Available {
			return errs.ErrBookOnLoan
		}
		return repo.SetBookActive(ctx, id, false)
	})
	if err != nil {
		return err
	}
	s.invalidateBooks(ctx)
	return nil
}

func (s *Service) ReactivateBook(ctx context.Context, id int) error {
	err := s.repo.InTx(ctx, func(repo libraryRepo.Repository) error {
		b, err := repo.LockBook(ctx, id)
		if err != nil {
			return err
		}
		if b.IsActive {
			return errs.ErrAlreadyActive
		}
		return repo.SetBookActive(ctx, id, true)
	})
	if err != nil {
		return err
	}
	s.invalidateBooks(ctx)
	return nil
}

func (s *Service) invalidateBooks(ctx context.Context) {
	if err := s.cache.Invalidate(context.WithoutCancel(ctx)); err != nil {
		s.log.Warn("cache invalidate books", zap.Error(err))
	}
}
