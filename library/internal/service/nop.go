package service

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/Astemirdum/library-loans/library/internal/model"
	"github.com/Astemirdum/library-loans/pkg/kafka"
)

type nopBlob struct{}

func (nopBlob) Save(context.Context, string, io.Reader) (string, error) {
	return "", errors.New("blob store is not configured")
}

func (nopBlob) Delete(context.Context, string) error { return nil }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, kafka.LoanEvent) error { return nil }

type nopCache struct{}

func (nopCache) GetBooks(context.Context) ([]model.Book, int64, bool, error) {
	return nil, 0, false, nil
}

func (nopCache) SetBooks(context.Context, int64, []model.Book) error { return nil }

func (nopCache) Invalidate(context.Context) error { return nil }

type nopObserver struct{}

func (nopObserver) LoanObserved(string, error) {}
