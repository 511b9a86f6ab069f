package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loans/library/internal/repository"
	repo_mocks "github.com/Astemirdum/library-loans/library/internal/repository/mocks"
	"github.com/Astemirdum/library-loans/library/internal/service"
	service_mocks "github.com/Astemirdum/library-loans/library/internal/service/mocks"
)

var now = time.Date(2024, time.March, 20, 15, 4, 5, 0, time.UTC)

type deps struct {
	repo     *repo_mocks.MockRepository
	blob     *service_mocks.MockBlobStore
	pub      *service_mocks.MockEventPublisher
	cache    *service_mocks.MockBookCache
	tokens   *service_mocks.MockTokenIssuer
	observer *service_mocks.MockLoanObserver
}

func newService(t *testing.T) (*service.Service, deps) {
	t.Helper()
	c := gomock.NewController(t)
	d := deps{
		repo:     repo_mocks.NewMockRepository(c),
		blob:     service_mocks.NewMockBlobStore(c),
		pub:      service_mocks.NewMockEventPublisher(c),
		cache:    service_mocks.NewMockBookCache(c),
		tokens:   service_mocks.NewMockTokenIssuer(c),
		observer: service_mocks.NewMockLoanObserver(c),
	}
	svc := service.NewService(d.repo, zap.NewNop(),
		service.WithBlobStore(d.blob),
		service.WithPublisher(d.pub),
		service.WithBookCache(d.cache),
		service.WithTokenIssuer(d.tokens),
		service.WithLoanObserver(d.observer),
		service.WithClock(func() time.Time { return now }),
	)
	return svc, d
}

// expectTx runs the transaction body against the same mock.
func (d deps) expectTx() {
	d.repo.EXPECT().InTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, fn func(repository.Repository) error) error {
			return fn(d.repo)
		})
}

func ptr[T any](v T) *T { return &v }
