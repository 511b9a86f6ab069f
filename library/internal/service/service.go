package service

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/Astemirdum/library-loans/library/internal/model"
	libraryRepo "github.com/Astemirdum/library-loans/library/internal/repository"
	"github.com/Astemirdum/library-loans/pkg/auth"
	"github.com/Astemirdum/library-loans/pkg/kafka"
	"github.com/Astemirdum/library-loans/pkg/password"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type BlobStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, ev kafka.LoanEvent) error
}

// BookCache holds the public listing of active books. GetBooks reports the
// cache version alongside a miss; SetBooks with that version is dropped when
// Invalidate ran in between.
type BookCache interface {
	GetBooks(ctx context.Context) (books []model.Book, version int64, ok bool, err error)
	SetBooks(ctx context.Context, version int64, books []model.Book) error
	Invalidate(ctx context.Context) error
}

type TokenIssuer interface {
	GenerateToken(p auth.Principal) (string, time.Time, error)
}

type LoanObserver interface {
	LoanObserved(action string, err error)
}

type Service struct {
	log       *zap.Logger
	repo      libraryRepo.Repository
	blob      BlobStore
	publisher EventPublisher
	cache     BookCache
	tokens    TokenIssuer
	observer  LoanObserver
	now       func() time.Time

	checkPassword func(hash, pass string) error
}

type Option func(*Service)

func WithBlobStore(b BlobStore) Option {
	return func(s *Service) { s.blob = b }
}

func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithBookCache(c BookCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithTokenIssuer(t TokenIssuer) Option {
	return func(s *Service) { s.tokens = t }
}

func WithLoanObserver(o LoanObserver) Option {
	return func(s *Service) { s.observer = o }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo libraryRepo.Repository, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		log:       log.Named("service"),
		repo:      repo,
		blob:      nopBlob{},
		publisher: nopPublisher{},
		cache:     nopCache{},
		observer:  nopObserver{},
		now:       time.Now,

		checkPassword: password.CompareHash,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// today is the current calendar date in UTC.
func (s *Service) today() time.Time {
	return dateOf(s.now())
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
