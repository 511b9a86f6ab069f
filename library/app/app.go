package app

import (
	"context"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Astemirdum/library-loans/library/config"
	"github.com/Astemirdum/library-loans/library/internal/cache"
	"github.com/Astemirdum/library-loans/library/internal/events"
	"github.com/Astemirdum/library-loans/library/internal/handler"
	"github.com/Astemirdum/library-loans/library/internal/repository"
	"github.com/Astemirdum/library-loans/library/internal/server"
	"github.com/Astemirdum/library-loans/library/internal/service"
	"github.com/Astemirdum/library-loans/library/migrations"
	"github.com/Astemirdum/library-loans/pkg/auth"
	"github.com/Astemirdum/library-loans/pkg/blob"
	"github.com/Astemirdum/library-loans/pkg/circuit_breaker"
	"github.com/Astemirdum/library-loans/pkg/kafka"
	"github.com/Astemirdum/library-loans/pkg/logger"
	"github.com/Astemirdum/library-loans/pkg/metrics"
	"github.com/Astemirdum/library-loans/pkg/postgres"
)

type publisher interface {
	service.EventPublisher
	io.Closer
}

type bookCache interface {
	service.BookCache
	io.Closer
}

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "library")
	ctx := context.Background()

	db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		log.Fatal("repo", zap.Error(err))
	}
	store, err := blob.NewStore(cfg.Media)
	if err != nil {
		log.Fatal("blob.NewStore", zap.Error(err))
	}
	pub, err := newPublisher(cfg, log)
	if err != nil {
		log.Fatal("kafka.NewProducer", zap.Error(err))
	}
	books, err := newBookCache(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("cache.New", zap.Error(err))
	}

	maker := auth.NewMaker(cfg.Auth)
	m := metrics.New()
	svc := service.NewService(repo, log,
		service.WithBlobStore(store),
		service.WithPublisher(pub),
		service.WithBookCache(books),
		service.WithTokenIssuer(maker),
		service.WithLoanObserver(m),
	)
	if cfg.Admin.Username != "" {
		if err = svc.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			log.Fatal("ensure admin", zap.Error(err))
		}
	}

	h := handler.New(svc, maker, log,
		handler.WithMetrics(m),
		handler.WithMedia(store.Dir(), store.Prefix()),
		handler.WithBodyLimit(cfg.Server.BodyLimit),
	)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	if err = pub.Close(); err != nil {
		log.Error("publisher close", zap.Error(err))
	}
	if err = books.Close(); err != nil {
		log.Error("cache close", zap.Error(err))
	}
	db.Close()
	log.Info("Graceful shutdown finished")
}

func newPublisher(cfg *config.Config, log *zap.Logger) (publisher, error) {
	if !cfg.Kafka.Enable {
		return events.Nop{}, nil
	}
	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		return nil, err
	}
	return events.NewPublisher(producer, cfg.Kafka.Topic, circuit_breaker.New(cfg.Breaker), log), nil
}

func newBookCache(ctx context.Context, cfg config.Redis) (bookCache, error) {
	if !cfg.Enable {
		return cache.Nop{}, nil
	}
	return cache.New(ctx, cfg)
}
