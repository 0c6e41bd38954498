package app

import (
	"context"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adpadillar/software-architecture-library/lending/config"
	"github.com/adpadillar/software-architecture-library/lending/internal/handler"
	"github.com/adpadillar/software-architecture-library/lending/internal/queue"
	"github.com/adpadillar/software-architecture-library/lending/internal/repository"
	"github.com/adpadillar/software-architecture-library/lending/internal/server"
	"github.com/adpadillar/software-architecture-library/lending/internal/service"
	"github.com/adpadillar/software-architecture-library/lending/migrations"
	"github.com/adpadillar/software-architecture-library/pkg/kafka"
	"github.com/adpadillar/software-architecture-library/pkg/logger"
	"github.com/adpadillar/software-architecture-library/pkg/postgres"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "lending")
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	defer db.Close()

	tx := repository.NewTransactor(db, log)
	repo := service.Repository{
		Catalog: repository.NewCatalog(db, tx, log),
		Ledger:  repository.NewLedger(db, log),
		Users:   repository.NewUsers(db, log),
		Tx:      tx,
	}
	opts := []service.Option{service.WithPolicy(cfg.Policy)}

	var publisher *queue.Publisher
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			log.Fatal("kafka.NewProducer", zap.Error(err))
		}
		publisher = queue.NewPublisher(producer, log)
		opts = append(opts, service.WithEventPublisher(publisher))
	} else {
		log.Warn("KAFKA_ADDRS is empty, loan events are not published")
	}
	svc := service.NewService(repo, log, opts...)

	h := handler.New(svc, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server start ON: ",
			zap.String("addr", net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
		return errors.Wrap(srv.Run(), "server run")
	})
	if cfg.Kafka.Enabled() {
		consumer, err := kafka.NewConsumer(cfg.Kafka, kafka.ReturnsConsumerGroup)
		if err != nil {
			log.Fatal("kafka.NewConsumer", zap.Error(err))
		}
		g.Go(func() error {
			return kafka.Consume(gctx, consumer, handler.NewConsumer(svc.ReturnResource, log), kafka.ReturnsTopic)
		})
		g.Go(func() error {
			<-gctx.Done()
			return consumer.Close()
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Debug("Graceful shutdown")

		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Stop(closeCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("lending stopped", zap.Error(err))
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Warn("publisher close", zap.Error(err))
		}
	}
	log.Info("Graceful shutdown finished")
}
