package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jobfinder/apiserver/config"
	"github.com/jobfinder/apiserver/internal/db"
	"github.com/jobfinder/apiserver/internal/mq"
	"github.com/jobfinder/apiserver/internal/services"
	"github.com/jobfinder/apiserver/internal/storage"
	"github.com/jobfinder/apiserver/internal/store"
	"github.com/jobfinder/apiserver/internal/store/memstore"
	"github.com/jobfinder/apiserver/internal/store/mongostore"
)

// Repositories is the persistence backend selected by DB_DRIVER.
type Repositories struct {
	Users        services.UserRepository
	Companies    services.CompanyRepository
	Jobs         services.JobRepository
	Applications services.ApplicationRepository

	ping  func(ctx context.Context) error
	close func() error
}

// Ping checks that the backend is reachable.
func (r *Repositories) Ping(ctx context.Context) error {
	return r.ping(ctx)
}

// Close releases the backend connections.
func (r *Repositories) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

// OpenRepositories connects to the configured database backend.
func OpenRepositories(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Repositories, error) {
	switch cfg.Database.Driver {
	case "postgres":
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return postgresRepositories(conn), nil

	case "mongo":
		client, database, err := db.ConnectMongo(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		docs := mongostore.New(database)
		if err := docs.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.WithoutCancel(ctx))
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		return &Repositories{
			Users:        docs.Users(),
			Companies:    docs.Companies(),
			Jobs:         docs.Jobs(),
			Applications: docs.Applications(),
			ping:         docs.Ping,
			close:        func() error { return client.Disconnect(context.Background()) },
		}, nil

	case "memory":
		logger.Warn("using in-memory repositories; data is lost on exit")
		return MemoryRepositories(memstore.New()), nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
}

func postgresRepositories(conn *sql.DB) *Repositories {
	return &Repositories{
		Users:        store.NewUserRepository(conn),
		Companies:    store.NewCompanyRepository(conn),
		Jobs:         store.NewJobRepository(conn),
		Applications: store.NewApplicationRepository(conn),
		ping:         conn.PingContext,
		close:        conn.Close,
	}
}

// MemoryRepositories exposes an in-memory store as Repositories.
func MemoryRepositories(s *memstore.Store) *Repositories {
	return &Repositories{
		Users:        s.Users(),
		Companies:    s.Companies(),
		Jobs:         s.Jobs(),
		Applications: s.Applications(),
		ping:         s.Ping,
	}
}

// OpenStorage builds the object storage selected by STORAGE_DRIVER and
// makes sure its bucket exists. The returned closer is never nil.
func OpenStorage(ctx context.Context, cfg config.StorageConfig) (*storage.Storage, func() error, error) {
	noop := func() error { return nil }

	var (
		backend storage.ObjectStorage
		closer  = noop
	)
	switch cfg.Driver {
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, noop, fmt.Errorf("init minio: %w", err)
		}
		backend = client
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, noop, fmt.Errorf("init gcs: %w", err)
		}
		backend, closer = client, client.Close
	case "cloudinary":
		client, err := storage.NewCloudinaryClient(cfg.Cloudinary)
		if err != nil {
			return nil, noop, fmt.Errorf("init cloudinary: %w", err)
		}
		backend = client
	case "none", "":
		backend = storage.Disabled{}
	default:
		return nil, noop, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.Driver)
	}

	files := storage.NewStorage(backend)
	if err := files.EnsureBucket(ctx); err != nil {
		_ = closer()
		return nil, noop, fmt.Errorf("ensure bucket: %w", err)
	}
	return files, closer, nil
}

// ErrQueueDisabled is returned by OpenQueue when MQ_DRIVER is none.
var ErrQueueDisabled = errors.New("message queue disabled")

// OpenQueue connects to the broker selected by MQ_DRIVER.
func OpenQueue(ctx context.Context, cfg config.MQConfig) (*mq.MQ, error) {
	var (
		backend mq.Backend
		err     error
	)
	switch cfg.Driver {
	case "rabbitmq":
		backend, err = mq.NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		backend, err = mq.NewPubSubClient(ctx, cfg.PubSub)
	case "kafka":
		backend, err = mq.NewKafkaClient(cfg.Kafka)
	case "memory":
		backend = mq.NewMemoryBackend(0)
	case "none", "":
		return nil, ErrQueueDisabled
	default:
		return nil, fmt.Errorf("unsupported MQ_DRIVER %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", cfg.Driver, err)
	}
	return mq.New(backend), nil
}
