package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/eventhub/apiserver/config"
	"github.com/eventhub/apiserver/internal/authclient"
	"github.com/eventhub/apiserver/internal/db"
	"github.com/eventhub/apiserver/internal/docstore"
	"github.com/eventhub/apiserver/internal/handlers"
	"github.com/eventhub/apiserver/internal/metrics"
	"github.com/eventhub/apiserver/internal/mq"
	"github.com/eventhub/apiserver/internal/services"
	"github.com/eventhub/apiserver/internal/storage"
	"github.com/eventhub/apiserver/internal/store"
	"github.com/eventhub/apiserver/pkg/logger"
)

const metricsNamespace = "eventhub"

// Dependencies are the collaborators the HTTP API is built from. Images,
// Publisher, Revoker and Metrics are optional.
type Dependencies struct {
	Backend   docstore.Backend
	Images    *storage.Storage
	Publisher services.ChangePublisher
	Revoker   services.SessionRevoker
	Metrics   *metrics.Manager
	Log       logger.Logger
	JWTSecret string
	TokenTTL  time.Duration

	// Now overrides the aggregation clock. Nil means time.Now.
	Now func() time.Time
}

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	closers    []io.Closer
	log        logger.Logger
}

// New wires every backend named by cfg and constructs the Server.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	log := logger.Named("server")

	jwtSecret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("auth jwt secret is required")
	}

	m := metrics.New(metricsNamespace)
	s := &Server{log: log}

	backend, err := openDocstore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open docstore: %w", err)
	}
	s.closers = append(s.closers, backend)

	deps := Dependencies{
		Backend:   docstore.Instrument(backend, m),
		Metrics:   m,
		Log:       logger.Get(),
		JWTSecret: jwtSecret,
		TokenTTL:  cfg.Auth.TokenTTL,
	}

	bucket, err := openBucket(ctx, cfg.Storage)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if bucket != nil {
		if closer, ok := bucket.(io.Closer); ok {
			s.closers = append(s.closers, closer)
		}
		if err := bucket.EnsureBucket(ctx); err != nil {
			s.close()
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
		deps.Images = storage.NewStorage(bucket)
	}

	broker, err := OpenMQ(ctx, cfg.MQ)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("open mq: %w", err)
	}
	if broker != nil {
		s.closers = append(s.closers, broker)
		deps.Publisher = mq.NewChangePublisher(broker, cfg.MQ.Channel)
	}

	if url := strings.TrimSpace(cfg.Auth.RevokeURL); url != "" {
		deps.Revoker = authclient.New(url, nil)
	}

	router := NewRouter(deps)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.router = router
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	log.Info(ctx, "server configured",
		logger.Int("port", port),
		logger.String("docstore", cfg.Docstore.Driver),
		logger.String("storage", cfg.Storage.Driver),
		logger.String("mq", cfg.MQ.Driver),
	)
	return s, nil
}

// NewRouter builds the HTTP API over deps.
func NewRouter(deps Dependencies) *chi.Mux {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}

	events := store.NewEventRepository(deps.Backend)
	users := store.NewUserRepository(deps.Backend)
	eventTypes := store.NewEventTypeRepository(deps.Backend)
	skills := store.NewSkillRepository(deps.Backend)
	roleRepo := store.NewRoleAssignmentRepository(deps.Backend)
	accounts := store.NewAccountRepository(deps.Backend)

	aggOpts := []services.AggregationOption{
		services.WithAggregationLogger(log.Named("aggregation")),
	}
	if deps.Metrics != nil {
		aggOpts = append(aggOpts, services.WithAggregationObserver(deps.Metrics))
	}
	if deps.Now != nil {
		aggOpts = append(aggOpts, services.WithClock(deps.Now))
	}

	var images services.ImageStore
	if deps.Images != nil {
		images = deps.Images
	}

	aggregation := services.NewAggregationService(events, users, eventTypes, roleRepo, aggOpts...)
	eventService := services.NewEventService(events, users, eventTypes, roleRepo, images, deps.Publisher, log.Named("events"))
	profileService := services.NewProfileService(users, skills, images, deps.Publisher, log.Named("profiles"))
	authService := services.NewAuthService(accounts, users, deps.Revoker, deps.JWTSecret, deps.TokenTTL, log.Named("auth"))
	referenceService := services.NewReferenceService(eventTypes, skills)

	var httpObserver handlers.HTTPObserver
	if deps.Metrics != nil {
		httpObserver = deps.Metrics
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		handlers.RequestLogger(log.Named("http"), httpObserver),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	if deps.Metrics != nil {
		router.Handle("/metrics", deps.Metrics.Handler())
	}
	if deps.Images != nil {
		router.Get("/media/*", handlers.NewMediaHandler(deps.Images, log.Named("media")).Image)
	}

	reference := handlers.NewReferenceHandler(referenceService, log)
	router.Group(func(r chi.Router) {
		r.Use(handlers.WithSession(authService, log))
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, authService, log)
		})
		r.Route("/events", func(r chi.Router) {
			handlers.EventRouter(r, aggregation, eventService, log)
		})
		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, aggregation, profileService, log)
		})
		r.Get("/event-types", reference.EventTypes)
		r.Get("/skills", reference.Skills)
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests, then closes the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.close()
	return err
}

func (s *Server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			s.log.Warn(context.Background(), "close backend", logger.Error(err))
		}
	}
	s.closers = nil
}

func openDocstore(ctx context.Context, cfg config.Config) (docstore.Backend, error) {
	switch cfg.Docstore.Driver {
	case "postgres":
		conn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return docstore.NewPostgresBackend(conn), nil
	case "firestore":
		backend, err := docstore.NewFirestoreBackend(ctx, cfg.Firestore)
		if err != nil {
			return nil, err
		}
		return backend, nil
	case "memory":
		return docstore.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown docstore driver %q", cfg.Docstore.Driver)
	}
}

func openBucket(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStorage, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// OpenMQ connects to the configured broker, or returns nil when none is set.
func OpenMQ(ctx context.Context, cfg config.MQConfig) (*mq.Broker, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return mq.NewBroker(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return mq.NewBroker(client), nil
	default:
		return nil, fmt.Errorf("unknown mq driver %q", cfg.Driver)
	}
}
