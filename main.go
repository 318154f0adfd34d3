package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lexdraft/lexdraft/backend/go-services/handlers"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/auth"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/config"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/database"
	dochandler "github.com/lexdraft/lexdraft/backend/go-services/internal/document/handler"
	docrepo "github.com/lexdraft/lexdraft/backend/go-services/internal/document/repository"
	docservice "github.com/lexdraft/lexdraft/backend/go-services/internal/document/service"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/rbac"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/storage"
	tplhandler "github.com/lexdraft/lexdraft/backend/go-services/internal/template/handler"
	tplrepo "github.com/lexdraft/lexdraft/backend/go-services/internal/template/repository"
	tplservice "github.com/lexdraft/lexdraft/backend/go-services/internal/template/service"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/users"
	vhandler "github.com/lexdraft/lexdraft/backend/go-services/internal/version/handler"
	vrepo "github.com/lexdraft/lexdraft/backend/go-services/internal/version/repository"
	vservice "github.com/lexdraft/lexdraft/backend/go-services/internal/version/service"
	"github.com/lexdraft/lexdraft/backend/go-services/pkg/logger"
	"github.com/lexdraft/lexdraft/backend/go-services/pkg/metrics"
	"github.com/lexdraft/lexdraft/backend/go-services/pkg/middleware"
)

const mongoConnectAttempts = 5

func main() {
	// LOG_LEVEL is read again by config, but errors while loading it must be visible
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Server.LogLevel)
	logger.Infof("config loaded: versions=%s data=%s redis=%v minio=%v keycloak=%v",
		cfg.Store.Versions, cfg.Store.Data, cfg.Redis.Enabled(), cfg.MinIO.Enabled(), cfg.Keycloak.URL != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger.Named("http")), middleware.CORS(cfg.Server.CORSOrigins...))

	checks := map[string]handlers.Check{}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", cfg.Redis.Addr(), err)
		} else {
			logger.Infof("connected to Redis at %s", cfg.Redis.Addr())
		}
		defer func() { _ = redisClient.Close() }()
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	// runs after authentication so buckets are per subject
	var limit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis {
			limit = middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.Window)
		} else {
			limit = middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		}
		logger.Infof("rate limiter enabled: rps=%.1f burst=%d redis=%v", cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.UseRedis)
	}

	var mongoDB *mongo.Database
	if cfg.Store.Versions == config.BackendMongo || cfg.Store.Data == config.BackendMongo {
		client, err := database.ConnectMongoRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, mongoConnectAttempts)
		if err != nil {
			logger.Fatalf("mongo: %v", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		mongoDB = client.Database(cfg.MongoDB.Database)
		checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		logger.Infof("connected to MongoDB database %s", cfg.MongoDB.Database)
	}

	store, closeStore, err := openVersionStore(ctx, cfg, mongoDB, checks)
	if err != nil {
		logger.Fatalf("version store: %v", err)
	}
	defer closeStore()

	versionOpts := []vservice.Option{
		vservice.WithUnchangedSpans(cfg.Versioning.RecordUnchanged),
		vservice.WithConflictRetries(cfg.Versioning.ConflictRetries),
	}
	var presigner vhandler.Presigner
	if cfg.MinIO.Enabled() {
		archive, err := storage.NewSnapshotArchive(storage.Options{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			UseSSL:    cfg.MinIO.UseSSL,
			Bucket:    cfg.MinIO.Bucket,
			Region:    cfg.MinIO.Region,
		})
		if err != nil {
			logger.Fatalf("minio: %v", err)
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			logger.Warnf("snapshot archive disabled: %v", err)
		} else {
			versionOpts = append(versionOpts, vservice.WithArchive(archive))
			presigner = archive
			logger.Infof("archiving version snapshots to bucket %s", cfg.MinIO.Bucket)
		}
	}
	versionSvc := vservice.NewService(store, versionOpts...)

	var (
		documents docrepo.Repository   = docrepo.NewMemoryRepo()
		templates tplrepo.Repository   = tplrepo.NewMemoryRepo()
		userRepo  users.UserRepository = users.NewMemoryUserRepository()
	)
	if cfg.Store.Data == config.BackendMongo {
		if documents, err = docrepo.NewMongoRepo(ctx, mongoDB); err != nil {
			logger.Fatalf("documents repository: %v", err)
		}
		if templates, err = tplrepo.NewMongoRepo(ctx, mongoDB); err != nil {
			logger.Fatalf("templates repository: %v", err)
		}
		userRepo = users.NewMongoUserRepository(mongoDB.Collection("users"))
	}
	if redisClient != nil {
		userRepo = users.NewCachedUserRepository(userRepo, redisClient, cfg.Redis.RoleCacheTTL)
	}
	usersSvc := users.NewService(userRepo, cfg.RBAC.DefaultRole)
	docSvc := docservice.NewService(documents, versionSvc)
	tplSvc := tplservice.NewService(templates, docSvc)

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		logger.Fatalf("token verifier: %v", err)
	}
	var revocations *auth.RevocationList
	if redisClient != nil {
		revocations = auth.NewRevocationList(redisClient)
	}

	handlers.NewHealth(checks).Register(r)
	handlers.RegisterSwagger(r)
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := r.Group("/api/v1", limit)
	if !cfg.Server.Production() && cfg.JWT.Secret != "" {
		handlers.NewDevTokenHandler(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL).Register(public)
		logger.Warnf("development token endpoint enabled")
	}

	var revoked middleware.Revocations
	if revocations != nil {
		revoked = revocations
	}
	api := r.Group("/api/v1", middleware.AuthMiddleware(verifier, revoked), limit, rbac.Resolve(usersSvc))
	handlers.NewAuthHandler(usersSvc, revocations).Register(api)
	docH := dochandler.New(docSvc)
	docH.Register(api)
	vhandler.New(versionSvc, presigner,
		vhandler.WithAuthorizer(docH.Authorize),
		vhandler.WithCommitHook(docSvc.Sync),
	).Register(api)
	tplhandler.New(tplSvc).Register(api)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting document service on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

// openVersionStore picks the history backend and registers its readiness
// check. The returned func releases the connection.
func openVersionStore(ctx context.Context, cfg *config.Config, mongoDB *mongo.Database, checks map[string]handlers.Check) (vrepo.Store, func(), error) {
	switch cfg.Store.Versions {
	case config.BackendMongo:
		s, err := vrepo.NewMongoStore(ctx, mongoDB)
		return s, func() {}, err
	case config.BackendPostgres, config.BackendSQLite:
		db, err := database.ConnectSQL(ctx, cfg.SQL.Driver(), cfg.SQL.DSN, cfg.SQL.Timeout)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(db, cfg.SQL.Driver()); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		checks["versions"] = func(ctx context.Context) error { return db.PingContext(ctx) }
		logger.Infof("version history on %s", cfg.SQL.Driver())
		return vrepo.NewSQLStore(db), func() { closeDB(db) }, nil
	default:
		logger.Warnf("version history is kept in memory and lost on restart")
		return vrepo.NewMemoryStore(), func() {}, nil
	}
}

func closeDB(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Warnf("close sql: %v", err)
	}
}

// newVerifier prefers Keycloak, then the shared HS256 secret, then the
// unsigned verifier used by integration environments.
func newVerifier(ctx context.Context, cfg *config.Config) (middleware.Verifier, error) {
	switch {
	case cfg.Keycloak.URL != "":
		return auth.NewOIDCVerifier(ctx, cfg.Keycloak.Issuer(), cfg.Keycloak.ClientID)
	case cfg.JWT.Secret != "":
		return auth.NewHS256Verifier(cfg.JWT.Secret), nil
	case cfg.Keycloak.AllowInsecureToken:
		logger.Warnf("enabling insecure token verifier (integration mode)")
		return auth.NewInsecureVerifier(), nil
	}
	return nil, errors.New("no token verifier configured")
}
