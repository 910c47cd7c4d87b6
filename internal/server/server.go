package server

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	adaptermiddleware "posadmin/internal/adapters/http/middleware"
	adapterlogger "posadmin/internal/adapters/logger"
	"posadmin/internal/adapters/metrics"
	"posadmin/internal/application"
	"posadmin/internal/config"
	"posadmin/internal/infrastructure/auth"
	"posadmin/internal/infrastructure/cache"
	"posadmin/internal/infrastructure/dynamodb"
	"posadmin/internal/infrastructure/postgres"
	"posadmin/internal/infrastructure/templatefile"
	httpiface "posadmin/internal/interfaces/http"
	"posadmin/internal/ports"
)

type repositories struct {
	permissions ports.PermissionRepository
	users       ports.UserRepository
	audit       ports.AuditRepository
}

// Server is a fully wired HTTP router plus the resources it holds open.
type Server struct {
	Echo    *echo.Echo
	closers []func() error
}

func (s *Server) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// New connects the configured backends and builds the router.
func New(ctx context.Context, cfg config.Config, logger *adapterlogger.SlogLogger) (*Server, error) {
	srv := &Server{}
	fail := func(err error) (*Server, error) {
		_ = srv.Close()
		return nil, err
	}

	repos, err := openRepositories(ctx, cfg, srv)
	if err != nil {
		return fail(err)
	}

	opts := []application.PermissionServiceOption{}
	if cfg.TemplatePath != "" {
		doc, err := templatefile.Load(cfg.TemplatePath)
		if err != nil {
			return fail(fmt.Errorf("load default template: %w", err))
		}
		opts = append(opts, application.WithTemplate(templatefile.Template(doc)))
		logger.Info(ctx, "default template loaded", "path", cfg.TemplatePath)
	}
	permissionCache, err := openCache(ctx, cfg, logger, srv)
	if err != nil {
		return fail(err)
	}
	if permissionCache != nil {
		opts = append(opts, application.WithCache(permissionCache))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	permSvc := application.NewPermissionService(repos.permissions, repos.audit, logger, opts...)
	authzSvc := application.NewAuthorizationService(repos.users, permSvc, m, logger)
	userSvc := application.NewUserService(repos.users, permSvc, repos.audit, logger)
	auditSvc := application.NewAuditService(repos.audit)

	var cognito echo.MiddlewareFunc
	if cfg.AuthMode == adaptermiddleware.ModeCognito {
		cognito = auth.NewCognitoMiddleware(cfg.UserPoolID, cfg.Region).Handler
	}
	authMiddleware, err := adaptermiddleware.AuthMiddleware(adaptermiddleware.AuthConfig{
		Mode:    cfg.AuthMode,
		APIKey:  cfg.APIKey,
		Cognito: cognito,
	})
	if err != nil {
		return fail(fmt.Errorf("initialize auth middleware: %w", err))
	}

	srv.Echo = httpiface.NewMainRouter(
		httpiface.Handlers{
			Permissions:    httpiface.NewPermissionsHandler(permSvc),
			Authorization:  httpiface.NewAuthorizationHandler(authzSvc),
			Users:          httpiface.NewUsersHandler(userSvc),
			Audit:          httpiface.NewAuditHandler(auditSvc),
			Authorizer:     authzSvc,
			MetricsHandler: m.Handler(),
		},
		httpiface.Middleware{
			Auth:          authMiddleware,
			XRay:          adaptermiddleware.XRayMiddleware("posadmin-http"),
			RequestLogger: adaptermiddleware.RequestLogger(logger),
			Metrics:       adaptermiddleware.RequestMetrics(m),
		},
	)
	return srv, nil
}

func openRepositories(ctx context.Context, cfg config.Config, srv *Server) (repositories, error) {
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return repositories{}, err
		}
		srv.closers = append(srv.closers, db.Close)
		if err := postgres.Migrate(ctx, db); err != nil {
			return repositories{}, err
		}
		return postgresRepositories(db), nil
	default:
		client, err := dynamodb.NewClient(ctx, cfg.Region, cfg.TableName)
		if err != nil {
			return repositories{}, fmt.Errorf("initialize dynamodb client: %w", err)
		}
		return repositories{
			permissions: dynamodb.NewPermissionRepository(client),
			users:       dynamodb.NewUserRepository(client),
			audit:       dynamodb.NewAuditRepository(client),
		}, nil
	}
}

func postgresRepositories(db *sql.DB) repositories {
	return repositories{
		permissions: postgres.NewPermissionRepository(db),
		users:       postgres.NewUserRepository(db),
		audit:       postgres.NewAuditRepository(db),
	}
}

func openCache(ctx context.Context, cfg config.Config, logger ports.Logger, srv *Server) (ports.PermissionCache, error) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		srv.closers = append(srv.closers, client.Close)
		return cache.NewRedisCache(client, cfg.CacheTTL, logger), nil
	case config.CacheMemory:
		return cache.NewMemoryCache(cfg.CacheSize, cfg.CacheTTL), nil
	default:
		return nil, nil
	}
}
