package bootstrap

import (
	"context"
	"errors"
	"net/http"

	"headless-cms/backend/internal/app"
	"headless-cms/backend/internal/config"
	"headless-cms/backend/internal/handler"
	"headless-cms/backend/internal/infra/formsession"
	"headless-cms/backend/internal/infra/listsettings"
	"headless-cms/backend/internal/infra/ratelimit"
	"headless-cms/backend/internal/infra/schemacache"
	"headless-cms/backend/internal/infra/token"
	"headless-cms/backend/internal/middleware"
	"headless-cms/backend/internal/repository"
	"headless-cms/backend/internal/server"
	"headless-cms/backend/internal/service/contentlist"
	"headless-cms/backend/internal/service/entry"
	"headless-cms/backend/internal/service/entryform"
	"headless-cms/backend/internal/service/relation"
	"headless-cms/backend/internal/service/translation"

	"go.uber.org/zap"
)

// ErrMissingJWTSecret 表示 online 模式未配置 JWT_SECRET。
var ErrMissingJWTSecret = errors.New("JWT_SECRET is required in online mode")

type Application struct {
	Resources *app.Resources
	Entries   *entry.Service
	Schema    *schemacache.Cache
	Tables    *contentlist.Registry
	Tokens    *token.JWTManager
	Router    http.Handler
}

// Close 释放表格实例，连接由 Resources 负责关闭。
func (a *Application) Close() {
	if a != nil && a.Tables != nil {
		a.Tables.Close()
	}
}

func BuildApplication(ctx context.Context, logger *zap.SugaredLogger, resources *app.Resources) (*Application, error) {
	cfg := resources.Config
	db := resources.DBConn()

	projectRepo := repository.NewProjectRepository(db)
	fieldRepo := repository.NewFieldRepository(db)
	entryRepo := repository.NewEntryRepository(db)
	userRepo := repository.NewUserRepository(db)

	schemaCache := schemacache.New(fieldRepo, cfg.SchemaCacheTTL)
	entryService := entry.NewService(projectRepo, entryRepo, userRepo, schemaCache, logger.With("component", "entry.service"))
	engine := entryform.NewEngine(entryService, logger.With("component", "entryform"))
	linker := translation.NewLinker(entryService, logger.With("component", "translation"))
	resolver := relation.NewResolver(entryService, contentlist.RenderOptions{})

	var (
		sessionStore  entryform.SessionStore
		settingsStore contentlist.SettingsStore
		limiter       ratelimit.Limiter
	)
	if resources.Redis != nil {
		sessionStore = formsession.NewRedisStore(resources.Redis, formsession.WithTTL(cfg.FormSessionTTL))
		settingsStore = listsettings.NewRedisStore(resources.Redis, "")
		limiter = ratelimit.NewRedisLimiter(resources.Redis, "")
	} else {
		sessionStore = formsession.NewMemoryStore(formsession.WithTTL(cfg.FormSessionTTL))
		settingsStore = listsettings.NewMemoryStore()
		limiter = ratelimit.NewMemoryLimiter()
		logger.Infow("redis not configured; form sessions, table settings and rate limits are kept in memory")
	}

	authMW, tokens, err := buildAuth(cfg, logger)
	if err != nil {
		return nil, err
	}

	tables := contentlist.NewRegistry(contentlist.DefaultIdleTTL)
	bulkPolicy := ratelimit.Policy{Limit: cfg.BulkRate.Limit, Window: cfg.BulkRate.Window}

	router := server.NewRouter(server.RouterOptions{
		SchemaHandler:      handler.NewSchemaHandler(entryService),
		EntryHandler:       handler.NewEntryHandler(entryService, resolver),
		TranslationHandler: handler.NewTranslationHandler(linker),
		FormHandler:        handler.NewFormHandler(engine, entryform.NewSessions(sessionStore, engine), resolver),
		TableHandler:       handler.NewTableHandler(entryService, settingsStore, tables, handler.TableOptions{}),
		AuthMW:             authMW,
		BulkLimit:          middleware.RateLimit(limiter, bulkPolicy, "bulk", logger.With("component", "ratelimit")),
	})

	return &Application{
		Resources: resources,
		Entries:   entryService,
		Schema:    schemaCache,
		Tables:    tables,
		Tokens:    tokens,
		Router:    router,
	}, nil
}

// buildAuth 本地模式注入固定用户；online 模式校验 Bearer JWT。
func buildAuth(cfg config.RuntimeFlags, logger *zap.SugaredLogger) (middleware.Authenticator, *token.JWTManager, error) {
	if cfg.IsLocal() {
		logger.Infow("local mode: requests run as the local user", "user_id", cfg.Local.UserID)
		return middleware.NewLocalAuthMiddleware(cfg.Local.UserID, cfg.Local.IsAdmin), nil, nil
	}
	if cfg.JWTSecret == "" {
		return nil, nil, ErrMissingJWTSecret
	}
	tokens := token.NewJWTManager(cfg.JWTSecret, 0)
	return middleware.NewAuthMiddleware(tokens), tokens, nil
}
