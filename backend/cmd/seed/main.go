package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"headless-cms/backend/internal/app"
	"headless-cms/backend/internal/config"
	"headless-cms/backend/internal/domain/project"
	"headless-cms/backend/internal/domain/schema"
	"headless-cms/backend/internal/domain/user"
	"headless-cms/backend/internal/infra/logger"
	"headless-cms/backend/internal/infra/schemacache"
	"headless-cms/backend/internal/infra/token"
	"headless-cms/backend/internal/repository"
	"headless-cms/backend/internal/service/entry"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	outputPath = flag.String("output", "", "本地模式下生成的 SQLite 文件路径")
	localMode  = flag.Bool("local", true, "使用本地 SQLite，关闭时按 APP_MODE=online 连接 MySQL")
	password   = flag.String("password", "admin123", "演示管理员的密码，用于批量彻底删除的二次确认")
	tokenTTL   = flag.Duration("token-ttl", 12*time.Hour, "打印的访问令牌有效期，需要配置 JWT_SECRET")
)

// main 写入演示项目、集合、字段与内容，并在配置了 JWT_SECRET 时打印管理员的访问令牌。
func main() {
	flag.Parse()

	if *localMode {
		mustSetenv("APP_MODE", config.ModeLocal)
		if *outputPath != "" {
			mustSetenv("LOCAL_SQLITE_PATH", strings.TrimSpace(*outputPath))
		}
	}

	zapLogger, err := logger.Init()
	if err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}
	defer logger.Sync()
	sugar := zapLogger.Sugar().With("component", "seed")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resources, err := app.InitResources(ctx)
	if err != nil {
		sugar.Fatalw("initialise resources failed", "error", err)
	}
	defer func() {
		if closeErr := resources.Close(); closeErr != nil {
			sugar.Warnw("close resources failed", "error", closeErr)
		}
	}()

	admin, err := ensureAdmin(ctx, resources, *password)
	if err != nil {
		sugar.Fatalw("prepare admin failed", "error", err)
	}

	proj, err := seedDemo(ctx, resources.DBConn(), admin, sugar)
	if err != nil {
		sugar.Fatalw("seed demo content failed", "error", err)
	}
	sugar.Infow("demo content ready", "project_id", proj.ID, "admin_id", admin.ID, "mode", resources.Config.Mode)

	if secret := resources.Config.JWTSecret; secret != "" {
		raw, expires, err := token.NewJWTManager(secret, *tokenTTL).Issue(admin, user.AllCapabilities())
		if err != nil {
			sugar.Fatalw("issue token failed", "error", err)
		}
		fmt.Printf("Authorization: Bearer %s\n(expires %s)\n", raw, expires.Format(time.RFC3339))
	}
}

// ensureAdmin 本地模式复用本地用户，online 模式创建或复用 admin，并写入密码哈希。
func ensureAdmin(ctx context.Context, resources *app.Resources, plain string) (*user.User, error) {
	users := repository.NewUserRepository(resources.DBConn())
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var existing *user.User
	if resources.Config.IsLocal() {
		existing, err = users.FindByID(ctx, resources.Config.Local.UserID)
	} else {
		existing, err = users.FindByUsername(ctx, "admin")
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		admin := &user.User{Username: "admin", Email: "admin@example.com", PasswordHash: string(hash), IsAdmin: true}
		if err := users.Create(ctx, admin); err != nil {
			return nil, fmt.Errorf("create admin: %w", err)
		}
		return admin, nil
	case err != nil:
		return nil, fmt.Errorf("load admin: %w", err)
	}
	existing.PasswordHash = string(hash)
	if err := users.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("update admin: %w", err)
	}
	return existing, nil
}

func seedDemo(ctx context.Context, db *gorm.DB, admin *user.User, sugar *zap.SugaredLogger) (*project.Project, error) {
	projects := repository.NewProjectRepository(db)
	fields := repository.NewFieldRepository(db)

	proj := &project.Project{Name: "Demo site", DefaultLocale: "en"}
	if err := proj.SetLocales([]string{"en", "fr"}); err != nil {
		return nil, err
	}
	if err := projects.CreateProject(ctx, proj); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	posts := &project.Collection{ProjectID: proj.ID, Name: "Posts", Slug: "posts"}
	settings := &project.Collection{ProjectID: proj.ID, Name: "Site settings", Slug: "site-settings", IsSingleton: true}
	for _, c := range []*project.Collection{posts, settings} {
		if err := projects.CreateCollection(ctx, c); err != nil {
			return nil, fmt.Errorf("create collection %s: %w", c.Slug, err)
		}
	}

	postFields := []*schema.Field{
		{CollectionID: posts.ID, Name: "title", Label: "Title", Type: schema.TypeText, Order: 1,
			Validations: schema.Validations{Required: &schema.Rule{Status: true}}},
		{CollectionID: posts.ID, Name: "slug", Label: "Slug", Type: schema.TypeSlug, Order: 2,
			Options:     schema.Options{Slug: &schema.SlugOptions{Field: "title"}},
			Validations: schema.Validations{Unique: &schema.Rule{Status: true}}},
		{CollectionID: posts.ID, Name: "category", Label: "Category", Type: schema.TypeEnumeration, Order: 3,
			Options: schema.Options{Enumeration: &schema.EnumerationOptions{List: []string{"news", "guide"}}}},
		{CollectionID: posts.ID, Name: "body", Label: "Body", Type: schema.TypeRichText, Order: 4},
		{CollectionID: posts.ID, Name: "featured", Label: "Featured", Type: schema.TypeBoolean, Order: 5},
		{CollectionID: posts.ID, Name: "related", Label: "Related posts", Type: schema.TypeRelation, Order: 6,
			Options: schema.Options{Relation: &schema.RelationOptions{Collection: posts.ID}}},
		{CollectionID: settings.ID, Name: "site_name", Label: "Site name", Type: schema.TypeText, Order: 1,
			Validations: schema.Validations{Required: &schema.Rule{Status: true}}},
	}
	for _, f := range postFields {
		if err := fields.Create(ctx, f); err != nil {
			return nil, fmt.Errorf("create field %s: %w", f.Name, err)
		}
	}

	svc := entry.NewService(projects, repository.NewEntryRepository(db), repository.NewUserRepository(db), schemacache.New(fields, 0), sugar)
	actor := entry.Actor{UserID: admin.ID, Caps: user.AllCapabilities()}
	postScope := entry.Scope{ProjectID: proj.ID, CollectionID: posts.ID}

	first, err := svc.Create(ctx, postScope, actor, entry.SaveInput{
		Status: "published",
		Data:   map[string]any{"title": "Hello world", "slug": "hello-world", "category": "news", "body": "<p>First post.</p>", "featured": true},
	})
	if err != nil {
		return nil, fmt.Errorf("create first post: %w", err)
	}
	second, err := svc.Create(ctx, postScope, actor, entry.SaveInput{
		Data: map[string]any{"title": "Getting started", "slug": "getting-started", "category": "guide", "related": []any{first.ID}},
	})
	if err != nil {
		return nil, fmt.Errorf("create second post: %w", err)
	}
	french, err := svc.Create(ctx, postScope, actor, entry.SaveInput{
		Locale: "fr",
		Data:   map[string]any{"title": "Bonjour le monde", "slug": "bonjour-le-monde", "category": "news"},
	})
	if err != nil {
		return nil, fmt.Errorf("create french post: %w", err)
	}
	if _, err := svc.LinkTranslation(ctx, postScope, actor, first.ID, french.ID); err != nil {
		return nil, fmt.Errorf("link translation: %w", err)
	}
	if _, err := svc.Create(ctx, entry.Scope{ProjectID: proj.ID, CollectionID: settings.ID}, actor, entry.SaveInput{
		Data: map[string]any{"site_name": "Demo site"},
	}); err != nil {
		return nil, fmt.Errorf("create settings: %w", err)
	}

	sugar.Infow("seeded posts", "ids", []uint{first.ID, second.ID, french.ID})
	return proj, nil
}

func mustSetenv(key, value string) {
	if err := os.Setenv(key, value); err != nil {
		panic(fmt.Sprintf("set %s failed: %v", key, err))
	}
}
