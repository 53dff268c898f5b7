// Package app 负责按运行模式初始化数据库、Redis 等外部资源。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"headless-cms/backend/internal/config"
	"headless-cms/backend/internal/domain/content"
	"headless-cms/backend/internal/domain/project"
	"headless-cms/backend/internal/domain/schema"
	"headless-cms/backend/internal/domain/user"
	"headless-cms/backend/internal/infra/client"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Resources 汇总进程生命周期内共享的连接。Redis 为 nil 时各存储降级为内存实现。
type Resources struct {
	Config config.RuntimeFlags
	DB     *gorm.DB
	Redis  *redis.Client

	sqlDB *sql.DB
}

// Models 返回需要自动迁移的全部模型。
func Models() []any {
	return []any{
		&user.User{},
		&project.Project{},
		&project.Collection{},
		&schema.Field{},
		&content.Entry{},
	}
}

// InitResources 根据 APP_MODE 建立连接并完成表结构迁移。
// local 模式使用 SQLite 并保证本地用户存在；online 模式使用 MySQL，配置了 REDIS_ENDPOINT 时连接 Redis。
func InitResources(ctx context.Context) (*Resources, error) {
	flags := config.LoadRuntimeFlags()
	res := &Resources{Config: flags}

	if flags.IsLocal() {
		db, err := client.NewGORMSQLite(flags.Local.DBPath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		res.DB = db
	} else {
		mysqlCfg, err := client.LoadMySQLConfig()
		if err != nil {
			return nil, fmt.Errorf("load mysql config: %w", err)
		}
		db, sqlDB, err := client.NewGORMMySQL(ctx, mysqlCfg)
		if err != nil {
			return nil, fmt.Errorf("connect mysql: %w", err)
		}
		res.DB, res.sqlDB = db, sqlDB

		redisOpts, err := client.NewDefaultRedisOptions()
		switch {
		case errors.Is(err, client.ErrRedisNotConfigured):
		case err != nil:
			_ = res.Close()
			return nil, fmt.Errorf("load redis config: %w", err)
		default:
			rdb, err := client.NewRedisClient(ctx, redisOpts)
			if err != nil {
				_ = res.Close()
				return nil, fmt.Errorf("connect redis: %w", err)
			}
			res.Redis = rdb
		}
	}

	if res.sqlDB == nil {
		sqlDB, err := res.DB.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql db: %w", err)
		}
		res.sqlDB = sqlDB
	}

	if err := res.DB.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		_ = res.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	if flags.IsLocal() {
		if err := ensureLocalUser(ctx, res.DB, flags.Local); err != nil {
			_ = res.Close()
			return nil, err
		}
	}
	return res, nil
}

// ensureLocalUser 创建或同步本地模式的默认操作者。
func ensureLocalUser(ctx context.Context, db *gorm.DB, local config.LocalRuntime) error {
	var existing user.User
	err := db.WithContext(ctx).First(&existing, local.UserID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		u := user.User{ID: local.UserID, Username: local.Username, Email: local.Email, IsAdmin: local.IsAdmin}
		if err := db.WithContext(ctx).Create(&u).Error; err != nil {
			return fmt.Errorf("create local user: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("load local user: %w", err)
	}
	existing.Username = local.Username
	existing.Email = local.Email
	existing.IsAdmin = local.IsAdmin
	if err := db.WithContext(ctx).Save(&existing).Error; err != nil {
		return fmt.Errorf("update local user: %w", err)
	}
	return nil
}

// Close 释放数据库与 Redis 连接。
func (r *Resources) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if r.sqlDB != nil {
		if err := r.sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	return errors.Join(errs...)
}

// DBConn 返回 gorm 连接。
func (r *Resources) DBConn() *gorm.DB {
	if r == nil {
		return nil
	}
	return r.DB
}
