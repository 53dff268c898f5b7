package server

import (
	"fmt"
	"strings"
	"time"

	"headless-cms/backend/internal/handler"
	"headless-cms/backend/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	SchemaHandler      *handler.SchemaHandler
	EntryHandler       *handler.EntryHandler
	TranslationHandler *handler.TranslationHandler
	FormHandler        *handler.FormHandler
	TableHandler       *handler.TableHandler
	AuthMW             middleware.Authenticator
	// BulkLimit 挂在批量操作接口上，为空时不限流。
	BulkLimit gin.HandlerFunc
}

// NewRouter 构建应用的 Gin Engine，汇总所有 REST 接口与公共中间件配置。
func NewRouter(opts RouterOptions) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  false,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "Retry-After", "X-RateLimit-Remaining"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
		AllowOriginFunc: func(origin string) bool {
			if origin == "" {
				return false
			}
			return strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")
		},
	}))
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: gin.LogFormatter(func(params gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s\" %d %s\n",
				params.ClientIP,
				params.TimeStamp.Format(time.RFC3339),
				params.Method,
				params.Path,
				params.StatusCode,
				params.Latency,
			)
		}),
	}))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })

	api := r.Group("/api")
	if opts.AuthMW != nil {
		api.Use(opts.AuthMW.Handle())
	}

	if opts.SchemaHandler != nil {
		api.GET("/projects/:pid/collections", opts.SchemaHandler.Collections)
	}

	// 集合级路由：/api/projects/:pid/collections/:cid/...
	coll := api.Group("/projects/:pid/collections/:cid")
	if opts.SchemaHandler != nil {
		coll.GET("/fields", opts.SchemaHandler.Fields)
	}

	// 批量操作按需挂载限流
	bulk := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if opts.BulkLimit == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{opts.BulkLimit, h}
	}

	if opts.EntryHandler != nil {
		entries := coll.Group("/entries")
		entries.GET("", opts.EntryHandler.Search)
		entries.POST("", opts.EntryHandler.Create)
		entries.POST("/bulk", bulk(opts.EntryHandler.Bulk)...)
		entries.POST("/lookup", opts.EntryHandler.Lookup)
		entries.GET("/:id", opts.EntryHandler.Get)
		entries.PUT("/:id", opts.EntryHandler.Update)
		entries.DELETE("/:id", opts.EntryHandler.Trash)
		entries.DELETE("/:id/force", opts.EntryHandler.Delete)
		entries.POST("/:id/restore", opts.EntryHandler.Restore)
		entries.POST("/:id/duplicate", opts.EntryHandler.Duplicate)

		if opts.TranslationHandler != nil {
			entries.GET("/:id/translations", opts.TranslationHandler.List)
			entries.POST("/:id/translations", opts.TranslationHandler.Link)
			entries.DELETE("/:id/translations", opts.TranslationHandler.Unlink)
			entries.GET("/:id/translations/:locale/candidates", opts.TranslationHandler.Candidates)
		}
	}

	if opts.TableHandler != nil {
		coll.GET("/table/:page", opts.TableHandler.Get)
		coll.PATCH("/table/:page", opts.TableHandler.Apply)
		coll.DELETE("/table/:page", opts.TableHandler.Close)
		coll.POST("/table/:page/bulk", bulk(opts.TableHandler.Bulk)...)
	}

	if opts.FormHandler != nil {
		coll.POST("/forms", opts.FormHandler.Open)

		forms := api.Group("/forms/:token")
		forms.GET("", opts.FormHandler.Get)
		forms.PATCH("/fields/:field", opts.FormHandler.ChangeField)
		forms.GET("/relations/:field", opts.FormHandler.Relation)
		forms.PUT("/relations/:field", opts.FormHandler.ReorderRelation)
		forms.PUT("/locale", opts.FormHandler.SetLocale)
		forms.POST("/submit", opts.FormHandler.Submit)
		forms.POST("/actions/:action", opts.FormHandler.Action)
		forms.DELETE("", opts.FormHandler.Close)
	}

	return r
}
