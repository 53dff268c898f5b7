package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// ModeLocal 表示单机模式：SQLite + 内存会话，所有请求以本地用户身份执行。
	ModeLocal = "local"
	// ModeOnline 表示默认的在线模式：MySQL + Redis + JWT。
	ModeOnline = "online"

	defaultPort           = "9090"
	defaultLocalUserID    = 1
	defaultLocalUsername  = "local-admin"
	defaultLocalEmail     = "admin@localhost"
	defaultLocalDBRelPath = "data/cms-local.db"
	defaultFormSessionTTL = 45 * time.Minute
	defaultSchemaCacheTTL = 5 * time.Minute
	defaultBulkRateLimit  = 30
	defaultBulkRateWindow = time.Minute
)

// RuntimeFlags 汇总运行期所需的模式、端口、密钥与各组件参数。
type RuntimeFlags struct {
	Mode           string
	Port           string
	JWTSecret      string
	FormSessionTTL time.Duration
	SchemaCacheTTL time.Duration
	BulkRate       RateRule
	Local          LocalRuntime
}

// RateRule 描述一条固定窗口限流规则。
type RateRule struct {
	Limit  int
	Window time.Duration
}

// LocalRuntime 描述本地模式下需要的额外配置。
type LocalRuntime struct {
	DBPath   string
	UserID   uint
	Username string
	Email    string
	IsAdmin  bool
}

// IsLocal 判断是否为本地模式。
func (f RuntimeFlags) IsLocal() bool {
	return f.Mode == ModeLocal
}

// LoadRuntimeFlags 读取环境变量，推导当前运行模式及各项参数。
func LoadRuntimeFlags() RuntimeFlags {
	LoadEnvFiles()

	mode := strings.ToLower(strings.TrimSpace(os.Getenv("APP_MODE")))
	if mode != ModeLocal {
		mode = ModeOnline
	}

	local := LocalRuntime{
		DBPath:   defaultLocalDBPath(),
		UserID:   defaultLocalUserID,
		Username: defaultLocalUsername,
		Email:    defaultLocalEmail,
		IsAdmin:  true,
	}

	if rawPath := strings.TrimSpace(os.Getenv("LOCAL_SQLITE_PATH")); rawPath != "" {
		local.DBPath = normalisePath(rawPath)
	}
	if rawID := strings.TrimSpace(os.Getenv("LOCAL_USER_ID")); rawID != "" {
		if parsed, err := strconv.ParseUint(rawID, 10, 32); err == nil && parsed > 0 {
			local.UserID = uint(parsed)
		}
	}
	if rawName := strings.TrimSpace(os.Getenv("LOCAL_USER_USERNAME")); rawName != "" {
		local.Username = rawName
	}
	if rawEmail := strings.TrimSpace(os.Getenv("LOCAL_USER_EMAIL")); rawEmail != "" {
		local.Email = rawEmail
	}
	if rawAdmin := strings.TrimSpace(os.Getenv("LOCAL_USER_ADMIN")); rawAdmin != "" {
		if parsed, err := strconv.ParseBool(rawAdmin); err == nil {
			local.IsAdmin = parsed
		}
	}

	port := strings.TrimSpace(os.Getenv("SERVER_PORT"))
	if port == "" {
		port = defaultPort
	}

	return RuntimeFlags{
		Mode:           mode,
		Port:           port,
		JWTSecret:      strings.TrimSpace(os.Getenv("JWT_SECRET")),
		FormSessionTTL: durationEnv("FORM_SESSION_TTL", defaultFormSessionTTL),
		SchemaCacheTTL: durationEnv("SCHEMA_CACHE_TTL", defaultSchemaCacheTTL),
		BulkRate: RateRule{
			Limit:  intEnv("BULK_RATE_LIMIT", defaultBulkRateLimit),
			Window: durationEnv("BULK_RATE_WINDOW", defaultBulkRateWindow),
		},
		Local: local,
	}
}

// durationEnv 解析 time.ParseDuration 格式，纯数字按秒处理。
func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return fallback
		}
		return time.Duration(seconds) * time.Second
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// intEnv 解析整数，0 是合法值（表示关闭）。
func intEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

// defaultLocalDBPath 计算默认的本地数据库路径并返回绝对路径。
func defaultLocalDBPath() string {
	return normalisePath(defaultLocalDBRelPath)
}

// normalisePath 将路径展开为绝对路径，兼容 ~ 前缀与相对路径。
func normalisePath(raw string) string {
	if raw == "" {
		return raw
	}
	if strings.HasPrefix(raw, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			raw = filepath.Join(home, strings.TrimPrefix(raw, "~"))
		}
	}
	if filepath.IsAbs(raw) {
		return raw
	}
	if abs, err := filepath.Abs(raw); err == nil {
		return abs
	}
	return raw
}
