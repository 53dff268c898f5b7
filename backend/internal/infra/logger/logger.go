// Package logger 是 CMS 后台的全局 zap 日志。
// 每条记录都带 service 字段，各模块通过 Component 派生带 component 字段的子记录器，
// 例如 entry.service、entryform、table。
package logger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ServiceName 写入每条日志的 service 字段。
const ServiceName = "headless-cms"

var (
	globalLogger *zap.Logger
	once         sync.Once
)

// Rotation 是日志文件的滚动策略，单位与 lumberjack 一致（MB / 个 / 天）。
type Rotation struct {
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// Options 描述日志输出。
type Options struct {
	Level    string
	Encoding string // json 或 console，只影响文件输出
	FilePath string
	// Console 为 false 时不写标准输出，容器内只采集文件时使用。
	Console  bool
	Rotation Rotation
}

// DefaultOptions 返回未配置任何 LOG_* 变量时的选项。
func DefaultOptions() Options {
	return Options{
		Level:    "info",
		Encoding: "json",
		FilePath: filepath.Join("logs", ServiceName+".log"),
		Console:  true,
		Rotation: Rotation{MaxSize: 20, MaxBackups: 5, MaxAge: 15, Compress: true},
	}
}

// Init 按环境变量构建全局记录器，只执行一次。
func Init() (*zap.Logger, error) {
	var initErr error
	once.Do(func() {
		logger, err := buildLogger(loadOptionsFromEnv())
		if err != nil {
			initErr = err
			return
		}
		globalLogger = logger
	})
	if initErr != nil {
		return nil, initErr
	}
	if globalLogger == nil {
		return nil, errors.New("logger not initialized")
	}
	return globalLogger, nil
}

// L 返回全局 zap.Logger，未初始化时自动初始化。
func L() *zap.Logger {
	if globalLogger != nil {
		return globalLogger
	}
	logger, err := Init()
	if err != nil {
		panic(fmt.Sprintf("logger init failed: %v", err))
	}
	return logger
}

func S() *zap.SugaredLogger {
	return L().Sugar()
}

// Component 返回带 component 字段的 SugaredLogger，服务与处理器据此区分来源。
func Component(name string) *zap.SugaredLogger {
	return S().With("component", name)
}

// Sync 刷新缓冲区，进程退出前调用。
func Sync() {
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
}

// loadOptionsFromEnv 读取 LOG_LEVEL、LOG_ENCODING、LOG_FILE、LOG_CONSOLE 与 LOG_MAX_* 系列变量。
// 非法或非正的数值沿用默认值。
func loadOptionsFromEnv() Options {
	opts := DefaultOptions()
	if v := envValue("LOG_LEVEL"); v != "" {
		opts.Level = strings.ToLower(v)
	}
	if v := envValue("LOG_ENCODING"); v != "" {
		opts.Encoding = strings.ToLower(v)
	}
	if v := envValue("LOG_FILE"); v != "" {
		opts.FilePath = v
	}
	if v := envValue("LOG_CONSOLE"); v != "" {
		opts.Console = envBool(v)
	}
	opts.Rotation.MaxSize = envPositiveInt("LOG_MAX_SIZE", opts.Rotation.MaxSize)
	opts.Rotation.MaxBackups = envPositiveInt("LOG_MAX_BACKUPS", opts.Rotation.MaxBackups)
	opts.Rotation.MaxAge = envPositiveInt("LOG_MAX_AGE", opts.Rotation.MaxAge)
	if v := envValue("LOG_COMPRESS"); v != "" {
		opts.Rotation.Compress = envBool(v)
	}
	return opts
}

// buildLogger 组合文件与控制台两个 Core，两者都关闭时得到一个丢弃一切的记录器。
func buildLogger(opts Options) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(opts.Level); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339Nano)
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeDuration = zapcore.StringDurationEncoder

	var cores []zapcore.Core
	if opts.FilePath != "" {
		if dir := filepath.Dir(opts.FilePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("logger create dir: %w", err)
			}
		}
		writer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    opts.Rotation.MaxSize,
			MaxBackups: opts.Rotation.MaxBackups,
			MaxAge:     opts.Rotation.MaxAge,
			Compress:   opts.Rotation.Compress,
		})
		encoder := zapcore.NewJSONEncoder(encoderCfg)
		if opts.Encoding == "console" {
			encoder = zapcore.NewConsoleEncoder(encoderCfg)
		}
		cores = append(cores, zapcore.NewCore(encoder, writer, lvl))
	}
	if opts.Console {
		consoleCfg := encoderCfg
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(os.Stdout), lvl))
	}

	return zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service", ServiceName)),
	), nil
}

func envValue(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func envPositiveInt(key string, fallback int) int {
	parsed, err := strconv.Atoi(envValue(key))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
