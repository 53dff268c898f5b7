package client

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"headless-cms/backend/internal/config"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := BuildMySQLDSN(MySQLConfig{Host: "db", Username: "cms", Password: "pw", Database: "content"})
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}
	if dsn != "cms:pw@tcp(db:3306)/content?"+defaultMySQLParams {
		t.Fatalf("unexpected dsn %s", dsn)
	}

	explicit := "user:pass@tcp(other:3307)/x"
	if dsn, _ := BuildMySQLDSN(MySQLConfig{DSN: explicit}); dsn != explicit {
		t.Fatalf("explicit dsn should win, got %s", dsn)
	}

	if _, err := BuildMySQLDSN(MySQLConfig{Username: "cms", Database: "content"}); err == nil {
		t.Fatalf("missing host should fail")
	}
}

func TestLoadMySQLConfigFromEnv(t *testing.T) {
	config.SetEnvFileLoadingForTest(false)
	t.Cleanup(func() { config.SetEnvFileLoadingForTest(true) })

	t.Setenv(envMySQLDSN, "")
	t.Setenv(envMySQLHost, "mysql.internal")
	t.Setenv(envMySQLPort, "3310")
	t.Setenv(envMySQLUsername, "cms")
	t.Setenv(envMySQLPassword, "pw")
	t.Setenv(envMySQLDatabase, "")
	t.Setenv(envMySQLParams, "")

	cfg, err := LoadMySQLConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 3310 || cfg.Database != defaultMySQLDatabase || cfg.Params != defaultMySQLParams {
		t.Fatalf("unexpected config %+v", cfg)
	}

	t.Setenv(envMySQLPort, "nope")
	if _, err := LoadMySQLConfig(); err == nil || !strings.Contains(err.Error(), envMySQLPort) {
		t.Fatalf("expected invalid port error, got %v", err)
	}
}

func TestRedisOptionsAndPing(t *testing.T) {
	config.SetEnvFileLoadingForTest(false)
	t.Cleanup(func() { config.SetEnvFileLoadingForTest(true) })

	t.Setenv(envRedisEndpoint, "")
	if _, err := NewDefaultRedisOptions(); !errors.Is(err, ErrRedisNotConfigured) {
		t.Fatalf("expected ErrRedisNotConfigured, got %v", err)
	}

	server, err := miniredis.Run()
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && (errors.Is(opErr.Err, syscall.EPERM) || errors.Is(opErr.Err, syscall.EACCES)) {
			t.Skipf("当前环境禁止监听端口: %v", err)
		}
		t.Fatalf("start miniredis: %v", err)
	}
	defer server.Close()

	t.Setenv(envRedisEndpoint, server.Addr())
	t.Setenv(envRedisDB, "2")
	opts, err := NewDefaultRedisOptions()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.DB != 2 || opts.Host == "" || opts.Port == 0 {
		t.Fatalf("unexpected options %+v", opts)
	}
	client, err := NewRedisClient(context.Background(), opts)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	_ = client.Close()
}

func TestNewGORMSQLiteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cms.db")
	db, err := NewGORMSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()
	if db.Dialector.Name() != "sqlite" {
		t.Fatalf("unexpected dialector %s", db.Dialector.Name())
	}
	if err := db.Exec("CREATE TABLE t (id INTEGER)").Error; err != nil {
		t.Fatalf("exec: %v", err)
	}
}
