package formsession

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server, err := miniredis.Run()
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && (errors.Is(opErr.Err, syscall.EPERM) || errors.Is(opErr.Err, syscall.EACCES)) {
			t.Skipf("当前环境禁止监听端口: %v", err)
		}
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})
	return server, client
}

func TestRedisStoreRoundTripAndTTL(t *testing.T) {
	server, client := newRedis(t)
	store := NewRedisStore(client, WithPrefix("test:form:"), WithTTL(time.Minute))
	ctx := context.Background()

	if err := store.Save(ctx, 7, "tok", []byte(`{"token":"tok"}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := server.TTL("test:form:7:tok"); ttl != time.Minute {
		t.Fatalf("expected ttl 1m, got %v", ttl)
	}

	got, err := store.Load(ctx, 7, "tok")
	if err != nil || string(got) != `{"token":"tok"}` {
		t.Fatalf("load: %q %v", got, err)
	}
	if other, err := store.Load(ctx, 8, "tok"); err != nil || other != nil {
		t.Fatalf("sessions are scoped per user: %q %v", other, err)
	}

	server.FastForward(2 * time.Minute)
	if expired, err := store.Load(ctx, 7, "tok"); err != nil || expired != nil {
		t.Fatalf("expired session should be gone: %q %v", expired, err)
	}

	if err := store.Save(ctx, 7, "tok", []byte("x")); err != nil {
		t.Fatalf("save again: %v", err)
	}
	if err := store.Delete(ctx, 7, "tok"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if server.Exists("test:form:7:tok") {
		t.Fatalf("key should be deleted")
	}
	if err := store.Save(ctx, 7, " ", nil); err == nil {
		t.Fatalf("empty token should be rejected")
	}
}

func TestMemoryStoreExpires(t *testing.T) {
	store := NewMemoryStore(WithTTL(time.Minute))
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	payload := []byte("abc")
	if err := store.Save(ctx, 1, "tok", payload); err != nil {
		t.Fatalf("save: %v", err)
	}
	payload[0] = 'z'
	got, _ := store.Load(ctx, 1, "tok")
	if string(got) != "abc" {
		t.Fatalf("store must copy payloads, got %q", got)
	}

	now = now.Add(50 * time.Second)
	if got, _ := store.Load(ctx, 1, "tok"); got == nil {
		t.Fatalf("load should refresh expiry")
	}
	now = now.Add(50 * time.Second)
	if got, _ := store.Load(ctx, 1, "tok"); got == nil {
		t.Fatalf("session should still be alive after refresh")
	}
	now = now.Add(2 * time.Minute)
	if got, _ := store.Load(ctx, 1, "tok"); got != nil {
		t.Fatalf("session should expire")
	}
}
