package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestMemory_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(0, time.Minute)

	if _, ok, _ := c.Get(ctx, "missing"); ok {
		t.Fatal("empty cache reported a hit")
	}

	value := []byte(`{"threshold":100}`)
	if err := c.Set(ctx, "rule:t1:PURCHASE_REQUEST", value); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value[0] = 'X'

	got, ok, err := c.Get(ctx, "rule:t1:PURCHASE_REQUEST")
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if string(got) != `{"threshold":100}` {
		t.Errorf("cached value aliased caller's slice: %s", got)
	}

	if err := c.Delete(ctx, "rule:t1:PURCHASE_REQUEST", "never-set"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "rule:t1:PURCHASE_REQUEST"); ok {
		t.Error("deleted key still present")
	}
}

func TestMemory_EntriesExpire(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(8, 20*time.Millisecond)

	_ = c.Set(ctx, "k", []byte("v"))
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatal("fresh entry missing")
	}

	time.Sleep(60 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("entry survived its TTL")
	}
}

func TestMemory_EvictsOldestBeyondSize(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(2, time.Minute)

	_ = c.Set(ctx, "a", []byte("1"))
	_ = c.Set(ctx, "b", []byte("2"))
	_ = c.Set(ctx, "c", []byte("3"))

	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Error("oldest entry was not evicted")
	}
}

func TestRedis_UnreachableServerReportsError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	defer client.Close()
	c := NewRedis(client, time.Minute, WithNamespace("test"))

	if _, ok, err := c.Get(context.Background(), "k"); err == nil || ok {
		t.Errorf("Get = %v, %v; want miss with error", ok, err)
	}
	if err := c.Set(context.Background(), "k", []byte("v")); err == nil {
		t.Error("Set against an unreachable server succeeded")
	}
	if err := c.Delete(context.Background()); err != nil {
		t.Errorf("Delete with no keys = %v, want nil", err)
	}
}

func TestRedis_KeysAreNamespaced(t *testing.T) {
	c := NewRedis(redis.NewClient(&redis.Options{}), time.Minute, WithNamespace("acme"))
	if got := c.key("rule:t1:WORK_ORDER"); got != "acme:cache:rule:t1:WORK_ORDER" {
		t.Errorf("key() = %q", got)
	}

	def := NewRedis(redis.NewClient(&redis.Options{}), time.Minute, WithNamespace(""))
	if got := def.key("x"); got != "doclife:cache:x" {
		t.Errorf("default namespace key() = %q", got)
	}
}

func TestDialRedis_RejectsBadURL(t *testing.T) {
	if _, _, err := DialRedis(context.Background(), "not-a-url", time.Minute); err == nil {
		t.Error("DialRedis accepted an invalid URL")
	}
}

func TestNop_AlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c Nop
	if err := c.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, err := c.Get(ctx, "k"); ok || err != nil {
		t.Errorf("expected a miss, got ok=%v err=%v", ok, err)
	}
}
