package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
)

func TestLRUCache(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("SetAndGet", func(t *testing.T) {
		err := cache.Set(ctx, tenantID, "key1", []byte("value1"), time.Minute)
		if err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		val, err := cache.Get(ctx, tenantID, "key1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if string(val) != "value1" {
			t.Errorf("expected 'value1', got '%s'", string(val))
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		val, err := cache.Get(ctx, tenantID, "nonexistent")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil for cache miss, got: %v", val)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = cache.Set(ctx, tenantID, "key2", []byte("value2"), time.Minute)

		if err := cache.Delete(ctx, tenantID, "key2"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		val, _ := cache.Get(ctx, tenantID, "key2")
		if val != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		_ = cache.Set(ctx, tenantID, "expiring", []byte("temp"), 10*time.Millisecond)

		val, _ := cache.Get(ctx, tenantID, "expiring")
		if val == nil {
			t.Error("expected value before expiration")
		}

		time.Sleep(20 * time.Millisecond)

		val, _ = cache.Get(ctx, tenantID, "expiring")
		if val != nil {
			t.Error("expected nil after expiration")
		}
	})

	t.Run("ZeroTTLStoresNothing", func(t *testing.T) {
		_ = cache.Set(ctx, tenantID, "never", []byte("x"), 0)
		if val, _ := cache.Get(ctx, tenantID, "never"); val != nil {
			t.Error("expected nothing stored for zero TTL")
		}
	})

	t.Run("LRUEviction", func(t *testing.T) {
		smallCache := NewLRUCache(3)

		_ = smallCache.Set(ctx, tenantID, "a", []byte("1"), time.Minute)
		_ = smallCache.Set(ctx, tenantID, "b", []byte("2"), time.Minute)
		_ = smallCache.Set(ctx, tenantID, "c", []byte("3"), time.Minute)

		// Access 'a' to make it recently used
		_, _ = smallCache.Get(ctx, tenantID, "a")

		// Add 'd' - should evict 'b' (oldest accessed)
		_ = smallCache.Set(ctx, tenantID, "d", []byte("4"), time.Minute)

		val, _ := smallCache.Get(ctx, tenantID, "b")
		if val != nil {
			t.Error("expected 'b' to be evicted")
		}

		val, _ = smallCache.Get(ctx, tenantID, "a")
		if val == nil {
			t.Error("expected 'a' to still exist")
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		_ = cache.Set(ctx, "tenant-001", "shared-key", []byte("tenant1-value"), time.Minute)
		_ = cache.Set(ctx, "tenant-002", "shared-key", []byte("tenant2-value"), time.Minute)

		val1, _ := cache.Get(ctx, "tenant-001", "shared-key")
		val2, _ := cache.Get(ctx, "tenant-002", "shared-key")

		if string(val1) != "tenant1-value" {
			t.Errorf("expected 'tenant1-value', got '%s'", string(val1))
		}
		if string(val2) != "tenant2-value" {
			t.Errorf("expected 'tenant2-value', got '%s'", string(val2))
		}
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		if err := cache.Set(ctx, "", "key", []byte("value"), time.Minute); err == nil {
			t.Error("expected error for empty tenantID")
		}
		if _, err := cache.Get(ctx, "", "key"); err == nil {
			t.Error("expected error for empty tenantID")
		}
	})

	t.Run("Stats", func(t *testing.T) {
		statsCache := NewLRUCache(50)
		_ = statsCache.Set(ctx, tenantID, "k1", []byte("v1"), time.Minute)
		_ = statsCache.Set(ctx, tenantID, "k2", []byte("v2"), time.Minute)
		_, _ = statsCache.Get(ctx, tenantID, "k1")
		_, _ = statsCache.Get(ctx, tenantID, "missing")

		stats := statsCache.Stats()
		if stats.Size != 2 || stats.Capacity != 50 {
			t.Errorf("expected size 2 capacity 50, got %+v", stats)
		}
		if stats.Hits != 1 || stats.Misses != 1 {
			t.Errorf("expected 1 hit 1 miss, got %+v", stats)
		}
	})

	t.Run("Close", func(t *testing.T) {
		testCache := NewLRUCache(10)
		_ = testCache.Set(ctx, tenantID, "k", []byte("v"), time.Minute)

		if err := testCache.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}

		val, _ := testCache.Get(ctx, tenantID, "k")
		if val != nil {
			t.Error("expected cache to be cleared after close")
		}
	})
}

func TestNewCache(t *testing.T) {
	t.Run("MemoryType", func(t *testing.T) {
		cache, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 100})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer cache.Close()

		if _, ok := cache.(*LRUCache); !ok {
			t.Error("expected LRUCache for memory type")
		}
	})

	t.Run("NoneType", func(t *testing.T) {
		cache, err := New(domain.CacheConfig{Type: "none"})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		_ = cache.Set(context.Background(), "t", "k", []byte("v"), time.Minute)
		if val, _ := cache.Get(context.Background(), "t", "k"); val != nil {
			t.Error("expected noop cache to store nothing")
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		if _, err := New(domain.CacheConfig{Type: "memcached"}); err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}

func TestValueRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(10)

	days := 12.5
	in := []domain.RiskScore{{
		PositionRef:   domain.PositionRef{PositionID: "i1", WarehouseName: "Main"},
		DaysOfStock:   &days,
		StockoutScore: 40,
		Level:         domain.RiskMedium,
	}}

	if err := SetValue(ctx, c, "t1", "risk", in, time.Minute); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	var out []domain.RiskScore
	ok, err := GetValue(ctx, c, "t1", "risk", &out)
	if err != nil || !ok {
		t.Fatalf("GetValue: ok=%v err=%v", ok, err)
	}
	if len(out) != 1 || out[0].PositionID != "i1" || out[0].DaysOfStock == nil || *out[0].DaysOfStock != 12.5 {
		t.Errorf("value not round-tripped: %+v", out)
	}

	ok, err = GetValue(ctx, c, "t1", "missing", &out)
	if err != nil || ok {
		t.Errorf("expected clean miss, got ok=%v err=%v", ok, err)
	}
}

func TestRequestKey(t *testing.T) {
	type req struct {
		Search string `json:"search"`
	}

	a, err := RequestKey("risk", req{Search: "widget"})
	if err != nil {
		t.Fatalf("RequestKey failed: %v", err)
	}
	b, _ := RequestKey("risk", req{Search: "widget"})
	c, _ := RequestKey("risk", req{Search: "gadget"})
	d, _ := RequestKey("reorders", req{Search: "widget"})

	if a != b {
		t.Error("expected identical requests to share a key")
	}
	if a == c || a == d {
		t.Error("expected different requests to get different keys")
	}
	if !strings.HasPrefix(a, "risk:") {
		t.Errorf("expected op prefix, got %s", a)
	}
}

func TestRedisKeys(t *testing.T) {
	if got := redisKey("acme", "allocations:ab12"); got != "heron:{acme}:allocations:ab12" {
		t.Errorf("unexpected key %q", got)
	}

	tests := []struct {
		addr string
		want []string
	}{
		{"", []string{"localhost:6379"}},
		{"redis:6379", []string{"redis:6379"}},
		{"a:7000, b:7001,,c:7002", []string{"a:7000", "b:7001", "c:7002"}},
	}
	for _, tc := range tests {
		got := redisAddrs(tc.addr)
		if strings.Join(got, ",") != strings.Join(tc.want, ",") {
			t.Errorf("redisAddrs(%q) = %v, want %v", tc.addr, got, tc.want)
		}
	}
}

func TestRedisUnreachable(t *testing.T) {
	_, err := New(domain.CacheConfig{Type: "redis", RedisAddr: "127.0.0.1:1"})
	if err == nil {
		t.Fatal("expected error for unreachable redis")
	}
	if !strings.Contains(err.Error(), "127.0.0.1:1") {
		t.Errorf("expected address in error, got %v", err)
	}
}
