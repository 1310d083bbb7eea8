package inventory

import (
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/windingtree/wt-client/pkg/types"
)

func TestCacheGetPutInvalidate(t *testing.T) {
	c := NewCache(time.Minute)
	a := common.HexToAddress("0x02")
	b := common.HexToAddress("0x01")

	if _, ok := c.Get(a); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Put(&types.PropertySnapshot{Address: a, Name: "A"})
	c.Put(&types.PropertySnapshot{Address: b, Name: "B"})
	c.Put(nil)

	got, ok := c.Get(a)
	if !ok || got.Name != "A" {
		t.Fatalf("expected cached A, got %v %v", got, ok)
	}
	if addrs := c.Addresses(); len(addrs) != 2 || addrs[0] != b {
		t.Errorf("expected sorted addresses [b a], got %v", addrs)
	}

	c.Invalidate(a)
	if _, ok := c.Get(a); ok {
		t.Error("expected miss after invalidate")
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after clear, got %d", c.Len())
	}
}

func TestCacheExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCache(time.Minute)
	c.nowFunc = func() time.Time { return now }

	addr := common.HexToAddress("0x0a")
	c.Put(&types.PropertySnapshot{Address: addr})

	now = now.Add(30 * time.Second)
	if _, ok := c.Get(addr); !ok {
		t.Fatal("expected fresh entry")
	}

	now = now.Add(time.Minute)
	if _, ok := c.Get(addr); ok {
		t.Fatal("expected expired entry")
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entry to be dropped, got %d", c.Len())
	}
}

func TestCacheNoTTL(t *testing.T) {
	now := time.Now()
	c := NewCache(0)
	c.nowFunc = func() time.Time { return now }

	addr := common.HexToAddress("0x0b")
	c.Put(&types.PropertySnapshot{Address: addr})
	now = now.Add(24 * time.Hour)
	if _, ok := c.Get(addr); !ok {
		t.Fatal("entries without ttl should not expire")
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewCache(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			addr := common.BigToAddress(common.Big1)
			for j := 0; j < 100; j++ {
				c.Put(&types.PropertySnapshot{Address: addr})
				c.Get(addr)
				if j%10 == i%10 {
					c.Invalidate(addr)
				}
				c.Addresses()
			}
		}(i)
	}
	wg.Wait()
}
