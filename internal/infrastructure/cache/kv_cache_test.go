package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"remedy/internal/infrastructure/persistence/relational/model"
)

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

func setupKVCache(t *testing.T) (*KVCache, *manualClock) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "cache.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(&model.KV{}); err != nil {
		t.Fatalf("auto migrate remediation_kv: %v", err)
	}

	clock := &manualClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	return NewKVCache(db, clock), clock
}

func TestKVCacheSetGetDelete(t *testing.T) {
	cache, _ := setupKVCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "job_status:job-1", "in_progress", 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, found, err := cache.Get(ctx, "job_status:job-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != "in_progress" {
		t.Fatalf("Get() = %q, found=%v", value, found)
	}

	if err := cache.Set(ctx, "job_status:job-1", "completed", 0); err != nil {
		t.Fatalf("Set(update) error = %v", err)
	}
	value, found, err = cache.Get(ctx, "job_status:job-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != "completed" {
		t.Fatalf("Get() after update = %q, found=%v", value, found)
	}

	if err := cache.Delete(ctx, "job_status:job-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	_, found, err = cache.Get(ctx, "job_status:job-1")
	if err != nil {
		t.Fatalf("Get() after delete error = %v", err)
	}
	if found {
		t.Fatalf("Get() expected found=false after delete")
	}
}

func TestKVCacheExpiresEntries(t *testing.T) {
	cache, clock := setupKVCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "job_progress:job-1", "40", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, found, err := cache.Get(ctx, "job_progress:job-1"); err != nil || !found {
		t.Fatalf("Get() before expiry found=%v err=%v", found, err)
	}

	clock.now = clock.now.Add(2 * time.Minute)
	if _, found, err := cache.Get(ctx, "job_progress:job-1"); err != nil || found {
		t.Fatalf("Get() after expiry found=%v err=%v", found, err)
	}
}

func TestKVCacheRejectsEmptyKey(t *testing.T) {
	cache, _ := setupKVCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, " ", "v", 0); err == nil {
		t.Fatalf("Set() expected error for empty key")
	}
	if _, _, err := cache.Get(ctx, ""); err == nil {
		t.Fatalf("Get() expected error for empty key")
	}
	if err := cache.Delete(ctx, ""); err == nil {
		t.Fatalf("Delete() expected error for empty key")
	}
}
