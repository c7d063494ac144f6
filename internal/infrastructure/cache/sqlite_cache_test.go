package cache

import (
	"context"
	"path/filepath"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"superlot/internal/infrastructure/persistence/sqlite/model"
)

func setupSQLiteCache(t *testing.T) *SQLiteCache {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "cache.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(&model.StatusKV{}); err != nil {
		t.Fatalf("auto migrate giveaway_kv: %v", err)
	}

	return NewSQLiteCache(db)
}

func TestSQLiteCacheSetGetDelete(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "winner_status:42", "PENDING", 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, found, err := cache.Get(ctx, "winner_status:42")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Fatal("Get() found = false, want true")
	}
	if value != "PENDING" {
		t.Fatalf("Get() = %q, want %q", value, "PENDING")
	}

	if err := cache.Set(ctx, "winner_status:42", "SENT", 0); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	value, _, err = cache.Get(ctx, "winner_status:42")
	if err != nil {
		t.Fatalf("Get() after overwrite error = %v", err)
	}
	if value != "SENT" {
		t.Fatalf("Get() after overwrite = %q, want %q", value, "SENT")
	}

	if err := cache.Delete(ctx, "winner_status:42"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	_, found, err = cache.Get(ctx, "winner_status:42")
	if err != nil {
		t.Fatalf("Get() after delete error = %v", err)
	}
	if found {
		t.Fatal("Get() found = true after delete")
	}
}

func TestSQLiteCacheMissingKey(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()

	_, found, err := cache.Get(ctx, "task_status:9999")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Fatal("Get() found = true for missing key")
	}
}

func TestSQLiteCacheRejectsEmptyKey(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "  ", "x", 0); err == nil {
		t.Fatal("Set() with blank key must fail")
	}
	if _, _, err := cache.Get(ctx, ""); err == nil {
		t.Fatal("Get() with empty key must fail")
	}
	if err := cache.Delete(ctx, ""); err == nil {
		t.Fatal("Delete() with empty key must fail")
	}
}
