package cache

import (
	"context"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/MrSnakeDoc/cloudesk/internal/logger"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"), logger.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSetGetAndDirtyBit(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	fixed := time.UnixMilli(1_700_000_000_000)
	c.now = func() time.Time { return fixed }

	if _, ok := c.Get(ctx, "user-desktop"); ok {
		t.Fatal("Get() on empty cache returned a value")
	}
	if c.HasDirtyData(ctx) {
		t.Fatal("empty cache reported dirty")
	}

	c.Set(ctx, "user-desktop", []byte(`{"a":1}`), true)

	rec, ok := c.GetRecord(ctx, "user-desktop")
	if !ok {
		t.Fatal("GetRecord() missed")
	}
	if string(rec.Value) != `{"a":1}` || !rec.IsDirty || !rec.UpdatedAt.Equal(fixed) {
		t.Errorf("record = %+v", rec)
	}
	if !c.HasDirtyData(ctx) || !c.IsDirty(ctx, "user-desktop") {
		t.Error("record should be dirty")
	}

	c.MarkClean(ctx, "user-desktop")
	if c.HasDirtyData(ctx) || c.IsDirty(ctx, "user-desktop") {
		t.Error("record should be clean after MarkClean")
	}
	if v, _ := c.Get(ctx, "user-desktop"); string(v) != `{"a":1}` {
		t.Errorf("MarkClean changed value to %s", v)
	}
}

func TestSetOverwrites(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("one"), true)
	c.Set(ctx, "k", []byte("two"), false)

	rec, _ := c.GetRecord(ctx, "k")
	if string(rec.Value) != "two" || rec.IsDirty {
		t.Errorf("record = %+v", rec)
	}
}

func TestMarkCleanMissingKey(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	c.MarkClean(ctx, "ghost")
	if _, ok := c.Get(ctx, "ghost"); ok {
		t.Error("MarkClean must not create records")
	}
}

func TestDirtyKeysDeleteClear(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "user-files", []byte("{}"), true)
	c.Set(ctx, "user-desktop", []byte("{}"), true)
	c.Set(ctx, "other", []byte("{}"), false)

	if got := c.DirtyKeys(ctx); !slices.Equal(got, []string{"user-desktop", "user-files"}) {
		t.Errorf("DirtyKeys() = %v", got)
	}

	c.Delete(ctx, "user-files")
	if c.IsDirty(ctx, "user-files") {
		t.Error("deleted key still dirty")
	}

	c.Clear(ctx)
	if c.HasDirtyData(ctx) {
		t.Error("Clear() left dirty records")
	}
	if _, ok := c.Get(ctx, "other"); ok {
		t.Error("Clear() left records")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	c, err := Open(path, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	c.Set(ctx, "user-desktop", []byte(`{"updatedAt":1}`), true)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	c, err = Open(path, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()
	rec, ok := c.GetRecord(ctx, "user-desktop")
	if !ok || !rec.IsDirty || string(rec.Value) != `{"updatedAt":1}` {
		t.Errorf("after reopen: %+v, %v", rec, ok)
	}
}

func TestClosedCacheSwallowsErrors(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	_ = c.Close()

	// none of these may panic or block
	c.Set(ctx, "k", []byte("v"), true)
	c.MarkClean(ctx, "k")
	if c.HasDirtyData(ctx) {
		t.Error("closed cache reported dirty data")
	}
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("closed cache returned data")
	}
}
