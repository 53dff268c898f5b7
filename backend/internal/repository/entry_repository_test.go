package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"headless-cms/backend/internal/domain/content"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestEntryRepository(t *testing.T) *EntryRepository {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&content.Entry{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return NewEntryRepository(db)
}

func seedEntry(t *testing.T, repo *EntryRepository, id uint, locale string) *content.Entry {
	t.Helper()
	entry := &content.Entry{
		ID:           id,
		UUID:         fmt.Sprintf("uuid-%d", id),
		ProjectID:    1,
		CollectionID: 1,
		Locale:       locale,
		Status:       content.StatusDraft,
	}
	if err := entry.SetValues(map[string]any{"title": fmt.Sprintf("entry %d", id)}); err != nil {
		t.Fatalf("set values: %v", err)
	}
	if err := repo.Create(context.Background(), entry); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	return entry
}

func TestEntryRepositoryTrashRestoreDelete(t *testing.T) {
	repo := newTestEntryRepository(t)
	ctx := context.Background()
	seedEntry(t, repo, 1, "en")
	seedEntry(t, repo, 2, "en")

	if err := repo.SoftDelete(ctx, 1, 1); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, 1, 1); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("trashed entry should be hidden, got %v", err)
	}
	trashed, err := repo.FindAnyByID(ctx, 1, 1)
	if err != nil || !trashed.IsTrashed() {
		t.Fatalf("expected trashed entry, got %+v err=%v", trashed, err)
	}

	list, err := repo.List(ctx, EntryFilter{CollectionID: 1, OnlyTrashed: true})
	if err != nil || len(list) != 1 || list[0].ID != 1 {
		t.Fatalf("unexpected trash listing %+v err=%v", list, err)
	}

	count, err := repo.CountActiveByLocale(ctx, 1, "en", 0)
	if err != nil || count != 1 {
		t.Fatalf("expected 1 active entry, got %d err=%v", count, err)
	}

	if err := repo.Restore(ctx, 1, 1); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if err := repo.Restore(ctx, 1, 1); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("restoring a live entry should report not found, got %v", err)
	}

	if err := repo.HardDelete(ctx, 1, 2); err != nil {
		t.Fatalf("hard delete: %v", err)
	}
	if err := repo.HardDelete(ctx, 1, 2); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func TestEntryRepositoryTranslationGroup(t *testing.T) {
	repo := newTestEntryRepository(t)
	ctx := context.Background()
	seedEntry(t, repo, 1, "en")
	seedEntry(t, repo, 2, "fr")

	group := "group-1"
	for _, id := range []uint{1, 2} {
		if err := repo.SetTranslationGroup(ctx, id, &group); err != nil {
			t.Fatalf("set group: %v", err)
		}
	}
	list, err := repo.List(ctx, EntryFilter{CollectionID: 1, TranslationGroupID: group, Locale: "fr"})
	if err != nil || len(list) != 1 || list[0].ID != 2 {
		t.Fatalf("unexpected group listing %+v err=%v", list, err)
	}

	if err := repo.SetTranslationGroup(ctx, 2, nil); err != nil {
		t.Fatalf("clear group: %v", err)
	}
	entry, err := repo.FindByID(ctx, 1, 2)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if entry.TranslationGroupID != nil {
		t.Fatalf("expected group cleared, got %v", *entry.TranslationGroupID)
	}

	found, err := repo.FindByIDs(ctx, 1, []uint{1, 2, 99})
	if err != nil || len(found) != 2 {
		t.Fatalf("unexpected find by ids %+v err=%v", found, err)
	}
}
