package entryform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"headless-cms/backend/internal/domain/content"
	"headless-cms/backend/internal/domain/project"
	"headless-cms/backend/internal/domain/schema"
	"headless-cms/backend/internal/domain/user"
	"headless-cms/backend/internal/repository"
	"headless-cms/backend/internal/service/entry"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type harness struct {
	engine *Engine
	svc    *entry.Service
	scope  entry.Scope
	admin  entry.Actor
}

func newHarness(t *testing.T) *harness {
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
	if err := db.AutoMigrate(&user.User{}, &project.Project{}, &project.Collection{}, &schema.Field{}, &content.Entry{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	ctx := context.Background()
	projects := repository.NewProjectRepository(db)
	fields := repository.NewFieldRepository(db)
	proj := &project.Project{Name: "Site", DefaultLocale: "en"}
	if err := proj.SetLocales([]string{"en", "fr"}); err != nil {
		t.Fatalf("set locales: %v", err)
	}
	if err := projects.CreateProject(ctx, proj); err != nil {
		t.Fatalf("create project: %v", err)
	}
	posts := &project.Collection{ProjectID: proj.ID, Name: "Posts", Slug: "posts"}
	if err := projects.CreateCollection(ctx, posts); err != nil {
		t.Fatalf("create collection: %v", err)
	}
	for _, f := range []*schema.Field{
		{CollectionID: posts.ID, Name: "title", Label: "Title", Type: schema.TypeText, Order: 1,
			Validations: schema.Validations{Required: &schema.Rule{Status: true}}},
		{CollectionID: posts.ID, Name: "slug", Label: "Slug", Type: schema.TypeSlug, Order: 2,
			Options: schema.Options{Slug: &schema.SlugOptions{Field: "title"}}},
		{CollectionID: posts.ID, Name: "cover", Type: schema.TypeMedia, Order: 3},
	} {
		if err := fields.Create(ctx, f); err != nil {
			t.Fatalf("create field: %v", err)
		}
	}

	source := entry.SchemaSourceFunc(func(ctx context.Context, collectionID uint) ([]schema.Field, error) {
		flat, err := fields.ListByCollection(ctx, collectionID)
		if err != nil {
			return nil, err
		}
		return schema.Organize(flat), nil
	})
	svc := entry.NewService(projects, repository.NewEntryRepository(db), repository.NewUserRepository(db), source, nil)
	return &harness{
		engine: NewEngine(svc, nil),
		svc:    svc,
		scope:  entry.Scope{ProjectID: proj.ID, CollectionID: posts.ID},
		admin:  entry.Actor{UserID: 1, Caps: user.AllCapabilities()},
	}
}

func TestSubmitEmptyTitleKeepsFormOpen(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	form, err := h.engine.Open(ctx, h.scope, 0, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if form.Locale != "en" || form.State["title"] != "" || form.State["slug"] != "" {
		t.Fatalf("new form should hold defaults: %+v", form)
	}
	before := form.State.Clone()

	out, err := h.engine.Submit(ctx, form, h.admin, ActionStay, content.StatusDraft)
	var verr *entry.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if out.Navigation != NavigateNone || out.Errors["title"] == "" || form.Errors["title"] == "" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if !form.IsNew() || form.Processing {
		t.Fatalf("form should stay open and idle: %+v", form)
	}
	if fmt.Sprint(before) != fmt.Sprint(form.State) {
		t.Fatalf("failed submit must not change form values")
	}
}

func TestSubmitNavigation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	form, err := h.engine.Open(ctx, h.scope, 0, "fr")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := form.ApplyFieldChange("title", "Bonjour le monde", nil); err != nil {
		t.Fatalf("apply: %v", err)
	}

	out, err := h.engine.Submit(ctx, form, h.admin, ActionStay, content.StatusDraft)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.Navigation != NavigateEdit || out.EntryID == 0 || form.EntryID != out.EntryID {
		t.Fatalf("new entry with stay should switch to edit mode: %+v", out)
	}
	saved, err := h.svc.Get(ctx, h.scope, out.EntryID)
	if err != nil || saved.Locale != "fr" || saved.Values()["slug"] != "bonjour-le-monde" {
		t.Fatalf("unexpected saved entry %+v %v", saved, err)
	}

	out, err = h.engine.Submit(ctx, form, h.admin, ActionStay, content.StatusPublished)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if out.Navigation != NavigateReload || form.Status != content.StatusPublished {
		t.Fatalf("existing entry with stay should reload: %+v", out)
	}

	out, err = h.engine.Submit(ctx, form, h.admin, ActionNew, "")
	if err != nil {
		t.Fatalf("submit new: %v", err)
	}
	if !out.ScrollTop || !form.IsNew() || form.State["title"] != "" || form.Locale != "fr" {
		t.Fatalf("new action should reset to defaults: %+v %+v", out, form.State)
	}

	if _, err := form.ApplyFieldChange("title", "Second", nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	out, err = h.engine.Submit(ctx, form, h.admin, ActionClose, "")
	if err != nil || out.Navigation != NavigateListing {
		t.Fatalf("close should go to listing: %+v %v", out, err)
	}
}

func TestEntryActionsRequireConfirmationAndCapability(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	form, _ := h.engine.Open(ctx, h.scope, 0, "")
	if _, err := h.engine.Trash(ctx, form, h.admin, true); !errors.Is(err, ErrNotSaved) {
		t.Fatalf("unsaved entry cannot be trashed, got %v", err)
	}
	form.ApplyFieldChange("title", "Hello", nil)
	if _, err := h.engine.Submit(ctx, form, h.admin, ActionStay, content.StatusPublished); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := h.engine.Unpublish(ctx, form, h.admin, false); !errors.Is(err, entry.ErrConfirmationRequired) {
		t.Fatalf("expected confirmation required, got %v", err)
	}
	viewer := entry.Actor{UserID: 2, Caps: user.Capabilities{UpdateContent: true}}
	if _, err := h.engine.Trash(ctx, form, viewer, true); !errors.Is(err, entry.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	out, err := h.engine.Unpublish(ctx, form, h.admin, true)
	if err != nil || out.Navigation != NavigateNone || form.Status != content.StatusDraft {
		t.Fatalf("unpublish: %+v %v", out, err)
	}

	out, err = h.engine.Duplicate(ctx, form, h.admin, true)
	if err != nil || out.Navigation != NavigateEdit || out.EntryID == form.EntryID {
		t.Fatalf("duplicate: %+v %v", out, err)
	}

	out, err = h.engine.Trash(ctx, form, h.admin, true)
	if err != nil || out.Navigation != NavigateListing {
		t.Fatalf("trash: %+v %v", out, err)
	}
	out, err = h.engine.Delete(ctx, form, h.admin, true)
	if err != nil || out.Navigation != NavigateListing {
		t.Fatalf("delete trashed entry: %+v %v", out, err)
	}
	out, err = h.engine.Delete(ctx, form, h.admin, true)
	if !errors.Is(err, entry.ErrEntryNotFound) || out.Notice == "" || form.Processing {
		t.Fatalf("deleting twice should surface not found: %+v %v", out, err)
	}
}

type memorySessions struct {
	data map[string][]byte
}

func (m *memorySessions) Save(_ context.Context, userID uint, token string, payload []byte) error {
	m.data[fmt.Sprintf("%d:%s", userID, token)] = payload
	return nil
}

func (m *memorySessions) Load(_ context.Context, userID uint, token string) ([]byte, error) {
	return m.data[fmt.Sprintf("%d:%s", userID, token)], nil
}

func (m *memorySessions) Delete(_ context.Context, userID uint, token string) error {
	delete(m.data, fmt.Sprintf("%d:%s", userID, token))
	return nil
}

func TestSessionsRestoreCanonicalShapes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sessions := NewSessions(&memorySessions{data: map[string][]byte{}}, h.engine)

	form, _ := h.engine.Open(ctx, h.scope, 0, "")
	form.ApplyFieldChange("cover", map[string]any{"id": 9}, nil)
	if err := sessions.Save(ctx, 1, form); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := sessions.Load(ctx, 1, form.Token)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cover, ok := loaded.State["cover"].([]any)
	if !ok || len(cover) != 1 || cover[0] != int64(9) {
		t.Fatalf("media ids should be restored as int64, got %#v", loaded.State["cover"])
	}
	if len(loaded.Fields) != 3 || loaded.Fields[1].SlugSource() != "title" {
		t.Fatalf("fields should survive the round trip: %+v", loaded.Fields)
	}
	if _, err := sessions.Load(ctx, 2, form.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("sessions are per user, got %v", err)
	}
}
