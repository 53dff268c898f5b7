package entry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"headless-cms/backend/internal/domain/content"
	"headless-cms/backend/internal/domain/project"
	"headless-cms/backend/internal/domain/schema"
	"headless-cms/backend/internal/domain/user"
	"headless-cms/backend/internal/repository"
	"headless-cms/backend/internal/service/contentlist"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	svc        *Service
	db         *gorm.DB
	scope      Scope
	singleton  Scope
	admin      Actor
	editorUser *user.User
}

func intPtr(v int) *int { return &v }

func newFixture(t *testing.T) *fixture {
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
	fieldsRepo := repository.NewFieldRepository(db)
	users := repository.NewUserRepository(db)

	proj := &project.Project{Name: "Site", DefaultLocale: "en"}
	if err := proj.SetLocales([]string{"en", "fr", "de"}); err != nil {
		t.Fatalf("set locales: %v", err)
	}
	if err := projects.CreateProject(ctx, proj); err != nil {
		t.Fatalf("create project: %v", err)
	}
	posts := &project.Collection{ProjectID: proj.ID, Name: "Posts", Slug: "posts"}
	settings := &project.Collection{ProjectID: proj.ID, Name: "Settings", Slug: "settings", IsSingleton: true}
	for _, c := range []*project.Collection{posts, settings} {
		if err := projects.CreateCollection(ctx, c); err != nil {
			t.Fatalf("create collection: %v", err)
		}
	}

	fields := []*schema.Field{
		{CollectionID: posts.ID, Name: "title", Label: "Title", Type: schema.TypeText, Order: 1,
			Validations: schema.Validations{
				Required:  &schema.Rule{Status: true},
				CharCount: &schema.CharCountRule{Status: true, Type: schema.CharCountMax, Max: intPtr(20)},
			}},
		{CollectionID: posts.ID, Name: "slug", Label: "Slug", Type: schema.TypeSlug, Order: 2,
			Options:     schema.Options{Slug: &schema.SlugOptions{Field: "title"}},
			Validations: schema.Validations{Unique: &schema.Rule{Status: true}}},
		{CollectionID: posts.ID, Name: "category", Type: schema.TypeEnumeration, Order: 3,
			Options: schema.Options{Enumeration: &schema.EnumerationOptions{List: []string{"news", "blog"}}}},
		{CollectionID: posts.ID, Name: "cover", Type: schema.TypeMedia, Order: 4},
		{CollectionID: posts.ID, Name: "views", Type: schema.TypeNumber, Order: 5},
		{CollectionID: posts.ID, Name: "seo", Type: schema.TypeGroup, Order: 6},
		{CollectionID: settings.ID, Name: "site_name", Type: schema.TypeText, Order: 1},
	}
	for _, f := range fields {
		if err := fieldsRepo.Create(ctx, f); err != nil {
			t.Fatalf("create field: %v", err)
		}
	}
	seoID := fields[5].ID
	child := &schema.Field{CollectionID: posts.ID, Name: "meta_title", Type: schema.TypeText, Order: 1, ParentFieldID: &seoID,
		Validations: schema.Validations{Required: &schema.Rule{Status: true, Message: "Meta title please"}}}
	if err := fieldsRepo.Create(ctx, child); err != nil {
		t.Fatalf("create child field: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	admin := &user.User{Username: "admin", Email: "admin@example.com", PasswordHash: string(hash), IsAdmin: true}
	editor := &user.User{Username: "editor", Email: "editor@example.com", PasswordHash: string(hash)}
	for _, u := range []*user.User{admin, editor} {
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	source := SchemaSourceFunc(func(ctx context.Context, collectionID uint) ([]schema.Field, error) {
		flat, err := fieldsRepo.ListByCollection(ctx, collectionID)
		if err != nil {
			return nil, err
		}
		return schema.Organize(flat), nil
	})
	svc := NewService(projects, repository.NewEntryRepository(db), users, source, nil)

	return &fixture{
		svc:        svc,
		db:         db,
		scope:      Scope{ProjectID: proj.ID, CollectionID: posts.ID},
		singleton:  Scope{ProjectID: proj.ID, CollectionID: settings.ID},
		admin:      Actor{UserID: admin.ID, Caps: user.AllCapabilities()},
		editorUser: editor,
	}
}

func validPost(title string) map[string]any {
	return map[string]any{
		"title": title,
		"slug":  strings.ToLower(strings.ReplaceAll(title, " ", "-")),
		"cover": map[string]any{"id": 7},
		"seo":   map[string]any{"meta_title": "meta"},
	}
}

func TestCreateRequiresTitle(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.scope, f.admin, SaveInput{Data: map[string]any{}, Status: "draft"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Fields["title"] != "The Title field is required." {
		t.Fatalf("unexpected title message %q", verr.Fields["title"])
	}
	if verr.Fields["seo.0.meta_title"] != "Meta title please" {
		t.Fatalf("expected group child error, got %+v", verr.Fields)
	}
}

func TestCreatePersistsCanonicalValues(t *testing.T) {
	f := newFixture(t)
	entry, err := f.svc.Create(context.Background(), f.scope, f.admin, SaveInput{Data: validPost("Hello"), Status: "published", Locale: "fr"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if entry.Locale != "fr" || entry.Status != content.StatusPublished || entry.PublishedAt == nil || entry.UUID == "" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	data := entry.Values()
	cover, ok := data["cover"].([]any)
	if !ok || len(cover) != 1 || cover[0] != float64(7) {
		t.Fatalf("media should persist as id array, got %#v", data["cover"])
	}
	if _, ok := data["seo"].(map[string]any); !ok {
		t.Fatalf("non-repeatable group should persist as object, got %#v", data["seo"])
	}
}

func TestCreateValidationRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Create(ctx, f.scope, f.admin, SaveInput{Data: validPost("Hello")}); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := f.svc.Create(ctx, f.scope, f.admin, SaveInput{Data: validPost("Hello")})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Fields["slug"] != "The Slug has already been taken." {
		t.Fatalf("expected unique violation, got %v", err)
	}

	if _, err := f.svc.Create(ctx, f.scope, f.admin, SaveInput{Data: validPost("Hello"), Locale: "de"}); err != nil {
		t.Fatalf("unique is scoped per locale: %v", err)
	}

	_, err = f.svc.Create(ctx, f.scope, f.admin, SaveInput{Data: validPost("A title that is far too long")})
	if !errors.As(err, &verr) || verr.Fields["title"] != "The Title may not be greater than 20 characters." {
		t.Fatalf("expected charcount violation, got %v", err)
	}

	if _, err := f.svc.Create(ctx, f.scope, f.admin, SaveInput{Data: validPost("X"), Locale: "es"}); !errors.Is(err, ErrInvalidLocale) {
		t.Fatalf("expected invalid locale, got %v", err)
	}
	if _, err := f.svc.Create(ctx, f.scope, f.admin, SaveInput{Data: validPost("Y"), Status: "archived"}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected invalid status, got %v", err)
	}
}

func TestSingletonPerLocale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.Create(ctx, f.singleton, f.admin, SaveInput{Data: map[string]any{"site_name": "A"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Create(ctx, f.singleton, f.admin, SaveInput{Data: map[string]any{"site_name": "B"}}); !errors.Is(err, ErrSingletonViolation) {
		t.Fatalf("expected singleton violation, got %v", err)
	}
	if _, err := f.svc.Create(ctx, f.singleton, f.admin, SaveInput{Data: map[string]any{"site_name": "C"}, Locale: "fr"}); err != nil {
		t.Fatalf("other locale should be allowed: %v", err)
	}
	if err := f.svc.Trash(ctx, f.singleton, f.admin, first.ID); err != nil {
		t.Fatalf("trash: %v", err)
	}
	if _, err := f.svc.Create(ctx, f.singleton, f.admin, SaveInput{Data: map[string]any{"site_name": "D"}}); err != nil {
		t.Fatalf("trashed entries do not count: %v", err)
	}
	if err := f.svc.Restore(ctx, f.singleton, f.admin, first.ID); !errors.Is(err, ErrSingletonViolation) {
		t.Fatalf("restore should respect singleton, got %v", err)
	}
}

func TestUpdatePublishAndPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry, err := f.svc.Create(ctx, f.scope, f.admin, SaveInput{Data: validPost("Draft")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if entry.PublishedAt != nil {
		t.Fatalf("draft should not have published_at")
	}
	updated, err := f.svc.Update(ctx, f.scope, f.admin, entry.ID, SaveInput{Data: validPost("Draft"), Status: "published"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PublishedAt == nil {
		t.Fatalf("publishing should set published_at")
	}

	editor := Actor{UserID: f.editorUser.ID, Caps: user.Capabilities{CreateContent: true, UpdateContent: true}}
	if _, err := f.svc.Update(ctx, f.scope, editor, entry.ID, SaveInput{Data: validPost("Draft"), Status: "published"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("editor cannot edit others' entries, got %v", err)
	}
	own, err := f.svc.Create(ctx, f.scope, editor, SaveInput{Data: validPost("Mine")})
	if err != nil {
		t.Fatalf("editor create: %v", err)
	}
	if _, err := f.svc.Update(ctx, f.scope, editor, own.ID, SaveInput{Data: validPost("Mine"), Status: "published"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("editor cannot publish without capability, got %v", err)
	}
	if _, err := f.svc.Update(ctx, f.scope, editor, own.ID, SaveInput{Data: validPost("Mine 2")}); err != nil {
		t.Fatalf("editor can update own draft: %v", err)
	}
}

func TestDuplicateResetsIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	source, err := f.svc.Create(ctx, f.scope, f.admin, SaveInput{Data: validPost("Original"), Status: "published"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	target, err := f.svc.Create(ctx, f.scope, f.admin, SaveInput{Data: validPost("Traduit"), Locale: "fr"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.LinkTranslation(ctx, f.scope, f.admin, source.ID, target.ID); err != nil {
		t.Fatalf("link: %v", err)
	}

	copied, err := f.svc.Duplicate(ctx, f.scope, f.admin, source.ID)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if copied.ID == source.ID || copied.UUID == source.UUID {
		t.Fatalf("duplicate must get new identity")
	}
	if copied.Status != content.StatusDraft || copied.PublishedAt != nil || copied.TranslationGroupID != nil {
		t.Fatalf("duplicate should reset status and links: %+v", copied)
	}
	if copied.Values()["title"] != "Original" {
		t.Fatalf("duplicate should copy values")
	}
}

func TestSearchFiltersSortsAndPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	posts := []struct {
		title    string
		category string
		views    float64
		status   string
	}{
		{"Alpha", "news", 10, "published"},
		{"Beta", "blog", 30, "draft"},
		{"Gamma", "news", 20, "draft"},
		{"Delta news", "blog", 5, "published"},
	}
	for _, p := range posts {
		data := validPost(p.title)
		data["category"] = p.category
		data["views"] = p.views
		if _, err := f.svc.Create(ctx, f.scope, f.admin, SaveInput{Data: data, Status: p.status}); err != nil {
			t.Fatalf("create %s: %v", p.title, err)
		}
	}

	page, err := f.svc.Search(ctx, f.scope, contentlist.Query{Filters: map[string]string{"category": "news"}, Sort: "views", Direction: "asc", Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.Total != 2 || page.Entries[0].Values()["title"] != "Alpha" || page.Entries[1].Values()["title"] != "Gamma" {
		t.Fatalf("unexpected filtered page %+v", page.Pagination)
	}

	page, err = f.svc.Search(ctx, f.scope, contentlist.Query{Search: "news", Page: 1, PerPage: 10})
	if err != nil || page.Total != 3 {
		t.Fatalf("search text should match title and enumeration, got %d err=%v", page.Total, err)
	}

	page, err = f.svc.Search(ctx, f.scope, contentlist.Query{Status: "published", Sort: "title", Direction: "desc", Page: 1, PerPage: 10})
	if err != nil || page.Total != 2 || page.Entries[0].Values()["title"] != "Delta news" {
		t.Fatalf("unexpected status search %+v err=%v", page.Pagination, err)
	}

	page, err = f.svc.Search(ctx, f.scope, contentlist.Query{Sort: "views", Direction: "desc", Page: 2, PerPage: 3})
	if err != nil || len(page.Entries) != 1 || page.LastPage != 2 || page.From != 4 || page.Entries[0].Values()["title"] != "Delta news" {
		t.Fatalf("unexpected second page %+v err=%v", page.Pagination, err)
	}

	today := page.Entries[0].CreatedAt.Format("2006-01-02")
	page, err = f.svc.Search(ctx, f.scope, contentlist.Query{DateRanges: map[string]contentlist.DateRange{"created_at": {From: today, To: today}}, Page: 1, PerPage: 10})
	if err != nil || page.Total != 4 {
		t.Fatalf("date range should include today's entries, got %d err=%v", page.Total, err)
	}
	page, err = f.svc.Search(ctx, f.scope, contentlist.Query{DateRanges: map[string]contentlist.DateRange{"created_at": {To: "2000-01-01"}}, Page: 1, PerPage: 10})
	if err != nil || page.Total != 0 {
		t.Fatalf("date range should exclude, got %d err=%v", page.Total, err)
	}
	page, err = f.svc.Search(ctx, f.scope, contentlist.Query{Page: math.MaxInt, PerPage: 10})
	if err != nil || len(page.Entries) != 0 || page.Total != 4 {
		t.Fatalf("page past the end should be empty, got %d rows total=%d err=%v", len(page.Entries), page.Total, err)
	}
}

func TestBulkIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var ids []uint
	for i := 0; i < 3; i++ {
		e, err := f.svc.Create(ctx, f.scope, f.admin, SaveInput{Data: validPost(fmt.Sprintf("Post %d", i))})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, e.ID)
	}
	report, err := f.svc.BulkTrash(ctx, f.scope, f.admin, ids[:2])
	if err != nil || len(report.Succeeded) != 2 {
		t.Fatalf("bulk trash: %+v %v", report, err)
	}

	report, err = f.svc.BulkRestore(ctx, f.scope, f.admin, []uint{ids[0], ids[2], ids[1]})
	if err != nil {
		t.Fatalf("bulk restore: %v", err)
	}
	if len(report.Succeeded) != 2 || len(report.Failed) != 1 || report.Failed[0].ID != ids[2] {
		t.Fatalf("expected one isolated failure, got %+v", report)
	}
	if report.Message() != "2 of 3 entries restored" {
		t.Fatalf("unexpected message %q", report.Message())
	}
	page, err := f.svc.Search(ctx, f.scope, contentlist.Query{Page: 1, PerPage: 10})
	if err != nil || page.Total != 3 {
		t.Fatalf("restored entries should be listed, got %d", page.Total)
	}

	if _, err := f.svc.BulkDelete(ctx, f.scope, f.admin, ids, "wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected invalid password, got %v", err)
	}
	if _, err := f.svc.BulkDelete(ctx, f.scope, f.admin, ids, ""); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("expected confirmation required, got %v", err)
	}
	report, err = f.svc.BulkDelete(ctx, f.scope, f.admin, ids, "secret")
	if err != nil || len(report.Succeeded) != 3 {
		t.Fatalf("bulk delete: %+v %v", report, err)
	}
	if _, err := f.svc.BulkTrash(ctx, f.scope, f.admin, nil); !errors.Is(err, ErrNothingSelected) {
		t.Fatalf("expected nothing selected, got %v", err)
	}
}

func TestTranslationLinking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	en, _ := f.svc.Create(ctx, f.scope, f.admin, SaveInput{Data: validPost("Hello"), Locale: "en"})
	fr, _ := f.svc.Create(ctx, f.scope, f.admin, SaveInput{Data: validPost("Bonjour"), Locale: "fr"})
	de, _ := f.svc.Create(ctx, f.scope, f.admin, SaveInput{Data: validPost("Hallo"), Locale: "de"})
	fr2, _ := f.svc.Create(ctx, f.scope, f.admin, SaveInput{Data: validPost("Salut"), Locale: "fr"})

	group, err := f.svc.LinkTranslation(ctx, f.scope, f.admin, en.ID, fr.ID)
	if err != nil || group == "" {
		t.Fatalf("link: %q %v", group, err)
	}
	again, err := f.svc.LinkTranslation(ctx, f.scope, f.admin, de.ID, en.ID)
	if err != nil || again != group {
		t.Fatalf("linking into an existing group should reuse it: %q vs %q (%v)", again, group, err)
	}
	if _, err := f.svc.LinkTranslation(ctx, f.scope, f.admin, en.ID, fr2.ID); !errors.Is(err, ErrTranslationConflict) {
		t.Fatalf("expected conflict for occupied locale, got %v", err)
	}
	if _, err := f.svc.LinkTranslation(ctx, f.scope, f.admin, fr.ID, fr2.ID); !errors.Is(err, ErrTranslationConflict) {
		t.Fatalf("expected conflict for same locale, got %v", err)
	}

	if err := f.svc.UnlinkTranslation(ctx, f.scope, f.admin, en.ID, fr.ID); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	reloaded, err := f.svc.Get(ctx, f.scope, fr.ID)
	if err != nil || reloaded.TranslationGroupID != nil {
		t.Fatalf("fr should be unlinked: %+v %v", reloaded, err)
	}
	if _, err := f.svc.LinkTranslation(ctx, f.scope, f.admin, en.ID, fr2.ID); err != nil {
		t.Fatalf("freed locale can be linked: %v", err)
	}
}

func TestFindByIDsKeepsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.svc.Create(ctx, f.scope, f.admin, SaveInput{Data: validPost("A")})
	b, _ := f.svc.Create(ctx, f.scope, f.admin, SaveInput{Data: validPost("B")})
	found, err := f.svc.FindByIDs(ctx, f.scope, []uint{b.ID, 999, a.ID, b.ID})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(found) != 2 || found[0].ID != b.ID || found[1].ID != a.ID {
		t.Fatalf("unexpected order %+v", found)
	}
}
