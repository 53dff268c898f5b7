package entry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"headless-cms/backend/internal/domain/content"
	"headless-cms/backend/internal/domain/project"
	"headless-cms/backend/internal/domain/schema"
	"headless-cms/backend/internal/domain/user"
	"headless-cms/backend/internal/infra/metrics"
	"headless-cms/backend/internal/repository"
	"headless-cms/backend/internal/service/values"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SchemaSource 提供集合整理后的字段树。
type SchemaSource interface {
	Fields(ctx context.Context, collectionID uint) ([]schema.Field, error)
}

// SchemaSourceFunc 允许以函数实现 SchemaSource。
type SchemaSourceFunc func(ctx context.Context, collectionID uint) ([]schema.Field, error)

// Fields 实现 SchemaSource。
func (f SchemaSourceFunc) Fields(ctx context.Context, collectionID uint) ([]schema.Field, error) {
	return f(ctx, collectionID)
}

// Scope 定位一个集合。
type Scope struct {
	ProjectID    uint
	CollectionID uint
}

// Actor 是发起操作的用户及其能力集合。
type Actor struct {
	UserID uint
	Caps   user.Capabilities
}

// SaveInput 是创建/更新内容的请求体。
type SaveInput struct {
	Data   map[string]any `json:"data"`
	Status string         `json:"status"`
	Locale string         `json:"locale"`
}

// Service 实现内容的增删改查、回收站、批量操作与翻译关联。
type Service struct {
	projects *repository.ProjectRepository
	entries  *repository.EntryRepository
	users    *repository.UserRepository
	schema   SchemaSource
	logger   *zap.SugaredLogger
	now      func() time.Time
}

// NewService 构造内容服务。
func NewService(projects *repository.ProjectRepository, entries *repository.EntryRepository, users *repository.UserRepository, source SchemaSource, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		projects: projects,
		entries:  entries,
		users:    users,
		schema:   source,
		logger:   logger,
		now:      time.Now,
	}
}

// Context 返回集合所属项目、集合本身与整理后的字段树。
func (s *Service) Context(ctx context.Context, scope Scope) (*project.Project, *project.Collection, []schema.Field, error) {
	proj, err := s.projects.FindProject(ctx, scope.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, ErrProjectNotFound
		}
		return nil, nil, nil, fmt.Errorf("load project: %w", err)
	}
	collection, err := s.projects.FindCollection(ctx, scope.ProjectID, scope.CollectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, ErrCollectionNotFound
		}
		return nil, nil, nil, fmt.Errorf("load collection: %w", err)
	}
	tree, err := s.schema.Fields(ctx, collection.ID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load fields: %w", err)
	}
	return proj, collection, tree, nil
}

// Collections 返回项目及其下的全部集合。
func (s *Service) Collections(ctx context.Context, projectID uint) (*project.Project, []project.Collection, error) {
	proj, err := s.projects.FindProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrProjectNotFound
		}
		return nil, nil, fmt.Errorf("load project: %w", err)
	}
	list, err := s.projects.ListCollections(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("list collections: %w", err)
	}
	return proj, list, nil
}

// Create 新建内容，值先规范化再转为落库形态并做服务端校验。
func (s *Service) Create(ctx context.Context, scope Scope, actor Actor, in SaveInput) (*content.Entry, error) {
	if !actor.Caps.CreateContent {
		return nil, ErrForbidden
	}
	status, err := normalizeStatus(in.Status)
	if err != nil {
		return nil, err
	}
	if status == content.StatusPublished && !actor.Caps.PublishContent {
		return nil, ErrForbidden
	}
	proj, collection, tree, err := s.Context(ctx, scope)
	if err != nil {
		return nil, err
	}
	locale, err := resolveLocale(proj, in.Locale, "")
	if err != nil {
		return nil, err
	}

	data := values.ToPersisted(values.NormalizeForEdit(in.Data, tree), tree)
	if err := s.validate(ctx, collection.ID, locale, 0, data, tree); err != nil {
		metrics.RecordEntrySave(status, "invalid")
		return nil, err
	}
	if err := s.ensureSingleton(ctx, collection, locale, 0); err != nil {
		return nil, err
	}

	entry := &content.Entry{
		UUID:         uuid.NewString(),
		ProjectID:    proj.ID,
		CollectionID: collection.ID,
		Locale:       locale,
		Status:       status,
		CreatedBy:    actorID(actor),
		UpdatedBy:    actorID(actor),
	}
	if status == content.StatusPublished {
		now := s.now()
		entry.PublishedAt = &now
	}
	if err := entry.SetValues(data); err != nil {
		return nil, fmt.Errorf("encode entry values: %w", err)
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		metrics.RecordEntrySave(status, "error")
		return nil, fmt.Errorf("create entry: %w", err)
	}
	metrics.RecordEntrySave(status, "success")
	s.logger.Infow("entry created", "entry_id", entry.ID, "collection_id", collection.ID, "locale", locale, "status", status)
	return entry, nil
}

// Update 更新已有内容，状态变为 published 时刷新 published_at。
func (s *Service) Update(ctx context.Context, scope Scope, actor Actor, id uint, in SaveInput) (*content.Entry, error) {
	if !actor.Caps.UpdateContent {
		return nil, ErrForbidden
	}
	status, err := normalizeStatus(in.Status)
	if err != nil {
		return nil, err
	}
	proj, collection, tree, err := s.Context(ctx, scope)
	if err != nil {
		return nil, err
	}
	entry, err := s.find(ctx, collection.ID, id)
	if err != nil {
		return nil, err
	}
	if !canEdit(actor, entry) {
		return nil, ErrForbidden
	}
	if status != entry.Status && !actor.Caps.PublishContent {
		return nil, ErrForbidden
	}
	locale, err := resolveLocale(proj, in.Locale, entry.Locale)
	if err != nil {
		return nil, err
	}

	data := values.ToPersisted(values.NormalizeForEdit(in.Data, tree), tree)
	if err := s.validate(ctx, collection.ID, locale, entry.ID, data, tree); err != nil {
		metrics.RecordEntrySave(status, "invalid")
		return nil, err
	}
	if locale != entry.Locale {
		if err := s.ensureSingleton(ctx, collection, locale, entry.ID); err != nil {
			return nil, err
		}
	}

	if status == content.StatusPublished && (entry.Status != content.StatusPublished || entry.PublishedAt == nil) {
		now := s.now()
		entry.PublishedAt = &now
	}
	entry.Status = status
	entry.Locale = locale
	entry.UpdatedBy = actorID(actor)
	if err := entry.SetValues(data); err != nil {
		return nil, fmt.Errorf("encode entry values: %w", err)
	}
	if err := s.entries.Save(ctx, entry); err != nil {
		metrics.RecordEntrySave(status, "error")
		return nil, fmt.Errorf("update entry: %w", err)
	}
	metrics.RecordEntrySave(status, "success")
	return entry, nil
}

// Get 返回未删除的内容。
func (s *Service) Get(ctx context.Context, scope Scope, id uint) (*content.Entry, error) {
	collection, err := s.collection(ctx, scope)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, collection.ID, id)
}

// Trash 将内容移入回收站。
func (s *Service) Trash(ctx context.Context, scope Scope, actor Actor, id uint) error {
	if !actor.Caps.DeleteContent {
		return ErrForbidden
	}
	collection, err := s.collection(ctx, scope)
	if err != nil {
		return err
	}
	if err := s.entries.SoftDelete(ctx, collection.ID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("trash entry: %w", err)
	}
	return nil
}

// Restore 从回收站恢复内容，单例集合需要再次校验。
func (s *Service) Restore(ctx context.Context, scope Scope, actor Actor, id uint) error {
	if !actor.Caps.DeleteContent {
		return ErrForbidden
	}
	collection, err := s.collection(ctx, scope)
	if err != nil {
		return err
	}
	entry, err := s.entries.FindAnyByID(ctx, collection.ID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("load entry: %w", err)
	}
	if !entry.IsTrashed() {
		return ErrEntryNotFound
	}
	if err := s.ensureSingleton(ctx, collection, entry.Locale, entry.ID); err != nil {
		return err
	}
	if err := s.entries.Restore(ctx, collection.ID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("restore entry: %w", err)
	}
	return nil
}

// Delete 彻底删除内容，未删除或回收站中的内容均可。
func (s *Service) Delete(ctx context.Context, scope Scope, actor Actor, id uint) error {
	if !actor.Caps.ForceDeleteContent {
		return ErrForbidden
	}
	collection, err := s.collection(ctx, scope)
	if err != nil {
		return err
	}
	if err := s.entries.HardDelete(ctx, collection.ID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// Duplicate 复制内容的字段值，生成新的草稿，不继承翻译分组与发布时间。
func (s *Service) Duplicate(ctx context.Context, scope Scope, actor Actor, id uint) (*content.Entry, error) {
	if !actor.Caps.CreateContent {
		return nil, ErrForbidden
	}
	collection, err := s.collection(ctx, scope)
	if err != nil {
		return nil, err
	}
	source, err := s.find(ctx, collection.ID, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSingleton(ctx, collection, source.Locale, 0); err != nil {
		return nil, err
	}
	copied := &content.Entry{
		UUID:         uuid.NewString(),
		ProjectID:    source.ProjectID,
		CollectionID: source.CollectionID,
		Locale:       source.Locale,
		Status:       content.StatusDraft,
		Data:         append([]byte(nil), source.Data...),
		CreatedBy:    actorID(actor),
		UpdatedBy:    actorID(actor),
	}
	if err := s.entries.Create(ctx, copied); err != nil {
		return nil, fmt.Errorf("duplicate entry: %w", err)
	}
	return copied, nil
}

// FindByIDs 按传入顺序返回内容，不存在的 id 被跳过。
func (s *Service) FindByIDs(ctx context.Context, scope Scope, ids []uint) ([]content.Entry, error) {
	collection, err := s.collection(ctx, scope)
	if err != nil {
		return nil, err
	}
	found, err := s.entries.FindByIDs(ctx, collection.ID, ids)
	if err != nil {
		return nil, fmt.Errorf("find entries: %w", err)
	}
	byID := make(map[uint]content.Entry, len(found))
	for _, e := range found {
		byID[e.ID] = e
	}
	ordered := make([]content.Entry, 0, len(found))
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if e, ok := byID[id]; ok {
			ordered = append(ordered, e)
		}
	}
	return ordered, nil
}

func (s *Service) collection(ctx context.Context, scope Scope) (*project.Collection, error) {
	collection, err := s.projects.FindCollection(ctx, scope.ProjectID, scope.CollectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCollectionNotFound
		}
		return nil, fmt.Errorf("load collection: %w", err)
	}
	return collection, nil
}

func (s *Service) find(ctx context.Context, collectionID, id uint) (*content.Entry, error) {
	entry, err := s.entries.FindByID(ctx, collectionID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("load entry: %w", err)
	}
	return entry, nil
}

func (s *Service) ensureSingleton(ctx context.Context, collection *project.Collection, locale string, excludeID uint) error {
	if !collection.IsSingleton {
		return nil
	}
	count, err := s.entries.CountActiveByLocale(ctx, collection.ID, locale, excludeID)
	if err != nil {
		return fmt.Errorf("count singleton entries: %w", err)
	}
	if count > 0 {
		return ErrSingletonViolation
	}
	return nil
}

func normalizeStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "", content.StatusDraft:
		return content.StatusDraft, nil
	case content.StatusPublished:
		return content.StatusPublished, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
}

func resolveLocale(proj *project.Project, requested, current string) (string, error) {
	locale := strings.TrimSpace(requested)
	if locale == "" {
		locale = current
	}
	if locale == "" {
		locale = proj.DefaultLocale
	}
	if !proj.HasLocale(locale) {
		return "", fmt.Errorf("%w: %s", ErrInvalidLocale, locale)
	}
	return locale, nil
}

func canEdit(actor Actor, entry *content.Entry) bool {
	if actor.Caps.UpdateOthers {
		return true
	}
	return entry.CreatedBy != nil && *entry.CreatedBy == actor.UserID
}

func actorID(actor Actor) *uint {
	if actor.UserID == 0 {
		return nil
	}
	id := actor.UserID
	return &id
}
