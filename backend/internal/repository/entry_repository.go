package repository

import (
	"context"

	"headless-cms/backend/internal/domain/content"

	"gorm.io/gorm"
)

// EntryFilter 描述可以下推到 SQL 的内容筛选条件，字段值层面的筛选在服务层完成。
type EntryFilter struct {
	ProjectID          uint
	CollectionID       uint
	Locale             string
	Status             string
	TranslationGroupID string
	OnlyTrashed        bool
}

// EntryRepository 提供 entries 表的 CRUD 与回收站操作。
type EntryRepository struct {
	db *gorm.DB
}

// NewEntryRepository 构造仓储实例。
func NewEntryRepository(db *gorm.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// Create 新增内容。
func (r *EntryRepository) Create(ctx context.Context, entry *content.Entry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Save 按主键保存内容。
func (r *EntryRepository) Save(ctx context.Context, entry *content.Entry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

// FindByID 查找未删除的内容。
func (r *EntryRepository) FindByID(ctx context.Context, collectionID, id uint) (*content.Entry, error) {
	var entry content.Entry
	if err := r.db.WithContext(ctx).
		Where("collection_id = ?", collectionID).
		First(&entry, id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindAnyByID 查找内容，包含回收站中的记录。
func (r *EntryRepository) FindAnyByID(ctx context.Context, collectionID, id uint) (*content.Entry, error) {
	var entry content.Entry
	if err := r.db.WithContext(ctx).
		Unscoped().
		Where("collection_id = ?", collectionID).
		First(&entry, id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// List 返回满足 SQL 条件的全部内容，按 id 倒序。
func (r *EntryRepository) List(ctx context.Context, filter EntryFilter) ([]content.Entry, error) {
	query := r.db.WithContext(ctx).Model(&content.Entry{})
	if filter.OnlyTrashed {
		query = query.Unscoped().Where("deleted_at IS NOT NULL")
	}
	if filter.ProjectID != 0 {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if filter.CollectionID != 0 {
		query = query.Where("collection_id = ?", filter.CollectionID)
	}
	if filter.Locale != "" {
		query = query.Where("locale = ?", filter.Locale)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.TranslationGroupID != "" {
		query = query.Where("translation_group_id = ?", filter.TranslationGroupID)
	}

	var entries []content.Entry
	if err := query.Order("id DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByIDs 批量查找未删除的内容，返回顺序不保证与 ids 一致。
func (r *EntryRepository) FindByIDs(ctx context.Context, collectionID uint, ids []uint) ([]content.Entry, error) {
	if len(ids) == 0 {
		return []content.Entry{}, nil
	}
	var entries []content.Entry
	if err := r.db.WithContext(ctx).
		Where("collection_id = ? AND id IN ?", collectionID, ids).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CountActiveByLocale 统计集合在某语言下未删除的内容数，excludeID 非 0 时排除该记录。
func (r *EntryRepository) CountActiveByLocale(ctx context.Context, collectionID uint, locale string, excludeID uint) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&content.Entry{}).
		Where("collection_id = ? AND locale = ?", collectionID, locale)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SoftDelete 将内容移入回收站。
func (r *EntryRepository) SoftDelete(ctx context.Context, collectionID, id uint) error {
	result := r.db.WithContext(ctx).
		Where("collection_id = ?", collectionID).
		Delete(&content.Entry{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// HardDelete 彻底删除内容，回收站中的记录同样适用。
func (r *EntryRepository) HardDelete(ctx context.Context, collectionID, id uint) error {
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("collection_id = ?", collectionID).
		Delete(&content.Entry{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Restore 将回收站中的内容恢复。
func (r *EntryRepository) Restore(ctx context.Context, collectionID, id uint) error {
	result := r.db.WithContext(ctx).
		Unscoped().
		Model(&content.Entry{}).
		Where("id = ? AND collection_id = ? AND deleted_at IS NOT NULL", id, collectionID).
		Update("deleted_at", nil)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetTranslationGroup 更新内容的翻译分组，groupID 为 nil 时解除关联。
func (r *EntryRepository) SetTranslationGroup(ctx context.Context, id uint, groupID *string) error {
	result := r.db.WithContext(ctx).
		Model(&content.Entry{}).
		Where("id = ?", id).
		Update("translation_group_id", groupID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Transaction 在事务中执行 fn，fn 收到绑定事务的仓储。
func (r *EntryRepository) Transaction(ctx context.Context, fn func(tx *EntryRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&EntryRepository{db: tx})
	})
}
