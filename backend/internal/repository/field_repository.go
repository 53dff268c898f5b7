package repository

import (
	"context"

	"headless-cms/backend/internal/domain/schema"

	"gorm.io/gorm"
)

// FieldRepository 读取集合的字段定义，字段的增删改由外部 schema 接口负责。
type FieldRepository struct {
	db *gorm.DB
}

// NewFieldRepository 构造仓储实例。
func NewFieldRepository(db *gorm.DB) *FieldRepository {
	return &FieldRepository{db: db}
}

// ListByCollection 按 order 返回集合的扁平字段列表。
func (r *FieldRepository) ListByCollection(ctx context.Context, collectionID uint) ([]schema.Field, error) {
	var fields []schema.Field
	if err := r.db.WithContext(ctx).
		Where("collection_id = ?", collectionID).
		Order("sort_order ASC, id ASC").
		Find(&fields).Error; err != nil {
		return nil, err
	}
	return fields, nil
}

// Create 新增字段，仅供初始化数据与测试使用。
func (r *FieldRepository) Create(ctx context.Context, f *schema.Field) error {
	return r.db.WithContext(ctx).Create(f).Error
}
