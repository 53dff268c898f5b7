package repository

import (
	"context"

	"headless-cms/backend/internal/domain/project"

	"gorm.io/gorm"
)

// ProjectRepository 提供 projects 与 collections 表的读写。
type ProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository 构造仓储实例。
func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// CreateProject 新增项目。
func (r *ProjectRepository) CreateProject(ctx context.Context, p *project.Project) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// FindProject 根据主键查找项目。
func (r *ProjectRepository) FindProject(ctx context.Context, id uint) (*project.Project, error) {
	var p project.Project
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateCollection 新增集合。
func (r *ProjectRepository) CreateCollection(ctx context.Context, c *project.Collection) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// FindCollection 查找项目下的集合，跨项目访问视为不存在。
func (r *ProjectRepository) FindCollection(ctx context.Context, projectID, collectionID uint) (*project.Collection, error) {
	var c project.Collection
	err := r.db.WithContext(ctx).
		Where("id = ? AND project_id = ?", collectionID, projectID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCollections 返回项目下的全部集合。
func (r *ProjectRepository) ListCollections(ctx context.Context, projectID uint) ([]project.Collection, error) {
	var list []project.Collection
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
