package project

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Project 是集合与内容的顶层容器，配置可用语言。
type Project struct {
	ID            uint           `gorm:"primaryKey" json:"id"`                   // 主键。
	Name          string         `gorm:"size:255;not null" json:"name"`          // 项目名称。
	Locales       datatypes.JSON `gorm:"type:json" json:"locales"`               // 可用语言列表（JSON 数组）。
	DefaultLocale string         `gorm:"size:16;not null" json:"default_locale"` // 默认语言。
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// TableName 指定项目表名。
func (Project) TableName() string {
	return "projects"
}

// LocaleList 解码语言列表，默认语言缺失时补在首位。
func (p Project) LocaleList() []string {
	var locales []string
	if len(p.Locales) > 0 {
		_ = json.Unmarshal(p.Locales, &locales)
	}
	result := make([]string, 0, len(locales)+1)
	seen := make(map[string]struct{}, len(locales)+1)
	if def := strings.TrimSpace(p.DefaultLocale); def != "" {
		result = append(result, def)
		seen[def] = struct{}{}
	}
	for _, locale := range locales {
		locale = strings.TrimSpace(locale)
		if locale == "" {
			continue
		}
		if _, ok := seen[locale]; ok {
			continue
		}
		seen[locale] = struct{}{}
		result = append(result, locale)
	}
	return result
}

// HasLocale 判断语言是否属于项目配置。
func (p Project) HasLocale(locale string) bool {
	for _, candidate := range p.LocaleList() {
		if candidate == locale {
			return true
		}
	}
	return false
}

// SetLocales 写入语言列表。
func (p *Project) SetLocales(locales []string) error {
	raw, err := json.Marshal(locales)
	if err != nil {
		return err
	}
	p.Locales = datatypes.JSON(raw)
	return nil
}

// Collection 是项目下带有字段定义的内容分组。
type Collection struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProjectID   uint      `gorm:"not null;index" json:"project_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Slug        string    `gorm:"size:255;not null;index" json:"slug"`
	IsSingleton bool      `gorm:"not null;default:false" json:"is_singleton"` // 单例集合每种语言最多一条未删除内容。
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定集合表名。
func (Collection) TableName() string {
	return "collections"
}
