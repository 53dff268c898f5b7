package content

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EntryStatus 表示内容的发布状态。
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Entry 表示某个集合在某种语言下的一条内容。
type Entry struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`                                                          // 自增主键。
	UUID               string         `gorm:"size:36;uniqueIndex" json:"uuid"`                                               // 对外暴露的稳定标识。
	ProjectID          uint           `gorm:"not null;index" json:"project_id"`                                              // 所属项目。
	CollectionID       uint           `gorm:"not null;index:idx_entries_collection_locale,priority:1" json:"collection_id"`  // 所属集合。
	Locale             string         `gorm:"size:16;not null;index:idx_entries_collection_locale,priority:2" json:"locale"` // 语言。
	Status             string         `gorm:"size:16;not null;default:'draft';index" json:"status"`                          // draft/published。
	TranslationGroupID *string        `gorm:"size:36;index" json:"translation_group_id"`                                     // 翻译分组，同组内容互为译文。
	Data               datatypes.JSON `gorm:"type:json" json:"data"`                                                         // 按字段名存储的字段值。
	PublishedAt        *time.Time     `json:"published_at"`                                                                  // 最近一次发布时间。
	CreatedBy          *uint          `gorm:"index" json:"created_by"`                                                       // 创建人。
	UpdatedBy          *uint          `gorm:"index" json:"updated_by"`                                                       // 最近修改人。
	CreatedAt          time.Time      `json:"created_at"`                                                                    // 创建时间。
	UpdatedAt          time.Time      `json:"updated_at"`                                                                    // 更新时间。
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at"`                                                       // 回收站标记，区别于彻底删除。
}

// TableName 指定内容表名。
func (Entry) TableName() string {
	return "entries"
}

// Values 解码字段值，数据损坏时返回空 map。
func (e Entry) Values() map[string]any {
	values := map[string]any{}
	if len(e.Data) == 0 {
		return values
	}
	if err := json.Unmarshal(e.Data, &values); err != nil || values == nil {
		return map[string]any{}
	}
	return values
}

// SetValues 编码字段值。
func (e *Entry) SetValues(values map[string]any) error {
	if values == nil {
		values = map[string]any{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	e.Data = datatypes.JSON(raw)
	return nil
}

// IsTrashed 判断内容是否在回收站中。
func (e Entry) IsTrashed() bool {
	return e.DeletedAt.Valid
}

// GroupID 返回翻译分组 ID，没有时返回空串。
func (e Entry) GroupID() string {
	if e.TranslationGroupID == nil {
		return ""
	}
	return *e.TranslationGroupID
}
