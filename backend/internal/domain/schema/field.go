package schema

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FieldType 枚举集合中字段支持的全部类型。
type FieldType string

const (
	TypeText        FieldType = "text"
	TypeLongText    FieldType = "longtext"
	TypeEmail       FieldType = "email"
	TypeSlug        FieldType = "slug"
	TypePassword    FieldType = "password"
	TypeNumber      FieldType = "number"
	TypeEnumeration FieldType = "enumeration"
	TypeBoolean     FieldType = "boolean"
	TypeColor       FieldType = "color"
	TypeDate        FieldType = "date"
	TypeTime        FieldType = "time"
	TypeMedia       FieldType = "media"
	TypeRelation    FieldType = "relation"
	TypeRichText    FieldType = "richtext"
	TypeJSON        FieldType = "json"
	TypeGroup       FieldType = "group"
)

var allTypes = []FieldType{
	TypeText,
	TypeLongText,
	TypeEmail,
	TypeSlug,
	TypePassword,
	TypeNumber,
	TypeEnumeration,
	TypeBoolean,
	TypeColor,
	TypeDate,
	TypeTime,
	TypeMedia,
	TypeRelation,
	TypeRichText,
	TypeJSON,
	TypeGroup,
}

// AllTypes 返回全部字段类型的副本，供各个引擎做完整性校验。
func AllTypes() []FieldType {
	return append([]FieldType(nil), allTypes...)
}

// Valid 判断字段类型是否属于已知集合。
func (t FieldType) Valid() bool {
	for _, known := range allTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Field 表示集合中的一个字段定义。
type Field struct {
	ID              uint                            `gorm:"primaryKey" json:"id"`                                                       // 主键。
	CollectionID    uint                            `gorm:"not null;index:idx_fields_collection_order,priority:1" json:"collection_id"` // 所属集合。
	Name            string                          `gorm:"size:128;not null" json:"name"`                                              // 机器名，集合内唯一。
	Label           string                          `gorm:"size:255" json:"label"`                                                      // 展示名称。
	Type            FieldType                       `gorm:"size:32;not null" json:"type"`                                               // 字段类型。
	Order           int                             `gorm:"column:sort_order;not null;default:0;index:idx_fields_collection_order,priority:2" json:"order"`
	ParentFieldID   *uint                           `gorm:"index" json:"parent_field_id"` // 所属分组字段，最多一层。
	Options         Options                         `gorm:"-" json:"options"`             // 类型相关配置。
	Validations     Validations                     `gorm:"-" json:"validations"`         // 校验规则。
	OptionsJSON     datatypes.JSONType[Options]     `gorm:"column:options;type:json" json:"-"`
	ValidationsJSON datatypes.JSONType[Validations] `gorm:"column:validations;type:json" json:"-"`
	Children        []Field                         `gorm:"-" json:"children,omitempty"` // 分组字段的子字段，由 Organize 填充。
	CreatedAt       time.Time                       `json:"created_at"`
	UpdatedAt       time.Time                       `json:"updated_at"`
}

// TableName 指定字段表名。
func (Field) TableName() string {
	return "fields"
}

// BeforeSave 把配置与校验规则写入 JSON 列。
func (f *Field) BeforeSave(*gorm.DB) error {
	f.OptionsJSON = datatypes.JSONType[Options]{Data: f.Options}
	f.ValidationsJSON = datatypes.JSONType[Validations]{Data: f.Validations}
	return nil
}

// AfterFind 从 JSON 列还原配置与校验规则。
func (f *Field) AfterFind(*gorm.DB) error {
	f.Options = f.OptionsJSON.Data
	f.Validations = f.ValidationsJSON.Data
	return nil
}

// IsGroup 判断字段是否为分组字段。
func (f Field) IsGroup() bool {
	return f.Type == TypeGroup
}

// IsRepeatable 判断字段值是否为实例列表。
func (f Field) IsRepeatable() bool {
	return f.Options.Repeatable
}

// AllowsMultipleMedia 判断媒体字段是否允许多选。
func (f Field) AllowsMultipleMedia() bool {
	if f.Options.Multiple {
		return true
	}
	return f.Options.Media != nil && f.Options.Media.Type == MediaTypeMultiple
}

// IsMultipleEnumeration 判断枚举字段是否为多选。
func (f Field) IsMultipleEnumeration() bool {
	return f.Type == TypeEnumeration && f.Options.Multiple
}

// IsDateRange 判断日期字段是否为区间模式。
func (f Field) IsDateRange() bool {
	return f.Type == TypeDate && f.Options.Date != nil && f.Options.Date.Mode == DateModeRange
}

// SlugSource 返回 slug 字段跟随的源字段名，非 slug 字段返回空串。
func (f Field) SlugSource() string {
	if f.Type != TypeSlug || f.Options.Slug == nil {
		return ""
	}
	return f.Options.Slug.Field
}

// RelationCollectionID 返回关联字段指向的集合。
func (f Field) RelationCollectionID() uint {
	if f.Type != TypeRelation || f.Options.Relation == nil {
		return 0
	}
	return f.Options.Relation.Collection
}

// Displayable 判断字段是否适合出现在列表或关联预览中。
func (f Field) Displayable() bool {
	if f.ParentFieldID != nil {
		return false
	}
	switch f.Type {
	case TypePassword, TypeGroup:
		return false
	}
	return !f.Options.HideInContentList
}
