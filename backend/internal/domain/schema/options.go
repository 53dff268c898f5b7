package schema

const (
	// MediaTypeSingle 表示单个媒体。
	MediaTypeSingle = 1
	// MediaTypeMultiple 表示多个媒体。
	MediaTypeMultiple = 2

	// RelationTypeOne 表示一对一关联。
	RelationTypeOne = 1
	// RelationTypeMany 表示一对多关联。
	RelationTypeMany = 2

	// DateModeSingle 表示单个日期。
	DateModeSingle = "single"
	// DateModeRange 表示日期区间，值形如 "start - end"。
	DateModeRange = "range"
)

// Options 描述字段的类型相关配置，以 JSON 形式落库。
type Options struct {
	Repeatable        bool                `json:"repeatable,omitempty"`
	Multiple          bool                `json:"multiple,omitempty"`
	HideInContentList bool                `json:"hide_in_content_list,omitempty"`
	Media             *MediaOptions       `json:"media,omitempty"`
	Relation          *RelationOptions    `json:"relation,omitempty"`
	Enumeration       *EnumerationOptions `json:"enumeration,omitempty"`
	Slug              *SlugOptions        `json:"slug,omitempty"`
	Date              *DateOptions        `json:"date,omitempty"`
}

// MediaOptions 媒体字段配置。
type MediaOptions struct {
	Type int `json:"type"`
}

// RelationOptions 关联字段配置，Collection 可以是当前集合（自关联）。
type RelationOptions struct {
	Collection uint `json:"collection"`
	Type       int  `json:"type"`
}

// EnumerationOptions 枚举字段的可选值。
type EnumerationOptions struct {
	List []string `json:"list"`
}

// SlugOptions 指定 slug 跟随的源字段。
type SlugOptions struct {
	Field string `json:"field"`
}

// DateOptions 日期字段配置。
type DateOptions struct {
	Mode        string `json:"mode,omitempty"`
	IncludeTime bool   `json:"include_time,omitempty"`
}

// Rule 是 required/unique 这类开关型校验规则。
type Rule struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
}

// CharCountRule 描述字符数限制。
type CharCountRule struct {
	Status  bool   `json:"status"`
	Type    string `json:"type,omitempty"` // between / min / max
	Min     *int   `json:"min,omitempty"`
	Max     *int   `json:"max,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	CharCountBetween = "between"
	CharCountMin     = "min"
	CharCountMax     = "max"
)

// Validations 汇总字段上的校验规则。
type Validations struct {
	Required  *Rule          `json:"required,omitempty"`
	Unique    *Rule          `json:"unique,omitempty"`
	CharCount *CharCountRule `json:"charcount,omitempty"`
}

// IsRequired 判断字段是否必填。
func (v Validations) IsRequired() bool {
	return v.Required != nil && v.Required.Status
}

// IsUnique 判断字段是否要求唯一。
func (v Validations) IsUnique() bool {
	return v.Unique != nil && v.Unique.Status
}
