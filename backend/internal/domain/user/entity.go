package user

import (
	"time"
)

// User 是后台操作者，作为内容的创建人/修改人身份。
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`                // 自增主键
	Username     string    `gorm:"size:64;uniqueIndex" json:"username"` // 唯一用户名
	Email        string    `gorm:"size:255;uniqueIndex" json:"email"`   // 邮箱（唯一）
	PasswordHash string    `gorm:"size:255" json:"-"`                   // bcrypt 密码哈希，用于危险操作的二次确认
	IsAdmin      bool      `gorm:"default:false" json:"is_admin"`       // 管理员标记
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Capabilities 是权限库下发的能力开关集合，后端只读取不推导。
type Capabilities struct {
	CreateContent      bool `json:"create_content"`
	UpdateContent      bool `json:"update_content"`
	UpdateOthers       bool `json:"update_others_content"` // 可继续编辑任意已有内容
	PublishContent     bool `json:"publish_content"`
	DeleteContent      bool `json:"delete_content"` // 移入/移出回收站
	ForceDeleteContent bool `json:"force_delete_content"`
}

// AllCapabilities 返回全部开启的能力集合，管理员与本地模式使用。
func AllCapabilities() Capabilities {
	return Capabilities{
		CreateContent:      true,
		UpdateContent:      true,
		UpdateOthers:       true,
		PublishContent:     true,
		DeleteContent:      true,
		ForceDeleteContent: true,
	}
}
