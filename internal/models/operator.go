package models

import (
	"time"

	"gorm.io/gorm"
)

// Operator 仓库操作员账号表
type Operator struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                         // 主键
	Username           string         `gorm:"uniqueIndex;not null" json:"username"`         // 登录账号
	DisplayName        string         `gorm:"not null;default:''" json:"display_name"`      // 显示名（写入操作记录的操作人）
	PasswordHash       string         `gorm:"not null" json:"-"`                            // 密码哈希
	TokenVersion       uint64         `gorm:"not null;default:0" json:"-"`                  // Token 版本（用于全量失效）
	TokenInvalidBefore *time.Time     `gorm:"index" json:"-"`                               // 该时间点前签发的 Token 失效
	IsSuper            bool           `gorm:"not null;default:false;index" json:"is_super"` // 超级操作员（免权限校验）
	LastLoginAt        *time.Time     `json:"last_login_at"`                                // 最后登录时间
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                      // 创建时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                               // 软删除时间
}

// TableName 指定表名
func (Operator) TableName() string {
	return "operators"
}

// OperatorName 返回写入操作记录时使用的名字
func (o *Operator) OperatorName() string {
	if o == nil {
		return ""
	}
	if o.DisplayName != "" {
		return o.DisplayName
	}
	return o.Username
}
