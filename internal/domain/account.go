package domain

import "time"

// EmailAccount 表示用户已连接的邮箱账户。
//
// 每条记录对应服务商的一个 OAuth 授权（grant）。
// 在 OAuth 回调完成时创建，之后仅用于解析凭证，除主账户标记外不再修改。
type EmailAccount struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"userId" gorm:"type:varchar(36);index;not null"`
	GrantID   string    `json:"grantId" gorm:"type:varchar(64);uniqueIndex;not null"` // 服务商授权句柄
	Email     string    `json:"email" gorm:"type:varchar(255);index"`
	Provider  string    `json:"provider" gorm:"type:varchar(50)"` // google / microsoft / imap
	IsPrimary bool      `json:"isPrimary" gorm:"default:false"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
