package domain

import "time"

// MailParticipant 表示邮件信封中的一个参与者。
type MailParticipant struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// MailDetails 是邮件信封的反规范化快照，随标签关联一起落库。
//
// 列表页直接读取该快照渲染，避免回源服务商 API。
type MailDetails struct {
	Subject     string            `json:"subject"`
	From        []MailParticipant `json:"from,omitempty"`
	To          []MailParticipant `json:"to,omitempty"`
	Snippet     string            `json:"snippet,omitempty"`
	Date        int64             `json:"date"` // Unix 秒
	Folders     []string          `json:"folders,omitempty"`
	Attachments []string          `json:"attachments,omitempty"` // 附件文件名
	Unread      bool              `json:"unread"`
	Starred     bool              `json:"starred"`
}

// MessageLabel 表示邮件与标签的关联。
//
// 由 Webhook 分类器或用户手动操作创建。
// 唯一约束 (message_id, label_id)：重复插入被视为成功（幂等）。
// AppliedBy 记录该关联对哪些授权（grant）可见，用于多收件人扇出。
type MessageLabel struct {
	ID          string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	MessageID   string      `json:"messageId" gorm:"type:varchar(128);uniqueIndex:idx_message_label;not null"`
	LabelID     string      `json:"labelId" gorm:"type:varchar(36);uniqueIndex:idx_message_label;index;not null"`
	AccountID   string      `json:"accountId" gorm:"type:varchar(36);index;not null"`
	AppliedBy   []string    `json:"appliedBy" gorm:"serializer:json;type:json"`
	MailDetails MailDetails `json:"mailDetails" gorm:"serializer:json;type:json"`
	CreatedAt   time.Time   `json:"createdAt"`
}
