package nylas

// 服务商 v3 API 的数据结构定义。
// 字段名与服务商返回的 JSON 保持一致（snake_case）。

// Participant 邮件参与者（发件人/收件人）
type Participant struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// Attachment 邮件附件元数据
type Attachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	IsInline    bool   `json:"is_inline,omitempty"`
	ContentID   string `json:"content_id,omitempty"`
}

// Message 服务商侧的一封邮件
type Message struct {
	ID          string        `json:"id"`
	GrantID     string        `json:"grant_id"`
	ThreadID    string        `json:"thread_id,omitempty"`
	Subject     string        `json:"subject"`
	From        []Participant `json:"from,omitempty"`
	To          []Participant `json:"to,omitempty"`
	Cc          []Participant `json:"cc,omitempty"`
	Bcc         []Participant `json:"bcc,omitempty"`
	ReplyTo     []Participant `json:"reply_to,omitempty"`
	Snippet     string        `json:"snippet,omitempty"`
	Body        string        `json:"body,omitempty"`
	Date        int64         `json:"date"` // Unix 秒
	Unread      bool          `json:"unread"`
	Starred     bool          `json:"starred"`
	Folders     []string      `json:"folders,omitempty"`
	Attachments []Attachment  `json:"attachments,omitempty"`
}

// Folder 服务商原生文件夹（inbox、sent 等）
type Folder struct {
	ID           string `json:"id"`
	GrantID      string `json:"grant_id"`
	Name         string `json:"name"`
	SystemFolder bool   `json:"system_folder"`
	TotalCount   int    `json:"total_count,omitempty"`
	UnreadCount  int    `json:"unread_count,omitempty"`
}

// Draft 草稿
type Draft struct {
	ID      string        `json:"id,omitempty"`
	GrantID string        `json:"grant_id,omitempty"`
	Subject string        `json:"subject"`
	To      []Participant `json:"to,omitempty"`
	Cc      []Participant `json:"cc,omitempty"`
	Bcc     []Participant `json:"bcc,omitempty"`
	Body    string        `json:"body"`
	Date    int64         `json:"date,omitempty"`
}

// SendRequest 发送邮件请求体
type SendRequest struct {
	Subject        string        `json:"subject"`
	To             []Participant `json:"to"`
	Cc             []Participant `json:"cc,omitempty"`
	Bcc            []Participant `json:"bcc,omitempty"`
	ReplyTo        []Participant `json:"reply_to,omitempty"`
	Body           string        `json:"body"`
	ReplyToMessage string        `json:"reply_to_message_id,omitempty"`
}

// UpdateMessageRequest 更新邮件请求体（星标/已读/移动文件夹）
type UpdateMessageRequest struct {
	Starred *bool    `json:"starred,omitempty"`
	Unread  *bool    `json:"unread,omitempty"`
	Folders []string `json:"folders,omitempty"`
}

// Grant OAuth 授权信息
type Grant struct {
	ID        string `json:"id"`
	Provider  string `json:"provider"`
	Email     string `json:"email"`
	GrantedAt int64  `json:"created_at,omitempty"`
}

// TokenExchangeResponse OAuth 授权码交换响应
type TokenExchangeResponse struct {
	GrantID     string `json:"grant_id"`
	Email       string `json:"email"`
	Provider    string `json:"provider"`
	AccessToken string `json:"access_token,omitempty"`
}

// listEnvelope 服务商列表响应的统一包装
type listEnvelope[T any] struct {
	RequestID  string `json:"request_id"`
	Data       []T    `json:"data"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// objectEnvelope 服务商单对象响应的统一包装
type objectEnvelope[T any] struct {
	RequestID string `json:"request_id"`
	Data      T      `json:"data"`
}

// MessagePage 一页邮件及下一页游标
type MessagePage struct {
	Messages   []Message
	NextCursor string
}

// WebhookEnvelope Webhook 通知信封
//
// 单条通知位于 Data.Object；批量通知位于 Data.Objects。
type WebhookEnvelope struct {
	Specversion string      `json:"specversion,omitempty"`
	ID          string      `json:"id,omitempty"`
	Type        string      `json:"type"`
	Source      string      `json:"source,omitempty"`
	Time        int64       `json:"time,omitempty"`
	Data        WebhookData `json:"data"`
}

// WebhookData Webhook 通知数据体
type WebhookData struct {
	ApplicationID string    `json:"application_id,omitempty"`
	Object        Message   `json:"object"`
	Objects       []Message `json:"objects,omitempty"`
}

// Messages 返回该次投递包含的全部邮件（单条与批量统一处理）。
func (e *WebhookEnvelope) Messages() []Message {
	if len(e.Data.Objects) > 0 {
		return e.Data.Objects
	}
	if e.Data.Object.ID != "" {
		return []Message{e.Data.Object}
	}
	return nil
}

// Webhook 事件类型
const (
	WebhookMessageCreated = "message.created"
	WebhookMessageUpdated = "message.updated"
)
