package domain

import "time"

// Label 表示应用自定义标签（区别于服务商原生文件夹）。
//
// 九个固定分类标签在数据库迁移时播种，运行期只读。
type Label struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Color     string    `json:"color" gorm:"type:varchar(20)"` // 十六进制颜色
	SortOrder int       `json:"sortOrder" gorm:"default:0"`
	CreatedAt time.Time `json:"createdAt"`
}

// 固定的九个分类标签名称。
// 分类器的输出必须命中其中之一，否则视为无效分类并丢弃。
const (
	LabelToRespond     = "To Respond"
	LabelFYI           = "FYI"
	LabelComment       = "Comment"
	LabelNotification  = "Notification"
	LabelMeetingUpdate = "Meeting Update"
	LabelAwaitingReply = "Awaiting Reply"
	LabelActioned      = "Actioned"
	LabelMarketing     = "Marketing"
	LabelPromotions    = "Promotions"
)

// ClassificationLabels 返回九个固定分类标签（按展示顺序）。
func ClassificationLabels() []Label {
	names := []struct {
		name  string
		color string
	}{
		{LabelToRespond, "#f87171"},
		{LabelFYI, "#fb923c"},
		{LabelComment, "#fbbf24"},
		{LabelNotification, "#34d399"},
		{LabelMeetingUpdate, "#22d3ee"},
		{LabelAwaitingReply, "#818cf8"},
		{LabelActioned, "#a78bfa"},
		{LabelMarketing, "#f472b6"},
		{LabelPromotions, "#94a3b8"},
	}

	labels := make([]Label, 0, len(names))
	for i, n := range names {
		labels = append(labels, Label{
			ID:        labelID(i + 1),
			Name:      n.name,
			Color:     n.color,
			SortOrder: i + 1,
		})
	}
	return labels
}

// labelID 生成固定标签的稳定 ID（label-1 .. label-9）。
func labelID(n int) string {
	const prefix = "label-"
	return prefix + string(rune('0'+n))
}
