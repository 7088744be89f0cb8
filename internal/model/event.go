package model

import "time"

// 事件类型
const (
	EventCommentCreated  = "comment_created"
	EventContractCreated = "contract_created"
	EventNewsPublished   = "news_published"
)

// 事件状态
const (
	EventStatusPending    = "pending"
	EventStatusProcessing = "processing"
	EventStatusDone       = "done"
)

// FeedEvent 待扇出事件（outbox，与触发写入同事务落地）
type FeedEvent struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	EventType   string `gorm:"type:varchar(32);index;not null"`
	ContractID  string `gorm:"type:varchar(36);index:idx_feed_event_contract"`
	CommentID   *string `gorm:"type:varchar(36)"`
	NewsID      *string `gorm:"type:varchar(36)"`
	Status      string  `gorm:"type:varchar(16);index"` // pending, processing, done
	CreatedAt   time.Time `gorm:"index"`
	ProcessedAt *time.Time
	FanoutCount int64
}

func (FeedEvent) TableName() string { return "feed_events" }
