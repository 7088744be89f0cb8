package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// FeedDataType 信息流条目的事件类型标签
type FeedDataType string

const (
	FeedNewComment         FeedDataType = "new_comment"
	FeedNewContract        FeedDataType = "new_contract"
	FeedProbabilityChanged FeedDataType = "contract_probability_changed"
	FeedTrendingContract   FeedDataType = "trending_contract"
	FeedNewsWithContracts  FeedDataType = "news_with_related_contracts"
)

// FeedReason 条目进入某个用户信息流的原因
type FeedReason string

const (
	ReasonFollowContract    FeedReason = "follow_contract"
	ReasonFollowUser        FeedReason = "follow_user"
	ReasonLikedContract     FeedReason = "liked_contract"
	ReasonSimilarToContract FeedReason = "similar_interest_vector_to_contract"
	ReasonSimilarToNews     FeedReason = "similar_interest_vector_to_news_vector"
)

// InterestDistanceThresholds 每种事件允许的最大兴趣向量距离
var InterestDistanceThresholds = map[FeedDataType]float64{
	FeedNewComment:         0.15,
	FeedNewContract:        0.125,
	FeedProbabilityChanged: 0.13,
	FeedTrendingContract:   0.125,
	FeedNewsWithContracts:  0.175,
}

// FeedPayload 按事件类型携带的结构化负载（存为 JSON 文本列）
type FeedPayload struct {
	CurrentProb   *float64 `json:"currentProb,omitempty"`
	PreviousProb  *float64 `json:"previousProb,omitempty"`
	TrendingScore *float64 `json:"trendingScore,omitempty"`
}

func (p FeedPayload) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *FeedPayload) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("unsupported feed payload column type %T", value)
	}
}

// FeedItem 用户信息流行（user_feed）
// 幂等：复合唯一键 (user_id, idempotency_key)，冲突时插入为 no-op
// 去重扫描走 (contract_id, user_id, created_time) 复合索引
type FeedItem struct {
	ID       uint64       `gorm:"primaryKey;autoIncrement"`
	UserID   string       `gorm:"type:varchar(36);not null;index:idx_feed_contract_user_created,priority:2;uniqueIndex:ux_feed_user_idem,priority:1"`
	DataType FeedDataType `gorm:"type:varchar(40);not null"`
	Reason   FeedReason   `gorm:"type:varchar(48);not null"`

	ContractID *string `gorm:"type:varchar(36);index:idx_feed_contract_user_created,priority:1"`
	CommentID  *string `gorm:"type:varchar(36)"`
	AnswerID   *string `gorm:"type:varchar(36)"`
	CreatorID  *string `gorm:"type:varchar(36)"`
	BetID      *string `gorm:"type:varchar(36)"`
	NewsID     *string `gorm:"type:varchar(36);index:idx_feed_news"`
	GroupID    *string `gorm:"type:varchar(36)"`
	ReactionID *string `gorm:"type:varchar(36)"`

	Data *FeedPayload `gorm:"type:text"`

	EventTime   time.Time `gorm:"not null"`
	CreatedTime time.Time `gorm:"not null;index:idx_feed_contract_user_created,priority:3"`
	// SeenTime 由外部读取方写入；本服务只读
	SeenTime *time.Time

	IdempotencyKey *string `gorm:"type:varchar(96);uniqueIndex:ux_feed_user_idem,priority:2"`
}

func (FeedItem) TableName() string { return "user_feed" }
