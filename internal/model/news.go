package model

import "time"

// News 新闻条目
type News struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	Title       string `gorm:"type:text"`
	URL         string `gorm:"type:text"`
	PublishedAt time.Time
	CreatedAt   time.Time
}

func (News) TableName() string { return "news" }

// NewsContract 新闻与相关市场的关联
// ux_news_contract = (news_id, contract_id)
type NewsContract struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	NewsID     string `gorm:"type:varchar(36);index:idx_news_contract_news;uniqueIndex:ux_news_contract;not null"`
	ContractID string `gorm:"type:varchar(36);uniqueIndex:ux_news_contract;not null"`
	CreatedAt  time.Time
}

func (NewsContract) TableName() string { return "news_contracts" }
