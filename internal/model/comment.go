package model

import "time"

// ContractComment 市场下的评论
type ContractComment struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	ContractID string `gorm:"type:varchar(36);index:idx_comment_contract;not null"`
	UserID     string `gorm:"type:varchar(36);index:idx_comment_user;not null"`
	Content    string `gorm:"type:text"`
	CreatedAt  time.Time
}

func (ContractComment) TableName() string { return "contract_comments" }
