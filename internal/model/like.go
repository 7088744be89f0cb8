package model

import "time"

// ContractLike 用户点赞市场
// ux_contract_like = (user_id, contract_id)
type ContractLike struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	UserID     string `gorm:"type:varchar(36);index:idx_clike_user;uniqueIndex:ux_contract_like;not null"`
	ContractID string `gorm:"type:varchar(36);index:idx_clike_contract;uniqueIndex:ux_contract_like;not null"`
	CreatedAt  time.Time
}

func (ContractLike) TableName() string { return "contract_likes" }
