package model

import "time"

// ContractFollow 用户关注市场
// 复合唯一键，避免重复关注
// ux_contract_follow = (user_id, contract_id)
type ContractFollow struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	UserID     string `gorm:"type:varchar(36);index:idx_cfollow_user;uniqueIndex:ux_contract_follow;not null"`
	ContractID string `gorm:"type:varchar(36);index:idx_cfollow_contract;uniqueIndex:ux_contract_follow;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (ContractFollow) TableName() string { return "contract_follows" }

// UserFollow 关注关系（A 关注 B）
// ux_user_follow = (follower_id, followee_id)
type UserFollow struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	FollowerID string `gorm:"type:varchar(36);index:idx_ufollow_follower;uniqueIndex:ux_user_follow;not null"`
	FolloweeID string `gorm:"type:varchar(36);index:idx_ufollow_followee;uniqueIndex:ux_user_follow;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (UserFollow) TableName() string { return "user_follows" }
