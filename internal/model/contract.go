package model

import "time"

// Contract 预测市场问题（本服务只消费其少量字段）
type Contract struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	CreatorID string `gorm:"type:varchar(36);index:idx_contract_creator"`
	Question  string `gorm:"type:text"`
	// Prob 当前概率；ProbChangeDay 过去一天的带符号变化量
	Prob          float64
	ProbChangeDay float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Contract) TableName() string { return "contracts" }
