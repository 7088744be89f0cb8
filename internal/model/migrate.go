package model

// All 返回全部需迁移的模型
func All() []interface{} {
	return []interface{}{
		&User{},
		&Contract{},
		&ContractComment{},
		&News{},
		&NewsContract{},
		&ContractFollow{},
		&UserFollow{},
		&ContractLike{},
		&FeedItem{},
		&FeedEvent{},
	}
}
