package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/market-feed/internal/model"
)

type ContractRepository interface {
	Create(ctx context.Context, contract *model.Contract) error
	GetByID(ctx context.Context, id string) (*model.Contract, error)
	// GetByIDs 按输入顺序返回存在的市场；缺失的跳过
	GetByIDs(ctx context.Context, ids []string) ([]*model.Contract, error)
}

type contractRepository struct{ db *gorm.DB }

func NewContractRepository(db *gorm.DB) ContractRepository {
	return &contractRepository{db: db}
}

func (r *contractRepository) Create(ctx context.Context, contract *model.Contract) error {
	return r.db.WithContext(ctx).Create(contract).Error
}

func (r *contractRepository) GetByID(ctx context.Context, id string) (*model.Contract, error) {
	var contract model.Contract
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&contract).Error; err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *contractRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.Contract, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var contracts []*model.Contract
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&contracts).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Contract, len(contracts))
	for _, c := range contracts {
		byID[c.ID] = c
	}
	ordered := make([]*model.Contract, 0, len(contracts))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}
