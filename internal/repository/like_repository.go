package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/market-feed/internal/model"
)

type ContractLikeRepository interface {
	Create(ctx context.Context, userID, contractID string) error
	Delete(ctx context.Context, userID, contractID string) error
	ListLikerIDs(ctx context.Context, contractID string) ([]string, error)
}

type contractLikeRepository struct{ db *gorm.DB }

func NewContractLikeRepository(db *gorm.DB) ContractLikeRepository {
	return &contractLikeRepository{db: db}
}

func (r *contractLikeRepository) Create(ctx context.Context, userID, contractID string) error {
	l := &model.ContractLike{ID: uuid.New().String(), UserID: userID, ContractID: contractID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(l).Error
}

func (r *contractLikeRepository) Delete(ctx context.Context, userID, contractID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND contract_id = ?", userID, contractID).
		Delete(&model.ContractLike{}).Error
}

func (r *contractLikeRepository) ListLikerIDs(ctx context.Context, contractID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.ContractLike{}).
		Where("contract_id = ?", contractID).
		Pluck("user_id", &ids).Error
	return ids, err
}
