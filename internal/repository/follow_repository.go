package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/market-feed/internal/model"
)

type ContractFollowRepository interface {
	Create(ctx context.Context, userID, contractID string) error
	Delete(ctx context.Context, userID, contractID string) error
	ListFollowerIDs(ctx context.Context, contractID string) ([]string, error)
}

type contractFollowRepository struct{ db *gorm.DB }

func NewContractFollowRepository(db *gorm.DB) ContractFollowRepository {
	return &contractFollowRepository{db: db}
}

func (r *contractFollowRepository) Create(ctx context.Context, userID, contractID string) error {
	f := &model.ContractFollow{ID: uuid.New().String(), UserID: userID, ContractID: contractID}
	// 幂等：重复关注不报错
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(f).Error
}

func (r *contractFollowRepository) Delete(ctx context.Context, userID, contractID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND contract_id = ?", userID, contractID).
		Delete(&model.ContractFollow{}).Error
}

func (r *contractFollowRepository) ListFollowerIDs(ctx context.Context, contractID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.ContractFollow{}).
		Where("contract_id = ?", contractID).
		Pluck("user_id", &ids).Error
	return ids, err
}

type UserFollowRepository interface {
	Create(ctx context.Context, followerID, followeeID string) error
	Delete(ctx context.Context, followerID, followeeID string) error
	ListFollowerIDs(ctx context.Context, followeeID string) ([]string, error)
}

type userFollowRepository struct{ db *gorm.DB }

func NewUserFollowRepository(db *gorm.DB) UserFollowRepository {
	return &userFollowRepository{db: db}
}

func (r *userFollowRepository) Create(ctx context.Context, followerID, followeeID string) error {
	f := &model.UserFollow{ID: uuid.New().String(), FollowerID: followerID, FolloweeID: followeeID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(f).Error
}

func (r *userFollowRepository) Delete(ctx context.Context, followerID, followeeID string) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&model.UserFollow{}).Error
}

func (r *userFollowRepository) ListFollowerIDs(ctx context.Context, followeeID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.UserFollow{}).
		Where("followee_id = ?", followeeID).
		Pluck("follower_id", &ids).Error
	return ids, err
}
