package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/market-feed/internal/model"
)

// DuplicateFeedRow 去重扫描返回的既有行
type DuplicateFeedRow struct {
	ID       uint64
	SeenTime *time.Time
}

// FeedRepository 信息流行的写入与去重查询
//
// Insert/BulkInsert 均为 insert-or-no-op：幂等键或自然键冲突时静默跳过，
// 不会覆盖已有行。BulkInsert 不接受空批（调用方负责守卫）。
type FeedRepository interface {
	Insert(ctx context.Context, item *model.FeedItem) error
	BulkInsert(ctx context.Context, items []model.FeedItem) error
	// FindDuplicates 返回 contract 在给定用户集内、created_time 晚于
	// createdAfter 的既有行，按用户分组；无匹配的用户不在结果中。
	FindDuplicates(ctx context.Context, contractID string, userIDs []string, createdAfter time.Time) (map[string][]DuplicateFeedRow, error)
	// DeleteByIDs 删除指定行；空集为 no-op。
	DeleteByIDs(ctx context.Context, ids []uint64) error
	ListForUser(ctx context.Context, userID string, limit int) ([]*model.FeedItem, error)
}

type feedRepository struct{ db *gorm.DB }

func NewFeedRepository(db *gorm.DB) FeedRepository { return &feedRepository{db: db} }

func (r *feedRepository) Insert(ctx context.Context, item *model.FeedItem) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(item).Error
}

func (r *feedRepository) BulkInsert(ctx context.Context, items []model.FeedItem) error {
	// 单条多行 insert，逐行 on conflict do nothing
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&items).Error
}

func (r *feedRepository) FindDuplicates(ctx context.Context, contractID string, userIDs []string, createdAfter time.Time) (map[string][]DuplicateFeedRow, error) {
	type feedRow struct {
		ID       uint64
		UserID   string
		SeenTime *time.Time
	}
	var rows []feedRow
	err := r.db.WithContext(ctx).
		Model(&model.FeedItem{}).
		Select("id", "user_id", "seen_time").
		Where("contract_id = ? AND user_id IN ? AND created_time > ?", contractID, userIDs, createdAfter).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	res := make(map[string][]DuplicateFeedRow, len(rows))
	for _, row := range rows {
		res[row.UserID] = append(res[row.UserID], DuplicateFeedRow{ID: row.ID, SeenTime: row.SeenTime})
	}
	return res, nil
}

func (r *feedRepository) DeleteByIDs(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.FeedItem{}).Error
}

func (r *feedRepository) ListForUser(ctx context.Context, userID string, limit int) ([]*model.FeedItem, error) {
	if limit <= 0 {
		limit = 50
	}
	var items []*model.FeedItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_time DESC, id DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}
