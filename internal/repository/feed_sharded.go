package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/market-feed/internal/model"
)

// ShardedFeedRepository 按 user_id 哈希分库的信息流仓储实现
// 同一用户的行总在同一分片，去重扫描可按用户路由
// 各分片的自增序列须配置为不重叠区间（DeleteByIDs 按行ID广播）
type ShardedFeedRepository struct {
	shards []*gorm.DB
}

// NewShardedFeedRepository 创建分库信息流仓储
func NewShardedFeedRepository(dbs []*gorm.DB) (FeedRepository, error) {
	if len(dbs) == 0 {
		return nil, fmt.Errorf("expected at least one shard database")
	}
	return &ShardedFeedRepository{shards: dbs}, nil
}

// RouteByUserID 根据用户ID路由到对应分片
func (r *ShardedFeedRepository) RouteByUserID(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(r.shards)))
}

func (r *ShardedFeedRepository) Insert(ctx context.Context, item *model.FeedItem) error {
	shard := r.shards[r.RouteByUserID(item.UserID)]
	return shard.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(item).Error
}

// BulkInsert 将批次按分片拆开，每个分片一条多行 insert
func (r *ShardedFeedRepository) BulkInsert(ctx context.Context, items []model.FeedItem) error {
	byShard := make(map[int][]model.FeedItem)
	for _, item := range items {
		idx := r.RouteByUserID(item.UserID)
		byShard[idx] = append(byShard[idx], item)
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(byShard))
	for idx, batch := range byShard {
		wg.Add(1)
		go func(idx int, batch []model.FeedItem) {
			defer wg.Done()
			if err := r.shards[idx].WithContext(ctx).
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(&batch).Error; err != nil {
				errChan <- err
			}
		}(idx, batch)
	}
	wg.Wait()
	close(errChan)

	if len(errChan) > 0 {
		return <-errChan
	}
	return nil
}

// FindDuplicates 按分片分组用户并发查询后合并
func (r *ShardedFeedRepository) FindDuplicates(ctx context.Context, contractID string, userIDs []string, createdAfter time.Time) (map[string][]DuplicateFeedRow, error) {
	usersByShard := make(map[int][]string)
	for _, userID := range userIDs {
		idx := r.RouteByUserID(userID)
		usersByShard[idx] = append(usersByShard[idx], userID)
	}

	type feedRow struct {
		ID       uint64
		UserID   string
		SeenTime *time.Time
	}

	res := make(map[string][]DuplicateFeedRow)
	var mu sync.Mutex
	var wg sync.WaitGroup
	errChan := make(chan error, len(usersByShard))

	for idx, users := range usersByShard {
		wg.Add(1)
		go func(idx int, users []string) {
			defer wg.Done()
			var rows []feedRow
			err := r.shards[idx].WithContext(ctx).
				Model(&model.FeedItem{}).
				Select("id", "user_id", "seen_time").
				Where("contract_id = ? AND user_id IN ? AND created_time > ?", contractID, users, createdAfter).
				Find(&rows).Error
			if err != nil {
				errChan <- err
				return
			}
			mu.Lock()
			for _, row := range rows {
				res[row.UserID] = append(res[row.UserID], DuplicateFeedRow{ID: row.ID, SeenTime: row.SeenTime})
			}
			mu.Unlock()
		}(idx, users)
	}
	wg.Wait()
	close(errChan)

	if len(errChan) > 0 {
		return nil, <-errChan
	}
	return res, nil
}

// DeleteByIDs 行ID不携带分片信息，广播到所有分片
func (r *ShardedFeedRepository) DeleteByIDs(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	var wg sync.WaitGroup
	errChan := make(chan error, len(r.shards))
	for _, shard := range r.shards {
		wg.Add(1)
		go func(shard *gorm.DB) {
			defer wg.Done()
			if err := shard.WithContext(ctx).Where("id IN ?", ids).Delete(&model.FeedItem{}).Error; err != nil {
				errChan <- err
			}
		}(shard)
	}
	wg.Wait()
	close(errChan)

	if len(errChan) > 0 {
		return <-errChan
	}
	return nil
}

func (r *ShardedFeedRepository) ListForUser(ctx context.Context, userID string, limit int) ([]*model.FeedItem, error) {
	if limit <= 0 {
		limit = 50
	}
	shard := r.shards[r.RouteByUserID(userID)]
	var items []*model.FeedItem
	err := shard.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_time DESC, id DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}
