package interest

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/market-feed/internal/model"
	"github.com/d60-Lab/market-feed/pkg/logger"
)

// VectorSearcher 兴趣向量检索（外部打分服务；本服务不计算向量）
type VectorSearcher interface {
	// UsersNearContract 返回兴趣向量与市场距离不超过 maxDistance 的用户
	UsersNearContract(ctx context.Context, contractID string, maxDistance float64) ([]string, error)
	// UsersNearNews 同上，针对新闻条目向量
	UsersNearNews(ctx context.Context, newsID string, maxDistance float64) ([]string, error)
}

// Resolver 把请求的 reason 类别解析为 userID -> reason 映射
//
// 每个用户最多命中一个 reason：按调用方给出的类别顺序合并，先到先得。
type Resolver struct {
	db      *gorm.DB
	cache   *redis.Client
	vectors VectorSearcher
	ttl     time.Duration
}

// NewResolver 构建 resolver；cache 可为 nil（直接查库）
func NewResolver(db *gorm.DB, cache *redis.Client, vectors VectorSearcher, ttl time.Duration) *Resolver {
	if vectors == nil {
		vectors = noopVectorSearcher{}
	}
	return &Resolver{db: db, cache: cache, vectors: vectors, ttl: ttl}
}

func (r *Resolver) UsersInterestedInContract(ctx context.Context, contract *model.Contract, responsibleUserID string, reasons []model.FeedReason, maxDistance float64) (map[string]model.FeedReason, error) {
	out := make(map[string]model.FeedReason)
	for _, reason := range reasons {
		var (
			ids []string
			err error
		)
		switch reason {
		case model.ReasonFollowContract:
			ids, err = r.contractFollowerIDs(ctx, contract.ID)
		case model.ReasonFollowUser:
			err = r.db.WithContext(ctx).
				Model(&model.UserFollow{}).
				Where("followee_id = ?", responsibleUserID).
				Pluck("follower_id", &ids).Error
		case model.ReasonLikedContract:
			err = r.db.WithContext(ctx).
				Model(&model.ContractLike{}).
				Where("contract_id = ?", contract.ID).
				Pluck("user_id", &ids).Error
		case model.ReasonSimilarToContract:
			ids, err = r.vectors.UsersNearContract(ctx, contract.ID, maxDistance)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", reason, err)
		}
		for _, id := range ids {
			if _, ok := out[id]; !ok {
				out[id] = reason
			}
		}
	}
	return out, nil
}

func (r *Resolver) UsersInterestedInNews(ctx context.Context, newsID string) (map[string]model.FeedReason, error) {
	ids, err := r.vectors.UsersNearNews(ctx, newsID, model.InterestDistanceThresholds[model.FeedNewsWithContracts])
	if err != nil {
		return nil, fmt.Errorf("resolve news interest: %w", err)
	}
	out := make(map[string]model.FeedReason, len(ids))
	for _, id := range ids {
		out[id] = model.ReasonSimilarToNews
	}
	return out, nil
}

// contractFollowerIDs 市场关注者列表，redis list 缓存 + TTL
func (r *Resolver) contractFollowerIDs(ctx context.Context, contractID string) ([]string, error) {
	key := fmt.Sprintf("feed:followers:%s", contractID)
	if r.cache != nil {
		if ids, err := r.cache.LRange(ctx, key, 0, -1).Result(); err == nil && len(ids) > 0 {
			return ids, nil
		}
	}

	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&model.ContractFollow{}).
		Where("contract_id = ?", contractID).
		Order("created_at DESC").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}

	if r.cache != nil && len(ids) > 0 {
		pipe := r.cache.Pipeline()
		pipe.Del(ctx, key)
		pipe.RPush(ctx, key, interfaceSlice(ids)...)
		pipe.Expire(ctx, key, r.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			logger.Warn("cache contract followers", zap.String("contract", contractID), zap.Error(err))
		}
	}
	return ids, nil
}

func interfaceSlice(strs []string) []interface{} {
	result := make([]interface{}, len(strs))
	for i, s := range strs {
		result[i] = s
	}
	return result
}

// noopVectorSearcher 未配置向量服务时的空实现
type noopVectorSearcher struct{}

func (noopVectorSearcher) UsersNearContract(context.Context, string, float64) ([]string, error) {
	return nil, nil
}

func (noopVectorSearcher) UsersNearNews(context.Context, string, float64) ([]string, error) {
	return nil, nil
}
