package interest

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/market-feed/internal/model"
)

func setupResolverDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.ContractFollow{}, &model.UserFollow{}, &model.ContractLike{}))
	return db
}

type recordingVectorSearcher struct {
	ids          []string
	lastDistance float64
}

func (r *recordingVectorSearcher) UsersNearContract(_ context.Context, _ string, maxDistance float64) ([]string, error) {
	r.lastDistance = maxDistance
	return r.ids, nil
}

func (r *recordingVectorSearcher) UsersNearNews(_ context.Context, _ string, maxDistance float64) ([]string, error) {
	r.lastDistance = maxDistance
	return r.ids, nil
}

func TestResolver_FirstRequestedReasonWins(t *testing.T) {
	db := setupResolverDB(t)
	ctx := context.Background()

	// alice 同时关注并点赞了 c1
	require.NoError(t, db.Create(&model.ContractFollow{ID: "f1", UserID: "alice", ContractID: "c1"}).Error)
	require.NoError(t, db.Create(&model.ContractLike{ID: "l1", UserID: "alice", ContractID: "c1"}).Error)
	require.NoError(t, db.Create(&model.ContractLike{ID: "l2", UserID: "bob", ContractID: "c1"}).Error)

	r := NewResolver(db, nil, nil, 0)
	contract := &model.Contract{ID: "c1", CreatorID: "creator"}

	users, err := r.UsersInterestedInContract(ctx, contract, "creator",
		[]model.FeedReason{model.ReasonFollowContract, model.ReasonLikedContract}, 0)
	require.NoError(t, err)
	require.Equal(t, model.ReasonFollowContract, users["alice"])
	require.Equal(t, model.ReasonLikedContract, users["bob"])

	// 类别顺序反转，合并结果跟着变
	users, err = r.UsersInterestedInContract(ctx, contract, "creator",
		[]model.FeedReason{model.ReasonLikedContract, model.ReasonFollowContract}, 0)
	require.NoError(t, err)
	require.Equal(t, model.ReasonLikedContract, users["alice"])
}

func TestResolver_FollowUserReasonTargetsResponsibleUser(t *testing.T) {
	db := setupResolverDB(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&model.UserFollow{ID: "f1", FollowerID: "alice", FolloweeID: "author"}).Error)
	require.NoError(t, db.Create(&model.UserFollow{ID: "f2", FollowerID: "bob", FolloweeID: "other"}).Error)

	r := NewResolver(db, nil, nil, 0)
	users, err := r.UsersInterestedInContract(ctx, &model.Contract{ID: "c1"}, "author",
		[]model.FeedReason{model.ReasonFollowUser}, 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, model.ReasonFollowUser, users["alice"])
}

func TestResolver_VectorReasonPassesThreshold(t *testing.T) {
	db := setupResolverDB(t)
	vectors := &recordingVectorSearcher{ids: []string{"carol"}}
	r := NewResolver(db, nil, vectors, 0)

	users, err := r.UsersInterestedInContract(context.Background(), &model.Contract{ID: "c1"}, "creator",
		[]model.FeedReason{model.ReasonSimilarToContract}, 0.15)
	require.NoError(t, err)
	require.Equal(t, model.ReasonSimilarToContract, users["carol"])
	require.InDelta(t, 0.15, vectors.lastDistance, 1e-9)
}

func TestResolver_NewsInterest(t *testing.T) {
	db := setupResolverDB(t)
	vectors := &recordingVectorSearcher{ids: []string{"alice", "bob"}}
	r := NewResolver(db, nil, vectors, 0)

	users, err := r.UsersInterestedInNews(context.Background(), "n1")
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, model.ReasonSimilarToNews, users["alice"])
	require.InDelta(t, model.InterestDistanceThresholds[model.FeedNewsWithContracts], vectors.lastDistance, 1e-9)
}

func TestResolver_ContractFollowerCache(t *testing.T) {
	db := setupResolverDB(t)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	require.NoError(t, db.Create(&model.ContractFollow{ID: "f1", UserID: "alice", ContractID: "c1"}).Error)
	require.NoError(t, db.Create(&model.ContractFollow{ID: "f2", UserID: "bob", ContractID: "c1"}).Error)

	r := NewResolver(db, cache, nil, time.Minute)
	contract := &model.Contract{ID: "c1", CreatorID: "creator"}

	users, err := r.UsersInterestedInContract(ctx, contract, "creator",
		[]model.FeedReason{model.ReasonFollowContract}, 0)
	require.NoError(t, err)
	require.Len(t, users, 2)

	// 清掉库里的关注关系：缓存命中时不回库
	require.NoError(t, db.Where("1 = 1").Delete(&model.ContractFollow{}).Error)
	users, err = r.UsersInterestedInContract(ctx, contract, "creator",
		[]model.FeedReason{model.ReasonFollowContract}, 0)
	require.NoError(t, err)
	require.Len(t, users, 2)

	// TTL 过期后回库，此时已无关注者
	mr.FastForward(2 * time.Minute)
	users, err = r.UsersInterestedInContract(ctx, contract, "creator",
		[]model.FeedReason{model.ReasonFollowContract}, 0)
	require.NoError(t, err)
	require.Empty(t, users)
}
