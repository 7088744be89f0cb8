package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/market-feed/internal/interest"
	"github.com/d60-Lab/market-feed/internal/model"
	"github.com/d60-Lab/market-feed/internal/repository"
)

func setupWorkerDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

func newTestWorker(db *gorm.DB) *FeedEventWorker {
	resolver := interest.NewResolver(db, nil, nil, 0)
	fanout := NewFanoutService(repository.NewFeedRepository(db), resolver)
	return NewFeedEventWorker(db, fanout, repository.NewContractRepository(db), 1, 64, 10*time.Millisecond, 1000)
}

func TestWorker_CommentEventFansOutToFollowers(t *testing.T) {
	db := setupWorkerDB(t)
	ctx := context.Background()

	contractRepo := repository.NewContractRepository(db)
	followRepo := repository.NewContractFollowRepository(db)
	require.NoError(t, contractRepo.Create(ctx, &model.Contract{ID: "c1", CreatorID: "creator"}))
	require.NoError(t, followRepo.Create(ctx, "alice", "c1"))
	require.NoError(t, followRepo.Create(ctx, "bob", "c1"))
	require.NoError(t, followRepo.Create(ctx, "author", "c1"))

	publisher := NewEventPublisher(db)
	comment := &model.ContractComment{ContractID: "c1", UserID: "author", Content: "great question"}
	require.NoError(t, publisher.PublishComment(ctx, comment))

	worker := newTestWorker(db)
	require.NoError(t, worker.processOnce(ctx))

	// 作者排除后只有 alice、bob 收到
	var rows []model.FeedItem
	require.NoError(t, db.Order("user_id").Find(&rows).Error)
	require.Len(t, rows, 2)
	require.Equal(t, "alice", rows[0].UserID)
	require.Equal(t, "bob", rows[1].UserID)
	for _, row := range rows {
		require.Equal(t, model.FeedNewComment, row.DataType)
		require.Equal(t, model.ReasonFollowContract, row.Reason)
		require.Equal(t, comment.ID, *row.CommentID)
	}

	var ev model.FeedEvent
	require.NoError(t, db.First(&ev).Error)
	require.Equal(t, model.EventStatusDone, ev.Status)
	require.NotNil(t, ev.ProcessedAt)
	require.EqualValues(t, 2, ev.FanoutCount)
}

func TestWorker_RedeliveryDoesNotDuplicateRows(t *testing.T) {
	db := setupWorkerDB(t)
	ctx := context.Background()

	contractRepo := repository.NewContractRepository(db)
	followRepo := repository.NewContractFollowRepository(db)
	require.NoError(t, contractRepo.Create(ctx, &model.Contract{ID: "c1", CreatorID: "creator"}))
	require.NoError(t, followRepo.Create(ctx, "alice", "c1"))

	publisher := NewEventPublisher(db)
	comment := &model.ContractComment{ContractID: "c1", UserID: "author", Content: "hi"}
	require.NoError(t, publisher.PublishComment(ctx, comment))

	worker := newTestWorker(db)
	require.NoError(t, worker.processOnce(ctx))

	// 模拟重投：事件被重置回 pending
	require.NoError(t, db.Model(&model.FeedEvent{}).
		Where("1 = 1").
		Update("status", model.EventStatusPending).Error)
	require.NoError(t, worker.processOnce(ctx))

	var count int64
	require.NoError(t, db.Model(&model.FeedItem{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestWorker_ContractEventUsesUserFollows(t *testing.T) {
	db := setupWorkerDB(t)
	ctx := context.Background()

	contractRepo := repository.NewContractRepository(db)
	userFollowRepo := repository.NewUserFollowRepository(db)
	require.NoError(t, contractRepo.Create(ctx, &model.Contract{ID: "c1", CreatorID: "creator"}))
	require.NoError(t, userFollowRepo.Create(ctx, "alice", "creator"))
	require.NoError(t, userFollowRepo.Create(ctx, "creator", "somebody"))

	publisher := NewEventPublisher(db)
	contract := &model.Contract{ID: "c2", CreatorID: "creator", Question: "?"}
	require.NoError(t, publisher.PublishContract(ctx, contract))

	worker := newTestWorker(db)
	require.NoError(t, worker.processOnce(ctx))

	var rows []model.FeedItem
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, "alice", rows[0].UserID)
	require.Equal(t, model.FeedNewContract, rows[0].DataType)
	require.Equal(t, model.ReasonFollowUser, rows[0].Reason)
	require.Equal(t, "c2", *rows[0].ContractID)
}

func TestWorker_NewsEventFansOutPerLinkedContract(t *testing.T) {
	db := setupWorkerDB(t)
	ctx := context.Background()

	contractRepo := repository.NewContractRepository(db)
	require.NoError(t, contractRepo.Create(ctx, &model.Contract{ID: "c1", CreatorID: "x"}))
	require.NoError(t, contractRepo.Create(ctx, &model.Contract{ID: "c2", CreatorID: "y"}))

	publisher := NewEventPublisher(db)
	news := &model.News{Title: "breaking", PublishedAt: time.Now()}
	require.NoError(t, publisher.PublishNews(ctx, news, []string{"c1", "c2"}))

	// 向量检索固定返回 alice
	resolver := interest.NewResolver(db, nil, fixedVectorSearcher{ids: []string{"alice"}}, 0)
	fanout := NewFanoutService(repository.NewFeedRepository(db), resolver)
	worker := NewFeedEventWorker(db, fanout, contractRepo, 1, 64, 10*time.Millisecond, 1000)
	require.NoError(t, worker.processOnce(ctx))

	var rows []model.FeedItem
	require.NoError(t, db.Where("user_id = ?", "alice").Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.Equal(t, model.FeedNewsWithContracts, row.DataType)
		require.Equal(t, model.ReasonSimilarToNews, row.Reason)
		require.Equal(t, news.ID, *row.NewsID)
	}
}

type fixedVectorSearcher struct{ ids []string }

func (f fixedVectorSearcher) UsersNearContract(context.Context, string, float64) ([]string, error) {
	return f.ids, nil
}

func (f fixedVectorSearcher) UsersNearNews(context.Context, string, float64) ([]string, error) {
	return f.ids, nil
}
