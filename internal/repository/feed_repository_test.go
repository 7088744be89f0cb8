package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/market-feed/internal/model"
)

func setupFeedDB(t testing.TB) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&model.FeedItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }

func feedRow(userID, contractID string, key string, createdTime time.Time) model.FeedItem {
	item := model.FeedItem{
		UserID:      userID,
		DataType:    model.FeedNewContract,
		Reason:      model.ReasonFollowContract,
		ContractID:  strPtr(contractID),
		EventTime:   createdTime,
		CreatedTime: createdTime,
	}
	if key != "" {
		item.IdempotencyKey = &key
	}
	return item
}

func TestInsert_IdempotencyKeyConflictIsNoop(t *testing.T) {
	db := setupFeedDB(t)
	repo := NewFeedRepository(db)
	ctx := context.Background()

	first := feedRow("alice", "c1", "c1-prob-change-2026-8-29", time.Now())
	require.NoError(t, repo.Insert(ctx, &first))

	// 相同 (user_id, idempotency_key) 再插一次：静默跳过
	second := feedRow("alice", "c1", "c1-prob-change-2026-8-29", time.Now())
	require.NoError(t, repo.Insert(ctx, &second))

	var count int64
	require.NoError(t, db.Model(&model.FeedItem{}).Where("user_id = ?", "alice").Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestInsert_NilIdempotencyKeyNeverConflicts(t *testing.T) {
	db := setupFeedDB(t)
	repo := NewFeedRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		row := feedRow("alice", "c1", "", time.Now())
		require.NoError(t, repo.Insert(ctx, &row))
	}

	var count int64
	require.NoError(t, db.Model(&model.FeedItem{}).Where("user_id = ?", "alice").Count(&count).Error)
	require.EqualValues(t, 3, count)
}

func TestBulkInsert_SkipsConflictingRowsOnly(t *testing.T) {
	db := setupFeedDB(t)
	repo := NewFeedRepository(db)
	ctx := context.Background()

	seed := feedRow("alice", "c1", "contract-c1", time.Now())
	require.NoError(t, repo.Insert(ctx, &seed))

	batch := []model.FeedItem{
		feedRow("alice", "c1", "contract-c1", time.Now()), // 冲突，跳过
		feedRow("bob", "c1", "contract-c1", time.Now()),
		feedRow("carol", "c1", "contract-c1", time.Now()),
	}
	require.NoError(t, repo.BulkInsert(ctx, batch))

	var count int64
	require.NoError(t, db.Model(&model.FeedItem{}).Count(&count).Error)
	require.EqualValues(t, 3, count)
}

func TestFindDuplicates_GroupsByUserAndFiltersByTime(t *testing.T) {
	db := setupFeedDB(t)
	repo := NewFeedRepository(db)
	ctx := context.Background()

	now := time.Now()
	old := feedRow("alice", "c1", "", now.Add(-48*time.Hour))
	recent1 := feedRow("alice", "c1", "", now.Add(-time.Hour))
	recent2 := feedRow("alice", "c1", "", now.Add(-30*time.Minute))
	other := feedRow("bob", "c2", "", now.Add(-time.Hour)) // 不同市场
	seenTime := now.Add(-10 * time.Minute)
	seenRow := feedRow("bob", "c1", "", now.Add(-time.Hour))
	seenRow.SeenTime = &seenTime
	for _, row := range []*model.FeedItem{&old, &recent1, &recent2, &other, &seenRow} {
		require.NoError(t, repo.Insert(ctx, row))
	}

	dups, err := repo.FindDuplicates(ctx, "c1", []string{"alice", "bob", "dave"}, now.Add(-24*time.Hour))
	require.NoError(t, err)

	// alice 只有 24h 内的两行；48h 前的旧行被时间过滤
	require.Len(t, dups["alice"], 2)
	require.Len(t, dups["bob"], 1)
	require.NotNil(t, dups["bob"][0].SeenTime)
	// 无匹配的用户不出现在结果中
	_, ok := dups["dave"]
	require.False(t, ok)
}

func TestDeleteByIDs(t *testing.T) {
	db := setupFeedDB(t)
	repo := NewFeedRepository(db)
	ctx := context.Background()

	a := feedRow("alice", "c1", "", time.Now())
	b := feedRow("bob", "c1", "", time.Now())
	require.NoError(t, repo.Insert(ctx, &a))
	require.NoError(t, repo.Insert(ctx, &b))

	// 空集 no-op
	require.NoError(t, repo.DeleteByIDs(ctx, nil))

	require.NoError(t, repo.DeleteByIDs(ctx, []uint64{a.ID}))
	var count int64
	require.NoError(t, db.Model(&model.FeedItem{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestListForUser_OrderAndLimit(t *testing.T) {
	db := setupFeedDB(t)
	repo := NewFeedRepository(db)
	ctx := context.Background()

	now := time.Now()
	for i := 0; i < 5; i++ {
		row := feedRow("alice", fmt.Sprintf("c%d", i), "", now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Insert(ctx, &row))
	}

	items, err := repo.ListForUser(ctx, "alice", 3)
	require.NoError(t, err)
	require.Len(t, items, 3)
	// 按写入时间倒序
	require.Equal(t, "c4", *items[0].ContractID)
	require.Equal(t, "c3", *items[1].ContractID)
	require.Equal(t, "c2", *items[2].ContractID)
}

func BenchmarkBulkInsert(b *testing.B) {
	db := setupFeedDB(b)
	repo := NewFeedRepository(db)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		batch := make([]model.FeedItem, 100)
		for j := range batch {
			batch[j] = feedRow(fmt.Sprintf("u%d-%d", i, j), "c1", "", time.Now())
		}
		_ = repo.BulkInsert(ctx, batch)
	}
}

func BenchmarkFindDuplicates(b *testing.B) {
	db := setupFeedDB(b)
	repo := NewFeedRepository(db)
	ctx := context.Background()

	userIDs := make([]string, 500)
	rows := make([]model.FeedItem, 0, 500)
	for i := range userIDs {
		userIDs[i] = fmt.Sprintf("u%04d", i)
		rows = append(rows, feedRow(userIDs[i], "c1", "", time.Now()))
	}
	if err := repo.BulkInsert(ctx, rows); err != nil {
		b.Fatalf("seed: %v", err)
	}

	since := time.Now().Add(-time.Hour)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = repo.FindDuplicates(ctx, "c1", userIDs, since)
	}
}
