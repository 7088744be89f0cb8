package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/market-feed/config"
	"github.com/d60-Lab/market-feed/internal/interest"
	"github.com/d60-Lab/market-feed/internal/model"
	"github.com/d60-Lab/market-feed/internal/repository"
	"github.com/d60-Lab/market-feed/internal/service"
	"github.com/d60-Lab/market-feed/pkg/database"
	"github.com/d60-Lab/market-feed/pkg/logger"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if v, e := strconv.Atoi(s); e == nil && v > 0 {
			return v
		}
	}
	return def
}

func main() {
	cfg := must(config.Load())
	_ = logger.Init("warn")
	db := must(database.InitDB(cfg))
	if err := db.AutoMigrate(model.All()...); err != nil {
		panic(err)
	}

	// params
	N := envInt("N", 20000)             // followers of the hot contract
	COMMENTS := envInt("COMMENTS", 100) // comment events to publish
	WORKERS := envInt("WORKERS", 8)
	CLAIM := envInt("CLAIM", 64)

	// clean tables for a reproducible run (ok for local bench)
	_ = db.Exec("TRUNCATE TABLE user_feed, feed_events, contract_comments, news_contracts, news, contract_likes, contract_follows, user_follows, contracts, users RESTART IDENTITY CASCADE").Error

	contractFollowRepo := repository.NewContractFollowRepository(db)
	contractRepo := repository.NewContractRepository(db)
	feedRepo := repository.NewFeedRepository(db)

	// seed one contract and N followers
	creator := model.User{ID: "creator0", Username: "creator0", Email: "creator0@example.com"}
	_ = db.Where("id = ?", creator.ID).FirstOrCreate(&creator).Error
	contract := &model.Contract{ID: "c0", CreatorID: creator.ID, Question: "will it land?", Prob: 0.5}
	if err := contractRepo.Create(context.Background(), contract); err != nil {
		panic(err)
	}

	users := make([]model.User, N)
	for i := 0; i < N; i++ {
		id := uuid.New().String()
		users[i] = model.User{ID: id, Username: "u" + id[:8], Email: id[:8] + "@example.com"}
	}
	_ = db.CreateInBatches(&users, 1000).Error
	for i := 0; i < N; i++ {
		_ = contractFollowRepo.Create(context.Background(), users[i].ID, contract.ID)
	}

	resolver := interest.NewResolver(db, nil, nil, 0)
	fanout := service.NewFanoutService(feedRepo, resolver)
	publisher := service.NewEventPublisher(db)

	worker := service.NewFeedEventWorker(db, fanout, contractRepo, WORKERS, CLAIM, 20*time.Millisecond, 1000)
	stop := worker.Start()
	defer stop(context.Background())

	// publish COMMENTS comment events
	pubDurations := make([]time.Duration, 0, COMMENTS)
	for i := 0; i < COMMENTS; i++ {
		st := time.Now()
		comment := &model.ContractComment{ContractID: contract.ID, UserID: creator.ID, Content: fmt.Sprintf("update %d", i)}
		if err := publisher.PublishComment(context.Background(), comment); err != nil {
			panic(err)
		}
		pubDurations = append(pubDurations, time.Since(st))
	}

	// collect landing metrics
	land := make([]time.Duration, 0, COMMENTS)
	timeout := time.After(2 * time.Minute)
	for len(land) < COMMENTS {
		select {
		case d := <-worker.Metrics():
			land = append(land, d)
		case <-timeout:
			fmt.Printf("timeout while waiting for fanout metrics: got=%d want=%d\n", len(land), COMMENTS)
			goto PRINT
		}
	}

PRINT:
	var pubSum time.Duration
	for _, d := range pubDurations {
		pubSum += d
	}
	fmt.Printf("N=%d COMMENTS=%d WORKERS=%d CLAIM=%d\n", N, COMMENTS, WORKERS, CLAIM)
	fmt.Printf("Publish tx latency: avg=%v p95=%v p99=%v\n", pubSum/time.Duration(len(pubDurations)), pct(pubDurations, 0.95), pct(pubDurations, 0.99))
	if len(land) > 0 {
		var landSum time.Duration
		for _, d := range land {
			landSum += d
		}
		fmt.Printf("Fanout landing (event->done): samples=%d avg=%v p95=%v p99=%v\n", len(land), landSum/time.Duration(len(land)), pct(land, 0.95), pct(land, 0.99))
	}

	// measure one user's feed read (first page)
	if len(users) > 0 {
		st := time.Now()
		rows, _ := feedRepo.ListForUser(context.Background(), users[0].ID, 50)
		fmt.Printf("Feed read (user0, limit=50): %v, rows=%d\n", time.Since(st), len(rows))
	}

	// SHARDED=n 时额外跑分库批量写
	if shards := envInt("SHARDED", 1); shards > 1 {
		runShardedBench(shards, N)
	}
}

func runShardedBench(shards, n int) {
	dbs := make([]*gorm.DB, shards)
	for i := range dbs {
		db := must(gorm.Open(sqlite.Open(":memory:"), &gorm.Config{}))
		if err := db.AutoMigrate(&model.FeedItem{}); err != nil {
			panic(err)
		}
		dbs[i] = db
	}
	repo := must(repository.NewShardedFeedRepository(dbs))

	rows := make([]model.FeedItem, n)
	now := time.Now()
	contractID := "c0"
	for i := range rows {
		rows[i] = model.FeedItem{
			UserID:      uuid.New().String(),
			DataType:    model.FeedTrendingContract,
			Reason:      model.ReasonFollowContract,
			ContractID:  &contractID,
			EventTime:   now,
			CreatedTime: now,
		}
	}

	st := time.Now()
	if err := repo.BulkInsert(context.Background(), rows); err != nil {
		panic(err)
	}
	fmt.Printf("Sharded bulk insert: shards=%d rows=%d took=%v\n", shards, n, time.Since(st))

	userIDs := make([]string, 0, 1000)
	for i := 0; i < len(rows) && i < 1000; i++ {
		userIDs = append(userIDs, rows[i].UserID)
	}
	st = time.Now()
	dups, err := repo.FindDuplicates(context.Background(), contractID, userIDs, now.Add(-time.Hour))
	if err != nil {
		panic(err)
	}
	fmt.Printf("Sharded duplicate scan: users=%d hits=%d took=%v\n", len(userIDs), len(dups), time.Since(st))
}
