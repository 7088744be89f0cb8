package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/d60-Lab/market-feed/internal/model"
	"github.com/d60-Lab/market-feed/internal/repository"
	"github.com/d60-Lab/market-feed/pkg/logger"
)

// FeedEventWorker 轮询 feed_events 并调用对应编排器扇出
//
// 单个事件失败只记日志并标记完成（扇出尽力而为，至多尝试一次），
// 不会阻塞后续事件。claim 速率由令牌桶限制以约束数据库压力。
type FeedEventWorker struct {
	db           *gorm.DB
	fanout       *FanoutService
	contractRepo repository.ContractRepository
	workers      int
	claimLimit   int
	pollInterval time.Duration
	limiter      *rate.Limiter
	metricsCh    chan time.Duration // event created -> processed latency
}

func NewFeedEventWorker(db *gorm.DB, fanout *FanoutService, contractRepo repository.ContractRepository, workers, claimLimit int, pollInterval time.Duration, claimsPerSecond float64) *FeedEventWorker {
	if workers <= 0 {
		workers = 4
	}
	if claimLimit <= 0 {
		claimLimit = 64
	}
	if pollInterval <= 0 {
		pollInterval = 50 * time.Millisecond
	}
	if claimsPerSecond <= 0 {
		claimsPerSecond = 20
	}
	return &FeedEventWorker{
		db:           db,
		fanout:       fanout,
		contractRepo: contractRepo,
		workers:      workers,
		claimLimit:   claimLimit,
		pollInterval: pollInterval,
		limiter:      rate.NewLimiter(rate.Limit(claimsPerSecond), 1),
		metricsCh:    make(chan time.Duration, 65536),
	}
}

func (w *FeedEventWorker) Metrics() <-chan time.Duration { return w.metricsCh }

// Start 启动若干 worker 轮询处理事件；返回停止函数。
func (w *FeedEventWorker) Start() func(context.Context) error {
	stop := make(chan struct{})
	for i := 0; i < w.workers; i++ {
		go w.loop(stop)
	}
	return func(ctx context.Context) error { close(stop); return nil }
}

func (w *FeedEventWorker) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !w.limiter.Allow() {
				continue
			}
			if err := w.processOnce(context.Background()); err != nil {
				logger.Warn("claim feed events", zap.Error(err))
			}
		}
	}
}

// processOnce claim一批 pending 事件并逐个扇出
func (w *FeedEventWorker) processOnce(ctx context.Context) error {
	type claimedEvent struct {
		ID         string
		EventType  string
		ContractID string
		CommentID  *string
		NewsID     *string
		CreatedAt  time.Time
	}
	var batch []claimedEvent
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// sqlite 无行锁语法；单实例下靠 status 流转即可
		lock := "FOR UPDATE SKIP LOCKED"
		if tx.Dialector.Name() == "sqlite" {
			lock = ""
		}
		query := fmt.Sprintf(`
            SELECT id, event_type, contract_id, comment_id, news_id, created_at
            FROM feed_events
            WHERE status = 'pending'
            ORDER BY created_at
            LIMIT ?
            %s
        `, lock)
		if err := tx.Raw(query, w.claimLimit).Scan(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		ids := make([]string, len(batch))
		for i, ev := range batch {
			ids[i] = ev.ID
		}
		return tx.Model(&model.FeedEvent{}).
			Where("id IN ?", ids).
			Update("status", model.EventStatusProcessing).Error
	})
	if err != nil {
		return err
	}

	for _, ev := range batch {
		n, err := w.dispatch(ctx, model.FeedEvent{
			ID:         ev.ID,
			EventType:  ev.EventType,
			ContractID: ev.ContractID,
			CommentID:  ev.CommentID,
			NewsID:     ev.NewsID,
			CreatedAt:  ev.CreatedAt,
		})
		if err != nil {
			logger.Warn("feed event fanout failed",
				zap.String("event", ev.ID),
				zap.String("type", ev.EventType),
				zap.Error(err))
		}
		now := time.Now()
		_ = w.db.WithContext(ctx).Model(&model.FeedEvent{}).
			Where("id = ?", ev.ID).
			Updates(map[string]any{
				"status":       model.EventStatusDone,
				"processed_at": now,
				"fanout_count": int64(n),
			}).Error
		if !ev.CreatedAt.IsZero() {
			select {
			case w.metricsCh <- time.Since(ev.CreatedAt):
			default:
			}
		}
	}
	return nil
}

func (w *FeedEventWorker) dispatch(ctx context.Context, ev model.FeedEvent) (int, error) {
	switch ev.EventType {
	case model.EventCommentCreated:
		if ev.CommentID == nil {
			return 0, fmt.Errorf("comment_created event %s without comment id", ev.ID)
		}
		var comment model.ContractComment
		if err := w.db.WithContext(ctx).Where("id = ?", *ev.CommentID).First(&comment).Error; err != nil {
			return 0, err
		}
		contract, err := w.contractRepo.GetByID(ctx, ev.ContractID)
		if err != nil {
			return 0, err
		}
		// 幂等键绑定评论ID：事件重投不会产生第二行
		return w.fanout.AddCommentOnContract(ctx, contract, &comment,
			[]string{comment.UserID}, "comment-"+comment.ID)

	case model.EventContractCreated:
		contract, err := w.contractRepo.GetByID(ctx, ev.ContractID)
		if err != nil {
			return 0, err
		}
		return w.fanout.AddContractToFeed(ctx, contract,
			[]model.FeedReason{model.ReasonFollowUser, model.ReasonSimilarToContract},
			model.FeedNewContract,
			[]string{contract.CreatorID},
			ContractFeedOptions{
				MaxInterestDistance: model.InterestDistanceThresholds[model.FeedNewContract],
				IdempotencyKey:      "contract-" + contract.ID,
			})

	case model.EventNewsPublished:
		if ev.NewsID == nil {
			return 0, fmt.Errorf("news_published event %s without news id", ev.ID)
		}
		var contractIDs []string
		if err := w.db.WithContext(ctx).
			Model(&model.NewsContract{}).
			Where("news_id = ?", *ev.NewsID).
			Pluck("contract_id", &contractIDs).Error; err != nil {
			return 0, err
		}
		contracts, err := w.contractRepo.GetByIDs(ctx, contractIDs)
		if err != nil {
			return 0, err
		}
		return w.fanout.AddNewsContracts(ctx, *ev.NewsID, contracts, ev.CreatedAt)

	default:
		return 0, fmt.Errorf("unknown feed event type %q", ev.EventType)
	}
}
