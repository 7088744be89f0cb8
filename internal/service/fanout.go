package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/market-feed/internal/model"
	"github.com/d60-Lab/market-feed/internal/repository"
	"github.com/d60-Lab/market-feed/pkg/logger"
)

// InterestResolver 给定市场与责任用户，返回候选用户到唯一 reason 的映射
type InterestResolver interface {
	UsersInterestedInContract(ctx context.Context, contract *model.Contract, responsibleUserID string, reasons []model.FeedReason, maxDistance float64) (map[string]model.FeedReason, error)
	UsersInterestedInNews(ctx context.Context, newsID string) (map[string]model.FeedReason, error)
}

// maxUnseenDuplicates 单用户未读重复行的上限；超过则删旧插新
const maxUnseenDuplicates = 2

// FanoutService 事件 → 兴趣用户 → 信息流行 的编排
//
// 写入是尽力而为的：批量写失败只记日志，不影响触发事件本身；
// 去重路径的 读-删-插 不包事务，并发下偶发重复行由展示侧去重兜底。
type FanoutService struct {
	feedRepo repository.FeedRepository
	resolver InterestResolver
}

func NewFanoutService(feedRepo repository.FeedRepository, resolver InterestResolver) *FanoutService {
	return &FanoutService{feedRepo: feedRepo, resolver: resolver}
}

// FeedRowProps 事件相关的可选引用列；空串表示缺省
type FeedRowProps struct {
	ContractID     string
	CommentID      string
	AnswerID       string
	CreatorID      string
	BetID          string
	NewsID         string
	GroupID        string
	ReactionID     string
	Data           *model.FeedPayload
	IdempotencyKey string
}

func buildFeedRow(userID string, reason model.FeedReason, dataType model.FeedDataType, eventTime, createdTime time.Time, props FeedRowProps) model.FeedItem {
	return model.FeedItem{
		UserID:         userID,
		DataType:       dataType,
		Reason:         reason,
		ContractID:     nilIfEmpty(props.ContractID),
		CommentID:      nilIfEmpty(props.CommentID),
		AnswerID:       nilIfEmpty(props.AnswerID),
		CreatorID:      nilIfEmpty(props.CreatorID),
		BetID:          nilIfEmpty(props.BetID),
		NewsID:         nilIfEmpty(props.NewsID),
		GroupID:        nilIfEmpty(props.GroupID),
		ReactionID:     nilIfEmpty(props.ReactionID),
		Data:           props.Data,
		EventTime:      eventTime,
		CreatedTime:    createdTime,
		IdempotencyKey: nilIfEmpty(props.IdempotencyKey),
	}
}

// InsertUserFeedRow 单行写入路径；userID 在排除表中时为 no-op
func (s *FanoutService) InsertUserFeedRow(ctx context.Context, userID string, reason model.FeedReason, dataType model.FeedDataType, eventTime time.Time, excludeUserIDs []string, props FeedRowProps) error {
	for _, excluded := range excludeUserIDs {
		if excluded == userID {
			return nil
		}
	}
	row := buildFeedRow(userID, reason, dataType, eventTime, time.Now(), props)
	return s.feedRepo.Insert(ctx, &row)
}

// insertRows 构行并批量写入；返回实际提交的行数
// 写失败在此边界吞掉（尽力而为），空批直接跳过
func (s *FanoutService) insertRows(ctx context.Context, users map[string]model.FeedReason, eventTime time.Time, dataType model.FeedDataType, excludeUserIDs []string, props FeedRowProps) int {
	exclude := make(map[string]struct{}, len(excludeUserIDs))
	for _, id := range excludeUserIDs {
		exclude[id] = struct{}{}
	}

	now := time.Now()
	rows := make([]model.FeedItem, 0, len(users))
	for userID, reason := range users {
		if _, ok := exclude[userID]; ok {
			continue
		}
		rows = append(rows, buildFeedRow(userID, reason, dataType, eventTime, now, props))
	}
	if len(rows) == 0 {
		return 0
	}

	if err := s.feedRepo.BulkInsert(ctx, rows); err != nil {
		logger.Error("bulk insert feed rows failed",
			zap.Error(err),
			zap.String("data_type", string(dataType)),
			zap.Int("rows", len(rows)))
		return 0
	}
	logger.Info("inserted feed rows",
		zap.String("data_type", string(dataType)),
		zap.Int("rows", len(rows)))
	return len(rows)
}

// AddCommentOnContract 新评论扇出（无去重步骤）
func (s *FanoutService) AddCommentOnContract(ctx context.Context, contract *model.Contract, comment *model.ContractComment, excludeUserIDs []string, idempotencyKey string) (int, error) {
	users, err := s.resolver.UsersInterestedInContract(ctx, contract, comment.UserID,
		[]model.FeedReason{
			model.ReasonFollowContract,
			model.ReasonFollowUser,
			model.ReasonLikedContract,
			model.ReasonSimilarToContract,
		},
		model.InterestDistanceThresholds[model.FeedNewComment])
	if err != nil {
		return 0, err
	}
	n := s.insertRows(ctx, users, comment.CreatedAt, model.FeedNewComment, excludeUserIDs, FeedRowProps{
		ContractID:     contract.ID,
		CommentID:      comment.ID,
		CreatorID:      comment.UserID,
		IdempotencyKey: idempotencyKey,
	})
	return n, nil
}

// ContractFeedOptions 通用市场扇出的可选项
type ContractFeedOptions struct {
	MaxInterestDistance float64
	// ResponsibleUserID 触发事件的用户；空则取市场创建者
	ResponsibleUserID string
	IdempotencyKey    string
	CurrentProb       *float64
	PreviousProb      *float64
}

// AddContractToFeed 通用市场扇出；reason 类别由调用方给定
func (s *FanoutService) AddContractToFeed(ctx context.Context, contract *model.Contract, reasons []model.FeedReason, dataType model.FeedDataType, excludeUserIDs []string, opts ContractFeedOptions) (int, error) {
	responsible := opts.ResponsibleUserID
	if responsible == "" {
		responsible = contract.CreatorID
	}
	users, err := s.resolver.UsersInterestedInContract(ctx, contract, responsible, reasons, opts.MaxInterestDistance)
	if err != nil {
		return 0, err
	}

	var data *model.FeedPayload
	if opts.CurrentProb != nil || opts.PreviousProb != nil {
		data = &model.FeedPayload{CurrentProb: opts.CurrentProb, PreviousProb: opts.PreviousProb}
	}
	n := s.insertRows(ctx, users, contract.CreatedAt, dataType, excludeUserIDs, FeedRowProps{
		ContractID:     contract.ID,
		CreatorID:      contract.CreatorID,
		Data:           data,
		IdempotencyKey: opts.IdempotencyKey,
	})
	logger.Info("added contract to feeds",
		zap.String("contract", contract.ID),
		zap.Int("users", len(users)))
	return n, nil
}

// UnseenContractFeedOptions 带去重的市场扇出可选项
type UnseenContractFeedOptions struct {
	MaxInterestDistance float64
	Data                *model.FeedPayload
}

// AddContractIfUnseen 带去重的市场扇出：
// 用户已有任一已读重复行 → 本次跳过该用户；
// 未读重复行超过上限 → 先删旧行再插入新行。
// 读-删-插 不包事务：并发扇出可能双双通过未读检查各插一行，
// 由展示侧去重兜底（保留原系统行为）。
func (s *FanoutService) AddContractIfUnseen(ctx context.Context, contract *model.Contract, reasons []model.FeedReason, dataType model.FeedDataType, excludeUserIDs []string, unseenNewerThan time.Time, opts UnseenContractFeedOptions) (int, error) {
	users, err := s.resolver.UsersInterestedInContract(ctx, contract, contract.CreatorID, reasons, opts.MaxInterestDistance)
	if err != nil {
		return 0, err
	}
	if len(users) == 0 {
		return 0, nil
	}

	userIDs := make([]string, 0, len(users))
	for userID := range users {
		userIDs = append(userIDs, userID)
	}
	duplicates, err := s.feedRepo.FindDuplicates(ctx, contract.ID, userIDs, unseenNewerThan)
	if err != nil {
		return 0, err
	}

	var rowsToDelete []uint64
	var ignoreUserIDs []string
	for _, userID := range userIDs {
		rows := duplicates[userID]
		seen := false
		for _, row := range rows {
			if row.SeenTime != nil {
				seen = true
				break
			}
		}
		// 已读行是曝光证据，不删；该用户本轮不再投放
		if seen {
			ignoreUserIDs = append(ignoreUserIDs, userID)
			continue
		}
		if len(rows) > maxUnseenDuplicates {
			for _, row := range rows {
				rowsToDelete = append(rowsToDelete, row.ID)
			}
		}
	}

	// 删除失败视为本次编排失败（非尽力而为路径）
	if err := s.feedRepo.DeleteByIDs(ctx, rowsToDelete); err != nil {
		return 0, err
	}

	n := s.insertRows(ctx, users, contract.CreatedAt, dataType,
		append(append([]string{}, excludeUserIDs...), ignoreUserIDs...),
		FeedRowProps{
			ContractID: contract.ID,
			CreatorID:  contract.CreatorID,
			Data:       opts.Data,
		})
	return n, nil
}

// AddTrendingContract 热门市场扇出；默认排除创建者
func (s *FanoutService) AddTrendingContract(ctx context.Context, contract *model.Contract, unseenNewerThan time.Time, data *model.FeedPayload) (int, error) {
	return s.AddContractIfUnseen(ctx, contract,
		[]model.FeedReason{
			model.ReasonFollowContract,
			model.ReasonLikedContract,
			model.ReasonSimilarToContract,
		},
		model.FeedTrendingContract,
		[]string{contract.CreatorID},
		unseenNewerThan,
		UnseenContractFeedOptions{
			MaxInterestDistance: model.InterestDistanceThresholds[model.FeedTrendingContract],
			Data:                data,
		})
}

// AddProbabilityChange 概率波动扇出
// 幂等键按自然日派生：同一市场同一天至多一条
func (s *FanoutService) AddProbabilityChange(ctx context.Context, contract *model.Contract) (int, error) {
	now := time.Now()
	key := fmt.Sprintf("%s-prob-change-%d-%d-%d", contract.ID, now.Year(), int(now.Month()), now.Day())
	current := contract.Prob
	previous := contract.Prob - contract.ProbChangeDay
	return s.AddContractToFeed(ctx, contract,
		[]model.FeedReason{
			model.ReasonFollowContract,
			model.ReasonLikedContract,
			model.ReasonSimilarToContract,
		},
		model.FeedProbabilityChanged,
		nil,
		ContractFeedOptions{
			MaxInterestDistance: model.InterestDistanceThresholds[model.FeedProbabilityChanged],
			IdempotencyKey:      key,
			CurrentProb:         &current,
			PreviousProb:        &previous,
		})
}

// AddNewsContracts 新闻关联市场扇出：对每个关联市场各做一次批量写
func (s *FanoutService) AddNewsContracts(ctx context.Context, newsID string, contracts []*model.Contract, eventTime time.Time) (int, error) {
	users, err := s.resolver.UsersInterestedInNews(ctx, newsID)
	if err != nil {
		return 0, err
	}
	logger.Info("resolved users interested in news",
		zap.String("news", newsID),
		zap.Int("users", len(users)))

	total := 0
	for _, contract := range contracts {
		total += s.insertRows(ctx, users, eventTime, model.FeedNewsWithContracts, nil, FeedRowProps{
			ContractID: contract.ID,
			CreatorID:  contract.CreatorID,
			NewsID:     newsID,
		})
	}
	return total, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
