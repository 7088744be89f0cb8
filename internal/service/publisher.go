package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/market-feed/internal/model"
)

// EventPublisher 在一个事务内落地领域实体与待扇出事件（outbox）
type EventPublisher struct{ db *gorm.DB }

func NewEventPublisher(db *gorm.DB) *EventPublisher { return &EventPublisher{db: db} }

// PublishComment 落地评论 + comment_created 事件
func (p *EventPublisher) PublishComment(ctx context.Context, comment *model.ContractComment) error {
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		ev := &model.FeedEvent{
			ID:         uuid.New().String(),
			EventType:  model.EventCommentCreated,
			ContractID: comment.ContractID,
			CommentID:  &comment.ID,
			Status:     model.EventStatusPending,
			CreatedAt:  time.Now(),
		}
		return tx.Create(ev).Error
	})
}

// PublishContract 落地市场 + contract_created 事件
func (p *EventPublisher) PublishContract(ctx context.Context, contract *model.Contract) error {
	if contract.ID == "" {
		contract.ID = uuid.New().String()
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(contract).Error; err != nil {
			return err
		}
		ev := &model.FeedEvent{
			ID:         uuid.New().String(),
			EventType:  model.EventContractCreated,
			ContractID: contract.ID,
			Status:     model.EventStatusPending,
			CreatedAt:  time.Now(),
		}
		return tx.Create(ev).Error
	})
}

// PublishNews 落地新闻与关联市场 + news_published 事件
func (p *EventPublisher) PublishNews(ctx context.Context, news *model.News, contractIDs []string) error {
	if news.ID == "" {
		news.ID = uuid.New().String()
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(news).Error; err != nil {
			return err
		}
		for _, contractID := range contractIDs {
			link := &model.NewsContract{
				ID:         uuid.New().String(),
				NewsID:     news.ID,
				ContractID: contractID,
			}
			if err := tx.Create(link).Error; err != nil {
				return err
			}
		}
		ev := &model.FeedEvent{
			ID:        uuid.New().String(),
			EventType: model.EventNewsPublished,
			NewsID:    &news.ID,
			Status:    model.EventStatusPending,
			CreatedAt: time.Now(),
		}
		return tx.Create(ev).Error
	})
}
