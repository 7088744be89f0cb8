package handler

import (
	"github.com/d60-Lab/market-feed/internal/repository"
	"github.com/d60-Lab/market-feed/internal/service"
)

// Handler 聚合 HTTP 入口依赖
type Handler struct {
	fanout    *service.FanoutService
	publisher *service.EventPublisher
	relations service.RelationService
	contracts repository.ContractRepository
	feed      repository.FeedRepository
}

func New(fanout *service.FanoutService, publisher *service.EventPublisher, relations service.RelationService, contracts repository.ContractRepository, feed repository.FeedRepository) *Handler {
	return &Handler{
		fanout:    fanout,
		publisher: publisher,
		relations: relations,
		contracts: contracts,
		feed:      feed,
	}
}
