package service

import (
	"context"
	"errors"

	"github.com/d60-Lab/market-feed/internal/repository"
)

var (
	ErrFollowSelf = errors.New("cannot follow self")
)

// RelationService 关注/点赞写入（供兴趣解析消费）
type RelationService interface {
	FollowContract(ctx context.Context, userID, contractID string) error
	UnfollowContract(ctx context.Context, userID, contractID string) error
	FollowUser(ctx context.Context, followerID, followeeID string) error
	UnfollowUser(ctx context.Context, followerID, followeeID string) error
	LikeContract(ctx context.Context, userID, contractID string) error
	UnlikeContract(ctx context.Context, userID, contractID string) error
}

type relationService struct {
	contractFollowRepo repository.ContractFollowRepository
	userFollowRepo     repository.UserFollowRepository
	likeRepo           repository.ContractLikeRepository
}

func NewRelationService(contractFollowRepo repository.ContractFollowRepository, userFollowRepo repository.UserFollowRepository, likeRepo repository.ContractLikeRepository) RelationService {
	return &relationService{
		contractFollowRepo: contractFollowRepo,
		userFollowRepo:     userFollowRepo,
		likeRepo:           likeRepo,
	}
}

func (s *relationService) FollowContract(ctx context.Context, userID, contractID string) error {
	return s.contractFollowRepo.Create(ctx, userID, contractID)
}

func (s *relationService) UnfollowContract(ctx context.Context, userID, contractID string) error {
	return s.contractFollowRepo.Delete(ctx, userID, contractID)
}

func (s *relationService) FollowUser(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return ErrFollowSelf
	}
	return s.userFollowRepo.Create(ctx, followerID, followeeID)
}

func (s *relationService) UnfollowUser(ctx context.Context, followerID, followeeID string) error {
	return s.userFollowRepo.Delete(ctx, followerID, followeeID)
}

func (s *relationService) LikeContract(ctx context.Context, userID, contractID string) error {
	return s.likeRepo.Create(ctx, userID, contractID)
}

func (s *relationService) UnlikeContract(ctx context.Context, userID, contractID string) error {
	return s.likeRepo.Delete(ctx, userID, contractID)
}
