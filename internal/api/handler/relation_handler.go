package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/market-feed/internal/service"
	"github.com/d60-Lab/market-feed/pkg/response"
)

type contractRelationRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	ContractID string `json:"contract_id" binding:"required"`
}

type userRelationRequest struct {
	FromUserID string `json:"from_user_id" binding:"required"`
	ToUserID   string `json:"to_user_id" binding:"required"`
}

// FollowContract 关注市场（幂等）
// @Summary 关注市场
// @Tags 关系链
// @Accept json
// @Produce json
// @Param request body contractRelationRequest true "关注信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/relations/contracts/follow [post]
func (h *Handler) FollowContract(c *gin.Context) {
	var req contractRelationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.relations.FollowContract(c.Request.Context(), req.UserID, req.ContractID); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// UnfollowContract 取消关注市场
// @Summary 取消关注市场
// @Tags 关系链
// @Accept json
// @Produce json
// @Param request body contractRelationRequest true "取消关注信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/relations/contracts/unfollow [post]
func (h *Handler) UnfollowContract(c *gin.Context) {
	var req contractRelationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.relations.UnfollowContract(c.Request.Context(), req.UserID, req.ContractID); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// LikeContract 点赞市场（幂等）
// @Summary 点赞市场
// @Tags 关系链
// @Accept json
// @Produce json
// @Param request body contractRelationRequest true "点赞信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/relations/contracts/like [post]
func (h *Handler) LikeContract(c *gin.Context) {
	var req contractRelationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.relations.LikeContract(c.Request.Context(), req.UserID, req.ContractID); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// UnlikeContract 取消点赞市场
// @Summary 取消点赞市场
// @Tags 关系链
// @Accept json
// @Produce json
// @Param request body contractRelationRequest true "取消点赞信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/relations/contracts/unlike [post]
func (h *Handler) UnlikeContract(c *gin.Context) {
	var req contractRelationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.relations.UnlikeContract(c.Request.Context(), req.UserID, req.ContractID); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// FollowUser 关注用户
// @Summary 关注用户
// @Tags 关系链
// @Accept json
// @Produce json
// @Param request body userRelationRequest true "关注信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/relations/users/follow [post]
func (h *Handler) FollowUser(c *gin.Context) {
	var req userRelationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.relations.FollowUser(c.Request.Context(), req.FromUserID, req.ToUserID); err != nil {
		if errors.Is(err, service.ErrFollowSelf) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// UnfollowUser 取消关注用户
// @Summary 取消关注用户
// @Tags 关系链
// @Accept json
// @Produce json
// @Param request body userRelationRequest true "取消关注信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/relations/users/unfollow [post]
func (h *Handler) UnfollowUser(c *gin.Context) {
	var req userRelationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.relations.UnfollowUser(c.Request.Context(), req.FromUserID, req.ToUserID); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}
