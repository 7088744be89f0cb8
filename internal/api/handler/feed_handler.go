package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/market-feed/internal/model"
	"github.com/d60-Lab/market-feed/pkg/response"
)

type commentRequest struct {
	ContractID string `json:"contract_id" binding:"required"`
	UserID     string `json:"user_id" binding:"required"`
	Content    string `json:"content" binding:"required"`
}

// PostComment 新评论（事务内落 outbox，worker 异步扇出）
// @Summary 发表评论并触发信息流扇出
// @Tags 信息流
// @Accept json
// @Produce json
// @Param request body commentRequest true "评论内容"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/feed/comments [post]
func (h *Handler) PostComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	comment := &model.ContractComment{
		ContractID: req.ContractID,
		UserID:     req.UserID,
		Content:    req.Content,
	}
	if err := h.publisher.PublishComment(c.Request.Context(), comment); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"comment_id": comment.ID})
}

type contractRequest struct {
	CreatorID string  `json:"creator_id" binding:"required"`
	Question  string  `json:"question" binding:"required"`
	Prob      float64 `json:"prob"`
}

// PostContract 新市场（事务内落 outbox，worker 异步扇出）
// @Summary 创建市场并触发信息流扇出
// @Tags 信息流
// @Accept json
// @Produce json
// @Param request body contractRequest true "市场信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/feed/contracts [post]
func (h *Handler) PostContract(c *gin.Context) {
	var req contractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	contract := &model.Contract{
		CreatorID: req.CreatorID,
		Question:  req.Question,
		Prob:      req.Prob,
	}
	if err := h.publisher.PublishContract(c.Request.Context(), contract); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"contract_id": contract.ID})
}

type newsRequest struct {
	Title       string   `json:"title" binding:"required"`
	URL         string   `json:"url"`
	ContractIDs []string `json:"contract_ids" binding:"required"`
}

// PostNews 新闻及关联市场（事务内落 outbox，worker 异步扇出）
// @Summary 发布新闻并触发关联市场扇出
// @Tags 信息流
// @Accept json
// @Produce json
// @Param request body newsRequest true "新闻信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/feed/news [post]
func (h *Handler) PostNews(c *gin.Context) {
	var req newsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	news := &model.News{Title: req.Title, URL: req.URL, PublishedAt: time.Now()}
	if err := h.publisher.PublishNews(c.Request.Context(), news, req.ContractIDs); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"news_id": news.ID})
}

type trendingRequest struct {
	UnseenNewerThanHours int      `json:"unseen_newer_than_hours"`
	TrendingScore        *float64 `json:"trending_score"`
}

// PostTrending 热门市场扇出（同步：清理完成后返回）
// @Summary 将热门市场推入兴趣用户信息流
// @Tags 信息流
// @Accept json
// @Produce json
// @Param contract_id path string true "市场ID"
// @Param request body trendingRequest true "参数"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/feed/contracts/{contract_id}/trending [post]
func (h *Handler) PostTrending(c *gin.Context) {
	var req trendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	contract, err := h.contracts.GetByID(c.Request.Context(), c.Param("contract_id"))
	if err != nil {
		response.NotFound(c, "contract not found")
		return
	}
	hours := req.UnseenNewerThanHours
	if hours <= 0 {
		hours = 24
	}
	var data *model.FeedPayload
	if req.TrendingScore != nil {
		data = &model.FeedPayload{TrendingScore: req.TrendingScore}
	}
	n, err := h.fanout.AddTrendingContract(c.Request.Context(), contract,
		time.Now().Add(-time.Duration(hours)*time.Hour), data)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"inserted": n})
}

// PostProbChange 概率波动扇出（同一市场每天至多一条）
// @Summary 将概率波动推入兴趣用户信息流
// @Tags 信息流
// @Param contract_id path string true "市场ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/feed/contracts/{contract_id}/prob-change [post]
func (h *Handler) PostProbChange(c *gin.Context) {
	contract, err := h.contracts.GetByID(c.Request.Context(), c.Param("contract_id"))
	if err != nil {
		response.NotFound(c, "contract not found")
		return
	}
	n, err := h.fanout.AddProbabilityChange(c.Request.Context(), contract)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"inserted": n})
}

// GetUserFeed 查询某用户的信息流（排序由客户端负责，此处仅按写入时间倒序分页）
// @Summary 查询用户信息流
// @Tags 信息流
// @Param user_id path string true "用户ID"
// @Param limit query int false "条数" default(50)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/feed/{user_id} [get]
func (h *Handler) GetUserFeed(c *gin.Context) {
	userID := c.Param("user_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	items, err := h.feed.ListForUser(c.Request.Context(), userID, limit)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"user_id": userID, "items": items})
}
