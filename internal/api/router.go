package api

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/market-feed/config"
	"github.com/d60-Lab/market-feed/internal/api/handler"
)

// NewRouter 组装路由与中间件
func NewRouter(h *handler.Handler, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(otelgin.Middleware("market-feed"))
	if cfg.Sentry.DSN != "" {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	v1 := r.Group("/api/v1")
	{
		feed := v1.Group("/feed")
		{
			feed.POST("/comments", h.PostComment)
			feed.POST("/contracts", h.PostContract)
			feed.POST("/contracts/:contract_id/trending", h.PostTrending)
			feed.POST("/contracts/:contract_id/prob-change", h.PostProbChange)
			feed.POST("/news", h.PostNews)
			feed.GET("/:user_id", h.GetUserFeed)
		}

		relations := v1.Group("/relations")
		{
			relations.POST("/contracts/follow", h.FollowContract)
			relations.POST("/contracts/unfollow", h.UnfollowContract)
			relations.POST("/contracts/like", h.LikeContract)
			relations.POST("/contracts/unlike", h.UnlikeContract)
			relations.POST("/users/follow", h.FollowUser)
			relations.POST("/users/unfollow", h.UnfollowUser)
		}
	}

	return r
}
