package router

import (
	"vidtube-go/internal/api/handler"
	"vidtube-go/internal/api/middleware"

	"github.com/gin-gonic/gin"
)

// Setup 注册所有业务路由
func Setup(
	r *gin.Engine,
	authHandler *handler.AuthHandler,
	videoHandler *handler.VideoHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	searchHandler *handler.SearchHandler,
) {
	v1 := r.Group("/api/v1")

	// --- 认证模块 ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authRequired := auth.Group("", middleware.AuthRequired())
		{
			authRequired.POST("/logout", authHandler.Logout)
			authRequired.GET("/me", authHandler.Me)
		}
	}

	// --- 视频模块 ---
	videos := v1.Group("/videos")
	{
		// 公开接口（不需要登录）
		videos.GET("/search", searchHandler.Search)
		videos.GET("/:videoId", videoHandler.GetDetail)

		videosAuth := videos.Group("", middleware.AuthRequired())
		{
			videosAuth.POST("/publish", videoHandler.Publish)
			videosAuth.GET("", videoHandler.List)
			videosAuth.PATCH("/:videoId", videoHandler.Update)
			videosAuth.DELETE("/:videoId", videoHandler.Delete)
			videosAuth.PATCH("/toggle/publish/:videoId", videoHandler.TogglePublish)
		}
	}

	// --- 订阅模块 ---
	subscriptions := v1.Group("/subscriptions", middleware.AuthRequired())
	{
		subscriptions.POST("/toggle/:channelId", subscriptionHandler.Toggle)
		subscriptions.GET("/subscribers/:channelId", subscriptionHandler.ListSubscribers)
		subscriptions.GET("/channels/:subscriberId", subscriptionHandler.ListSubscribedChannels)
	}
}
