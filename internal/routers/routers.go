package routers

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/harbor-im/harbor/config"
	"github.com/harbor-im/harbor/internal/handlers"
	"github.com/harbor-im/harbor/internal/middlewares"
	"github.com/harbor-im/harbor/middleware/jwt"
	"github.com/harbor-im/harbor/utils/ratelimit"
)

// SetupRoutes 设置所有路由
func SetupRoutes(r *gin.Engine, cfg *config.Config,
	tokens *jwt.TokenManager,
	limiter ratelimit.Limiter,
	userHandler *handlers.UserHandler,
	messageHandler *handlers.MessageHandler,
	friendHandler *handlers.FriendHandler,
	groupHandler *handlers.GroupHandler,
	wsHandler *handlers.WSHandler,
) {
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsCfg))

	auth := middlewares.AuthMiddleware(tokens)

	// WebSocket 路由 (token 走 query 参数)
	r.GET("/ws", auth, wsHandler.Serve)

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	if cfg.RateLimit.Enabled && limiter != nil {
		r.Use(middlewares.RateLimitMiddleware(limiter, &cfg.RateLimit))
	}

	registerUserRoutes(r, auth, userHandler)
	registerMessageRoutes(r, auth, messageHandler)
	registerFriendRoutes(r, auth, friendHandler)
	registerGroupRoutes(r, auth, groupHandler)
}

func registerUserRoutes(r *gin.Engine, auth gin.HandlerFunc, h *handlers.UserHandler) {
	userGroup := r.Group("/api/v1/users")
	{
		userGroup.POST("/register", h.Register) // 注册
		userGroup.POST("/login", h.Login)       // 登录
	}
	userGroup.Use(auth)
	{
		userGroup.GET("/contacts", h.Contacts) // 联系人列表
	}
}

func registerMessageRoutes(r *gin.Engine, auth gin.HandlerFunc, h *handlers.MessageHandler) {
	msgGroup := r.Group("/api/v1/messages")
	msgGroup.Use(auth)
	{
		msgGroup.GET("/private/:partnerId", h.PrivateHistory) // 私聊历史
		msgGroup.GET("/group/:groupId", h.GroupHistory)       // 群聊历史
		msgGroup.GET("/sessions", h.Sessions)                 // 会话列表
		msgGroup.GET("/unread", h.UnreadCount)                // 未读数
		msgGroup.POST("/read", h.MarkRead)                    // 标记已读
		msgGroup.DELETE("/:id", h.Hide)                       // 单侧删除
	}
}

func registerFriendRoutes(r *gin.Engine, auth gin.HandlerFunc, h *handlers.FriendHandler) {
	friendGroup := r.Group("/api/v1/friends")
	friendGroup.Use(auth)
	{
		friendGroup.GET("/requests", h.Pending)        // 待处理好友请求
		friendGroup.POST("/requests", h.Send)          // 发起好友请求
		friendGroup.PUT("/requests/:id", h.Handle)     // 接受或拒绝
	}
}

func registerGroupRoutes(r *gin.Engine, auth gin.HandlerFunc, h *handlers.GroupHandler) {
	groupGroup := r.Group("/api/v1/groups")
	groupGroup.Use(auth)
	{
		groupGroup.POST("", h.Create)                   // 创建群组
		groupGroup.GET("/mine", h.Mine)                 // 我的群组
		groupGroup.GET("/:groupId/members", h.Members)  // 群成员
	}
}
