package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tempmail/bot/internal/health"
	"tempmail/bot/internal/middleware"
	"tempmail/bot/internal/monitoring"
	"tempmail/bot/internal/storage"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	HealthChecker *health.HealthChecker
	Metrics       *monitoring.Metrics
	Sessions      storage.SessionRepository
	Logger        *zap.Logger
	Development   bool
}

// NewRouter 创建并返回 Gin 路由实例。
//
// 机器人本身通过长轮询与 Telegram 通信，这里只暴露探活、
// 健康检查和指标端点，供部署平台的 keep-alive 探测使用。
func NewRouter(deps RouterDependencies) *gin.Engine {
	if !deps.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))

	// keep-alive 探活
	router.GET("/", pingHandler)
	router.GET("/ping", pingHandler)

	// 健康检查
	router.GET("/health/live", gin.WrapF(deps.HealthChecker.LiveHandler()))
	router.GET("/health/ready", gin.WrapF(deps.HealthChecker.ReadyHandler()))

	// 运行状态
	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":          "ok",
			"active_sessions": deps.Sessions.Count(),
		})
	})

	// Prometheus 指标
	router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))

	return router
}

func pingHandler(c *gin.Context) {
	c.String(http.StatusOK, "Bot is alive")
}
