package server

import (
	"multisender-core/internal/handler"
	"multisender-core/internal/handler/response"

	"multisender-core/pkg/monitor"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handlers 汇总路由需要的各个业务 Handler
type Handlers struct {
	Distribution *handler.DistributionHandler
	History      *handler.HistoryHandler
	AddressBook  *handler.AddressBookHandler
}

// NewHTTPRouter 初始化并返回一个 Gin Engine
func NewHTTPRouter(h Handlers) *gin.Engine {
	// 0. 初始化监控指标
	monitor.Init()

	// 1. 创建 Engine (使用默认中间件: Logger, Recovery)
	r := gin.Default()

	// 2. 注册通用中间件
	r.Use(monitor.PrometheusMiddleware())

	// 3. 注册基础路由
	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 4. 注册 API 路由组
	api := r.Group("/api/v1")
	{
		api.GET("/ping", func(c *gin.Context) {
			response.Success(c, gin.H{"pong": true})
		})

		api.POST("/asset", h.Distribution.SelectAsset)
		api.POST("/mode", h.Distribution.SetMode)
		api.GET("/rows", h.Distribution.GetRows)
		api.PUT("/rows", h.Distribution.SetRows)
		api.POST("/equal_amount", h.Distribution.SetEqualAmount)
		api.POST("/import", h.Distribution.ImportCSV)
		api.GET("/template", h.Distribution.Template)
		api.GET("/summary", h.Distribution.Summary)
		api.POST("/approve", h.Distribution.Approve)
		api.POST("/send", h.Distribution.Send)

		api.GET("/history", h.History.List)

		book := api.Group("/addressbook")
		{
			book.GET("", h.AddressBook.List)
			book.POST("", h.AddressBook.Save)
			book.DELETE("/:address", h.AddressBook.Remove)
		}
	}

	return r
}
