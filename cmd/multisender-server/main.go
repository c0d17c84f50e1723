package main

import (
	"fmt"

	"multisender-core/internal/chain"
	"multisender-core/internal/engine"
	"multisender-core/internal/handler"
	"multisender-core/internal/model"
	"multisender-core/internal/server"
	"multisender-core/internal/service"
	"multisender-core/internal/service/mq"

	"multisender-core/pkg/cache"
	"multisender-core/pkg/config"
	"multisender-core/pkg/database"
	"multisender-core/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// @title MultiSender Core API
// @version 1.0
// @description Batch asset distribution server API

// @host localhost:8080
// @BasePath /api/v1
func main() {
	// 0. 初始化 Config
	config.Init()

	// 1. 初始化 Logger
	logger.Init(config.Global.App.Env)
	defer logger.Sync()

	// 2. 构造 DSN 并连接数据库
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=Asia/Shanghai",
		config.Global.DB.Host,
		config.Global.DB.User,
		config.Global.DB.Password,
		config.Global.DB.Name,
		config.Global.DB.Port,
	)

	db, err := database.ConnectPostgres(dsn)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}

	// 3. 连接 Redis
	rdb, err := database.ConnectRedis(config.Global.Redis.Addr, config.Global.Redis.Password, config.Global.Redis.DB)
	if err != nil {
		logger.Fatal("Redis 连接失败", zap.Error(err))
	}

	// 4. 执行数据库迁移 (Auto Migrate)
	if config.Global.App.Env == "development" {
		logger.Info("开发环境: 尝试自动迁移 Schema (GORM AutoMigrate)...")
		if err := db.AutoMigrate(model.AllModels()...); err != nil {
			logger.Fatal("数据库自动迁移失败", zap.Error(err))
		}
		logger.Info("数据库自动迁移完成 (Dev Mode)")
	} else {
		logger.Info("生产环境: 跳过 AutoMigrate，请使用 migrate 工具管理 Schema")
	}

	// 5. 代币元数据缓存
	metaCache := cache.NewRedisCache(rdb)

	// 6. 初始化链上客户端
	// RPC 不可达或未配置私钥时退回内存 MockClient，服务以【模拟模式】运行
	var chainClient chain.Client
	ethClient, err := chain.NewEthClient(
		config.Global.Chain.RpcUrl,
		config.Global.Chain.SenderKey,
		config.Global.Chain.Multisender,
		metaCache,
	)
	if err != nil {
		logger.Warn("无法初始化 ETH 客户端, 将运行在【模拟模式】", zap.Error(err))
		chainClient = chain.NewMockClient(
			common.Address{},
			common.HexToAddress(config.Global.Chain.Multisender),
		)
	} else {
		chainClient = ethClient
		logger.Info("已连接 ETH 节点",
			zap.String("rpc", config.Global.Chain.RpcUrl),
			zap.String("sender", ethClient.Sender().Hex()))
	}

	// 7. 初始化消息队列生产者
	var producer mq.Producer
	if config.Global.Redis.MQType == "kafka" {
		logger.Info("使用 Kafka 作为消息队列...")
		producer = mq.NewKafkaProducer(config.Global.Kafka.Brokers, service.TopicDistributionCompleted)
	} else {
		logger.Info("使用 Redis Streams 作为消息队列...")
		producer = mq.NewRedisProducer(rdb)
	}

	// 8. 初始化业务服务
	historyService := service.NewHistoryService(
		service.NewGormHistoryStore(db),
		config.Global.History.Capacity,
	)
	distributionService := service.NewDistributionService(
		chainClient,
		historyService,
		producer,
		engine.GasTierThresholds{
			Low: config.Global.Gas.LowThreshold,
			Mid: config.Global.Gas.MidThreshold,
		},
	)
	addressBookService := service.NewAddressBookService(service.NewGormAddressBookStore(db))

	// 9. HTTP Router
	r := server.NewHTTPRouter(server.Handlers{
		Distribution: handler.NewDistributionHandler(distributionService),
		History:      handler.NewHistoryHandler(historyService),
		AddressBook:  handler.NewAddressBookHandler(addressBookService),
	})

	// 10. 启动应用
	app, err := server.New(server.Config{HttpPort: config.Global.App.HttpPort}, r)
	if err != nil {
		logger.Fatal("应用启动失败", zap.Error(err))
	}

	// 运行 (阻塞)
	app.Run()

	// 11. 退出后资源清理
	logger.Info("正在关闭数据库连接...")
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	rdb.Close()
	logger.Info("系统已退出")
}
