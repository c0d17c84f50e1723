package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	DB      DBConfig      `mapstructure:"db"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Chain   ChainConfig   `mapstructure:"chain"`
	History HistoryConfig `mapstructure:"history"`
	Gas     GasConfig     `mapstructure:"gas"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpPort string `mapstructure:"http_port"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	MQType   string `mapstructure:"mq_type"` // "redis" or "kafka"
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

// ChainConfig 链上交互配置
type ChainConfig struct {
	RpcUrl      string `mapstructure:"rpc_url"`
	Multisender string `mapstructure:"multisender"` // 批量转账合约地址
	SenderKey   string `mapstructure:"sender_key"`  // Hex 私钥 (通常通过环境变量 CHAIN_SENDER_KEY 传入)
}

type HistoryConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// GasConfig 阈值用于把 Gas 估算标注为 low/medium/high
type GasConfig struct {
	LowThreshold uint64 `mapstructure:"low_threshold"`
	MidThreshold uint64 `mapstructure:"mid_threshold"`
}

var Global Config

func Init() {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name
	viper.AddConfigPath(".")      // optionally look for config in the working directory
	viper.AddConfigPath("./config")

	// 环境变量设置
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error if desired
			log.Printf("Warning: Config file not found, using defaults and environment variables")
		} else {
			// Config file was found but another error was produced
			log.Fatalf("Fatal error config file: %s \n", err)
		}
	}

	if err := viper.Unmarshal(&Global); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.http_port", "8080")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.user", "multisender_user")
	viper.SetDefault("db.password", "multisender_password")
	viper.SetDefault("db.name", "multisender_db")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.mq_type", "redis")

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})

	viper.SetDefault("chain.rpc_url", "http://localhost:8545")

	viper.SetDefault("history.capacity", 10)

	// 以 Gas 单位计的阈值: 10w 以下算 low, 50w 以下算 medium
	viper.SetDefault("gas.low_threshold", 100000)
	viper.SetDefault("gas.mid_threshold", 500000)
}
