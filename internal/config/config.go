package config

import (
	"os"
	"strconv"
	"time"

	commoncfg "examseat/common/config"
)

// Config examseat（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	// DBEnabled=false 或连接失败时回退到内存存储
	DBEnabled bool
	Database  commoncfg.DatabaseConfig
	Redis     RedisConfig
	MQTT      MQTTConfig
	Log       struct {
		Level  string
		Format string
	}
	Metrics struct {
		Enabled   bool
		Namespace string
	}
	// Rooms 启动时写入的考场目录，格式 "A:30,B:25"；目录非空时忽略
	Rooms string
}

// RedisConfig 结果缓存 + 名单事件流
type RedisConfig struct {
	commoncfg.RedisConfig
	Enabled      bool
	ResultsKey   string
	ResultsTTL   time.Duration
	Stream       string
	StreamMaxLen int64
}

// MQTTConfig 名单变更推送（默认禁用）
type MQTTConfig struct {
	commoncfg.MQTTConfig
	Enabled     bool
	TopicPrefix string
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Driver = getEnv("DB_DRIVER", "postgres")
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "examseat")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.Path = getEnv("DB_PATH", "examseat.db")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Enabled = getEnv("REDIS_ENABLED", "false") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)
	cfg.Redis.ResultsKey = getEnv("RESULTS_CACHE_KEY", "examseat:results")
	cfg.Redis.ResultsTTL = parseDuration(getEnv("RESULTS_CACHE_TTL", "5m"), 5*time.Minute)
	cfg.Redis.Stream = getEnv("ROSTER_EVENTS_STREAM", "examseat:roster:events")
	cfg.Redis.StreamMaxLen = int64(parseInt(getEnv("ROSTER_EVENTS_MAXLEN", "1000"), 1000))

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "examseat")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(clamp(parseInt(getEnv("MQTT_QOS", "1"), 1), 0, 2))
	cfg.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "examseat/roster")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Metrics.Enabled = getEnv("METRICS_ENABLED", "true") == "true"
	cfg.Metrics.Namespace = getEnv("METRICS_NAMESPACE", "examseat")

	cfg.Rooms = getEnv("SEED_ROOMS", "")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
