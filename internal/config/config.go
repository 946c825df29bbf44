package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/common/config"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
)

// 告警状态存储类型
const (
	StateStoreRedis    = "redis"
	StateStoreDynamoDB = "dynamodb"
	StateStoreMemory   = "memory"
)

// 会话存储类型
const (
	SessionStorePostgres = "postgres"
	SessionStoreSQLite   = "sqlite"
	SessionStoreMemory   = "memory"
)

// ThresholdOverride 环境变量中的阈值覆盖项（nil 表示不覆盖）
type ThresholdOverride struct {
	Min         *float64
	Max         *float64
	CriticalMin *float64
	CriticalMax *float64
}

// ModelEndpoint 外部模型调用方式：子进程命令或 HTTP 地址，二者取其一
type ModelEndpoint struct {
	Command string
	Args    []string
	URL     string
	Timeout time.Duration
}

// Configured 是否配置了外部模型
func (m ModelEndpoint) Configured() bool {
	return m.Command != "" || m.URL != ""
}

// Config medisense 服务配置
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig
	Dynamo   config.DynamoConfig
	SQLite   config.SQLiteConfig

	HTTP struct {
		Addr string
	}

	// 告警配置
	Alarm struct {
		ConsecutiveThreshold int           // 连续异常次数 N，默认 3
		Cooldown             time.Duration // 同一指标两次告警的最小间隔，默认 10 分钟
		FallCooldown         time.Duration // 跌倒告警冷却，默认 10 分钟
		StateStore           string        // redis, dynamodb, memory
		StateKeyPrefix       string        // 如 "alarm:state:"
		LatestKeyPrefix      string        // 最新读数缓存键前缀，如 "vitals:latest:"
		LatestTTL            time.Duration
		AlarmStream          string // 告警事件输出 stream
	}

	// 读数接入配置
	Ingest struct {
		MQTTEnabled   bool
		MQTTTopic     string // 如 "vitals/+/reading"
		StreamEnabled bool
		Stream        string
		ConsumerGroup string
		ConsumerName  string
		BatchSize     int64
	}

	// 通知通道配置
	Notify struct {
		SMS struct {
			GatewayURL string
			AccountSID string
			AuthToken  string
			From       string
			To         []string
		}
		Email struct {
			APIURL string
			APIKey string
			From   string
			To     []string
		}
		Fallback string // 主通道失败时改用的通道：sms, email，空表示不切换
		Timeout  time.Duration
	}

	Predictor struct {
		Lab     ModelEndpoint
		Symptom ModelEndpoint
	}

	Assistant struct {
		URL     string // OpenAI 兼容的 chat completions 地址，空则只用规则回复
		APIKey  string
		Model   string
		Timeout time.Duration
	}

	Session struct {
		Store string // postgres, sqlite, memory
	}

	Thresholds map[string]ThresholdOverride

	Log struct {
		Level  string
		Format string
	}
}

// thresholdEnvNames 指标到环境变量名片段的映射，如 THRESHOLD_HEART_RATE_MIN
var thresholdEnvNames = map[string]string{
	models.MetricHeartRate:   "HEART_RATE",
	models.MetricSpO2:        "SPO2",
	models.MetricBodyTemp:    "BODY_TEMP",
	models.MetricAmbientTemp: "AMBIENT_TEMP",
	models.MetricAccMag:      "ACC_MAGNITUDE",
	models.MetricBloodSugar:  "BLOOD_SUGAR",
	models.MetricSystolic:    "BP_SYSTOLIC",
	models.MetricDiastolic:   "BP_DIASTOLIC",
}

// Load 加载配置（先读取 .env，已存在的环境变量优先）
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := &Config{}

	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "medisense"
	cfg.Database.SSLMode = "disable"
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "medisense-alarm"
	cfg.MQTT.QoS = 1
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Dynamo.Region = "us-east-1"
	cfg.Dynamo.TableName = "medisense-alert-state"
	cfg.Dynamo.LoadFromEnv("DYNAMODB")

	cfg.SQLite.Path = getEnv("SQLITE_PATH", "medisense.db")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// 告警配置
	var err error
	if cfg.Alarm.ConsecutiveThreshold, err = getEnvInt("ALARM_CONSECUTIVE_THRESHOLD", 3); err != nil {
		return nil, err
	}
	if cfg.Alarm.ConsecutiveThreshold < 1 {
		return nil, fmt.Errorf("ALARM_CONSECUTIVE_THRESHOLD must be >= 1, got %d", cfg.Alarm.ConsecutiveThreshold)
	}
	if cfg.Alarm.Cooldown, err = getEnvSeconds("ALARM_COOLDOWN_SECONDS", 600); err != nil {
		return nil, err
	}
	if cfg.Alarm.FallCooldown, err = getEnvSeconds("ALARM_FALL_COOLDOWN_SECONDS", 600); err != nil {
		return nil, err
	}
	cfg.Alarm.StateStore = strings.ToLower(getEnv("ALARM_STATE_STORE", StateStoreRedis))
	switch cfg.Alarm.StateStore {
	case StateStoreRedis, StateStoreDynamoDB, StateStoreMemory:
	default:
		return nil, fmt.Errorf("unsupported ALARM_STATE_STORE: %s", cfg.Alarm.StateStore)
	}
	cfg.Alarm.StateKeyPrefix = getEnv("ALARM_STATE_PREFIX", "alarm:state:")
	cfg.Alarm.LatestKeyPrefix = getEnv("CACHE_LATEST_PREFIX", "vitals:latest:")
	if cfg.Alarm.LatestTTL, err = getEnvSeconds("CACHE_LATEST_TTL_SECONDS", 300); err != nil {
		return nil, err
	}
	cfg.Alarm.AlarmStream = getEnv("ALARM_STREAM", "vitals:alarms")

	// 接入配置
	cfg.Ingest.MQTTEnabled = getEnvBool("INGEST_MQTT_ENABLED", true)
	cfg.Ingest.MQTTTopic = getEnv("INGEST_MQTT_TOPIC", "vitals/+/reading")
	cfg.Ingest.StreamEnabled = getEnvBool("INGEST_STREAM_ENABLED", false)
	cfg.Ingest.Stream = getEnv("INGEST_STREAM", "vitals:readings")
	cfg.Ingest.ConsumerGroup = getEnv("INGEST_CONSUMER_GROUP", "medisense-alarm-group")
	cfg.Ingest.ConsumerName = getEnv("INGEST_CONSUMER_NAME", defaultConsumerName())
	batch, err := getEnvInt("INGEST_BATCH_SIZE", 10)
	if err != nil {
		return nil, err
	}
	cfg.Ingest.BatchSize = int64(batch)

	// 通知配置
	cfg.Notify.SMS.GatewayURL = getEnv("SMS_GATEWAY_URL", "")
	cfg.Notify.SMS.AccountSID = getEnv("SMS_ACCOUNT_SID", "")
	cfg.Notify.SMS.AuthToken = getEnv("SMS_AUTH_TOKEN", "")
	cfg.Notify.SMS.From = getEnv("SMS_FROM", "")
	cfg.Notify.SMS.To = splitList(getEnv("ALERT_SMS_TO", ""))
	cfg.Notify.Email.APIURL = getEnv("EMAIL_API_URL", "")
	cfg.Notify.Email.APIKey = getEnv("EMAIL_API_KEY", "")
	cfg.Notify.Email.From = getEnv("EMAIL_FROM", "alerts@medisense.local")
	cfg.Notify.Email.To = splitList(getEnv("ALERT_EMAIL_TO", ""))
	cfg.Notify.Fallback = strings.ToLower(getEnv("NOTIFY_FALLBACK_CHANNEL", ""))
	if cfg.Notify.Timeout, err = getEnvSeconds("NOTIFY_TIMEOUT_SECONDS", 10); err != nil {
		return nil, err
	}

	// 外部模型
	if cfg.Predictor.Lab, err = loadModelEndpoint("LAB_MODEL", 30); err != nil {
		return nil, err
	}
	if cfg.Predictor.Symptom, err = loadModelEndpoint("SYMPTOM_MODEL", 30); err != nil {
		return nil, err
	}

	cfg.Assistant.URL = getEnv("ASSISTANT_URL", "")
	cfg.Assistant.APIKey = getEnv("ASSISTANT_API_KEY", "")
	cfg.Assistant.Model = getEnv("ASSISTANT_MODEL", "gpt-4o-mini")
	if cfg.Assistant.Timeout, err = getEnvSeconds("ASSISTANT_TIMEOUT_SECONDS", 20); err != nil {
		return nil, err
	}

	cfg.Session.Store = strings.ToLower(getEnv("SESSION_STORE", SessionStorePostgres))
	switch cfg.Session.Store {
	case SessionStorePostgres, SessionStoreSQLite, SessionStoreMemory:
	default:
		return nil, fmt.Errorf("unsupported SESSION_STORE: %s", cfg.Session.Store)
	}

	if cfg.Thresholds, err = loadThresholdOverrides(); err != nil {
		return nil, err
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func loadModelEndpoint(prefix string, defaultTimeoutSec int) (ModelEndpoint, error) {
	ep := ModelEndpoint{
		Command: getEnv(prefix+"_COMMAND", ""),
		Args:    strings.Fields(getEnv(prefix+"_ARGS", "")),
		URL:     getEnv(prefix+"_URL", ""),
	}
	timeout, err := getEnvSeconds(prefix+"_TIMEOUT_SECONDS", defaultTimeoutSec)
	if err != nil {
		return ep, err
	}
	ep.Timeout = timeout
	return ep, nil
}

func loadThresholdOverrides() (map[string]ThresholdOverride, error) {
	overrides := make(map[string]ThresholdOverride)
	for metric, name := range thresholdEnvNames {
		var o ThresholdOverride
		var err error
		prefix := "THRESHOLD_" + name
		if o.Min, err = getEnvFloatPtr(prefix + "_MIN"); err != nil {
			return nil, err
		}
		if o.Max, err = getEnvFloatPtr(prefix + "_MAX"); err != nil {
			return nil, err
		}
		if o.CriticalMin, err = getEnvFloatPtr(prefix + "_CRITICAL_MIN"); err != nil {
			return nil, err
		}
		if o.CriticalMax, err = getEnvFloatPtr(prefix + "_CRITICAL_MAX"); err != nil {
			return nil, err
		}
		if o.Min != nil || o.Max != nil || o.CriticalMin != nil || o.CriticalMax != nil {
			overrides[metric] = o
		}
	}
	return overrides, nil
}

func defaultConsumerName() string {
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return "medisense-alarm-" + hostname
	}
	return "medisense-alarm-1"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvSeconds(key string, defaultSeconds int) (time.Duration, error) {
	n, err := getEnvInt(key, defaultSeconds)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must be >= 0, got %d", key, n)
	}
	return time.Duration(n) * time.Second, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvFloatPtr(key string) (*float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &f, nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
