// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 是进程级配置。通过 yaml 文件提供基线，再用环境变量覆盖，
// 避免任何组件在包初始化时隐式读取配置。
type Config struct {
	App struct {
		Env             string `yaml:"env"`
		TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
	} `yaml:"app"`
	Infra struct {
		Mysql struct {
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
		Kafka struct {
			Brokers          []string `yaml:"brokers"`
			OrderEventsTopic string   `yaml:"order_events_topic"`
		} `yaml:"kafka"`
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Nacos struct {
			ServerAddrs string `yaml:"server_addrs"`
			Namespace   string `yaml:"namespace"`
			Group       string `yaml:"group"`
		} `yaml:"nacos"`
	} `yaml:"infra"`
}

var (
	currentConfig *Config
	configOnce    sync.Once
)

// Init 加载配置。优先级: 环境变量 > yaml 文件 > 内置默认值。
// CONFIG_PATH 未指定或文件不存在时仅使用默认值加环境变量，方便本地起步。
func Init() {
	configOnce.Do(func() {
		// .env 文件是可选的，仅用于本地开发
		_ = godotenv.Load()

		cfg := defaultConfig()

		if path := getEnv("CONFIG_PATH", "configs/config.yaml"); path != "" {
			if data, err := os.ReadFile(path); err == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					panic("bootstrap: invalid config file " + path + ": " + err.Error())
				}
			}
		}

		applyEnvOverrides(cfg)
		currentConfig = cfg
	})
}

// GetCurrentConfig 返回进程配置。必须先调用 Init。
func GetCurrentConfig() *Config {
	if currentConfig == nil {
		panic("bootstrap: config accessed before Init")
	}
	return currentConfig
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Env = "dev"
	cfg.App.TokenTTLMinutes = 12 * 60
	cfg.Infra.Mysql.DSN = "root:root@tcp(localhost:3306)/dispatch?charset=utf8mb4&parseTime=True&loc=Local"
	cfg.Infra.Redis.Addr = "localhost:6379"
	cfg.Infra.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Infra.Kafka.OrderEventsTopic = "order-events-topic"
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Nacos.ServerAddrs = "localhost:8848"
	cfg.Infra.Nacos.Group = "DEFAULT_GROUP"
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.Infra.Mysql.DSN = getEnv("MYSQL_DSN", cfg.Infra.Mysql.DSN)
	cfg.Infra.Redis.Addr = getEnv("REDIS_ADDR", cfg.Infra.Redis.Addr)
	cfg.Infra.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Infra.Redis.Password)
	cfg.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", cfg.Infra.Jaeger.Endpoint)
	cfg.Infra.Kafka.OrderEventsTopic = getEnv("ORDER_EVENTS_TOPIC", cfg.Infra.Kafka.OrderEventsTopic)
	cfg.Infra.Nacos.ServerAddrs = getEnv("NACOS_SERVER_ADDRS", cfg.Infra.Nacos.ServerAddrs)
	cfg.Infra.Nacos.Namespace = getEnv("NACOS_NAMESPACE", cfg.Infra.Nacos.Namespace)
	cfg.Infra.Nacos.Group = getEnv("NACOS_GROUP", cfg.Infra.Nacos.Group)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Infra.Kafka.Brokers = strings.Split(brokers, ",")
	}
	if ttl := os.Getenv("TOKEN_TTL_MINUTES"); ttl != "" {
		if n, err := strconv.Atoi(ttl); err == nil && n > 0 {
			cfg.App.TokenTTLMinutes = n
		}
	}
}

// getEnv 从环境变量中读取配置，缺省使用 fallback。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
