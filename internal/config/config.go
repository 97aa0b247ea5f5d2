package config

import "time"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	Engine    EngineConfig    `yaml:"engine"`
	Chat      ChatConfig      `yaml:"chat"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

type RedisConfig struct {
	Address     string        `yaml:"address"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	PoolSize    int           `yaml:"pool_size"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + itoa(d.Port) + "/" + d.Name + "?sslmode=disable"
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	s := ""
	for i > 0 {
		s = string(rune('0'+i%10)) + s
		i /= 10
	}
	return s
}

// EngineConfig is the configuration surface recognized by the request engine.
type EngineConfig struct {
	EnableCache bool          `yaml:"enable_cache"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	AutoRoute   bool          `yaml:"auto_route"`
}

type ChatConfig struct {
	SystemPrompt       string        `yaml:"system_prompt"`
	MaxTurns           int           `yaml:"max_turns"`
	Cooldown           time.Duration `yaml:"cooldown"`
	DailySpendCapCents int64         `yaml:"daily_spend_cap_cents"`
}

type UpstreamConfig struct {
	BaseURL          string        `yaml:"base_url"`
	APIKey           string        `yaml:"api_key"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold int           `yaml:"failure_threshold"`
	RecoveryInterval time.Duration `yaml:"recovery_interval"`
}

type TelemetryConfig struct {
	LogLevel    string `yaml:"log_level"`
	MetricsPort int    `yaml:"metrics_port"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     120 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 30 * time.Second,
		},
		Redis: RedisConfig{
			Address:     "localhost:6379",
			DB:          0,
			PoolSize:    50,
			DialTimeout: 2 * time.Second,
			ReadTimeout: 500 * time.Millisecond,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "zorgbot",
			User:            "zorgbot",
			MaxOpenConns:    10,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Engine: EngineConfig{
			EnableCache: true,
			CacheTTL:    time.Hour,
			AutoRoute:   true,
		},
		Chat: ChatConfig{
			SystemPrompt: defaultSystemPrompt,
			MaxTurns:     10,
			Cooldown:     2 * time.Second,
		},
		Upstream: UpstreamConfig{
			BaseURL:          "https://api.mistral.ai",
			Timeout:          60 * time.Second,
			FailureThreshold: 5,
			RecoveryInterval: 15 * time.Second,
		},
		Telemetry: TelemetryConfig{
			LogLevel:    "info",
			MetricsPort: 9090,
		},
	}
}

const defaultSystemPrompt = `You are Zorgbot, a helpful AI assistant for the Supra Heroes community.

STRICT RULES:
1. ENGLISH ONLY - Always respond in English, regardless of the user's language
2. NO PERSONAL INFORMATION - Never share or ask for private keys, seed phrases, passwords, personal addresses, or sensitive data
3. SCAM PROTECTION - Warn users about suspicious links, phishing attempts, or scam requests. Never provide links to unofficial sites.
4. PROFESSIONAL & HELPFUL - Be friendly, informative, and supportive of the Supra ecosystem
5. COMMUNITY FOCUS - Help with Supra-related questions, NFTs, ecosystem projects, and general crypto knowledge

If someone asks you to share private information or suspicious links, politely decline and warn them about security risks.`
