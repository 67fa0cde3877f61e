// =============================================================================
// 📦 dialogflow 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("DIALOGFLOW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是对话引擎的完整配置结构
type Config struct {
	// LLM 外部生成服务配置
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Persona 人设配置
	Persona PersonaConfig `yaml:"persona" env:"PERSONA"`

	// NLU 轮次分析配置
	NLU NLUConfig `yaml:"nlu" env:"NLU"`

	// Respond 回复合成配置
	Respond RespondConfig `yaml:"respond" env:"RESPOND"`

	// Session 会话存储配置
	Session SessionConfig `yaml:"session" env:"SESSION"`

	// Flows 流程定义文件
	Flows FlowsConfig `yaml:"flows" env:"FLOWS"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Metrics 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// LLMConfig 外部模型调用配置
type LLMConfig struct {
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 最大重试次数
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
	// 重试间隔
	RetryDelay time.Duration `yaml:"retry_delay" env:"RETRY_DELAY"`
	// 每秒请求数上限，0 表示不限流
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	// 突发容量
	RateBurst int `yaml:"rate_burst" env:"RATE_BURST"`
}

// PersonaConfig 人设配置
type PersonaConfig struct {
	// 名称
	Name string `yaml:"name" env:"NAME"`
	// 风格描述
	Style string `yaml:"style" env:"STYLE"`
	// 共情程度 [0,1]
	Empathy float64 `yaml:"empathy" env:"EMPATHY"`
	// 正式程度 [0,1]
	Formality float64 `yaml:"formality" env:"FORMALITY"`
	// 幽默程度 [0,1]
	Humor float64 `yaml:"humor" env:"HUMOR"`
	// 耐心程度 [0,1]
	Patience float64 `yaml:"patience" env:"PATIENCE"`
	// 细节程度 [0,1]
	Detail float64 `yaml:"detail" env:"DETAIL"`
	// 可用语言
	Languages []string `yaml:"languages" env:"LANGUAGES"`
}

// NLUConfig 轮次分析配置
type NLUConfig struct {
	// 实体合并策略: prefer_external, prefer_pattern
	Merge string `yaml:"merge" env:"MERGE"`
	// 无字母输入的默认语言
	DefaultLanguage string `yaml:"default_language" env:"DEFAULT_LANGUAGE"`
}

// RespondConfig 回复合成配置
type RespondConfig struct {
	// 提示词中历史轮次的 token 预算
	HistoryTokenBudget int `yaml:"history_token_budget" env:"HISTORY_TOKEN_BUDGET"`
	// tiktoken 编码名
	Encoding string `yaml:"encoding" env:"ENCODING"`
	// 幽默后缀触发概率
	HumorProbability float64 `yaml:"humor_probability" env:"HUMOR_PROBABILITY"`
	// 语言混合模式，留空按用户语言推导
	MixMode string `yaml:"mix_mode" env:"MIX_MODE"`
}

// SessionConfig 会话存储配置
type SessionConfig struct {
	// 后端类型: memory, redis
	Backend string `yaml:"backend" env:"BACKEND"`
	// Redis 地址
	RedisAddr string `yaml:"redis_addr" env:"REDIS_ADDR"`
	// Redis 密码
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	// Redis 数据库编号
	RedisDB int `yaml:"redis_db" env:"REDIS_DB"`
	// 会话过期时间
	TTL time.Duration `yaml:"ttl" env:"TTL"`
}

// FlowsConfig 流程定义配置
type FlowsConfig struct {
	// 额外加载的 YAML 流程定义文件
	Paths []string `yaml:"paths" env:"PATHS"`
	// 是否注册内置流程
	Builtin bool `yaml:"builtin" env:"BUILTIN"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Prometheus 命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "DIALOGFLOW",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).WithValidator((*Config).Validate).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	switch c.Session.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Sprintf("unknown session backend %q", c.Session.Backend))
	}
	if c.Session.Backend == "redis" && c.Session.RedisAddr == "" {
		errs = append(errs, "redis backend requires redis_addr")
	}

	for _, slider := range []struct {
		name  string
		value float64
	}{
		{"empathy", c.Persona.Empathy},
		{"formality", c.Persona.Formality},
		{"humor", c.Persona.Humor},
		{"patience", c.Persona.Patience},
		{"detail", c.Persona.Detail},
	} {
		if slider.value < 0 || slider.value > 1 {
			errs = append(errs, fmt.Sprintf("persona %s must be in [0,1]", slider.name))
		}
	}

	if c.Respond.HumorProbability < 0 || c.Respond.HumorProbability > 1 {
		errs = append(errs, "humor_probability must be in [0,1]")
	}

	switch c.NLU.Merge {
	case "", "prefer_external", "prefer_pattern":
	default:
		errs = append(errs, fmt.Sprintf("unknown merge policy %q", c.NLU.Merge))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
