package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the publishing workflow
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Tools     ToolsConfig     `mapstructure:"tools"`
	MCP       MCPConfig       `mapstructure:"mcp"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// LLMConfig contains the model provider configuration
type LLMConfig struct {
	Provider  string        `mapstructure:"api_provider"` // openai, anthropic, deepseek, qwen, glm, kimi
	APIKey    string        `mapstructure:"llm_api_key"`
	BaseURL   string        `mapstructure:"openai_base_url"`
	Model     string        `mapstructure:"default_model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ToolsConfig contains settings for the built-in research tools
type ToolsConfig struct {
	JinaAPIKey       string        `mapstructure:"jina_api_key"`
	TavilyAPIKey     string        `mapstructure:"tavily_api_key"`
	SerperAPIKey     string        `mapstructure:"serper_api_key"`
	SearchMaxResults int           `mapstructure:"search_max_results"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
}

// MCPConfig contains tool provider connection settings
type MCPConfig struct {
	XHSURL  string                   `mapstructure:"xhs_mcp_url"`
	Servers map[string]MCPServerSpec `mapstructure:"servers"`
}

// MCPServerSpec describes one additional tool provider. A spec with a URL
// connects over streamable HTTP; a spec with a Command spawns a subprocess
// speaking JSON-RPC on stdio.
type MCPServerSpec struct {
	URL     string            `mapstructure:"url"`
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Env     map[string]string `mapstructure:"env"`
}

// WorkflowConfig contains orchestration loop settings
type WorkflowConfig struct {
	MaxIterations int           `mapstructure:"max_iterations"`
	StepTimeout   time.Duration `mapstructure:"step_timeout"`
}

// ServerConfig contains the HTTP API settings
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// StorageConfig contains run persistence settings
type StorageConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	LogFile      string `mapstructure:"log_file"`
	PeriodicLogs bool   `mapstructure:"periodic_logs"`
}

var urlPattern = regexp.MustCompile(`^https?://[^\s]+$`)

// LoadConfig loads configuration from file and environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("xhs_config")
		v.SetConfigType("json")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("XHS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; defaults plus env cover a minimal run.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	overrideFromEnv(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.default_timeout", "30s")

	v.SetDefault("llm.api_provider", "openai")
	v.SetDefault("llm.openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.max_tokens", 32000)
	v.SetDefault("llm.timeout", "180s")

	v.SetDefault("tools.search_max_results", 10)
	v.SetDefault("tools.fetch_timeout", "30s")

	v.SetDefault("workflow.max_iterations", 10)
	v.SetDefault("workflow.step_timeout", "10m")

	v.SetDefault("server.listen", ":8080")

	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.timeout", "5s")

	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.periodic_logs", false)
}

// overrideFromEnv overrides configuration with environment variables
// for sensitive data
func overrideFromEnv(v *viper.Viper) {
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		v.Set("llm.llm_api_key", key)
	}
	if provider := os.Getenv("API_PROVIDER"); provider != "" {
		v.Set("llm.api_provider", provider)
	}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		v.Set("llm.openai_base_url", base)
	}
	if model := os.Getenv("DEFAULT_MODEL"); model != "" {
		v.Set("llm.default_model", model)
	}
	if url := os.Getenv("XHS_MCP_URL"); url != "" {
		v.Set("mcp.xhs_mcp_url", url)
	}

	if key := os.Getenv("JINA_API_KEY"); key != "" {
		v.Set("tools.jina_api_key", key)
	}
	if key := os.Getenv("TAVILY_API_KEY"); key != "" {
		v.Set("tools.tavily_api_key", key)
	}
	if key := os.Getenv("SERPER_API_KEY"); key != "" {
		v.Set("tools.serper_api_key", key)
	}

	if host := os.Getenv("REDIS_HOST"); host != "" {
		v.Set("storage.redis.host", host)
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			v.Set("storage.redis.port", p)
		}
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		v.Set("storage.redis.password", password)
	}
}

// validateConfig checks the shape of whatever values are present. Missing
// run-time values are fine at load: the server boots unconfigured so the
// settings API can fill them in, and ValidateRunReady gates actual runs.
func validateConfig(config *Config) error {
	if config.MCP.XHSURL != "" && !urlPattern.MatchString(config.MCP.XHSURL) {
		return fmt.Errorf("mcp.xhs_mcp_url %q is not a valid http(s) URL", config.MCP.XHSURL)
	}
	if config.LLM.BaseURL != "" && !urlPattern.MatchString(config.LLM.BaseURL) {
		return fmt.Errorf("llm.openai_base_url %q is not a valid http(s) URL", config.LLM.BaseURL)
	}
	for name, spec := range config.MCP.Servers {
		if spec.URL == "" && spec.Command == "" {
			return fmt.Errorf("mcp server %q needs either a url or a command", name)
		}
		if spec.URL != "" && !urlPattern.MatchString(spec.URL) {
			return fmt.Errorf("mcp server %q url %q is not a valid http(s) URL", name, spec.URL)
		}
	}
	return nil
}

// ValidateRunReady reports whether the configuration carries everything a
// workflow run needs. Enforced where runs start, not at boot.
func (c *Config) ValidateRunReady() error {
	if c.LLM.Provider == "" {
		return fmt.Errorf("llm.api_provider is required")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.llm_api_key is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.default_model is required")
	}
	if c.MCP.XHSURL == "" {
		return fmt.Errorf("mcp.xhs_mcp_url is required")
	}
	if !urlPattern.MatchString(c.MCP.XHSURL) {
		return fmt.Errorf("mcp.xhs_mcp_url %q is not a valid http(s) URL", c.MCP.XHSURL)
	}
	return nil
}

// Save writes the current configuration values to path as JSON so that
// edits made through the settings API survive a restart.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("json")

	v.Set("general", map[string]interface{}{
		"debug":           c.General.Debug,
		"log_level":       c.General.LogLevel,
		"default_timeout": c.General.DefaultTimeout.String(),
	})
	v.Set("llm", map[string]interface{}{
		"api_provider":    c.LLM.Provider,
		"llm_api_key":     c.LLM.APIKey,
		"openai_base_url": c.LLM.BaseURL,
		"default_model":   c.LLM.Model,
		"max_tokens":      c.LLM.MaxTokens,
		"timeout":         c.LLM.Timeout.String(),
	})
	v.Set("tools", map[string]interface{}{
		"jina_api_key":       c.Tools.JinaAPIKey,
		"tavily_api_key":     c.Tools.TavilyAPIKey,
		"serper_api_key":     c.Tools.SerperAPIKey,
		"search_max_results": c.Tools.SearchMaxResults,
		"fetch_timeout":      c.Tools.FetchTimeout.String(),
	})
	servers := map[string]interface{}{}
	for name, spec := range c.MCP.Servers {
		servers[name] = map[string]interface{}{
			"url":     spec.URL,
			"command": spec.Command,
			"args":    spec.Args,
			"env":     spec.Env,
		}
	}
	v.Set("mcp", map[string]interface{}{
		"xhs_mcp_url": c.MCP.XHSURL,
		"servers":     servers,
	})
	v.Set("workflow", map[string]interface{}{
		"max_iterations": c.Workflow.MaxIterations,
		"step_timeout":   c.Workflow.StepTimeout.String(),
	})
	v.Set("server", map[string]interface{}{
		"listen": c.Server.Listen,
	})
	v.Set("storage", map[string]interface{}{
		"redis": map[string]interface{}{
			"host":     c.Storage.Redis.Host,
			"port":     c.Storage.Redis.Port,
			"password": c.Storage.Redis.Password,
			"db":       c.Storage.Redis.DB,
			"timeout":  c.Storage.Redis.Timeout.String(),
		},
	})
	v.Set("telemetry", map[string]interface{}{
		"enabled":       c.Telemetry.Enabled,
		"log_file":      c.Telemetry.LogFile,
		"periodic_logs": c.Telemetry.PeriodicLogs,
	})

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
