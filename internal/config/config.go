package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       App       `mapstructure:"app"`
	AI        AI        `mapstructure:"ai"`
	Vector    Vector    `mapstructure:"vector"`
	Providers Providers `mapstructure:"providers"`
	Scrape    Scrape    `mapstructure:"scrape"`
	Cache     Cache     `mapstructure:"cache"`
	Server    Server    `mapstructure:"server"`
	Tasks     Tasks     `mapstructure:"tasks"`
}

// App holds general application configuration
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
}

// AI holds LLM and embedding configuration
type AI struct {
	OpenAI OpenAIConfig `mapstructure:"openai"`
}

// OpenAIConfig holds OpenAI-compatible API configuration
type OpenAIConfig struct {
	APIKey              string  `mapstructure:"api_key"`
	Model               string  `mapstructure:"model"`
	BaseURL             string  `mapstructure:"base_url"`
	Timeout             string  `mapstructure:"timeout"`
	Temperature         float64 `mapstructure:"temperature"`
	MaxTokens           int     `mapstructure:"max_tokens"`
	EmbeddingModel      string  `mapstructure:"embedding_model"`
	EmbeddingDimensions int     `mapstructure:"embedding_dimensions"`
}

// Vector holds vector index configuration
type Vector struct {
	Dir string `mapstructure:"dir"`
}

// Providers holds news provider credentials
type Providers struct {
	NewsAPI NewsAPIConfig `mapstructure:"newsapi"`
	Bluesky BlueskyConfig `mapstructure:"bluesky"`
}

// NewsAPIConfig holds NewsAPI credentials
type NewsAPIConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// BlueskyConfig holds Bluesky credentials
type BlueskyConfig struct {
	Handle      string `mapstructure:"handle"`
	AppPassword string `mapstructure:"app_password"`
}

// Scrape holds batch scraper configuration
type Scrape struct {
	BatchBaseURL string `mapstructure:"batch_base_url"`
	BatchAPIKey  string `mapstructure:"batch_api_key"`
	Timeout      string `mapstructure:"timeout"`
}

// Cache holds analysis cache configuration
type Cache struct {
	Directory string `mapstructure:"directory"`
	TTL       string `mapstructure:"ttl"`
}

// Server holds HTTP server configuration
type Server struct {
	Addr                string   `mapstructure:"addr"`
	AllowedEmailDomains []string `mapstructure:"allowed_email_domains"`
}

// Tasks holds background task manager configuration
type Tasks struct {
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

var globalConfig *Config

// Load loads the configuration from .env, a config file, and environment
// variables, in that order of increasing precedence.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".newswatch")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// Reset clears the cached configuration. Intended for tests.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.data_dir", ".newswatch")

	viper.SetDefault("ai.openai.model", "gpt-4o-mini")
	viper.SetDefault("ai.openai.base_url", "")
	viper.SetDefault("ai.openai.timeout", "60s")
	viper.SetDefault("ai.openai.temperature", 0.2)
	viper.SetDefault("ai.openai.max_tokens", 2048)
	viper.SetDefault("ai.openai.embedding_model", "text-embedding-3-small")
	viper.SetDefault("ai.openai.embedding_dimensions", 1536)

	viper.SetDefault("vector.dir", ".newswatch/vectors")

	viper.SetDefault("scrape.timeout", "300s")

	viper.SetDefault("cache.directory", ".newswatch/analysis-cache")
	viper.SetDefault("cache.ttl", "24h")

	viper.SetDefault("server.addr", ":8080")

	viper.SetDefault("tasks.max_concurrent", 3)
}

// bindEnvironmentVariables maps the environment names recognized by the
// deployment to config keys.
func bindEnvironmentVariables() {
	_ = viper.BindEnv("ai.openai.api_key", "OPENAI_API_KEY")
	_ = viper.BindEnv("providers.newsapi.api_key", "NEWSAPI_API_KEY")
	_ = viper.BindEnv("providers.bluesky.handle", "BLUESKY_HANDLE")
	_ = viper.BindEnv("providers.bluesky.app_password", "BLUESKY_APP_PASSWORD")
	_ = viper.BindEnv("scrape.batch_base_url", "FIRECRAWL_BASE_URL")
	_ = viper.BindEnv("scrape.batch_api_key", "FIRECRAWL_API_KEY")
	_ = viper.BindEnv("vector.dir", "CHROMA_DB_DIR")
	_ = viper.BindEnv("server.allowed_email_domains", "ALLOWED_EMAIL_DOMAINS")
}

// OpenAIKey returns the first configured OpenAI-style API key, looking at the
// config value and then any environment variable whose name contains
// OPENAI_API_KEY.
func OpenAIKey(cfg *Config) string {
	if cfg != nil && cfg.AI.OpenAI.APIKey != "" {
		return cfg.AI.OpenAI.APIKey
	}
	for _, env := range os.Environ() {
		name, value, found := strings.Cut(env, "=")
		if found && strings.Contains(name, "OPENAI_API_KEY") && value != "" {
			return value
		}
	}
	return ""
}
