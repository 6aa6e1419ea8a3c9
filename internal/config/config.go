package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Port      int    `yaml:"port"`
	DataDir   string `yaml:"data_dir"`
	ModelPath string `yaml:"model_path"`
	Version   string `yaml:"-"`

	Chatbot      ChatbotConfig      `yaml:"chatbot"`
	Calculations CalculationsConfig `yaml:"calculations"`
	ResNet       ResNetConfig       `yaml:"resnet"`
}

// ChatbotConfig configures the hosted language model behind /api/chat
type ChatbotConfig struct {
	Provider     string  `yaml:"provider"` // huggingface, gemini
	APIToken     string  `yaml:"api_token"`
	Model        string  `yaml:"model"`
	BaseURL      string  `yaml:"base_url"`
	Timeout      string  `yaml:"timeout"`
	MaxNewTokens int     `yaml:"max_new_tokens"`
	Temperature  float64 `yaml:"temperature"`
	TopP         float64 `yaml:"top_p"`

	// Upstream rate limit (token bucket)
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// CalculationsConfig selects where saved calculations live
type CalculationsConfig struct {
	Driver string `yaml:"driver"` // json, sqlite
	Path   string `yaml:"path"`   // defaults to <data_dir>/carbon_calculations.{json,db}
}

// ResNetConfig configures the multi-label classifier definition
type ResNetConfig struct {
	InputBands    int    `yaml:"input_bands"`
	OutputClasses int    `yaml:"output_classes"`
	HeadPath      string `yaml:"head_path"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Port:      5000,
		DataDir:   "./data",
		ModelPath: "./models/model.json",
		Version:   "dev",
		Chatbot: ChatbotConfig{
			Provider:          "huggingface",
			Model:             "mistralai/Mistral-7B-Instruct-v0.1",
			BaseURL:           "https://api-inference.huggingface.co",
			Timeout:           "30s",
			MaxNewTokens:      200,
			Temperature:       0.7,
			TopP:              0.95,
			RequestsPerSecond: 2,
			Burst:             5,
		},
		Calculations: CalculationsConfig{
			Driver: "json",
		},
		ResNet: ResNetConfig{
			InputBands:    11,
			OutputClasses: 11,
		},
	}
}

// Load reads a YAML config file on top of the defaults and applies
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment
func (c *Config) ApplyEnv() {
	if v := os.Getenv("FOOTPRINT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("FOOTPRINT_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("FOOTPRINT_MODEL_PATH"); v != "" {
		c.ModelPath = v
	}

	switch c.Chatbot.Provider {
	case "gemini":
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			c.Chatbot.APIToken = v
		}
	default:
		if v := os.Getenv("HUGGINGFACE_TOKEN"); v != "" {
			c.Chatbot.APIToken = v
		}
	}
}

// Validate checks for settings the server cannot start with
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Calculations.Driver {
	case "json", "sqlite":
	default:
		return fmt.Errorf("unknown calculations driver %q", c.Calculations.Driver)
	}
	switch c.Chatbot.Provider {
	case "huggingface", "gemini":
	default:
		return fmt.Errorf("unknown chatbot provider %q", c.Chatbot.Provider)
	}
	if _, err := c.ChatTimeout(); err != nil {
		return err
	}
	if c.ResNet.InputBands <= 0 || c.ResNet.OutputClasses <= 0 {
		return fmt.Errorf("resnet bands and classes must be positive")
	}
	return nil
}

// ChatTimeout parses the chatbot request timeout
func (c *Config) ChatTimeout() (time.Duration, error) {
	if c.Chatbot.Timeout == "" {
		return 30 * time.Second, nil
	}
	d, err := time.ParseDuration(c.Chatbot.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid chatbot timeout %q: %w", c.Chatbot.Timeout, err)
	}
	return d, nil
}
