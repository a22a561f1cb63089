package devmock

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the CLI and the web server. Values come
// from an optional YAML file, then from the environment.
type Config struct {
	APIKey        string  `yaml:"api_key"`
	BaseURL       string  `yaml:"base_url" validate:"omitempty,url"`
	Model         string  `yaml:"model" validate:"required"`
	Temperature   float32 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens     int     `yaml:"max_tokens" validate:"gt=0"`
	LibraryDir    string  `yaml:"library_dir" validate:"required"`
	DBPath        string  `yaml:"db_path" validate:"required"`
	LogDir        string  `yaml:"log_dir" validate:"required"`
	Verbose       bool    `yaml:"verbose"`
	SessionSecret string  `yaml:"session_secret"`
	Port          string  `yaml:"port" validate:"required,numeric"`
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		LibraryDir:  "questions",
		DBPath:      "devmock.db",
		LogDir:      "log",
		Port:        "8180",
	}
}

// LoadConfig reads path (if not empty) over the defaults, applies environment
// overrides and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnv layers environment variables over the file. Either key variable
// overrides the file's api_key; GROQ_API_KEY wins when both are set.
func (c *Config) applyEnv() error {
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		c.APIKey = v
	} else if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.APIKey = v
	}

	overrides := map[string]*string{
		"DEVMOCK_BASE_URL":       &c.BaseURL,
		"DEVMOCK_MODEL":          &c.Model,
		"DEVMOCK_LIBRARY_DIR":    &c.LibraryDir,
		"DEVMOCK_DB_PATH":        &c.DBPath,
		"DEVMOCK_LOG_DIR":        &c.LogDir,
		"DEVMOCK_SESSION_SECRET": &c.SessionSecret,
		"PORT":                   &c.Port,
	}
	for key, field := range overrides {
		if v := os.Getenv(key); v != "" {
			*field = v
		}
	}

	if v := os.Getenv("DEVMOCK_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("invalid DEVMOCK_TEMPERATURE %q: %w", v, err)
		}
		c.Temperature = float32(t)
	}
	if v := os.Getenv("DEVMOCK_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DEVMOCK_MAX_TOKENS %q: %w", v, err)
		}
		c.MaxTokens = n
	}
	if v := os.Getenv("DEVMOCK_VERBOSE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DEVMOCK_VERBOSE %q: %w", v, err)
		}
		c.Verbose = b
	}
	return nil
}

// Validate checks the configuration using its validate tags
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// MakerConfig returns the remote question maker settings
func (c *Config) MakerConfig() MakerConfig {
	return MakerConfig{
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}
}
