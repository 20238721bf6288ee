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

// Config is the complete bridge configuration.
type Config struct {
	// Server holds the listener settings.
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Stream holds the per-call pipeline settings.
	Stream StreamConfig `yaml:"stream" env:"STREAM"`

	// STT configures the transcription adapter.
	STT STTConfig `yaml:"stt" env:"STT"`

	// TTS configures the synthesis adapter.
	TTS TTSConfig `yaml:"tts" env:"TTS"`

	// LLM configures the reply generator.
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Log configures logging.
	Log LogConfig `yaml:"log" env:"LOG"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	// HTTPPort serves the media stream socket and the call-setup webhook.
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// MetricsPort serves Prometheus metrics.
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// PublicHost is the externally reachable host the telephony platform
	// connects back to (used to build the stream URL).
	PublicHost string `yaml:"public_host" env:"PUBLIC_HOST"`
	// ReadTimeout for plain HTTP endpoints.
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// StreamConfig holds the per-call pipeline settings.
type StreamConfig struct {
	// QueueDepth is the per-session media queue depth. Zero keeps at most
	// one utterance in flight and sheds anything arriving mid-processing.
	QueueDepth int `yaml:"queue_depth" env:"QUEUE_DEPTH"`
	// MinUtteranceBytes buffers inbound audio until this many bytes have
	// accumulated before running the pipeline. One line-format byte is one
	// sample; the default of 1 runs the pipeline on every frame.
	MinUtteranceBytes int `yaml:"min_utterance_bytes" env:"MIN_UTTERANCE_BYTES"`
	// AdapterTimeout bounds each external adapter call.
	AdapterTimeout time.Duration `yaml:"adapter_timeout" env:"ADAPTER_TIMEOUT"`
	// MaxSessions caps concurrent live calls. Zero means unlimited.
	MaxSessions int64 `yaml:"max_sessions" env:"MAX_SESSIONS"`
	// ConnectRate limits new stream connects per second.
	ConnectRate float64 `yaml:"connect_rate" env:"CONNECT_RATE"`
	// ConnectBurst is the connect limiter burst size.
	ConnectBurst int `yaml:"connect_burst" env:"CONNECT_BURST"`
}

// STTConfig configures the transcription adapter.
type STTConfig struct {
	BaseURL  string        `yaml:"base_url" env:"BASE_URL"`
	APIKey   string        `yaml:"api_key" env:"API_KEY"`
	Model    string        `yaml:"model" env:"MODEL"`
	Language string        `yaml:"language" env:"LANGUAGE"`
	Timeout  time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// TTSConfig configures the synthesis adapter.
type TTSConfig struct {
	BaseURL    string        `yaml:"base_url" env:"BASE_URL"`
	APIKey     string        `yaml:"api_key" env:"API_KEY"`
	Voice      string        `yaml:"voice" env:"VOICE"`
	SampleRate int           `yaml:"sample_rate" env:"SAMPLE_RATE"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// LLMConfig configures the reply generator.
type LLMConfig struct {
	BaseURL      string        `yaml:"base_url" env:"BASE_URL"`
	APIKey       string        `yaml:"api_key" env:"API_KEY"`
	Model        string        `yaml:"model" env:"MODEL"`
	SystemPrompt string        `yaml:"system_prompt" env:"SYSTEM_PROMPT"`
	Temperature  float64       `yaml:"temperature" env:"TEMPERATURE"`
	Timeout      time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is json or console.
	Format string `yaml:"format" env:"FORMAT"`
	// OutputPaths are zap sink URLs.
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// EnableCaller annotates entries with the call site.
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
}

// Loader loads configuration with builder-style options.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a loader with the default env prefix.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "VOICEBRIDGE",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the YAML config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator adds a config validator.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load resolves the configuration. Precedence: defaults, then the YAML
// file, then environment variables.
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

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

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

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
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

// MustLoad loads configuration from the given path, panicking on failure.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}
	if c.Stream.QueueDepth < 0 {
		errs = append(errs, "queue_depth must not be negative")
	}
	if c.Stream.MinUtteranceBytes < 1 {
		errs = append(errs, "min_utterance_bytes must be at least 1")
	}
	if c.Stream.AdapterTimeout <= 0 {
		errs = append(errs, "adapter_timeout must be positive")
	}
	if c.Stream.MaxSessions < 0 {
		errs = append(errs, "max_sessions must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
