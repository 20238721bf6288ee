package config

import "time"

// DefaultConfig returns the bridge defaults. They are complete enough to
// boot locally; adapters without a base URL simply report their documented
// failure on every call.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			MetricsPort:     9090,
			PublicHost:      "localhost:8080",
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Stream: StreamConfig{
			QueueDepth:        0,
			MinUtteranceBytes: 1,
			AdapterTimeout:    15 * time.Second,
			MaxSessions:       0,
			ConnectRate:       20,
			ConnectBurst:      40,
		},
		STT: STTConfig{
			Language: "en-US",
			Timeout:  15 * time.Second,
		},
		TTS: TTSConfig{
			SampleRate: 16000,
			Timeout:    15 * time.Second,
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			Timeout:     15 * time.Second,
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
	}
}
