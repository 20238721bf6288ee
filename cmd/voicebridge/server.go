package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/voicebridge/bridge"
	"github.com/BaSui01/voicebridge/config"
	"github.com/BaSui01/voicebridge/internal/metrics"
	"github.com/BaSui01/voicebridge/internal/server"
	"github.com/BaSui01/voicebridge/llm"
	"github.com/BaSui01/voicebridge/stt"
	"github.com/BaSui01/voicebridge/tts"
)

// Server wires the bridge together: the call-setup webhook, the media
// stream socket, the session registry, and the metrics endpoint.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	registry  *bridge.Registry
	collector *metrics.Collector

	httpManager    *server.Manager
	metricsManager *server.Manager
}

// NewServer creates the bridge server from resolved configuration.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
	}
}

// Start brings up the HTTP and metrics listeners without blocking.
func (s *Server) Start() error {
	s.collector = metrics.NewCollector("voicebridge", s.logger)
	s.registry = bridge.NewRegistry(s.cfg.Stream.MaxSessions, s.logger)

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Int64("max_sessions", s.cfg.Stream.MaxSessions),
	)
	return nil
}

// adapters builds the external service clients from configuration. An
// adapter without a base URL stays wired and reports its documented
// failure on every call, which the pipeline absorbs.
func (s *Server) adapters() bridge.Adapters {
	return bridge.Adapters{
		Transcriber: stt.New(stt.Config{
			BaseURL:  s.cfg.STT.BaseURL,
			APIKey:   s.cfg.STT.APIKey,
			Model:    s.cfg.STT.Model,
			Language: s.cfg.STT.Language,
			Timeout:  s.cfg.STT.Timeout,
		}, s.logger),
		Synthesizer: tts.New(tts.Config{
			BaseURL:    s.cfg.TTS.BaseURL,
			APIKey:     s.cfg.TTS.APIKey,
			Voice:      s.cfg.TTS.Voice,
			SampleRate: s.cfg.TTS.SampleRate,
			Timeout:    s.cfg.TTS.Timeout,
		}, s.logger),
		Replies: llm.New(llm.Config{
			BaseURL:      s.cfg.LLM.BaseURL,
			APIKey:       s.cfg.LLM.APIKey,
			Model:        s.cfg.LLM.Model,
			SystemPrompt: s.cfg.LLM.SystemPrompt,
			Temperature:  s.cfg.LLM.Temperature,
			Timeout:      s.cfg.LLM.Timeout,
		}, s.logger),
	}
}

func (s *Server) startHTTPServer() error {
	sessCfg := bridge.SessionConfig{
		QueueDepth:        s.cfg.Stream.QueueDepth,
		MinUtteranceBytes: s.cfg.Stream.MinUtteranceBytes,
		AdapterTimeout:    s.cfg.Stream.AdapterTimeout,
	}

	var limiter *rate.Limiter
	if s.cfg.Stream.ConnectRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.Stream.ConnectRate), s.cfg.Stream.ConnectBurst)
	}

	mux := http.NewServeMux()
	mux.Handle("/media", bridge.NewHandler(s.registry, s.adapters(), sessCfg, limiter, s.logger, s.collector))
	mux.Handle("/voice", bridge.NewSetupHandler(s.cfg.Server.PublicHost, s.logger))
	mux.HandleFunc("/healthz", s.handleHealthz)

	handler := Chain(mux,
		Recovery(s.logger),
		RequestLogger(s.logger),
	)

	serverConfig := server.Config{
		Addr:        fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout: s.cfg.Server.ReadTimeout,
		// WriteTimeout stays zero: the stream socket outlives any response
		// deadline once hijacked.
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.ReadTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":        "ok",
		"version":       Version,
		"live_sessions": s.registry.Len(),
	})
}

// WaitForShutdown blocks until a termination signal, then drains.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown closes every live call and stops both servers.
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if s.registry != nil {
		s.registry.CloseAll()
	}
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("Graceful shutdown completed")
}
