package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/kartoza/carbon-footprint/internal/api"
	"github.com/kartoza/carbon-footprint/internal/calculations"
	"github.com/kartoza/carbon-footprint/internal/config"
	"github.com/kartoza/carbon-footprint/internal/footprint"
	"github.com/kartoza/carbon-footprint/internal/httputil"
	"github.com/kartoza/carbon-footprint/internal/llm"
	"github.com/kartoza/carbon-footprint/internal/logging"
	"github.com/kartoza/carbon-footprint/internal/nn"
	"go.uber.org/zap"
)

// Server holds all the components for the web application
type Server struct {
	cfg        config.Config
	logger     *zap.Logger
	httpServer *http.Server
	router     *mux.Router

	calc    *footprint.Calculator
	store   calculations.Store
	chatbot *llm.Chatbot
	head    *nn.Head
}

// New creates a new Server with all components initialized. Missing optional
// components (model artifact, LLM credentials, ResNet head) are logged and
// their endpoints report them unavailable.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	logger = logging.OrNop(logger)
	s := &Server{
		cfg:    cfg,
		logger: logger,
		router: mux.NewRouter(),
	}

	s.calc = footprint.NewCalculator(nil, logger)
	if cfg.ModelPath != "" {
		if err := s.calc.LoadModel(cfg.ModelPath); err != nil {
			logger.Warn("emission model not available", zap.String("path", cfg.ModelPath), zap.Error(err))
		}
	}

	store, err := calculations.Open(cfg.Calculations.Driver, cfg.Calculations.Path, cfg.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open calculation store: %w", err)
	}
	s.store = store

	chatbot, err := NewChatbot(ctx, cfg, logger)
	if err != nil {
		logger.Warn("chatbot not available", zap.Error(err))
	} else {
		s.chatbot = chatbot
	}

	if cfg.ResNet.HeadPath != "" {
		head, err := nn.LoadHead(cfg.ResNet.HeadPath)
		if err != nil {
			logger.Warn("resnet head not available", zap.String("path", cfg.ResNet.HeadPath), zap.Error(err))
		} else {
			s.head = head
		}
	}

	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s, nil
}

// NewChatbot builds the chatbot for the configured provider
func NewChatbot(ctx context.Context, cfg config.Config, logger *zap.Logger) (*llm.Chatbot, error) {
	logger = logging.OrNop(logger)
	timeout, err := cfg.ChatTimeout()
	if err != nil {
		return nil, err
	}

	var provider llm.Provider
	switch cfg.Chatbot.Provider {
	case "gemini":
		provider, err = llm.NewGemini(ctx, cfg.Chatbot.APIToken, cfg.Chatbot.Model)
		if err != nil {
			return nil, err
		}
	default:
		if cfg.Chatbot.APIToken == "" {
			logger.Warn("no Hugging Face token configured; requests will be anonymous")
		}
		hf := llm.NewHuggingFace(llm.HuggingFaceConfig{
			APIToken: cfg.Chatbot.APIToken,
			BaseURL:  cfg.Chatbot.BaseURL,
			Model:    cfg.Chatbot.Model,
			Timeout:  timeout,
		})
		logger.Info("chatbot provider configured", zap.String("provider", "huggingface"), zap.String("model", hf.Model()))
		provider = hf
	}

	return llm.NewChatbot(provider, llm.ChatbotConfig{
		Options: llm.GenerateOptions{
			MaxNewTokens: cfg.Chatbot.MaxNewTokens,
			Temperature:  cfg.Chatbot.Temperature,
			TopP:         cfg.Chatbot.TopP,
		},
		RequestsPerSecond: cfg.Chatbot.RequestsPerSecond,
		Burst:             cfg.Chatbot.Burst,
	}, logger), nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(httputil.RequestLogger(s.logger))

	apiRouter := s.router.PathPrefix("/api").Subrouter()
	apiHandler := api.NewHandler(s.calc, s.store, s.chatbot, s.head, s.cfg, s.logger)
	apiHandler.RegisterRoutes(apiRouter)
}

// Handler returns the root handler with CORS applied
func (s *Server) Handler() http.Handler {
	return httputil.CORS(s.router)
}

// Start begins listening for HTTP connections
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("url", fmt.Sprintf("http://localhost:%d", s.cfg.Port)))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server and closes the calculation store
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	if s.store != nil {
		if cerr := s.store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
