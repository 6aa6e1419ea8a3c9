package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/kartoza/carbon-footprint/internal/calculations"
	"github.com/kartoza/carbon-footprint/internal/config"
	"github.com/kartoza/carbon-footprint/internal/footprint"
	"github.com/kartoza/carbon-footprint/internal/httputil"
	"github.com/kartoza/carbon-footprint/internal/llm"
	"github.com/kartoza/carbon-footprint/internal/models"
	"github.com/kartoza/carbon-footprint/internal/nn"
	"go.uber.org/zap"
)

// Handler provides HTTP API endpoints
type Handler struct {
	calc    *footprint.Calculator
	store   calculations.Store
	chatbot *llm.Chatbot
	head    *nn.Head
	cfg     config.Config
	logger  *zap.Logger
}

// NewHandler creates a new API handler. Any component may be nil; its
// endpoints then report it as unavailable.
func NewHandler(
	calc *footprint.Calculator,
	store calculations.Store,
	chatbot *llm.Chatbot,
	head *nn.Head,
	cfg config.Config,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		calc:    calc,
		store:   store,
		chatbot: chatbot,
		head:    head,
		cfg:     cfg,
		logger:  logger,
	}
}

// RegisterRoutes sets up all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Health and info
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/info", h.handleInfo).Methods("GET")

	// Footprint calculator
	r.HandleFunc("/calculate", h.handleCalculate).Methods("POST")
	r.HandleFunc("/save-calculation", h.handleSaveCalculation).Methods("POST")
	r.HandleFunc("/get-calculations", h.handleGetCalculations).Methods("GET")
	r.HandleFunc("/calculations/summary", h.handleCalculationSummary).Methods("GET")
	r.HandleFunc("/calculations/{id}", h.handleGetCalculation).Methods("GET")
	r.HandleFunc("/calculations/{id}", h.handleDeleteCalculation).Methods("DELETE")
	r.HandleFunc("/calculations/{id}/chart", h.handleCalculationChart).Methods("GET")

	// Chatbot
	r.HandleFunc("/chat", h.handleChat).Methods("POST")
	r.HandleFunc("/chat/health", h.handleChatHealth).Methods("GET")
	r.HandleFunc("/chat/info", h.handleChatInfo).Methods("GET")
	r.HandleFunc("/tips/{category}", h.handleTips).Methods("GET")

	// ResNet classifier
	r.HandleFunc("/resnet/architecture", h.handleResNetArchitecture).Methods("GET")
	r.HandleFunc("/resnet/predict", h.handleResNetPredict).Methods("POST")
}

// handleHealth returns server health status
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, models.HealthResponse{
		Status:       "healthy",
		ModelsLoaded: h.calc != nil && h.calc.Loaded(),
	})
}

// handleInfo returns server information
func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"version":             h.cfg.Version,
		"models_loaded":       h.calc != nil && h.calc.Loaded(),
		"calculations_driver": h.cfg.Calculations.Driver,
		"store_loaded":        h.store != nil,
		"chatbot_loaded":      h.chatbot != nil,
		"chatbot_provider":    h.cfg.Chatbot.Provider,
		"resnet_head_loaded":  h.head != nil,
	}
	httputil.RespondJSON(w, http.StatusOK, info)
}

// handleCalculate predicts the footprint for a questionnaire
func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	if h.calc == nil || !h.calc.Loaded() {
		httputil.RespondError(w, http.StatusInternalServerError, footprint.ErrModelNotLoaded.Error())
		return
	}

	var form footprint.FormData
	if err := httputil.DecodeJSON(r, &form); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.calc.Calculate(form)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, footprint.ErrInvalidForm) || errors.Is(err, footprint.ErrPredictionOutOfRange) {
			status = http.StatusBadRequest
		}
		h.logger.Warn("calculation failed", zap.Error(err))
		httputil.RespondError(w, status, err.Error())
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}
