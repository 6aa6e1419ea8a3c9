package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/kartoza/carbon-footprint/internal/httputil"
	"github.com/kartoza/carbon-footprint/internal/llm"
	"github.com/kartoza/carbon-footprint/internal/models"
)

// handleChat passes a question to the hosted model
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondJSON(w, http.StatusBadRequest, models.FailureResponse{Error: err.Error()})
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		httputil.RespondJSON(w, http.StatusBadRequest, models.FailureResponse{Error: "Message cannot be empty"})
		return
	}

	if h.chatbot == nil {
		httputil.RespondJSON(w, http.StatusServiceUnavailable, models.FailureResponse{Error: "chatbot not configured"})
		return
	}

	httputil.RespondJSON(w, http.StatusOK, h.chatbot.Query(r.Context(), message))
}

func (h *Handler) handleChatHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, models.ChatHealthResponse{
		Status:  "ok",
		Service: "Carbon Footprint Chatbot API",
	})
}

// handleChatInfo returns provider and usage details
func (h *Handler) handleChatInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"provider":       h.cfg.Chatbot.Provider,
		"available":      h.chatbot != nil,
		"token_set":      h.cfg.Chatbot.APIToken != "",
		"tip_categories": llm.TipCategories(),
	}
	if h.chatbot != nil {
		for k, v := range h.chatbot.Info() {
			info[k] = v
		}
	}
	httputil.RespondJSON(w, http.StatusOK, info)
}

// handleTips returns the static tips for a category
func (h *Handler) handleTips(w http.ResponseWriter, r *http.Request) {
	category := mux.Vars(r)["category"]
	httputil.RespondJSON(w, http.StatusOK, models.TipsResponse{
		Success:  true,
		Category: category,
		Tips:     llm.Tips(category),
	})
}
