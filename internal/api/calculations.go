package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/kartoza/carbon-footprint/internal/calculations"
	"github.com/kartoza/carbon-footprint/internal/httputil"
	"github.com/kartoza/carbon-footprint/internal/models"
	"go.uber.org/zap"
)

const errNoStore = "calculation store not available"

// handleSaveCalculation appends a calculation to the store
func (h *Handler) handleSaveCalculation(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, errNoStore)
		return
	}

	var req models.SaveCalculationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	record := calculations.NewRecord(req.Timestamp, req.FormData, req.Results, req.UserID)
	if err := h.store.Save(record); err != nil {
		h.logger.Error("failed to save calculation", zap.Error(err))
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.SaveCalculationResponse{
		Success: true,
		Message: "Calculation saved successfully",
		ID:      record.ID,
	})
}

// handleGetCalculations lists every saved calculation
func (h *Handler) handleGetCalculations(w http.ResponseWriter, r *http.Request) {
	records, ok := h.listRecords(w)
	if !ok {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.CalculationsResponse{
		Success:      true,
		Calculations: records,
		Count:        len(records),
	})
}

// handleCalculationSummary aggregates the saved predictions
func (h *Handler) handleCalculationSummary(w http.ResponseWriter, r *http.Request) {
	records, ok := h.listRecords(w)
	if !ok {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, calculations.Summarize(records))
}

// handleGetCalculation returns one saved calculation
func (h *Handler) handleGetCalculation(w http.ResponseWriter, r *http.Request) {
	record, ok := h.getRecord(w, r)
	if !ok {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, record)
}

// handleDeleteCalculation removes one saved calculation
func (h *Handler) handleDeleteCalculation(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, errNoStore)
		return
	}

	if err := h.store.Delete(mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, calculations.ErrNotFound) {
			httputil.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleCalculationChart renders the breakdown of a saved calculation as HTML
func (h *Handler) handleCalculationChart(w http.ResponseWriter, r *http.Request) {
	record, ok := h.getRecord(w, r)
	if !ok {
		return
	}

	var page bytes.Buffer
	if err := calculations.RenderBreakdownChart(&page, record); err != nil {
		if errors.Is(err, calculations.ErrNoBreakdown) {
			httputil.RespondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.Warn("failed to render chart", zap.Error(err))
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := page.WriteTo(w); err != nil {
		h.logger.Debug("chart write interrupted", zap.Error(err))
	}
}

func (h *Handler) listRecords(w http.ResponseWriter) ([]*calculations.Record, bool) {
	if h.store == nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, errNoStore)
		return nil, false
	}
	records, err := h.store.List()
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if records == nil {
		records = []*calculations.Record{}
	}
	return records, true
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) (*calculations.Record, bool) {
	if h.store == nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, errNoStore)
		return nil, false
	}
	record, err := h.store.Get(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, calculations.ErrNotFound) {
			httputil.RespondError(w, http.StatusNotFound, err.Error())
			return nil, false
		}
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return record, true
}
