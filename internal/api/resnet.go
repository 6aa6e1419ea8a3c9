package api

import (
	"net/http"
	"strconv"

	"github.com/kartoza/carbon-footprint/internal/httputil"
	"github.com/kartoza/carbon-footprint/internal/models"
	"github.com/kartoza/carbon-footprint/internal/nn"
)

const defaultPatchSize = 256

// handleResNetArchitecture describes the network for the requested bands,
// classes and patch size
func (h *Handler) handleResNetArchitecture(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := map[string]int{
		"bands":   h.cfg.ResNet.InputBands,
		"classes": h.cfg.ResNet.OutputClasses,
		"height":  defaultPatchSize,
		"width":   defaultPatchSize,
		"batch":   1,
	}
	for name := range params {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "invalid "+name+": "+v)
			return
		}
		params[name] = n
	}

	resnet, err := nn.Build(nn.ResNetConfig{
		InputBands:    params["bands"],
		OutputClasses: params["classes"],
	})
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	stages, err := resnet.FeatureShapes(params["batch"], params["height"], params["width"])
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	output, err := resnet.OutputShape(params["batch"], params["height"], params["width"])
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg := resnet.Config()
	httputil.RespondJSON(w, http.StatusOK, models.ArchitectureResponse{
		InputBands:    cfg.InputBands,
		OutputClasses: cfg.OutputClasses,
		ParamCount:    resnet.ParamCount(),
		OutputShape:   output,
		Stages:        stages,
		Layers:        resnet.Layers(),
	})
}

// handleResNetPredict scores pooled features with the loaded classifier head
func (h *Handler) handleResNetPredict(w http.ResponseWriter, r *http.Request) {
	if h.head == nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, "resnet head not loaded")
		return
	}

	var req models.ResNetPredictRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	probs, err := h.head.Predict(req.Features)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := models.ResNetPredictResponse{Probabilities: probs}
	if len(h.head.Labels) == len(probs) {
		resp.Labels = make(map[string]float64, len(probs))
		for i, label := range h.head.Labels {
			resp.Labels[label] = probs[i]
		}
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}
