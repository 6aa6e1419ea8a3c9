package api

import (
	"bytes"
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/kartoza/carbon-footprint/internal/calculations"
	"github.com/kartoza/carbon-footprint/internal/config"
	"github.com/kartoza/carbon-footprint/internal/footprint"
	"github.com/kartoza/carbon-footprint/internal/llm"
	"github.com/kartoza/carbon-footprint/internal/nn"
)

// constPredictor returns the same emission for every row
type constPredictor float64

func (c constPredictor) Predict(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i := range out {
		out[i] = float64(c)
	}
	return out, nil
}

type echoProvider struct{}

func (echoProvider) Generate(_ context.Context, prompt string, _ llm.GenerateOptions) (string, error) {
	return prompt + " Walk more.", nil
}

func (echoProvider) Name() string { return "echo" }

type testDeps struct {
	calc    *footprint.Calculator
	store   calculations.Store
	chatbot *llm.Chatbot
	head    *nn.Head
}

func newTestRouter(t *testing.T, deps testDeps) *mux.Router {
	t.Helper()
	cfg := config.Default()
	cfg.Version = "test"
	handler := NewHandler(deps.calc, deps.store, deps.chatbot, deps.head, cfg, nil)
	r := mux.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func fullDeps(t *testing.T) testDeps {
	t.Helper()
	return testDeps{
		calc:    footprint.NewCalculator(constPredictor(823.4), nil),
		store:   calculations.NewJSONStore(filepath.Join(t.TempDir(), "calculations.json"), nil),
		chatbot: llm.NewChatbot(echoProvider{}, llm.DefaultChatbotConfig(), nil),
		head: &nn.Head{
			Features: 2,
			Classes:  2,
			Labels:   []string{"debris", "water"},
			Weight:   []float64{1, 0, 0, 1},
			Bias:     []float64{0, 0},
		},
	}
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Invalid JSON response %q: %v", w.Body.String(), err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t, testDeps{})
	w := doRequest(r, "GET", "/health", "")

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	decode(t, w, &response)

	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got '%v'", response["status"])
	}
	if response["models_loaded"] != false {
		t.Errorf("Expected models_loaded false, got %v", response["models_loaded"])
	}

	r = newTestRouter(t, fullDeps(t))
	decode(t, doRequest(r, "GET", "/health", ""), &response)
	if response["models_loaded"] != true {
		t.Errorf("Expected models_loaded true, got %v", response["models_loaded"])
	}
}

func TestInfoEndpoint(t *testing.T) {
	r := newTestRouter(t, testDeps{})
	w := doRequest(r, "GET", "/info", "")

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	decode(t, w, &response)

	if response["version"] != "test" {
		t.Errorf("Expected version 'test', got '%v'", response["version"])
	}
	if response["chatbot_loaded"] != false {
		t.Errorf("Expected chatbot_loaded false, got %v", response["chatbot_loaded"])
	}
}

func TestCalculateWithoutModel(t *testing.T) {
	r := newTestRouter(t, testDeps{calc: footprint.NewCalculator(nil, nil)})
	w := doRequest(r, "POST", "/calculate", `{"height":"170","weight":"70"}`)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}

	var response map[string]string
	decode(t, w, &response)
	if response["error"] != "ML models not loaded" {
		t.Errorf("Unexpected error %q", response["error"])
	}
}

func TestCalculate(t *testing.T) {
	r := newTestRouter(t, fullDeps(t))
	w := doRequest(r, "POST", "/calculate", `{"height":"170","weight":70,"diet":"vegan","transport":"public"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var result footprint.Result
	decode(t, w, &result)

	if result.Prediction != 823 {
		t.Errorf("Expected prediction 823, got %d", result.Prediction)
	}
	if result.TreeCount != 2 {
		t.Errorf("Expected 2 trees, got %d", result.TreeCount)
	}
	if result.Breakdown.Travel != 823 || result.Breakdown.Diet != 823 {
		t.Errorf("Unexpected breakdown %+v", result.Breakdown)
	}
}

func TestCalculateBadInput(t *testing.T) {
	r := newTestRouter(t, fullDeps(t))

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"height":`},
		{"non numeric", `{"height":"tall"}`},
		{"zero height", `{"height":0,"weight":70}`},
		{"nan distance", `{"vehicleKm":"NaN"}`},
		{"infinite bill", `{"groceryBill":"Inf"}`},
		{"nan height", `{"height":"NaN"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, "POST", "/calculate", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestCalculatePredictionOverflow(t *testing.T) {
	deps := fullDeps(t)
	deps.calc = footprint.NewCalculator(constPredictor(math.Inf(1)), nil)
	r := newTestRouter(t, deps)

	w := doRequest(r, "POST", "/calculate", `{"vehicleKm":1e300}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSaveAndListCalculations(t *testing.T) {
	r := newTestRouter(t, fullDeps(t))

	body := `{"formData":{"diet":"vegan"},"results":{"prediction":500,"treeCount":1,"breakdown":{"Travel":100,"Energy":200,"Waste":50,"Diet":150}},"userId":"u1"}`
	w := doRequest(r, "POST", "/save-calculation", body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var saved map[string]interface{}
	decode(t, w, &saved)
	if saved["success"] != true || saved["message"] != "Calculation saved successfully" {
		t.Errorf("Unexpected save response %v", saved)
	}
	id, _ := saved["id"].(string)
	if id == "" {
		t.Fatal("Expected an id")
	}

	// second save with defaults
	doRequest(r, "POST", "/save-calculation", `{}`)

	w = doRequest(r, "GET", "/get-calculations", "")
	var list struct {
		Success      bool                   `json:"success"`
		Calculations []*calculations.Record `json:"calculations"`
		Count        int                    `json:"count"`
	}
	decode(t, w, &list)
	if !list.Success || list.Count != 2 || len(list.Calculations) != 2 {
		t.Fatalf("Unexpected list response %s", w.Body.String())
	}
	if list.Calculations[0].UserID != "u1" || list.Calculations[1].UserID != "anonymous" {
		t.Errorf("Unexpected user ids %s, %s", list.Calculations[0].UserID, list.Calculations[1].UserID)
	}

	w = doRequest(r, "GET", "/calculations/"+id, "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	w = doRequest(r, "GET", "/calculations/summary", "")
	var summary calculations.Summary
	decode(t, w, &summary)
	if summary.Count != 2 || summary.Scored != 1 || summary.MeanPrediction != 500 {
		t.Errorf("Unexpected summary %+v", summary)
	}

	w = doRequest(r, "GET", "/calculations/"+id+"/chart", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("Travel")) {
		t.Error("Expected chart to contain the Travel category")
	}

	w = doRequest(r, "DELETE", "/calculations/"+id, "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	w = doRequest(r, "GET", "/calculations/"+id, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	w = doRequest(r, "DELETE", "/calculations/"+id, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestCalculationChartWithoutBreakdown(t *testing.T) {
	r := newTestRouter(t, fullDeps(t))

	w := doRequest(r, "POST", "/save-calculation", `{"userId":"u2"}`)
	var saved struct {
		ID string `json:"id"`
	}
	decode(t, w, &saved)

	w = doRequest(r, "GET", "/calculations/"+saved.ID+"/chart", "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); strings.HasPrefix(ct, "text/html") {
		t.Errorf("Expected a JSON error, got %s", ct)
	}
}

func TestGetCalculationsEmpty(t *testing.T) {
	r := newTestRouter(t, fullDeps(t))
	w := doRequest(r, "GET", "/get-calculations", "")

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"calculations":[]`) {
		t.Errorf("Expected empty list, got %s", w.Body.String())
	}
}

func TestChat(t *testing.T) {
	r := newTestRouter(t, fullDeps(t))
	w := doRequest(r, "POST", "/chat", `{"message":"  How do I save energy?  "}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var reply llm.Reply
	decode(t, w, &reply)
	if !reply.Success || reply.Response != "Walk more." || reply.Model != "echo" {
		t.Errorf("Unexpected reply %+v", reply)
	}
}

func TestChatEmptyMessage(t *testing.T) {
	r := newTestRouter(t, fullDeps(t))
	w := doRequest(r, "POST", "/chat", `{"message":"   "}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var response map[string]interface{}
	decode(t, w, &response)
	if response["success"] != false || response["error"] != "Message cannot be empty" {
		t.Errorf("Unexpected response %v", response)
	}
}

func TestChatHealthAndTips(t *testing.T) {
	r := newTestRouter(t, testDeps{})

	var health map[string]string
	decode(t, doRequest(r, "GET", "/chat/health", ""), &health)
	if health["status"] != "ok" || health["service"] != "Carbon Footprint Chatbot API" {
		t.Errorf("Unexpected chat health %v", health)
	}

	var tips map[string]interface{}
	decode(t, doRequest(r, "GET", "/tips/Energy", ""), &tips)
	if tips["success"] != true || tips["category"] != "Energy" {
		t.Errorf("Unexpected tips response %v", tips)
	}
	if !strings.Contains(tips["tips"].(string), "LED bulbs") {
		t.Errorf("Expected energy tips, got %v", tips["tips"])
	}

	decode(t, doRequest(r, "GET", "/tips/unknown", ""), &tips)
	if tips["tips"] != llm.UnknownCategory {
		t.Errorf("Expected fallback message, got %v", tips["tips"])
	}
}

func TestResNetArchitecture(t *testing.T) {
	r := newTestRouter(t, testDeps{})
	w := doRequest(r, "GET", "/resnet/architecture?bands=3&classes=1000&height=224&width=224", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var arch struct {
		ParamCount  int   `json:"param_count"`
		OutputShape []int `json:"output_shape"`
	}
	decode(t, w, &arch)
	if arch.ParamCount != 25557032 {
		t.Errorf("Expected 25557032 params, got %d", arch.ParamCount)
	}
	if len(arch.OutputShape) != 2 || arch.OutputShape[1] != 1000 {
		t.Errorf("Unexpected output shape %v", arch.OutputShape)
	}

	for _, query := range []string{
		"bands=x",
		"bands=100000000",
		"classes=1000000",
		"height=100000",
		"width=100000",
		"batch=100000",
		"batch=0",
	} {
		w = doRequest(r, "GET", "/resnet/architecture?"+query, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", query, w.Code)
		}
	}
}

func TestResNetPredict(t *testing.T) {
	w := doRequest(newTestRouter(t, testDeps{}), "POST", "/resnet/predict", `{"features":[0,0]}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}

	r := newTestRouter(t, fullDeps(t))
	w = doRequest(r, "POST", "/resnet/predict", `{"features":[0,0]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Probabilities []float64          `json:"probabilities"`
		Labels        map[string]float64 `json:"labels"`
	}
	decode(t, w, &resp)
	if len(resp.Probabilities) != 2 || resp.Probabilities[0] != 0.5 {
		t.Errorf("Unexpected probabilities %v", resp.Probabilities)
	}
	if resp.Labels["water"] != 0.5 {
		t.Errorf("Unexpected labels %v", resp.Labels)
	}

	w = doRequest(r, "POST", "/resnet/predict", `{"features":[1]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}
