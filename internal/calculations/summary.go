package calculations

import (
	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the predictions of saved calculations
type Summary struct {
	Count          int                `json:"count"`
	Scored         int                `json:"scored"`
	MeanPrediction float64            `json:"meanPrediction"`
	MinPrediction  float64            `json:"minPrediction"`
	MaxPrediction  float64            `json:"maxPrediction"`
	CategoryMeans  map[string]float64 `json:"categoryMeans"`
}

// savedResults is the subset of a record's results the summary reads
type savedResults struct {
	Prediction *float64           `json:"prediction"`
	Breakdown  map[string]float64 `json:"breakdown"`
}

// ParseResults decodes a record's results; ok is false when they carry no
// numeric prediction.
func ParseResults(r *Record) (prediction float64, breakdown map[string]float64, ok bool) {
	var res savedResults
	if err := json.Unmarshal(r.Results, &res); err != nil || res.Prediction == nil {
		return 0, nil, false
	}
	return *res.Prediction, res.Breakdown, true
}

// Summarize computes count, mean, min and max prediction and the mean of
// each breakdown category. Records without a prediction only add to Count.
func Summarize(records []*Record) Summary {
	s := Summary{
		Count:         len(records),
		CategoryMeans: map[string]float64{},
	}

	var predictions []float64
	categories := map[string][]float64{}
	for _, r := range records {
		p, breakdown, ok := ParseResults(r)
		if !ok {
			continue
		}
		predictions = append(predictions, p)
		for name, v := range breakdown {
			categories[name] = append(categories[name], v)
		}
	}

	s.Scored = len(predictions)
	if s.Scored == 0 {
		return s
	}

	s.MeanPrediction = stat.Mean(predictions, nil)
	s.MinPrediction = floats.Min(predictions)
	s.MaxPrediction = floats.Max(predictions)
	for name, values := range categories {
		s.CategoryMeans[name] = stat.Mean(values, nil)
	}
	return s
}
