package regression

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityModel() *Model {
	return &Model{
		Columns:   []string{"a", "b"},
		Scaler:    StandardScaler{Mean: []float64{0, 0}, Scale: []float64{1, 1}},
		Regressor: OLSRegression{Coef: []float64{1, 2}, Intercept: 0.5},
		Target:    TargetLog,
	}
}

func TestModelPredictLogTarget(t *testing.T) {
	m := identityModel()

	out, err := m.Predict([][]float64{{1, 1}, {0, 0}})
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(3.5), out[0], 1e-9)
	assert.InDelta(t, math.Exp(0.5), out[1], 1e-9)

	_, err = m.Predict([][]float64{{1}})
	assert.ErrorIs(t, err, ErrFeatureLenMismatch)
}

func TestModelSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "model.json")

	require.NoError(t, identityModel().Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, identityModel(), loaded)
}

func TestModelLoadInvalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"columns":["a"],"scaler":{"mean":[0],"scale":[1]},"regressor":{"coef":[1,2]}}`), 0644))
	_, err := Load(bad)
	assert.ErrorIs(t, err, ErrFeatureLenMismatch)

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("not json"), 0644))
	_, err = Load(garbage)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestModelValidate(t *testing.T) {
	testData := map[string]func(m *Model){
		"no columns":     func(m *Model) { m.Columns = nil },
		"zero scale":     func(m *Model) { m.Scaler.Scale[1] = 0 },
		"unknown target": func(m *Model) { m.Target = "sqrt" },
		"short scaler":   func(m *Model) { m.Scaler.Mean = m.Scaler.Mean[:1] },
	}

	for name, modify := range testData {
		t.Run(name, func(t *testing.T) {
			m := identityModel()
			modify(m)
			assert.Error(t, m.Validate())
		})
	}
}

func TestReadCSV(t *testing.T) {
	csvData := `b,CarbonEmission,a,ignored
1,100,2,x
0,200,true,y
`
	ds, err := readCSV(strings.NewReader(csvData), []string{"a", "b"}, "")
	require.NoError(t, err)

	assert.Equal(t, []float64{100, 200}, ds.Y)
	assert.Equal(t, []float64{2, 1}, ds.X.RawRowView(0))
	assert.Equal(t, []float64{1, 0}, ds.X.RawRowView(1))

	_, err = readCSV(strings.NewReader(csvData), []string{"c"}, "")
	assert.Error(t, err)

	_, err = readCSV(strings.NewReader("a,CarbonEmission\n"), []string{"a"}, "")
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestTrain(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("a,b,CarbonEmission\n")
	for i := 0; i < 20; i++ {
		a := float64(i)
		b := float64((i * 7) % 5)
		y := math.Exp(0.5 + 0.1*a + 0.2*b)
		sb.WriteString(strings.Join([]string{
			formatFloat(a), formatFloat(b), formatFloat(y),
		}, ","))
		sb.WriteString("\n")
	}

	ds, err := readCSV(strings.NewReader(sb.String()), []string{"a", "b"}, "")
	require.NoError(t, err)

	model, r2, err := Train(ds, []string{"a", "b"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r2, 1e-9)
	require.NoError(t, model.Validate())

	out, err := model.Predict([][]float64{{3, 2}})
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(0.5+0.3+0.4), out[0], 1e-6)
}

func TestTrainRejectsNonPositiveTarget(t *testing.T) {
	ds, err := readCSV(strings.NewReader("a,CarbonEmission\n1,0\n2,3\n"), []string{"a"}, "")
	require.NoError(t, err)

	_, _, err = Train(ds, []string{"a"})
	assert.Error(t, err)
}
