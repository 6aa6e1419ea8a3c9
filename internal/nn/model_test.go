package nn

import (
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"gonum.org/v1/gonum/stat"
)

func TestDefaultResNetConfig(t *testing.T) {
	cfg := DefaultResNetConfig()
	if cfg.InputBands != 11 {
		t.Errorf("Expected InputBands=11, got %d", cfg.InputBands)
	}
	if cfg.OutputClasses != 11 {
		t.Errorf("Expected OutputClasses=11, got %d", cfg.OutputClasses)
	}
}

func TestBuildInvalid(t *testing.T) {
	if _, err := Build(ResNetConfig{InputBands: 0, OutputClasses: 11}); err == nil {
		t.Error("Expected error for zero bands")
	}
	if _, err := Build(ResNetConfig{InputBands: 11, OutputClasses: -1}); err == nil {
		t.Error("Expected error for negative classes")
	}
	if _, err := Build(ResNetConfig{InputBands: 100000000, OutputClasses: 11}); err == nil {
		t.Error("Expected error for too many bands")
	}
	if _, err := Build(ResNetConfig{InputBands: 11, OutputClasses: MaxOutputClasses + 1}); err == nil {
		t.Error("Expected error for too many classes")
	}
	if _, err := Build(ResNetConfig{InputBands: MaxInputBands, OutputClasses: MaxOutputClasses}); err != nil {
		t.Errorf("Expected the largest configuration to build: %v", err)
	}
}

func TestParamCount(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ResNetConfig
		expected int
	}{
		{"imagenet", ResNetConfig{InputBands: 3, OutputClasses: 1000}, 25557032},
		{"multispectral", DefaultResNetConfig(), 23555659},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Build(tt.cfg)
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			if got := r.ParamCount(); got != tt.expected {
				t.Errorf("Expected %d params, got %d", tt.expected, got)
			}
		})
	}
}

func TestLayers(t *testing.T) {
	r, err := Build(DefaultResNetConfig())
	if err != nil {
		t.Fatal(err)
	}
	layers := r.Layers()

	first := layers[0]
	if first.Kind != KindConv || first.InChannels != 11 || first.Kernel != 7 || first.Stride != 2 || first.Padding != 3 || first.Bias {
		t.Errorf("Unexpected input conv: %+v", first)
	}

	convs, downsamples := 0, 0
	for _, l := range layers {
		if l.Kind == KindConv {
			convs++
		}
		if strings.Contains(l.Name, "downsample.0") {
			downsamples++
		}
	}
	// stem + 16 bottlenecks x 3 + 4 projections
	if convs != 53 {
		t.Errorf("Expected 53 convolutions, got %d", convs)
	}
	if downsamples != 4 {
		t.Errorf("Expected 4 downsample projections, got %d", downsamples)
	}

	fc := r.Classifier()
	if fc.Name != "fc" || fc.InChannels != FeatureDim || fc.OutChannels != 11 || !fc.Bias {
		t.Errorf("Unexpected classifier: %+v", fc)
	}

	// Layers returns a copy
	layers[0].Name = "changed"
	if r.Layers()[0].Name != "encoder.conv1" {
		t.Error("Layers should not expose internal state")
	}
}

func TestOutputShape(t *testing.T) {
	r, err := Build(DefaultResNetConfig())
	if err != nil {
		t.Fatal(err)
	}

	shape, err := r.OutputShape(4, 256, 256)
	if err != nil {
		t.Fatalf("OutputShape failed: %v", err)
	}
	if len(shape) != 2 || shape[0] != 4 || shape[1] != 11 {
		t.Errorf("Expected [4 11], got %v", shape)
	}

	shapes, err := r.FeatureShapes(1, 256, 256)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string][]int{
		"conv1":   {1, 64, 128, 128},
		"maxpool": {1, 64, 64, 64},
		"layer1":  {1, 256, 64, 64},
		"layer2":  {1, 512, 32, 32},
		"layer3":  {1, 1024, 16, 16},
		"layer4":  {1, 2048, 8, 8},
		"flatten": {1, 2048},
	}
	for _, s := range shapes {
		expected, ok := want[s.Stage]
		if !ok {
			continue
		}
		if !slices.Equal(s.Shape, expected) {
			t.Errorf("Stage %s: expected %v, got %v", s.Stage, expected, s.Shape)
		}
	}

	if _, err := r.OutputShape(1, 0, 256); err == nil {
		t.Error("Expected error for zero height")
	}
	if _, err := r.OutputShape(1, 256, MaxPatchSize+1); err == nil {
		t.Error("Expected error for oversized width")
	}
	if _, err := r.OutputShape(MaxBatch+1, 256, 256); err == nil {
		t.Error("Expected error for oversized batch")
	}
}

func TestKaimingNormal(t *testing.T) {
	layer := Layer{Kind: KindConv, InChannels: 64, OutChannels: 64, Kernel: 3}
	rng := rand.New(rand.NewPCG(1, 2))

	w := KaimingNormal(layer, rng)
	if len(w) != 64*64*9 {
		t.Fatalf("Expected %d weights, got %d", 64*64*9, len(w))
	}

	values := make([]float64, len(w))
	for i, v := range w {
		values[i] = float64(v)
	}
	mean, std := stat.MeanStdDev(values, nil)
	expected := KaimingStd(layer)
	if mean > 0.005 || mean < -0.005 {
		t.Errorf("Expected mean near 0, got %f", mean)
	}
	if std < expected*0.95 || std > expected*1.05 {
		t.Errorf("Expected std near %f, got %f", expected, std)
	}

	if KaimingStd(Layer{Kind: KindBN, InChannels: 64}) != 0 {
		t.Error("Batch norm layers have no Kaiming std")
	}
}

func TestInitWeights(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates the full network")
	}
	r, err := Build(DefaultResNetConfig())
	if err != nil {
		t.Fatal(err)
	}

	weights := r.InitWeights(rand.New(rand.NewPCG(7, 7)))
	total := 0
	for _, l := range r.Layers() {
		w, ok := weights[l.Name]
		if l.Weighted() != ok {
			t.Errorf("Layer %s: weighted=%v but initialised=%v", l.Name, l.Weighted(), ok)
		}
		if ok && len(w) != l.weightCount() {
			t.Errorf("Layer %s: expected %d weights, got %d", l.Name, l.weightCount(), len(w))
		}
		total += len(w)
	}
	// all learnable parameters except biases and batch norm affine terms
	if total != 23555659-11-53120 {
		t.Errorf("Unexpected weight total %d", total)
	}
}
