// Package nn describes the ResNet-50 multi-label classifier used for
// multispectral image patches: its layer graph, parameter accounting,
// weight initialisation and the trained classification head.
package nn

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Layer kinds
const (
	KindConv    = "conv2d"
	KindBN      = "batchnorm2d"
	KindReLU    = "relu"
	KindMaxPool = "maxpool2d"
	KindAvgPool = "adaptive_avgpool2d"
	KindLinear  = "linear"
)

// FeatureDim is the width of the pooled encoder output
const FeatureDim = 2048

// Upper bounds on the configurations the network can be built and traced for
const (
	MaxInputBands    = 1024
	MaxOutputClasses = 100000
	MaxPatchSize     = 8192
	MaxBatch         = 1024
)

const expansion = 4

// stage is one residual stage: block count and bottleneck width
type stage struct {
	blocks int
	width  int
	stride int
}

var resnet50Stages = []stage{
	{blocks: 3, width: 64, stride: 1},
	{blocks: 4, width: 128, stride: 2},
	{blocks: 6, width: 256, stride: 2},
	{blocks: 3, width: 512, stride: 2},
}

// ResNetConfig holds the input band and output class counts
type ResNetConfig struct {
	InputBands    int
	OutputClasses int
}

// DefaultResNetConfig returns the configuration for 11-band patches with 11 labels
func DefaultResNetConfig() ResNetConfig {
	return ResNetConfig{
		InputBands:    11,
		OutputClasses: 11,
	}
}

// Layer is one leaf module of the network
type Layer struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	InChannels  int    `json:"in_channels,omitempty"`
	OutChannels int    `json:"out_channels,omitempty"`
	Kernel      int    `json:"kernel,omitempty"`
	Stride      int    `json:"stride,omitempty"`
	Padding     int    `json:"padding,omitempty"`
	Bias        bool   `json:"bias,omitempty"`
	Params      int    `json:"params"`
}

// FanIn is the number of inputs feeding one output unit
func (l Layer) FanIn() int {
	switch l.Kind {
	case KindConv:
		return l.InChannels * l.Kernel * l.Kernel
	case KindLinear:
		return l.InChannels
	}
	return 0
}

// Weighted reports whether Kaiming initialisation applies to the layer
func (l Layer) Weighted() bool {
	return l.Kind == KindConv || l.Kind == KindLinear
}

// weightCount is the size of the weight tensor, excluding bias
func (l Layer) weightCount() int {
	return l.OutChannels * l.FanIn()
}

// ResNet is a ResNet-50 encoder with a replaced input convolution and a
// linear classification layer.
type ResNet struct {
	cfg    ResNetConfig
	layers []Layer
}

// Build assembles the layer graph for a configuration
func Build(cfg ResNetConfig) (*ResNet, error) {
	if cfg.InputBands <= 0 || cfg.InputBands > MaxInputBands {
		return nil, fmt.Errorf("input bands must be in [1, %d], got %d", MaxInputBands, cfg.InputBands)
	}
	if cfg.OutputClasses <= 0 || cfg.OutputClasses > MaxOutputClasses {
		return nil, fmt.Errorf("output classes must be in [1, %d], got %d", MaxOutputClasses, cfg.OutputClasses)
	}

	r := &ResNet{cfg: cfg}
	r.conv("encoder.conv1", cfg.InputBands, 64, 7, 2, 3)
	r.bn("encoder.bn1", 64)
	r.add(Layer{Name: "encoder.relu", Kind: KindReLU})
	r.add(Layer{Name: "encoder.maxpool", Kind: KindMaxPool, Kernel: 3, Stride: 2, Padding: 1})

	in := 64
	for i, s := range resnet50Stages {
		for b := 0; b < s.blocks; b++ {
			stride := 1
			if b == 0 {
				stride = s.stride
			}
			in = r.bottleneck(fmt.Sprintf("encoder.layer%d.%d", i+1, b), in, s.width, stride)
		}
	}

	r.add(Layer{Name: "encoder.avgpool", Kind: KindAvgPool})
	r.add(Layer{
		Name:        "fc",
		Kind:        KindLinear,
		InChannels:  FeatureDim,
		OutChannels: cfg.OutputClasses,
		Bias:        true,
		Params:      FeatureDim*cfg.OutputClasses + cfg.OutputClasses,
	})
	return r, nil
}

// bottleneck appends one block and returns its output channel count
func (r *ResNet) bottleneck(prefix string, in, width, stride int) int {
	out := width * expansion
	r.conv(prefix+".conv1", in, width, 1, 1, 0)
	r.bn(prefix+".bn1", width)
	r.conv(prefix+".conv2", width, width, 3, stride, 1)
	r.bn(prefix+".bn2", width)
	r.conv(prefix+".conv3", width, out, 1, 1, 0)
	r.bn(prefix+".bn3", out)
	r.add(Layer{Name: prefix + ".relu", Kind: KindReLU})
	if stride != 1 || in != out {
		r.conv(prefix+".downsample.0", in, out, 1, stride, 0)
		r.bn(prefix+".downsample.1", out)
	}
	return out
}

func (r *ResNet) conv(name string, in, out, kernel, stride, padding int) {
	r.add(Layer{
		Name:        name,
		Kind:        KindConv,
		InChannels:  in,
		OutChannels: out,
		Kernel:      kernel,
		Stride:      stride,
		Padding:     padding,
		Params:      in * out * kernel * kernel,
	})
}

// bn counts only the affine weight and bias; running statistics are buffers
func (r *ResNet) bn(name string, channels int) {
	r.add(Layer{
		Name:        name,
		Kind:        KindBN,
		InChannels:  channels,
		OutChannels: channels,
		Params:      2 * channels,
	})
}

func (r *ResNet) add(l Layer) {
	r.layers = append(r.layers, l)
}

// Config returns the configuration the network was built with
func (r *ResNet) Config() ResNetConfig {
	return r.cfg
}

// Layers returns a copy of the leaf layers in forward order
func (r *ResNet) Layers() []Layer {
	out := make([]Layer, len(r.layers))
	copy(out, r.layers)
	return out
}

// ParamCount returns the number of learnable parameters
func (r *ResNet) ParamCount() int {
	total := 0
	for _, l := range r.layers {
		total += l.Params
	}
	return total
}

// StageShape is the activation shape after a named stage
type StageShape struct {
	Stage string `json:"stage"`
	Shape []int  `json:"shape"`
}

// FeatureShapes traces activation shapes (N, C, H, W) through the encoder
// and the classifier for an input of batch x bands x height x width.
func (r *ResNet) FeatureShapes(batch, height, width int) ([]StageShape, error) {
	if batch <= 0 || height <= 0 || width <= 0 {
		return nil, fmt.Errorf("batch, height and width must be positive, got %d, %d, %d", batch, height, width)
	}
	if batch > MaxBatch {
		return nil, fmt.Errorf("batch must be at most %d, got %d", MaxBatch, batch)
	}
	if height > MaxPatchSize || width > MaxPatchSize {
		return nil, fmt.Errorf("patch size must be at most %d, got %dx%d", MaxPatchSize, height, width)
	}

	h, w := height, width
	shapes := []StageShape{{Stage: "input", Shape: []int{batch, r.cfg.InputBands, h, w}}}

	h, w = convOut(h, 7, 2, 3), convOut(w, 7, 2, 3)
	shapes = append(shapes, StageShape{Stage: "conv1", Shape: []int{batch, 64, h, w}})

	h, w = convOut(h, 3, 2, 1), convOut(w, 3, 2, 1)
	shapes = append(shapes, StageShape{Stage: "maxpool", Shape: []int{batch, 64, h, w}})

	for i, s := range resnet50Stages {
		h, w = convOut(h, 3, s.stride, 1), convOut(w, 3, s.stride, 1)
		shapes = append(shapes, StageShape{
			Stage: fmt.Sprintf("layer%d", i+1),
			Shape: []int{batch, s.width * expansion, h, w},
		})
	}

	shapes = append(shapes,
		StageShape{Stage: "avgpool", Shape: []int{batch, FeatureDim, 1, 1}},
		StageShape{Stage: "flatten", Shape: []int{batch, FeatureDim}},
		StageShape{Stage: "fc", Shape: []int{batch, r.cfg.OutputClasses}},
	)
	return shapes, nil
}

// OutputShape returns the logits shape for a batch of patches
func (r *ResNet) OutputShape(batch, height, width int) ([]int, error) {
	shapes, err := r.FeatureShapes(batch, height, width)
	if err != nil {
		return nil, err
	}
	return shapes[len(shapes)-1].Shape, nil
}

func convOut(size, kernel, stride, padding int) int {
	return (size+2*padding-kernel)/stride + 1
}

// KaimingStd is the normal standard deviation for a layer: gain / sqrt(fan_in)
// with the ReLU gain sqrt(2).
func KaimingStd(l Layer) float64 {
	fanIn := l.FanIn()
	if fanIn == 0 {
		return 0
	}
	return math.Sqrt2 / math.Sqrt(float64(fanIn))
}

// KaimingNormal draws the weight tensor of one layer
func KaimingNormal(l Layer, rng *rand.Rand) []float32 {
	std := KaimingStd(l)
	weights := make([]float32, l.weightCount())
	for i := range weights {
		weights[i] = float32(rng.NormFloat64() * std)
	}
	return weights
}

// Weights holds initialised tensors keyed by layer name
type Weights map[string][]float32

// InitWeights draws Kaiming-normal weights for every convolution and linear
// layer. Biases and batch norm parameters keep their zero/one defaults and
// are not materialised.
func (r *ResNet) InitWeights(rng *rand.Rand) Weights {
	weights := make(Weights)
	for _, l := range r.layers {
		if l.Weighted() {
			weights[l.Name] = KaimingNormal(l, rng)
		}
	}
	return weights
}

// Classifier returns the final linear layer
func (r *ResNet) Classifier() Layer {
	return r.layers[len(r.layers)-1]
}
