package model

import (
	"errors"
	"fmt"

	"github.com/Brownie44l1/safe-skin/internal/diagnosis"
)

var (
	// ErrModelNotFound means the classifier artifact is absent. Prediction is
	// unavailable but the rest of the service keeps working.
	ErrModelNotFound = errors.New("classifier artifact not found")

	// ErrInference means the classifier was called outside its input contract.
	ErrInference = errors.New("inference failed")
)

// InvalidModelError reports an artifact that exists but cannot be loaded.
type InvalidModelError struct {
	Msg string
}

func (e *InvalidModelError) Error() string {
	return "invalid classifier artifact: " + e.Msg
}

func invalidf(format string, args ...any) error {
	return &InvalidModelError{Msg: fmt.Sprintf(format, args...)}
}

// Metadata describes the model's tensors. It is read from an optional JSON
// file next to the model.
type Metadata struct {
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
}

// DefaultMetadata matches a Keras-exported 224x224 RGB classifier.
func DefaultMetadata() Metadata {
	return Metadata{
		InputName:   "input",
		OutputName:  "output",
		InputShape:  []int64{1, 224, 224, 3},
		OutputShape: []int64{1, diagnosis.Count},
		Classes:     diagnosis.Names(),
		ImageSize:   224,
	}
}

// InputSize is the number of float32 values one input tensor holds.
func (m Metadata) InputSize() int {
	return shapeSize(m.InputShape)
}

// Tensor is a dense float32 tensor in NHWC layout.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Validate checks that Data fills Shape exactly.
func (t Tensor) Validate() error {
	if len(t.Shape) == 0 {
		return fmt.Errorf("%w: tensor has no shape", ErrInference)
	}
	if n := shapeSize(t.Shape); n != len(t.Data) {
		return fmt.Errorf("%w: shape %v needs %d values, got %d", ErrInference, t.Shape, n, len(t.Data))
	}
	return nil
}

type PredictionRequest struct {
	Image []float32 `json:"image"`
}

func shapeSize(shape []int64) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= int(d)
	}
	return n
}

func sameShape(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
