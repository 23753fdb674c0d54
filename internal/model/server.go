package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/safe-skin/internal/diagnosis"
)

// Options locate the ONNX artifact and the onnxruntime shared library.
type Options struct {
	ModelPath         string
	MetadataPath      string
	SharedLibraryPath string
}

// Server runs an ONNX classifier through onnxruntime. The input and output
// tensors are bound to the session once, so runs are serialised.
type Server struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// OnnxLoader returns a Loader that builds a Server from opts.
func OnnxLoader(opts Options) Loader {
	return func(ctx context.Context) (Classifier, error) {
		return NewServer(opts)
	}
}

func NewServer(opts Options) (*Server, error) {
	if _, err := os.Stat(opts.ModelPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, opts.ModelPath)
		}
		return nil, invalidf("stat %s: %v", opts.ModelPath, err)
	}

	metadata, err := LoadMetadata(opts.MetadataPath)
	if err != nil {
		return nil, err
	}

	if opts.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(opts.SharedLibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, invalidf("failed to initialize ONNX environment: %v", err)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		ort.DestroyEnvironment()
		return nil, invalidf("failed to create input tensor: %v", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, invalidf("failed to create output tensor: %v", err)
	}

	session, err := ort.NewAdvancedSession(opts.ModelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, invalidf("failed to create ONNX session: %v", err)
	}

	return &Server{
		session:      session,
		metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// LoadMetadata reads the JSON sidecar at path. A missing file yields
// DefaultMetadata; a present but unusable one is an InvalidModelError.
func LoadMetadata(path string) (Metadata, error) {
	metadata := DefaultMetadata()
	if path == "" {
		return metadata, nil
	}

	metaFile, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return metadata, nil
	}
	if err != nil {
		return Metadata{}, invalidf("failed to read metadata: %v", err)
	}

	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return Metadata{}, invalidf("failed to parse metadata: %v", err)
	}
	if err := ValidateMetadata(metadata); err != nil {
		return Metadata{}, err
	}
	return metadata, nil
}

// ValidateMetadata checks the model against the label catalog. A model whose
// output width or class order differs would misclassify silently.
func ValidateMetadata(m Metadata) error {
	if m.InputName == "" || m.OutputName == "" {
		return invalidf("input and output tensor names are required")
	}
	if len(m.InputShape) != 4 || m.InputShape[0] != 1 {
		return invalidf("input shape %v is not (1, height, width, channels)", m.InputShape)
	}
	if m.InputShape[3] != 3 {
		return invalidf("input shape %v does not have 3 channels", m.InputShape)
	}
	if m.ImageSize <= 0 || int64(m.ImageSize) != m.InputShape[1] || m.InputShape[1] != m.InputShape[2] {
		return invalidf("image size %d does not match input shape %v", m.ImageSize, m.InputShape)
	}
	if len(m.OutputShape) == 0 || m.OutputShape[len(m.OutputShape)-1] != diagnosis.Count ||
		shapeSize(m.OutputShape) != diagnosis.Count {
		return invalidf("output shape %v does not carry %d class scores", m.OutputShape, diagnosis.Count)
	}
	if len(m.Classes) > 0 {
		names := diagnosis.Names()
		if len(m.Classes) != len(names) {
			return invalidf("model declares %d classes, catalog has %d", len(m.Classes), len(names))
		}
		for i, c := range m.Classes {
			if c != names[i] {
				return invalidf("class %d is %q, catalog expects %q", i, c, names[i])
			}
		}
	}
	return nil
}

func (s *Server) Metadata() Metadata {
	return s.metadata
}

func (s *Server) Classify(ctx context.Context, input Tensor) (diagnosis.ProbabilityVector, error) {
	var v diagnosis.ProbabilityVector
	if err := input.Validate(); err != nil {
		return v, err
	}
	if !sameShape(input.Shape, s.metadata.InputShape) {
		return v, fmt.Errorf("%w: input shape %v, model expects %v", ErrInference, input.Shape, s.metadata.InputShape)
	}
	if err := ctx.Err(); err != nil {
		return v, err
	}

	s.mu.Lock()
	copy(s.inputTensor.GetData(), input.Data)
	err := s.session.Run()
	var out []float32
	if err == nil {
		out = append(out, s.outputTensor.GetData()...)
	}
	s.mu.Unlock()

	if err != nil {
		return v, fmt.Errorf("%w: %v", ErrInference, err)
	}

	v, err = diagnosis.VectorFrom(out)
	if err != nil {
		return v, fmt.Errorf("%w: %v", ErrInference, err)
	}
	return v, nil
}

func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inputTensor != nil {
		s.inputTensor.Destroy()
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
	}
	if s.session != nil {
		s.session.Destroy()
	}
	ort.DestroyEnvironment()
}

var _ Classifier = (*Server)(nil)
