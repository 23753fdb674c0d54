package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Brownie44l1/safe-skin/internal/diagnosis"
	"github.com/Brownie44l1/safe-skin/internal/model"
)

// MockClassifier is a Classifier returning a fixed vector unless ClassifyFunc
// is set.
type MockClassifier struct {
	ClassifyFunc func(ctx context.Context, input model.Tensor) (diagnosis.ProbabilityVector, error)
	Vector       diagnosis.ProbabilityVector
	Meta         model.Metadata

	mu        sync.Mutex
	CallCount int
	LastShape []int64
	Closed    bool
}

// NewMockClassifier returns a mock that always answers v.
func NewMockClassifier(v diagnosis.ProbabilityVector) *MockClassifier {
	return &MockClassifier{Vector: v, Meta: model.DefaultMetadata()}
}

func (m *MockClassifier) Classify(ctx context.Context, input model.Tensor) (diagnosis.ProbabilityVector, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastShape = append([]int64(nil), input.Shape...)
	m.mu.Unlock()

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, input)
	}
	if err := input.Validate(); err != nil {
		return diagnosis.ProbabilityVector{}, err
	}
	return m.Vector, nil
}

func (m *MockClassifier) Metadata() model.Metadata {
	return m.Meta
}

func (m *MockClassifier) Close() {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
}

// Calls returns how many times Classify ran.
func (m *MockClassifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// CountingLoader wraps a classifier (or an error) in a Loader that counts
// how often it is invoked.
type CountingLoader struct {
	Classifier model.Classifier
	Err        error
	loads      atomic.Int32
}

func (l *CountingLoader) Load(ctx context.Context) (model.Classifier, error) {
	l.loads.Add(1)
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Classifier, nil
}

// Loads returns the number of Load calls.
func (l *CountingLoader) Loads() int {
	return int(l.loads.Load())
}

var _ model.Classifier = (*MockClassifier)(nil)
