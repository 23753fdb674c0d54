package model

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Brownie44l1/safe-skin/internal/diagnosis"
)

// Classifier is a loaded model. Implementations must be safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, input Tensor) (diagnosis.ProbabilityVector, error)
	Metadata() Metadata
	Close()
}

// Loader loads a classifier. It is called at most once per Gateway.
type Loader func(ctx context.Context) (Classifier, error)

// Gateway owns the process-wide classifier. Initialize is lazy and idempotent:
// concurrent callers share a single load and observe the same outcome.
type Gateway struct {
	load Loader

	once sync.Once
	done atomic.Bool
	clf  Classifier
	err  error
}

func NewGateway(load Loader) *Gateway {
	return &Gateway{load: load}
}

// Initialize loads the classifier on first call and returns the cached
// handle or error afterwards.
func (g *Gateway) Initialize(ctx context.Context) (Classifier, error) {
	g.once.Do(func() {
		g.clf, g.err = g.load(ctx)
		if g.err != nil {
			g.clf = nil
		}
		g.done.Store(true)
	})
	return g.clf, g.err
}

// Available reports whether a classifier is loaded. It never triggers a load.
func (g *Gateway) Available() bool {
	clf, err := g.peek()
	return err == nil && clf != nil
}

// Err returns the load error, if the load already happened and failed.
func (g *Gateway) Err() error {
	_, err := g.peek()
	return err
}

// Classify runs the loaded classifier. It initializes the gateway if needed.
func (g *Gateway) Classify(ctx context.Context, input Tensor) (diagnosis.ProbabilityVector, error) {
	clf, err := g.Initialize(ctx)
	if err != nil {
		return diagnosis.ProbabilityVector{}, err
	}
	return clf.Classify(ctx, input)
}

// Close releases the classifier if one was loaded.
func (g *Gateway) Close() {
	if clf, _ := g.peek(); clf != nil {
		clf.Close()
	}
}

// peek reads the load outcome without loading. The zero values are returned
// while no Initialize call has completed.
func (g *Gateway) peek() (Classifier, error) {
	if !g.done.Load() {
		return nil, nil
	}
	return g.clf, g.err
}
