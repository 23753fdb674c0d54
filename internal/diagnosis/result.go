package diagnosis

import (
	"fmt"
)

// ProbabilityVector is the raw classifier output, one value per catalog label.
// Values are used as-is; they are not renormalised.
type ProbabilityVector [Count]float32

// VectorFrom copies a model output slice into a ProbabilityVector.
func VectorFrom(values []float32) (ProbabilityVector, error) {
	var v ProbabilityVector
	if len(values) != Count {
		return v, fmt.Errorf("expected %d class scores, got %d", Count, len(values))
	}
	copy(v[:], values)
	return v, nil
}

// Result is the argmax classification of a ProbabilityVector.
type Result struct {
	Label      Label   `json:"label"`
	Confidence float32 `json:"confidence"`
}

// Resolve picks the highest scoring label. Ties go to the lowest index.
func Resolve(v ProbabilityVector) Result {
	maxIdx := 0
	maxVal := v[0]
	for i, val := range v {
		if val > maxVal {
			maxVal = val
			maxIdx = i
		}
	}
	return Result{Label: catalog[maxIdx], Confidence: maxVal}
}

// Point is one bar of the probability chart.
type Point struct {
	Label       string  `json:"label"`
	Probability float32 `json:"probability"`
}

// Series pairs every score with its display label, in catalog order.
func Series(v ProbabilityVector) []Point {
	points := make([]Point, Count)
	for i, val := range v {
		points[i] = Point{Label: catalog[i].String(), Probability: val}
	}
	return points
}
