// Package diagnosis holds the fixed label catalog the classifier output is
// aligned with, and the argmax resolution from a probability vector to a label.
package diagnosis

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Count is the number of diagnostic classes. The classifier output width must
// equal it.
const Count = 7

var ErrUnknownLabel = errors.New("unknown diagnostic label")

// Malignancy tags a label as benign, malignant or precancerous.
type Malignancy string

const (
	Benign       Malignancy = "Benign"
	Malignant    Malignancy = "Malignant"
	Precancerous Malignancy = "Precancerous"
)

// Label is one of the seven diagnostic classes.
type Label struct {
	Index      int        `json:"index"`
	Name       string     `json:"name"`
	Malignancy Malignancy `json:"malignancy"`
}

// String returns the display text, e.g. "Melanoma (Malignant)".
func (l Label) String() string {
	return fmt.Sprintf("%s (%s)", l.Name, l.Malignancy)
}

// catalog order matches the model output order. Never reorder.
var catalog = [Count]Label{
	{Index: 0, Name: "Melanocytic nevi", Malignancy: Benign},
	{Index: 1, Name: "Melanoma", Malignancy: Malignant},
	{Index: 2, Name: "Benign keratosis", Malignancy: Benign},
	{Index: 3, Name: "Basal cell carcinoma", Malignancy: Malignant},
	{Index: 4, Name: "Actinic keratoses", Malignancy: Precancerous},
	{Index: 5, Name: "Vascular lesions", Malignancy: Benign},
	{Index: 6, Name: "Dermatofibroma", Malignancy: Benign},
}

// LabelAt returns the label for a model output index.
func LabelAt(i int) (Label, error) {
	if i < 0 || i >= Count {
		return Label{}, fmt.Errorf("%w: index %d", ErrUnknownLabel, i)
	}
	return catalog[i], nil
}

// All returns the labels in catalog order.
func All() []Label {
	out := make([]Label, Count)
	copy(out, catalog[:])
	return out
}

// Names returns the bare class names in catalog order.
func Names() []string {
	out := make([]string, Count)
	for i, l := range catalog {
		out[i] = l.Name
	}
	return out
}

// Parse accepts an index ("3"), a class name ("Melanoma") or the display
// text ("Melanoma (Malignant)"). Name matching ignores case.
func Parse(s string) (Label, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		return LabelAt(i)
	}
	for _, l := range catalog {
		if strings.EqualFold(s, l.Name) || strings.EqualFold(s, l.String()) {
			return l, nil
		}
	}
	return Label{}, fmt.Errorf("%w: %q", ErrUnknownLabel, s)
}
