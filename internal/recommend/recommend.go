// Package recommend maps a diagnostic label to a static recovery window and
// treatment steps. It is advisory text, not a prescription.
package recommend

import (
	"strings"

	"github.com/Brownie44l1/safe-skin/internal/diagnosis"
)

// NoRecommendation is shown when no table entry matches.
const NoRecommendation = "no recommendation available"

// Record is the advice attached to one match key.
type Record struct {
	Key            string   `json:"key"`
	RecoveryWindow string   `json:"recovery_window"`
	Steps          []string `json:"steps"`
}

// table is evaluated top-down; the first key contained in the label text wins.
// "Benign" is a substring of several display strings, so it must stay below
// the malignant and precancerous keys.
var table = []Record{
	{
		Key:            "Melanoma",
		RecoveryWindow: "4–6 months",
		Steps: []string{
			"Book an urgent dermatologist or oncologist appointment",
			"Surgical excision with safety margins",
			"Sentinel lymph node biopsy if advised",
			"Follow-up skin checks every 3 months",
			"Strict sun protection with SPF 50+",
		},
	},
	{
		Key:            "Basal cell carcinoma",
		RecoveryWindow: "2–4 months",
		Steps: []string{
			"Confirm with a biopsy",
			"Surgical removal or Mohs surgery",
			"Topical therapy or cryotherapy for superficial lesions",
			"Keep the wound clean until fully healed",
			"Yearly full skin examination",
		},
	},
	{
		Key:            "Actinic keratoses",
		RecoveryWindow: "1–3 months",
		Steps: []string{
			"Cryotherapy or prescribed topical cream",
			"Photodynamic therapy for multiple lesions",
			"Daily broad-spectrum sunscreen",
			"Monitor for thickening or bleeding",
		},
	},
	{
		Key:            "Benign",
		RecoveryWindow: "2–4 weeks",
		Steps: []string{
			"Usually no treatment is required",
			"Photograph the lesion to track changes",
			"Removal only for cosmetic reasons or irritation",
			"See a dermatologist if size, colour or shape changes",
		},
	},
	{
		Key:            "Vascular lesions",
		RecoveryWindow: "2–4 weeks",
		Steps: []string{
			"Laser therapy if treatment is wanted",
			"Avoid trauma to the area",
			"Apply a cold compress for swelling",
		},
	},
	{
		Key:            "Dermatofibroma",
		RecoveryWindow: "3–5 weeks",
		Steps: []string{
			"Observation is usually sufficient",
			"Surgical excision if painful",
			"Avoid scratching or shaving over the lesion",
		},
	},
}

// Lookup returns the first record whose key is contained in text.
func Lookup(text string) (Record, bool) {
	for _, rec := range table {
		if strings.Contains(text, rec.Key) {
			return clone(rec), true
		}
	}
	return Record{}, false
}

// Resolve looks up the record for a label's display text.
func Resolve(l diagnosis.Label) (Record, bool) {
	return Lookup(l.String())
}

// Keys returns the match keys in evaluation order.
func Keys() []string {
	keys := make([]string, len(table))
	for i, rec := range table {
		keys[i] = rec.Key
	}
	return keys
}

func clone(rec Record) Record {
	rec.Steps = append([]string(nil), rec.Steps...)
	return rec
}
