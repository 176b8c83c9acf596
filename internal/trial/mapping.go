package trial

import "strings"

// Sentinel labels recorded when a value cannot be mapped to A-D.
const (
	LabelInvalidExtraction = "INVALID_EXT"
	LabelMappingError      = "ERROR_MAP"
	GroundTruthUnknown     = "UNKNOWN"
	GroundTruthError       = "ERROR_GT"
)

// Mapping is the outcome of translating a positional extraction back into
// the original label space.
type Mapping struct {
	OriginalLabel string
	GroundTruth   string
	IsCorrect     *bool
}

// MapAnswer translates an extracted positional letter through the inverse
// permutation and derives correctness. permLabels is the displayed-order
// label list, so permLabels[i] is the original label shown at position i.
// The function is total: any input yields a Mapping, with sentinels standing
// in for unmappable values, and IsCorrect stays nil unless both the mapped
// choice and the ground truth are valid labels.
func MapAnswer(extracted *string, permLabels []string, groundTruth string) Mapping {
	mapping := Mapping{
		OriginalLabel: LabelInvalidExtraction,
		GroundTruth:   NormalizeGroundTruth(groundTruth),
	}

	letter := ""
	if extracted != nil {
		letter = strings.ToUpper(strings.TrimSpace(*extracted))
	}
	if !isLabel(letter) {
		return mapping
	}

	index := int(letter[0] - 'A')
	if index < 0 || index >= len(permLabels) {
		mapping.OriginalLabel = LabelMappingError
		return mapping
	}
	original := strings.ToUpper(strings.TrimSpace(permLabels[index]))
	if !isLabel(original) {
		mapping.OriginalLabel = LabelMappingError
		return mapping
	}
	mapping.OriginalLabel = original

	if !isLabel(mapping.GroundTruth) {
		return mapping
	}
	correct := mapping.OriginalLabel == mapping.GroundTruth
	mapping.IsCorrect = &correct
	return mapping
}

// NormalizeGroundTruth canonicalizes a stored ground-truth value: empty
// becomes UNKNOWN and anything outside the label vocabulary becomes ERROR_GT.
func NormalizeGroundTruth(value string) string {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	switch normalized {
	case "A", "B", "C", "D", GroundTruthUnknown, GroundTruthError:
		return normalized
	case "":
		return GroundTruthUnknown
	}
	return GroundTruthError
}

func isLabel(value string) bool {
	switch value {
	case "A", "B", "C", "D":
		return true
	}
	return false
}
