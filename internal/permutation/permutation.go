package permutation

import (
	"fmt"
	"strings"
)

// Labels is the canonical original label set, in original order.
var Labels = [4]string{"A", "B", "C", "D"}

// Permutation is a bijection on the four original labels. Entry i holds the
// original label whose choice content is displayed at position i, so
// Permutation{"D","A","B","C"} shows the original D choice first.
type Permutation [4]string

// Identity returns the permutation that displays choices in original order.
func Identity() Permutation {
	return Permutation(Labels)
}

// FromLabels builds a Permutation from a label slice, validating that it is a
// bijection on {A,B,C,D}.
func FromLabels(labels []string) (Permutation, error) {
	if len(labels) != 4 {
		return Permutation{}, fmt.Errorf("permutation requires exactly 4 labels, got %d", len(labels))
	}
	var p Permutation
	seen := map[string]struct{}{}
	for i, label := range labels {
		normalized := strings.ToUpper(strings.TrimSpace(label))
		if !isOriginalLabel(normalized) {
			return Permutation{}, fmt.Errorf("label %q is not one of A-D", label)
		}
		if _, dup := seen[normalized]; dup {
			return Permutation{}, fmt.Errorf("duplicate label %q", normalized)
		}
		seen[normalized] = struct{}{}
		p[i] = normalized
	}
	return p, nil
}

// Parse builds a Permutation from its compact string form, e.g. "DABC".
func Parse(value string) (Permutation, error) {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) != 4 {
		return Permutation{}, fmt.Errorf("permutation string %q must have 4 characters", value)
	}
	labels := make([]string, 4)
	for i := 0; i < 4; i++ {
		labels[i] = string(trimmed[i])
	}
	return FromLabels(labels)
}

// String returns the compact label form, e.g. "DABC".
func (p Permutation) String() string {
	return p[0] + p[1] + p[2] + p[3]
}

// Slice returns the labels as a fresh slice for serialization.
func (p Permutation) Slice() []string {
	return []string{p[0], p[1], p[2], p[3]}
}

// OriginalFor maps a positional answer letter back to the original label whose
// content was displayed at that position. ok is false when the positional
// letter is not a single A-D letter or the derived index falls outside the
// permutation (defensively checked).
func (p Permutation) OriginalFor(positional string) (string, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(positional))
	if !isOriginalLabel(normalized) {
		return "", false
	}
	index := int(normalized[0] - 'A')
	if index < 0 || index >= len(p) {
		return "", false
	}
	return p[index], true
}

// DisplayedLetter returns the positional letter at which an original label is
// shown under this permutation.
func (p Permutation) DisplayedLetter(original string) (string, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(original))
	for i, label := range p {
		if label == normalized {
			return string(rune('A' + i)), true
		}
	}
	return "", false
}

// Indices returns the original choice index displayed at each position, so a
// formatter can place choices[Indices()[i]] at displayed position i.
func (p Permutation) Indices() [4]int {
	var out [4]int
	for i, label := range p {
		out[i] = int(label[0] - 'A')
	}
	return out
}

// DisplayedChoices reorders choice contents from original order into
// displayed order under this permutation.
func (p Permutation) DisplayedChoices(choices [4]string) [4]string {
	var out [4]string
	for i, idx := range p.Indices() {
		out[i] = choices[idx]
	}
	return out
}

// rotateRight returns the permutation shifted one position to the right, the
// rotation step used by the circular strategy.
func (p Permutation) rotateRight() Permutation {
	return Permutation{p[3], p[0], p[1], p[2]}
}

func isOriginalLabel(value string) bool {
	switch value {
	case "A", "B", "C", "D":
		return true
	default:
		return false
	}
}
