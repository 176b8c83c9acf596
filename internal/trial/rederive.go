package trial

import (
	"permutest/internal/parse"
)

// Rederive recomputes extraction, mapping, and correctness for a stored
// result from its response text. Identity, raw payloads, and timing are
// preserved; only derivable fields change. Records whose extraction already
// succeeded keep it and only have the mapping refreshed.
func Rederive(result Result, parser *parse.Parser) Result {
	if len(result.Permutation) == 0 && result.OptionPermutation != "" {
		result.Permutation = splitLabels(result.OptionPermutation)
	}
	if result.ExtractedAnswer == nil && result.APIResponseText != nil {
		if letter, ok := parser.Parse(*result.APIResponseText); ok {
			result.ExtractedAnswer = &letter
		}
	}
	mapping := MapAnswer(result.ExtractedAnswer, result.Permutation, result.GroundTruthAnswer)
	result.ModelChoiceOriginalLabel = mapping.OriginalLabel
	result.GroundTruthAnswer = mapping.GroundTruth
	result.IsCorrect = mapping.IsCorrect
	return result
}

func splitLabels(joined string) []string {
	labels := make([]string, 0, len(joined))
	for _, r := range joined {
		labels = append(labels, string(r))
	}
	return labels
}
