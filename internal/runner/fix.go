package runner

import (
	"reflect"

	"permutest/internal/ledger"
	"permutest/internal/parse"
	"permutest/internal/prompt"
	"permutest/internal/trial"
)

// FixStats reports what a repair pass over a results file changed.
type FixStats struct {
	Records  int // records scanned
	Reparsed int // extractions recovered from stored response text
	Remapped int // mapping or correctness fields that changed
}

// Fix re-derives extraction and answer mapping for every stored result and
// atomically rewrites the results file. Records keep their identity, raw
// payloads, and timing; only derivable fields move. Running it twice is a
// no-op the second time.
func Fix(resultsPath string, style prompt.Style) (FixStats, error) {
	results, err := ledger.ReadResults(resultsPath)
	if err != nil {
		return FixStats{}, err
	}

	parser := parse.New(style)
	stats := FixStats{Records: len(results)}
	changed := false
	for i, r := range results {
		fixed := trial.Rederive(r, parser)
		if r.ExtractedAnswer == nil && fixed.ExtractedAnswer != nil {
			stats.Reparsed++
		}
		if mappingChanged(r, fixed) {
			stats.Remapped++
		}
		if !reflect.DeepEqual(r, fixed) {
			changed = true
		}
		results[i] = fixed
	}
	if !changed {
		return stats, nil
	}
	if err := ledger.WriteResults(resultsPath, results); err != nil {
		return stats, err
	}
	return stats, nil
}

func mappingChanged(before, after trial.Result) bool {
	if before.ModelChoiceOriginalLabel != after.ModelChoiceOriginalLabel {
		return true
	}
	if before.GroundTruthAnswer != after.GroundTruthAnswer {
		return true
	}
	return boolPtrValue(before.IsCorrect) != boolPtrValue(after.IsCorrect)
}

func boolPtrValue(b *bool) int {
	switch {
	case b == nil:
		return 0
	case *b:
		return 1
	default:
		return 2
	}
}
