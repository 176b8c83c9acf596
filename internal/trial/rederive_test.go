package trial

import (
	"testing"

	"permutest/internal/parse"
	"permutest/internal/prompt"
)

// TestRederiveFillsMissingExtraction verifies the repair path parses stored
// text and refreshes the mapping.
func TestRederiveFillsMissingExtraction(t *testing.T) {
	text := "Some reasoning.\nAnswer: C"
	stored := Result{
		TrialID:                  "t1",
		TaskID:                   "q0_p1",
		OptionPermutation:        "DABC",
		Permutation:              []string{"D", "A", "B", "C"},
		APICallSuccessful:        true,
		APIResponseText:          &text,
		ModelChoiceOriginalLabel: LabelInvalidExtraction,
		GroundTruthAnswer:        "B",
	}
	repaired := Rederive(stored, parse.New(prompt.StyleBase))
	if repaired.ExtractedAnswer == nil || *repaired.ExtractedAnswer != "C" {
		t.Fatalf("expected extraction C, got %+v", repaired.ExtractedAnswer)
	}
	if repaired.ModelChoiceOriginalLabel != "B" {
		t.Fatalf("expected mapped label B, got %q", repaired.ModelChoiceOriginalLabel)
	}
	if repaired.IsCorrect == nil || !*repaired.IsCorrect {
		t.Fatalf("expected correct result after repair")
	}
	if repaired.TrialID != "t1" {
		t.Fatalf("identity must be preserved, got %q", repaired.TrialID)
	}
}

// TestRederiveKeepsExistingExtraction verifies successful extractions are
// not re-parsed.
func TestRederiveKeepsExistingExtraction(t *testing.T) {
	text := "Answer: D"
	extracted := "A"
	stored := Result{
		Permutation:       []string{"A", "B", "C", "D"},
		APIResponseText:   &text,
		ExtractedAnswer:   &extracted,
		GroundTruthAnswer: "A",
	}
	repaired := Rederive(stored, parse.New(prompt.StyleBase))
	if *repaired.ExtractedAnswer != "A" {
		t.Fatalf("expected extraction to be preserved, got %q", *repaired.ExtractedAnswer)
	}
	if repaired.IsCorrect == nil || !*repaired.IsCorrect {
		t.Fatalf("expected correctness from preserved extraction")
	}
}

// TestRederiveRebuildsPermutationList verifies legacy records with only the
// joined permutation string still map.
func TestRederiveRebuildsPermutationList(t *testing.T) {
	text := "Answer: A"
	stored := Result{
		OptionPermutation: "BCDA",
		APIResponseText:   &text,
		GroundTruthAnswer: "B",
	}
	repaired := Rederive(stored, parse.New(prompt.StyleBase))
	if len(repaired.Permutation) != 4 {
		t.Fatalf("expected rebuilt permutation, got %+v", repaired.Permutation)
	}
	if repaired.ModelChoiceOriginalLabel != "B" {
		t.Fatalf("expected mapped label B, got %q", repaired.ModelChoiceOriginalLabel)
	}
}

// TestRederiveUnparseableStaysSentinel verifies hopeless records keep the
// extraction sentinel and nil correctness.
func TestRederiveUnparseableStaysSentinel(t *testing.T) {
	text := "I cannot determine the answer."
	stored := Result{
		Permutation:       []string{"A", "B", "C", "D"},
		APIResponseText:   &text,
		GroundTruthAnswer: "A",
	}
	repaired := Rederive(stored, parse.New(prompt.StyleBase))
	if repaired.ExtractedAnswer != nil {
		t.Fatalf("expected no extraction, got %q", *repaired.ExtractedAnswer)
	}
	if repaired.ModelChoiceOriginalLabel != LabelInvalidExtraction {
		t.Fatalf("expected %s, got %q", LabelInvalidExtraction, repaired.ModelChoiceOriginalLabel)
	}
	if repaired.IsCorrect != nil {
		t.Fatalf("expected nil correctness")
	}
}
