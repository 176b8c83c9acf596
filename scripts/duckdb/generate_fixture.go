// Command generate_fixture fabricates a synthetic analytics database so the
// report views can be exercised without spending API calls. The fake model
// carries a deliberate primacy bias: trials whose correct choice is displayed
// earlier score higher, which is the effect the accuracy views surface.
//
//	go run ./scripts/duckdb -out fixtures/demo.duckdb -experiments 2 -questions 40
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"permutest/internal/ledger"
	"permutest/internal/permutation"
	"permutest/internal/store/duck"
	"permutest/internal/trial"
)

var fixtureModels = []struct {
	model    string
	provider string
}{
	{"gemini-2.5-flash", "gemini"},
	{"mistral-small-latest", "mistral"},
}

// positionAccuracy is the chance the fabricated model answers correctly when
// the right choice sits at a given displayed position.
var positionAccuracy = [4]float64{0.92, 0.85, 0.78, 0.70}

func main() {
	outPath := flag.String("out", "", "output duckdb file path")
	experiments := flag.Int("experiments", 2, "number of experiments to fabricate")
	questions := flag.Int("questions", 40, "questions per experiment")
	seed := flag.Int64("seed", 1, "rng seed")
	flag.Parse()
	if *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: generate_fixture -out <duckdb file> [-experiments N] [-questions N] [-seed N]")
		os.Exit(2)
	}
	if err := generate(*outPath, *experiments, *questions, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "generate fixture: %v\n", err)
		os.Exit(1)
	}
}

func generate(outPath string, experiments, questions int, seed int64) error {
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := removeIfExists(outPath); err != nil {
		return err
	}
	db, err := duck.Open(outPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	rng := rand.New(rand.NewSource(seed))
	perms, err := permutation.Generate(permutation.StrategyCircular, permutation.Labels[:], 0)
	if err != nil {
		return err
	}
	total := 0
	for i := 0; i < experiments; i++ {
		entry := fixtureModels[i%len(fixtureModels)]
		snapshot, results := fabricateExperiment(entry.model, entry.provider, questions, perms, rng)
		stats, err := duck.Ingest(ctx, db, snapshot, results)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", snapshot.ExperimentID, err)
		}
		total += stats.Trials
	}
	fmt.Printf("Wrote %d trials across %d experiments to %s\n", total, experiments, outPath)
	return nil
}

func fabricateExperiment(model, provider string, questions int, perms []permutation.Permutation, rng *rand.Rand) (ledger.Snapshot, []trial.Result) {
	experimentID := fmt.Sprintf("demo_%s_en_ibase_obase_circular", model)
	started := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	results := make([]trial.Result, 0, questions*len(perms))
	completed := make([]ledger.TaskID, 0, questions*len(perms))
	for q := 0; q < questions; q++ {
		groundTruth := permutation.Labels[q%len(permutation.Labels)]
		for p, perm := range perms {
			taskID := ledger.NewTaskID(q, p)
			completed = append(completed, taskID)
			ts := started.Add(time.Duration(len(results)) * 3 * time.Second)
			results = append(results, fabricateTrial(experimentID, model, taskID, q, perm, groundTruth, ts, rng))
		}
	}
	snapshot := ledger.Snapshot{
		ExperimentID:  experimentID,
		Status:        ledger.StatusComplete,
		CreatedAt:     started.Format(time.RFC3339),
		UpdatedAt:     started.Add(time.Duration(len(results)) * 3 * time.Second).Format(time.RFC3339),
		TotalExpected: len(completed),
		Completed:     completed,
		Echo: ledger.Echo{
			ExperimentID:     experimentID,
			Model:            model,
			Provider:         provider,
			Language:         "en",
			InputFormat:      "base",
			OutputFormat:     "base",
			PermutationType:  string(permutation.StrategyCircular),
			PermutationCount: len(perms),
			StartQuestion:    0,
			EndQuestion:      questions - 1,
		},
	}
	return snapshot, results
}

func fabricateTrial(experimentID, model string, taskID ledger.TaskID, questionIndex int, perm permutation.Permutation, groundTruth string, ts time.Time, rng *rand.Rand) trial.Result {
	displayed, _ := perm.DisplayedLetter(groundTruth)
	letter := displayed
	if rng.Float64() >= positionAccuracy[displayed[0]-'A'] {
		letter = wrongLetter(displayed, rng)
	}
	extracted := letter
	mapping := trial.MapAnswer(&extracted, perm.Slice(), groundTruth)
	responseText := "Answer: " + letter
	return trial.Result{
		TrialID:                  deterministicID(experimentID, string(taskID)),
		TaskID:                   string(taskID),
		Attempt:                  1,
		QuestionID:               fmt.Sprintf("demo_q%03d", questionIndex),
		QuestionIndex:            questionIndex,
		Model:                    model,
		Language:                 "en",
		InputFormat:              "base",
		OutputFormat:             "base",
		OptionPermutation:        perm.String(),
		Permutation:              perm.Slice(),
		APICallSuccessful:        true,
		APIResponseText:          &responseText,
		ExtractedAnswer:          &extracted,
		ModelChoiceOriginalLabel: mapping.OriginalLabel,
		GroundTruthAnswer:        groundTruth,
		IsCorrect:                mapping.IsCorrect,
		ResponseTimeMS:           400 + rng.Int63n(900),
		Timestamp:                ts.Format(time.RFC3339),
	}
}

// wrongLetter picks a displayed letter other than the correct one.
func wrongLetter(correct string, rng *rand.Rand) string {
	offset := 1 + rng.Intn(len(permutation.Labels)-1)
	return string(rune('A' + (int(correct[0]-'A')+offset)%len(permutation.Labels)))
}

// removeIfExists deletes an existing fixture file so runs always start fresh.
func removeIfExists(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove existing fixture: %w", err)
		}
		return nil
	}
	if os.IsNotExist(err) {
		return nil
	}
	return fmt.Errorf("stat fixture: %w", err)
}

// deterministicID yields a repeatable trial id so reruns produce identical
// databases for a given seed.
func deterministicID(parts ...string) string {
	name := ""
	for _, part := range parts {
		name += part + "/"
	}
	return uuid.NewSHA1(fixtureNamespace, []byte(name)).String()
}

var fixtureNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
