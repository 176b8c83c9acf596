package permutation

import "fmt"

// Strategy selects how option orderings are enumerated.
type Strategy string

const (
	// StrategyCircular produces the 4 right-rotations of the base ordering.
	StrategyCircular Strategy = "circular"
	// StrategyFactorial produces the first N of all 24 orderings in
	// lexicographic order.
	StrategyFactorial Strategy = "factorial"
)

// MaxFactorial is the number of distinct orderings of four labels.
const MaxFactorial = 24

// ParseStrategy validates a strategy name from configuration.
func ParseStrategy(value string) (Strategy, error) {
	switch Strategy(value) {
	case StrategyCircular:
		return StrategyCircular, nil
	case StrategyFactorial:
		return StrategyFactorial, nil
	default:
		return "", fmt.Errorf("unsupported permutation strategy %q (expected circular|factorial)", value)
	}
}

// Generate enumerates the permutations to test for one question. The circular
// strategy always yields exactly 4 permutations regardless of count, starting
// with the base ordering and right-rotating once per step. The factorial
// strategy yields the first min(count, 24) permutations of the base labels in
// lexicographic order; counts above 24 clamp rather than fail, and the caller
// is expected to surface the clamp as a warning. A base label set that is not
// a bijection on {A,B,C,D} is a fatal configuration error.
func Generate(strategy Strategy, labels []string, count int) ([]Permutation, error) {
	base, err := FromLabels(labels)
	if err != nil {
		return nil, fmt.Errorf("invalid base labels: %w", err)
	}
	switch strategy {
	case StrategyCircular:
		return generateCircular(base), nil
	case StrategyFactorial:
		if count < 1 {
			return nil, fmt.Errorf("factorial count must be >= 1, got %d", count)
		}
		if count > MaxFactorial {
			count = MaxFactorial
		}
		return generateFactorial(base, count), nil
	default:
		return nil, fmt.Errorf("unsupported permutation strategy %q", strategy)
	}
}

func generateCircular(base Permutation) []Permutation {
	out := make([]Permutation, 0, 4)
	current := base
	for i := 0; i < 4; i++ {
		out = append(out, current)
		current = current.rotateRight()
	}
	return out
}

// generateFactorial walks position index tuples in lexicographic order, which
// matches enumerating permutations of the base sequence in input order.
func generateFactorial(base Permutation, count int) []Permutation {
	out := make([]Permutation, 0, count)
	for a := 0; a < 4; a++ {
		for b := 0; b < 4; b++ {
			if b == a {
				continue
			}
			for c := 0; c < 4; c++ {
				if c == a || c == b {
					continue
				}
				d := 6 - a - b - c
				out = append(out, Permutation{base[a], base[b], base[c], base[d]})
				if len(out) == count {
					return out
				}
			}
		}
	}
	return out
}
