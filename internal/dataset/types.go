package dataset

// Spec defines the question dataset schema loaded from JSON or YAML.
type Spec struct {
	Version   int        `json:"version" yaml:"version"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Question is a single multiple-choice item. Choices are listed in the
// original order, so index 0 holds the content of original label A.
// Answer is the ground-truth original label; it may be empty when the
// dataset does not carry one.
type Question struct {
	ID      string   `json:"id,omitempty" yaml:"id,omitempty"`
	Text    string   `json:"question" yaml:"question"`
	Choices []string `json:"choices" yaml:"choices"`
	Answer  string   `json:"answer,omitempty" yaml:"answer,omitempty"`
	Subtask string   `json:"subtask,omitempty" yaml:"subtask,omitempty"`
}
