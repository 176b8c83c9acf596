package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"permutest/internal/dataset"
	"permutest/internal/permutation"
)

// FormattingError marks a prompt that can never be built from its inputs.
// The runner abandons such tasks instead of retrying them.
type FormattingError struct {
	Reason string
}

// Error returns a readable message for the formatting failure.
func (err *FormattingError) Error() string {
	return "format prompt: " + err.Reason
}

// Formatter builds prompts for one (language, input style, output style)
// combination. It is immutable and safe for concurrent use.
type Formatter struct {
	language    Language
	inputStyle  Style
	outputStyle Style
	set         templateSet
}

// NewFormatter constructs a Formatter for a validated combination.
func NewFormatter(language Language, inputStyle, outputStyle Style) (*Formatter, error) {
	set, ok := templates[language]
	if !ok {
		return nil, fmt.Errorf("no templates for language %q", language)
	}
	switch inputStyle {
	case StyleBase, StyleJSON, StyleXML:
	default:
		return nil, fmt.Errorf("unknown input style %q", inputStyle)
	}
	switch outputStyle {
	case StyleBase, StyleJSON, StyleXML:
	default:
		return nil, fmt.Errorf("unknown output style %q", outputStyle)
	}
	return &Formatter{
		language:    language,
		inputStyle:  inputStyle,
		outputStyle: outputStyle,
		set:         set,
	}, nil
}

// Build renders the prompt for a question with its choices displayed in
// permuted order: displayed position i shows the choice content of the
// original label perm[i].
func (f *Formatter) Build(q dataset.Question, perm permutation.Permutation) (string, error) {
	if strings.TrimSpace(q.Text) == "" {
		return "", &FormattingError{Reason: fmt.Sprintf("question %q has empty text", q.ID)}
	}
	if len(q.Choices) != 4 {
		return "", &FormattingError{Reason: fmt.Sprintf("question %q has %d choices, expected 4", q.ID, len(q.Choices))}
	}
	var displayed [4]string
	for pos, idx := range perm.Indices() {
		choice := q.Choices[idx]
		if strings.TrimSpace(choice) == "" {
			return "", &FormattingError{Reason: fmt.Sprintf("question %q has an empty choice for label %s", q.ID, perm[pos])}
		}
		displayed[pos] = choice
	}

	switch f.inputStyle {
	case StyleJSON:
		return f.buildJSONInput(q.Text, displayed)
	case StyleXML:
		return f.buildXMLInput(q.Text, displayed), nil
	default:
		return f.buildBaseInput(q.Text, displayed), nil
	}
}

// outputInstruction is embedded in structured inputs and printed up top for
// base inputs with base output.
func (f *Formatter) outputInstruction() string {
	switch f.outputStyle {
	case StyleJSON:
		return f.set.InstructionThink + " " + f.set.JSONInstruction
	case StyleXML:
		return f.set.InstructionThink + " " + f.set.XMLInstruction
	default:
		return f.set.Instruction
	}
}

func (f *Formatter) buildBaseInput(text string, displayed [4]string) string {
	var builder strings.Builder
	builder.WriteString(f.set.Intro)
	builder.WriteString("\n")
	if f.outputStyle == StyleBase {
		builder.WriteString(f.set.Instruction)
	} else {
		builder.WriteString(f.set.InstructionThink)
	}
	builder.WriteString("\n\n")
	builder.WriteString(text)
	builder.WriteString("\n\n")
	for i, choice := range displayed {
		builder.WriteString(string(rune('A' + i)))
		builder.WriteString(") ")
		builder.WriteString(choice)
		builder.WriteString("\n")
	}
	switch f.outputStyle {
	case StyleJSON:
		builder.WriteString("\n")
		builder.WriteString(f.set.AnswerPrefix)
		builder.WriteString("\n```json\n{\n")
		builder.WriteString("  \"reasoning\": \"Your step-by-step reasoning here\",\n")
		builder.WriteString("  \"answer\": \"A | B | C | D\"\n")
		builder.WriteString("}\n```")
	case StyleXML:
		builder.WriteString("\n")
		builder.WriteString(f.set.AnswerPrefix)
		builder.WriteString("\n```xml\n<response>\n")
		builder.WriteString("  <reasoning>Your step-by-step reasoning here</reasoning>\n")
		builder.WriteString("  <answer>A | B | C | D</answer>\n")
		builder.WriteString("</response>\n```")
	}
	return strings.TrimSpace(builder.String())
}

type jsonPromptEN struct {
	Instruction  string            `json:"instruction"`
	OutputFormat string            `json:"output_format"`
	Question     string            `json:"question"`
	Choices      map[string]string `json:"choices"`
}

type jsonPromptFR struct {
	Instruction  string            `json:"instruction"`
	OutputFormat string            `json:"output_format"`
	Question     string            `json:"question"`
	Choices      map[string]string `json:"choix"`
}

func (f *Formatter) buildJSONInput(text string, displayed [4]string) (string, error) {
	choices := map[string]string{
		"A": displayed[0],
		"B": displayed[1],
		"C": displayed[2],
		"D": displayed[3],
	}
	var payload any
	if f.language == LanguageFR {
		payload = jsonPromptFR{
			Instruction:  f.set.Intro,
			OutputFormat: f.outputInstruction(),
			Question:     text,
			Choices:      choices,
		}
	} else {
		payload = jsonPromptEN{
			Instruction:  f.set.Intro,
			OutputFormat: f.outputInstruction(),
			Question:     text,
			Choices:      choices,
		}
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", &FormattingError{Reason: fmt.Sprintf("encode json prompt: %v", err)}
	}
	return string(data), nil
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func (f *Formatter) buildXMLInput(text string, displayed [4]string) string {
	var builder strings.Builder
	builder.WriteString("<task>\n")
	fmt.Fprintf(&builder, "  <instruction>%s</instruction>\n", xmlEscaper.Replace(f.set.Intro))
	fmt.Fprintf(&builder, "  <output_format>%s</output_format>\n", xmlEscaper.Replace(f.outputInstruction()))
	fmt.Fprintf(&builder, "  <question>%s</question>\n", xmlEscaper.Replace(text))
	fmt.Fprintf(&builder, "  <%s>\n", f.set.ChoiceLabel)
	for i, choice := range displayed {
		label := string(rune('A' + i))
		fmt.Fprintf(&builder, "    <%s>%s</%s>\n", label, xmlEscaper.Replace(choice), label)
	}
	fmt.Fprintf(&builder, "  </%s>\n", f.set.ChoiceLabel)
	builder.WriteString("</task>")
	return builder.String()
}
