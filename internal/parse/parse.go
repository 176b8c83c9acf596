package parse

import (
	"encoding/json"
	"regexp"
	"strings"

	"permutest/internal/prompt"
)

// Parser extracts a positional answer letter (A-D, as displayed) from raw
// model output. Parsing is total and idempotent: it never errors and the
// same input always yields the same extraction.
type Parser struct {
	style prompt.Style
}

// New returns a parser for one expected output style.
func New(style prompt.Style) *Parser {
	return &Parser{style: style}
}

// Parse returns the extracted positional letter and whether one was found.
func (p *Parser) Parse(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", false
	}
	var letter string
	switch p.style {
	case prompt.StyleJSON:
		letter = parseJSON(text)
	case prompt.StyleXML:
		letter = parseXML(text)
	default:
		letter = parseBase(text)
	}
	if letter == "" && !statesNoAnswer(text) {
		letter = parseFallback(text)
	}
	if letter == "" {
		return "", false
	}
	return letter, true
}

// answerPrefixPattern tolerates markdown emphasis around the localized
// answer prefix, e.g. "**Answer:** C" or "Réponse : b".
var (
	answerPrefixPattern = regexp.MustCompile(`(?im)^\s*[*#_]*[ \t]*(?:Answer|Réponse)\s*:\s*[*#_"']*[ \t]*([A-Da-d])\b`)
	bareLetterLine      = regexp.MustCompile(`(?m)^[ \t]*([A-Da-d])[ \t]*$`)
)

func parseBase(text string) string {
	if match := answerPrefixPattern.FindStringSubmatch(text); match != nil {
		return strings.ToUpper(match[1])
	}
	if match := bareLetterLine.FindStringSubmatch(text); match != nil {
		return strings.ToUpper(match[1])
	}
	return ""
}

var (
	jsonBlockPattern  = regexp.MustCompile("(?is)```json\\s*(\\{.*?\\})\\s*```")
	jsonAnswerPattern = regexp.MustCompile(`(?i)"answer"\s*:\s*"\s*([A-Da-d])[.)]?\s*"`)
)

func parseJSON(text string) string {
	if match := jsonBlockPattern.FindStringSubmatch(text); match != nil {
		if letter := answerFromJSON(match[1]); letter != "" {
			return letter
		}
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start != -1 && end > start {
		if letter := answerFromJSON(text[start : end+1]); letter != "" {
			return letter
		}
	}
	if match := jsonAnswerPattern.FindStringSubmatch(text); match != nil {
		return strings.ToUpper(match[1])
	}
	return ""
}

func answerFromJSON(blob string) string {
	var doc struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal([]byte(blob), &doc); err != nil {
		return ""
	}
	answer := strings.ToUpper(strings.TrimSpace(doc.Answer))
	switch answer {
	case "A", "B", "C", "D":
		return answer
	}
	return ""
}

var (
	xmlBlockPattern   = regexp.MustCompile("(?is)```xml\\s*(.*?)\\s*```")
	xmlAnswerPattern  = regexp.MustCompile(`(?i)<answer>\s*([A-Da-d])[.)]?\s*</answer>`)
	xmlAnswerTolerant = regexp.MustCompile(`(?is)<answer>[^<]*?\b([A-Da-d])\b[^<]*?</answer>`)
)

func parseXML(text string) string {
	body := text
	if match := xmlBlockPattern.FindStringSubmatch(text); match != nil {
		body = match[1]
	}
	if match := xmlAnswerPattern.FindStringSubmatch(body); match != nil {
		return strings.ToUpper(match[1])
	}
	if match := xmlAnswerTolerant.FindStringSubmatch(body); match != nil {
		return strings.ToUpper(match[1])
	}
	return ""
}

// fallbackPatterns are tried in order on any output style once the
// format-specific extraction comes up empty.
var fallbackPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)the answer is\s*:?\s*\(?([A-Da-d])\)?\b`),
	regexp.MustCompile(`(?i)correct answer is\s*:?\s*\(?([A-Da-d])\)?\b`),
	regexp.MustCompile(`(?i)my answer is\s*:?\s*\(?([A-Da-d])\)?\b`),
	regexp.MustCompile(`(?i)final answer\s*:?\s*\(?([A-Da-d])\)?\b`),
	regexp.MustCompile(`(?i)la réponse est\s*:?\s*\(?([A-Da-d])\)?\b`),
	regexp.MustCompile(`\(([A-Da-d])\)`),
	regexp.MustCompile(`\b([A-D])\)`),
	regexp.MustCompile(`\b([A-D])\.`),
	regexp.MustCompile(`(?i)choose\s*:?\s*([A-Da-d])\b`),
	regexp.MustCompile(`(?i)select\s*:?\s*([A-Da-d])\b`),
	regexp.MustCompile(`(?i)pick\s*:?\s*([A-Da-d])\b`),
	regexp.MustCompile(`["']([A-D])["']`),
	regexp.MustCompile(`\b([A-D])\s*$`),
}

func parseFallback(text string) string {
	for _, pattern := range fallbackPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			return strings.ToUpper(match[1])
		}
	}
	return ""
}

// noAnswerStatements suppress the fallback layer: a response that declines
// to pick an option must not have a stray letter harvested from it.
var noAnswerStatements = []string{
	"cannot determine",
	"unable to determine",
	"cannot answer",
	"no correct answer",
	"none of the options",
	"none of the above",
	"aucune réponse",
	"aucune des options",
	"pas de réponse",
}

func statesNoAnswer(text string) bool {
	lowered := strings.ToLower(text)
	for _, statement := range noAnswerStatements {
		if strings.Contains(lowered, statement) {
			return true
		}
	}
	return false
}
