package prompt

import "fmt"

// Style selects one of the prompt wire shapes for question input or
// expected model output.
type Style string

const (
	StyleBase Style = "base"
	StyleJSON Style = "json"
	StyleXML  Style = "xml"
)

// ParseStyle converts a config string into a Style.
func ParseStyle(value string) (Style, error) {
	switch Style(value) {
	case StyleBase, StyleJSON, StyleXML:
		return Style(value), nil
	}
	return "", fmt.Errorf("unknown prompt style %q (expected base, json, or xml)", value)
}

// Language selects a template set.
type Language string

const (
	LanguageEN Language = "en"
	LanguageFR Language = "fr"
)

// ParseLanguage converts a config string into a Language.
func ParseLanguage(value string) (Language, error) {
	switch Language(value) {
	case LanguageEN, LanguageFR:
		return Language(value), nil
	}
	return "", fmt.Errorf("unknown language %q (expected en or fr)", value)
}

// templateSet holds the localized prompt fragments for one language.
type templateSet struct {
	Intro            string
	Instruction      string
	InstructionThink string
	JSONInstruction  string
	XMLInstruction   string
	AnswerPrefix     string
	ChoiceLabel      string
}

var templates = map[Language]templateSet{
	LanguageEN: {
		Intro:            "Answer the following multiple choice question.",
		Instruction:      "The last line of your response should be of the following format: 'Answer: $LETTER' (without quotes) where LETTER is one of ABCD.",
		InstructionThink: "Think step by step before answering.",
		JSONInstruction:  `Respond with a fenced json code block containing the keys "reasoning" and "answer", where "answer" is one of ABCD.`,
		XMLInstruction:   "Respond with a fenced xml code block containing a <response> element with <reasoning> and <answer> children, where the answer is one of ABCD.",
		AnswerPrefix:     "Answer:",
		ChoiceLabel:      "choices",
	},
	LanguageFR: {
		Intro:            "Répondez à la question à choix multiples suivante.",
		Instruction:      "La dernière ligne de votre réponse doit être au format suivant : « Réponse : $LETTRE » (sans les guillemets) où LETTRE est l'une des lettres ABCD.",
		InstructionThink: "Réfléchissez étape par étape avant de répondre.",
		JSONInstruction:  "Répondez avec un bloc de code json contenant les clés « reasoning » et « answer », où « answer » est l'une des lettres ABCD.",
		XMLInstruction:   "Répondez avec un bloc de code xml contenant un élément <response> avec les enfants <reasoning> et <answer>, où la réponse est l'une des lettres ABCD.",
		AnswerPrefix:     "Réponse:",
		ChoiceLabel:      "choix",
	},
}
