// Package parser splits a provider's free-text reply into narrative and
// reader choices.
//
// Grammar:
//
//	response := body NEWLINE+ [marker NEWLINE] choice choice choice
//	marker   := "CHOICES:" | "What happens next?" | "What will you do?"   (case-insensitive)
//	choice   := numbered | bullet
//	numbered := WS* [emph] ( DIGIT | ("Choice"|"Option") WS* DIGIT ) ("." | ")" | ":") [emph] WS+ text
//	bullet   := WS* ("-" | "*" | "•") WS+ text
//	emph     := "**" | "__"
//
// With a marker the first three choice lines after it are taken. Without one
// only numbered lines count: the trailing run of them is used and its last
// three are taken, so a story ending in bulleted dialogue keeps its text.
package parser

import (
	"regexp"
	"strings"
)

// ChoiceCount is the number of choices every segment ends with.
const ChoiceCount = 3

// FallbackChoices are offered when the reply cannot be split.
var FallbackChoices = []string{
	"Continue the adventure",
	"Explore a different path",
	"Try something unexpected",
}

type Kind int

const (
	Unparseable Kind = iota
	Parsed
)

func (k Kind) String() string {
	if k == Parsed {
		return "parsed"
	}
	return "unparseable"
}

// Result of Parse. On Unparseable, Body may still hold usable narrative and
// Reason says what was missing.
type Result struct {
	Kind    Kind
	Body    string
	Choices []string
	Reason  string
}

// HasBody reports whether any narrative text was recovered.
func (r Result) HasBody() bool {
	return r.Body != ""
}

// ChoicesOrFallback returns the parsed choices or a copy of FallbackChoices.
func (r Result) ChoicesOrFallback() []string {
	if r.Kind == Parsed {
		return r.Choices
	}
	return append([]string(nil), FallbackChoices...)
}

var (
	numberedLine = regexp.MustCompile(`^\s*(?:\*\*|__)?\s*(?:(?i:choice|option)\s*)?\d+\s*[.):]\s*(?:\*\*|__)?\s+(.+?)\s*$`)
	bulletLine   = regexp.MustCompile(`^\s*[-*•]\s+(.+?)\s*$`)
	markerLine   = regexp.MustCompile(`(?i)^\s*(?:\*\*|__)?\s*(?:choices|what happens next\?|what will you do\?)\s*:?\s*(?:\*\*|__)?\s*$`)
)

// Parse never fails; problems are reported as Unparseable.
func Parse(raw string) Result {
	text := strings.TrimSpace(strings.ReplaceAll(raw, "\r\n", "\n"))
	if text == "" {
		return Result{Kind: Unparseable, Reason: "empty response"}
	}
	lines := strings.Split(text, "\n")

	var bodyLines []string
	var choices []string

	if marker := lastMarker(lines); marker >= 0 {
		bodyLines = lines[:marker]
		for _, line := range lines[marker+1:] {
			if c, ok := parseChoice(line, true); ok {
				choices = append(choices, c)
			}
		}
		if len(choices) > ChoiceCount {
			choices = choices[:ChoiceCount]
		}
	} else {
		start := len(lines)
		for i := len(lines) - 1; i >= 0; i-- {
			if strings.TrimSpace(lines[i]) == "" {
				continue
			}
			c, ok := parseChoice(lines[i], false)
			if !ok {
				break
			}
			choices = append([]string{c}, choices...)
			start = i
		}
		bodyLines = lines[:start]
		if len(choices) > ChoiceCount {
			choices = choices[len(choices)-ChoiceCount:]
		}
	}

	body := strings.TrimSpace(strings.Join(bodyLines, "\n"))
	switch {
	case body == "":
		return Result{Kind: Unparseable, Choices: choices, Reason: "no narrative before the choices"}
	case len(choices) < ChoiceCount:
		return Result{Kind: Unparseable, Body: body, Choices: choices, Reason: "expected 3 choices"}
	}
	return Result{Kind: Parsed, Body: body, Choices: choices}
}

func lastMarker(lines []string) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if markerLine.MatchString(lines[i]) {
			return i
		}
	}
	return -1
}

func parseChoice(line string, bullets bool) (string, bool) {
	m := numberedLine.FindStringSubmatch(line)
	if m == nil && bullets {
		m = bulletLine.FindStringSubmatch(line)
	}
	if m == nil {
		return "", false
	}
	text := strings.Trim(m[1], `*_"' `)
	if text == "" {
		return "", false
	}
	return text, true
}
